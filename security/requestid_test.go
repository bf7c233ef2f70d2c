package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateRequestID(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()

	if a == b {
		t.Error("two generated IDs are identical")
	}
	if !requestIDPattern.MatchString(a) {
		t.Errorf("generated ID %q fails its own validation pattern", a)
	}
}

func TestEnsureRequestIDPreservesValidUpstreamID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "upstream-id_123")
	rec := httptest.NewRecorder()

	r = EnsureRequestID(rec, r)

	if got := GetRequestID(r.Context()); got != "upstream-id_123" {
		t.Errorf("context ID = %q, want upstream-id_123", got)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "upstream-id_123" {
		t.Errorf("response header = %q, want upstream-id_123", got)
	}
}

func TestEnsureRequestIDReplacesMalformedID(t *testing.T) {
	for _, bad := range []string{
		"has spaces",
		"semi;colon",
		"new\nline",
		string(make([]byte, 200)),
	} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, bad)
		rec := httptest.NewRecorder()

		r = EnsureRequestID(rec, r)

		got := GetRequestID(r.Context())
		if got == bad || got == "" {
			t.Errorf("malformed ID %q not replaced (got %q)", bad, got)
		}
	}
}

func TestEnsureRequestIDGeneratesWhenMissing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	r = EnsureRequestID(rec, r)

	got := GetRequestID(r.Context())
	if got == "" {
		t.Fatal("no ID generated")
	}
	if rec.Header().Get(RequestIDHeader) != got {
		t.Error("response header does not match context ID")
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetRequestID(r.Context()); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
