package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestForwardPassesMethodPathAndHeaders(t *testing.T) {
	var got *http.Request
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	p := New(nil)
	r := httptest.NewRequest(http.MethodPost, "/api/items?limit=5", strings.NewReader("body"))
	r.Header.Set("X-Custom", "value")
	rec := httptest.NewRecorder()

	extra := http.Header{}
	extra.Set("X-Forwarded-User", "user@example.com")
	p.Forward(rec, r, upstream.URL, extra, "")

	if got == nil {
		t.Fatal("upstream never called")
	}
	if got.Method != http.MethodPost {
		t.Errorf("method = %q", got.Method)
	}
	if got.URL.Path != "/api/items" || got.URL.RawQuery != "limit=5" {
		t.Errorf("url = %q", got.URL.String())
	}
	if got.Header.Get("X-Custom") != "value" {
		t.Error("end-to-end header dropped")
	}
	if got.Header.Get("X-Forwarded-User") != "user@example.com" {
		t.Error("extra header not attached")
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestForwardStripsHopByHopHeaders(t *testing.T) {
	var got http.Header
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer upstream.Close()

	p := New(nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Proxy-Authorization", "secret")
	r.Header.Set("Te", "trailers")
	r.Header.Set("X-Keep", "yes")

	p.Forward(httptest.NewRecorder(), r, upstream.URL, nil, "")

	for _, h := range []string{"Proxy-Authorization", "Te"} {
		if got.Get(h) != "" {
			t.Errorf("hop-by-hop header %s forwarded", h)
		}
	}
	if got.Get("X-Keep") != "yes" {
		t.Error("end-to-end header dropped")
	}
}

func TestForwardOverridesHost(t *testing.T) {
	var gotHost string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
	}))
	defer upstream.Close()

	p := New(nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Host = "gateway.example.com"

	p.Forward(httptest.NewRecorder(), r, upstream.URL, nil, "")

	want := strings.TrimPrefix(upstream.URL, "http://")
	if gotHost != want {
		t.Errorf("host = %q, want %q", gotHost, want)
	}
}

func TestForwardUnreachableUpstream(t *testing.T) {
	p := New(nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	p.Forward(rec, r, "http://127.0.0.1:1", nil, "")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("non-JSON 502 body: %v", err)
	}
	if body["error"] != "Bad Gateway" {
		t.Errorf("error = %q", body["error"])
	}
	if body["upstream"] != "http://127.0.0.1:1" {
		t.Errorf("upstream = %q", body["upstream"])
	}
}

func TestForwardInvalidUpstreamURL(t *testing.T) {
	p := New(nil)
	rec := httptest.NewRecorder()
	p.Forward(rec, httptest.NewRequest(http.MethodGet, "/", nil), "not-a-url", nil, "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestForwardInjectsFragmentIntoHTML(t *testing.T) {
	body := strings.Repeat("<p>content</p>", 1000)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	defer upstream.Close()

	p := New(nil)
	rec := httptest.NewRecorder()
	fragment := `<div id="overlay"></div>`
	p.Forward(rec, httptest.NewRequest(http.MethodGet, "/", nil), upstream.URL, nil, fragment)

	got := rec.Body.String()
	if got != body+fragment {
		t.Error("client stream is not upstream body followed by the fragment")
	}
	if strings.Count(got, fragment) != 1 {
		t.Errorf("fragment appears %d times, want 1", strings.Count(got, fragment))
	}
	if rec.Header().Get("Content-Length") != "" {
		t.Errorf("Content-Length = %q, want absent", rec.Header().Get("Content-Length"))
	}
}

func TestForwardDoesNotInjectIntoNonHTML(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"a":1}`))
	}))
	defer upstream.Close()

	p := New(nil)
	rec := httptest.NewRecorder()
	p.Forward(rec, httptest.NewRequest(http.MethodGet, "/", nil), upstream.URL, nil, "<div></div>")

	if rec.Body.String() != `{"a":1}` {
		t.Errorf("body = %q, fragment must not touch non-HTML", rec.Body.String())
	}
}

func TestForwardPreservesStatusCode(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer upstream.Close()

	p := New(nil)
	rec := httptest.NewRecorder()
	p.Forward(rec, httptest.NewRequest(http.MethodGet, "/", nil), upstream.URL, nil, "")
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestPing(t *testing.T) {
	var sawHead bool
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			sawHead = true
		}
	}))
	defer upstream.Close()

	p := New(nil)
	if !p.Ping(context.Background(), upstream.URL, time.Second) {
		t.Error("healthy upstream reported down")
	}
	if !sawHead {
		t.Error("probe did not use HEAD")
	}
	if p.Ping(context.Background(), "http://127.0.0.1:1", 200*time.Millisecond) {
		t.Error("unreachable upstream reported healthy")
	}
}

func TestBuildTargetURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/a/b?x=1", nil)
	u, err := buildTargetURL("http://backend:3000", r.URL)
	if err != nil {
		t.Fatal(err)
	}
	if u.String() != "http://backend:3000/a/b?x=1" {
		t.Errorf("url = %q", u.String())
	}

	if _, err := buildTargetURL("backend", r.URL); err == nil {
		t.Error("expected error for URL without scheme")
	}
}

func TestCopyEndToEndHeaders(t *testing.T) {
	src := http.Header{
		"Connection":        {"keep-alive"},
		"Transfer-Encoding": {"chunked"},
		"Upgrade":           {"websocket"},
		"Content-Type":      {"text/plain"},
	}
	dst := http.Header{}
	copyEndToEndHeaders(dst, src)

	if len(dst) != 1 || dst.Get("Content-Type") != "text/plain" {
		t.Errorf("dst = %v", dst)
	}
}
