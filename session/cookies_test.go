package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessionCookieRoundTrip(t *testing.T) {
	c := NewCodec("test-secret-0123456789")

	rec := httptest.NewRecorder()
	SetSessionCookie(rec, c, testSession(), false)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	ck := cookies[0]
	if ck.Name != SessionCookie {
		t.Errorf("cookie name = %q", ck.Name)
	}
	if !ck.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if ck.SameSite != http.SameSiteLaxMode {
		t.Error("session cookie must be SameSite=Lax")
	}
	if ck.Secure {
		t.Error("secure=false must not set the Secure attribute")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(ck)
	sess, ok := FromRequest(r, c)
	if !ok {
		t.Fatal("expected cookie to verify")
	}
	if sess.Email != "user@example.com" {
		t.Errorf("email = %q", sess.Email)
	}
}

func TestSecureCookieAttribute(t *testing.T) {
	c := NewCodec("test-secret-0123456789")
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, c, testSession(), true)

	if !rec.Result().Cookies()[0].Secure {
		t.Error("secure=true must set the Secure attribute")
	}
}

func TestClearCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearCookies(rec, false)

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, want 2", len(cookies))
	}
	for _, ck := range cookies {
		if ck.MaxAge >= 0 {
			t.Errorf("cookie %q not expired (MaxAge=%d)", ck.Name, ck.MaxAge)
		}
		if ck.Value != "" {
			t.Errorf("cookie %q still carries a value", ck.Name)
		}
	}
}

func TestFromRequestMissingCookie(t *testing.T) {
	c := NewCodec("test-secret-0123456789")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := FromRequest(r, c); ok {
		t.Error("request without cookie verified")
	}
}
