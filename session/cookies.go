package session

import "net/http"

// Cookie names used by the gateway.
const (
	SessionCookie = "clawgateway_session"
	StateCookie   = "clawgateway_state"
)

// SetSessionCookie seals the session payload and sets the session cookie.
// Secure is derived from the configured callback URL scheme by the caller.
func SetSessionCookie(w http.ResponseWriter, c *Codec, s Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    c.SealSession(s),
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetStateCookie seals the state payload, sets the state cookie and returns
// the CSRF value to embed in the provider redirect.
func SetStateCookie(w http.ResponseWriter, c *Codec, s State, secure bool) string {
	csrf, token := c.SealState(s)
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return csrf
}

// ClearCookies expires both gateway cookies by issuing Max-Age=0 replacements.
func ClearCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{SessionCookie, StateCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// FromRequest extracts and verifies the session cookie from a request.
// A missing, tampered or expired cookie yields (nil, false).
func FromRequest(r *http.Request, c *Codec) (*Session, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	return c.VerifySession(cookie.Value)
}

// StateFromRequest extracts and verifies the state cookie against the CSRF
// value supplied in the callback's state query parameter.
func StateFromRequest(r *http.Request, c *Codec, csrfParam string) (*State, bool) {
	cookie, err := r.Cookie(StateCookie)
	if err != nil {
		return nil, false
	}
	return c.VerifyState(cookie.Value, csrfParam)
}
