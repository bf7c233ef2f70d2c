package security

import (
	"net/http"
	"strings"
)

// SetPageHeaders sets security headers on gateway-rendered pages (login and
// admin). Proxied upstream responses are not touched; header policy for the
// application belongs to the application.
func SetPageHeaders(w http.ResponseWriter, callbackURL string) {
	h := w.Header()
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

	if strings.HasPrefix(callbackURL, "https://") {
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}
}
