package security

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
)

// requestIDContextKey is the context key for storing request IDs.
type requestIDContextKey struct{}

// RequestIDHeader is the HTTP header for request IDs.
const RequestIDHeader = "X-Request-ID"

// requestIDPattern validates upstream-supplied request IDs to prevent header
// injection. Allows alphanumeric, hyphens and underscores, 1-128 chars.
var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// GenerateRequestID returns a cryptographically random request ID: 16 bytes
// of entropy as a 22-character unpadded base64url string. It panics if the
// system RNG fails, which indicates a critical system-level failure.
func GenerateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand.Read failed: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// GetRequestID retrieves the request ID from the context, or "".
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return requestID
	}
	return ""
}

// EnsureRequestID resolves the request ID for an incoming request: a valid
// ID from an upstream proxy is preserved for audit trail continuity, anything
// missing or malformed is replaced with a fresh one. The ID is echoed on the
// response for end-to-end correlation.
func EnsureRequestID(w http.ResponseWriter, r *http.Request) *http.Request {
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" || !requestIDPattern.MatchString(requestID) {
		requestID = GenerateRequestID()
	}
	w.Header().Set(RequestIDHeader, requestID)
	return r.WithContext(WithRequestID(r.Context(), requestID))
}
