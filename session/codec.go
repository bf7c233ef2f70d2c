package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

const (
	// SessionTTL is how long a session token stays valid.
	SessionTTL = 8 * time.Hour

	// StateTTL bounds the OAuth redirect round trip.
	StateTTL = 10 * time.Minute

	// csrfEntropyBytes is the size of the random CSRF value carried in state
	// tokens, hex-encoded on the wire.
	csrfEntropyBytes = 32
)

// Session is the payload of an authenticated session token. Exactly one of
// Role and Profile is set, depending on the mode and, in dual mode, on which
// branch the login's state token recorded.
type Session struct {
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Provider string   `json:"provider"`
	Role     string   `json:"role,omitempty"`
	Profile  string   `json:"profile,omitempty"`
	Groups   []string `json:"groups"`
	Avatar   string   `json:"avatar,omitempty"`
	Exp      int64    `json:"exp"`
}

// State is the payload of an OAuth state token. It rides the redirect round
// trip as a signed cookie and carries the CSRF double-submit value, the
// provider the flow started with, an optional marketplace profile selection
// and, for PKCE providers, the code verifier. The verifier is never exposed
// as a separate client-visible value.
type State struct {
	CSRF         string `json:"csrf"`
	Provider     string `json:"provider"`
	Profile      string `json:"profile,omitempty"`
	PKCEVerifier string `json:"pkceVerifier,omitempty"`
	Exp          int64  `json:"exp"`
}

// Codec signs and verifies session and state tokens with a shared secret.
type Codec struct {
	secret []byte

	// now is overridable in tests.
	now func() time.Time
}

// NewCodec creates a token codec. The secret's length is enforced by config
// validation, not here.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// SealSession signs a session payload, stamping its expiry.
func (c *Codec) SealSession(s Session) string {
	s.Exp = c.now().Add(SessionTTL).UnixMilli()
	return c.seal(s)
}

// VerifySession verifies a session token. It returns (nil, false) for any
// token that is absent, malformed, tampered with or expired; callers cannot
// distinguish these cases.
func (c *Codec) VerifySession(token string) (*Session, bool) {
	payload, ok := c.open(token)
	if !ok {
		return nil, false
	}
	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, false
	}
	if c.expired(s.Exp) {
		return nil, false
	}
	return &s, true
}

// SealState generates a fresh CSRF value, stamps the state's expiry and signs
// it. The CSRF value is returned separately so the caller can place it in the
// provider redirect's state query parameter.
func (c *Codec) SealState(s State) (csrf, token string) {
	buf := make([]byte, csrfEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		// System RNG failure; CSRF values cannot be generated securely.
		panic("session: crypto/rand.Read failed: " + err.Error())
	}
	s.CSRF = hex.EncodeToString(buf)
	s.Exp = c.now().Add(StateTTL).UnixMilli()
	return s.CSRF, c.seal(s)
}

// VerifyState verifies a state token and requires its embedded CSRF value to
// equal the one supplied independently via the callback query parameter
// (double-submit CSRF defense).
func (c *Codec) VerifyState(token, csrfParam string) (*State, bool) {
	payload, ok := c.open(token)
	if !ok {
		return nil, false
	}
	var s State
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, false
	}
	if c.expired(s.Exp) {
		return nil, false
	}
	if csrfParam == "" || s.CSRF != csrfParam {
		return nil, false
	}
	return &s, true
}

func (c *Codec) seal(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		// Session and State marshal unconditionally.
		panic("session: marshal failed: " + err.Error())
	}
	encoded := base64.RawURLEncoding.EncodeToString(data)
	return encoded + "." + c.sign(encoded)
}

// open validates the signature and returns the decoded payload bytes.
// The signature length check fails fast and reveals only length; the content
// comparison is constant time.
func (c *Codec) open(token string) ([]byte, bool) {
	if token == "" {
		return nil, false
	}
	idx := strings.LastIndexByte(token, '.')
	if idx < 0 {
		return nil, false
	}
	encoded, sig := token[:idx], token[idx+1:]

	expected := c.sign(encoded)
	if len(sig) != len(expected) {
		return nil, false
	}
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return nil, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (c *Codec) sign(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Codec) expired(expMilli int64) bool {
	return expMilli != 0 && c.now().UnixMilli() > expMilli
}
