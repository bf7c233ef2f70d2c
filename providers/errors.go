package providers

import "fmt"

// Exchange stages, used to classify where a callback exchange failed.
const (
	StageToken    = "token"    // code-for-token exchange
	StageUserinfo = "userinfo" // identity profile fetch
)

// ExchangeError reports a failed callback exchange: the token response lacked
// an access token, the profile fetch lacked the provider's required identity
// field, or a transport/decode failure occurred. It is always recoverable by
// the caller, never process-fatal.
type ExchangeError struct {
	Provider string // provider kind string
	Stage    string // StageToken or StageUserinfo
	Detail   string // human-readable failure description
	Err      error  // underlying error, if any
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s exchange failed: %s: %v", e.Provider, e.Stage, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s %s exchange failed: %s", e.Provider, e.Stage, e.Detail)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ExchangeError) Unwrap() error { return e.Err }

func exchangeErr(provider, stage, detail string, err error) *ExchangeError {
	return &ExchangeError{Provider: provider, Stage: stage, Detail: detail, Err: err}
}
