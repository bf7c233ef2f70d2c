package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// requestTimeout bounds every provider token and userinfo call.
const requestTimeout = 10 * time.Second

// maxResponseBytes caps provider response bodies to keep a misbehaving
// provider from exhausting memory.
const maxResponseBytes = 1 << 20

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// exchangeCode is the shared code-for-token exchange used by the providers
// built on oauth2.Config. It applies the PKCE verifier when present, routes
// the call through the provider's HTTP client and normalizes failures into
// *ExchangeError.
func exchangeCode(ctx context.Context, cfg *oauth2.Config, client *http.Client, provider, code, verifier string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	tok, err := cfg.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, exchangeErr(provider, StageToken, "code exchange rejected", err)
	}
	if tok.AccessToken == "" {
		return nil, exchangeErr(provider, StageToken, "token response lacks an access token", nil)
	}
	return tok, nil
}

// getJSON performs a GET and decodes the JSON response body into v.
// A non-JSON response is an error naming the URL and a response excerpt.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, v any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, vals := range header {
		req.Header[k] = vals
	}
	return doJSON(client, req, v)
}

// postJSON performs a POST with a JSON body and decodes the JSON response into v.
func postJSON(ctx context.Context, client *http.Client, url string, payload, v any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(client, req, v)
}

func doJSON(client *http.Client, req *http.Request, v any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", req.URL, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("non-JSON response from %s: %.200s", req.URL, body)
	}
	return nil
}

func bearerHeader(accessToken string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+accessToken)
	return h
}
