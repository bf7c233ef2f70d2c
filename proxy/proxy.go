package proxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Proxy is the gateway's reverse-proxy transport. One instance is shared by
// every request; it owns the upstream connection pool.
type Proxy struct {
	transport *http.Transport
	logger    *slog.Logger
}

// New creates a proxy transport.
func New(logger *slog.Logger) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Proxy{
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
		logger: logger,
	}
}

// Forward streams an HTTP request to the upstream and the upstream response
// back to the client. It forwards method, path+query and all end-to-end
// headers, overrides Host to the upstream's host and merges extra headers in.
//
// When injectHTML is non-empty and the upstream response is text/html, the
// Content-Length header is dropped (the length is now indeterminate), the
// upstream body is streamed through unmodified and the fragment is appended
// exactly once after it completes.
//
// An upstream connection error yields a 502 JSON body naming the upstream;
// by then no response bytes have been written, so the status is always
// deliverable. A mid-stream copy failure can only be logged.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, upstream string, extra http.Header, injectHTML string) {
	target, err := buildTargetURL(upstream, r.URL)
	if err != nil {
		p.logger.Error("Invalid upstream URL", "upstream", upstream, "error", err)
		writeBadGateway(w, upstream)
		return
	}

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		writeBadGateway(w, upstream)
		return
	}
	outReq.ContentLength = r.ContentLength
	copyEndToEndHeaders(outReq.Header, r.Header)
	for key, vals := range extra {
		outReq.Header[http.CanonicalHeaderKey(key)] = vals
	}
	outReq.Host = target.Host

	resp, err := p.transport.RoundTrip(outReq)
	if err != nil {
		p.logger.Error("Upstream request failed", "upstream", upstream, "error", err)
		writeBadGateway(w, upstream)
		return
	}
	defer resp.Body.Close()

	copyEndToEndHeaders(w.Header(), resp.Header)

	inject := injectHTML != "" && isHTML(resp.Header.Get("Content-Type"))
	if inject {
		// The fragment changes the body length.
		w.Header().Del("Content-Length")
	}

	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Headers are gone; nothing to send the client beyond closing.
		p.logger.Warn("Upstream body copy interrupted", "upstream", upstream, "error", err)
		return
	}
	if inject {
		if _, err := io.WriteString(w, injectHTML); err != nil {
			p.logger.Warn("Fragment write failed", "upstream", upstream, "error", err)
		}
	}
}

// buildTargetURL grafts the request path and query onto the upstream base.
func buildTargetURL(upstream string, reqURL *url.URL) (*url.URL, error) {
	base, err := url.Parse(upstream)
	if err != nil {
		return nil, err
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, &url.Error{Op: "parse", URL: upstream, Err: errMissingHost}
	}
	return &url.URL{
		Scheme:   base.Scheme,
		Host:     base.Host,
		Path:     reqURL.Path,
		RawQuery: reqURL.RawQuery,
	}, nil
}

var errMissingHost = errorString("upstream URL has no scheme or host")

type errorString string

func (e errorString) Error() string { return string(e) }

func isHTML(contentType string) bool {
	return strings.Contains(contentType, "text/html")
}

func writeBadGateway(w http.ResponseWriter, upstream string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":    "Bad Gateway",
		"upstream": upstream,
	})
}
