package proxy

import "net/http"

// hopByHop is the set of connection-scoped headers that must not be forwarded
// across the proxy boundary, in either direction.
var hopByHop = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailers":            {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Proxy-Connection":    {},
}

// copyEndToEndHeaders copies src into dst, dropping the hop-by-hop set.
func copyEndToEndHeaders(dst, src http.Header) {
	for key, vals := range src {
		if _, hop := hopByHop[http.CanonicalHeaderKey(key)]; hop {
			continue
		}
		for _, v := range vals {
			dst.Add(key, v)
		}
	}
}
