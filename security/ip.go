package security

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client IP used as the rate-limit key: the first hop
// of X-Forwarded-For when present, else the socket address.
//
// SECURITY: the first X-Forwarded-For hop is client-controlled unless every
// edge proxy in front of the gateway overwrites the header. Deploy the
// gateway behind a proxy that does, or expose it directly.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := firstForwardedHop(xff); ip != "" {
			return ip
		}
	}
	return ipFromRemoteAddr(r.RemoteAddr)
}

// firstForwardedHop returns the leftmost entry of an X-Forwarded-For list,
// or "" when it does not parse as an IP address.
func firstForwardedHop(xff string) string {
	first := xff
	if idx := strings.IndexByte(xff, ','); idx >= 0 {
		first = xff[:idx]
	}
	first = strings.TrimSpace(first)
	if net.ParseIP(first) != nil {
		return first
	}
	return ""
}

// ipFromRemoteAddr strips the port from a host:port socket address.
func ipFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
