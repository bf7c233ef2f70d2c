package clawgateway

import (
	"net/http"
	"strings"

	"github.com/openclaw/clawgateway/security"
	"github.com/openclaw/clawgateway/session"
)

// GatewayWSPath is the gateway's own WebSocket endpoint, proxied to the
// session's role or profile upstream with its bearer token attached. Every
// other upgrade goes to the studio upstream.
const GatewayWSPath = "/api/gateway/ws"

func isUpgradeRequest(r *http.Request) bool {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return false
	}
	for _, part := range strings.Split(r.Header.Get("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(part), "upgrade") {
			return true
		}
	}
	return false
}

// handleUpgrade proxies a WebSocket handshake. The session check happens
// before any upstream dial: an unauthenticated upgrade is answered with a raw
// 401 handshake and the socket closes without touching a backend.
func (rt *Router) handleUpgrade(w http.ResponseWriter, r *http.Request, cfg *Config) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "upgrade not supported")
		return
	}

	sess, authed := session.FromRequest(r, rt.codec(cfg))

	conn, buf, err := hj.Hijack()
	if err != nil {
		rt.logger.Error("Failed to hijack upgrade connection", "error", err)
		return
	}

	if !authed {
		conn.Write([]byte("HTTP/1.1 401 Unauthorized\r\nConnection: close\r\n\r\n"))
		conn.Close()
		return
	}

	var upstream string
	extra := ForwardHeaders(sess)
	extra.Set(security.RequestIDHeader, security.GetRequestID(r.Context()))

	if r.URL.Path == GatewayWSPath {
		target, err := TargetFor(cfg, sess)
		if err != nil {
			rt.logger.Warn("No upstream for gateway WebSocket", "user", sess.Email, "error", err)
			conn.Write([]byte("HTTP/1.1 403 Forbidden\r\nConnection: close\r\n\r\n"))
			conn.Close()
			return
		}
		upstream = target.Upstream
		if target.Token != "" {
			extra.Set("Authorization", "Bearer "+target.Token)
		}
	} else {
		upstream = cfg.StudioUpstream
		if upstream == "" {
			upstream = DefaultStudioUpstream
		}
	}

	if rt.metrics != nil {
		rt.metrics.WebSocketConnections.Add(r.Context(), 1)
	}
	rt.audit(security.AuditEvent{
		Action:    security.AuditWSConnect,
		User:      sess.Email,
		Role:      badgeOf(sess),
		Provider:  sess.Provider,
		Upstream:  upstream,
		IP:        security.ClientIP(r),
		RequestID: security.GetRequestID(r.Context()),
		Detail:    r.URL.Path,
	})

	rt.proxy.ProxyWebSocket(conn, buf.Reader, r, upstream, extra)

	rt.audit(security.AuditEvent{
		Action:    security.AuditWSDisconnect,
		User:      sess.Email,
		Upstream:  upstream,
		IP:        security.ClientIP(r),
		RequestID: security.GetRequestID(r.Context()),
		Detail:    r.URL.Path,
	})
}
