package clawgateway

import (
	"fmt"
	"html"

	"github.com/openclaw/clawgateway/session"
)

// widgetFragment builds the identity overlay injected into proxied HTML
// pages. The fragment is appended after the upstream body; browsers tolerate
// markup after </html> and the overlay attaches itself on DOMContentLoaded or
// immediately when the document is already interactive.
func widgetFragment(sess *session.Session, admin bool) string {
	name := sess.Name
	if name == "" {
		name = sess.Email
	}
	badge := sess.Role
	if badge == "" {
		badge = sess.Profile
	}

	adminLink := ""
	if admin {
		adminLink = `<a href="/admin" style="color:#9ae6b4;text-decoration:none;margin-right:.6rem">admin</a>`
	}

	return fmt.Sprintf(`
<div id="clawgateway-widget" style="position:fixed;bottom:12px;right:12px;z-index:2147483647;background:#1a1d24;color:#e6e6e6;font:13px system-ui,sans-serif;border-radius:10px;padding:.5rem .8rem;box-shadow:0 2px 12px rgba(0,0,0,.4);display:flex;align-items:center;gap:.6rem">
<span>%s</span><span style="background:#2b6cb0;border-radius:6px;padding:.1rem .4rem">%s</span>%s<form method="POST" action="/logout" style="margin:0"><button type="submit" style="background:none;border:none;color:#fc8181;cursor:pointer;font:inherit;padding:0">logout</button></form>
</div>
`, html.EscapeString(name), html.EscapeString(badge), adminLink)
}
