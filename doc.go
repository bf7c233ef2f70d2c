// Package clawgateway implements a self-hosted authenticating reverse proxy.
// It terminates SSO login against multiple OAuth2 identity providers, maps
// the authenticated identity to an authorization role or profile, and
// forwards HTTP and WebSocket traffic to the matching backend instance,
// injecting identity headers and a UI overlay.
//
// Sessions are stateless HMAC-signed bearer cookies; there is no server-side
// session store and no multi-node coordination.
package clawgateway
