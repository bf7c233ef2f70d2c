// Package session implements the stateless HMAC-signed bearer tokens carried
// in the gateway's cookies: the long-lived session token and the short-lived
// OAuth state token. Tokens are self-contained; there is no server-side store.
//
// Token format:
//
//	base64url(JSON payload) + "." + base64url(HMAC-SHA256(secret, encoded payload))
//
// A token whose signature does not verify, or whose expiry has passed, is
// indistinguishable from an absent token to callers.
package session
