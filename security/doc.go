// Package security provides the gateway's security primitives: the
// fixed-window per-IP rate limiter guarding the authentication surface, a
// token-bucket limiter for admin config writes, client IP extraction, request
// ID generation, security response headers and the audit event logger.
package security
