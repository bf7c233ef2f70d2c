// Package providers implements the gateway's uniform OAuth2 identity provider
// abstraction for Okta, WorkOS, Descope, Twitter and Google.
//
// Every provider exposes two operations: building the authorize redirect URL
// (pure, no side effects) and exchanging the callback code for a normalized
// Identity (network call). Providers differ only in token-endpoint auth style,
// request body encoding and userinfo field mapping; those differences live in
// one file per provider.
//
// The set of provider kinds is closed: the factory switches exhaustively over
// Kind, so adding or removing a provider is a compile-time-checked change.
package providers
