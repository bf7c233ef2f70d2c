package providers

import "golang.org/x/oauth2"

// GeneratePKCE returns a cryptographically random PKCE code verifier and its
// SHA-256/base64url (S256) challenge. The verifier is embedded inside the
// signed state token at auth initiation and surfaced back at callback time;
// only the challenge ever reaches the provider redirect.
func GeneratePKCE() (verifier, challenge string) {
	verifier = oauth2.GenerateVerifier()
	return verifier, oauth2.S256ChallengeFromVerifier(verifier)
}
