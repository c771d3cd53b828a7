package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// verifierEntropyBytes is the amount of random data behind a code verifier.
// 96 bytes encode to exactly 128 base64url characters, the RFC 7636 maximum.
const verifierEntropyBytes = 96

// PKCE holds a code verifier and the S256 challenge derived from it.
// The verifier is only ever sent to the token endpoint.
type PKCE struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE creates a fresh verifier from crypto/rand and derives its challenge.
func GeneratePKCE() (PKCE, error) {
	data := make([]byte, verifierEntropyBytes)
	if _, err := rand.Read(data); err != nil {
		return PKCE{}, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(data)
	return PKCE{
		Verifier:  verifier,
		Challenge: CodeChallenge(verifier),
	}, nil
}

// CodeChallenge returns base64url-no-pad(SHA256(verifier)).
func CodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
