package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"regexp"
	"testing"
)

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestGeneratePKCE(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 20; i++ {
		pkce, err := GeneratePKCE()
		if err != nil {
			t.Fatalf("GeneratePKCE() error = %v", err)
		}

		if n := len(pkce.Verifier); n < 43 || n > 128 {
			t.Errorf("verifier length = %d, want 43..128", n)
		}
		if !urlSafe.MatchString(pkce.Verifier) {
			t.Errorf("verifier %q is not base64url without padding", pkce.Verifier)
		}

		hash := sha256.Sum256([]byte(pkce.Verifier))
		want := base64.RawURLEncoding.EncodeToString(hash[:])
		if pkce.Challenge != want {
			t.Errorf("Challenge = %q, want %q", pkce.Challenge, want)
		}

		if seen[pkce.Verifier] {
			t.Fatalf("verifier repeated after %d generations", i)
		}
		seen[pkce.Verifier] = true
	}
}

func TestCodeChallenge_RFC7636Example(t *testing.T) {
	// RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	if got := CodeChallenge(verifier); got != want {
		t.Errorf("CodeChallenge() = %q, want %q", got, want)
	}
}
