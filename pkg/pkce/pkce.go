package pkce

import (
	"crypto/rand"
	"encoding/hex"
	cv "github.com/nirasan/go-oauth-pkce-code-verifier"
	"github.com/pkg/errors"
)

const (
	// DefaultVerifierLength is the number of random bytes drawn for a verifier.
	// Each byte is hex encoded, so the verifier is twice as long.
	DefaultVerifierLength = 64

	// MethodS256 is the only challenge method sent to the provider.
	MethodS256 = "S256"
)

// Pair is a verifier together with the challenge derived from it.
type Pair struct {
	Verifier  string
	Challenge string
}

// New generates a verifier of length random bytes and derives its challenge.
func New(length int) (Pair, error) {
	v, err := GenerateVerifier(length)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		Verifier:  v,
		Challenge: DeriveChallenge(v),
	}, nil
}

// GenerateVerifier returns length bytes from crypto/rand as lowercase hex pairs.
func GenerateVerifier(length int) (string, error) {
	if length <= 0 {
		return "", errors.Errorf("verifier length must be positive, got %d", length)
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes for verifier")
	}

	return hex.EncodeToString(b), nil
}

// DeriveChallenge hashes the verifier with SHA-256 and encodes the digest
// as URL-safe base64 without padding.
func DeriveChallenge(verifier string) string {
	v := cv.CodeVerifier{Value: verifier}
	return v.CodeChallengeS256()
}
