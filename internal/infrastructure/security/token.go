package security

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/forgeboard/authkit/internal/application/ports"
)

const (
	// TokenPrefixLen is the number of leading token characters stored in the
	// clear. It narrows validation lookups to keys sharing the prefix; it is
	// not secret.
	TokenPrefixLen = 8
	// TokenSuffixLen is the number of trailing characters kept for display.
	TokenSuffixLen = 4

	tokenBytes = 32
)

// BearerTokenSource implements ports.TokenSource: 32 bytes from a
// cryptographically strong source, hex encoded.
type BearerTokenSource struct{}

func NewBearerTokenSource() BearerTokenSource { return BearerTokenSource{} }

func (BearerTokenSource) NewToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// Prefix returns the display/lookup prefix of a token.
func (BearerTokenSource) Prefix(token string) string {
	if len(token) < TokenPrefixLen {
		return token
	}
	return token[:TokenPrefixLen]
}

// Suffix returns the display suffix of a token.
func (BearerTokenSource) Suffix(token string) string {
	if len(token) < TokenSuffixLen {
		return token
	}
	return token[len(token)-TokenSuffixLen:]
}

var _ ports.TokenSource = BearerTokenSource{}
