package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	h := NewArgon2Hasher(testParams())

	encoded, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.True(t, h.Verify("hunter2", encoded))
	assert.False(t, h.Verify("hunter3", encoded))
	assert.False(t, h.Verify("", encoded))
}

func TestHashIsSalted(t *testing.T) {
	h := NewArgon2Hasher(testParams())

	a, err := h.Hash("same-secret")
	require.NoError(t, err)
	b, err := h.Hash("same-secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "two hashes of the same input must differ by salt")
	assert.True(t, h.Verify("same-secret", a))
	assert.True(t, h.Verify("same-secret", b))
}

func TestVerifyMalformedHash(t *testing.T) {
	h := NewArgon2Hasher(testParams())

	for _, encoded := range []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=65536,t=3,p=2$short",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA",
	} {
		assert.False(t, h.Verify("anything", encoded), "malformed hash %q must verify false", encoded)
	}
}

func TestVerifyTamperedHash(t *testing.T) {
	h := NewArgon2Hasher(testParams())

	encoded, err := h.Hash("hunter2")
	require.NoError(t, err)
	tampered := encoded[:len(encoded)-2] + "xx"
	assert.False(t, h.Verify("hunter2", tampered))
}

func TestBearerTokenSource(t *testing.T) {
	tokens := NewBearerTokenSource()
	a, err := tokens.NewToken()
	require.NoError(t, err)
	b, err := tokens.NewToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a[:8], tokens.Prefix(a))
	assert.Equal(t, a[60:], tokens.Suffix(a))
}

func TestTokenPrefixSuffixShortInput(t *testing.T) {
	tokens := NewBearerTokenSource()
	assert.Equal(t, "abc", tokens.Prefix("abc"))
	assert.Equal(t, "abc", tokens.Suffix("abc"))
}

// testParams keeps the memory cost low so the suite stays fast.
func testParams() Argon2Params {
	return Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}
