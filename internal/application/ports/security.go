package ports

// PasswordHasher hashes and verifies secrets (Argon2id). Verify never errors:
// a malformed stored hash yields false, since this sits on the
// security-critical path.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
}

// TokenSource mints bearer token material for API keys and derives the
// non-secret prefix/suffix stored alongside the hash.
type TokenSource interface {
	NewToken() (string, error)
	Prefix(token string) string
	Suffix(token string) string
}
