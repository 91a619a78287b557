package auth

import "golang.org/x/crypto/bcrypt"

// PasswordHasher abstracts the slow adaptive hash used for credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify reports whether plain matches hashed. It returns false for
	// malformed stored hashes instead of erroring.
	Verify(plain, hashed string) bool
}

// BcryptHasher hashes passwords with bcrypt and a configurable cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher constructs a hasher. Costs outside bcrypt's supported
// range fall back to the default cost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

var _ PasswordHasher = (*BcryptHasher)(nil)

// Hash salts and hashes the plaintext. bcrypt embeds a random per-call salt.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify compares in constant time via bcrypt's own comparison.
func (h *BcryptHasher) Verify(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
