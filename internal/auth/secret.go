// Package auth verifies the shared admin secret and issues the bearer tokens
// that guard the admin HTTP surface.
package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Secret is the venue's admin password, held only as a bcrypt hash.
// The zero value matches nothing.
type Secret struct {
	hash []byte
}

// NewSecret hashes plain with the given bcrypt cost (DefaultCost when cost
// is out of range). An empty plain yields a Secret that rejects every input.
func NewSecret(plain string, cost int) (*Secret, error) {
	if plain == "" {
		return &Secret{}, nil
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return nil, err
	}
	return &Secret{hash: h}, nil
}

// SecretFromHash wraps an existing bcrypt hash, e.g. one kept in the
// environment instead of the plain password.
func SecretFromHash(hash string) *Secret {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return &Secret{}
	}
	return &Secret{hash: []byte(hash)}
}

// Configured reports whether a password has been set.
func (s *Secret) Configured() bool { return s != nil && len(s.hash) > 0 }

// Verify reports whether plain matches the secret.
func (s *Secret) Verify(plain string) bool {
	if !s.Configured() || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.hash, []byte(plain)) == nil
}
