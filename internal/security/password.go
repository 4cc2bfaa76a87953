package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher is the credential service: a one-way password hash with a verify step.
type Hasher interface {
	Hash(pw string) (string, error)
	Verify(pw, hash string) (bool, error)
}

type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps cost into bcrypt's accepted range; 0 means the default of 12.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = 12
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), h.cost)
	return string(b), err
}

// Verify returns (false, nil) on a mismatch and an error only when the
// stored hash itself is unusable.
func (h *BcryptHasher) Verify(pw, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ Hasher = (*BcryptHasher)(nil)
