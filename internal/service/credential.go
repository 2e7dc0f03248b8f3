package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"terminusa/internal/model"
)

// CredentialHasher turns a credential into an opaque digest and checks it later.
type CredentialHasher interface {
	Hash(credential string) (string, error)
	// Compare returns model.ErrBadCredential on mismatch.
	Compare(digest, credential string) error
}

// BcryptHasher is the production CredentialHasher.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher at the given cost; 0 selects bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(credential string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(credential), h.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Compare(digest, credential string) error {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(credential))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return model.ErrBadCredential
	}
	return fmt.Errorf("%w: %v", model.ErrBadCredential, err)
}
