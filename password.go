package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

// bcryptMaxLength is the bcrypt input limit in bytes
const bcryptMaxLength = 72

// BcryptHasher implements PasswordHasher using bcrypt
type BcryptHasher struct {
	cost int
	pool *HashPool
}

// BcryptOption configures a BcryptHasher
type BcryptOption func(*BcryptHasher)

// WithBcryptCost sets the cost, ignored when out of bcrypt's range
func WithBcryptCost(cost int) BcryptOption {
	return func(h *BcryptHasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// WithBcryptPool shares a HashPool between hashers
func WithBcryptPool(pool *HashPool) BcryptOption {
	return func(h *BcryptHasher) {
		if pool != nil {
			h.pool = pool
		}
	}
}

// NewBcryptHasher creates a bcrypt hasher
func NewBcryptHasher(opts ...BcryptOption) *BcryptHasher {
	h := &BcryptHasher{cost: passwordHashCost()}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.pool == nil {
		h.pool = NewHashPool(0)
	}
	return h
}

// Hash will generate a salted password hash
func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	if len(plaintext) > bcryptMaxLength {
		return "", ErrPasswordTooLong
	}

	res, err := h.pool.do(ctx, func() hashResult {
		b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		return hashResult{value: string(b), err: err}
	})
	if err != nil {
		return "", err
	}

	return res.value, res.err
}

// Verify will check the cleartext password against hashed. A malformed
// hash is a mismatch, not an error.
func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hashed string) (bool, error) {
	if plaintext == "" || hashed == "" {
		return false, nil
	}

	res, err := h.pool.do(ctx, func() hashResult {
		err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext))
		return hashResult{ok: err == nil}
	})
	if err != nil {
		return false, err
	}

	return res.ok, nil
}

var _ PasswordHasher = (*BcryptHasher)(nil)
