package auth

import (
	"context"
	"time"
)

// Authenticator holds the flows consumed by the transport layer
type Authenticator interface {
	Login(ctx context.Context, credential, password string) (*User, error)
	ResolveCurrentUser(ctx context.Context, token string) (*User, error)
	TryResolveCurrentUser(ctx context.Context, token string) (*User, error)
	IssueTokens(ctx context.Context, user *User) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// PasswordHasher hashes and verifies passwords.
//
// Verify returns (false, nil) for any mismatch, including an empty
// plaintext or a malformed hash. An error means the check could not run.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hashed string) (bool, error)
}

// TokenCodec signs and parses compact claim sets
type TokenCodec interface {
	// Issue signs claims as a token of the given kind. A zero ttl uses the
	// configured default for kind.
	Issue(kind TokenKind, claims Claims, ttl time.Duration) (string, error)
	// Verify returns the claims when signature, expiry, subject and kind
	// all check out. Any other outcome is an error matching ErrTokenInvalid.
	Verify(token string, expected TokenKind) (*Claims, error)
}

// UserValidator is a single business rule a user must satisfy
type UserValidator interface {
	ValidateUser(ctx context.Context, user *User) (bool, error)
}

// UserValidatorFunc adapts a function into a UserValidator
type UserValidatorFunc func(ctx context.Context, user *User) (bool, error)

// ValidateUser satisfies the UserValidator interface.
func (f UserValidatorFunc) ValidateUser(ctx context.Context, user *User) (bool, error) {
	return f(ctx, user)
}

// ValidationService decides whether a user may authenticate
type ValidationService interface {
	IsUserValid(ctx context.Context, user *User) (bool, error)
}

// UserStore looks users up by any of their identifiers. Negative lookups
// return ErrUserNotFound, persistence failures a *StoreError.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByPublicID(ctx context.Context, publicID string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByCredential(ctx context.Context, credential string) (*User, error)
}

// Clock abstracts time so expiry can be tested deterministically
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock
type ClockFunc func() time.Time

// Now satisfies the Clock interface.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
