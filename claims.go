package auth

import (
	"time"
)

// TokenKind discriminates access and refresh tokens. Kinds are never
// interchangeable.
type TokenKind string

const (
	// TokenKindAccess is presented on every request
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh is only exchanged for a new token pair
	TokenKindRefresh TokenKind = "refresh"
)

// Valid reports whether k is a known kind
func (k TokenKind) Valid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

func (k TokenKind) String() string { return string(k) }

// Wire claim names
const (
	ClaimSubject   = "sub"
	ClaimExpiresAt = "exp"
	ClaimIssuedAt  = "iat"
	ClaimTokenID   = "jti"
	ClaimTokenType = "token_type"
)

var reservedClaims = map[string]struct{}{
	ClaimSubject:   {},
	ClaimExpiresAt: {},
	ClaimIssuedAt:  {},
	ClaimTokenID:   {},
	ClaimTokenType: {},
}

// IsReservedClaim reports whether name is managed by the codec
func IsReservedClaim(name string) bool {
	_, ok := reservedClaims[name]
	return ok
}

// Claims is the decoded payload of a signed token. Extra holds the
// application claims, passed through unmodified.
type Claims struct {
	Subject   string         `json:"sub"`
	Kind      TokenKind      `json:"token_type"`
	ExpiresAt time.Time      `json:"exp"`
	IssuedAt  time.Time      `json:"iat"`
	ID        string         `json:"jti,omitempty"`
	Extra     map[string]any `json:"-"`
}

// Get returns an application claim
func (c *Claims) Get(name string) (any, bool) {
	if c == nil || c.Extra == nil {
		return nil, false
	}
	v, ok := c.Extra[name]
	return v, ok
}

// TokenPair is what a successful login hands back to the transport
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}
