package auth

import (
	"context"
	"fmt"
	"strings"
)

// CredentialType selects which user field a login credential is matched against
type CredentialType string

const (
	// CredentialEmail matches the email column only
	CredentialEmail CredentialType = "email"
	// CredentialUsername matches the username column only
	CredentialUsername CredentialType = "username"
	// CredentialBoth matches either column
	CredentialBoth CredentialType = "both"
)

// Valid reports whether c is a known mode
func (c CredentialType) Valid() bool {
	switch c {
	case CredentialEmail, CredentialUsername, CredentialBoth:
		return true
	}
	return false
}

// ParseCredentialType parses a configured mode, case insensitive
func ParseCredentialType(s string) (CredentialType, error) {
	c := CredentialType(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", NewImproperlyConfigured(
			"credential_type",
			fmt.Sprintf("settings::credential_type %q must be one of email, username, both", s),
			nil,
		)
	}
	return c, nil
}

// FindByCredential looks credential up the way mode prescribes
func FindByCredential(ctx context.Context, store UserStore, mode CredentialType, credential string) (*User, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrUserNotFound
	}

	switch mode {
	case CredentialEmail:
		return store.GetByEmail(ctx, credential)
	case CredentialUsername:
		return store.GetByUsername(ctx, credential)
	case CredentialBoth:
		return store.GetByCredential(ctx, credential)
	default:
		return nil, NewImproperlyConfigured(
			"credential_type",
			fmt.Sprintf("settings::credential_type %q has no lookup", mode),
			nil,
		)
	}
}
