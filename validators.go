package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Built-in validator references
const (
	ValidatorIsActive        = "is_active"
	ValidatorIsNotDeleted    = "is_not_deleted"
	ValidatorIsEmailVerified = "is_email_verified"
	ValidatorUserState       = "user_state"
)

// IsActive rejects inactive and soft deleted users
var IsActive = UserValidatorFunc(func(_ context.Context, u *User) (bool, error) {
	return u.IsActive && !u.IsSoftDeleted(), nil
})

// IsNotDeleted rejects soft deleted users
var IsNotDeleted = UserValidatorFunc(func(_ context.Context, u *User) (bool, error) {
	return !u.IsSoftDeleted(), nil
})

// IsEmailVerified rejects users that have not verified their email
var IsEmailVerified = UserValidatorFunc(func(_ context.Context, u *User) (bool, error) {
	return u.IsEmailVerified, nil
})

// UserState checks the shape of the record itself. Broken records come
// back as validation.Errors, which the chain treats as a rejection.
var UserState = UserValidatorFunc(func(_ context.Context, u *User) (bool, error) {
	err := validation.ValidateStruct(u,
		validation.Field(&u.PublicID, validation.Required, validation.Length(PublicIDLength, PublicIDLength)),
		validation.Field(&u.PasswordHash, validation.Required),
		validation.Field(&u.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&u.Username, validation.NilOrNotEmpty, validation.Length(1, 150)),
	)
	if err != nil {
		return false, err
	}

	if u.Email == nil && u.Username == nil {
		return false, &ValidationError{Validator: ValidatorUserState, Reason: "user has no credential"}
	}

	return true, nil
})
