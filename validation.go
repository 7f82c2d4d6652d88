package auth

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// NamedValidator is a validator plus the name it was configured under
type NamedValidator struct {
	Name      string
	Validator UserValidator
}

// ValidatorChain runs validators strictly in order and stops at the
// first one that rejects the user. An empty chain accepts every user.
//
// Classified errors (ErrValidation, ozzo validation.Errors, a nil user)
// become a plain rejection. Anything else is returned unchanged and must
// be treated as a system failure.
type ValidatorChain struct {
	validators []NamedValidator
	logger     Logger
}

// NewValidatorChain creates a chain, nil validators are dropped
func NewValidatorChain(validators ...NamedValidator) *ValidatorChain {
	filtered := make([]NamedValidator, 0, len(validators))
	for _, v := range validators {
		if v.Validator != nil {
			filtered = append(filtered, v)
		}
	}
	return &ValidatorChain{
		validators: filtered,
		logger:     NopLogger(),
	}
}

// WithLogger sets the logger used to report rejections
func (c *ValidatorChain) WithLogger(logger Logger) *ValidatorChain {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Len returns the number of validators
func (c *ValidatorChain) Len() int {
	return len(c.validators)
}

// Names returns the validator names in evaluation order
func (c *ValidatorChain) Names() []string {
	names := make([]string, len(c.validators))
	for i, v := range c.validators {
		names[i] = v.Name
	}
	return names
}

// IsUserValid satisfies ValidationService
func (c *ValidatorChain) IsUserValid(ctx context.Context, user *User) (bool, error) {
	if user == nil {
		c.logger.Warn("user validation failed", "reason", "nil user")
		return false, nil
	}

	for _, v := range c.validators {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		ok, err := v.Validator.ValidateUser(ctx, user)
		if err != nil {
			if IsClassifiedValidationError(err) {
				c.logger.Warn("user validation failed", "validator", v.Name, "user", user.PublicID, "error", err)
				return false, nil
			}
			return false, err
		}

		if !ok {
			c.logger.Warn("user validation failed", "validator", v.Name, "user", user.PublicID)
			return false, nil
		}
	}

	return true, nil
}

// IsClassifiedValidationError reports whether err describes bad user
// state rather than a system failure
func IsClassifiedValidationError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrValidation) {
		return true
	}

	var verrs validation.Errors
	return errors.As(err, &verrs)
}

var _ ValidationService = (*ValidatorChain)(nil)
