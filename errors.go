package auth

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUserNotFound         = "auth_user_not_found"
	TextCodeUserValidationFailed = "auth_user_validation_failed"
	TextCodeStoreUnavailable     = "auth_store_unavailable"
	TextCodeAuthUnavailable      = "auth_unavailable"
	TextCodeImproperlyConfigured = "auth_improperly_configured"
)

// ErrUnauthorized is the single rejection callers see for bad credentials,
// bad tokens and users that fail validation
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidCredentials is returned by Login when the credential pair is rejected
var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)

// ErrUserNotFound is returned by stores for a normal negative lookup
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrStoreUnavailable is matched by every persistence failure
var ErrStoreUnavailable = errors.New("user store unavailable")

// ErrAuthenticationUnavailable is matched by every fatal orchestrator failure
var ErrAuthenticationUnavailable = errors.New("authentication system unavailable")

// ErrValidation is matched by classified validator failures
var ErrValidation = errors.New("user validation failed")

// ErrImproperlyConfigured is matched by assembly time configuration failures
var ErrImproperlyConfigured = errors.New("improperly configured")


// ErrEmptyPassword is returned when hashing an empty password
var ErrEmptyPassword = errors.New("password cannot be empty")

// ErrPasswordTooLong is returned when a password exceeds the hasher input limit
var ErrPasswordTooLong = errors.New("password exceeds maximum length")

// ErrHashPoolClosed is returned when work is submitted to a closed HashPool
var ErrHashPoolClosed = errors.New("hash pool closed")

// ErrTokenInvalid is matched by every token verification failure
var ErrTokenInvalid = errors.New("token invalid")

var (
	// ErrTokenExpired the exp claim is in the past
	ErrTokenExpired = fmt.Errorf("%w: token is expired", ErrTokenInvalid)
	// ErrTokenMalformed the token could not be parsed
	ErrTokenMalformed = fmt.Errorf("%w: token is malformed", ErrTokenInvalid)
	// ErrTokenSignature the signature or algorithm did not verify
	ErrTokenSignature = fmt.Errorf("%w: token signature is invalid", ErrTokenInvalid)
	// ErrTokenKindMismatch the token_type claim is not the expected kind
	ErrTokenKindMismatch = fmt.Errorf("%w: unexpected token kind", ErrTokenInvalid)
	// ErrTokenSubjectMissing the sub claim is empty
	ErrTokenSubjectMissing = fmt.Errorf("%w: token subject missing", ErrTokenInvalid)
)

// ValidationError is a recognized problem with a user's state. The
// validator chain turns it into a plain rejection.
type ValidationError struct {
	Validator string
	Reason    string
	Err       error
}

// NewValidationError builds a ValidationError for the given reason
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	msg := ErrValidation.Error()
	if e.Validator != "" {
		msg += " [" + e.Validator + "]"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() []error {
	return causes(categorized(ErrValidation.Error(), goerrors.CategoryValidation, goerrors.CodeBadRequest,
		TextCodeUserValidationFailed, e.Err, map[string]any{"validator": e.Validator, "reason": e.Reason}), e.Err)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StoreError wraps an unexpected persistence failure. It must never be
// read as "user absent".
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err for the given store operation
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrStoreUnavailable, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return causes(categorized(ErrStoreUnavailable.Error(), goerrors.CategoryInternal, goerrors.CodeInternal,
		TextCodeStoreUnavailable, e.Err, map[string]any{"operation": e.Op}), e.Err)
}

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// UnavailableError is the fatal outcome of a flow. Transports surface it
// as a generic server error, never as an auth rejection.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrAuthenticationUnavailable, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", ErrAuthenticationUnavailable, e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() []error {
	return causes(categorized(ErrAuthenticationUnavailable.Error(), goerrors.CategoryOperation, goerrors.CodeInternal,
		TextCodeAuthUnavailable, e.Err, map[string]any{"operation": e.Op}), e.Err)
}

func (e *UnavailableError) Is(target error) bool { return target == ErrAuthenticationUnavailable }

// ImproperlyConfiguredError is an assembly time failure; it should abort
// startup instead of being handled per request.
type ImproperlyConfiguredError struct {
	Setting string
	Message string
	Err     error
}

// NewImproperlyConfigured builds an ImproperlyConfiguredError for setting
func NewImproperlyConfigured(setting, message string, err error) *ImproperlyConfiguredError {
	return &ImproperlyConfiguredError{Setting: setting, Message: message, Err: err}
}

func (e *ImproperlyConfiguredError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrImproperlyConfigured, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", ErrImproperlyConfigured, e.Message, e.Err)
}

func (e *ImproperlyConfiguredError) Unwrap() []error {
	return causes(categorized(ErrImproperlyConfigured.Error(), goerrors.CategoryBadInput, goerrors.CodeBadRequest,
		TextCodeImproperlyConfigured, e.Err, map[string]any{"setting": e.Setting}), e.Err)
}

func (e *ImproperlyConfiguredError) Is(target error) bool { return target == ErrImproperlyConfigured }

// ErrConfiguration is returned when a caller asks for an unknown token kind
var ErrConfiguration = &ImproperlyConfiguredError{Setting: "token_kind", Message: "unknown token kind"}

// IsUnauthorized reports whether err is an authentication rejection
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsUnavailable reports whether err is a fatal system failure
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrAuthenticationUnavailable) || errors.Is(err, ErrStoreUnavailable)
}

// IsImproperlyConfigured reports whether err is a configuration failure
func IsImproperlyConfigured(err error) bool {
	return errors.Is(err, ErrImproperlyConfigured)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool {
	return errors.Is(err, ErrTokenMalformed)
}

// categorized builds the go-errors view of a taxonomy error, so callers
// can use goerrors.As and the category helpers on anything this package
// returns.
func categorized(message string, category goerrors.Category, code int, textCode string, source error, meta map[string]any) *goerrors.Error {
	rich := goerrors.New(message, category).
		WithTextCode(textCode).
		WithCode(code)
	rich.Source = source
	return rich.WithMetadata(meta)
}

// causes lists the go-errors view first so goerrors.As reports the
// outermost category, then the wrapped cause
func causes(errs ...error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}
