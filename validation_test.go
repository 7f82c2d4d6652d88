package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-authflow"
)

func chainOf(validators ...*countingValidator) *auth.ValidatorChain {
	named := make([]auth.NamedValidator, len(validators))
	for i, v := range validators {
		named[i] = auth.NamedValidator{Name: fmt.Sprintf("v%d", i+1), Validator: v}
	}
	return auth.NewValidatorChain(named...)
}

func TestValidatorChain_ShortCircuit(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{PublicID: "u1"}
	const n = 5

	for failAt := 1; failAt <= n+1; failAt++ {
		t.Run(fmt.Sprintf("fail at %d", failAt), func(t *testing.T) {
			validators := make([]*countingValidator, n)
			for i := range validators {
				validators[i] = &countingValidator{ok: i+1 != failAt}
			}

			ok, err := chainOf(validators...).IsUserValid(ctx, user)
			require.NoError(t, err)
			assert.Equal(t, failAt > n, ok)

			invoked := 0
			for _, v := range validators {
				invoked += v.Calls()
			}

			want := failAt
			if failAt > n {
				want = n
			}
			assert.Equal(t, want, invoked)

			for i, v := range validators {
				if i < want {
					assert.Equal(t, 1, v.Calls(), "validator %d", i+1)
				} else {
					assert.Zero(t, v.Calls(), "validator %d", i+1)
				}
			}
		})
	}
}

func TestValidatorChain_Order(t *testing.T) {
	var order []string
	record := func(name string) auth.NamedValidator {
		return auth.NamedValidator{Name: name, Validator: auth.UserValidatorFunc(func(context.Context, *auth.User) (bool, error) {
			order = append(order, name)
			return true, nil
		})}
	}

	chain := auth.NewValidatorChain(record("c"), record("a"), auth.NamedValidator{Name: "skipped"}, record("b"))
	assert.Equal(t, []string{"c", "a", "b"}, chain.Names())
	assert.Equal(t, 3, chain.Len())

	ok, err := chain.IsUserValid(context.Background(), &auth.User{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

func TestValidatorChain_Empty(t *testing.T) {
	ok, err := auth.NewValidatorChain().IsUserValid(context.Background(), &auth.User{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.NewValidatorChain().IsUserValid(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidatorChain_ErrorClassification(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{PublicID: "u1"}

	tests := []struct {
		name      string
		err       error
		wantFatal bool
	}{
		{"validation error", auth.NewValidationError("account locked"), false},
		{"wrapped validation error", fmt.Errorf("lookup: %w", auth.ErrValidation), false},
		{"ozzo errors", validation.Errors{"email": errors.New("must be a valid email address")}, false},
		{"system error", errors.New("denylist unreachable"), true},
		{"store error", auth.NewStoreError("denylist.get", errors.New("timeout")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := &countingValidator{err: tt.err}
			second := &countingValidator{ok: true}

			ok, err := chainOf(first, second).IsUserValid(ctx, user)
			assert.False(t, ok)
			assert.Zero(t, second.Calls())
			assert.Equal(t, !tt.wantFatal, auth.IsClassifiedValidationError(tt.err))

			if tt.wantFatal {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatorChain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := &countingValidator{ok: true}
	_, err := chainOf(v).IsUserValid(ctx, &auth.User{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, v.Calls())
}

func TestBuiltinValidators(t *testing.T) {
	ctx := context.Background()
	valid := &auth.User{
		PublicID:        auth.NewPublicID(),
		PasswordHash:    "$2a$04$x",
		Email:           auth.StringPtr("a@example.com"),
		IsActive:        true,
		IsEmailVerified: true,
	}

	deleted := valid.Clone()
	deleted.IsDeleted = true

	inactive := valid.Clone()
	inactive.IsActive = false

	unverified := valid.Clone()
	unverified.IsEmailVerified = false

	badEmail := valid.Clone()
	badEmail.Email = auth.StringPtr("not-an-email")

	noCredential := valid.Clone()
	noCredential.Email = nil

	tests := []struct {
		name      string
		validator auth.UserValidator
		user      *auth.User
		want      bool
	}{
		{"is_active accepts", auth.IsActive, valid, true},
		{"is_active rejects inactive", auth.IsActive, inactive, false},
		{"is_active rejects deleted", auth.IsActive, deleted, false},
		{"is_not_deleted accepts inactive", auth.IsNotDeleted, inactive, true},
		{"is_not_deleted rejects", auth.IsNotDeleted, deleted, false},
		{"is_email_verified rejects", auth.IsEmailVerified, unverified, false},
		{"user_state accepts", auth.UserState, valid, true},
		{"user_state rejects bad email", auth.UserState, badEmail, false},
		{"user_state rejects missing credential", auth.UserState, noCredential, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.validator.ValidateUser(ctx, tt.user)
			assert.Equal(t, tt.want, ok)
			if err != nil {
				assert.True(t, auth.IsClassifiedValidationError(err), err)
			}

			chained, err := auth.NewValidatorChain(auth.NamedValidator{Name: tt.name, Validator: tt.validator}).IsUserValid(ctx, tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.want, chained)
		})
	}
}
