package auth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	auth "github.com/goliatone/go-authflow"
)

func hashers(pool *auth.HashPool) map[string]auth.PasswordHasher {
	return map[string]auth.PasswordHasher{
		"bcrypt":   auth.NewBcryptHasher(auth.WithBcryptCost(4), auth.WithBcryptPool(pool)),
		"argon2id": auth.NewArgon2idHasher(pool),
	}
}

func TestPasswordHasher_Properties(t *testing.T) {
	ctx := context.Background()
	pool := auth.NewHashPool(2)
	defer pool.Close()

	passwords := []string{"pw123", "securePassword123!", "ünïcödé pässwörd", " leading and trailing "}

	for name, hasher := range hashers(pool) {
		t.Run(name, func(t *testing.T) {
			for _, p := range passwords {
				first, err := hasher.Hash(ctx, p)
				require.NoError(t, err)
				second, err := hasher.Hash(ctx, p)
				require.NoError(t, err)

				assert.NotEqual(t, first, second, "hashes must be salted")
				assert.NotContains(t, first, p)

				for _, h := range []string{first, second} {
					ok, err := hasher.Verify(ctx, p, h)
					require.NoError(t, err)
					assert.True(t, ok)

					ok, err = hasher.Verify(ctx, p+"x", h)
					require.NoError(t, err)
					assert.False(t, ok)

					ok, err = hasher.Verify(ctx, "", h)
					require.NoError(t, err)
					assert.False(t, ok, "empty plaintext never matches")
				}
			}
		})
	}
}

func TestPasswordHasher_MalformedHashFailsClosed(t *testing.T) {
	ctx := context.Background()
	pool := auth.NewHashPool(1)
	defer pool.Close()

	malformed := []string{
		"",
		"plaintext",
		"$2a$04$short",
		"$argon2id$v=19$m=65536,t=1,p=4$bad",
		"$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$a2V5",
		"$argon2id$v=19$m=4294967295,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$a2V5",
	}

	for name, hasher := range hashers(pool) {
		for _, h := range malformed {
			ok, err := hasher.Verify(ctx, "pw123", h)
			assert.NoError(t, err, "%s: %q", name, h)
			assert.False(t, ok, "%s: %q", name, h)
		}
	}
}

func TestPasswordHasher_HashRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	pool := auth.NewHashPool(1)
	defer pool.Close()

	for name, hasher := range hashers(pool) {
		_, err := hasher.Hash(ctx, "")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword, name)
	}

	bcrypt := auth.NewBcryptHasher(auth.WithBcryptCost(4), auth.WithBcryptPool(pool))
	_, err := bcrypt.Hash(ctx, strings.Repeat("a", 73))
	assert.ErrorIs(t, err, auth.ErrPasswordTooLong)
}

func TestBcryptHasher_CostOption(t *testing.T) {
	ctx := context.Background()

	hashed, err := auth.NewBcryptHasher(auth.WithBcryptCost(5)).Hash(ctx, "pw123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hashed, "$2a$05$"), hashed)

	// out of range costs are ignored
	hashed, err = auth.NewBcryptHasher(auth.WithBcryptCost(4), auth.WithBcryptCost(99)).Hash(ctx, "pw123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hashed, "$2a$04$"), hashed)
}

func TestHashPool_Cancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := auth.NewHashPool(1)
	hasher := auth.NewBcryptHasher(auth.WithBcryptCost(4), auth.WithBcryptPool(pool))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := hasher.Hash(ctx, "pw123")
	assert.ErrorIs(t, err, context.Canceled)

	ok, err := hasher.Verify(ctx, "pw123", "$2a$04$anything")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)

	require.NoError(t, pool.Close())

	_, err = hasher.Hash(context.Background(), "pw123")
	assert.ErrorIs(t, err, auth.ErrHashPoolClosed)
}

func TestHashPool_ConcurrentUse(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := auth.NewHashPool(2)
	assert.Equal(t, 2, pool.Size())
	hasher := auth.NewBcryptHasher(auth.WithBcryptCost(4), auth.WithBcryptPool(pool))

	hashed, err := hasher.Hash(context.Background(), "pw123")
	require.NoError(t, err)

	results := make(chan bool, 8)
	for i := 0; i < cap(results); i++ {
		go func() {
			ok, err := hasher.Verify(context.Background(), "pw123", hashed)
			results <- ok && err == nil
		}()
	}

	for i := 0; i < cap(results); i++ {
		assert.True(t, <-results)
	}

	require.NoError(t, pool.Close())
}

func TestNewHashPool_DefaultSize(t *testing.T) {
	pool := auth.NewHashPool(0)
	defer pool.Close()
	assert.Positive(t, pool.Size())
}
