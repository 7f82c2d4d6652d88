package auth_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-authflow"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := auth.DefaultConfig()

	assert.Equal(t, "HS256", cfg.TokenAlgorithm)
	assert.Equal(t, 30, cfg.AccessTokenExpireMinutes)
	assert.Equal(t, 7, cfg.RefreshTokenExpireDays)
	assert.Equal(t, auth.CredentialEmail, cfg.CredentialType)
	assert.Equal(t, []string{auth.ValidatorIsActive}, cfg.UserValidators)
	assert.Equal(t, "/api/v1/auth/login", cfg.OAuth2SchemeTokenURL)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL())

	assert.True(t, auth.IsImproperlyConfigured(cfg.Validate()))
	cfg.SecretKey = "s"
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Layers(t *testing.T) {
	path := writeConfig(t, `
secret_key: from-file
token_algorithm: HS512
credential_type: USERNAME
refresh_token_expire_days: 14
user_validators:
  - is_not_deleted
  - user_state
database_url: postgres://auth:pw@localhost/auth
`)

	t.Run("file only", func(t *testing.T) {
		cfg, err := auth.LoadConfig(path, nil)
		require.NoError(t, err)

		assert.Equal(t, "from-file", cfg.SecretKey.Reveal())
		assert.Equal(t, "HS512", cfg.TokenAlgorithm)
		assert.Equal(t, auth.CredentialUsername, cfg.CredentialType)
		assert.Equal(t, 14, cfg.RefreshTokenExpireDays)
		assert.Equal(t, 30, cfg.AccessTokenExpireMinutes)
		assert.Equal(t, []string{"is_not_deleted", "user_state"}, cfg.UserValidators)
		assert.Equal(t, "bun", cfg.DatabaseAdapter)
		require.NoError(t, cfg.Validate())
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("AUTH_SECRET_KEY", "from-env")
		t.Setenv("AUTH_ACCESS_TOKEN_EXPIRE_MINUTES", "15")
		t.Setenv("AUTH_USER_VALIDATORS", "is_active, is_email_verified")

		cfg, err := auth.LoadConfig(path, nil)
		require.NoError(t, err)

		assert.Equal(t, "from-env", cfg.SecretKey.Reveal())
		assert.Equal(t, 15, cfg.AccessTokenExpireMinutes)
		assert.Equal(t, []string{"is_active", "is_email_verified"}, cfg.UserValidators)
		assert.Equal(t, "HS512", cfg.TokenAlgorithm)
	})

	t.Run("changed flags override env", func(t *testing.T) {
		t.Setenv("AUTH_SECRET_KEY", "from-env")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("secret-key", "", "")
		flags.String("token-algorithm", "HS256", "")
		flags.Int("access-token-expire-minutes", 30, "")
		flags.StringSlice("user-validators", nil, "")
		require.NoError(t, flags.Parse([]string{
			"--secret-key", "from-flag",
			"--access-token-expire-minutes", "5",
			"--user-validators", "is_active,user_state",
		}))

		cfg, err := auth.LoadConfig(path, flags)
		require.NoError(t, err)

		assert.Equal(t, "from-flag", cfg.SecretKey.Reveal())
		assert.Equal(t, 5, cfg.AccessTokenExpireMinutes)
		assert.Equal(t, []string{"is_active", "user_state"}, cfg.UserValidators)
		assert.Equal(t, "HS512", cfg.TokenAlgorithm, "unset flag defaults must not shadow the file")
	})
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := auth.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.True(t, auth.IsImproperlyConfigured(err))

	_, err = auth.LoadConfig(writeConfig(t, "secret_key: [unterminated"), nil)
	assert.True(t, auth.IsImproperlyConfigured(err))
}

func TestSecretIsRedacted(t *testing.T) {
	cfg := auth.DefaultConfig()
	cfg.SecretKey = "super-secret-value"
	cfg.DatabaseURL = "postgres://auth:hunter2@db/auth"

	for _, format := range []string{"%v", "%+v", "%#v", "%s"} {
		out := fmt.Sprintf(format, cfg)
		assert.NotContains(t, out, "super-secret-value", format)
		assert.NotContains(t, out, "hunter2", format)
	}

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "super-secret-value")
	assert.Contains(t, string(raw), `"secret_key":"[REDACTED]"`)

	assert.Equal(t, "", auth.Secret("").String())
	assert.Equal(t, "super-secret-value", cfg.SecretKey.Reveal())
}
