package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-authflow"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))

	base := []string{"--env-file", "", "--secret-key", "cli-secret", "--bcrypt-cost", "4", "--log-level", "error"}
	cmd.SetArgs(append(args, base...))

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"hash", "token", "login", "whoami", "useradd", "migrate", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestHashCmd(t *testing.T) {
	out, err := run(t, "pw123\n", "hash")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "$2a$04$"), out)

	out, err = run(t, "", "hash", "--password", "pw123", "--password-service", "argon2id")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "$argon2id$"), out)
}

func TestHashCmd_RequiresSecret(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"hash", "--password", "x", "--env-file", ""})
	t.Setenv("AUTH_SECRET_KEY", "")

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, auth.IsImproperlyConfigured(err))
}

func TestTokenIssueVerify(t *testing.T) {
	token, err := run(t, "", "token", "issue", "--subject", "u1", "--claim", "scope=admin")
	require.NoError(t, err)
	token = strings.TrimSpace(token)

	out, err := run(t, "", "token", "verify", token)
	require.NoError(t, err)

	claims := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(out), &claims))
	assert.Equal(t, "u1", claims["sub"])
	assert.Equal(t, "access", claims["token_type"])
	assert.Equal(t, map[string]any{"scope": "admin"}, claims["extra"])

	_, err = run(t, "", "token", "verify", token, "--kind", "refresh")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestLoginFlowAgainstSQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "auth.db")
	db := []string{"--database-adapter", "bun", "--database-url", dsn}

	_, err := run(t, "", append([]string{"migrate"}, db...)...)
	require.NoError(t, err)

	out, err := run(t, "", append([]string{"useradd", "--email", "alice@example.com", "--password", "pw123"}, db...)...)
	require.NoError(t, err)
	created := auth.User{}
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Len(t, created.PublicID, auth.PublicIDLength)

	out, err = run(t, "pw123\n", append([]string{"login", "alice@example.com"}, db...)...)
	require.NoError(t, err)
	pair := auth.TokenPair{}
	require.NoError(t, json.Unmarshal([]byte(out), &pair))
	require.NotEmpty(t, pair.AccessToken)

	_, err = run(t, "wrong\n", append([]string{"login", "alice@example.com"}, db...)...)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	out, err = run(t, "", append([]string{"whoami", pair.AccessToken}, db...)...)
	require.NoError(t, err)
	me := auth.User{}
	require.NoError(t, json.Unmarshal([]byte(out), &me))
	assert.Equal(t, created.PublicID, me.PublicID)
}

func TestNewServer(t *testing.T) {
	ctx := t.Context()

	cfg := auth.DefaultConfig()
	cfg.SecretKey = "server-secret"
	cfg.BcryptCost = 4

	store := auth.NewMemoryUserStore()
	components, err := auth.Assemble(cfg, auth.WithStore(store))
	require.NoError(t, err)
	defer components.Close()

	hashed, err := components.Hasher.Hash(ctx, "pw123")
	require.NoError(t, err)
	_, err = store.Insert(ctx, &auth.User{Email: auth.StringPtr("a@example.com"), PasswordHash: hashed, IsActive: true})
	require.NoError(t, err)

	server := newServer(components.Auth, cfg)

	form := url.Values{"username": {"a@example.com"}, "password": {"pw123"}}
	req := httptest.NewRequest(http.MethodPost, cfg.OAuth2SchemeTokenURL, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := server.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	pair := auth.TokenPair{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pair))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+pair.AccessToken)
	resp, err = server.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
