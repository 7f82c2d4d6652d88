package bearer

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-authflow"
)

// TokenIssuer is the part of auth.Authenticator the login handlers call
type TokenIssuer interface {
	Login(ctx context.Context, credential, password string) (*auth.User, error)
	IssueTokens(ctx context.Context, user *auth.User) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
}

// LoginHandler implements the OAuth2 password grant: it reads the
// username and password form fields and answers with a TokenPair.
// The username field carries whatever credential the deployment matches.
func LoginHandler(issuer TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if gt := c.FormValue("grant_type"); gt != "" && gt != "password" {
			return oauthError(c, fiber.StatusBadRequest, "unsupported_grant_type")
		}

		credential := strings.TrimSpace(c.FormValue("username"))
		password := c.FormValue("password")
		if credential == "" || password == "" {
			return oauthError(c, fiber.StatusBadRequest, "invalid_request")
		}

		user, err := issuer.Login(c.UserContext(), credential, password)
		if err != nil {
			return flowError(c, err)
		}

		pair, err := issuer.IssueTokens(c.UserContext(), user)
		if err != nil {
			return flowError(c, err)
		}

		return tokenResponse(c, pair)
	}
}

// RefreshHandler exchanges the refresh_token form field for a new pair
func RefreshHandler(issuer TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.FormValue("refresh_token"))
		if token == "" {
			return oauthError(c, fiber.StatusBadRequest, "invalid_request")
		}

		pair, err := issuer.Refresh(c.UserContext(), token)
		if err != nil {
			return flowError(c, err)
		}

		return tokenResponse(c, pair)
	}
}

// Routes mounts the login handler at tokenURL and the refresh handler
// at tokenURL/refresh
func Routes(r fiber.Router, issuer TokenIssuer, tokenURL string) {
	tokenURL = "/" + strings.Trim(tokenURL, "/")
	r.Post(tokenURL, LoginHandler(issuer))
	r.Post(tokenURL+"/refresh", RefreshHandler(issuer))
}

func tokenResponse(c *fiber.Ctx, pair *auth.TokenPair) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderPragma, "no-cache")
	return c.JSON(pair)
}

func flowError(c *fiber.Ctx, err error) error {
	if auth.IsUnauthorized(err) {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return oauthError(c, fiber.StatusUnauthorized, "invalid_grant")
	}
	return oauthError(c, fiber.StatusServiceUnavailable, "temporarily_unavailable")
}

func oauthError(c *fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}
