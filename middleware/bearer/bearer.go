// Package bearer provides fiber middleware and handlers that put the
// auth flows behind HTTP.
package bearer

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-authflow"
)

var (
	defaultTokenLookup = "header:" + fiber.HeaderAuthorization
	// ErrMissingOrMalformed is returned when no bearer token can be extracted
	ErrMissingOrMalformed = errors.New("missing or malformed bearer token")
)

// Resolver is the part of auth.Authenticator the middleware calls
type Resolver interface {
	ResolveCurrentUser(ctx context.Context, token string) (*auth.User, error)
	TryResolveCurrentUser(ctx context.Context, token string) (*auth.User, error)
}

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	// Authenticator is required
	Authenticator Resolver
	// ContextKey is the fiber locals key holding the *auth.User
	ContextKey string
	// TokenLookup is a comma separated list of source:name pairs, e.g.
	// header:Authorization,cookie:access_token,query:access_token
	TokenLookup string
	AuthScheme  string
	// Optional lets anonymous callers through. A missing or rejected token
	// leaves no user in the context; faults still fail the request.
	Optional bool
	// Realm is reported in the WWW-Authenticate challenge
	Realm string
}

// New returns the bearer middleware
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := GetExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := ExtractToken(c, extractors)
		if err != nil {
			if cfg.Optional {
				return cfg.SuccessHandler(c)
			}
			return cfg.ErrorHandler(c, err)
		}

		var user *auth.User
		if cfg.Optional {
			user, err = cfg.Authenticator.TryResolveCurrentUser(c.UserContext(), raw)
		} else {
			user, err = cfg.Authenticator.ResolveCurrentUser(c.UserContext(), raw)
		}
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if user != nil {
			c.Locals(cfg.ContextKey, user)
			c.SetUserContext(auth.WithContext(c.UserContext(), user))
		}

		return cfg.SuccessHandler(c)
	}
}

// GetDefaultConfig fills unset fields. It panics without an Authenticator.
func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Authenticator == nil {
		panic("AUTH: bearer middleware configuration: Authenticator is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.Realm == "" {
		cfg.Realm = "api"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler(cfg.Realm)
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

// DefaultErrorHandler answers 401 with a bearer challenge for rejections
// and missing tokens. Any other error is a fault and gets 503.
func DefaultErrorHandler(realm string) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if auth.IsUnauthorized(err) || errors.Is(err, ErrMissingOrMalformed) {
			c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="`+realm+`"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "authentication unavailable",
		})
	}
}

// UserFrom returns the user stored by the middleware
func UserFrom(c *fiber.Ctx, key ...string) (*auth.User, bool) {
	k := "user"
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	user, ok := c.Locals(k).(*auth.User)
	return user, ok && user != nil
}

// ExtractToken returns the first token any extractor finds
func ExtractToken(c *fiber.Ctx, extractors []Extractor) (string, error) {
	var raw string
	err := ErrMissingOrMalformed

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

type Extractor func(c *fiber.Ctx) (string, error)

// GetExtractors parses a lookup such as header:Authorization,cookie:jwt
func GetExtractors(tokenLookup string, authScheme string) []Extractor {
	extractors := make([]Extractor, 0)

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		name := strings.TrimSpace(parts[1])
		switch strings.TrimSpace(parts[0]) {
		case "header":
			extractors = append(extractors, fromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, fromQuery(name))
		case "param":
			extractors = append(extractors, fromParam(name))
		case "cookie":
			extractors = append(extractors, fromCookie(name))
		}
	}

	return extractors
}

// fromHeader extracts "<scheme> <token>" from the request header.
func fromHeader(header string, authScheme string) Extractor {
	authScheme = strings.TrimSpace(authScheme)
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrMissingOrMalformed
	}
}

func fromQuery(param string) Extractor {
	return func(c *fiber.Ctx) (string, error) {
		if token := c.Query(param); token != "" {
			return token, nil
		}
		return "", ErrMissingOrMalformed
	}
}

func fromParam(param string) Extractor {
	return func(c *fiber.Ctx) (string, error) {
		if token := c.Params(param); token != "" {
			return token, nil
		}
		return "", ErrMissingOrMalformed
	}
}

func fromCookie(name string) Extractor {
	return func(c *fiber.Ctx) (string, error) {
		if token := c.Cookies(name); token != "" {
			return token, nil
		}
		return "", ErrMissingOrMalformed
	}
}
