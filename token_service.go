package auth

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTCodec implements TokenCodec with symmetric HMAC signed JWTs
type JWTCodec struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      Clock
	logger     Logger
}

// JWTCodecOption configures a JWTCodec
type JWTCodecOption func(*JWTCodec)

// WithCodecClock sets the clock used for iat/exp and for verification
func WithCodecClock(clock Clock) JWTCodecOption {
	return func(c *JWTCodec) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithCodecLogger sets the logger
func WithCodecLogger(logger Logger) JWTCodecOption {
	return func(c *JWTCodec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewJWTCodec creates a codec from cfg. Only HMAC algorithms are
// accepted since the key is a shared secret.
func NewJWTCodec(cfg Config, opts ...JWTCodecOption) (*JWTCodec, error) {
	secret := cfg.SecretKey.Reveal()
	if secret == "" {
		return nil, NewImproperlyConfigured("secret_key", "settings::secret_key must be provided.", nil)
	}

	method, err := hmacMethod(cfg.TokenAlgorithm)
	if err != nil {
		return nil, err
	}

	c := &JWTCodec{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  cfg.AccessTokenTTL(),
		refreshTTL: cfg.RefreshTokenTTL(),
		clock:      SystemClock{},
		logger:     NopLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

func hmacMethod(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case "", jwt.SigningMethodHS256.Alg():
		return jwt.SigningMethodHS256, nil
	case jwt.SigningMethodHS384.Alg():
		return jwt.SigningMethodHS384, nil
	case jwt.SigningMethodHS512.Alg():
		return jwt.SigningMethodHS512, nil
	default:
		return nil, NewImproperlyConfigured(
			"token_algorithm",
			fmt.Sprintf("settings::token_algorithm %q is not a supported symmetric algorithm", alg),
			nil,
		)
	}
}

// DefaultTTL returns the configured lifetime for kind
func (c *JWTCodec) DefaultTTL(kind TokenKind) (time.Duration, error) {
	switch kind {
	case TokenKindAccess:
		return c.accessTTL, nil
	case TokenKindRefresh:
		return c.refreshTTL, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrConfiguration, kind)
	}
}

// Issue signs claims as a token of kind. Extra claims are copied as is,
// reserved names are always set by the codec.
func (c *JWTCodec) Issue(kind TokenKind, claims Claims, ttl time.Duration) (string, error) {
	def, err := c.DefaultTTL(kind)
	if err != nil {
		return "", err
	}

	if ttl == 0 {
		ttl = def
	}

	now := c.clock.Now()

	payload := jwt.MapClaims{}
	for k, v := range claims.Extra {
		if IsReservedClaim(k) {
			continue
		}
		payload[k] = v
	}

	id := claims.ID
	if id == "" {
		id = uuid.NewString()
	}

	payload[ClaimSubject] = claims.Subject
	payload[ClaimIssuedAt] = jwt.NewNumericDate(now)
	payload[ClaimExpiresAt] = jwt.NewNumericDate(now.Add(ttl))
	payload[ClaimTokenID] = id
	payload[ClaimTokenType] = string(kind)

	signed, err := jwt.NewWithClaims(c.method, payload).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return signed, nil
}

// IssueAccess is a shortcut for an access token with the default TTL
func (c *JWTCodec) IssueAccess(subject string) (string, error) {
	return c.Issue(TokenKindAccess, Claims{Subject: subject}, 0)
}

// IssueRefresh is a shortcut for a refresh token with the default TTL
func (c *JWTCodec) IssueRefresh(subject string) (string, error) {
	return c.Issue(TokenKindRefresh, Claims{Subject: subject}, 0)
}

// Verify parses token and checks signature, expiry, subject and kind
func (c *JWTCodec) Verify(token string, expected TokenKind) (*Claims, error) {
	if !expected.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrConfiguration, expected)
	}

	parsed, err := jwt.ParseWithClaims(token, jwt.MapClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.clock.Now),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		rejected := classifyJWTError(err)
		c.logger.Debug("token rejected", "expected_kind", expected, "reason", rejected)
		return nil, rejected
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}

	claims, err := claimsFromMap(mc)
	if err != nil {
		c.logger.Debug("token rejected", "expected_kind", expected, "reason", err)
		return nil, err
	}

	if claims.Kind != expected {
		c.logger.Debug("token rejected", "expected_kind", expected, "kind", claims.Kind)
		return nil, ErrTokenKindMismatch
	}

	return claims, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrTokenSignature
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

func claimsFromMap(mc jwt.MapClaims) (*Claims, error) {
	sub, _ := mc[ClaimSubject].(string)
	if sub == "" {
		return nil, ErrTokenSubjectMissing
	}

	kind, _ := mc[ClaimTokenType].(string)

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrTokenMalformed
	}

	claims := &Claims{
		Subject:   sub,
		Kind:      TokenKind(kind),
		ExpiresAt: exp.Time,
	}

	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}

	if jti, ok := mc[ClaimTokenID].(string); ok {
		claims.ID = jti
	}

	extra := maps.Clone(map[string]any(mc))
	for name := range reservedClaims {
		delete(extra, name)
	}
	if len(extra) > 0 {
		claims.Extra = extra
	}

	return claims, nil
}

var _ TokenCodec = (*JWTCodec)(nil)
