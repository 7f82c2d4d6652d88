package auth

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix for environment overrides, e.g. AUTH_SECRET_KEY
const EnvPrefix = "AUTH_"

// Built-in component references
const (
	DatabaseAdapterBun     = "bun"
	DatabaseAdapterMemory  = "memory"
	PasswordServiceBcrypt  = "bcrypt"
	PasswordServiceArgon2  = "argon2id"
	TokenServiceJWT        = "jwt"
	ValidationServiceChain = "chain"
)

// Setting names resolved through the Registry
const (
	SettingDatabaseAdapter   = "database_adapter"
	SettingPasswordService   = "password_service"
	SettingTokenService      = "token_service"
	SettingValidationService = "validation_service"
	SettingUserValidators    = "user_validators"
)

// Secret holds a sensitive value. It never prints its content.
type Secret string

const redacted = "[REDACTED]"

// Reveal returns the raw value
func (s Secret) Reveal() string { return string(s) }

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// GoString keeps %#v from leaking the value
func (s Secret) GoString() string { return s.String() }

// MarshalJSON keeps the value out of JSON dumps
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Config holds the auth options. Build it once at startup and pass it
// by value; nothing in this package mutates it.
type Config struct {
	SecretKey                Secret         `koanf:"secret_key" json:"secret_key"`
	TokenAlgorithm           string         `koanf:"token_algorithm" json:"token_algorithm"`
	AccessTokenExpireMinutes int            `koanf:"access_token_expire_minutes" json:"access_token_expire_minutes"`
	RefreshTokenExpireDays   int            `koanf:"refresh_token_expire_days" json:"refresh_token_expire_days"`
	CredentialType           CredentialType `koanf:"credential_type" json:"credential_type"`
	UserValidators           []string       `koanf:"user_validators" json:"user_validators"`
	DatabaseAdapter          string         `koanf:"database_adapter" json:"database_adapter"`
	PasswordService          string         `koanf:"password_service" json:"password_service"`
	TokenService             string         `koanf:"token_service" json:"token_service"`
	ValidationService        string         `koanf:"validation_service" json:"validation_service"`
	OAuth2SchemeTokenURL     string         `koanf:"oauth2_scheme_token_url" json:"oauth2_scheme_token_url"`
	BcryptCost               int            `koanf:"bcrypt_cost" json:"bcrypt_cost"`
	HashWorkers              int            `koanf:"hash_workers" json:"hash_workers"`
	DatabaseURL              Secret         `koanf:"database_url" json:"database_url"`
}

// DefaultConfig returns the defaults for every option except secret_key
func DefaultConfig() Config {
	return Config{
		TokenAlgorithm:           "HS256",
		AccessTokenExpireMinutes: 30,
		RefreshTokenExpireDays:   7,
		CredentialType:           CredentialEmail,
		UserValidators:           []string{ValidatorIsActive},
		DatabaseAdapter:          DatabaseAdapterBun,
		PasswordService:          PasswordServiceBcrypt,
		TokenService:             TokenServiceJWT,
		ValidationService:        ValidationServiceChain,
		OAuth2SchemeTokenURL:     "/api/v1/auth/login",
		BcryptCost:               passwordHashCost(),
		HashWorkers:              runtime.GOMAXPROCS(0),
	}
}

// AccessTokenTTL is the default access token lifetime
func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// RefreshTokenTTL is the default refresh token lifetime
func (c Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpireDays) * 24 * time.Hour
}

// Reference returns the component reference configured for setting.
// It satisfies ReferenceSource.
func (c Config) Reference(setting string) (string, bool) {
	var v string
	switch setting {
	case SettingDatabaseAdapter:
		v = c.DatabaseAdapter
	case SettingPasswordService:
		v = c.PasswordService
	case SettingTokenService:
		v = c.TokenService
	case SettingValidationService:
		v = c.ValidationService
	default:
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// References returns the list configured for setting
func (c Config) References(setting string) ([]string, bool) {
	if setting != SettingUserValidators || c.UserValidators == nil {
		return nil, false
	}
	out := make([]string, len(c.UserValidators))
	copy(out, c.UserValidators)
	return out, true
}

// Validate checks the configuration, any failure is an ImproperlyConfiguredError
func (c Config) Validate() error {
	if c.SecretKey == "" {
		return NewImproperlyConfigured("secret_key", "settings::secret_key must be provided.", nil)
	}

	if !c.CredentialType.Valid() {
		_, err := ParseCredentialType(string(c.CredentialType))
		return err
	}

	if _, err := hmacMethod(c.TokenAlgorithm); err != nil {
		return err
	}

	err := validation.ValidateStruct(&c,
		validation.Field(&c.AccessTokenExpireMinutes, validation.Required, validation.Min(1)),
		validation.Field(&c.RefreshTokenExpireDays, validation.Required, validation.Min(1)),
		validation.Field(&c.HashWorkers, validation.Min(0)),
	)
	if err != nil {
		return NewImproperlyConfigured("", "invalid auth settings", err)
	}

	return nil
}

// LoadConfig layers defaults, an optional YAML file, AUTH_ prefixed
// environment variables and command line flags, in that order. flags may
// be nil; only flags the user actually set override earlier layers.
func LoadConfig(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := DefaultConfig()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, NewImproperlyConfigured("", fmt.Sprintf("cannot read config file %q", path), err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return cfg, NewImproperlyConfigured("", "cannot read environment", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return cfg, NewImproperlyConfigured("", "cannot read flags", err)
		}
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return cfg, NewImproperlyConfigured("", "cannot decode settings", err)
	}

	// env values arrive as a single comma separated string
	if raw, ok := k.Get(SettingUserValidators).(string); ok {
		cfg.UserValidators = splitList(raw)
	}

	cfg.CredentialType = CredentialType(strings.ToLower(string(cfg.CredentialType)))

	return cfg, nil
}

// flagKey maps --access-token-expire-minutes to access_token_expire_minutes
// and skips flags the user did not set, so flag defaults never shadow
// the file or the environment.
func flagKey(flags *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
