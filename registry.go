package auth

import (
	"fmt"
	"sort"
	"sync"

	"github.com/uptrace/bun"
)

// Dependencies are the shared collaborators handed to every constructor
type Dependencies struct {
	Config   Config
	Logger   Logger
	Provider LoggerProvider
	Clock    Clock
	BunDB    bun.IDB
	HashPool *HashPool
}

// NamedLogger returns the logger for a component: Logger when set,
// otherwise name from Provider, otherwise a no-op logger
func (d Dependencies) NamedLogger(name string) Logger {
	_, l := ResolveLogger(name, d.Provider, d.Logger)
	return l
}

// StoreConstructor builds the user store named by database_adapter
type StoreConstructor func(deps Dependencies) (UserStore, error)

// HasherConstructor builds the hasher named by password_service
type HasherConstructor func(deps Dependencies) (PasswordHasher, error)

// TokenCodecConstructor builds the codec named by token_service
type TokenCodecConstructor func(deps Dependencies) (TokenCodec, error)

// ValidationServiceConstructor builds the service named by validation_service
// from the validators listed under user_validators
type ValidationServiceConstructor func(deps Dependencies, validators []NamedValidator) (ValidationService, error)

// Registry maps component references to constructors. Populate it at
// startup; configuration then selects entries by reference.
//
//	reg := auth.DefaultRegistry()
//	reg.Register("denylist", auth.UserValidatorFunc(checkDenylist))
type Registry struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]any)}
}

// Register adds component under ref. component must be one of the
// constructor types or a UserValidator. Registering a ref twice fails.
func (r *Registry) Register(ref string, component any) error {
	if ref == "" {
		return fmt.Errorf("registry: empty reference")
	}

	switch component.(type) {
	case StoreConstructor, HasherConstructor, TokenCodecConstructor,
		ValidationServiceConstructor, UserValidator:
	default:
		return fmt.Errorf("registry: unsupported component %T for %q", component, ref)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[ref]; exists {
		return fmt.Errorf("registry: %q already registered", ref)
	}
	r.entries[ref] = component
	return nil
}

// MustRegister is Register for static wiring, it panics on error
func (r *Registry) MustRegister(ref string, component any) {
	if err := r.Register(ref, component); err != nil {
		panic(err)
	}
}

// Lookup returns the component registered under ref
func (r *Registry) Lookup(ref string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[ref]
	return c, ok
}

// References lists the registered references, sorted
func (r *Registry) References() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for ref := range r.entries {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns a registry holding the built-in components
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(DatabaseAdapterMemory, StoreConstructor(func(Dependencies) (UserStore, error) {
		return NewMemoryUserStore(), nil
	}))

	r.MustRegister(DatabaseAdapterBun, StoreConstructor(func(d Dependencies) (UserStore, error) {
		if d.BunDB == nil {
			return nil, NewImproperlyConfigured(
				SettingDatabaseAdapter,
				fmt.Sprintf("settings::%s %q requires a database handle", SettingDatabaseAdapter, DatabaseAdapterBun),
				nil,
			)
		}
		return NewBunUserStore(d.BunDB, d.NamedLogger("store")), nil
	}))

	r.MustRegister(PasswordServiceBcrypt, HasherConstructor(func(d Dependencies) (PasswordHasher, error) {
		return NewBcryptHasher(WithBcryptCost(d.Config.BcryptCost), WithBcryptPool(d.HashPool)), nil
	}))

	r.MustRegister(PasswordServiceArgon2, HasherConstructor(func(d Dependencies) (PasswordHasher, error) {
		return NewArgon2idHasher(d.HashPool), nil
	}))

	r.MustRegister(TokenServiceJWT, TokenCodecConstructor(func(d Dependencies) (TokenCodec, error) {
		return NewJWTCodec(d.Config, WithCodecClock(d.Clock), WithCodecLogger(d.NamedLogger("tokens")))
	}))

	r.MustRegister(ValidationServiceChain, ValidationServiceConstructor(func(d Dependencies, validators []NamedValidator) (ValidationService, error) {
		return NewValidatorChain(validators...).WithLogger(d.NamedLogger("validation")), nil
	}))

	r.MustRegister(ValidatorIsActive, IsActive)
	r.MustRegister(ValidatorIsNotDeleted, IsNotDeleted)
	r.MustRegister(ValidatorIsEmailVerified, IsEmailVerified)
	r.MustRegister(ValidatorUserState, UserState)

	return r
}
