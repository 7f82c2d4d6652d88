package auth

import (
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// Components is the wired component set. Build it once at startup.
type Components struct {
	Config     Config
	Store      UserStore
	Hasher     PasswordHasher
	Tokens     TokenCodec
	Validation ValidationService
	Validators []NamedValidator
	Auth       *Auther
	HashPool   *HashPool

	ownsPool bool
}

// Close releases the hash pool when Assemble created it
func (c *Components) Close() error {
	if c == nil || !c.ownsPool || c.HashPool == nil {
		return nil
	}
	return c.HashPool.Close()
}

// AssembleOption overrides part of the assembly
type AssembleOption func(*assembly)

type assembly struct {
	registry   *Registry
	deps       Dependencies
	store      UserStore
	hasher     PasswordHasher
	tokens     TokenCodec
	validation ValidationService
	sink       ActivitySink
}

// WithRegistry resolves references against r instead of DefaultRegistry
func WithRegistry(r *Registry) AssembleOption {
	return func(a *assembly) { a.registry = r }
}

// WithStore skips database_adapter resolution
func WithStore(store UserStore) AssembleOption {
	return func(a *assembly) { a.store = store }
}

// WithHasher skips password_service resolution
func WithHasher(hasher PasswordHasher) AssembleOption {
	return func(a *assembly) { a.hasher = hasher }
}

// WithTokenCodec skips token_service resolution
func WithTokenCodec(codec TokenCodec) AssembleOption {
	return func(a *assembly) { a.tokens = codec }
}

// WithValidationService skips validation_service and user_validators resolution
func WithValidationService(svc ValidationService) AssembleOption {
	return func(a *assembly) { a.validation = svc }
}

// WithBunDB provides the handle used by the bun database adapter
func WithBunDB(db bun.IDB) AssembleOption {
	return func(a *assembly) { a.deps.BunDB = db }
}

// WithHashPool shares an existing pool; Components.Close leaves it open
func WithHashPool(pool *HashPool) AssembleOption {
	return func(a *assembly) { a.deps.HashPool = pool }
}

// WithLogger sets the logger for every component
func WithLogger(logger Logger) AssembleOption {
	return func(a *assembly) { a.deps.Logger = logger }
}

// WithLoggerProvider hands each component a named logger
func WithLoggerProvider(provider LoggerProvider) AssembleOption {
	return func(a *assembly) { a.deps.Provider = provider }
}

// WithClock sets the clock used by the token codec and the orchestrator
func WithClock(clock Clock) AssembleOption {
	return func(a *assembly) { a.deps.Clock = clock }
}

// WithActivitySink sets the sink that receives login and token events
func WithActivitySink(sink ActivitySink) AssembleOption {
	return func(a *assembly) { a.sink = sink }
}

// Assemble validates cfg, resolves every configured component and wires
// the orchestrator. Any failure is an ImproperlyConfiguredError.
func Assemble(cfg Config, opts ...AssembleOption) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &assembly{
		deps: Dependencies{Config: cfg, Clock: SystemClock{}},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.deps.Clock == nil {
		a.deps.Clock = SystemClock{}
	}

	out := &Components{Config: cfg}
	if a.deps.HashPool == nil {
		a.deps.HashPool = NewHashPool(cfg.HashWorkers)
		out.ownsPool = true
	}
	out.HashPool = a.deps.HashPool

	if err := a.build(out); err != nil {
		out.Close()
		return nil, err
	}

	out.Auth = NewAuthenticator(cfg, out.Store, out.Hasher, out.Tokens, out.Validation).
		WithLogger(a.deps.NamedLogger("auther")).
		WithActivitySink(a.sink).
		WithClock(a.deps.Clock)

	return out, nil
}

func (a *assembly) build(out *Components) error {
	r := NewResolver(a.deps.Config, a.registry)

	var err error

	if out.Store = a.store; out.Store == nil {
		if out.Store, err = construct(r, SettingDatabaseAdapter, func(c StoreConstructor) (UserStore, error) {
			return c(a.deps)
		}); err != nil {
			return err
		}
	}

	if out.Hasher = a.hasher; out.Hasher == nil {
		if out.Hasher, err = construct(r, SettingPasswordService, func(c HasherConstructor) (PasswordHasher, error) {
			return c(a.deps)
		}); err != nil {
			return err
		}
	}

	if out.Tokens = a.tokens; out.Tokens == nil {
		if out.Tokens, err = construct(r, SettingTokenService, func(c TokenCodecConstructor) (TokenCodec, error) {
			return c(a.deps)
		}); err != nil {
			return err
		}
	}

	if out.Validation = a.validation; out.Validation == nil {
		if out.Validators, err = r.ResolveValidators(); err != nil {
			return err
		}
		if out.Validation, err = construct(r, SettingValidationService, func(c ValidationServiceConstructor) (ValidationService, error) {
			return c(a.deps, out.Validators)
		}); err != nil {
			return err
		}
	}

	return nil
}

// construct resolves the constructor for setting and calls it. Errors
// that are not already configuration errors are wrapped as one.
func construct[C any, T any](r *Resolver, setting string, build func(C) (T, error)) (T, error) {
	var zero T

	ctor, err := Resolve[C](r, setting)
	if err != nil {
		return zero, err
	}

	component, err := build(ctor)
	if err != nil {
		if errors.Is(err, ErrImproperlyConfigured) {
			return zero, err
		}
		return zero, NewImproperlyConfigured(setting, fmt.Sprintf("settings::%s component could not be built", setting), err)
	}

	return component, nil
}
