package auth

import (
	"fmt"
	"sync"
)

// ReferenceSource supplies the component references configured per
// setting. Config implements it.
type ReferenceSource interface {
	Reference(setting string) (string, bool)
	References(setting string) ([]string, bool)
}

// Resolver turns configured references into registered components.
// Each setting is looked up at most once; the outcome, failures
// included, is cached for the life of the resolver.
type Resolver struct {
	source   ReferenceSource
	registry *Registry

	mu      sync.Mutex
	entries map[string]*resolution
}

type resolution struct {
	once  sync.Once
	refs  []string
	value []any
	err   error
}

// NewResolver creates a resolver. A nil registry uses DefaultRegistry.
func NewResolver(source ReferenceSource, registry *Registry) *Resolver {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Resolver{
		source:   source,
		registry: registry,
		entries:  make(map[string]*resolution),
	}
}

// Resolve returns the component configured under setting as a T
func Resolve[T any](r *Resolver, setting string) (T, error) {
	var zero T

	res := r.resolve(setting, false)
	if res.err != nil {
		return zero, res.err
	}

	out, ok := res.value[0].(T)
	if !ok {
		return zero, unresolvable(setting, res.refs[0], fmt.Errorf("component is %T, expected %T", res.value[0], zero))
	}
	return out, nil
}

// ResolveList returns the components listed under setting, in order.
// An empty list is valid.
func ResolveList[T any](r *Resolver, setting string) ([]T, error) {
	res := r.resolve(setting, true)
	if res.err != nil {
		return nil, res.err
	}

	out := make([]T, len(res.value))
	for i, v := range res.value {
		typed, ok := v.(T)
		if !ok {
			var zero T
			return nil, unresolvable(setting, res.refs[i], fmt.Errorf("component is %T, expected %T", v, zero))
		}
		out[i] = typed
	}
	return out, nil
}

// ResolveValidators resolves user_validators into named validators
func (r *Resolver) ResolveValidators() ([]NamedValidator, error) {
	validators, err := ResolveList[UserValidator](r, SettingUserValidators)
	if err != nil {
		return nil, err
	}

	res := r.resolve(SettingUserValidators, true)
	out := make([]NamedValidator, len(validators))
	for i, v := range validators {
		out[i] = NamedValidator{Name: res.refs[i], Validator: v}
	}
	return out, nil
}

func (r *Resolver) resolve(setting string, list bool) *resolution {
	key := setting
	if list {
		key += "[]"
	}

	r.mu.Lock()
	res, ok := r.entries[key]
	if !ok {
		res = &resolution{}
		r.entries[key] = res
	}
	r.mu.Unlock()

	res.once.Do(func() {
		if list {
			res.refs, res.value, res.err = r.lookupList(setting)
		} else {
			res.refs, res.value, res.err = r.lookupOne(setting)
		}
	})

	return res
}

func (r *Resolver) lookupOne(setting string) ([]string, []any, error) {
	if r.source == nil {
		return nil, nil, missingSetting(setting)
	}

	ref, ok := r.source.Reference(setting)
	if !ok || ref == "" {
		return nil, nil, missingSetting(setting)
	}

	component, ok := r.registry.Lookup(ref)
	if !ok {
		return nil, nil, unresolvable(setting, ref, nil)
	}

	return []string{ref}, []any{component}, nil
}

func (r *Resolver) lookupList(setting string) ([]string, []any, error) {
	if r.source == nil {
		return nil, nil, missingSetting(setting)
	}

	refs, ok := r.source.References(setting)
	if !ok {
		return nil, nil, missingSetting(setting)
	}

	values := make([]any, len(refs))
	for i, ref := range refs {
		component, ok := r.registry.Lookup(ref)
		if !ok {
			return nil, nil, unresolvable(setting, ref, nil)
		}
		values[i] = component
	}

	return refs, values, nil
}

func missingSetting(setting string) error {
	return NewImproperlyConfigured(setting, fmt.Sprintf("settings::%s must be provided.", setting), nil)
}

func unresolvable(setting, ref string, err error) error {
	return NewImproperlyConfigured(
		setting,
		fmt.Sprintf("settings::%s reference %q cannot be resolved", setting, ref),
		err,
	)
}
