package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
)

var (
	// ErrInvalidImportance is returned when a check declares a level reserved
	// for validation or internal failures.
	ErrInvalidImportance = errors.New("invalid importance")
	// ErrDuplicateCheck is returned when a name is registered twice.
	ErrDuplicateCheck = errors.New("duplicate check")
)

// Registry is an append-only, insertion-ordered list of checks.
type Registry struct {
	mu     sync.RWMutex
	checks []Check
	names  map[string]struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register validates and appends a check, returning its descriptor.
func (r *Registry) Register(importance message.Importance, targetType, name string, fn Func, opts ...Option) (Check, error) {
	if !importance.Assignable() {
		return Check{}, fmt.Errorf("register %s: %w: %s is not one of %v", name, ErrInvalidImportance, importance, message.AssignableImportances())
	}
	if name == "" {
		return Check{}, errors.New("register: check name is required")
	}
	if fn == nil {
		return Check{}, fmt.Errorf("register %s: nil check function", name)
	}

	c := Check{name: name, importance: importance, targetType: targetType, fn: fn}
	for _, opt := range opts {
		opt(&c)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.names[name]; dup {
		return Check{}, fmt.Errorf("register %s: %w", name, ErrDuplicateCheck)
	}
	r.names[name] = struct{}{}
	r.checks = append(r.checks, c)

	return c, nil
}

// MustRegister is Register for startup code; it panics on error.
func (r *Registry) MustRegister(importance message.Importance, targetType, name string, fn Func, opts ...Option) Check {
	c, err := r.Register(importance, targetType, name, fn, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Checks returns the registered checks in registration order.
func (r *Registry) Checks() []Check {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Check, len(r.checks))
	copy(out, r.checks)
	return out
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.checks))
	for i, c := range r.checks {
		names[i] = c.name
	}
	return names
}
