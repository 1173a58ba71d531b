package session

import (
	"context"
	"errors"
	"sync"

	"certguard/pkg/requestcontext"
)

// DefaultMaxScopes bounds how many client scopes keep a manager around.
const DefaultMaxScopes = 4096

// Registry holds one Manager per client scope. Every manager shares the
// same extractor, ledger and record store, so fencing is per client while
// bookkeeping stays global.
type Registry struct {
	mu        sync.Mutex
	managers  map[string]*Manager
	build     func(scope string) *Manager
	maxScopes int
	closed    bool
}

func NewRegistry(cfg Config, extractor Extractor, recorder Recorder, records RecordSource, opts ...Option) *Registry {
	return &Registry{
		managers:  make(map[string]*Manager),
		maxScopes: DefaultMaxScopes,
		build: func(scope string) *Manager {
			scoped := append(append([]Option{}, opts...), WithScope(scope))
			return NewManager(cfg, extractor, recorder, records, scoped...)
		},
	}
}

// SetMaxScopes changes the scope bound; non-positive values restore the default.
func (r *Registry) SetMaxScopes(n int) {
	if n <= 0 {
		n = DefaultMaxScopes
	}
	r.mu.Lock()
	r.maxScopes = n
	r.mu.Unlock()
}

// For returns the manager for scope, creating it on first use.
func (r *Registry) For(scope string) (*Manager, error) {
	if scope == "" {
		scope = requestcontext.DefaultClientScope
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.forLocked(scope)
}

func (r *Registry) forLocked(scope string) (*Manager, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if m, ok := r.managers[scope]; ok {
		return m, nil
	}
	if len(r.managers) >= r.maxScopes {
		r.retireIdleLocked()
	}
	m := r.build(scope)
	r.managers[scope] = m
	return m, nil
}

// Lookup returns the manager for scope without creating one.
func (r *Registry) Lookup(scope string) (*Manager, bool) {
	if scope == "" {
		scope = requestcontext.DefaultClientScope
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.managers[scope]
	return m, ok
}

// Len reports the number of live scopes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

// Close shuts every manager down and waits for their workers.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	managers := make([]*Manager, 0, len(r.managers))
	for _, m := range r.managers {
		managers = append(managers, m)
	}
	r.mu.Unlock()

	var errs []error
	for _, m := range managers {
		if err := m.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) retireIdleLocked() {
	for scope, m := range r.managers {
		if m.retireIfIdle() {
			delete(r.managers, scope)
		}
	}
}

// Submit starts a session on the scope's manager. The manager is resolved
// and started under the registry lock so another scope cannot retire it
// in between.
func (r *Registry) Submit(ctx context.Context, scope string, files ...File) (Session, error) {
	if scope == "" {
		scope = requestcontext.DefaultClientScope
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.forLocked(scope)
	if err != nil {
		return Session{}, err
	}
	return m.Submit(ctx, files...)
}

// Reset abandons the scope's in-flight session, if any.
func (r *Registry) Reset(ctx context.Context, scope string) (Session, bool) {
	m, ok := r.Lookup(scope)
	if !ok {
		return Session{}, false
	}
	return m.Reset(ctx)
}
