// Package hooks implements the per-turn interrupt registry: a stack of
// scopes, each holding tagged hooks that fire after every turn advance.
package hooks

import (
	"errors"
	"fmt"
)

// ErrReentrant is returned by Fire when called from within a hook.
var ErrReentrant = errors.New("hooks: fire called while firing")

// Hook is a named per-turn callback. A non-nil error from Fire stops the
// pass and is returned to whoever advanced the turn.
type Hook struct {
	Name string
	Fire func() error
}

// Registry holds the active scopes. The zero value is ready to use. Not safe
// for concurrent use.
type Registry struct {
	scopes []*Scope
	nextID uint64
	firing bool
}

// Scope is a registration that must be closed exactly once, in LIFO order.
type Scope struct {
	reg    *Registry
	id     uint64
	owner  string
	hooks  []Hook
	closed bool
}

// ID returns the scope's identifier, unique within its registry.
func (s *Scope) ID() uint64 { return s.id }

// Owner returns the label passed to Push.
func (s *Scope) Owner() string { return s.owner }

// Push registers hooks in a new scope on top of the stack. Hooks fire after
// those of every earlier scope. Mutating the registry from within a hook is
// a programming error and panics.
func (r *Registry) Push(owner string, hooks ...Hook) *Scope {
	if r.firing {
		panic(fmt.Sprintf("hooks: push %q while firing", owner))
	}
	r.nextID++
	s := &Scope{reg: r, id: r.nextID, owner: owner, hooks: hooks}
	r.scopes = append(r.scopes, s)
	return s
}

// Close removes the scope. It must be the top of the stack. Calling Close
// again is a no-op.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	r := s.reg
	if r.firing {
		panic(fmt.Sprintf("hooks: close %q while firing", s.owner))
	}
	if n := len(r.scopes); n == 0 || r.scopes[n-1] != s {
		panic(fmt.Sprintf("hooks: scope %q (%d) closed out of order", s.owner, s.id))
	}
	r.scopes[len(r.scopes)-1] = nil
	r.scopes = r.scopes[:len(r.scopes)-1]
	s.closed = true
}

// Fire invokes every hook in registration order, stopping at the first
// error.
func (r *Registry) Fire() error {
	if r.firing {
		return ErrReentrant
	}
	r.firing = true
	defer func() { r.firing = false }()

	// scopes cannot change mid-pass, Push and Close panic while firing
	for _, s := range r.scopes {
		for _, h := range s.hooks {
			if err := h.Fire(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Firing reports whether a Fire pass is in progress.
func (r *Registry) Firing() bool { return r.firing }

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.scopes {
		n += len(s.hooks)
	}
	return n
}

// Names returns the registered hook names in fire order.
func (r *Registry) Names() []string {
	var names []string
	for _, s := range r.scopes {
		for _, h := range s.hooks {
			names = append(names, h.Name)
		}
	}
	return names
}

// Suspend detaches every scope, leaving the registry empty until restore
// is called. Scopes pushed in between must be closed before restore, which
// panics otherwise.
func (r *Registry) Suspend() (restore func()) {
	if r.firing {
		panic("hooks: suspend while firing")
	}
	saved := r.scopes
	r.scopes = nil
	var done bool
	return func() {
		if done {
			return
		}
		if len(r.scopes) != 0 {
			panic(fmt.Sprintf("hooks: %d scope(s) leaked from suspended region", len(r.scopes)))
		}
		r.scopes = saved
		done = true
	}
}
