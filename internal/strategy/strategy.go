// Package strategy implements resumable two-phase decision procedures and
// the combinators that arbitrate between them.
//
// A Strategy is a factory of Procedure values. Each activation begins a
// fresh Procedure, whose Probe reports whether it intends to act without
// advancing the turn, and whose Run, called only after a successful Probe,
// acts to completion. Combinators compose strategies into a reactive tree in
// which higher-priority candidates interrupt a running base through per-turn
// hooks.
package strategy

import (
	"log/slog"

	"github.com/joeycumines/heur/internal/hooks"
)

// Procedure is a single activation of a Strategy. Run must only be called
// once, after Probe returned true.
type Procedure struct {
	Probe func() (bool, error)
	Run   func() (any, error)
}

// Strategy is an immutable recipe for procedures. The zero value never acts.
type Strategy struct {
	name  string
	begin func() Procedure
}

// Runtime is the agent surface the combinators depend on.
type Runtime interface {
	// Hooks returns the per-turn interrupt registry.
	Hooks() *hooks.Registry
	// DisallowSteps makes any turn advance fail until restore is called.
	// Calls nest.
	DisallowSteps() (restore func())
	// Steps returns the number of turn advances so far.
	Steps() int
	Logger() *slog.Logger
}

// New returns a Strategy whose activations are produced by begin. State
// shared between Probe and Run belongs in begin's closure.
func New(name string, begin func() Procedure) Strategy {
	return Strategy{name: name, begin: begin}
}

// Func returns a Strategy from stateless probe and run functions.
func Func(name string, probe func() (bool, error), run func() (any, error)) Strategy {
	return New(name, func() Procedure { return Procedure{Probe: probe, Run: run} })
}

// Name returns the debug name.
func (s Strategy) Name() string {
	if s.name == "" {
		return "anonymous"
	}
	return s.name
}

func (s Strategy) String() string { return s.Name() }

// Named returns a copy of s with a different debug name.
func (s Strategy) Named(name string) Strategy {
	s.name = name
	return s
}

// Begin starts a new activation.
func (s Strategy) Begin() Procedure {
	if s.begin == nil {
		return Procedure{
			Probe: func() (bool, error) { return false, nil },
			Run:   func() (any, error) { return nil, nil },
		}
	}
	return s.begin()
}

// Run activates s once: probe, then run if the probe succeeded.
func Run(s Strategy) (ran bool, result any, err error) {
	p := s.Begin()
	ok, err := p.Probe()
	if err != nil || !ok {
		return false, nil, err
	}
	result, err = p.Run()
	return true, result, err
}

// Probe activates s and reports its intent only, with steps disallowed.
func Probe(rt Runtime, s Strategy) (bool, error) {
	restore := rt.DisallowSteps()
	defer restore()
	return s.Begin().Probe()
}
