// Package agent drives an environment turn by turn: it keeps the world model
// current, fires the per-turn interrupt hooks and runs the composed decision
// strategy until the episode ends.
package agent

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/joeycumines/heur/internal/blackboard"
	"github.com/joeycumines/heur/internal/env"
	"github.com/joeycumines/heur/internal/glyph"
	"github.com/joeycumines/heur/internal/grid"
	"github.com/joeycumines/heur/internal/hooks"
	"github.com/joeycumines/heur/internal/milestone"
	"github.com/joeycumines/heur/internal/predicate"
	"github.com/joeycumines/heur/internal/spatial"
	"github.com/joeycumines/heur/internal/strategy"
	"github.com/joeycumines/heur/internal/world"
)

var (
	// ErrStepDisallowed is returned by Step while probing or while a hook
	// pass is in progress.
	ErrStepDisallowed = errors.New("agent: step not allowed here")
	// ErrNotStarted is returned by Step before Start.
	ErrNotStarted = errors.New("agent: not started")
	// ErrStalled is returned by Run when the root strategy repeatedly
	// completes without acting.
	ErrStalled = errors.New("agent: no strategy can act")
)

// Agent owns the environment and every piece of per-run state. Not safe for
// concurrent use.
type Agent struct {
	env    env.Environment
	opts   Options
	logger *slog.Logger
	runID  uuid.UUID

	model   *world.Model
	spatial *spatial.Engine
	hooks   hooks.Registry
	bb      *blackboard.Blackboard
	tracker *milestone.Tracker
	planner *milestone.Planner

	predicates   *predicate.Cache
	exploreUntil *predicate.Predicate
	eatWhen      *predicate.Predicate

	obs     env.Observation
	level   *world.Level
	score   float64
	steps   int
	noSteps int
	started bool

	lastPrayer int
	prayed     bool
	panics     []PanicRecord
}

var _ strategy.Runtime = (*Agent)(nil)

// New returns an Agent over e. Call Run, or Start before driving strategies
// by hand.
func New(e env.Environment, c glyph.Classifier, opts ...Option) (*Agent, error) {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.New()
	logger = logger.With("run", runID.String())

	cache := predicate.NewCache(o.CacheSize)
	exploreUntil, err := predicate.Compile(cache, o.ExploreUntil)
	if err != nil {
		return nil, fmt.Errorf("agent: explore-until: %w", err)
	}
	eatWhen, err := predicate.Compile(cache, o.EatWhen)
	if err != nil {
		return nil, fmt.Errorf("agent: eat-when: %w", err)
	}

	a := &Agent{
		env:    e,
		opts:   o,
		logger: logger,
		runID:  runID,
		model:  world.New(c, o.Height, o.Width, world.WithZoneMarker(o.ZoneMarker)),
		spatial: spatial.New(c,
			spatial.WithSeed(o.SeedMode, o.Seed),
			spatial.WithHazards(o.Hazards),
			spatial.WithSinks(o.Sinks),
		),
		bb:           new(blackboard.Blackboard),
		tracker:      milestone.NewTracker(),
		predicates:   cache,
		exploreUntil: exploreUntil.WithLogger(logger),
		eatWhen:      eatWhen.WithLogger(logger),
	}
	a.planner = milestone.NewPlanner(a.bb, a.tracker, milestone.Behaviors{
		Descend: a.Descend(),
		Ascend:  a.Ascend(),
		Explore: a.Explore(-1),
		Search:  a.Search(),
	}, logger)
	return a, nil
}

// Hooks implements strategy.Runtime.
func (a *Agent) Hooks() *hooks.Registry { return &a.hooks }

// DisallowSteps implements strategy.Runtime.
func (a *Agent) DisallowSteps() (restore func()) {
	a.noSteps++
	var done bool
	return func() {
		if !done {
			done = true
			a.noSteps--
		}
	}
}

// Steps implements strategy.Runtime.
func (a *Agent) Steps() int { return a.steps }

// Logger implements strategy.Runtime.
func (a *Agent) Logger() *slog.Logger { return a.logger }

// RunID identifies this agent's run in logs and the summary.
func (a *Agent) RunID() uuid.UUID { return a.runID }

// Observation returns the latest observation.
func (a *Agent) Observation() env.Observation { return a.obs }

// Stats returns the latest status vector.
func (a *Agent) Stats() env.Stats { return a.obs.Stats }

// Pos returns the agent's position.
func (a *Agent) Pos() grid.Point { return a.obs.Pos }

// Score returns the accumulated reward.
func (a *Agent) Score() float64 { return a.score }

// Level returns the current level.
func (a *Agent) Level() *world.Level { return a.level }

// Model returns the world model.
func (a *Agent) Model() *world.Model { return a.model }

// Blackboard returns the facts published after every turn.
func (a *Agent) Blackboard() *blackboard.Blackboard { return a.bb }

// Tracker returns the milestone tracker.
func (a *Agent) Tracker() *milestone.Tracker { return a.tracker }

// Start resets the environment and ingests the first observation.
func (a *Agent) Start() error {
	obs, err := a.env.Reset()
	if err != nil {
		return fmt.Errorf("agent: reset: %w", err)
	}
	a.obs = obs
	a.started = true
	a.logger.Debug("started", "pos", obs.Pos, "region", world.KeyOf(obs.Stats))
	return a.update()
}

// Step applies one action and processes the resulting observation, which
// fires every registered hook. The episode ending is reported as
// strategy.ErrFinished.
func (a *Agent) Step(action env.Action) error {
	if !a.started {
		return ErrNotStarted
	}
	if a.noSteps > 0 || a.hooks.Firing() {
		return fmt.Errorf("%w: %v", ErrStepDisallowed, action)
	}
	obs, reward, done, err := a.env.Step(action)
	if err != nil {
		return fmt.Errorf("agent: step %v: %w", action, err)
	}
	a.steps++
	a.obs = obs
	a.score += reward
	if done || (a.opts.MaxSteps > 0 && a.steps >= a.opts.MaxSteps) {
		return strategy.ErrFinished
	}
	return a.update()
}

// update refreshes everything derived from the latest observation. Modal
// prompts are dismissed first; the dismissing step performs its own update.
func (a *Agent) update() error {
	a.spatial.Invalidate()

	switch {
	case a.obs.HasMore():
		return a.Step(env.Esc)
	case a.obs.HasYesNo():
		return a.EnterText("y")
	}

	lvl, err := a.model.Ingest(a.obs)
	if err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	a.level = lvl

	if a.tracker.Update(lvl.Key, a.steps, a.obs.Stats.Time) {
		a.logger.Info("milestone reached",
			"milestone", a.tracker.Current(),
			"region", lvl.Key,
			"turn", a.obs.Stats.Time)
	}
	a.publish()

	return a.hooks.Fire()
}

func (a *Agent) publish() {
	key := a.level.Key
	a.bb.Update(map[string]any{
		blackboard.KeyRegion:     key,
		blackboard.KeyBranch:     key.Branch,
		blackboard.KeyDepth:      key.Depth,
		blackboard.KeyStairsDown: a.nearest(a.model.Find(a.level, glyph.StairDown)) != nil,
		blackboard.KeyStairsUp:   a.nearest(a.model.Find(a.level, glyph.StairUp)) != nil,
		blackboard.KeyScore:      a.obs.Stats.Score,
		blackboard.KeyTurn:       a.obs.Stats.Time,
		blackboard.KeyMilestone:  a.tracker.Current(),
	})
}

// WithoutHooks runs fn with no hooks registered, so nothing can preempt it.
func (a *Agent) WithoutHooks(fn func() error) error {
	restore := a.hooks.Suspend()
	defer restore()
	return fn()
}

// WithInvariant runs fn with a hook that fails with a *strategy.Panic as
// soon as sample differs from its value on entry. After fn returns without
// error the remaining hooks are fired once, so checks deferred by the scope
// still happen.
func WithInvariant[T comparable](a *Agent, name string, sample func() T, fn func() error) error {
	want := sample()
	err := func() error {
		scope := a.hooks.Push(name, hooks.Hook{
			Name: name,
			Fire: func() error {
				if got := sample(); got != want {
					return strategy.Panicf("%s changed: %v -> %v", name, want, got)
				}
				return nil
			},
		})
		defer scope.Close()
		return fn()
	}()
	if err != nil {
		return err
	}
	return a.hooks.Fire()
}

// WithPositionGuard runs fn, panicking the strategy if the agent moves.
func (a *Agent) WithPositionGuard(fn func() error) error {
	return WithInvariant(a, "position", a.Pos, fn)
}

// glyphAt returns the currently observed glyph at p.
func (a *Agent) glyphAt(p grid.Point) glyph.Glyph { return a.obs.Glyphs.At(p) }

// category classifies the currently observed glyph at p.
func (a *Agent) category(p grid.Point) glyph.Category {
	return a.model.Classifier().Classify(a.glyphAt(p))
}

// field returns the distance field from the agent's position.
func (a *Agent) field() *spatial.Field {
	return a.spatial.Distances(a.level, a.obs.Glyphs, a.obs.Pos)
}

// nearest returns the reachable candidate closest to the agent, ties going
// to the first in the given order, or nil.
func (a *Agent) nearest(candidates []grid.Point) *grid.Point {
	if a.level == nil {
		return nil
	}
	f := a.field()
	var (
		best  grid.Point
		bestD = spatial.Unreachable
	)
	for _, p := range candidates {
		if d := f.At(p); d != spatial.Unreachable && (bestD == spatial.Unreachable || d < bestD) {
			best, bestD = p, d
		}
	}
	if bestD == spatial.Unreachable {
		return nil
	}
	return &best
}

// cells returns the positions whose current glyph satisfies match, in
// row-major order.
func (a *Agent) cells(match func(p grid.Point, c glyph.Category) bool) []grid.Point {
	var out []grid.Point
	classifier := a.model.Classifier()
	a.obs.Glyphs.Each(func(p grid.Point, g glyph.Glyph) {
		if match(p, classifier.Classify(g)) {
			out = append(out, p)
		}
	})
	return out
}
