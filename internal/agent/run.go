package agent

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/joeycumines/heur/internal/config"
	"github.com/joeycumines/heur/internal/env"
	"github.com/joeycumines/heur/internal/glyph"
	"github.com/joeycumines/heur/internal/milestone"
	"github.com/joeycumines/heur/internal/strategy"
	"github.com/joeycumines/heur/internal/world"
)

// PanicRecord is a recovered *strategy.Panic.
type PanicRecord struct {
	Reason string
	Turn   int
}

// Summary describes a finished run.
type Summary struct {
	RunID      uuid.UUID
	Score      float64
	Turns      int
	Steps      int
	Panics     []PanicRecord
	Milestones []milestone.Record
	// Levels are the visited regions, ordered.
	Levels []world.Key
	// Facts is the final blackboard content.
	Facts map[string]any
	// Err is the error that ended the run, nil if the episode finished.
	Err error
}

// Root is the full decision tree. The milestone plan runs at the lowest
// priority, below nearby exploration and exploration until the predicate
// holds, then puzzle solving in the puzzle branch, gated eating, fighting
// and, highest of all, emergencies.
func (a *Agent) Root() strategy.Strategy {
	explore := a.Explore(-1).Until(a, func() bool { return a.exploreUntil.Eval(a.Stats()) })
	eat := a.Eat().
		Condition(func() bool { return a.eatWhen.Eval(a.Stats()) }).
		Condition(func() bool { return a.tracker.Current() != milestone.SolveSokoban })

	return a.milestoneBase().
		Preempt(a, []strategy.Strategy{a.Explore(1), explore}, true).
		Preempt(a, []strategy.Strategy{a.SolvePuzzle().Condition(a.inPuzzleBranch)}, true).
		Preempt(a, []strategy.Strategy{eat}, true).
		Preempt(a, []strategy.Strategy{a.Fight()}, true).
		Preempt(a, []strategy.Strategy{a.Emergency()}, true).
		Named("root")
}

// milestoneBase advances the active milestone, falling back to exploring and
// then to waiting, so the root always intends to act and its preemptions
// are always considered. Waiting does not step; the control loop counts it
// towards the stall limit.
func (a *Agent) milestoneBase() strategy.Strategy {
	options := []strategy.Strategy{
		a.planner.Strategy(),
		a.Explore(-1),
		strategy.Func("wait",
			func() (bool, error) { return true, nil },
			func() (any, error) { return nil, nil },
		),
	}
	return strategy.New("milestone", func() strategy.Procedure {
		var chosen strategy.Procedure
		return strategy.Procedure{
			Probe: func() (bool, error) {
				for _, s := range options {
					chosen = s.Begin()
					if ok, err := chosen.Probe(); err != nil || ok {
						return ok, err
					}
				}
				return false, nil
			},
			Run: func() (any, error) { return chosen.Run() },
		}
	})
}

// NewFromConfig is New with the options and the logger resolved from cfg.
// Logs are written to logs. Explicit opts are applied last.
func NewFromConfig(e env.Environment, c glyph.Classifier, cfg *config.Config, logs io.Writer, opts ...Option) (*Agent, error) {
	o, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if o.Logger, err = config.NewLogger(cfg, logs); err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	return New(e, c, append([]Option{WithOptions(o)}, opts...)...)
}

// RunEpisode loads the configuration from its default location (see
// config.GetConfigPath), builds an agent from it and plays one episode on e.
func RunEpisode(ctx context.Context, e env.Environment, c glyph.Classifier, logs io.Writer) (Summary, error) {
	cfg, err := config.Load()
	if err != nil {
		return Summary{}, err
	}
	a, err := NewFromConfig(e, c, cfg, logs)
	if err != nil {
		return Summary{}, err
	}
	if len(cfg.Warnings) != 0 {
		a.logger.Warn("config loaded with warnings", "count", len(cfg.Warnings))
	}
	return a.Run(ctx)
}

// Run plays the episode with Root until it finishes, ctx is done, or a
// fatal error occurs. Recoverable strategy panics are recorded and the root
// restarted.
func (a *Agent) Run(ctx context.Context) (Summary, error) {
	return a.RunStrategy(ctx, a.Root())
}

// RunStrategy is Run with a custom root strategy.
func (a *Agent) RunStrategy(ctx context.Context, root strategy.Strategy) (Summary, error) {
	if !a.started {
		if err := a.Start(); err != nil {
			if strategy.Classify(err) == strategy.SignalFinished {
				return a.finish(nil)
			}
			return a.finish(err)
		}
	}

	idle := 0
	for {
		if err := ctx.Err(); err != nil {
			return a.finish(err)
		}

		before := a.steps
		_, _, err := strategy.Run(root)
		switch strategy.Classify(err) {
		case strategy.SignalNone:
		case strategy.SignalFinished:
			return a.finish(nil)
		case strategy.SignalPanic:
			var p *strategy.Panic
			errors.As(err, &p)
			a.panics = append(a.panics, PanicRecord{Reason: p.Reason, Turn: a.Stats().Time})
			a.logger.Warn("strategy panic", "error", err, "turn", a.Stats().Time)
		case strategy.SignalChange:
			return a.finish(fmt.Errorf("%w: %v", strategy.ErrEscapedSignal, err))
		default:
			return a.finish(err)
		}

		if a.steps != before {
			idle = 0
		} else if idle++; idle >= a.opts.StallLimit {
			return a.finish(ErrStalled)
		}
	}
}

func (a *Agent) finish(err error) (Summary, error) {
	s := Summary{
		RunID:      a.runID,
		Score:      a.score,
		Turns:      a.Stats().Time,
		Steps:      a.steps,
		Panics:     append([]PanicRecord(nil), a.panics...),
		Milestones: a.tracker.Log(),
		Levels:     a.model.Levels(),
		Facts:      a.bb.Snapshot(),
		Err:        err,
	}
	a.logger.Debug("predicates", "cache", a.predicates)
	if err != nil {
		a.logger.Error("run failed", "error", err, "steps", s.Steps, "turns", s.Turns)
	} else {
		a.logger.Info("run finished", "score", s.Score, "steps", s.Steps, "turns", s.Turns, "panics", len(s.Panics))
	}
	return s, err
}
