package milestone

import (
	"fmt"
	"log/slog"

	bt "github.com/joeycumines/go-behaviortree"
	pabtpkg "github.com/joeycumines/go-pabt"
	"github.com/joeycumines/heur/internal/blackboard"
	"github.com/joeycumines/heur/internal/strategy"
	"github.com/joeycumines/heur/internal/world"
)

// Behaviors are the agent strategies the planner can invoke.
type Behaviors struct {
	Descend strategy.Strategy
	Ascend  strategy.Strategy
	// Explore, then Search as a fallback, reveal stairs.
	Explore strategy.Strategy
	Search  strategy.Strategy
}

// Planner turns the active milestone into a PA-BT plan over the facts the
// control loop publishes on the blackboard. Not safe for concurrent use.
type Planner struct {
	bb        *blackboard.Blackboard
	tracker   *Tracker
	behaviors Behaviors
	logger    *slog.Logger

	target Target
	steps  []*step
	plan   bt.Node
}

var _ pabtpkg.IState = (*Planner)(nil)

// NewPlanner returns a Planner. A nil logger uses slog.Default.
func NewPlanner(bb *blackboard.Blackboard, tracker *Tracker, behaviors Behaviors, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{bb: bb, tracker: tracker, behaviors: behaviors, logger: logger}
}

// Variable implements pabt.IState.
func (p *Planner) Variable(key any) (any, error) {
	k, ok := key.(string)
	if !ok {
		return nil, fmt.Errorf("milestone: unsupported key type %T", key)
	}
	return p.bb.Get(k), nil
}

// Actions implements pabt.IState, returning the actions able to satisfy
// failed.
func (p *Planner) Actions(failed pabtpkg.Condition) ([]pabtpkg.IAction, error) {
	var out []pabtpkg.IAction
	for _, s := range p.steps {
		if failed == nil || s.achieves(failed) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Target returns the current region target, if any.
func (p *Planner) Target() (Target, bool) {
	region, ok := p.bb.Get(blackboard.KeyRegion).(world.Key)
	if !ok {
		return Target{}, false
	}
	return p.tracker.Target(region)
}

// Strategy exposes the plan. It intends to act while the milestone target is
// unreached; each run ticks the plan once.
func (p *Planner) Strategy() strategy.Strategy {
	return strategy.Func("milestone",
		func() (bool, error) {
			t, ok := p.Target()
			return ok && !t.Reached(p.bb.Get(blackboard.KeyRegion)), nil
		},
		func() (any, error) {
			t, ok := p.Target()
			if !ok {
				return bt.Failure, nil
			}
			if err := p.replan(t); err != nil {
				return nil, err
			}
			return p.plan.Tick()
		},
	)
}

func (p *Planner) replan(t Target) error {
	if p.plan != nil && t == p.target {
		return nil
	}
	p.target = t
	p.steps = p.buildSteps(t)
	goal := []pabtpkg.IConditions{{regionReaches(t)}}
	plan, err := pabtpkg.INew(p, goal)
	if err != nil {
		return fmt.Errorf("milestone: plan for %v: %w", t, err)
	}
	p.plan = plan.Node()
	p.logger.Debug("milestone plan",
		"milestone", p.tracker.Current(),
		"target", t,
		"stairsDown", p.bb.Bool(blackboard.KeyStairsDown),
		"stairsUp", p.bb.Bool(blackboard.KeyStairsUp),
	)
	return nil
}

// buildSteps lists the steps towards t: take known stairs, or reveal them.
// Stairs up are only considered for a branch entered from below.
func (p *Planner) buildSteps(t Target) []*step {
	reveal := bt.New(bt.Selector,
		strategy.Running(p.behaviors.Explore),
		strategy.Running(p.behaviors.Search),
	)
	var steps []*step
	if depth, _ := p.bb.Int(blackboard.KeyDepth); t.Branch == world.Sokoban && depth >= SokobanEntryDepth {
		steps = append(steps, &step{
			name:   "ascend",
			needs:  []*fact{factIs(blackboard.KeyStairsUp, true)},
			leaves: outcome{blackboard.KeyRegion, t.Key()},
			node:   strategy.Node(p.behaviors.Ascend),
		})
	}
	return append(steps,
		&step{
			name:   "descend",
			needs:  []*fact{factIs(blackboard.KeyStairsDown, true)},
			leaves: outcome{blackboard.KeyRegion, t.Key()},
			node:   strategy.Node(p.behaviors.Descend),
		},
		&step{name: "explore-down", leaves: outcome{blackboard.KeyStairsDown, true}, node: reveal},
		&step{name: "explore-up", leaves: outcome{blackboard.KeyStairsUp, true}, node: reveal},
	)
}
