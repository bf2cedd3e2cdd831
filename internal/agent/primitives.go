package agent

import (
	"fmt"
	"strings"

	"github.com/joeycumines/heur/internal/env"
	"github.com/joeycumines/heur/internal/glyph"
	"github.com/joeycumines/heur/internal/grid"
	"github.com/joeycumines/heur/internal/strategy"
)

// Direction steps towards the adjacent cell p. Whatever happens there, a
// move, an attack or nothing, is up to the environment.
func (a *Agent) Direction(p grid.Point) error {
	action, err := env.DirectionTo(a.Pos(), p)
	if err != nil {
		return err
	}
	return a.Step(action)
}

// Move steps onto the adjacent cell p, failing with a *strategy.Panic if
// the agent ends up anywhere else.
func (a *Agent) Move(p grid.Point) error {
	if err := a.Direction(p); err != nil {
		return err
	}
	if got := a.Pos(); got != p {
		return strategy.Panicf("position mismatch after move: expected %v, got %v", p, got)
	}
	return nil
}

// Attack attacks the monster at the adjacent cell p.
func (a *Agent) Attack(p grid.Point) error {
	if c := a.category(p); c != glyph.Monster {
		return fmt.Errorf("agent: fight %v: no hostile there (%v)", p, c)
	}
	return a.Direction(p)
}

// OpenDoor tries to open the closed door at the adjacent cell p, reporting
// whether it is no longer closed.
func (a *Agent) OpenDoor(p grid.Point) (bool, error) {
	if c := a.category(p); c != glyph.DoorClosed {
		return false, fmt.Errorf("agent: open %v: no closed door there (%v)", p, c)
	}
	err := a.WithPositionGuard(func() error {
		if err := a.Step(env.Open); err != nil {
			return err
		}
		return a.Direction(p)
	})
	if err != nil {
		return false, err
	}
	return a.category(p) != glyph.DoorClosed, nil
}

// Kick kicks towards the adjacent cell p.
func (a *Agent) Kick(p grid.Point) error {
	return a.WithPositionGuard(func() error {
		if err := a.Step(env.Kick); err != nil {
			return err
		}
		return a.Direction(p)
	})
}

// SearchHere searches the surroundings once, counting it against the
// agent's cell.
func (a *Agent) SearchHere() error {
	if err := a.Step(env.Search); err != nil {
		return err
	}
	a.level.RecordSearch(a.Pos())
	return nil
}

// EnterText types s one key at a time.
func (a *Agent) EnterText(s string) error {
	return a.WithPositionGuard(func() error {
		for _, r := range s {
			if err := a.Step(env.Key(r)); err != nil {
				return err
			}
		}
		return nil
	})
}

// EatHere eats whatever lies on the agent's cell, answering the prompt and
// dismissing any feedback. The key sequence cannot be preempted.
func (a *Agent) EatHere() error {
	return a.WithoutHooks(func() error {
		return a.WithPositionGuard(func() error {
			if err := a.Step(env.Eat); err != nil {
				return err
			}
			if err := a.EnterText("y"); err != nil {
				return err
			}
			if err := a.Step(env.Esc); err != nil {
				return err
			}
			return a.Step(env.Esc)
		})
	})
}

// GoDown takes the staircase down.
func (a *Agent) GoDown() error { return a.Step(env.Down) }

// GoUp takes the staircase up.
func (a *Agent) GoUp() error { return a.Step(env.Up) }

// Pray prays once. The confirmation prompt is answered by the prompt
// handling in Step.
func (a *Agent) Pray() error { return a.Step(env.Pray) }

// locked reports whether the last message says a door is locked.
func (a *Agent) locked() bool { return strings.Contains(a.obs.Message, "locked") }
