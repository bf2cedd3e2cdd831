package milestone

import (
	bt "github.com/joeycumines/go-behaviortree"
	pabtpkg "github.com/joeycumines/go-pabt"
	"github.com/joeycumines/heur/internal/blackboard"
)

// fact is a condition on one published blackboard fact.
type fact struct {
	key   string
	holds func(value any) bool
}

var _ pabtpkg.Condition = (*fact)(nil)

// factIs holds while key is published with exactly value.
func factIs(key string, value any) *fact {
	return &fact{key: key, holds: func(v any) bool { return v == value }}
}

// regionReaches holds once the published region satisfies t.
func regionReaches(t Target) *fact {
	return &fact{key: blackboard.KeyRegion, holds: t.Reached}
}

func (f *fact) Key() any             { return f.key }
func (f *fact) Match(value any) bool { return f.holds(value) }

// outcome is the fact a step leaves behind.
type outcome struct {
	key   string
	value any
}

func (o outcome) Key() any   { return o.key }
func (o outcome) Value() any { return o.value }

// step is one plan action: a behavior that, run while every fact in needs
// holds, publishes leaves.
type step struct {
	name   string
	needs  []*fact
	leaves outcome
	node   bt.Node
}

var _ pabtpkg.IAction = (*step)(nil)

func (s *step) Conditions() []pabtpkg.IConditions {
	if len(s.needs) == 0 {
		return nil
	}
	group := make(pabtpkg.IConditions, len(s.needs))
	for i, f := range s.needs {
		group[i] = f
	}
	return []pabtpkg.IConditions{group}
}

func (s *step) Effects() pabtpkg.Effects { return pabtpkg.Effects{s.leaves} }

func (s *step) Node() bt.Node { return s.node }

// achieves reports whether the fact s leaves satisfies c.
func (s *step) achieves(c pabtpkg.Condition) bool {
	return c.Key() == any(s.leaves.key) && c.Match(s.leaves.value)
}
