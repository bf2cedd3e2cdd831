package strategy

import (
	"errors"
	"fmt"

	"github.com/joeycumines/heur/internal/hooks"
)

// Pair is the result of Before. An absent result is nil.
type Pair struct {
	First, Second any
}

// Condition gates s on pred. When pred is false the probe fails immediately;
// otherwise s is delegated to unchanged.
func (s Strategy) Condition(pred func() bool) Strategy {
	return New(s.name, func() Procedure {
		var inner Procedure
		return Procedure{
			Probe: func() (bool, error) {
				if !pred() {
					return false, nil
				}
				inner = s.Begin()
				return inner.Probe()
			},
			Run: func() (any, error) { return inner.Run() },
		}
	})
}

// Before runs s, then other. It intends to act if either does. The result
// is a Pair.
func (s Strategy) Before(other Strategy) Strategy {
	return New(s.name+">"+other.name, func() Procedure {
		var (
			first, second     Procedure
			firstOK, secondOK bool
			secondProbed      bool
		)
		probeSecond := func() (bool, error) {
			second = other.Begin()
			ok, err := second.Probe()
			secondProbed, secondOK = true, ok
			return ok, err
		}
		return Procedure{
			Probe: func() (bool, error) {
				first = s.Begin()
				ok, err := first.Probe()
				if err != nil {
					return false, err
				}
				if firstOK = ok; ok {
					return true, nil
				}
				return probeSecond()
			},
			Run: func() (any, error) {
				var out Pair
				if firstOK {
					v, err := first.Run()
					if err != nil {
						return nil, err
					}
					out.First = v
				}
				if !secondProbed {
					if _, err := probeSecond(); err != nil {
						return nil, err
					}
				}
				if secondOK {
					v, err := second.Run()
					if err != nil {
						return nil, err
					}
					out.Second = v
				}
				return out, nil
			},
		}
	})
}

// Repeat re-activates s while its probe keeps succeeding. It intends to act
// if the first activation does. The result is that of the last run.
func (s Strategy) Repeat() Strategy {
	return New(s.name+"*", func() Procedure {
		var cur Procedure
		return Procedure{
			Probe: func() (bool, error) {
				cur = s.Begin()
				return cur.Probe()
			},
			Run: func() (any, error) {
				var last any
				for {
					v, err := cur.Run()
					if err != nil {
						return nil, err
					}
					last = v
					cur = s.Begin()
					ok, err := cur.Probe()
					if err != nil {
						return nil, err
					}
					if !ok {
						return last, nil
					}
				}
			},
		}
	})
}

// Until runs s, abandoning it as soon as halt holds after a turn advance.
// It does not intend to act while halt already holds.
func (s Strategy) Until(rt Runtime, halt func() bool) Strategy {
	interrupt := Func("halt", func() (bool, error) { return halt(), nil }, func() (any, error) { return nil, nil })
	node := s.Preempt(rt, []Strategy{interrupt}, false).Named(s.name + ".until")
	return New(node.name, func() Procedure {
		inner := node.Begin()
		return Procedure{
			Probe: func() (bool, error) {
				if halt() {
					return false, nil
				}
				return inner.Probe()
			},
			Run: inner.Run,
		}
	})
}

// Preempt arbitrates between s (the base) and a priority-ordered list of
// candidates. Once the base intends to act, a candidate that already intends
// to act runs in its place. While the base runs, every candidate is probed
// after each turn advance, and the first to intend to act replaces the base
// immediately. With continueAfterPreemption the node re-arbitrates after a
// candidate completes; otherwise the candidate's completion ends the node.
//
// The node intends to act only if the base does. Probing is performed with
// steps disallowed.
func (s Strategy) Preempt(rt Runtime, candidates []Strategy, continueAfterPreemption bool) Strategy {
	candidates = append([]Strategy(nil), candidates...)
	return New(s.name, func() Procedure {
		n := &preemptNode{
			rt:         rt,
			base:       s,
			candidates: candidates,
			cont:       continueAfterPreemption,
			origin:     &Origin{node: s.Name()},
		}
		return Procedure{Probe: n.probe, Run: n.run}
	})
}

type preemptNode struct {
	rt         Runtime
	base       Strategy
	candidates []Strategy
	cont       bool
	origin     *Origin

	// exactly one of these is set after a successful probe
	chosen  *Procedure
	running *Procedure
}

func (n *preemptNode) probe() (bool, error) {
	restore := n.rt.DisallowSteps()
	defer restore()

	n.chosen, n.running = nil, nil
	p := n.base.Begin()
	ok, err := p.Probe()
	if err != nil || !ok {
		return false, err
	}
	n.running = &p
	return true, nil
}

// claim replaces the probed base with the first candidate that already
// intends to act, if any.
func (n *preemptNode) claim() error {
	restore := n.rt.DisallowSteps()
	defer restore()

	for _, c := range n.candidates {
		p := c.Begin()
		ok, err := p.Probe()
		if err != nil {
			return err
		}
		if ok {
			n.chosen, n.running = &p, nil
			return nil
		}
	}
	return nil
}

func (n *preemptNode) run() (any, error) {
	var result any
	for {
		if n.chosen == nil && n.running == nil {
			ok, err := n.probe()
			if err != nil || !ok {
				return result, err
			}
		}
		if n.chosen == nil {
			if err := n.claim(); err != nil {
				return nil, err
			}
		}

		if c := n.chosen; c != nil {
			n.chosen = nil
			start := n.rt.Steps()
			v, err := c.Run()
			if err != nil {
				return nil, err
			}
			result = v
			// a candidate that acted without advancing would be chosen again forever
			if !n.cont || n.rt.Steps() == start {
				return result, nil
			}
			continue
		}

		base := n.running
		n.running = nil
		v, cs, err := n.runBase(base)
		if err != nil {
			return nil, err
		}
		if cs == nil {
			return v, nil
		}
		n.rt.Logger().Debug("preempted",
			"node", n.origin.node,
			"candidate", n.candidates[cs.Index].Name(),
			"index", cs.Index,
		)
		n.chosen = &cs.Procedure
	}
}

// runBase runs the base with the candidate hooks installed. A ChangeStrategy
// raised by this node is returned separately; everything else is an error.
func (n *preemptNode) runBase(base *Procedure) (any, *ChangeStrategy, error) {
	hs := make([]hooks.Hook, len(n.candidates))
	for i, c := range n.candidates {
		hs[i] = hooks.Hook{
			Name: fmt.Sprintf("%s[%d]:%s", n.origin.node, i, c.Name()),
			Fire: func() error {
				restore := n.rt.DisallowSteps()
				p := c.Begin()
				ok, err := p.Probe()
				restore()
				if err != nil {
					return err
				}
				if ok {
					return &ChangeStrategy{Origin: n.origin, Index: i, Procedure: p}
				}
				return nil
			},
		}
	}

	v, err := func() (any, error) {
		scope := n.rt.Hooks().Push(n.origin.node, hs...)
		defer scope.Close()
		return base.Run()
	}()

	var cs *ChangeStrategy
	if errors.As(err, &cs) && cs.Origin == n.origin {
		return nil, cs, nil
	}
	return v, nil, err
}
