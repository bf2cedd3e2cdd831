package strategy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/heur/internal/hooks"
	"github.com/stretchr/testify/require"
)

var errStepDisallowed = errors.New("step disallowed")

// fakeRuntime advances an integer clock and fires hooks like the agent does.
type fakeRuntime struct {
	reg     hooks.Registry
	noSteps int
	steps   int
	log     []string
}

func (r *fakeRuntime) Hooks() *hooks.Registry { return &r.reg }
func (r *fakeRuntime) Steps() int             { return r.steps }
func (r *fakeRuntime) Logger() *slog.Logger   { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func (r *fakeRuntime) DisallowSteps() func() {
	r.noSteps++
	var done bool
	return func() {
		if !done {
			done = true
			r.noSteps--
		}
	}
}

func (r *fakeRuntime) step(label string) error {
	if r.noSteps > 0 || r.reg.Firing() {
		return errStepDisallowed
	}
	r.steps++
	r.log = append(r.log, label)
	return r.reg.Fire()
}

// walker intends to act while steps < limit, stepping n times per run.
func (r *fakeRuntime) walker(name string, n int, limit *int) Strategy {
	return Func(name,
		func() (bool, error) { return limit == nil || r.steps < *limit, nil },
		func() (any, error) {
			for i := 0; i < n; i++ {
				if err := r.step(name); err != nil {
					return nil, err
				}
			}
			return name, nil
		},
	)
}

func when(name string, rt *fakeRuntime, pred func() bool) Strategy {
	return Func(name,
		func() (bool, error) { return pred(), nil },
		func() (any, error) {
			if err := rt.step(name); err != nil {
				return nil, err
			}
			return name, nil
		},
	)
}

func constant(v bool) func() bool { return func() bool { return v } }

func intPtr(v int) *int { return &v }

func TestRun_ProbeFalse(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	ran, v, err := Run(when("never", rt, constant(false)))
	require.NoError(t, err)
	require.False(t, ran)
	require.Nil(t, v)
	require.Zero(t, rt.steps)

	ran, _, err = Run(Strategy{})
	require.NoError(t, err)
	require.False(t, ran)
}

func TestCondition(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	gate := false
	s := rt.walker("w", 1, nil).Condition(func() bool { return gate })

	ran, _, err := Run(s)
	require.NoError(t, err)
	require.False(t, ran)

	gate = true
	ran, v, err := Run(s)
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, "w", v)
	require.Equal(t, 1, rt.steps)
}

func TestBefore(t *testing.T) {
	t.Parallel()

	t.Run("first only", func(t *testing.T) {
		t.Parallel()
		rt := &fakeRuntime{}
		s := rt.walker("a", 1, nil).Before(when("b", rt, constant(false)))
		ok, err := s.Begin().Probe()
		require.NoError(t, err)
		require.True(t, ok)

		ran, v, err := Run(s)
		require.NoError(t, err)
		require.True(t, ran)
		require.Equal(t, Pair{First: "a", Second: nil}, v)
	})

	t.Run("second only", func(t *testing.T) {
		t.Parallel()
		rt := &fakeRuntime{}
		s := when("a", rt, constant(false)).Before(rt.walker("b", 2, nil))
		ran, v, err := Run(s)
		require.NoError(t, err)
		require.True(t, ran)
		require.Equal(t, Pair{First: nil, Second: "b"}, v)
		require.Equal(t, []string{"b", "b"}, rt.log)
	})

	t.Run("both", func(t *testing.T) {
		t.Parallel()
		rt := &fakeRuntime{}
		s := rt.walker("a", 1, nil).Before(rt.walker("b", 1, nil))
		_, v, err := Run(s)
		require.NoError(t, err)
		require.Equal(t, Pair{First: "a", Second: "b"}, v)
		require.Equal(t, []string{"a", "b"}, rt.log)
	})

	t.Run("neither", func(t *testing.T) {
		t.Parallel()
		rt := &fakeRuntime{}
		ran, _, err := Run(when("a", rt, constant(false)).Before(when("b", rt, constant(false))))
		require.NoError(t, err)
		require.False(t, ran)
	})
}

func TestRepeat(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	ran, v, err := Run(rt.walker("w", 1, intPtr(3)).Repeat())
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, "w", v)
	require.Equal(t, 3, rt.steps)

	ran, _, err = Run(rt.walker("w", 1, intPtr(3)).Repeat())
	require.NoError(t, err)
	require.False(t, ran, "never ran once")
}

func TestProbeNeverSteps(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	// a misbehaving probe that tries to step
	greedy := Func("greedy",
		func() (bool, error) { return true, rt.step("greedy-probe") },
		func() (any, error) { return nil, nil },
	)
	base := rt.walker("base", 3, nil)

	for name, s := range map[string]Strategy{
		"preempt":        base.Preempt(rt, []Strategy{greedy}, true),
		"greedy-base":    greedy.Preempt(rt, []Strategy{when("v", rt, constant(true))}, true),
		"until":          base.Until(rt, constant(false)),
		"nested":         greedy.Preempt(rt, []Strategy{when("x", rt, constant(false))}, true).Preempt(rt, []Strategy{base}, false),
		"condition":      base.Preempt(rt, nil, true).Condition(constant(true)),
		"repeat":         base.Preempt(rt, []Strategy{when("y", rt, constant(false))}, true).Repeat(),
		"before-preempt": when("z", rt, constant(false)).Before(greedy.Preempt(rt, []Strategy{base}, true)),
	} {
		ok, err := s.Begin().Probe()
		if name == "greedy-base" || name == "nested" || name == "before-preempt" {
			require.ErrorIs(t, err, errStepDisallowed, name)
		} else {
			require.NoError(t, err, name)
			require.True(t, ok, name)
		}
		require.Zero(t, rt.steps, name)
		require.Zero(t, rt.noSteps, name)
		require.Zero(t, rt.reg.Len(), name)
	}

	ok, err := Probe(rt, base.Preempt(rt, []Strategy{when("w", rt, constant(true))}, true))
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, rt.steps)
}

func TestPreempt_BaseCompletes(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	s := rt.walker("base", 3, nil).Preempt(rt, []Strategy{when("never", rt, constant(false))}, true)
	ran, v, err := Run(s)
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, "base", v)
	require.Equal(t, []string{"base", "base", "base"}, rt.log)
	require.Zero(t, rt.reg.Len())
}

func TestPreempt_InterruptsMidRun(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	fired := false
	alarm := Func("alarm",
		func() (bool, error) { return rt.steps >= 2 && !fired, nil },
		func() (any, error) {
			fired = true
			return "alarm", rt.step("alarm")
		},
	)

	s := rt.walker("base", 4, intPtr(100)).Preempt(rt, []Strategy{alarm}, false)
	ran, v, err := Run(s)
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, "alarm", v)
	require.Equal(t, []string{"base", "base", "alarm"}, rt.log, "base abandoned right after step 2")
	require.Zero(t, rt.reg.Len())
}

func TestPreempt_ContinueReturnsToBase(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	fired := false
	alarm := Func("alarm",
		func() (bool, error) { return rt.steps == 1 && !fired, nil },
		func() (any, error) {
			fired = true
			return "alarm", rt.step("alarm")
		},
	)
	// the base intends to act until 5 steps have happened in total
	s := rt.walker("base", 2, intPtr(5)).Preempt(rt, []Strategy{alarm}, true)
	_, _, err := Run(s)
	require.NoError(t, err)
	require.Equal(t, []string{"base", "alarm", "base", "base"}, rt.log)
}

func TestPreempt_DeterministicPriority(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	var chosen []string
	candidate := func(name string, fire func() bool) Strategy {
		return Func(name,
			func() (bool, error) { return fire(), nil },
			func() (any, error) {
				chosen = append(chosen, name)
				return name, nil
			},
		)
	}
	afterTwo := func() bool { return rt.steps >= 2 }

	s := rt.walker("base", 5, nil).Preempt(rt, []Strategy{
		candidate("c0", constant(false)),
		candidate("c1", afterTwo),
		candidate("c2", afterTwo),
	}, false)

	_, v, err := Run(s)
	require.NoError(t, err)
	require.Equal(t, "c1", v)
	require.Equal(t, []string{"c1"}, chosen)
	require.Equal(t, 2, rt.steps)
}

func TestPreempt_CandidateAlreadyActive(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	s := rt.walker("base", 1, intPtr(3)).Preempt(rt, []Strategy{
		when("c", rt, func() bool { return rt.steps < 2 }),
	}, true)

	ran, v, err := Run(s)
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, "base", v)
	require.Equal(t, []string{"c", "c", "base"}, rt.log)
}

func TestPreempt_IdleBaseIgnoresCandidates(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	probed := 0
	eager := Func("eager",
		func() (bool, error) {
			probed++
			return true, nil
		},
		func() (any, error) { return "eager", rt.step("eager") },
	)
	s := when("base", rt, constant(false)).Preempt(rt, []Strategy{eager}, true)

	ok, err := Probe(rt, s)
	require.NoError(t, err)
	require.False(t, ok)

	ran, v, err := Run(s)
	require.NoError(t, err)
	require.False(t, ran)
	require.Nil(t, v)
	require.Empty(t, rt.log)
	require.Zero(t, probed)

	// an idle node is skipped by its parents
	ran, v, err = Run(s.Before(when("next", rt, constant(true))))
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, Pair{Second: "next"}, v)
	require.Equal(t, []string{"next"}, rt.log)
	require.Zero(t, probed)
}

func TestPreempt_IdleCandidateStops(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	calls := 0
	idle := Func("idle",
		func() (bool, error) { return true, nil },
		func() (any, error) {
			calls++
			return nil, nil
		},
	)
	_, _, err := Run(rt.walker("base", 1, nil).Preempt(rt, []Strategy{idle}, true))
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestPreempt_NestedSignalsRouteToOwner(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	inner := rt.walker("base", 10, nil).Preempt(rt, []Strategy{
		when("inner", rt, func() bool { return rt.steps == 5 }),
	}, false)
	outer := inner.Preempt(rt, []Strategy{
		when("outer", rt, func() bool { return rt.steps == 3 }),
	}, false)

	_, v, err := Run(outer)
	require.NoError(t, err)
	require.Equal(t, "outer", v)
	require.Equal(t, []string{"base", "base", "base", "outer"}, rt.log)
	require.Zero(t, rt.reg.Len())
}

func TestPreempt_PanicUnwinds(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	outer := rt.reg.Push("outer", hooks.Hook{Name: "noop", Fire: func() error { return nil }})
	defer outer.Close()
	before := rt.reg.Names()

	boom := Func("boom", func() (bool, error) { return true, nil }, func() (any, error) {
		if err := rt.step("boom"); err != nil {
			return nil, err
		}
		return nil, Panicf("position changed at step %d", rt.steps)
	})
	s := boom.Preempt(rt, []Strategy{when("c", rt, constant(false))}, true).
		Preempt(rt, []Strategy{when("d", rt, constant(false))}, true)

	_, _, err := Run(s)
	var p *Panic
	require.ErrorAs(t, err, &p)
	require.Equal(t, "position changed at step 1", p.Reason)
	require.Equal(t, before, rt.reg.Names())
}

func TestUntil(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	s := rt.walker("base", 10, nil).Until(rt, func() bool { return rt.steps >= 3 })
	ran, v, err := Run(s)
	require.NoError(t, err)
	require.True(t, ran)
	require.Nil(t, v)
	require.Equal(t, 3, rt.steps)

	ran, _, err = Run(s)
	require.NoError(t, err)
	require.False(t, ran, "halt already holds")
	require.Equal(t, 3, rt.steps)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		err  error
		want Signal
	}{
		{nil, SignalNone},
		{ErrFinished, SignalFinished},
		{fmt.Errorf("step: %w", ErrFinished), SignalFinished},
		{Panicf("x"), SignalPanic},
		{fmt.Errorf("wrapped: %w", Panicf("x")), SignalPanic},
		{&ChangeStrategy{Origin: &Origin{node: "n"}}, SignalChange},
		{errors.New("other"), SignalFatal},
	} {
		require.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
	require.Equal(t, "panic", SignalPanic.String())
}

func TestNode(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{}
	gate := false
	node := Node(rt.walker("w", 1, nil).Condition(func() bool { return gate }))

	status, err := node.Tick()
	require.NoError(t, err)
	require.Equal(t, bt.Failure, status)

	gate = true
	status, err = node.Tick()
	require.NoError(t, err)
	require.Equal(t, bt.Success, status)
	require.Equal(t, 1, rt.steps)

	status, err = Running(rt.walker("w", 1, nil)).Tick()
	require.NoError(t, err)
	require.Equal(t, bt.Running, status)

	boom := Func("boom", func() (bool, error) { return true, nil }, func() (any, error) { return nil, Panicf("x") })
	_, err = Node(boom).Tick()
	require.Equal(t, SignalPanic, Classify(err))
}
