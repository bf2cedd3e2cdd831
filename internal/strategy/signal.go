package strategy

import (
	"errors"
	"fmt"
)

// ErrFinished reports that the episode ended. It is terminal, not a failure.
var ErrFinished = errors.New("strategy: episode finished")

// ErrEscapedSignal reports a ChangeStrategy that unwound past the Preempt
// node which raised it.
var ErrEscapedSignal = errors.New("strategy: change-strategy signal escaped its preempt node")

// Panic reports that an assumption the active strategy relied on no longer
// holds. The control loop recovers from it by restarting arbitration.
type Panic struct {
	Reason string
}

// Panicf returns a *Panic with a formatted reason.
func Panicf(format string, args ...any) *Panic {
	return &Panic{Reason: fmt.Sprintf(format, args...)}
}

func (e *Panic) Error() string { return "strategy panic: " + e.Reason }

// Origin identifies the Preempt activation that installed an interrupt.
// Origins compare by identity.
type Origin struct {
	node string
}

func (o *Origin) String() string { return o.node }

// ChangeStrategy unwinds the running base of a Preempt node so the chosen
// candidate can run. Procedure has already been probed successfully.
type ChangeStrategy struct {
	Origin    *Origin
	Index     int
	Procedure Procedure
}

func (e *ChangeStrategy) Error() string {
	return fmt.Sprintf("strategy: change to candidate %d of %s", e.Index, e.Origin)
}

// Signal is the kind of a control flow outcome.
type Signal int

const (
	// SignalNone is a normal completion.
	SignalNone Signal = iota
	SignalFinished
	SignalPanic
	SignalChange
	// SignalFatal is any other error.
	SignalFatal
)

func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalFinished:
		return "finished"
	case SignalPanic:
		return "panic"
	case SignalChange:
		return "change"
	case SignalFatal:
		return "fatal"
	}
	return fmt.Sprintf("signal(%d)", int(s))
}

// Classify returns the control flow kind of err.
func Classify(err error) Signal {
	var (
		p  *Panic
		cs *ChangeStrategy
	)
	switch {
	case err == nil:
		return SignalNone
	case errors.Is(err, ErrFinished):
		return SignalFinished
	case errors.As(err, &p):
		return SignalPanic
	case errors.As(err, &cs):
		return SignalChange
	}
	return SignalFatal
}
