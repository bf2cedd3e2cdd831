// Package milestone tracks coarse progress through the dungeon and plans the
// level transitions needed to reach the next milestone.
package milestone

import (
	"fmt"

	"github.com/joeycumines/heur/internal/world"
)

// Milestone is a coarse progress marker.
type Milestone int

const (
	FindMines Milestone = iota + 1
	FindSokoban
	SolveSokoban
	GoDown
)

func (m Milestone) String() string {
	switch m {
	case FindMines:
		return "find-mines"
	case FindSokoban:
		return "find-sokoban"
	case SolveSokoban:
		return "solve-sokoban"
	case GoDown:
		return "go-down"
	}
	return fmt.Sprintf("milestone(%d)", int(m))
}

// SokobanEntryDepth is the shallowest dungeon level from which the planner
// tries up-stairs in search of the Sokoban branch.
const SokobanEntryDepth = 6

// Record notes when a milestone was completed.
type Record struct {
	Milestone Milestone
	Step      int
	Turn      int
}

// Target is a region goal: any level of Branch at least MinDepth deep.
type Target struct {
	Branch   int
	MinDepth int
}

// Reached reports whether region satisfies the target. Non-region values
// never do.
func (t Target) Reached(region any) bool {
	k, ok := region.(world.Key)
	return ok && k.Branch == t.Branch && k.Depth >= t.MinDepth
}

// Key is the shallowest region satisfying the target.
func (t Target) Key() world.Key { return world.Key{Branch: t.Branch, Depth: t.MinDepth} }

func (t Target) String() string { return fmt.Sprintf("%d/%d+", t.Branch, t.MinDepth) }

// Tracker advances through the milestones in order. Not safe for concurrent
// use.
type Tracker struct {
	current Milestone
	log     []Record
}

// NewTracker starts at FindMines.
func NewTracker() *Tracker { return &Tracker{current: FindMines} }

// Current returns the active milestone.
func (t *Tracker) Current() Milestone { return t.current }

// Log returns the completed milestones in order.
func (t *Tracker) Log() []Record { return append([]Record(nil), t.log...) }

func (t *Tracker) advance(step, turn int) {
	t.log = append(t.log, Record{Milestone: t.current, Step: step, Turn: turn})
	t.current++
}

// Update advances the milestone when region completes it, reporting whether
// it did.
func (t *Tracker) Update(region world.Key, step, turn int) bool {
	switch {
	case t.current == FindMines && region.Branch == world.Mines,
		t.current == FindSokoban && region.Branch == world.Sokoban:
		t.advance(step, turn)
		return true
	}
	return false
}

// MarkSolved completes SolveSokoban.
func (t *Tracker) MarkSolved(step, turn int) bool {
	if t.current != SolveSokoban {
		return false
	}
	t.advance(step, turn)
	return true
}

// Target returns the region the active milestone needs, given the current
// region. SolveSokoban has no region target.
func (t *Tracker) Target(region world.Key) (Target, bool) {
	switch t.current {
	case FindMines:
		return Target{Branch: world.Mines}, true
	case FindSokoban:
		return Target{Branch: world.Sokoban}, true
	case GoDown:
		return Target{Branch: region.Branch, MinDepth: region.Depth + 1}, true
	}
	return Target{}, false
}
