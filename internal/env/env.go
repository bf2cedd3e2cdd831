// Package env declares the contract with the turn-stepping environment: the
// observation snapshot it produces and the closed action space it accepts.
package env

import (
	"fmt"
	"strings"

	"github.com/joeycumines/heur/internal/glyph"
	"github.com/joeycumines/heur/internal/grid"
)

// Modal prompt markers that must be dismissed before normal processing.
const (
	MarkerMore    = "--More--"
	MarkerYesNo   = "[yn]"
	MarkerForSale = "(for sale,"
)

// Hunger states, ordered from best to worst.
const (
	Satiated = iota
	NotHungry
	Hungry
	Weak
	Fainting
)

// Stats is the numeric status vector of an observation.
type Stats struct {
	Score  int
	HP     int
	MaxHP  int
	Depth  int
	Gold   int
	Time   int
	Hunger int
	// Branch is the dungeon branch number, Level the level number within it.
	Branch int
	Level  int
	XL     int
}

// Observation is an immutable per-turn readout of the environment.
type Observation struct {
	Pos     grid.Point
	Stats   Stats
	Glyphs  grid.Grid[glyph.Glyph]
	Message string
	// Screen is the raw feedback text, including modal prompt markers.
	Screen string
}

// HasMore reports whether a --More-- prompt is pending.
func (o Observation) HasMore() bool { return strings.Contains(o.Screen, MarkerMore) }

// HasYesNo reports whether a yes/no question is pending.
func (o Observation) HasYesNo() bool { return strings.Contains(o.Screen, MarkerYesNo) }

// Environment is the sole time-advance mechanism.
type Environment interface {
	Reset() (Observation, error)
	// Step applies one action, returning the new observation, the reward for
	// the step and whether the episode ended.
	Step(a Action) (Observation, float64, bool, error)
}

// Action is a discrete command.
type Action int

const (
	North Action = iota + 1
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
	Up
	Down
	Esc
	Eat
	Search
	Kick
	Open
	Pray
	Wait

	keyBase Action = 1 << 16
)

var actionNames = map[Action]string{
	North: "n", NorthEast: "ne", East: "e", SouthEast: "se",
	South: "s", SouthWest: "sw", West: "w", NorthWest: "nw",
	Up: "<", Down: ">", Esc: "esc", Eat: "eat", Search: "search",
	Kick: "kick", Open: "open", Pray: "pray", Wait: "wait",
}

// Key is the action of typing r.
func Key(r rune) Action { return keyBase + Action(r) }

// Rune returns the typed rune for a Key action.
func (a Action) Rune() (rune, bool) {
	if a >= keyBase {
		return rune(a - keyBase), true
	}
	return 0, false
}

func (a Action) String() string {
	if r, ok := a.Rune(); ok {
		return fmt.Sprintf("key(%q)", r)
	}
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// compass is indexed like grid.Compass8.
var compass = [8]Action{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

// DirectionTo returns the compass action stepping from one cell to an
// adjacent one.
func DirectionTo(from, to grid.Point) (Action, error) {
	d := to.Sub(from)
	for i, off := range grid.Compass8 {
		if off == d {
			return compass[i], nil
		}
	}
	return 0, fmt.Errorf("env: %v is not adjacent to %v", to, from)
}

// Offset returns the displacement of a compass action.
func (a Action) Offset() (grid.Point, bool) {
	for i, c := range compass {
		if c == a {
			return grid.Compass8[i], true
		}
	}
	return grid.Point{}, false
}
