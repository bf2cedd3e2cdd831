// Package testutil provides a scripted grid environment for driving the agent
// in tests.
package testutil

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/joeycumines/heur/internal/env"
	"github.com/joeycumines/heur/internal/glyph"
	"github.com/joeycumines/heur/internal/grid"
)

// Glyph codes used by World. Each is the map character it is parsed from.
const (
	Stone      glyph.Glyph = ' '
	Floor      glyph.Glyph = '.'
	Corridor   glyph.Glyph = '#'
	VWall      glyph.Glyph = '|'
	HWall      glyph.Glyph = '-'
	DoorClosed glyph.Glyph = '+'
	DoorOpen   glyph.Glyph = '\''
	StairDown  glyph.Glyph = '>'
	StairUp    glyph.Glyph = '<'
	Food       glyph.Glyph = '%'
	Corpse     glyph.Glyph = ','
	Jackal     glyph.Glyph = 'd'
	Keeper     glyph.Glyph = 'S'
	Boulder    glyph.Glyph = '0'
	Hole       glyph.Glyph = '^'
	Player     glyph.Glyph = '@'
)

// Table classifies the glyphs rendered by World.
func Table() glyph.Table {
	return glyph.Table{
		Stone:      glyph.Stone,
		Floor:      glyph.Floor,
		Corridor:   glyph.Corridor,
		VWall:      glyph.Wall,
		HWall:      glyph.Wall,
		DoorClosed: glyph.DoorClosed,
		DoorOpen:   glyph.DoorOpen,
		StairDown:  glyph.StairDown,
		StairUp:    glyph.StairUp,
		Food:       glyph.Food,
		Corpse:     glyph.Corpse,
		Jackal:     glyph.Monster,
		Keeper:     glyph.Peaceful,
		Boulder:    glyph.Boulder,
		Hole:       glyph.Trap,
		Player:     glyph.Monster,
	}
}

// ErrNotReset is returned by Step before the first Reset.
var ErrNotReset = errors.New("testutil: world not reset")

// World is a tiny deterministic environment over a character map. It is not
// a game: monsters never move, doors open on the first try and food is
// eaten whole. Boulders can be pushed onto floor or into holes, which they
// fill.
type World struct {
	// Terrain holds the static map, including items lying on the floor.
	Terrain grid.Grid[glyph.Glyph]
	// Monsters maps positions to monster glyphs drawn over the terrain.
	Monsters map[grid.Point]glyph.Glyph
	Pos      grid.Point
	Stats    env.Stats
	// SightRadius limits the rendered cells to that Chebyshev distance of
	// the player. Zero renders everything.
	SightRadius int
	// MaxSteps ends the episode after that many steps. Zero never ends it.
	MaxSteps int
	// Events run after the numbered step (1-based) has been applied.
	Events map[int]func(w *World)
	// Actions logs every applied action.
	Actions []env.Action
	// Eaten counts completed meals.
	Eaten int

	message string
	screen  string
	pending env.Action
	reset   bool
	initial *World
}

// ParseMap builds a World from rows of map characters. '@' marks the start
// position and the letters 'd' and 'S' place monsters on floor.
func ParseMap(rows ...string) (*World, error) {
	if len(rows) == 0 {
		return nil, errors.New("testutil: empty map")
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	w := &World{
		Terrain:  grid.Filled(len(rows), width, Stone),
		Monsters: make(map[grid.Point]glyph.Glyph),
		Pos:      grid.Pt(-1, -1),
		Stats:    env.Stats{HP: 16, MaxHP: 16, Depth: 1, Level: 1, XL: 1, Hunger: env.NotHungry},
	}
	table := Table()
	for y, r := range rows {
		for x, ch := range r {
			p, g := grid.Pt(y, x), glyph.Glyph(ch)
			if _, ok := table[g]; !ok {
				return nil, fmt.Errorf("testutil: unknown map character %q at %v", ch, p)
			}
			switch table.Classify(g) {
			case glyph.Monster, glyph.Peaceful:
				if g == Player {
					w.Pos = p
				} else {
					w.Monsters[p] = g
				}
				g = Floor
			}
			w.Terrain.Set(p, g)
		}
	}
	if w.Pos == grid.Pt(-1, -1) {
		return nil, errors.New("testutil: map has no '@'")
	}
	return w, nil
}

// MustParseMap is ParseMap that panics on error.
func MustParseMap(rows ...string) *World {
	w, err := ParseMap(rows...)
	if err != nil {
		panic(err)
	}
	return w
}

// Count returns how many times the action was applied.
func (w *World) Count(a env.Action) int {
	n := 0
	for _, v := range w.Actions {
		if v == a {
			n++
		}
	}
	return n
}

// Reset implements env.Environment. The first call snapshots the world so
// later calls restore it.
func (w *World) Reset() (env.Observation, error) {
	if w.initial == nil {
		w.initial = w.clone()
	} else {
		s := w.initial.clone()
		w.Terrain, w.Monsters, w.Pos, w.Stats = s.Terrain, s.Monsters, s.Pos, s.Stats
		w.Actions, w.Eaten = nil, 0
	}
	w.reset = true
	w.message, w.screen, w.pending = "", "", 0
	return w.observe(), nil
}

// Step implements env.Environment.
func (w *World) Step(a env.Action) (env.Observation, float64, bool, error) {
	if !w.reset {
		return env.Observation{}, 0, false, ErrNotReset
	}
	w.Actions = append(w.Actions, a)
	w.message, w.screen = "", ""
	reward := w.apply(a)
	w.Stats.Time++

	n := len(w.Actions)
	if fn := w.Events[n]; fn != nil {
		fn(w)
	}
	done := w.MaxSteps > 0 && n >= w.MaxSteps
	return w.observe(), reward, done, nil
}

func (w *World) apply(a env.Action) float64 {
	if w.pending != 0 {
		pending := w.pending
		w.pending = 0
		switch pending {
		case env.Eat:
			if r, _ := a.Rune(); r == 'y' {
				return w.eat()
			}
		case env.Open, env.Kick:
			if off, ok := a.Offset(); ok {
				w.forceDoor(w.Pos.Add(off))
			}
		}
		return 0
	}

	switch a {
	case env.Eat:
		if g := w.Terrain.At(w.Pos); g == Food || g == Corpse {
			w.pending = env.Eat
			w.screen = "There is a food item here; eat it? [yn] (n)"
		}
	case env.Open, env.Kick:
		w.pending = a
	case env.Down:
		if w.Terrain.At(w.Pos) == StairDown {
			w.Stats.Level++
			w.Stats.Depth++
		}
	case env.Up:
		if w.Terrain.At(w.Pos) == StairUp && w.Stats.Level > 1 {
			w.Stats.Level--
			w.Stats.Depth--
		}
	default:
		off, ok := a.Offset()
		if !ok {
			return 0
		}
		return w.move(w.Pos.Add(off))
	}
	return 0
}

func (w *World) move(to grid.Point) float64 {
	if !w.Terrain.In(to) {
		return 0
	}
	if _, ok := w.Monsters[to]; ok {
		delete(w.Monsters, to)
		w.Terrain.Set(to, Corpse)
		w.message = "You kill the jackal!"
		w.Stats.Score += 4
		return 4
	}
	switch w.Terrain.At(to) {
	case Boulder:
		if !w.push(to, to.Sub(w.Pos)) {
			return 0
		}
	case DoorClosed:
		w.message = "The door is closed."
		return 0
	case Stone, VWall, HWall, Hole:
		return 0
	}
	w.Pos = to
	if w.Terrain.At(to) == Food {
		w.message = "You see here a food ration."
	}
	return 0
}

func (w *World) push(from, dir grid.Point) bool {
	to := from.Add(dir)
	if !w.Terrain.In(to) {
		return false
	}
	if _, ok := w.Monsters[to]; ok {
		return false
	}
	switch w.Terrain.At(to) {
	case Floor:
		w.Terrain.Set(to, Boulder)
	case Hole:
		w.Terrain.Set(to, Floor)
		w.message = "The boulder fills a hole."
	default:
		w.message = "You try to move the boulder, but in vain."
		return false
	}
	w.Terrain.Set(from, Floor)
	return true
}

func (w *World) eat() float64 {
	w.Terrain.Set(w.Pos, Floor)
	w.Eaten++
	w.Stats.Hunger = env.NotHungry
	w.message = "This food is delicious!"
	w.screen = w.message + "--More--"
	return 1
}

func (w *World) forceDoor(p grid.Point) {
	if w.Terrain.In(p) && w.Terrain.At(p) == DoorClosed {
		w.Terrain.Set(p, DoorOpen)
		w.message = "The door opens."
	}
}

func (w *World) observe() env.Observation {
	glyphs := grid.Filled(w.Terrain.Height(), w.Terrain.Width(), Stone)
	w.Terrain.Each(func(p grid.Point, g glyph.Glyph) {
		if w.SightRadius > 0 && p.Chebyshev(w.Pos) > w.SightRadius {
			return
		}
		if m, ok := w.Monsters[p]; ok {
			g = m
		}
		glyphs.Set(p, g)
	})
	glyphs.Set(w.Pos, Player)

	screen := w.screen
	if screen == "" {
		screen = w.message
	}
	return env.Observation{
		Pos:     w.Pos,
		Stats:   w.Stats,
		Glyphs:  glyphs,
		Message: w.message,
		Screen:  strings.TrimSpace(screen),
	}
}

func (w *World) clone() *World {
	return &World{
		Terrain:  w.Terrain.Clone(),
		Monsters: maps.Clone(w.Monsters),
		Pos:      w.Pos,
		Stats:    w.Stats,
	}
}
