// Package sokoban models boulder-pushing puzzle levels and the catalogue of
// known solutions used to solve them.
package sokoban

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joeycumines/heur/internal/grid"
)

// ErrUnsolvable is returned when no catalogue entry matches a level, or the
// matched solution cannot be carried out.
var ErrUnsolvable = errors.New("sokoban: puzzle unsolvable")

// Cell is a puzzle map cell.
type Cell uint8

const (
	Outside Cell = iota
	Floor
	Wall
	Boulder
	Hole
)

// Move pushes the boulder at (Y, X) by (DY, DX).
type Move struct {
	Y, X   int
	DY, DX int
}

// From is the boulder's position before the push.
func (m Move) From() grid.Point { return grid.Pt(m.Y, m.X) }

// Dir is the push direction.
func (m Move) Dir() grid.Point { return grid.Pt(m.DY, m.DX) }

// Stand is where the pusher must stand: one cell behind the boulder.
func (m Move) Stand() grid.Point { return m.From().Sub(m.Dir()) }

// Map is a puzzle level.
type Map struct {
	cells grid.Grid[Cell]
}

// ParseMap reads a map drawn with '-' and '|' for walls, '0' for boulders,
// '^' for holes, any of ".<>@" for floor and spaces outside the level. Rows
// may be ragged. Leading and trailing blank lines are ignored.
func ParseMap(s string) (Map, error) {
	rows := strings.Split(strings.Trim(s, "\n"), "\n")
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return Map{}, errors.New("sokoban: empty map")
	}
	cells := grid.New[Cell](len(rows), width)
	for y, r := range rows {
		for x, ch := range r {
			var c Cell
			switch ch {
			case ' ':
				c = Outside
			case '-', '|':
				c = Wall
			case '0':
				c = Boulder
			case '^':
				c = Hole
			case '.', '<', '>', '@':
				c = Floor
			default:
				return Map{}, fmt.Errorf("sokoban: unknown map character %q at (%d,%d)", ch, y, x)
			}
			cells.Set(grid.Pt(y, x), c)
		}
	}
	return Map{cells: cells}, nil
}

// Height returns the map height.
func (m Map) Height() int { return m.cells.Height() }

// Width returns the map width.
func (m Map) Width() int { return m.cells.Width() }

// At returns the cell at p. Points off the map are Outside.
func (m Map) At(p grid.Point) Cell {
	if !m.cells.In(p) {
		return Outside
	}
	return m.cells.At(p)
}

// Mask returns a grid marking the cells of kind c.
func (m Map) Mask(c Cell) grid.Grid[bool] {
	out := grid.New[bool](m.Height(), m.Width())
	m.cells.Each(func(p grid.Point, v Cell) { out.Set(p, v == c) })
	return out
}

// Clone returns an independent copy.
func (m Map) Clone() Map { return Map{cells: m.cells.Clone()} }

// Apply simulates mv. A boulder pushed into a hole fills it.
func (m Map) Apply(mv Move) error {
	from, to := mv.From(), mv.From().Add(mv.Dir())
	if m.At(from) != Boulder {
		return fmt.Errorf("sokoban: no boulder at %v", from)
	}
	switch m.At(to) {
	case Floor:
		m.cells.Set(to, Boulder)
	case Hole:
		m.cells.Set(to, Floor)
	default:
		return fmt.Errorf("sokoban: boulder at %v blocked towards %v", from, to)
	}
	m.cells.Set(from, Floor)
	return nil
}

// Puzzle is a catalogue entry.
type Puzzle struct {
	Name  string
	Map   Map
	Moves []Move
}

// firstWall returns the first wall in row-major order.
func firstWall(walls grid.Grid[bool]) (grid.Point, bool) {
	var (
		first grid.Point
		found bool
	)
	walls.Each(func(p grid.Point, v bool) {
		if v && !found {
			first, found = p, true
		}
	})
	return first, found
}

// Align locates the puzzle within the level's wall grid. It anchors the first
// wall of each in row-major order and accepts the offset when every level
// wall inside the puzzle's window is also a puzzle wall.
func (pz *Puzzle) Align(walls grid.Grid[bool]) (grid.Point, bool) {
	lw, ok := firstWall(walls)
	if !ok {
		return grid.Point{}, false
	}
	pw, ok := firstWall(pz.Map.Mask(Wall))
	if !ok {
		return grid.Point{}, false
	}
	offset := lw.Sub(pw)
	if offset.Y < 0 || offset.X < 0 {
		return grid.Point{}, false
	}
	for y := 0; y < pz.Map.Height(); y++ {
		for x := 0; x < pz.Map.Width(); x++ {
			p := grid.Pt(y, x)
			q := p.Add(offset)
			if walls.In(q) && walls.At(q) && pz.Map.At(p) != Wall {
				return grid.Point{}, false
			}
		}
	}
	return offset, true
}
