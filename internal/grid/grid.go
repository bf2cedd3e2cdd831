// Package grid provides the fixed-size row-major grids and points shared by
// the world model and the spatial query engine.
package grid

import "fmt"

// Point is a cell coordinate, row first.
type Point struct{ Y, X int }

// Pt is a convenience constructor for Point.
func Pt(y, x int) Point { return Point{Y: y, X: x} }

// Add returns the component-wise sum.
func (p Point) Add(q Point) Point { return Point{Y: p.Y + q.Y, X: p.X + q.X} }

// Sub returns the component-wise difference.
func (p Point) Sub(q Point) Point { return Point{Y: p.Y - q.Y, X: p.X - q.X} }

// Chebyshev returns the king-move distance between two points.
func (p Point) Chebyshev(q Point) int {
	dy, dx := abs(p.Y-q.Y), abs(p.X-q.X)
	if dy > dx {
		return dy
	}
	return dx
}

// Adjacent reports whether q is one of the 8 neighbours of p.
func (p Point) Adjacent(q Point) bool { return p != q && p.Chebyshev(q) == 1 }

// Less orders points row-major.
func (p Point) Less(q Point) bool { return p.Y < q.Y || (p.Y == q.Y && p.X < q.X) }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.Y, p.X) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Compass8 lists the 8 neighbour offsets in a fixed order: N, NE, E, SE, S,
// SW, W, NW.
var Compass8 = [8]Point{
	{-1, 0}, {-1, 1}, {0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1},
}

// Compass4 lists the orthogonal neighbour offsets: N, E, S, W.
var Compass4 = [4]Point{{-1, 0}, {0, 1}, {1, 0}, {0, -1}}

// Grid is a fixed-size row-major array of T. The zero value is an empty grid.
// Copies share storage; use Clone for an independent copy.
type Grid[T any] struct {
	h, w  int
	cells []T
}

// New allocates a h×w grid of zero values.
func New[T any](h, w int) Grid[T] {
	if h < 0 || w < 0 {
		panic(fmt.Sprintf("grid.New: negative dimensions %dx%d", h, w))
	}
	return Grid[T]{h: h, w: w, cells: make([]T, h*w)}
}

// Filled allocates a h×w grid with every cell set to v.
func Filled[T any](h, w int, v T) Grid[T] {
	g := New[T](h, w)
	g.Fill(v)
	return g
}

func (g Grid[T]) Height() int { return g.h }
func (g Grid[T]) Width() int  { return g.w }

// In reports whether p lies within the grid bounds.
func (g Grid[T]) In(p Point) bool { return p.Y >= 0 && p.Y < g.h && p.X >= 0 && p.X < g.w }

// At returns the value at p. It panics if p is out of bounds.
func (g Grid[T]) At(p Point) T { return g.cells[g.index(p)] }

// Set stores v at p. It panics if p is out of bounds.
func (g Grid[T]) Set(p Point, v T) { g.cells[g.index(p)] = v }

// Fill sets every cell to v.
func (g Grid[T]) Fill(v T) {
	for i := range g.cells {
		g.cells[i] = v
	}
}

// Clone returns an independent copy.
func (g Grid[T]) Clone() Grid[T] {
	c := Grid[T]{h: g.h, w: g.w, cells: make([]T, len(g.cells))}
	copy(c.cells, g.cells)
	return c
}

// Each calls fn for every cell in row-major order.
func (g Grid[T]) Each(fn func(p Point, v T)) {
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			fn(Point{y, x}, g.cells[y*g.w+x])
		}
	}
}

// Neighbors returns the in-bounds neighbours of p, diagonals included when
// diagonal is set, in Compass order.
func (g Grid[T]) Neighbors(p Point, diagonal bool) []Point {
	offsets := Compass4[:]
	if diagonal {
		offsets = Compass8[:]
	}
	out := make([]Point, 0, len(offsets))
	for _, d := range offsets {
		if n := p.Add(d); g.In(n) {
			out = append(out, n)
		}
	}
	return out
}

func (g Grid[T]) index(p Point) int {
	if !g.In(p) {
		panic(fmt.Sprintf("grid: point %v out of bounds %dx%d", p, g.h, g.w))
	}
	return p.Y*g.w + p.X
}
