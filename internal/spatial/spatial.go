// Package spatial answers distance and path queries over a level's walkable
// cells.
package spatial

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/joeycumines/heur/internal/glyph"
	"github.com/joeycumines/heur/internal/grid"
	"github.com/joeycumines/heur/internal/world"
)

// Unreachable is the distance of cells not reachable from the origin.
const Unreachable = -1

// SeedMode selects how the tie-breaking random source is seeded.
type SeedMode string

const (
	// Deterministic seeds with a fixed value, so identical inputs produce
	// identical paths across runs.
	Deterministic SeedMode = "deterministic"
	// Free seeds from the wall clock.
	Free SeedMode = "free"
)

// ParseSeedMode validates a seed mode name.
func ParseSeedMode(s string) (SeedMode, error) {
	switch m := SeedMode(s); m {
	case Deterministic, Free:
		return m, nil
	}
	return "", fmt.Errorf("unknown seed mode %q", s)
}

// UnreachableError is returned by Path when the destination cannot be
// reached. Callers are expected to consult the distance field first, so
// this is a contract violation.
type UnreachableError struct {
	From, To grid.Point
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("spatial: %v is unreachable from %v", e.To, e.From)
}

// Field is a hop-count distance field from a single origin.
type Field struct {
	Origin grid.Point
	dist   grid.Grid[int]
	open   grid.Grid[bool]
}

// At returns the distance of p, or Unreachable. Points off the map are
// unreachable.
func (f *Field) At(p grid.Point) int {
	if !f.dist.In(p) {
		return Unreachable
	}
	return f.dist.At(p)
}

// Reachable reports whether p has a non-negative distance.
func (f *Field) Reachable(p grid.Point) bool { return f.At(p) != Unreachable }

// Each visits every reachable cell in row-major order.
func (f *Field) Each(fn func(p grid.Point, d int)) {
	f.dist.Each(func(p grid.Point, d int) {
		if d != Unreachable {
			fn(p, d)
		}
	})
}

// Option configures an Engine.
type Option func(*Engine)

// WithHazards replaces the categories excluded from traversal.
func WithHazards(s glyph.Set) Option { return func(e *Engine) { e.hazards = s } }

// WithSinks replaces the categories that are reachable but never expanded.
func WithSinks(s glyph.Set) Option { return func(e *Engine) { e.sinks = s } }

// WithSeed selects the tie-breaking seed mode. The seed is ignored in Free
// mode.
func WithSeed(mode SeedMode, seed uint64) Option {
	return func(e *Engine) {
		if mode == Free {
			seed = uint64(time.Now().UnixNano())
		}
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// DefaultHazards are the occupant categories pathing routes around.
var DefaultHazards = glyph.SetOf(glyph.Peaceful, glyph.Boulder)

// DefaultSinks are reachable but never passed through.
var DefaultSinks = glyph.SetOf(glyph.DoorClosed)

type memoKey struct {
	level  world.Key
	origin grid.Point
}

// Engine computes distance fields and paths. It memoizes fields per
// (level, origin) until Invalidate is called, which must happen on every
// turn advance. Not safe for concurrent use.
type Engine struct {
	classifier glyph.Classifier
	hazards    glyph.Set
	sinks      glyph.Set
	rng        *rand.Rand
	memo       map[memoKey]*Field
}

// New returns an Engine. It defaults to Deterministic seeding with seed 0.
func New(c glyph.Classifier, opts ...Option) *Engine {
	e := &Engine{
		classifier: c,
		hazards:    DefaultHazards,
		sinks:      DefaultSinks,
		memo:       make(map[memoKey]*Field),
	}
	WithSeed(Deterministic, 0)(e)
	for _, o := range opts {
		o(e)
	}
	return e
}

// Invalidate drops every memoized field.
func (e *Engine) Invalidate() { clear(e.memo) }

// Distances returns the distance field from origin over the level's
// walkable cells, using glyphs (the current observation) to recognise
// hazards and sinks.
func (e *Engine) Distances(lvl *world.Level, glyphs grid.Grid[glyph.Glyph], origin grid.Point) *Field {
	k := memoKey{level: lvl.Key, origin: origin}
	if f, ok := e.memo[k]; ok {
		return f
	}
	f := e.bfs(lvl, glyphs, origin)
	e.memo[k] = f
	return f
}

func (e *Engine) bfs(lvl *world.Level, glyphs grid.Grid[glyph.Glyph], origin grid.Point) *Field {
	h, w := lvl.Walkable.Height(), lvl.Walkable.Width()
	f := &Field{
		Origin: origin,
		dist:   grid.Filled(h, w, Unreachable),
		open:   grid.New[bool](h, w),
	}
	if !f.dist.In(origin) {
		return f
	}

	passable := func(p grid.Point) bool {
		return lvl.Walkable.At(p) && !e.hazards.Has(e.classifier.Classify(glyphs.At(p)))
	}
	sink := func(p grid.Point) bool {
		return e.sinks.Has(e.classifier.Classify(glyphs.At(p)))
	}

	f.dist.Set(origin, 0)
	queue := []grid.Point{origin}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		f.open.Set(p, true)
		d := f.dist.At(p)
		for _, q := range f.dist.Neighbors(p, true) {
			if f.dist.At(q) != Unreachable {
				continue
			}
			switch {
			case sink(q):
				f.dist.Set(q, d+1)
			case passable(q):
				f.dist.Set(q, d+1)
				queue = append(queue, q)
			}
		}
	}
	return f
}

// Path returns the cells from origin to dest inclusive, walking back from
// dest through strictly closer cells that were expanded by the search. Ties
// are broken by the engine's random source.
func (e *Engine) Path(lvl *world.Level, glyphs grid.Grid[glyph.Glyph], origin, dest grid.Point) ([]grid.Point, error) {
	return e.PathIn(e.Distances(lvl, glyphs, origin), dest)
}

// PathIn reconstructs a path within an existing field.
func (e *Engine) PathIn(f *Field, dest grid.Point) ([]grid.Point, error) {
	if dest == f.Origin {
		return []grid.Point{dest}, nil
	}
	d := f.At(dest)
	if d == Unreachable {
		return nil, &UnreachableError{From: f.Origin, To: dest}
	}

	path := make([]grid.Point, d+1)
	path[d] = dest
	cur := dest
	for i := d - 1; i >= 0; i-- {
		next, ok := e.stepBack(f, cur)
		if !ok {
			return nil, fmt.Errorf("spatial: broken distance field at %v", cur)
		}
		path[i] = next
		cur = next
	}
	return path, nil
}

func (e *Engine) stepBack(f *Field, cur grid.Point) (grid.Point, bool) {
	d := f.dist.At(cur)
	nbrs := f.dist.Neighbors(cur, true)
	e.rng.Shuffle(len(nbrs), func(i, j int) { nbrs[i], nbrs[j] = nbrs[j], nbrs[i] })
	for _, q := range nbrs {
		if qd := f.dist.At(q); qd >= 0 && qd < d && f.open.At(q) {
			return q, true
		}
	}
	return grid.Point{}, false
}
