// Package world maintains the agent's incremental knowledge of every region
// it has visited.
package world

import (
	"fmt"
	"slices"
	"strings"

	"github.com/joeycumines/heur/internal/env"
	"github.com/joeycumines/heur/internal/glyph"
	"github.com/joeycumines/heur/internal/grid"
)

// Dungeon branch numbers.
const (
	Dungeons = 0
	Gehennom = 1
	Mines    = 2
	Quest    = 3
	Sokoban  = 4
)

// NeverFresh is the initial freshness stamp of every cell.
const NeverFresh = -10000

// Key identifies a region.
type Key struct {
	Branch int
	Depth  int
}

// KeyOf returns the region the observation was taken in.
func KeyOf(s env.Stats) Key { return Key{Branch: s.Branch, Depth: s.Level} }

func (k Key) String() string { return fmt.Sprintf("%d/%d", k.Branch, k.Depth) }

// Less orders keys by branch then depth.
func (k Key) Less(o Key) bool {
	return k.Branch < o.Branch || (k.Branch == o.Branch && k.Depth < o.Depth)
}

// Level holds the co-indexed knowledge grids of a single region. Seen and
// Walkable are only ever set, never cleared.
type Level struct {
	Key      Key
	Walkable grid.Grid[bool]
	Seen     grid.Grid[bool]
	Special  grid.Grid[bool]
	Occupant grid.Grid[glyph.Glyph]
	// Terrain is the last structural glyph seen at each cell, unaffected by
	// whatever stands on it since.
	Terrain     grid.Grid[glyph.Glyph]
	SearchCount grid.Grid[int]
	Freshness   grid.Grid[int]
}

func newLevel(key Key, h, w int) *Level {
	return &Level{
		Key:         key,
		Walkable:    grid.New[bool](h, w),
		Seen:        grid.New[bool](h, w),
		Special:     grid.New[bool](h, w),
		Occupant:    grid.Filled(h, w, glyph.None),
		Terrain:     grid.Filled(h, w, glyph.None),
		SearchCount: grid.New[int](h, w),
		Freshness:   grid.Filled(h, w, NeverFresh),
	}
}

// RecordSearch counts one search action performed at p.
func (l *Level) RecordSearch(p grid.Point) { l.SearchCount.Set(p, l.SearchCount.At(p)+1) }

// MarkFresh stamps p as freshly produced at the given turn.
func (l *Level) MarkFresh(p grid.Point, turn int) { l.Freshness.Set(p, turn) }

// IsFresh reports whether p was stamped at most window turns before turn.
func (l *Level) IsFresh(p grid.Point, turn, window int) bool {
	return turn-l.Freshness.At(p) <= window
}

// Model owns the region map.
type Model struct {
	classifier glyph.Classifier
	height     int
	width      int
	zoneMarker string
	levels     map[Key]*Level
	current    *Level
}

// Option configures a Model.
type Option func(*Model)

// WithZoneMarker overrides the message text that flags the agent's cell as a
// special zone. An empty marker disables the flag.
func WithZoneMarker(marker string) Option {
	return func(m *Model) { m.zoneMarker = marker }
}

// New creates an empty Model whose levels have the given fixed dimensions.
func New(c glyph.Classifier, height, width int, opts ...Option) *Model {
	m := &Model{
		classifier: c,
		height:     height,
		width:      width,
		zoneMarker: env.MarkerForSale,
		levels:     make(map[Key]*Level),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Classifier returns the glyph classifier in use.
func (m *Model) Classifier() glyph.Classifier { return m.classifier }

// Current returns the level most recently ingested, or nil.
func (m *Model) Current() *Level { return m.current }

// Level returns the level for key, or nil if it was never visited.
func (m *Model) Level(key Key) *Level { return m.levels[key] }

// Levels returns the visited region keys, ordered.
func (m *Model) Levels() []Key {
	keys := make([]Key, 0, len(m.levels))
	for k := range m.levels {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return keys
}

// Find returns the cells whose remembered terrain is of category c, in
// row-major order.
func (m *Model) Find(lvl *Level, c glyph.Category) []grid.Point {
	var out []grid.Point
	lvl.Terrain.Each(func(p grid.Point, g glyph.Glyph) {
		if g != glyph.None && m.classifier.Classify(g) == c {
			out = append(out, p)
		}
	})
	return out
}

// Ingest folds an observation into the level of its region, creating the
// level on first visit.
func (m *Model) Ingest(obs env.Observation) (*Level, error) {
	if obs.Glyphs.Height() != m.height || obs.Glyphs.Width() != m.width {
		return nil, fmt.Errorf("world: observation is %dx%d, want %dx%d",
			obs.Glyphs.Height(), obs.Glyphs.Width(), m.height, m.width)
	}
	if !obs.Glyphs.In(obs.Pos) {
		return nil, fmt.Errorf("world: position %v outside the map", obs.Pos)
	}

	key := KeyOf(obs.Stats)
	lvl, ok := m.levels[key]
	if !ok {
		lvl = newLevel(key, m.height, m.width)
		m.levels[key] = lvl
	}
	m.current = lvl

	obs.Glyphs.Each(func(p grid.Point, g glyph.Glyph) {
		switch c := m.classifier.Classify(g); {
		case c.Terrain():
			lvl.Walkable.Set(p, true)
			lvl.Seen.Set(p, true)
			lvl.Occupant.Set(p, g)
			lvl.Terrain.Set(p, g)
		case c.Occupant():
			lvl.Walkable.Set(p, true)
			lvl.Seen.Set(p, true)
			lvl.Occupant.Set(p, g)
		case c.Obstacle(), c == glyph.Trap:
			lvl.Seen.Set(p, true)
			lvl.Occupant.Set(p, g)
			lvl.Terrain.Set(p, g)
		}
	})

	for _, p := range obs.Glyphs.Neighbors(obs.Pos, true) {
		if g := obs.Glyphs.At(p); m.classifier.Classify(g) == glyph.Stone {
			lvl.Seen.Set(p, true)
			lvl.Occupant.Set(p, g)
		}
	}

	if m.zoneMarker != "" && strings.Contains(obs.Message, m.zoneMarker) {
		lvl.Special.Set(obs.Pos, true)
	}

	return lvl, nil
}
