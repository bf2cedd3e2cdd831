package world_test

import (
	"testing"

	"github.com/joeycumines/heur/internal/env"
	"github.com/joeycumines/heur/internal/glyph"
	"github.com/joeycumines/heur/internal/grid"
	"github.com/joeycumines/heur/internal/testutil"
	"github.com/joeycumines/heur/internal/world"
	"github.com/stretchr/testify/require"
)

func ingestAll(t *testing.T, m *world.Model, w *testutil.World, actions ...env.Action) *world.Level {
	t.Helper()
	obs, err := w.Reset()
	require.NoError(t, err)
	lvl, err := m.Ingest(obs)
	require.NoError(t, err)
	for _, a := range actions {
		obs, _, _, err = w.Step(a)
		require.NoError(t, err)
		lvl, err = m.Ingest(obs)
		require.NoError(t, err)
	}
	return lvl
}

func TestModel_Ingest_Classification(t *testing.T) {
	t.Parallel()

	w := testutil.MustParseMap(
		"-----    ",
		"|@.%+#   ",
		"-----    ",
	)
	m := world.New(testutil.Table(), 3, 9)
	lvl := ingestAll(t, m, w)

	require.Same(t, lvl, m.Current())
	require.Equal(t, world.Key{Branch: 0, Depth: 1}, lvl.Key)

	require.True(t, lvl.Walkable.At(grid.Pt(1, 2)))
	require.True(t, lvl.Walkable.At(grid.Pt(1, 3)), "items are walkable")
	require.Equal(t, testutil.Food, lvl.Occupant.At(grid.Pt(1, 3)))
	require.Equal(t, glyph.None, lvl.Terrain.At(grid.Pt(1, 3)), "items are not terrain")
	require.Equal(t, testutil.Player, lvl.Occupant.At(grid.Pt(1, 1)))
	require.Equal(t, testutil.DoorClosed, lvl.Terrain.At(grid.Pt(1, 4)))
	require.Equal(t, []grid.Point{grid.Pt(1, 4)}, m.Find(lvl, glyph.DoorClosed))
	require.True(t, lvl.Walkable.At(grid.Pt(1, 5)))

	require.True(t, lvl.Seen.At(grid.Pt(0, 0)))
	require.False(t, lvl.Walkable.At(grid.Pt(0, 0)), "walls are seen only")
	require.True(t, lvl.Seen.At(grid.Pt(1, 4)))
	require.False(t, lvl.Walkable.At(grid.Pt(1, 4)), "closed doors are seen only")

	require.False(t, lvl.Seen.At(grid.Pt(1, 7)))
	require.Equal(t, glyph.None, lvl.Occupant.At(grid.Pt(1, 7)))
	require.Equal(t, world.NeverFresh, lvl.Freshness.At(grid.Pt(1, 1)))
}

func TestModel_Ingest_VoidAroundAgent(t *testing.T) {
	t.Parallel()

	w := testutil.MustParseMap(
		"     ",
		" #@# ",
		"     ",
	)
	m := world.New(testutil.Table(), 3, 5)
	lvl := ingestAll(t, m, w)

	for _, p := range []grid.Point{grid.Pt(0, 1), grid.Pt(0, 2), grid.Pt(0, 3), grid.Pt(2, 1), grid.Pt(2, 2), grid.Pt(2, 3)} {
		require.True(t, lvl.Seen.At(p), "%v", p)
		require.False(t, lvl.Walkable.At(p), "%v", p)
		require.Equal(t, testutil.Stone, lvl.Occupant.At(p), "%v", p)
	}
	require.False(t, lvl.Seen.At(grid.Pt(0, 0)))
	require.False(t, lvl.Seen.At(grid.Pt(1, 0)))
}

func TestModel_Ingest_Monotonic(t *testing.T) {
	t.Parallel()

	w := testutil.MustParseMap(
		"---------",
		"|@......|",
		"|.......|",
		"---------",
	)
	w.SightRadius = 2
	m := world.New(testutil.Table(), 4, 9)

	obs, err := w.Reset()
	require.NoError(t, err)
	prev, err := m.Ingest(obs)
	require.NoError(t, err)
	seen, walkable := prev.Seen.Clone(), prev.Walkable.Clone()

	for _, a := range []env.Action{env.East, env.East, env.East, env.SouthEast, env.East, env.West, env.West, env.NorthWest} {
		obs, _, _, err = w.Step(a)
		require.NoError(t, err)
		lvl, err := m.Ingest(obs)
		require.NoError(t, err)
		require.Same(t, prev, lvl)

		seen.Each(func(p grid.Point, v bool) {
			if v {
				require.True(t, lvl.Seen.At(p), "seen retracted at %v", p)
			}
		})
		walkable.Each(func(p grid.Point, v bool) {
			if v {
				require.True(t, lvl.Walkable.At(p), "walkable retracted at %v", p)
			}
		})
		seen, walkable = lvl.Seen.Clone(), lvl.Walkable.Clone()
	}
	require.True(t, seen.At(grid.Pt(1, 7)))
}

func TestModel_Ingest_Regions(t *testing.T) {
	t.Parallel()

	w := testutil.MustParseMap("@>.")
	m := world.New(testutil.Table(), 1, 3)
	ingestAll(t, m, w, env.East, env.Down)

	require.Equal(t, []world.Key{{Branch: 0, Depth: 1}, {Branch: 0, Depth: 2}}, m.Levels())
	require.NotSame(t, m.Level(world.Key{Depth: 1}), m.Level(world.Key{Depth: 2}))
	require.Same(t, m.Current(), m.Level(world.Key{Depth: 2}))
	require.Nil(t, m.Level(world.Key{Branch: world.Sokoban, Depth: 1}))
}

func TestModel_Ingest_ZoneMarker(t *testing.T) {
	t.Parallel()

	w := testutil.MustParseMap("@..")
	m := world.New(testutil.Table(), 1, 3)
	obs, err := w.Reset()
	require.NoError(t, err)
	obs.Message = "You see here a food ration (for sale, 45 zorkmids)."
	lvl, err := m.Ingest(obs)
	require.NoError(t, err)
	require.True(t, lvl.Special.At(grid.Pt(0, 0)))
	require.False(t, lvl.Special.At(grid.Pt(0, 1)))

	m = world.New(testutil.Table(), 1, 3, world.WithZoneMarker(""))
	lvl, err = m.Ingest(obs)
	require.NoError(t, err)
	require.False(t, lvl.Special.At(grid.Pt(0, 0)))
}

func TestModel_Ingest_DimensionMismatch(t *testing.T) {
	t.Parallel()

	w := testutil.MustParseMap("@..")
	m := world.New(testutil.Table(), 21, 79)
	obs, err := w.Reset()
	require.NoError(t, err)
	_, err = m.Ingest(obs)
	require.Error(t, err)
	require.Nil(t, m.Current())
}

func TestLevel_SearchAndFreshness(t *testing.T) {
	t.Parallel()

	w := testutil.MustParseMap("@..")
	m := world.New(testutil.Table(), 1, 3)
	lvl := ingestAll(t, m, w)

	lvl.RecordSearch(grid.Pt(0, 1))
	lvl.RecordSearch(grid.Pt(0, 1))
	require.Equal(t, 2, lvl.SearchCount.At(grid.Pt(0, 1)))
	require.Zero(t, lvl.SearchCount.At(grid.Pt(0, 0)))

	require.False(t, lvl.IsFresh(grid.Pt(0, 2), 0, 20))
	lvl.MarkFresh(grid.Pt(0, 2), 100)
	require.True(t, lvl.IsFresh(grid.Pt(0, 2), 120, 20))
	require.False(t, lvl.IsFresh(grid.Pt(0, 2), 121, 20))
}
