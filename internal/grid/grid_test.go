package grid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGrid_SetAtClone(t *testing.T) {
	t.Parallel()

	g := New[int](3, 4)
	require.Equal(t, 3, g.Height())
	require.Equal(t, 4, g.Width())

	g.Set(Pt(2, 3), 7)
	require.Equal(t, 7, g.At(Pt(2, 3)))

	c := g.Clone()
	c.Set(Pt(2, 3), 9)
	require.Equal(t, 7, g.At(Pt(2, 3)), "clone must not share storage")

	require.Panics(t, func() { g.At(Pt(3, 0)) })
}

func TestGrid_Neighbors(t *testing.T) {
	t.Parallel()

	g := New[bool](3, 3)
	require.Len(t, g.Neighbors(Pt(1, 1), true), 8)
	require.Len(t, g.Neighbors(Pt(1, 1), false), 4)
	require.ElementsMatch(t, []Point{Pt(0, 1), Pt(1, 0), Pt(1, 1)}, g.Neighbors(Pt(0, 0), true))
}

func TestPoint_Adjacent(t *testing.T) {
	t.Parallel()

	p := Pt(5, 5)
	require.True(t, p.Adjacent(Pt(4, 4)))
	require.False(t, p.Adjacent(p))
	require.False(t, p.Adjacent(Pt(5, 7)))
	require.Equal(t, 2, p.Chebyshev(Pt(7, 4)))
	require.True(t, Pt(0, 9).Less(Pt(1, 0)))
}
