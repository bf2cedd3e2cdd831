package blackboard

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlackboard_BasicOperations(t *testing.T) {
	t.Parallel()

	bb := new(Blackboard)
	require.Nil(t, bb.Get("missing"))
	require.False(t, bb.Bool("missing"))
	require.Nil(t, bb.Snapshot())

	bb.Set(KeyStairsDown, true)
	bb.Set(KeyDepth, 3)
	require.True(t, bb.Bool(KeyStairsDown))
	require.False(t, bb.Bool(KeyDepth), "wrong type")
	d, ok := bb.Int(KeyDepth)
	require.True(t, ok)
	require.Equal(t, 3, d)
	_, ok = bb.Int(KeyStairsDown)
	require.False(t, ok)

	bb.Update(map[string]any{KeyScore: 10, KeyTurn: 7, KeyDepth: 4})
	snap := bb.Snapshot()
	require.Equal(t, map[string]any{KeyStairsDown: true, KeyDepth: 4, KeyScore: 10, KeyTurn: 7}, snap)

	snap[KeyScore] = 99
	require.Equal(t, 10, bb.Get(KeyScore), "snapshot is a copy")
}

func TestBlackboard_Concurrent(t *testing.T) {
	t.Parallel()

	var bb Blackboard
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k%d", i)
				bb.Set(key, j)
				_ = bb.Get(key)
				_ = bb.Snapshot()
			}
		}()
	}
	wg.Wait()
	require.Len(t, bb.Snapshot(), 8)
}
