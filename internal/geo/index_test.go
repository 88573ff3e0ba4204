package geo

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_Search(t *testing.T) {
	ix, err := NewIndex([]Box{
		{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1},
		{MinX: 0.5, MinY: 0.5, MaxX: 2, MaxY: 2},
		{MinX: 5, MinY: 5, MaxX: 6, MaxY: 6},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())

	var hits []int
	ix.SearchPoint(0.75, 0.75, func(ref int) bool {
		hits = append(hits, ref)
		return true
	})
	sort.Ints(hits)
	assert.Equal(t, []int{0, 1}, hits)

	hits = nil
	ix.Search(Box{MinX: 3, MinY: 3, MaxX: 4, MaxY: 4}, func(ref int) bool {
		hits = append(hits, ref)
		return true
	})
	assert.Empty(t, hits)
}

func TestIndex_Empty(t *testing.T) {
	ix, err := NewIndex(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
	ix.SearchPoint(0, 0, func(int) bool {
		t.Fatal("empty index returned a hit")
		return true
	})
}
