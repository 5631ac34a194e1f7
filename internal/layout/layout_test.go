package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("echo-%d", i)
	}
	return ids
}

func TestGenerate_Deterministic(t *testing.T) {
	ids := makeIDs(12)
	a := Generate(ids, "pond", 10)
	b := Generate(ids, "pond", 10)
	assert.Equal(t, a, b)

	c := Generate(ids, "other-seed", 10)
	assert.NotEqual(t, a, c)
}

func TestGenerate_StaysInBounds(t *testing.T) {
	for _, pos := range Generate(makeIDs(40), "bounds", 6) {
		assert.GreaterOrEqual(t, pos.X, MinX)
		assert.Less(t, pos.X, MaxX)
		assert.GreaterOrEqual(t, pos.Y, MinY)
		assert.Less(t, pos.Y, MaxY)
		assert.GreaterOrEqual(t, pos.AnimationDuration, minDuration)
		assert.Less(t, pos.AnimationDuration, maxDuration)
		assert.GreaterOrEqual(t, pos.AnimationDelay, 0.0)
		assert.Less(t, pos.AnimationDelay, maxDelay)
	}
}

func TestGenerate_Separation(t *testing.T) {
	const minDistance = 12.0
	ids := makeIDs(15)
	got := Generate(ids, "spread", minDistance)
	require.Len(t, got, len(ids))

	for i, a := range ids {
		for _, b := range ids[i+1:] {
			pa, pb := got[a], got[b]
			if pa.Crowded || pb.Crowded {
				continue
			}
			assert.GreaterOrEqual(t, math.Hypot(pa.X-pb.X, pa.Y-pb.Y), minDistance, "%s vs %s", a, b)
		}
	}
}

func TestGenerate_CapTerminates(t *testing.T) {
	// nothing fits twice in a 84x75 area with this distance
	got := Generate(makeIDs(5), "crowded", 500)
	require.Len(t, got, 5)
	assert.False(t, got["echo-0"].Crowded)
	for _, id := range makeIDs(5)[1:] {
		assert.True(t, got[id].Crowded, id)
	}
}

func TestGenerate_EmptyAndDuplicates(t *testing.T) {
	assert.Empty(t, Generate(nil, "x", 10))

	got := Generate([]string{"a", "a", "b"}, "x", 10)
	assert.Len(t, got, 2)
	assert.Equal(t, Generate([]string{"a", "b"}, "x", 10), got)
}

func TestExtend_KeepsExistingPositions(t *testing.T) {
	first := Generate(makeIDs(5), "pond", 10)

	ids := append([]string{"new-1"}, makeIDs(5)...)
	next := Extend(first, ids, "pond", 10)
	require.Len(t, next, 6)
	for id, pos := range first {
		assert.Equal(t, pos, next[id])
	}

	assert.Equal(t, next, Extend(first, ids, "pond", 10))
}

func TestExtend_DropsRemovedIDs(t *testing.T) {
	first := Generate(makeIDs(4), "pond", 10)
	next := Extend(first, []string{"echo-1", "echo-3"}, "pond", 10)

	assert.Len(t, next, 2)
	assert.Equal(t, first["echo-1"], next["echo-1"])
	assert.NotContains(t, next, "echo-0")
}

func TestExtend_NewIDIndependentOfNeighbours(t *testing.T) {
	// zero distance: no candidate is ever rejected
	a := Extend(nil, []string{"x"}, "pond", 0)
	b := Extend(nil, []string{"y", "x"}, "pond", 0)
	assert.Equal(t, a["x"], b["x"])
}

func TestPlace_StopsAfterMaxAttempts(t *testing.T) {
	p := &placer{minDistance: 1000, points: []Position{{X: 50, Y: 50}}}
	pos := p.place(newRand("crowded"))
	assert.True(t, pos.Crowded)

	// MaxAttempts candidates use two draws each, then duration and delay.
	r := newRand("crowded")
	var lastX, lastY float64
	for i := 0; i < MaxAttempts; i++ {
		lastX = r.Between(MinX, MaxX)
		lastY = r.Between(MinY, MaxY)
	}
	assert.Equal(t, lastX, pos.X)
	assert.Equal(t, lastY, pos.Y)
	assert.Equal(t, r.Between(minDuration, maxDuration), pos.AnimationDuration)
	assert.Equal(t, r.Between(0, maxDelay), pos.AnimationDelay)
}
