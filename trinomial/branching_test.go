package trinomial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCentralBranchingAtZero(t *testing.T) {
	b := BranchProbabilities(0, Central, -0.05)
	assert.InDelta(t, 1.0/6.0, b.Down, 1e-15)
	assert.InDelta(t, 2.0/3.0, b.Middle, 1e-15)
	assert.InDelta(t, 1.0/6.0, b.Up, 1e-15)
}

// moments returns the expected move and its second moment, in node units,
// for the destinations each kind branches to.
func moments(kind NodeKind, b Branching) (mean, second float64) {
	var moves [3]float64 // down, middle, up
	switch kind {
	case Central:
		moves = [3]float64{-1, 0, 1}
	case BottomEdge:
		moves = [3]float64{0, 1, 2}
	case TopEdge:
		moves = [3]float64{-2, -1, 0}
	}
	ps := [3]float64{b.Down, b.Middle, b.Up}
	for i := range ps {
		mean += ps[i] * moves[i]
		second += ps[i] * moves[i] * moves[i]
	}
	return mean, second
}

func TestBranchingMatchesOUMoments(t *testing.T) {
	m := math.Exp(-16.0/365) - 1
	jMax := int(math.Ceil(-0.184 / m))

	for j := -jMax; j <= jMax; j++ {
		kind := KindOf(j, jMax)
		b := BranchProbabilities(j, kind, m)

		assert.InDelta(t, 1.0, b.Sum(), 1e-14, "j=%d %s", j, kind)
		assert.Greater(t, b.Down, 0.0)
		assert.Greater(t, b.Middle, 0.0)
		assert.Greater(t, b.Up, 0.0)

		mean, second := moments(kind, b)
		jm := float64(j) * m
		assert.InDelta(t, jm, mean, 1e-14, "j=%d %s", j, kind)
		assert.InDelta(t, 1.0/3.0+jm*jm, second, 1e-14, "j=%d %s", j, kind)
	}
}

func TestEdgeBranchingIsMirrored(t *testing.T) {
	m := -0.04
	for j := 1; j < 8; j++ {
		top := BranchProbabilities(j, TopEdge, m)
		bottom := BranchProbabilities(-j, BottomEdge, m)
		assert.InDelta(t, top.Up, bottom.Down, 1e-15)
		assert.InDelta(t, top.Middle, bottom.Middle, 1e-15)
		assert.InDelta(t, top.Down, bottom.Up, 1e-15)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, BottomEdge, KindOf(-4, 4))
	assert.Equal(t, TopEdge, KindOf(4, 4))
	assert.Equal(t, Central, KindOf(3, 4))
	assert.Equal(t, Central, KindOf(0, 4))
	assert.Equal(t, "top-edge", TopEdge.String())
}

func TestBranchCache(t *testing.T) {
	m := -0.03
	c := newBranchCache(7, 7, m)
	for j := -7; j <= 7; j++ {
		assert.Equal(t, BranchProbabilities(j, KindOf(j, 7), m), c.get(j))
		assert.True(t, c.filled[j+7])
	}

	narrow := newBranchCache(40, 3, m)
	assert.Len(t, narrow.entries, 7)
	assert.Equal(t, BranchProbabilities(3, Central, m), narrow.get(3))
}
