// Package trinomial builds one-factor recombining trinomial trees of spot
// prices calibrated to a forward curve.
package trinomial

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bcdannyboy/cmdty/curves"
	"github.com/bcdannyboy/cmdty/errs"
)

var log = logrus.WithField("component", "trinomial")

// jMaxThreshold bounds the branching probabilities away from negative values
// (Hull & White).
const jMaxThreshold = 0.184

// Transition links a node to one of its successors in the next level.
type Transition struct {
	Probability float64
	Level       int // index of the destination level
	Index       int // position of the destination within its level
}

// Node is one spot price state of the lattice.
type Node struct {
	Value       float64
	Probability float64 // probability of reaching this node from the root
	LevelIndex  int
	Transitions []Transition // down, middle, up; empty on the last level
}

// IsTerminal reports whether the node belongs to the last period.
func (n *Node) IsTerminal() bool {
	return len(n.Transitions) == 0
}

// Tree is a calibrated lattice, one level of nodes per forward curve period.
type Tree struct {
	periods []time.Time
	levels  [][]Node
	drifts  []float64

	jMax           int
	spacing        float64
	expectedReturn float64
}

// CreateTree builds a Hull-White style lognormal tree whose probability
// weighted node prices reproduce the forward curve in every period.
func CreateTree(forward *curves.Curve, meanReversion float64, volatility *curves.Curve, timeDelta float64) (*Tree, error) {
	if forward.Len() < 2 {
		return nil, errs.Config("forwardCurve", "needs at least 2 points, got %d", forward.Len())
	}
	if !(meanReversion > 0) {
		return nil, errs.Config("meanReversion", "must be positive, got %v", meanReversion)
	}
	if !(timeDelta > 0) {
		return nil, errs.Config("timeDelta", "must be positive, got %v", timeDelta)
	}
	if volatility.IsEmpty() {
		return nil, errs.Config("volatilityCurve", "curve is empty")
	}
	if !volatility.Covers(forward.Start(), forward.End()) {
		return nil, errs.Config("volatilityCurve", "range %s..%s does not cover forward curve %s..%s",
			volatility.Start().Format(time.DateOnly), volatility.End().Format(time.DateOnly),
			forward.Start().Format(time.DateOnly), forward.End().Format(time.DateOnly))
	}

	numPeriods := forward.Len()
	periods := forward.Periods()
	forwards := forward.Values()
	vols := make([]float64, numPeriods)
	for i, p := range periods {
		v, ok := volatility.Value(p)
		if !ok {
			return nil, errs.Config("volatilityCurve", "no volatility for %s", p.Format(time.DateOnly))
		}
		vols[i] = v
	}

	ouVariance := -math.Expm1(-2*meanReversion*timeDelta) / (2 * meanReversion)
	spacing := math.Sqrt(3 * ouVariance)
	m := math.Exp(-meanReversion*timeDelta) - 1
	jMax := int(math.Ceil(-jMaxThreshold / m))
	maxWidth := 2*jMax + 1

	t := &Tree{
		periods:        periods,
		levels:         make([][]Node, numPeriods),
		drifts:         make([]float64, numPeriods),
		jMax:           jMax,
		spacing:        spacing,
		expectedReturn: m,
	}

	cache := newBranchCache(jMax, (levelWidth(numPeriods-1, maxWidth)-1)/2, m)
	probabilities := forwardInduction(numPeriods, maxWidth, cache)

	for i := 0; i < numPeriods; i++ {
		t.drifts[i] = driftAdjustment(forwards[i], vols[i], spacing, probabilities[i])
	}

	// Backward, so every transition points at an already populated level.
	for i := numPeriods - 1; i >= 0; i-- {
		n := len(probabilities[i])
		half := (n - 1) / 2
		level := make([]Node, n)
		for k := range level {
			j := k - half
			level[k] = Node{
				Value:       math.Exp(spacing*float64(j)*vols[i] + t.drifts[i]),
				Probability: probabilities[i][k],
				LevelIndex:  k,
			}
			if i < numPeriods-1 {
				level[k].Transitions = transitions(i+1, k, n, maxWidth, cache.get(j))
			}
		}
		t.levels[i] = level
	}

	log.Debugf("built tree: %d periods, jMax=%d, width=%d, dx=%.6f", numPeriods, jMax, maxWidth, spacing)
	return t, nil
}

// levelWidth is the node count of level i: the lattice widens by one node on
// each side per step until it saturates at maxWidth.
func levelWidth(i, maxWidth int) int {
	if w := 2*i + 1; w < maxWidth {
		return w
	}
	return maxWidth
}

// successors returns the positions in the next level reached from position k
// of a level holding n nodes, ordered down, middle, up.
func successors(k, n, maxWidth int) [3]int {
	if n < maxWidth {
		return [3]int{k, k + 1, k + 2}
	}
	switch k {
	case 0:
		return [3]int{0, 1, 2}
	case n - 1:
		return [3]int{n - 3, n - 2, n - 1}
	}
	return [3]int{k - 1, k, k + 1}
}

func transitions(nextLevel, k, n, maxWidth int, b Branching) []Transition {
	dest := successors(k, n, maxWidth)
	return []Transition{
		{Probability: b.Down, Level: nextLevel, Index: dest[0]},
		{Probability: b.Middle, Level: nextLevel, Index: dest[1]},
		{Probability: b.Up, Level: nextLevel, Index: dest[2]},
	}
}

// forwardInduction scatters the reach probability of every node into its
// three successors, level by level.
func forwardInduction(numPeriods, maxWidth int, cache *branchCache) [][]float64 {
	probabilities := make([][]float64, numPeriods)
	probabilities[0] = []float64{1.0}

	for i := 0; i < numPeriods-1; i++ {
		current := probabilities[i]
		n := len(current)
		half := (n - 1) / 2
		next := make([]float64, levelWidth(i+1, maxWidth))
		for k, p := range current {
			b := cache.get(k - half)
			dest := successors(k, n, maxWidth)
			next[dest[0]] += p * b.Down
			next[dest[1]] += p * b.Middle
			next[dest[2]] += p * b.Up
		}
		probabilities[i+1] = next
	}
	return probabilities
}

// driftAdjustment solves Σ p_j·exp(σ·dx·j + a) = F for a.
func driftAdjustment(forward, vol, spacing float64, probabilities []float64) float64 {
	half := (len(probabilities) - 1) / 2
	expectation := 0.0
	for k, p := range probabilities {
		expectation += p * math.Exp(spacing*float64(k-half)*vol)
	}
	return math.Log(forward / expectation)
}
