package trinomial

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/bcdannyboy/cmdty/curves"
)

// Len returns the number of levels, one per forward curve period.
func (t *Tree) Len() int { return len(t.levels) }

func (t *Tree) Period(i int) time.Time { return t.periods[i] }

// Periods returns a copy of the tree's periods.
func (t *Tree) Periods() []time.Time {
	out := make([]time.Time, len(t.periods))
	copy(out, t.periods)
	return out
}

// Level returns the nodes of level i, bottom to top.
func (t *Tree) Level(i int) []Node { return t.levels[i] }

// LevelForPeriod returns the nodes of the level built for period.
func (t *Tree) LevelForPeriod(period time.Time) ([]Node, bool) {
	period = curves.Normalize(period)
	for i, p := range t.periods {
		if p.Equal(period) {
			return t.levels[i], true
		}
	}
	return nil, false
}

// Destination resolves a transition to the node it points at.
func (t *Tree) Destination(tr Transition) *Node {
	return &t.levels[tr.Level][tr.Index]
}

// JMax is the half-width at which branching switches to the edge formulas.
func (t *Tree) JMax() int { return t.jMax }

// MaxWidth is the saturated node count per level, 2·jMax+1.
func (t *Tree) MaxWidth() int { return 2*t.jMax + 1 }

// NodeSpacing is the distance dx between adjacent OU states.
func (t *Tree) NodeSpacing() float64 { return t.spacing }

// ExpectedReturn is the one-step OU return e^(-λΔt) - 1.
func (t *Tree) ExpectedReturn() float64 { return t.expectedReturn }

// DriftAdjustment is the additive log-price correction of level i.
func (t *Tree) DriftAdjustment(i int) float64 { return t.drifts[i] }

// ProbabilitySum adds up the reach probabilities of level i.
func (t *Tree) ProbabilitySum(i int) float64 {
	level := t.levels[i]
	probabilities := make([]float64, len(level))
	for k := range level {
		probabilities[k] = level[k].Probability
	}
	return floats.Sum(probabilities)
}

// ExpectedValue is the probability weighted node price of level i. For a
// calibrated tree it equals the forward price of the period.
func (t *Tree) ExpectedValue(i int) float64 {
	level := t.levels[i]
	probabilities := make([]float64, len(level))
	values := make([]float64, len(level))
	for k := range level {
		probabilities[k] = level[k].Probability
		values[k] = level[k].Value
	}
	return floats.Dot(probabilities, values)
}

// ValueRange returns the lowest and highest node price of level i.
func (t *Tree) ValueRange(i int) (lo, hi float64) {
	level := t.levels[i]
	values := make([]float64, len(level))
	for k := range level {
		values[k] = level[k].Value
	}
	return floats.Min(values), floats.Max(values)
}
