package trinomial

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdannyboy/cmdty/curves"
	"github.com/bcdannyboy/cmdty/errs"
)

const tolerance = 1e-12

var start = curves.Day(2019, 12, 19)

// seasonalForward returns a daily forward curve with a winter premium.
func seasonalForward(t *testing.T, days int) *curves.Curve {
	c, err := curves.Daily(start, start.AddDate(0, 0, days-1), func(day time.Time) float64 {
		return 55 + 6*math.Cos(2*math.Pi*float64(day.YearDay())/365) + 0.01*float64(day.Sub(start).Hours()/24)
	})
	require.NoError(t, err)
	return c
}

func constantVol(t *testing.T, vol float64, days int) *curves.Curve {
	c, err := curves.Constant(start.AddDate(0, 0, -1), start.AddDate(0, 0, days), vol)
	require.NoError(t, err)
	return c
}

type treeCase struct {
	name          string
	days          int
	meanReversion float64
	vol           float64
	timeDelta     float64
}

var treeCases = []treeCase{
	{"saturated", 120, 16, 0.8, 1.0 / 365},
	{"still widening", 25, 2.0, 0.45, 1.0 / 365},
	{"narrow lattice", 40, 90, 1.2, 1.0 / 365},
	{"weekly steps", 60, 4.5, 0.3, 7.0 / 365},
}

func buildCase(t *testing.T, tc treeCase) (*Tree, *curves.Curve) {
	forward := seasonalForward(t, tc.days)
	tree, err := CreateTree(forward, tc.meanReversion, constantVol(t, tc.vol, tc.days), tc.timeDelta)
	require.NoError(t, err)
	require.Equal(t, forward.Len(), tree.Len())
	return tree, forward
}

func TestProbabilitiesSumToOne(t *testing.T) {
	for _, tc := range treeCases {
		t.Run(tc.name, func(t *testing.T) {
			tree, _ := buildCase(t, tc)
			for i := 0; i < tree.Len(); i++ {
				assert.InDelta(t, 1.0, tree.ProbabilitySum(i), tolerance, "period %d", i)
			}
		})
	}
}

func TestTransitionProbabilitiesSumToOne(t *testing.T) {
	for _, tc := range treeCases {
		t.Run(tc.name, func(t *testing.T) {
			tree, _ := buildCase(t, tc)
			for i := 0; i < tree.Len()-1; i++ {
				for _, node := range tree.Level(i) {
					sum := 0.0
					for _, tr := range node.Transitions {
						assert.GreaterOrEqual(t, tr.Probability, 0.0)
						sum += tr.Probability
					}
					assert.InDelta(t, 1.0, sum, tolerance)
				}
			}
		})
	}
}

func TestExpectedValueMatchesForward(t *testing.T) {
	for _, tc := range treeCases {
		t.Run(tc.name, func(t *testing.T) {
			tree, forward := buildCase(t, tc)
			for i := 0; i < tree.Len(); i++ {
				_, f := forward.At(i)
				assert.InEpsilon(t, f, tree.ExpectedValue(i), tolerance, "period %d", i)
			}
		})
	}
}

func TestLevelShape(t *testing.T) {
	for _, tc := range treeCases {
		t.Run(tc.name, func(t *testing.T) {
			tree, _ := buildCase(t, tc)
			last := tree.Len() - 1
			for i := 0; i < tree.Len(); i++ {
				level := tree.Level(i)
				want := 2*i + 1
				if want > tree.MaxWidth() {
					want = tree.MaxWidth()
				}
				require.Len(t, level, want, "period %d", i)

				for k, node := range level {
					assert.Equal(t, k, node.LevelIndex)
					if i == last {
						assert.True(t, node.IsTerminal())
						assert.Empty(t, node.Transitions)
					} else {
						assert.False(t, node.IsTerminal())
						assert.Len(t, node.Transitions, 3)
					}
				}
			}
		})
	}
}

func TestLogValueVarianceMatchesOU(t *testing.T) {
	for _, tc := range treeCases {
		t.Run(tc.name, func(t *testing.T) {
			tree, _ := buildCase(t, tc)
			for i := 0; i < tree.Len(); i++ {
				level := tree.Level(i)
				mean := 0.0
				for _, node := range level {
					mean += node.Probability * math.Log(node.Value)
				}
				variance := 0.0
				for _, node := range level {
					d := math.Log(node.Value) - mean
					variance += node.Probability * d * d
				}

				tm := float64(i) * tc.timeDelta
				want := tc.vol * tc.vol * (1 - math.Exp(-2*tc.meanReversion*tm)) / (2 * tc.meanReversion)
				assert.InDelta(t, want, variance, tolerance, "period %d", i)
			}
		})
	}
}

func TestTransitionsReachNextLevel(t *testing.T) {
	tree, _ := buildCase(t, treeCases[0])
	require.Greater(t, tree.Len(), tree.JMax()+1, "case must saturate")

	for i := 0; i < tree.Len()-1; i++ {
		level := tree.Level(i)
		for k := range level {
			trs := level[k].Transitions
			for _, tr := range trs {
				assert.Equal(t, i+1, tr.Level)
				dest := tree.Destination(tr)
				assert.Same(t, &tree.Level(i + 1)[tr.Index], dest)
			}
			// down, middle, up are adjacent and ascending
			assert.Equal(t, trs[0].Index+1, trs[1].Index)
			assert.Equal(t, trs[1].Index+1, trs[2].Index)
			assert.Less(t, tree.Destination(trs[0]).Value, tree.Destination(trs[2]).Value)
		}
	}

	saturated := tree.Level(tree.Len() - 2)
	require.Len(t, saturated, tree.MaxWidth())
	bottom := saturated[0].Transitions
	assert.Equal(t, []int{0, 1, 2}, []int{bottom[0].Index, bottom[1].Index, bottom[2].Index})
	top := saturated[len(saturated)-1].Transitions
	w := tree.MaxWidth()
	assert.Equal(t, []int{w - 3, w - 2, w - 1}, []int{top[0].Index, top[1].Index, top[2].Index})
}

func TestReachProbabilityPropagates(t *testing.T) {
	tree, _ := buildCase(t, treeCases[0])
	for i := 1; i < tree.Len(); i++ {
		reached := make([]float64, len(tree.Level(i)))
		for _, node := range tree.Level(i - 1) {
			for _, tr := range node.Transitions {
				reached[tr.Index] += node.Probability * tr.Probability
			}
		}
		for k, node := range tree.Level(i) {
			assert.InDelta(t, node.Probability, reached[k], tolerance)
		}
	}
}

func TestTreeGeometry(t *testing.T) {
	lambda, dt := 16.0, 1.0/365
	tree, _ := buildCase(t, treeCases[0])

	m := math.Exp(-lambda*dt) - 1
	assert.InDelta(t, m, tree.ExpectedReturn(), 1e-15)
	assert.Equal(t, int(math.Ceil(-0.184/m)), tree.JMax())
	assert.Equal(t, 5, tree.JMax())
	assert.InDelta(t, math.Sqrt(3*(1-math.Exp(-2*lambda*dt))/(2*lambda)), tree.NodeSpacing(), 1e-15)

	lo, hi := tree.ValueRange(tree.Len() - 1)
	assert.Less(t, lo, hi)

	nodes, ok := tree.LevelForPeriod(start.AddDate(0, 0, 3))
	require.True(t, ok)
	assert.Len(t, nodes, 7)
	_, ok = tree.LevelForPeriod(start.AddDate(0, 0, -3))
	assert.False(t, ok)
}

func TestFirstLevelIsForward(t *testing.T) {
	tree, forward := buildCase(t, treeCases[1])
	root := tree.Level(0)
	require.Len(t, root, 1)
	_, f := forward.At(0)
	assert.InEpsilon(t, f, root[0].Value, tolerance)
	assert.Equal(t, 1.0, root[0].Probability)
}

func TestCreateTreeValidation(t *testing.T) {
	forward := seasonalForward(t, 10)
	vol := constantVol(t, 0.5, 10)

	single, err := curves.New([]time.Time{start}, []float64{50})
	require.NoError(t, err)
	shortVol, err := curves.Constant(start, start.AddDate(0, 0, 5), 0.5)
	require.NoError(t, err)
	sparseVol, err := curves.New([]time.Time{start, start.AddDate(0, 0, 30)}, []float64{0.5, 0.5})
	require.NoError(t, err)

	tests := []struct {
		name          string
		forward       *curves.Curve
		meanReversion float64
		vol           *curves.Curve
		timeDelta     float64
		param         string
	}{
		{"single point forward", single, 1, vol, 1.0 / 365, "forwardCurve"},
		{"nil forward", nil, 1, vol, 1.0 / 365, "forwardCurve"},
		{"zero mean reversion", forward, 0, vol, 1.0 / 365, "meanReversion"},
		{"negative mean reversion", forward, -3, vol, 1.0 / 365, "meanReversion"},
		{"NaN mean reversion", forward, math.NaN(), vol, 1.0 / 365, "meanReversion"},
		{"zero time delta", forward, 1, vol, 0, "timeDelta"},
		{"negative time delta", forward, 1, vol, -1, "timeDelta"},
		{"empty vol", forward, 1, nil, 1.0 / 365, "volatilityCurve"},
		{"vol too short", forward, 1, shortVol, 1.0 / 365, "volatilityCurve"},
		{"vol with gaps", forward, 1, sparseVol, 1.0 / 365, "volatilityCurve"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := CreateTree(tt.forward, tt.meanReversion, tt.vol, tt.timeDelta)
			assert.Nil(t, tree)
			assert.True(t, errs.IsConfig(err))
			assert.Equal(t, tt.param, errs.ParamOf(err))
		})
	}
}
