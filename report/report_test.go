package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhhuango/json"
	"gopkg.in/yaml.v3"

	"github.com/bcdannyboy/cmdty/curves"
	"github.com/bcdannyboy/cmdty/errs"
	"github.com/bcdannyboy/cmdty/models"
	"github.com/bcdannyboy/cmdty/montecarlo"
	"github.com/bcdannyboy/cmdty/random"
	"github.com/bcdannyboy/cmdty/trinomial"
)

func dailyForward(t *testing.T, start time.Time, days int) *curves.Curve {
	c, err := curves.Daily(start, start.AddDate(0, 0, days-1), func(d time.Time) float64 {
		return 30 + 2*math.Sin(float64(d.YearDay())/10)
	})
	require.NoError(t, err)
	return c
}

func treeSummary(t *testing.T) (*TreeSummary, *curves.Curve) {
	forward := dailyForward(t, curves.Day(2020, 7, 28), 20)
	vol, err := curves.Constant(forward.Start(), forward.End(), 0.7)
	require.NoError(t, err)
	tree, err := trinomial.CreateTree(forward, 14, vol, 1.0/365)
	require.NoError(t, err)

	s, err := SummarizeTree(tree, forward)
	require.NoError(t, err)
	return s, forward
}

func simulationSummary(t *testing.T) *SimulationSummary {
	forward := dailyForward(t, curves.Day(2020, 7, 28), 5)
	params, err := models.ForThreeFactorSeasonal(9.5, 0.6, 0.2, 0.15, curves.Day(2020, 7, 27), forward.End())
	require.NoError(t, err)
	sim, err := montecarlo.NewSimulator(params, curves.Day(2020, 7, 27), forward, forward.Periods(),
		curves.Act365, random.NewMersenneNormal(3))
	require.NoError(t, err)
	res, err := sim.Simulate(400)
	require.NoError(t, err)

	s, err := SummarizeSimulation(res, forward)
	require.NoError(t, err)
	return s
}

func TestSummarizeTree(t *testing.T) {
	s, forward := treeSummary(t)
	require.Len(t, s.Rows, forward.Len())
	assert.Greater(t, s.JMax, 0)
	assert.Greater(t, s.NodeSpacing, 0.0)

	assert.Equal(t, 1, s.Rows[0].Nodes)
	assert.Equal(t, 3, s.Rows[1].Nodes)
	for _, r := range s.Rows {
		assert.InDelta(t, 1.0, r.ProbabilitySum, 1e-12)
		assert.InEpsilon(t, r.Forward, r.Expected, 1e-12)
		assert.LessOrEqual(t, r.Min, r.Max)
	}
}

func TestSummarizeSimulation(t *testing.T) {
	s := simulationSummary(t)
	assert.Equal(t, 400, s.NumSims)
	assert.Equal(t, 3, s.NumFactors)
	require.Len(t, s.Rows, 5)
	assert.Equal(t, "2020-07-28", s.Rows[0].Period)
	for _, r := range s.Rows {
		assert.Greater(t, r.StdDev, 0.0)
		assert.InDelta(t, r.StdDev/20, r.StdErr, 1e-12)
	}
}

func TestSummarizeMissingForward(t *testing.T) {
	forward := dailyForward(t, curves.Day(2020, 7, 28), 20)
	vol, err := curves.Constant(forward.Start(), forward.End(), 0.7)
	require.NoError(t, err)
	tree, err := trinomial.CreateTree(forward, 14, vol, 1.0/365)
	require.NoError(t, err)

	short, err := curves.New(forward.Periods()[:3], forward.Values()[:3])
	require.NoError(t, err)
	_, err = SummarizeTree(tree, short)
	assert.Equal(t, "forwardCurve", errs.ParamOf(err))
}

func TestWriteTable(t *testing.T) {
	s := simulationSummary(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, s))

	out := buf.String()
	assert.Contains(t, out, "400 simulations, 3 factors")
	assert.Contains(t, out, "STD ERR")
	assert.Contains(t, out, "2020-08-01")
	assert.Greater(t, strings.Count(out, "\n"), 5)
}

func TestWriteJSON(t *testing.T) {
	s, _ := treeSummary(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, s))
	assert.Contains(t, buf.String(), `"probability_sum"`)

	var decoded TreeSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *s, decoded)
}

func TestWriteYAML(t *testing.T) {
	s := simulationSummary(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, s))
	assert.True(t, strings.HasPrefix(buf.String(), "num_sims: 400\n"))

	var decoded SimulationSummary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *s, decoded)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("csv")
	assert.Equal(t, "output", errs.ParamOf(err))

	err = Write(&bytes.Buffer{}, Format("csv"), simulationSummary(t))
	assert.True(t, errs.IsConfig(err))
}
