package montecarlo

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/bcdannyboy/cmdty/curves"
	"github.com/bcdannyboy/cmdty/errs"
)

// Results stores simulated paths in flat step-major buffers:
//
//	spotPrices[step*numSims + sim]
//	markovFactors[step*numFactors*numSims + factor*numSims + sim]
//
// Accessors return views into the buffers. Callers must not modify them.
type Results struct {
	periods       []time.Time
	spotPrices    []float64
	markovFactors []float64
	numSims       int
	numFactors    int
}

func newResults(periods []time.Time, numFactors, numSims int) *Results {
	return &Results{
		periods:       periods,
		spotPrices:    make([]float64, len(periods)*numSims),
		markovFactors: make([]float64, len(periods)*numFactors*numSims),
		numSims:       numSims,
		numFactors:    numFactors,
	}
}

func (r *Results) NumSteps() int   { return len(r.periods) }
func (r *Results) NumSims() int    { return r.numSims }
func (r *Results) NumFactors() int { return r.numFactors }

// Periods returns a copy of the simulated periods.
func (r *Results) Periods() []time.Time {
	out := make([]time.Time, len(r.periods))
	copy(out, r.periods)
	return out
}

// SpotPrices returns the whole spot buffer.
func (r *Results) SpotPrices() []float64 { return r.spotPrices }

// MarkovFactors returns the whole factor buffer.
func (r *Results) MarkovFactors() []float64 { return r.markovFactors }

// StepIndex returns the step at which period was simulated.
func (r *Results) StepIndex(period time.Time) (int, error) {
	period = curves.Normalize(period)
	for i, p := range r.periods {
		if p.Equal(period) {
			return i, nil
		}
	}
	return -1, errors.Wrapf(errs.ErrOutOfRange, "period %s was not simulated", period.Format(time.DateOnly))
}

// SpotPricesForStepIndex returns the numSims spot prices of step i.
func (r *Results) SpotPricesForStepIndex(i int) ([]float64, error) {
	if i < 0 || i >= len(r.periods) {
		return nil, errs.OutOfRange("step", i, len(r.periods))
	}
	lo, hi := i*r.numSims, (i+1)*r.numSims
	return r.spotPrices[lo:hi:hi], nil
}

// SpotPricesForPeriod returns the spot prices simulated for period.
func (r *Results) SpotPricesForPeriod(period time.Time) ([]float64, error) {
	i, err := r.StepIndex(period)
	if err != nil {
		return nil, err
	}
	return r.SpotPricesForStepIndex(i)
}

// MarkovFactorsForStepIndex returns the numSims values of one factor at
// step i.
func (r *Results) MarkovFactorsForStepIndex(i, factor int) ([]float64, error) {
	if i < 0 || i >= len(r.periods) {
		return nil, errs.OutOfRange("step", i, len(r.periods))
	}
	if factor < 0 || factor >= r.numFactors {
		return nil, errs.OutOfRange("factor", factor, r.numFactors)
	}
	lo := (i*r.numFactors + factor) * r.numSims
	hi := lo + r.numSims
	return r.markovFactors[lo:hi:hi], nil
}

// MarkovFactorsForPeriod returns the values of one factor at period.
func (r *Results) MarkovFactorsForPeriod(period time.Time, factor int) ([]float64, error) {
	i, err := r.StepIndex(period)
	if err != nil {
		return nil, err
	}
	return r.MarkovFactorsForStepIndex(i, factor)
}

// SpotStats returns the sample mean, standard deviation and standard error
// of the spot prices at step i.
func (r *Results) SpotStats(i int) (mean, stdDev, stdErr float64, err error) {
	prices, err := r.SpotPricesForStepIndex(i)
	if err != nil {
		return 0, 0, 0, err
	}
	mean, stdDev = stat.MeanStdDev(prices, nil)
	if math.IsNaN(stdDev) {
		stdDev = 0
	}
	return mean, stdDev, stdDev / math.Sqrt(float64(len(prices))), nil
}
