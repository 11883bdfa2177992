// Package montecarlo simulates multi-factor mean-reverting spot price paths
// consistent with a forward curve.
package montecarlo

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/bcdannyboy/cmdty/curves"
	"github.com/bcdannyboy/cmdty/errs"
	"github.com/bcdannyboy/cmdty/models"
	"github.com/bcdannyboy/cmdty/random"
)

var log = logrus.WithField("component", "montecarlo")

// step caches everything a path needs for one simulated period.
type step struct {
	forward   float64
	drift     float64   // martingale correction on the log price
	vols      []float64 // per factor
	reversion []float64 // per factor e^(-λΔt)
	chol      []float64 // lower Cholesky factor of the increment covariance, row-major
}

// Simulator draws paths of the Markov factors and the spot price they imply.
type Simulator struct {
	params        *models.Parameters
	valuationDate time.Time
	periods       []time.Time
	normals       random.NormalGenerator

	numFactors int
	steps      []step
}

// NewSimulator validates the inputs and precomputes the per-period
// quantities shared by every path.
func NewSimulator(
	params *models.Parameters,
	valuationDate time.Time,
	forward *curves.Curve,
	periods []time.Time,
	dayCount curves.DayCount,
	normals random.NormalGenerator,
) (*Simulator, error) {
	if params == nil {
		return nil, errs.Config("params", "model parameters are nil")
	}
	if len(periods) == 0 {
		return nil, errs.Config("periods", "no periods to simulate")
	}
	if dayCount == nil {
		return nil, errs.Config("dayCount", "day count function is nil")
	}
	if normals == nil {
		return nil, errs.Config("normals", "normal generator is nil")
	}

	valuationDate = curves.Normalize(valuationDate)
	simPeriods := make([]time.Time, len(periods))
	for i, p := range periods {
		p = curves.Normalize(p)
		if !p.After(valuationDate) {
			return nil, errs.Config("periods", "period %s is not after valuation date %s",
				p.Format(time.DateOnly), valuationDate.Format(time.DateOnly))
		}
		if i > 0 && !p.After(simPeriods[i-1]) {
			return nil, errs.Config("periods", "period %s does not follow %s",
				p.Format(time.DateOnly), simPeriods[i-1].Format(time.DateOnly))
		}
		simPeriods[i] = p
	}

	numFactors := params.NumFactors()
	if !normals.MatchesDimensions(len(simPeriods) * numFactors) {
		return nil, errs.Config("normals", "generator does not produce %d dimensional draws", len(simPeriods)*numFactors)
	}

	s := &Simulator{
		params:        params,
		valuationDate: valuationDate,
		periods:       simPeriods,
		normals:       normals,
		numFactors:    numFactors,
		steps:         make([]step, len(simPeriods)),
	}

	prevTime := 0.0
	for i, p := range simPeriods {
		fwd, ok := forward.Value(p)
		if !ok {
			return nil, errs.Config("forwardCurve", "no forward price for %s", p.Format(time.DateOnly))
		}

		vols := make([]float64, numFactors)
		for f := 0; f < numFactors; f++ {
			v, ok := params.Factor(f).Volatility.Value(p)
			if !ok {
				return nil, errs.Config("volatility", "factor %d has no volatility for %s", f, p.Format(time.DateOnly))
			}
			vols[f] = v
		}

		t := dayCount(valuationDate, p)
		dt := t - prevTime
		prevTime = t

		chol, err := s.incrementCholesky(dt)
		if err != nil {
			return nil, err
		}

		reversion := make([]float64, numFactors)
		for f := range reversion {
			reversion[f] = math.Exp(-params.Factor(f).MeanReversion * dt)
		}

		s.steps[i] = step{
			forward:   fwd,
			drift:     s.driftAdjustment(vols, t),
			vols:      vols,
			reversion: reversion,
			chol:      chol,
		}
	}

	log.Debugf("simulator ready: %d periods, %d factors, valuation date %s",
		len(simPeriods), numFactors, valuationDate.Format(time.DateOnly))
	return s, nil
}

// covarianceIntegral is ∫₀^Δt e^(-s·u) du, continuous at s = 0.
func covarianceIntegral(s, dt float64) float64 {
	if s == 0 {
		return dt
	}
	return -math.Expm1(-s*dt) / s
}

// incrementCholesky factors the covariance of the factor increments over dt
// and returns the lower triangle row-major.
func (s *Simulator) incrementCholesky(dt float64) ([]float64, error) {
	n := s.numFactors
	cov := mat.NewSymDense(n, nil)
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			lambda := s.params.Factor(a).MeanReversion + s.params.Factor(b).MeanReversion
			cov.SetSym(a, b, s.params.Rho(a, b)*covarianceIntegral(lambda, dt))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, errs.Config("correlation", "factor covariance is not positive definite")
	}

	var lower mat.TriDense
	chol.LTo(&lower)

	out := make([]float64, n*n)
	for a := 0; a < n; a++ {
		for b := 0; b <= a; b++ {
			out[a*n+b] = lower.At(a, b)
		}
	}
	return out, nil
}

// driftAdjustment is -½·Var(Σ vol·factor) at absolute time t, so that the
// expected spot price equals the forward price.
func (s *Simulator) driftAdjustment(vols []float64, t float64) float64 {
	variance := 0.0
	for a := 0; a < s.numFactors; a++ {
		for b := 0; b < s.numFactors; b++ {
			lambda := s.params.Factor(a).MeanReversion + s.params.Factor(b).MeanReversion
			variance += vols[a] * vols[b] * s.params.Rho(a, b) * covarianceIntegral(lambda, t)
		}
	}
	return -0.5 * variance
}

// NumFactors returns the number of Markov factors per path.
func (s *Simulator) NumFactors() int { return s.numFactors }

// Periods returns a copy of the simulated periods.
func (s *Simulator) Periods() []time.Time {
	out := make([]time.Time, len(s.periods))
	copy(out, s.periods)
	return out
}

func (s *Simulator) ValuationDate() time.Time { return s.valuationDate }

// Simulate draws numSims independent paths from the simulator's generator.
// The generator advances across calls; reset it to repeat a run.
func (s *Simulator) Simulate(numSims int) (*Results, error) {
	if numSims <= 0 {
		return nil, errs.Config("numSims", "must be positive, got %d", numSims)
	}

	res := newResults(s.periods, s.numFactors, numSims)
	p := s.newPather(res)
	for sim := 0; sim < numSims; sim++ {
		if err := p.path(s.normals, sim); err != nil {
			return nil, err
		}
	}

	log.Debugf("simulated %d paths over %d periods", numSims, len(s.periods))
	return res, nil
}

// pather holds the scratch buffers of one goroutine generating paths.
type pather struct {
	s       *Simulator
	res     *Results
	draws   []float64
	factors []float64
}

func (s *Simulator) newPather(res *Results) *pather {
	return &pather{
		s:       s,
		res:     res,
		draws:   make([]float64, len(s.steps)*s.numFactors),
		factors: make([]float64, s.numFactors),
	}
}

func (p *pather) path(normals random.NormalGenerator, sim int) error {
	if err := normals.Generate(p.draws, 0, 1); err != nil {
		return err
	}

	n := p.s.numFactors
	numSims := p.res.numSims
	for f := range p.factors {
		p.factors[f] = 0
	}

	for i := range p.s.steps {
		st := &p.s.steps[i]
		z := p.draws[i*n : (i+1)*n]
		base := i * n * numSims

		exponent := 0.0
		for a := 0; a < n; a++ {
			shock := 0.0
			row := st.chol[a*n : a*n+a+1]
			for b, l := range row {
				shock += l * z[b]
			}
			p.factors[a] = p.factors[a]*st.reversion[a] + shock
			p.res.markovFactors[base+a*numSims+sim] = p.factors[a]
			exponent += p.factors[a] * st.vols[a]
		}
		p.res.spotPrices[i*numSims+sim] = st.forward * math.Exp(st.drift+exponent)
	}
	return nil
}
