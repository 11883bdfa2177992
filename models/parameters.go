// Package models describes the multi-factor stochastic model driving the
// Monte Carlo simulator.
package models

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/bcdannyboy/cmdty/curves"
	"github.com/bcdannyboy/cmdty/errs"
)

const correlationTolerance = 1e-12

// Parameters holds N correlated factors and their N×N correlation matrix.
// The matrix is referenced, not copied.
type Parameters struct {
	factors     []Factor
	correlation mat.Matrix
}

// NewParameters validates the factor list against the correlation matrix.
// The matrix must be square with one row per factor, symmetric, carry a unit
// diagonal and off-diagonal entries in [-1, 1].
func NewParameters(correlation mat.Matrix, factors ...Factor) (*Parameters, error) {
	if len(factors) == 0 {
		return nil, errs.Config("factors", "at least one factor is required")
	}
	if correlation == nil {
		return nil, errs.Config("correlation", "matrix is nil")
	}

	r, c := correlation.Dims()
	if r != c {
		return nil, errs.Config("correlation", "matrix is %dx%d, must be square", r, c)
	}
	if r != len(factors) {
		return nil, errs.Config("correlation", "dimension %d does not match %d factors", r, len(factors))
	}

	for i, f := range factors {
		if f.MeanReversion < 0 || math.IsNaN(f.MeanReversion) {
			return nil, errs.Config("meanReversion", "factor %d has negative mean reversion %v", i, f.MeanReversion)
		}
		if f.Volatility.IsEmpty() {
			return nil, errs.Config("volatility", "factor %d has an empty volatility curve", i)
		}
	}

	if err := validateCorrelation(correlation); err != nil {
		return nil, err
	}

	return &Parameters{
		factors:     factors,
		correlation: correlation,
	}, nil
}

func validateCorrelation(m mat.Matrix) error {
	n, _ := m.Dims()
	for i := 0; i < n; i++ {
		if d := m.At(i, i); math.Abs(d-1) > correlationTolerance {
			return errs.Config("correlation", "diagonal element %d is %v, want 1", i, d)
		}
		for j := i + 1; j < n; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if math.Abs(a-b) > correlationTolerance {
				return errs.Config("correlation", "matrix is not symmetric at (%d, %d)", i, j)
			}
			if a < -1 || a > 1 || math.IsNaN(a) {
				return errs.Config("correlation", "element (%d, %d) = %v outside [-1, 1]", i, j, a)
			}
		}
	}
	return nil
}

func (p *Parameters) NumFactors() int { return len(p.factors) }

func (p *Parameters) Factor(i int) Factor { return p.factors[i] }

// Factors returns a copy of the factor list.
func (p *Parameters) Factors() []Factor {
	out := make([]Factor, len(p.factors))
	copy(out, p.factors)
	return out
}

func (p *Parameters) Correlation() mat.Matrix { return p.correlation }

// Rho returns the correlation between factors i and j.
func (p *Parameters) Rho(i, j int) float64 { return p.correlation.At(i, j) }

// ForOneFactor builds a single-factor model.
func ForOneFactor(meanReversion float64, volatility *curves.Curve) (*Parameters, error) {
	f, err := NewFactor(meanReversion, volatility)
	if err != nil {
		return nil, err
	}
	return NewParameters(mat.NewSymDense(1, []float64{1}), f)
}

// ForTwoFactors builds a two-factor model with correlation rho.
func ForTwoFactors(rho float64, first, second Factor) (*Parameters, error) {
	corr := mat.NewSymDense(2, []float64{
		1, rho,
		rho, 1,
	})
	return NewParameters(corr, first, second)
}

// ForThreeFactorSeasonal builds an uncorrelated spot, long-term and seasonal
// factor model over [start, end]. The seasonal factor's volatility is a
// sinusoid of amplitude seasonalVol/2 peaking on the first 1 February on or
// after start and bottoming out six months later.
func ForThreeFactorSeasonal(spotMeanReversion, spotVol, longTermVol, seasonalVol float64, start, end time.Time) (*Parameters, error) {
	if spotVol < 0 {
		return nil, errs.Config("spotVol", "must be non-negative, got %v", spotVol)
	}
	if longTermVol < 0 {
		return nil, errs.Config("longTermVol", "must be non-negative, got %v", longTermVol)
	}
	if seasonalVol < 0 {
		return nil, errs.Config("seasonalVol", "must be non-negative, got %v", seasonalVol)
	}

	spotCurve, err := curves.Constant(start, end, spotVol)
	if err != nil {
		return nil, err
	}
	longTermCurve, err := curves.Constant(start, end, longTermVol)
	if err != nil {
		return nil, err
	}

	peak := firstFebruaryOnOrAfter(start)
	seasonalCurve, err := curves.Daily(start, end, func(day time.Time) float64 {
		return seasonalVol / 2 * math.Cos(2*math.Pi*monthsBetween(peak, day)/12)
	})
	if err != nil {
		return nil, err
	}

	spot, err := NewFactor(spotMeanReversion, spotCurve)
	if err != nil {
		return nil, err
	}

	return NewParameters(mat.NewDiagDense(3, []float64{1, 1, 1}),
		spot,
		Factor{MeanReversion: 0, Volatility: longTermCurve},
		Factor{MeanReversion: 0, Volatility: seasonalCurve},
	)
}

func firstFebruaryOnOrAfter(t time.Time) time.Time {
	t = curves.Normalize(t)
	feb := curves.Day(t.Year(), time.February, 1)
	if feb.Before(t) {
		feb = feb.AddDate(1, 0, 0)
	}
	return feb
}

// monthsBetween measures from `from` to `to` in fractional months, so that the
// first of every month lands on a whole number.
func monthsBetween(from, to time.Time) float64 {
	whole := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	daysInMonth := curves.Day(to.Year(), to.Month()+1, 1).AddDate(0, 0, -1).Day()
	return float64(whole) + float64(to.Day()-1)/float64(daysInMonth)
}
