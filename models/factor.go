package models

import (
	"math"

	"github.com/bcdannyboy/cmdty/curves"
	"github.com/bcdannyboy/cmdty/errs"
)

// Factor is one mean-reverting Gaussian driver of the spot price.
type Factor struct {
	MeanReversion float64       // Rate of pull back towards zero, 0 for a random walk
	Volatility    *curves.Curve // Spot volatility contribution by period
}

// NewFactor validates and builds a Factor.
func NewFactor(meanReversion float64, volatility *curves.Curve) (Factor, error) {
	if meanReversion < 0 || math.IsNaN(meanReversion) {
		return Factor{}, errs.Config("meanReversion", "must be non-negative, got %v", meanReversion)
	}
	if volatility.IsEmpty() {
		return Factor{}, errs.Config("volatility", "curve is empty")
	}
	return Factor{
		MeanReversion: meanReversion,
		Volatility:    volatility,
	}, nil
}
