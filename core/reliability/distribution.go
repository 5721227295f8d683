package reliability

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidParameter is returned when a distribution or component is built
// with a parameter outside its domain.
var ErrInvalidParameter = errors.New("invalid parameter")

// minSample keeps sampled durations strictly positive when a draw underflows.
const minSample = 1e-9

// Distribution draws random durations expressed in simulation ticks.
type Distribution interface {
	Sample() float64
}

// LogNormal models repair durations: most repairs are quick, a few take very long.
// Scale is the median of the distribution (exp of the log-space mean) and Sigma
// the log-space standard deviation.
type LogNormal struct {
	scale float64
	sigma float64
	dist  distuv.LogNormal
}

// NewLogNormal validates the parameters and binds the distribution to src.
func NewLogNormal(scale, sigma float64, src rand.Source) (*LogNormal, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("lognormal scale %v: %w", scale, ErrInvalidParameter)
	}
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("lognormal sigma %v: %w", sigma, ErrInvalidParameter)
	}
	if src == nil {
		return nil, fmt.Errorf("lognormal source is nil: %w", ErrInvalidParameter)
	}
	return &LogNormal{
		scale: scale,
		sigma: sigma,
		dist:  distuv.LogNormal{Mu: math.Log(scale), Sigma: sigma, Src: src},
	}, nil
}

// Sample returns a strictly positive repair duration.
func (l *LogNormal) Sample() float64 { return math.Max(l.dist.Rand(), minSample) }

// Scale returns the median repair duration.
func (l *LogNormal) Scale() float64 { return l.scale }

// Sigma returns the log-space deviation.
func (l *LogNormal) Sigma() float64 { return l.sigma }

// Mean returns the expected repair duration.
func (l *LogNormal) Mean() float64 { return l.dist.Mean() }

// Weibull models time-to-failure. A shape below 1 gives a failure rate that
// decreases with age, 1 a constant rate and above 1 an increasing (wear-out) rate.
// Scale is the characteristic life at which 63.2% of parts have failed.
type Weibull struct {
	scale float64
	shape float64
	dist  distuv.Weibull
}

// NewWeibull validates the parameters and binds the distribution to src.
func NewWeibull(scale, shape float64, src rand.Source) (*Weibull, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("weibull scale %v: %w", scale, ErrInvalidParameter)
	}
	if !(shape > 0) || math.IsInf(shape, 0) {
		return nil, fmt.Errorf("weibull shape %v: %w", shape, ErrInvalidParameter)
	}
	if src == nil {
		return nil, fmt.Errorf("weibull source is nil: %w", ErrInvalidParameter)
	}
	return &Weibull{
		scale: scale,
		shape: shape,
		dist:  distuv.Weibull{K: shape, Lambda: scale, Src: src},
	}, nil
}

// Sample returns a strictly positive lifetime.
func (w *Weibull) Sample() float64 { return math.Max(w.dist.Rand(), minSample) }

// Scale returns the characteristic life.
func (w *Weibull) Scale() float64 { return w.scale }

// Shape returns the shape parameter.
func (w *Weibull) Shape() float64 { return w.shape }

// Mean returns the expected lifetime.
func (w *Weibull) Mean() float64 { return w.dist.Mean() }

// LogNormalParamsForRange returns the scale and sigma that place roughly 95%
// of the draws between lo and hi.
func LogNormalParamsForRange(lo, hi float64) (scale, sigma float64, err error) {
	if !(lo > 0) || !(hi > lo) {
		return 0, 0, fmt.Errorf("range [%v, %v]: %w", lo, hi, ErrInvalidParameter)
	}
	sigma = (math.Log(hi) - math.Log(lo)) / 4
	scale = math.Exp((math.Log(lo) + math.Log(hi)) / 2)
	return scale, sigma, nil
}

// LogNormalParamsForMeanDeviation converts an arithmetic mean and standard
// deviation into the scale and sigma of the matching log-normal distribution.
func LogNormalParamsForMeanDeviation(mean, deviation float64) (scale, sigma float64, err error) {
	if !(mean > 0) || !(deviation > 0) {
		return 0, 0, fmt.Errorf("mean %v deviation %v: %w", mean, deviation, ErrInvalidParameter)
	}
	ratio := 1 + (deviation*deviation)/(mean*mean)
	scale = mean / math.Sqrt(ratio)
	sigma = math.Sqrt(math.Log(ratio))
	return scale, sigma, nil
}
