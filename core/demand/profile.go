// Package demand models the hourly consumption of demand blocks.
package demand

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Hours in a generated day.
const Hours = 24

// ErrInvalidProfile is returned for negative or non-finite profile parameters.
var ErrInvalidProfile = errors.New("invalid demand profile")

// Peak windows, [start, end) in hours.
var (
	MorningPeak = [2]int{5, 9}
	EveningPeak = [2]int{17, 21}
)

// Profile is a bimodal daily consumption curve: a flat base load plus a
// morning and a weighted evening Gaussian peak.
type Profile struct {
	Base          float64 `json:"base" yaml:"base"`
	BaseStd       float64 `json:"base_std" yaml:"base_std"`
	MorningMean   float64 `json:"morning_mean" yaml:"morning_mean"`
	MorningStd    float64 `json:"morning_std" yaml:"morning_std"`
	EveningMean   float64 `json:"evening_mean" yaml:"evening_mean"`
	EveningStd    float64 `json:"evening_std" yaml:"evening_std"`
	EveningWeight float64 `json:"evening_weight" yaml:"evening_weight"`
}

// DefaultProfile returns a residential-looking curve.
func DefaultProfile() Profile {
	return Profile{
		Base:          1,
		BaseStd:       0.1,
		MorningMean:   3,
		MorningStd:    0.5,
		EveningMean:   3.5,
		EveningStd:    0.6,
		EveningWeight: 1.2,
	}
}

// Validate checks that every parameter is finite and non-negative.
func (p Profile) Validate() error {
	vals := map[string]float64{
		"base": p.Base, "base_std": p.BaseStd,
		"morning_mean": p.MorningMean, "morning_std": p.MorningStd,
		"evening_mean": p.EveningMean, "evening_std": p.EveningStd,
		"evening_weight": p.EveningWeight,
	}
	for k, v := range vals {
		if !(v >= 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%s=%v: %w", k, v, ErrInvalidProfile)
		}
	}
	return nil
}

func inWindow(h int, w [2]int) bool { return h >= w[0] && h < w[1] }

// Expected returns the mean consumption of every hour.
func (p Profile) Expected() []float64 {
	out := make([]float64, Hours)
	for h := range out {
		switch {
		case inWindow(h, MorningPeak):
			out[h] = p.MorningMean
		case inWindow(h, EveningPeak):
			out[h] = p.EveningMean * p.EveningWeight
		default:
			out[h] = p.Base
		}
	}
	return out
}

// Generate draws one day of consumption from src. Values are clamped at zero.
func (p Profile) Generate(src rand.Source) []float64 {
	base := normal(p.Base, p.BaseStd, src)
	morning := normal(p.MorningMean, p.MorningStd, src)
	evening := normal(p.EveningMean, p.EveningStd, src)
	out := make([]float64, Hours)
	for h := range out {
		var v float64
		switch {
		case inWindow(h, MorningPeak):
			v = morning.Rand()
		case inWindow(h, EveningPeak):
			v = evening.Rand() * p.EveningWeight
		default:
			v = base.Rand()
		}
		out[h] = math.Max(v, 0)
	}
	return out
}

// Total returns the expected consumption over the day.
func (p Profile) Total() float64 {
	sum := 0.0
	for _, v := range p.Expected() {
		sum += v
	}
	return sum
}

// constant stands in for a zero-deviation normal, which distuv cannot sample.
type constant float64

func (c constant) Rand() float64 { return float64(c) }

type sampler interface{ Rand() float64 }

func normal(mu, sigma float64, src rand.Source) sampler {
	if sigma == 0 {
		return constant(mu)
	}
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
}

// Source yields the consumption of every block for the next day, indexed
// [block][hour].
type Source interface {
	Next() [][]float64
}

// Generator draws independent days for a fixed set of block profiles.
type Generator struct {
	profiles []Profile
	src      rand.Source
}

// NewGenerator validates the profiles and binds them to src.
func NewGenerator(profiles []Profile, src rand.Source) (*Generator, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no block profiles: %w", ErrInvalidProfile)
	}
	if src == nil {
		return nil, fmt.Errorf("nil source: %w", ErrInvalidProfile)
	}
	for i, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
	}
	return &Generator{profiles: append([]Profile(nil), profiles...), src: src}, nil
}

// Next draws one day for every block.
func (g *Generator) Next() [][]float64 {
	out := make([][]float64, len(g.profiles))
	for i, p := range g.profiles {
		out[i] = p.Generate(g.src)
	}
	return out
}

// Fixed replays the same day forever. Planning a single cycle uses it.
type Fixed [][]float64

// Next returns a copy of the fixed day.
func (f Fixed) Next() [][]float64 {
	out := make([][]float64, len(f))
	for i, row := range f {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
