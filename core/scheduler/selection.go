package scheduler

import (
	"fmt"
	"math"
	"sort"
)

// Objective tells whether higher or lower fitness wins.
type Objective string

const (
	Maximize Objective = "maximize"
	Minimize Objective = "minimize"
)

// Better reports whether a ranks before b. NaN always ranks last.
func (o Objective) Better(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	case o == Minimize:
		return a < b
	default:
		return a > b
	}
}

// Scored pairs a chromosome with its fitness.
type Scored struct {
	Chromosome *Chromosome
	Fitness    float64
}

// Select returns the n best chromosomes under o. Ties keep population order.
func Select(scored []Scored, n int, o Objective) ([]Scored, error) {
	if len(scored) == 0 {
		return nil, fmt.Errorf("population is empty: %w", ErrEmptySelection)
	}
	if n <= 0 || n > len(scored) {
		return nil, fmt.Errorf("want %d survivors from %d chromosomes: %w", n, len(scored), ErrEmptySelection)
	}
	ranked := make([]Scored, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool { return o.Better(ranked[i].Fitness, ranked[j].Fitness) })
	return ranked[:n], nil
}
