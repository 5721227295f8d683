package scheduler

import (
	"errors"
	"fmt"
	"math"
)

// Hours is the planning horizon of one cycle.
const Hours = 24

// Unserved marks a cell that no plant supplies.
const Unserved = -1

// tolerance is the slack allowed on a ceiling before a chromosome is invalid.
const tolerance = 1e-6

var (
	// ErrInvalidProblem is returned for bad dimensions, ceilings or costs.
	ErrInvalidProblem = errors.New("invalid problem")
	// ErrUnknownMutation is returned for a mutation name that is not registered.
	ErrUnknownMutation = errors.New("unknown mutation")
	// ErrEmptySelection is returned when selection cannot return the requested survivors.
	ErrEmptySelection = errors.New("empty selection")
)

// Scope tells how ceilings apply over the horizon.
type Scope string

const (
	// ScopeHourly gives every plant one ceiling per hour.
	ScopeHourly Scope = "hourly"
	// ScopeDaily gives every plant a single budget for the whole horizon.
	ScopeDaily Scope = "daily"
)

// CostFunc returns the capacity a plant spends serving a block during an hour.
type CostFunc func(plant, block, hour int) float64

// FitnessFunc scores a chromosome. It is called concurrently and must not
// modify the chromosome.
type FitnessFunc func(c *Chromosome) float64

// Problem describes one planning cycle.
// Ceilings is indexed [plant][hour] in hourly scope and [plant][0] in daily scope.
type Problem struct {
	Plants   int
	Blocks   int
	Hours    int
	Scope    Scope
	Ceilings [][]float64
	Cost     CostFunc
}

func (p Problem) withDefaults() Problem {
	if p.Hours == 0 {
		p.Hours = Hours
	}
	if p.Scope == "" {
		p.Scope = ScopeHourly
	}
	return p
}

// Validate checks the dimensions and the ceilings. Costs are checked when the
// problem is compiled.
func (p Problem) Validate() error {
	p = p.withDefaults()
	if p.Plants <= 0 || p.Blocks <= 0 || p.Hours <= 0 {
		return fmt.Errorf("plants=%d blocks=%d hours=%d: %w", p.Plants, p.Blocks, p.Hours, ErrInvalidProblem)
	}
	if p.Cost == nil {
		return fmt.Errorf("cost function is nil: %w", ErrInvalidProblem)
	}
	buckets := p.buckets()
	if buckets == 0 {
		return fmt.Errorf("scope %q: %w", p.Scope, ErrInvalidProblem)
	}
	if len(p.Ceilings) != p.Plants {
		return fmt.Errorf("%d ceiling rows for %d plants: %w", len(p.Ceilings), p.Plants, ErrInvalidProblem)
	}
	for i, row := range p.Ceilings {
		if len(row) != buckets {
			return fmt.Errorf("plant %d has %d ceilings, want %d: %w", i, len(row), buckets, ErrInvalidProblem)
		}
		for k, c := range row {
			if !(c >= 0) || math.IsInf(c, 0) {
				return fmt.Errorf("plant %d ceiling %d is %v: %w", i, k, c, ErrInvalidProblem)
			}
		}
	}
	return nil
}

func (p Problem) buckets() int {
	switch p.Scope {
	case ScopeHourly:
		return p.Hours
	case ScopeDaily:
		return 1
	default:
		return 0
	}
}

// UniformCeilings repeats one ceiling per plant across every hour.
func UniformCeilings(perPlant []float64, hours int) [][]float64 {
	out := make([][]float64, len(perPlant))
	for i, c := range perPlant {
		row := make([]float64, hours)
		for h := range row {
			row[h] = c
		}
		out[i] = row
	}
	return out
}

// Instance is a validated problem with its cost table evaluated once.
type Instance struct {
	plants, blocks, hours int
	scope                 Scope
	ceilings              [][]float64
	costs                 []float64
}

// Compile validates p and evaluates its cost function on every cell.
func Compile(p Problem) (*Instance, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	in := &Instance{
		plants:   p.Plants,
		blocks:   p.Blocks,
		hours:    p.Hours,
		scope:    p.Scope,
		ceilings: make([][]float64, p.Plants),
		costs:    make([]float64, p.Plants*p.Hours*p.Blocks),
	}
	for i, row := range p.Ceilings {
		in.ceilings[i] = append([]float64(nil), row...)
	}
	for pl := 0; pl < p.Plants; pl++ {
		for h := 0; h < p.Hours; h++ {
			for b := 0; b < p.Blocks; b++ {
				c := p.Cost(pl, b, h)
				if !(c >= 0) || math.IsInf(c, 0) {
					return nil, fmt.Errorf("cost(plant=%d, block=%d, hour=%d)=%v: %w", pl, b, h, c, ErrInvalidProblem)
				}
				in.costs[(pl*p.Hours+h)*p.Blocks+b] = c
			}
		}
	}
	return in, nil
}

// Plants returns the number of plants.
func (in *Instance) Plants() int { return in.plants }

// Blocks returns the number of demand blocks.
func (in *Instance) Blocks() int { return in.blocks }

// Hours returns the horizon length.
func (in *Instance) Hours() int { return in.hours }

// Scope returns how ceilings apply.
func (in *Instance) Scope() Scope { return in.scope }

// Cost returns the compiled cost of a cell for a plant.
func (in *Instance) Cost(plant, block, hour int) float64 {
	return in.costs[(plant*in.hours+hour)*in.blocks+block]
}

// Ceiling returns the ceiling of plant that applies at hour.
func (in *Instance) Ceiling(plant, hour int) float64 {
	return in.ceilings[plant][in.bucket(hour)]
}

func (in *Instance) bucket(hour int) int {
	if in.scope == ScopeDaily {
		return 0
	}
	return hour
}

// NewChromosome returns an all-unserved chromosome shaped for the instance.
func (in *Instance) NewChromosome() *Chromosome { return NewChromosome(in.hours, in.blocks) }

// Usage sums the cost of the cells assigned to each plant, per ceiling bucket.
// Out-of-range genes are ignored.
func (in *Instance) Usage(c *Chromosome) [][]float64 {
	used := in.zeroLedger()
	for h := 0; h < in.hours; h++ {
		k := in.bucket(h)
		for b := 0; b < in.blocks; b++ {
			p := c.At(h, b)
			if p < 0 || p >= in.plants {
				continue
			}
			used[p][k] += in.Cost(p, b, h)
		}
	}
	return used
}

// Valid reports whether every gene names a plant or Unserved and no plant
// exceeds a ceiling.
func (in *Instance) Valid(c *Chromosome) bool {
	if c.hours != in.hours || c.blocks != in.blocks {
		return false
	}
	for _, g := range c.genes {
		if g != Unserved && (g < 0 || g >= in.plants) {
			return false
		}
	}
	used := in.Usage(c)
	for p := range used {
		for k, u := range used[p] {
			if u > in.ceilings[p][k]+tolerance {
				return false
			}
		}
	}
	return true
}

// InfeasibleCells counts the cells no plant could serve even with its whole
// ceiling available.
func (in *Instance) InfeasibleCells() int {
	n := 0
	for h := 0; h < in.hours; h++ {
		for b := 0; b < in.blocks; b++ {
			feasible := false
			for p := 0; p < in.plants && !feasible; p++ {
				feasible = in.Cost(p, b, h) <= in.Ceiling(p, h)+tolerance
			}
			if !feasible {
				n++
			}
		}
	}
	return n
}

// AssignedCost returns the cost of the cell as assigned in c, zero when unserved.
func (in *Instance) AssignedCost(c *Chromosome, hour, block int) float64 {
	p := c.At(hour, block)
	if p < 0 || p >= in.plants {
		return 0
	}
	return in.Cost(p, block, hour)
}

func (in *Instance) zeroLedger() [][]float64 {
	out := make([][]float64, in.plants)
	for i := range out {
		out[i] = make([]float64, len(in.ceilings[i]))
	}
	return out
}

// free returns ceilings minus usage for c.
func (in *Instance) free(c *Chromosome) [][]float64 {
	used := in.Usage(c)
	for p := range used {
		for k := range used[p] {
			used[p][k] = in.ceilings[p][k] - used[p][k]
		}
	}
	return used
}
