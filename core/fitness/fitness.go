// Package fitness scores schedules. Every function returned here only reads
// its inputs, so the scheduler may call it from several goroutines.
package fitness

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/thermogrid/core/scheduler"
)

// Inputs is what the objectives know about a planning cycle.
type Inputs struct {
	// Demand is indexed [block][hour].
	Demand [][]float64
	// Distances is indexed [plant][block].
	Distances  [][]float64
	Importance []float64
	// DaysOff and LongestOff are per-block outage histories: the number of
	// past days with an unserved hour and the longest run of such days.
	DaysOff    []float64
	LongestOff []float64
}

// TotalDemand sums the demand of every cell.
func (in Inputs) TotalDemand() float64 {
	total := 0.0
	for _, row := range in.Demand {
		total += floats.Sum(row)
	}
	return total
}

// ServedDemand sums the demand of the cells assigned to a plant.
func (in Inputs) ServedDemand(c *scheduler.Chromosome) float64 {
	served := 0.0
	for h := 0; h < c.Hours(); h++ {
		for b := 0; b < c.Blocks(); b++ {
			if c.At(h, b) != scheduler.Unserved {
				served += in.Demand[b][h]
			}
		}
	}
	return served
}

// Deficit is the demand left unserved by c.
func (in Inputs) Deficit(c *scheduler.Chromosome) float64 {
	return in.TotalDemand() - in.ServedDemand(c)
}

// MeetDemand scores the share of the total demand that c serves.
func MeetDemand(in Inputs) scheduler.FitnessFunc {
	total := in.TotalDemand()
	return func(c *scheduler.Chromosome) float64 {
		if total == 0 {
			return 1
		}
		return 1 - max(total-in.ServedDemand(c), 0)/total
	}
}

// BlockImportance scores served hours weighted by block importance,
// normalised to [0,1].
func BlockImportance(in Inputs) scheduler.FitnessFunc {
	sum := floats.Sum(in.Importance)
	return func(c *scheduler.Chromosome) float64 {
		if sum == 0 {
			return 0
		}
		score := 0.0
		for h := 0; h < c.Hours(); h++ {
			for b := 0; b < c.Blocks(); b++ {
				if c.At(h, b) != scheduler.Unserved {
					score += in.Importance[b]
				}
			}
		}
		return score / (sum * float64(c.Hours()))
	}
}

// DistanceEfficiency rewards serving cells from nearby plants: one minus the
// mean distance of the served cells over the largest distance. An empty
// schedule scores zero.
func DistanceEfficiency(in Inputs) scheduler.FitnessFunc {
	longest := 0.0
	for _, row := range in.Distances {
		if len(row) > 0 {
			longest = max(longest, floats.Max(row))
		}
	}
	return func(c *scheduler.Chromosome) float64 {
		n, sum := 0, 0.0
		for h := 0; h < c.Hours(); h++ {
			for b := 0; b < c.Blocks(); b++ {
				if p := c.At(h, b); p != scheduler.Unserved {
					sum += in.Distances[p][b]
					n++
				}
			}
		}
		if n == 0 {
			return 0
		}
		if longest == 0 {
			return 1
		}
		return 1 - sum/float64(n)/longest
	}
}

// PrioritizeDaysOff favours serving blocks that were cut on many past days:
// served hours weighted by each block's day-off count, normalised to [0,1].
func PrioritizeDaysOff(in Inputs) scheduler.FitnessFunc {
	return historyWeighted(in.DaysOff)
}

// PrioritizeConsecutiveDaysOff favours blocks with long past runs of days off.
func PrioritizeConsecutiveDaysOff(in Inputs) scheduler.FitnessFunc {
	return historyWeighted(in.LongestOff)
}

func historyWeighted(history []float64) scheduler.FitnessFunc {
	sum := 0.0
	if len(history) > 0 {
		sum = floats.Sum(history)
	}
	return func(c *scheduler.Chromosome) float64 {
		if sum == 0 {
			return 0
		}
		score := 0.0
		for h := 0; h < c.Hours(); h++ {
			for b := 0; b < c.Blocks() && b < len(history); b++ {
				if c.At(h, b) != scheduler.Unserved {
					score += history[b]
				}
			}
		}
		return score / (sum * float64(c.Hours()))
	}
}

// Served scores the share of cells that have a plant.
func Served(c *scheduler.Chromosome) float64 {
	cells := c.Hours() * c.Blocks()
	if cells == 0 {
		return 0
	}
	return float64(c.Served()) / float64(cells)
}

// Term is one weighted objective.
type Term struct {
	Func   scheduler.FitnessFunc
	Weight float64
}

// Weighted sums the weighted terms.
func Weighted(terms ...Term) scheduler.FitnessFunc {
	return func(c *scheduler.Chromosome) float64 {
		y := 0.0
		for _, t := range terms {
			y += t.Func(c) * t.Weight
		}
		return y
	}
}

// Weights configures the objective mix.
type Weights struct {
	MeetDemand         float64 `json:"meet_demand" yaml:"meet_demand"`
	BlockImportance    float64 `json:"block_importance" yaml:"block_importance"`
	DistanceEfficiency float64 `json:"distance_efficiency" yaml:"distance_efficiency"`
	Served             float64 `json:"served" yaml:"served"`
	// Outage history terms.
	PrioritizeDaysOff            float64 `json:"prioritize_days_off" yaml:"prioritize_days_off"`
	PrioritizeConsecutiveDaysOff float64 `json:"prioritize_consecutive_days_off" yaml:"prioritize_consecutive_days_off"`
}

// DefaultWeights favours meeting demand.
func DefaultWeights() Weights {
	return Weights{MeetDemand: 0.6, BlockImportance: 0.25, DistanceEfficiency: 0.15}
}

// Validate rejects negative weights and an all-zero mix.
func (w Weights) Validate() error {
	all := []float64{w.MeetDemand, w.BlockImportance, w.DistanceEfficiency, w.Served,
		w.PrioritizeDaysOff, w.PrioritizeConsecutiveDaysOff}
	if floats.Min(all) < 0 {
		return fmt.Errorf("fitness weights must not be negative")
	}
	if floats.Sum(all) == 0 {
		return fmt.Errorf("fitness weights are all zero")
	}
	return nil
}

// Build combines the non-zero weighted objectives over in.
func Build(in Inputs, w Weights) scheduler.FitnessFunc {
	var terms []Term
	add := func(f scheduler.FitnessFunc, weight float64) {
		if weight != 0 {
			terms = append(terms, Term{Func: f, Weight: weight})
		}
	}
	add(MeetDemand(in), w.MeetDemand)
	add(BlockImportance(in), w.BlockImportance)
	add(DistanceEfficiency(in), w.DistanceEfficiency)
	add(Served, w.Served)
	add(PrioritizeDaysOff(in), w.PrioritizeDaysOff)
	add(PrioritizeConsecutiveDaysOff(in), w.PrioritizeConsecutiveDaysOff)
	return Weighted(terms...)
}
