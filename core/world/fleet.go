package world

import (
	"fmt"
	"math/rand/v2"

	"github.com/kilianp07/thermogrid/core/grid"
	"github.com/kilianp07/thermogrid/core/plant"
	"github.com/kilianp07/thermogrid/core/scheduler"
)

// BuildFleet creates one standard plant per topology plant. Every part draws
// from src.
func BuildFleet(topo grid.Topology, profiles plant.Profiles, src rand.Source) ([]*plant.Thermoelectric, error) {
	if err := profiles.Validate(); err != nil {
		return nil, err
	}
	out := make([]*plant.Thermoelectric, len(topo.Plants))
	for i, spec := range topo.Plants {
		p, err := plant.NewStandard(spec.ID, spec.Capacity, spec.Boilers, profiles, src)
		if err != nil {
			return nil, fmt.Errorf("fleet: %w", err)
		}
		out[i] = p
	}
	return out, nil
}

// Ceilings turns plant offers into scheduler ceilings. In hourly scope the
// offer is spread evenly over the hours; in daily scope it is one budget.
func Ceilings(offers []float64, scope scheduler.Scope, hours int) [][]float64 {
	if scope == scheduler.ScopeDaily {
		out := make([][]float64, len(offers))
		for i, o := range offers {
			out[i] = []float64{o}
		}
		return out
	}
	perHour := make([]float64, len(offers))
	for i, o := range offers {
		perHour[i] = o / float64(hours)
	}
	return scheduler.UniformCeilings(perHour, hours)
}
