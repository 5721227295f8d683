package world

import (
	"fmt"
	"sort"

	"github.com/kilianp07/thermogrid/core/factory"
	"github.com/kilianp07/thermogrid/core/plant"
	"github.com/kilianp07/thermogrid/core/reliability"
)

// ActionKind says what an action does to its part.
type ActionKind int

const (
	// Hurry completes a running repair on the next tick.
	Hurry ActionKind = iota
	// Service takes a working part down for repair before it breaks.
	Service
)

// Action is one maintenance intervention on a part.
type Action struct {
	Plant int
	Part  int
	Kind  ActionKind
}

// Policy decides which parts to act on after the plants have been updated.
type Policy interface {
	SelectActions(plants []*plant.Thermoelectric) []Action
}

// NoMaintenance never intervenes.
type NoMaintenance struct{}

func (NoMaintenance) SelectActions([]*plant.Thermoelectric) []Action { return nil }

// HurryCritical hurries the critical repairs with the longest estimated
// remaining time across the fleet, at most Budget per day.
type HurryCritical struct {
	Budget int `json:"budget"`
}

func (h HurryCritical) SelectActions(plants []*plant.Thermoelectric) []Action {
	type candidate struct {
		Action
		remaining float64
	}
	var all []candidate
	for pi, p := range plants {
		for _, idx := range p.CriticalRepairs() {
			all = append(all, candidate{Action{Plant: pi, Part: idx, Kind: Hurry}, p.Parts()[idx].EstimatedRemainingRepair()})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].remaining > all[j].remaining })
	budget := max(h.Budget, 1)
	out := make([]Action, 0, min(budget, len(all)))
	for _, c := range all[:min(budget, len(all))] {
		out = append(out, c.Action)
	}
	return out
}

// Preventive services working parts whose estimated remaining life is below
// Threshold days, soonest first, at most Budget per day. A plant never loses
// its last working boiler to servicing.
type Preventive struct {
	Budget    int     `json:"budget"`
	Threshold float64 `json:"threshold"`
}

func (pv Preventive) SelectActions(plants []*plant.Thermoelectric) []Action {
	type candidate struct {
		Action
		life float64
	}
	var all []candidate
	for pi, p := range plants {
		for i, part := range p.Parts() {
			if part.IsWorking() && part.EstimatedRemainingLife() < pv.Threshold {
				all = append(all, candidate{Action{Plant: pi, Part: i, Kind: Service}, part.EstimatedRemainingLife()})
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].life < all[j].life })
	boilers := make(map[int]int)
	budget := max(pv.Budget, 1)
	var out []Action
	for _, c := range all {
		if len(out) == budget {
			break
		}
		p := plants[c.Plant]
		if p.Parts()[c.Part].Role() == reliability.Boiler {
			left, ok := boilers[c.Plant]
			if !ok {
				left = p.WorkingBoilers()
			}
			if left <= 1 {
				continue
			}
			boilers[c.Plant] = left - 1
		}
		out = append(out, c.Action)
	}
	return out
}

var policyRegistry = factory.NewRegistry[Policy]()

// RegisterPolicy adds a maintenance policy factory identified by name.
func RegisterPolicy(name string, f factory.Factory[Policy]) error {
	return policyRegistry.Register(name, f)
}

// NewPolicy builds the configured policy. An empty type means no maintenance.
func NewPolicy(cfg factory.ModuleConfig) (Policy, error) {
	if cfg.Type == "" {
		return NoMaintenance{}, nil
	}
	return policyRegistry.Create(cfg)
}

func init() {
	_ = RegisterPolicy("none", func(map[string]any) (Policy, error) { return NoMaintenance{}, nil })
	_ = RegisterPolicy("hurry_critical", func(conf map[string]any) (Policy, error) {
		h := HurryCritical{Budget: 1}
		if err := factory.Decode(conf, &h); err != nil {
			return nil, err
		}
		return h, nil
	})
	_ = RegisterPolicy("preventive", func(conf map[string]any) (Policy, error) {
		pv := Preventive{Budget: 1, Threshold: 3}
		if err := factory.Decode(conf, &pv); err != nil {
			return nil, err
		}
		if pv.Threshold < 0 {
			return nil, fmt.Errorf("preventive threshold %v is negative", pv.Threshold)
		}
		return pv, nil
	})
}
