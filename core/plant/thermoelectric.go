// Package plant aggregates maintainable parts into a thermoelectric plant that
// offers a time-varying amount of capacity.
package plant

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/kilianp07/thermogrid/core/reliability"
)

// ErrCapacityExceeded is returned when a draw-down asks for more energy than the
// plant currently offers.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// drawEpsilon absorbs float rounding when a schedule drains a plant exactly.
const drawEpsilon = 1e-6

// PartEvent reports a part transition observed during Update.
type PartEvent struct {
	PlantID    string
	Index      int
	Role       reliability.Role
	Transition reliability.Transition
}

// Thermoelectric owns a fixed set of parts. Capacity is proportional to the
// share of working boilers; any broken critical part or a full boiler outage
// takes the plant offline.
type Thermoelectric struct {
	id            string
	totalCapacity float64
	parts         []*reliability.Part
	boilers       int

	currentCapacity float64
	storedEnergy    float64
	ticks           int
}

// NewThermoelectric validates the part set and computes the initial capacity.
func NewThermoelectric(id string, totalCapacity float64, parts []*reliability.Part) (*Thermoelectric, error) {
	if id == "" {
		return nil, fmt.Errorf("plant id is empty: %w", reliability.ErrInvalidParameter)
	}
	if !(totalCapacity > 0) || math.IsInf(totalCapacity, 0) {
		return nil, fmt.Errorf("plant %s capacity %v: %w", id, totalCapacity, reliability.ErrInvalidParameter)
	}
	t := &Thermoelectric{id: id, totalCapacity: totalCapacity}
	for i, p := range parts {
		if p == nil {
			return nil, fmt.Errorf("plant %s part %d is nil: %w", id, i, reliability.ErrInvalidParameter)
		}
		if p.Role() == reliability.Boiler {
			t.boilers++
		}
	}
	if t.boilers == 0 {
		return nil, fmt.Errorf("plant %s has no boiler: %w", id, reliability.ErrInvalidParameter)
	}
	t.parts = append([]*reliability.Part(nil), parts...)
	t.recompute()
	return t, nil
}

// Profiles holds one reliability profile per part role.
type Profiles struct {
	Boiler       reliability.Profile `json:"boiler" yaml:"boiler"`
	Coil         reliability.Profile `json:"coil" yaml:"coil"`
	SteamTurbine reliability.Profile `json:"steam_turbine" yaml:"steam_turbine"`
	Generator    reliability.Profile `json:"generator" yaml:"generator"`
}

// For returns the profile of the given role.
func (p Profiles) For(role reliability.Role) reliability.Profile {
	switch role {
	case reliability.Coil:
		return p.Coil
	case reliability.SteamTurbine:
		return p.SteamTurbine
	case reliability.Generator:
		return p.Generator
	default:
		return p.Boiler
	}
}

// Validate checks every role profile.
func (p Profiles) Validate() error {
	for _, r := range []reliability.Role{reliability.Boiler, reliability.Coil, reliability.SteamTurbine, reliability.Generator} {
		if err := p.For(r).Validate(); err != nil {
			return fmt.Errorf("%s: %w", r, err)
		}
	}
	return nil
}

// DefaultProfiles returns wear-out lifetimes of roughly eleven weeks and repairs
// of one to two weeks, expressed in days.
func DefaultProfiles() Profiles {
	life := reliability.Profile{RepairScale: 10, RepairSigma: 0.2, LifeScale: 79.33, LifeShape: 2.62}
	critical := life
	critical.LifeScale = 180
	critical.RepairScale = 6
	return Profiles{Boiler: life, Coil: critical, SteamTurbine: critical, Generator: critical}
}

// NewStandard builds a plant with the given number of boilers plus one coil,
// one steam turbine and one generator.
func NewStandard(id string, capacity float64, boilers int, profiles Profiles, src rand.Source) (*Thermoelectric, error) {
	if boilers < 1 {
		return nil, fmt.Errorf("plant %s boilers %d: %w", id, boilers, reliability.ErrInvalidParameter)
	}
	roles := make([]reliability.Role, 0, boilers+3)
	for i := 0; i < boilers; i++ {
		roles = append(roles, reliability.Boiler)
	}
	roles = append(roles, reliability.Coil, reliability.SteamTurbine, reliability.Generator)
	parts := make([]*reliability.Part, 0, len(roles))
	for _, r := range roles {
		p, err := profiles.For(r).Build(r, src)
		if err != nil {
			return nil, fmt.Errorf("plant %s: %w", id, err)
		}
		parts = append(parts, p)
	}
	return NewThermoelectric(id, capacity, parts)
}

// Update ticks every part once, keeps the unconsumed offer of the previous
// tick as stored energy and recomputes the capacity from the new boiler ratio.
// Stored energy never exceeds the design capacity, and the first tick carries
// nothing over.
func (t *Thermoelectric) Update() []PartEvent {
	t.storedEnergy = 0
	if t.ticks > 0 {
		t.storedEnergy = math.Min(t.Offer(), t.totalCapacity)
	}
	t.ticks++
	var events []PartEvent
	for i, p := range t.parts {
		if tr := p.Tick(); tr != reliability.TransitionNone {
			events = append(events, PartEvent{PlantID: t.id, Index: i, Role: p.Role(), Transition: tr})
		}
	}
	t.recompute()
	return events
}

func (t *Thermoelectric) recompute() {
	working := t.WorkingBoilers()
	if working == 0 {
		t.currentCapacity = 0
		return
	}
	t.currentCapacity = float64(working) / float64(t.boilers) * t.totalCapacity
}

// IsWorking is false when a critical part is broken or every boiler is broken.
func (t *Thermoelectric) IsWorking() bool {
	for _, p := range t.parts {
		if p.Role().Critical() && !p.IsWorking() {
			return false
		}
	}
	return t.WorkingBoilers() > 0
}

// Offer is the energy available for draw-down this tick: the boiler-ratio
// capacity plus the stored credit. A stopped plant offers nothing.
func (t *Thermoelectric) Offer() float64 {
	if !t.IsWorking() {
		return 0
	}
	return t.currentCapacity + t.storedEnergy
}

// ConsumeEnergy draws amount from the current offer, stored energy first.
func (t *Thermoelectric) ConsumeEnergy(amount float64) error {
	if amount < 0 || math.IsNaN(amount) {
		return fmt.Errorf("plant %s draw %v: %w", t.id, amount, reliability.ErrInvalidParameter)
	}
	offer := t.Offer()
	if amount > offer+drawEpsilon {
		return fmt.Errorf("plant %s draw %.3f over offer %.3f: %w", t.id, amount, offer, ErrCapacityExceeded)
	}
	fromStore := math.Min(amount, t.storedEnergy)
	t.storedEnergy -= fromStore
	t.currentCapacity = math.Max(t.currentCapacity-(amount-fromStore), 0)
	return nil
}

// ID returns the plant identifier.
func (t *Thermoelectric) ID() string { return t.id }

// TotalCapacity returns the design ceiling.
func (t *Thermoelectric) TotalCapacity() float64 { return t.totalCapacity }

// CurrentCapacity returns the boiler-ratio capacity left this tick, ignoring
// whether critical parts work.
func (t *Thermoelectric) CurrentCapacity() float64 { return t.currentCapacity }

// StoredEnergy is the credit carried over from the previous tick and not yet
// drawn.
func (t *Thermoelectric) StoredEnergy() float64 { return t.storedEnergy }

// TotalBoilers returns the number of boilers.
func (t *Thermoelectric) TotalBoilers() int { return t.boilers }

// WorkingBoilers returns the number of boilers still working.
func (t *Thermoelectric) WorkingBoilers() int {
	n := 0
	for _, p := range t.parts {
		if p.Role() == reliability.Boiler && p.IsWorking() {
			n++
		}
	}
	return n
}

// Parts returns the owned parts in construction order.
func (t *Thermoelectric) Parts() []*reliability.Part { return t.parts }

// CriticalRepairs lists the indices of critical parts under repair, longest
// estimated repair first.
func (t *Thermoelectric) CriticalRepairs() []int {
	var idx []int
	for i, p := range t.parts {
		if p.Role().Critical() && p.IsRepairing() {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.parts[idx[a]].EstimatedRemainingRepair() > t.parts[idx[b]].EstimatedRemainingRepair()
	})
	return idx
}

// HurryRepair hurries the repair of the part at index.
func (t *Thermoelectric) HurryRepair(index int) error {
	if index < 0 || index >= len(t.parts) {
		return fmt.Errorf("plant %s part index %d: %w", t.id, index, reliability.ErrInvalidParameter)
	}
	if err := t.parts[index].HurryRepair(); err != nil {
		return fmt.Errorf("plant %s: %w", t.id, err)
	}
	return nil
}

// ServicePart takes the working part at index down for a preventive repair.
func (t *Thermoelectric) ServicePart(index int) error {
	if index < 0 || index >= len(t.parts) {
		return fmt.Errorf("plant %s part index %d: %w", t.id, index, reliability.ErrInvalidParameter)
	}
	p := t.parts[index]
	if !p.Fail() {
		return fmt.Errorf("plant %s service %s #%d: %w", t.id, p.Role(), index, reliability.ErrNotWorking)
	}
	t.recompute()
	return nil
}

// Snapshot is a point-in-time view of a plant used by reports and sinks.
type Snapshot struct {
	PlantID         string  `json:"plant_id"`
	Working         bool    `json:"working"`
	Offer           float64 `json:"offer"`
	CurrentCapacity float64 `json:"current_capacity"`
	StoredEnergy    float64 `json:"stored_energy"`
	WorkingBoilers  int     `json:"working_boilers"`
	TotalBoilers    int     `json:"total_boilers"`
	Repairing       int     `json:"repairing"`
}

// Snapshot captures the current state.
func (t *Thermoelectric) Snapshot() Snapshot {
	rep := 0
	for _, p := range t.parts {
		if p.IsRepairing() {
			rep++
		}
	}
	return Snapshot{
		PlantID:         t.id,
		Working:         t.IsWorking(),
		Offer:           t.Offer(),
		CurrentCapacity: t.currentCapacity,
		StoredEnergy:    t.storedEnergy,
		WorkingBoilers:  t.WorkingBoilers(),
		TotalBoilers:    t.boilers,
		Repairing:       rep,
	}
}
