package reliability

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrNotRepairing is returned when a repair is hurried on a part that has no
// repair in progress.
var ErrNotRepairing = errors.New("part is not repairing")

// ErrNotWorking is returned when a part that is already down is serviced.
var ErrNotWorking = errors.New("part is not working")

// Role is the mechanical function a part plays inside a plant.
type Role int

const (
	Boiler Role = iota
	Coil
	SteamTurbine
	Generator
)

func (r Role) String() string {
	switch r {
	case Boiler:
		return "boiler"
	case Coil:
		return "coil"
	case SteamTurbine:
		return "steam_turbine"
	case Generator:
		return "generator"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Critical reports whether a failure of this role stops the whole plant.
func (r Role) Critical() bool { return r != Boiler }

// State is the observable condition of a part. Repairing is a sub-state of
// Broken: the part is broken and a repair countdown is running.
type State int

const (
	StateWorking State = iota
	StateBroken
	StateRepairing
)

func (s State) String() string {
	switch s {
	case StateWorking:
		return "working"
	case StateBroken:
		return "broken"
	case StateRepairing:
		return "repairing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transition is what happened to a part during one tick.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionFailed
	TransitionRepaired
)

func (t Transition) String() string {
	switch t {
	case TransitionFailed:
		return "failed"
	case TransitionRepaired:
		return "repaired"
	default:
		return "none"
	}
}

// Part is a maintainable component with a failure/repair cycle. Only one
// countdown is active at a time: remaining life while working, remaining
// repair while broken.
type Part struct {
	role   Role
	repair Distribution
	life   Distribution

	remainingLife   float64
	remainingRepair float64
	repairing       bool
	hurried         bool

	// estimates are what an operator sees; they are independent draws from
	// the same distributions and tick down with the real countdowns.
	estimatedLife   float64
	estimatedRepair float64
}

// NewPart builds a working part and samples its first lifetime.
func NewPart(role Role, repair, life Distribution) (*Part, error) {
	if repair == nil || life == nil {
		return nil, fmt.Errorf("part %s needs repair and life distributions: %w", role, ErrInvalidParameter)
	}
	p := &Part{role: role, repair: repair, life: life}
	p.planBreakdown()
	return p, nil
}

// Tick advances the active countdown by one unit of simulated time.
func (p *Part) Tick() Transition {
	if p.repairing {
		if p.hurried {
			p.finishRepair()
			return TransitionRepaired
		}
		p.remainingRepair--
		p.estimatedRepair--
		if p.remainingRepair <= 0 {
			p.finishRepair()
			return TransitionRepaired
		}
		return TransitionNone
	}
	p.remainingLife--
	p.estimatedLife--
	if p.remainingLife <= 0 {
		p.breakDown()
		return TransitionFailed
	}
	return TransitionNone
}

// HurryRepair forces the running repair to complete on the next tick. A fresh
// lifetime is still sampled when it completes.
func (p *Part) HurryRepair() error {
	if !p.repairing {
		return fmt.Errorf("hurry %s: %w", p.role, ErrNotRepairing)
	}
	p.hurried = true
	p.remainingRepair = 0
	p.estimatedRepair = 0
	return nil
}

// Fail breaks a working part immediately and starts its repair. It reports
// false when the part was already broken.
func (p *Part) Fail() bool {
	if p.repairing {
		return false
	}
	p.breakDown()
	return true
}

func (p *Part) breakDown() {
	p.remainingLife = 0
	p.estimatedLife = 0
	p.repairing = true
	p.hurried = false
	p.remainingRepair = p.repair.Sample()
	p.estimatedRepair = p.repair.Sample()
}

func (p *Part) finishRepair() {
	p.repairing = false
	p.hurried = false
	p.remainingRepair = 0
	p.estimatedRepair = 0
	p.planBreakdown()
}

func (p *Part) planBreakdown() {
	p.remainingLife = p.life.Sample()
	p.estimatedLife = p.life.Sample()
}

// Role returns the mechanical role of the part.
func (p *Part) Role() Role { return p.role }

// IsWorking reports whether the part still has life left.
func (p *Part) IsWorking() bool { return !p.repairing && p.remainingLife > 0 }

// IsRepairing reports whether a repair countdown is running.
func (p *Part) IsRepairing() bool { return p.repairing }

// State returns the current state of the part.
func (p *Part) State() State {
	switch {
	case p.IsWorking():
		return StateWorking
	case p.repairing:
		return StateRepairing
	default:
		return StateBroken
	}
}

// RemainingLife returns the true remaining life, zero while broken.
func (p *Part) RemainingLife() float64 { return p.remainingLife }

// RemainingRepair returns the remaining repair time and whether a repair is running.
func (p *Part) RemainingRepair() (float64, bool) { return p.remainingRepair, p.repairing }

// EstimatedRemainingLife is the operator's view of the remaining life.
func (p *Part) EstimatedRemainingLife() float64 {
	if !p.IsWorking() {
		return 0
	}
	return p.estimatedLife
}

// EstimatedRemainingRepair is the operator's view of the remaining repair time.
func (p *Part) EstimatedRemainingRepair() float64 {
	if !p.repairing {
		return 0
	}
	return p.estimatedRepair
}

// Profile holds the distribution parameters used to build parts of one role.
// Repairs are given as RepairScale and RepairSigma, as a RepairMin to
// RepairMax range holding about 95% of the draws, or as RepairMean and
// RepairDeviation, in that order of precedence.
type Profile struct {
	RepairScale     float64 `json:"repair_scale" yaml:"repair_scale"`
	RepairSigma     float64 `json:"repair_sigma" yaml:"repair_sigma"`
	RepairMin       float64 `json:"repair_min" yaml:"repair_min"`
	RepairMax       float64 `json:"repair_max" yaml:"repair_max"`
	RepairMean      float64 `json:"repair_mean" yaml:"repair_mean"`
	RepairDeviation float64 `json:"repair_deviation" yaml:"repair_deviation"`
	LifeScale       float64 `json:"life_scale" yaml:"life_scale"`
	LifeShape       float64 `json:"life_shape" yaml:"life_shape"`
}

// Resolve returns p with RepairScale and RepairSigma derived from the range
// or from the mean and deviation when they are not set directly.
func (p Profile) Resolve() (Profile, error) {
	var err error
	switch {
	case p.RepairScale != 0 || p.RepairSigma != 0:
	case p.RepairMin != 0 || p.RepairMax != 0:
		p.RepairScale, p.RepairSigma, err = LogNormalParamsForRange(p.RepairMin, p.RepairMax)
	case p.RepairMean != 0 || p.RepairDeviation != 0:
		p.RepairScale, p.RepairSigma, err = LogNormalParamsForMeanDeviation(p.RepairMean, p.RepairDeviation)
	}
	if err != nil {
		return p, fmt.Errorf("repair: %w", err)
	}
	return p, nil
}

// Validate checks that every resolved parameter is strictly positive.
func (p Profile) Validate() error {
	r, err := p.Resolve()
	if err != nil {
		return err
	}
	if !(r.RepairScale > 0) || !(r.RepairSigma > 0) || !(r.LifeScale > 0) || !(r.LifeShape > 0) {
		return fmt.Errorf("profile %+v: %w", p, ErrInvalidParameter)
	}
	return nil
}

// Build creates a part of the given role whose distributions draw from src.
func (p Profile) Build(role Role, src rand.Source) (*Part, error) {
	p, err := p.Resolve()
	if err != nil {
		return nil, fmt.Errorf("%s %w", role, err)
	}
	repair, err := NewLogNormal(p.RepairScale, p.RepairSigma, src)
	if err != nil {
		return nil, fmt.Errorf("%s repair: %w", role, err)
	}
	life, err := NewWeibull(p.LifeScale, p.LifeShape, src)
	if err != nil {
		return nil, fmt.Errorf("%s life: %w", role, err)
	}
	return NewPart(role, repair, life)
}
