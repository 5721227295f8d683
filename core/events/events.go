package events

import "github.com/kilianp07/thermogrid/core/reliability"

// Event is implemented by every simulation event.
type Event interface {
	Kind() string
}

// PartFailed is published when a part breaks down.
type PartFailed struct {
	Day     int
	PlantID string
	Index   int
	Role    reliability.Role
	// Repair is the true repair duration that was sampled.
	Repair float64
}

func (PartFailed) Kind() string { return "part_failed" }

// PartRepaired is published when a repair completes.
type PartRepaired struct {
	Day     int
	PlantID string
	Index   int
	Role    reliability.Role
}

func (PartRepaired) Kind() string { return "part_repaired" }

// RepairHurried is published when a maintenance policy hurries a repair.
type RepairHurried struct {
	Day     int
	PlantID string
	Index   int
	Role    reliability.Role
}

func (RepairHurried) Kind() string { return "repair_hurried" }

// PartServiced is published when a maintenance policy takes a working part
// down before it breaks.
type PartServiced struct {
	Day     int
	PlantID string
	Index   int
	Role    reliability.Role
	// Repair is the true repair duration that was sampled.
	Repair float64
}

func (PartServiced) Kind() string { return "part_serviced" }

// DayPlanned is published once a day has been planned and drawn down.
type DayPlanned struct {
	Day      int
	Fitness  float64
	Served   int
	Unserved int
	Deficit  float64
}

func (DayPlanned) Kind() string { return "day_planned" }
