package metrics

import (
	"time"

	"github.com/kilianp07/thermogrid/core/plant"
)

// DayReport summarises one simulated day.
type DayReport struct {
	RunID    string    `json:"run_id"`
	Day      int       `json:"day"`
	Time     time.Time `json:"time"`
	Fitness  float64   `json:"fitness"`
	Served   int       `json:"served"`
	Unserved int       `json:"unserved"`
	// Infeasible cells could not be served by any plant at full ceiling.
	Infeasible int     `json:"infeasible"`
	Demand     float64 `json:"demand"`
	Deficit    float64 `json:"deficit"`
	Offered    float64 `json:"offered"`
	Drawn      float64 `json:"drawn"`
	Failures   int     `json:"failures"`
	Repairs    int     `json:"repairs"`
	Hurried    int     `json:"hurried"`
	Serviced   int     `json:"serviced"`
}

// DayReportRecorder records day summaries.
type DayReportRecorder interface {
	RecordDayReport(r DayReport) error
}

// PlantState is a plant snapshot taken at the end of a day.
type PlantState struct {
	Day  int       `json:"day"`
	Time time.Time `json:"time"`
	plant.Snapshot
}

// PlantStateRecorder records plant snapshots.
type PlantStateRecorder interface {
	RecordPlantStates(states []PlantState) error
}

// Sink is the interface every metrics sink implements.
type Sink interface {
	DayReportRecorder
	PlantStateRecorder
}

// PartEvent is a part transition as seen by a sink.
type PartEvent struct {
	Day     int
	PlantID string
	Role    string
	// Kind is part_failed, part_repaired, repair_hurried or part_serviced.
	Kind string
	Time time.Time
}

// PartEventRecorder is implemented by sinks able to record part transitions.
type PartEventRecorder interface {
	RecordPartEvent(ev PartEvent) error
}

// AdequacySummary is the outcome of a Monte Carlo adequacy study.
type AdequacySummary struct {
	Runs         int       `json:"runs"`
	Days         int       `json:"days"`
	LOLP         float64   `json:"lolp"`
	MeanCapacity float64   `json:"mean_capacity"`
	StdCapacity  float64   `json:"std_capacity"`
	MeanDeficit  float64   `json:"mean_deficit"`
	Time         time.Time `json:"time"`
}

// AdequacyRecorder is implemented by sinks able to record adequacy studies.
type AdequacyRecorder interface {
	RecordAdequacy(s AdequacySummary) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDayReport(DayReport) error      { return nil }
func (NopSink) RecordPlantStates([]PlantState) error { return nil }
func (NopSink) RecordPartEvent(PartEvent) error      { return nil }
func (NopSink) RecordAdequacy(AdequacySummary) error { return nil }
