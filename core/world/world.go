// Package world drives the daily simulation loop: it ticks the plants, lets a
// maintenance policy act, plans the day with the genetic scheduler and draws
// the planned energy from the plants.
package world

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/thermogrid/core/demand"
	"github.com/kilianp07/thermogrid/core/events"
	"github.com/kilianp07/thermogrid/core/factory"
	"github.com/kilianp07/thermogrid/core/fitness"
	"github.com/kilianp07/thermogrid/core/grid"
	"github.com/kilianp07/thermogrid/core/logger"
	"github.com/kilianp07/thermogrid/core/metrics"
	"github.com/kilianp07/thermogrid/core/orders"
	"github.com/kilianp07/thermogrid/core/planlog"
	"github.com/kilianp07/thermogrid/core/plant"
	"github.com/kilianp07/thermogrid/core/reliability"
	"github.com/kilianp07/thermogrid/core/scheduler"
	"github.com/kilianp07/thermogrid/internal/eventbus"
)

// Config holds the simulation parameters.
type Config struct {
	Seed        uint64               `json:"seed" yaml:"seed"`
	Days        int                  `json:"days" yaml:"days"`
	Scope       scheduler.Scope      `json:"scope" yaml:"scope"`
	Maintenance factory.ModuleConfig `json:"maintenance" yaml:"maintenance"`
	Scheduler   scheduler.Config     `json:"scheduler" yaml:"scheduler"`
	Weights     fitness.Weights      `json:"weights" yaml:"weights"`
	Profiles    plant.Profiles       `json:"profiles" yaml:"profiles"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Days == 0 {
		c.Days = 30
	}
	if c.Scope == "" {
		c.Scope = scheduler.ScopeHourly
	}
	if c.Weights == (fitness.Weights{}) {
		c.Weights = fitness.DefaultWeights()
	}
	if c.Profiles == (plant.Profiles{}) {
		c.Profiles = plant.DefaultProfiles()
	}
	c.Scheduler.SetDefaults()
}

// Validate checks every nested section.
func (c Config) Validate() error {
	if c.Days < 1 {
		return fmt.Errorf("days must be positive")
	}
	if c.Scope != scheduler.ScopeHourly && c.Scope != scheduler.ScopeDaily {
		return fmt.Errorf("unknown scope %q", c.Scope)
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Profiles.Validate(); err != nil {
		return err
	}
	return c.Scheduler.Validate()
}

// World owns the fleet and every collaborator of the daily loop.
type World struct {
	cfg    Config
	topo   grid.Topology
	plants []*plant.Thermoelectric
	demand demand.Source
	policy Policy
	rng    *rand.Rand

	runID     string
	day       int
	last      Plan
	outages   outageHistory
	log       logger.Logger
	bus       *eventbus.TypedBus[events.Event]
	sink      metrics.Sink
	store     planlog.Store
	publisher orders.Publisher
	now       func() time.Time
}

// Option customises a World.
type Option func(*World)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(w *World) { w.log = logger.OrNop(l) } }

// WithBus publishes simulation events on bus.
func WithBus(bus *eventbus.TypedBus[events.Event]) Option { return func(w *World) { w.bus = bus } }

// WithSink records day reports and plant states on s.
func WithSink(s metrics.Sink) Option { return func(w *World) { w.sink = s } }

// WithPlanLog appends one record per day to s.
func WithPlanLog(s planlog.Store) Option { return func(w *World) { w.store = s } }

// WithPublisher sends the daily dispatch orders through p.
func WithPublisher(p orders.Publisher) Option { return func(w *World) { w.publisher = p } }

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) Option { return func(w *World) { w.now = now } }

// WithRunID sets the identifier stamped on reports and plan records.
func WithRunID(id string) Option { return func(w *World) { w.runID = id } }

// WithPlants replaces the fleet built from the topology. Plants must follow
// the topology order.
func WithPlants(plants []*plant.Thermoelectric) Option { return func(w *World) { w.plants = plants } }

// WithDemand replaces the demand generator built from the block profiles.
func WithDemand(src demand.Source) Option { return func(w *World) { w.demand = src } }

// WithPolicy replaces the maintenance policy named in the config.
func WithPolicy(p Policy) Option { return func(w *World) { w.policy = p } }

// New validates the topology and config and builds the fleet and demand
// generator from independent random streams derived from cfg.Seed.
func New(topo grid.Topology, cfg Config, opts ...Option) (*World, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("world config: %w", err)
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		cfg:       cfg,
		topo:      topo,
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		log:       logger.Nop{},
		sink:      metrics.NopSink{},
		store:     planlog.NopStore{},
		publisher: orders.Nop{},
		now:       time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	if w.runID == "" {
		w.runID = uuid.NewString()
	}
	ids := make([]string, len(topo.Blocks))
	for i, b := range topo.Blocks {
		ids[i] = b.ID
	}
	w.outages = newOutageHistory(ids)
	if w.plants == nil {
		fleet, err := BuildFleet(topo, cfg.Profiles, rand.NewPCG(cfg.Seed, 1))
		if err != nil {
			return nil, err
		}
		w.plants = fleet
	}
	if len(w.plants) != len(topo.Plants) {
		return nil, fmt.Errorf("%d plants for %d topology plants: %w", len(w.plants), len(topo.Plants), grid.ErrInvalidTopology)
	}
	if w.demand == nil {
		gen, err := demand.NewGenerator(topo.Profiles(), rand.NewPCG(cfg.Seed, 2))
		if err != nil {
			return nil, err
		}
		w.demand = gen
	}
	if w.policy == nil {
		p, err := NewPolicy(cfg.Maintenance)
		if err != nil {
			return nil, err
		}
		w.policy = p
	}
	return w, nil
}

// RunID returns the run identifier.
func (w *World) RunID() string { return w.runID }

// Day returns the number of days simulated so far.
func (w *World) Day() int { return w.day }

// LastPlan returns the plan of the most recent day.
func (w *World) LastPlan() Plan { return w.last }

// Outages returns the per-block outage history in topology order.
func (w *World) Outages() []BlockOutage { return append([]BlockOutage(nil), w.outages...) }

// Plants returns the fleet in topology order.
func (w *World) Plants() []*plant.Thermoelectric { return w.plants }

// Run simulates cfg.Days days, or days when positive. It stops at the first
// hard error or when ctx is canceled between days.
func (w *World) Run(ctx context.Context, days int) ([]metrics.DayReport, error) {
	if days <= 0 {
		days = w.cfg.Days
	}
	reports := make([]metrics.DayReport, 0, days)
	for i := 0; i < days; i++ {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r, err := w.Step(ctx)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Plan is the outcome of one planning cycle.
type Plan struct {
	Day      int
	Instance *scheduler.Instance
	Result   scheduler.Result
	Inputs   fitness.Inputs
}

// Step simulates one day. CapacityExceeded and InvalidParameter failures are
// returned; unserved demand is only reported.
func (w *World) Step(ctx context.Context) (metrics.DayReport, error) {
	w.day++
	day := w.day
	report := metrics.DayReport{RunID: w.runID, Day: day, Time: w.now()}

	report.Failures, report.Repairs = w.updatePlants(day)
	report.Hurried, report.Serviced = w.maintain(day)

	plan, err := w.plan(ctx, day)
	if err != nil {
		return report, err
	}
	w.last = plan
	best := plan.Result.Best
	report.Fitness = plan.Result.Fitness
	report.Served = best.Served()
	report.Unserved = best.Hours()*best.Blocks() - report.Served
	report.Infeasible = plan.Result.Infeasible
	report.Demand = plan.Inputs.TotalDemand()
	report.Deficit = plan.Inputs.Deficit(best)
	for _, p := range w.plants {
		report.Offered += p.Offer()
	}

	drawn, err := w.drawDown(plan)
	if err != nil {
		return report, err
	}
	report.Drawn = drawn
	w.outages.record(best)

	w.record(ctx, report, plan)
	w.log.Infof("day %d planned: fitness %.4f served %d unserved %d deficit %.2f",
		day, report.Fitness, report.Served, report.Unserved, report.Deficit)
	return report, nil
}

func (w *World) publish(ev events.Event) {
	if w.bus != nil {
		w.bus.Publish(ev)
	}
}

func (w *World) updatePlants(day int) (failures, repairs int) {
	for _, p := range w.plants {
		for _, ev := range p.Update() {
			switch ev.Transition {
			case reliability.TransitionFailed:
				failures++
				rep, _ := p.Parts()[ev.Index].RemainingRepair()
				w.log.Warnf("day %d: %s %s #%d failed, repair %.1f days", day, ev.PlantID, ev.Role, ev.Index, rep)
				w.publish(events.PartFailed{Day: day, PlantID: ev.PlantID, Index: ev.Index, Role: ev.Role, Repair: rep})
			case reliability.TransitionRepaired:
				repairs++
				w.publish(events.PartRepaired{Day: day, PlantID: ev.PlantID, Index: ev.Index, Role: ev.Role})
			}
		}
	}
	return failures, repairs
}

func (w *World) maintain(day int) (hurried, serviced int) {
	for _, a := range w.policy.SelectActions(w.plants) {
		if a.Plant < 0 || a.Plant >= len(w.plants) {
			continue
		}
		p := w.plants[a.Plant]
		switch a.Kind {
		case Service:
			if err := p.ServicePart(a.Part); err != nil {
				w.log.Warnf("day %d: %v", day, err)
				continue
			}
			serviced++
			part := p.Parts()[a.Part]
			rep, _ := part.RemainingRepair()
			w.log.Infof("day %d: %s %s #%d serviced, repair %.1f days", day, p.ID(), part.Role(), a.Part, rep)
			w.publish(events.PartServiced{Day: day, PlantID: p.ID(), Index: a.Part, Role: part.Role(), Repair: rep})
		default:
			if err := p.HurryRepair(a.Part); err != nil {
				w.log.Warnf("day %d: %v", day, err)
				continue
			}
			hurried++
			role := p.Parts()[a.Part].Role()
			w.publish(events.RepairHurried{Day: day, PlantID: p.ID(), Index: a.Part, Role: role})
		}
	}
	return hurried, serviced
}

func (w *World) plan(ctx context.Context, day int) (Plan, error) {
	offers := make([]float64, len(w.plants))
	for i, p := range w.plants {
		offers[i] = p.Offer()
	}
	load := w.demand.Next()
	if len(load) != len(w.topo.Blocks) {
		return Plan{}, fmt.Errorf("demand has %d blocks, topology %d: %w", len(load), len(w.topo.Blocks), grid.ErrInvalidTopology)
	}
	for b, row := range load {
		if len(row) != scheduler.Hours {
			return Plan{}, fmt.Errorf("demand block %d has %d hours: %w", b, len(row), grid.ErrInvalidTopology)
		}
	}
	in := fitness.Inputs{Demand: load, Distances: w.topo.Distances, Importance: w.topo.Importances()}
	in.DaysOff, in.LongestOff = w.outages.weights()
	problem := scheduler.Problem{
		Plants:   len(w.plants),
		Blocks:   len(w.topo.Blocks),
		Hours:    scheduler.Hours,
		Scope:    w.cfg.Scope,
		Ceilings: Ceilings(offers, w.cfg.Scope, scheduler.Hours),
		Cost:     w.topo.CostFunc(load),
	}
	cfg := w.cfg.Scheduler
	cfg.Seed = w.rng.Uint64()
	s, err := scheduler.New(problem, fitness.Build(in, w.cfg.Weights), cfg, scheduler.WithLogger(w.log))
	if err != nil {
		return Plan{}, err
	}
	res, err := s.Run(ctx)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Day: day, Instance: s.Instance(), Result: res, Inputs: in}, nil
}

// drawDown consumes the planned energy in hour then block order.
func (w *World) drawDown(plan Plan) (float64, error) {
	best := plan.Result.Best
	drawn := 0.0
	for h := 0; h < best.Hours(); h++ {
		for b := 0; b < best.Blocks(); b++ {
			pi := best.At(h, b)
			if pi == scheduler.Unserved {
				continue
			}
			amount := plan.Instance.Cost(pi, b, h)
			if err := w.plants[pi].ConsumeEnergy(amount); err != nil {
				return drawn, fmt.Errorf("day %d hour %d block %s: %w", plan.Day, h, w.topo.Blocks[b].ID, err)
			}
			drawn += amount
		}
	}
	return drawn, nil
}

// record fans the outcome out to the sink, the plan log, the dispatch
// publisher and the bus. Failures there are logged, not returned.
func (w *World) record(ctx context.Context, report metrics.DayReport, plan Plan) {
	if err := w.sink.RecordDayReport(report); err != nil {
		w.log.Errorf("record day report: %v", err)
	}
	states := make([]metrics.PlantState, len(w.plants))
	for i, p := range w.plants {
		states[i] = metrics.PlantState{Day: report.Day, Time: report.Time, Snapshot: p.Snapshot()}
	}
	if err := w.sink.RecordPlantStates(states); err != nil {
		w.log.Errorf("record plant states: %v", err)
	}
	rec := planlog.Record{
		RunID:      report.RunID,
		Day:        report.Day,
		Timestamp:  report.Time,
		Fitness:    report.Fitness,
		Served:     report.Served,
		Unserved:   report.Unserved,
		Deficit:    report.Deficit,
		Assignment: plan.Result.Best.Rows(),
	}
	if err := w.store.Append(ctx, rec); err != nil {
		w.log.Errorf("append plan log: %v", err)
	}
	ids := make([]string, len(w.plants))
	for i, p := range w.plants {
		ids[i] = p.ID()
	}
	if err := w.publisher.PublishOrders(ctx, orders.Build(report.Day, ids, plan.Instance, plan.Result.Best)); err != nil && !errors.Is(err, context.Canceled) {
		w.log.Errorf("publish orders: %v", err)
	}
	w.publish(events.DayPlanned{
		Day:      report.Day,
		Fitness:  report.Fitness,
		Served:   report.Served,
		Unserved: report.Unserved,
		Deficit:  report.Deficit,
	})
}
