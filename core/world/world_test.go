package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/thermogrid/core/demand"
	"github.com/kilianp07/thermogrid/core/events"
	"github.com/kilianp07/thermogrid/core/factory"
	"github.com/kilianp07/thermogrid/core/grid"
	"github.com/kilianp07/thermogrid/core/metrics"
	"github.com/kilianp07/thermogrid/core/orders"
	"github.com/kilianp07/thermogrid/core/planlog"
	"github.com/kilianp07/thermogrid/core/plant"
	"github.com/kilianp07/thermogrid/core/reliability"
	"github.com/kilianp07/thermogrid/core/scheduler"
	"github.com/kilianp07/thermogrid/internal/eventbus"
)

type fixed float64

func (f fixed) Sample() float64 { return float64(f) }

type memorySink struct {
	reports []metrics.DayReport
	states  [][]metrics.PlantState
}

func (m *memorySink) RecordDayReport(r metrics.DayReport) error {
	m.reports = append(m.reports, r)
	return nil
}

func (m *memorySink) RecordPlantStates(s []metrics.PlantState) error {
	m.states = append(m.states, s)
	return nil
}

type memoryStore struct {
	planlog.NopStore
	recs []planlog.Record
}

func (m *memoryStore) Append(_ context.Context, r planlog.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func topology() grid.Topology {
	return grid.Topology{
		Plants: []grid.PlantSpec{{ID: "north", Capacity: 48, Boilers: 2}, {ID: "south", Capacity: 24, Boilers: 1}},
		Blocks: []grid.Block{
			{ID: "b1", Importance: 1, Profile: demand.DefaultProfile()},
			{ID: "b2", Importance: 2, Profile: demand.DefaultProfile()},
		},
		Distances: [][]float64{{0, 0}, {0, 0}},
	}
}

func flatDemand(blocks int, v float64) demand.Fixed {
	out := make(demand.Fixed, blocks)
	for b := range out {
		out[b] = make([]float64, scheduler.Hours)
		for h := range out[b] {
			out[b][h] = v
		}
	}
	return out
}

// standardPlant builds a plant whose generator lives generatorLife days and
// whose other parts never fail within a test.
func standardPlant(t *testing.T, id string, capacity float64, boilers int, generatorLife float64) *plant.Thermoelectric {
	t.Helper()
	var parts []*reliability.Part
	add := func(role reliability.Role, life float64) {
		p, err := reliability.NewPart(role, fixed(2), fixed(life))
		require.NoError(t, err)
		parts = append(parts, p)
	}
	for i := 0; i < boilers; i++ {
		add(reliability.Boiler, 1000)
	}
	add(reliability.Coil, 1000)
	add(reliability.SteamTurbine, 1000)
	add(reliability.Generator, generatorLife)
	p, err := plant.NewThermoelectric(id, capacity, parts)
	require.NoError(t, err)
	return p
}

func smallConfig() Config {
	return Config{
		Seed:      7,
		Days:      2,
		Scheduler: scheduler.Config{PopulationSize: 6, Generations: 3, Workers: 2},
	}
}

func TestStepServesFeasibleDemand(t *testing.T) {
	sink := &memorySink{}
	store := &memoryStore{}
	pub := &orders.MockPublisher{}
	bus := eventbus.NewTypedBuffered[events.Event](64)
	sub := bus.Subscribe()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	w, err := New(topology(), smallConfig(),
		WithPlants([]*plant.Thermoelectric{standardPlant(t, "north", 48, 2, 1000), standardPlant(t, "south", 24, 1, 1000)}),
		WithDemand(flatDemand(2, 0.5)),
		WithSink(sink), WithPlanLog(store), WithPublisher(pub), WithBus(bus),
		WithClock(func() time.Time { return now }), WithRunID("run-1"),
	)
	require.NoError(t, err)

	r, err := w.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Day)
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, 48, r.Served)
	assert.Zero(t, r.Unserved)
	assert.Zero(t, r.Infeasible)
	assert.InDelta(t, 24.0, r.Demand, 1e-9)
	assert.InDelta(t, 0, r.Deficit, 1e-9)
	assert.InDelta(t, 72.0, r.Offered, 1e-9)
	assert.InDelta(t, 24.0, r.Drawn, 1e-9)

	require.Len(t, sink.reports, 1)
	require.Len(t, sink.states, 1)
	assert.Len(t, sink.states[0], 2)
	require.Len(t, store.recs, 1)
	assert.Len(t, store.recs[0].Assignment, scheduler.Hours)

	published := pub.Published()
	require.Len(t, published, 2)
	assert.InDelta(t, r.Drawn, published[0].Total()+published[1].Total(), 1e-9)

	// Drawn energy is gone from the plants for the rest of the day.
	left := w.Plants()[0].CurrentCapacity() + w.Plants()[1].CurrentCapacity()
	assert.InDelta(t, 72.0-24.0, left, 1e-9)

	select {
	case ev := <-sub:
		planned, ok := ev.(events.DayPlanned)
		require.True(t, ok, "unexpected event %T", ev)
		assert.Equal(t, 48, planned.Served)
	default:
		t.Fatal("no DayPlanned event")
	}
	assert.Equal(t, w.LastPlan().Result.Best.Rows(), store.recs[0].Assignment)
}

func TestGeneratorFailureAndHurriedRepair(t *testing.T) {
	bus := eventbus.NewTypedBuffered[events.Event](64)
	sub := bus.Subscribe()
	w, err := New(topology(), smallConfig(),
		WithPlants([]*plant.Thermoelectric{standardPlant(t, "north", 48, 2, 1), standardPlant(t, "south", 24, 1, 1000)}),
		WithDemand(flatDemand(2, 0.5)),
		WithPolicy(HurryCritical{Budget: 1}),
		WithBus(bus),
	)
	require.NoError(t, err)

	day1, err := w.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, day1.Failures)
	assert.Equal(t, 1, day1.Hurried)
	assert.InDelta(t, 24.0, day1.Offered, 1e-9)
	// South alone offers one unit per hour, exactly the hourly demand.
	assert.Equal(t, 48, day1.Served)
	for h := 0; h < scheduler.Hours; h++ {
		for b := 0; b < 2; b++ {
			assert.Equal(t, 1, w.LastPlan().Result.Best.At(h, b))
		}
	}

	day2, err := w.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, day2.Repairs)
	assert.InDelta(t, 72.0, day2.Offered, 1e-9)

	var kinds []string
	for len(sub) > 0 {
		kinds = append(kinds, (<-sub).Kind())
	}
	assert.Equal(t, []string{"part_failed", "repair_hurried", "day_planned", "part_repaired", "day_planned"}, kinds)
}

func TestRunIsDeterministic(t *testing.T) {
	run := func() []metrics.DayReport {
		now := time.Unix(0, 0)
		w, err := New(topology(), smallConfig(), WithRunID("r"), WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		reports, err := w.Run(context.Background(), 0)
		require.NoError(t, err)
		return reports
	}
	a, b := run(), run()
	require.Len(t, a, 2)
	assert.Equal(t, a, b)
}

func TestRunStopsOnCancel(t *testing.T) {
	w, err := New(topology(), smallConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reports, err := w.Run(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reports)
}

func TestNewRejectsBadInput(t *testing.T) {
	cfg := smallConfig()
	cfg.Days = -1
	_, err := New(topology(), cfg)
	assert.Error(t, err)

	cfg = smallConfig()
	cfg.Scope = "weekly"
	_, err = New(topology(), cfg)
	assert.Error(t, err)

	_, err = New(topology(), smallConfig(), WithPlants([]*plant.Thermoelectric{standardPlant(t, "north", 48, 2, 1000)}))
	assert.True(t, errors.Is(err, grid.ErrInvalidTopology), "got %v", err)

	cfg = smallConfig()
	cfg.Maintenance = factory.ModuleConfig{Type: "magic"}
	_, err = New(topology(), cfg)
	assert.ErrorIs(t, err, factory.ErrUnknownModule)
}

func TestDemandShapeMismatch(t *testing.T) {
	w, err := New(topology(), smallConfig(), WithDemand(flatDemand(1, 0.5)))
	require.NoError(t, err)
	_, err = w.Step(context.Background())
	assert.ErrorIs(t, err, grid.ErrInvalidTopology)
}

func TestCeilings(t *testing.T) {
	hourly := Ceilings([]float64{48, 0}, scheduler.ScopeHourly, 24)
	require.Len(t, hourly, 2)
	assert.Len(t, hourly[0], 24)
	assert.Equal(t, 2.0, hourly[0][23])
	assert.Zero(t, hourly[1][0])
	assert.Equal(t, [][]float64{{48}, {0}}, Ceilings([]float64{48, 0}, scheduler.ScopeDaily, 24))
}

func TestPolicies(t *testing.T) {
	fleet := []*plant.Thermoelectric{standardPlant(t, "north", 48, 2, 1), standardPlant(t, "south", 24, 1, 1)}
	for _, p := range fleet {
		p.Update()
	}
	assert.Empty(t, NoMaintenance{}.SelectActions(fleet))
	acts := HurryCritical{}.SelectActions(fleet)
	require.Len(t, acts, 1)
	acts = HurryCritical{Budget: 5}.SelectActions(fleet)
	require.Len(t, acts, 2)
	assert.Equal(t, Action{Plant: 0, Part: 4}, acts[0])

	p, err := NewPolicy(factory.ModuleConfig{Type: "hurry_critical", Conf: map[string]any{"budget": "2"}})
	require.NoError(t, err)
	assert.Equal(t, HurryCritical{Budget: 2}, p)
	p, err = NewPolicy(factory.ModuleConfig{})
	require.NoError(t, err)
	assert.Equal(t, NoMaintenance{}, p)
}

func TestDrawDownOverOfferFails(t *testing.T) {
	w, err := New(topology(), smallConfig(),
		WithPlants([]*plant.Thermoelectric{standardPlant(t, "north", 48, 2, 1000), standardPlant(t, "south", 24, 1, 1000)}))
	require.NoError(t, err)
	inst, err := scheduler.Compile(scheduler.Problem{
		Plants:   2,
		Blocks:   2,
		Hours:    scheduler.Hours,
		Scope:    scheduler.ScopeHourly,
		Ceilings: scheduler.UniformCeilings([]float64{10, 10}, scheduler.Hours),
		Cost:     func(int, int, int) float64 { return 1 },
	})
	require.NoError(t, err)
	best := inst.NewChromosome()
	for h := 0; h < scheduler.Hours; h++ {
		for b := 0; b < 2; b++ {
			best.Set(h, b, 1)
		}
	}
	drawn, err := w.drawDown(Plan{Day: 1, Instance: inst, Result: scheduler.Result{Best: best}})
	require.ErrorIs(t, err, plant.ErrCapacityExceeded)
	assert.InDelta(t, 24.0, drawn, 1e-9)
}

func TestCapacityExceededAbortsRun(t *testing.T) {
	// Listing one plant twice lets the planner promise its offer twice.
	shared := standardPlant(t, "south", 24, 1, 1000)
	sink := &memorySink{}
	w, err := New(topology(), smallConfig(),
		WithPlants([]*plant.Thermoelectric{shared, shared}),
		WithDemand(flatDemand(2, 1.5)),
		WithSink(sink),
	)
	require.NoError(t, err)

	reports, err := w.Run(context.Background(), 0)
	if !errors.Is(err, plant.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded got %v", err)
	}
	assert.Empty(t, reports)
	assert.Equal(t, 1, w.Day())
	assert.Empty(t, sink.reports, "an aborted day is not recorded")
}

func TestPreventivePolicy(t *testing.T) {
	fleet := []*plant.Thermoelectric{standardPlant(t, "north", 48, 2, 2), standardPlant(t, "south", 24, 1, 4)}
	acts := Preventive{Budget: 2, Threshold: 5}.SelectActions(fleet)
	assert.Equal(t, []Action{{Plant: 0, Part: 4, Kind: Service}, {Plant: 1, Part: 3, Kind: Service}}, acts)
	assert.Len(t, Preventive{Threshold: 5}.SelectActions(fleet), 1)
	assert.Empty(t, Preventive{Budget: 3, Threshold: 1}.SelectActions(fleet))

	// Two worn boilers: servicing both would stop the plant.
	var parts []*reliability.Part
	for _, life := range []float64{2, 3, 1000, 1000, 1000} {
		p, err := reliability.NewPart(reliability.Boiler, fixed(2), fixed(life))
		require.NoError(t, err)
		parts = append(parts, p)
	}
	parts[2], _ = reliability.NewPart(reliability.Coil, fixed(2), fixed(1000))
	parts[3], _ = reliability.NewPart(reliability.SteamTurbine, fixed(2), fixed(1000))
	parts[4], _ = reliability.NewPart(reliability.Generator, fixed(2), fixed(1000))
	worn, err := plant.NewThermoelectric("worn", 10, parts)
	require.NoError(t, err)
	acts = Preventive{Budget: 5, Threshold: 5}.SelectActions([]*plant.Thermoelectric{worn})
	assert.Equal(t, []Action{{Plant: 0, Part: 0, Kind: Service}}, acts)

	p, err := NewPolicy(factory.ModuleConfig{Type: "preventive", Conf: map[string]any{"budget": 2, "threshold": "4.5"}})
	require.NoError(t, err)
	assert.Equal(t, Preventive{Budget: 2, Threshold: 4.5}, p)
	_, err = NewPolicy(factory.ModuleConfig{Type: "preventive", Conf: map[string]any{"threshold": -1}})
	assert.Error(t, err)
}

func TestStepServicesWornParts(t *testing.T) {
	bus := eventbus.NewTypedBuffered[events.Event](64)
	sub := bus.Subscribe()
	w, err := New(topology(), smallConfig(),
		WithPlants([]*plant.Thermoelectric{standardPlant(t, "north", 48, 2, 3), standardPlant(t, "south", 24, 1, 1000)}),
		WithDemand(flatDemand(2, 0.5)),
		WithPolicy(Preventive{Budget: 1, Threshold: 5}),
		WithBus(bus),
	)
	require.NoError(t, err)

	r, err := w.Step(context.Background())
	require.NoError(t, err)
	assert.Zero(t, r.Failures)
	assert.Equal(t, 1, r.Serviced)
	assert.False(t, w.Plants()[0].IsWorking())
	assert.InDelta(t, 24.0, r.Offered, 1e-9)

	serviced, ok := (<-sub).(events.PartServiced)
	require.True(t, ok)
	assert.Equal(t, "north", serviced.PlantID)
	assert.Equal(t, reliability.Generator, serviced.Role)
	assert.Equal(t, 2.0, serviced.Repair)
}
