package metrics

import (
	coremetrics "github.com/kilianp07/thermogrid/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes the simulation state as Prometheus metrics.
type PromSink struct {
	dayFitness   prometheus.Gauge
	dayDeficit   prometheus.Gauge
	cells        *prometheus.GaugeVec
	plantOffer   *prometheus.GaugeVec
	plantBoilers *prometheus.GaugeVec
	partEvents   *prometheus.CounterVec
	lolp         prometheus.Gauge
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// register registers c on reg, reusing an already registered collector.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.dayFitness, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "world_day_fitness",
		Help: "Fitness of the schedule applied on the last simulated day",
	})); err != nil {
		return nil, err
	}
	if s.dayDeficit, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "world_day_deficit",
		Help: "Demand left unserved on the last simulated day",
	})); err != nil {
		return nil, err
	}
	if s.cells, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "world_day_cells",
		Help: "Demand cells of the last simulated day by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.plantOffer, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "plant_offer",
		Help: "Capacity offered by a plant at the end of the day",
	}, []string{"plant_id"})); err != nil {
		return nil, err
	}
	if s.plantBoilers, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "plant_working_boilers",
		Help: "Working boilers of a plant at the end of the day",
	}, []string{"plant_id"})); err != nil {
		return nil, err
	}
	if s.partEvents, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "part_events_total",
		Help: "Part transitions by plant, role and kind",
	}, []string{"plant_id", "role", "kind"})); err != nil {
		return nil, err
	}
	if s.lolp, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "adequacy_lolp",
		Help: "Loss of load probability of the last adequacy study",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordDayReport sets the day gauges.
func (s *PromSink) RecordDayReport(r coremetrics.DayReport) error {
	s.dayFitness.Set(r.Fitness)
	s.dayDeficit.Set(r.Deficit)
	s.cells.WithLabelValues("served").Set(float64(r.Served))
	s.cells.WithLabelValues("unserved").Set(float64(r.Unserved))
	s.cells.WithLabelValues("infeasible").Set(float64(r.Infeasible))
	return nil
}

// RecordPlantStates sets the per-plant gauges.
func (s *PromSink) RecordPlantStates(states []coremetrics.PlantState) error {
	for _, st := range states {
		s.plantOffer.WithLabelValues(st.PlantID).Set(st.Offer)
		s.plantBoilers.WithLabelValues(st.PlantID).Set(float64(st.WorkingBoilers))
	}
	return nil
}

// RecordPartEvent counts a part transition.
func (s *PromSink) RecordPartEvent(ev coremetrics.PartEvent) error {
	s.partEvents.WithLabelValues(ev.PlantID, ev.Role, ev.Kind).Inc()
	return nil
}

// RecordAdequacy sets the loss of load probability gauge.
func (s *PromSink) RecordAdequacy(sum coremetrics.AdequacySummary) error {
	s.lolp.Set(sum.LOLP)
	return nil
}
