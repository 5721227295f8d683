package app

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/thermogrid/config"
	"github.com/kilianp07/thermogrid/core/adequacy"
	"github.com/kilianp07/thermogrid/core/events"
	"github.com/kilianp07/thermogrid/core/grid"
	coremetrics "github.com/kilianp07/thermogrid/core/metrics"
	coremon "github.com/kilianp07/thermogrid/core/monitoring"
	"github.com/kilianp07/thermogrid/core/orders"
	"github.com/kilianp07/thermogrid/core/planlog"
	"github.com/kilianp07/thermogrid/core/world"
	"github.com/kilianp07/thermogrid/infra/logger"
	"github.com/kilianp07/thermogrid/infra/metrics"
	"github.com/kilianp07/thermogrid/infra/monitoring"
	"github.com/kilianp07/thermogrid/infra/mqtt"
	"github.com/kilianp07/thermogrid/internal/eventbus"
)

// Service wires the world driver to its sinks, plan log and order publisher.
type Service struct {
	World *world.World
	Store planlog.Store

	cfg       *config.Config
	topo      grid.Topology
	sink      coremetrics.Sink
	publisher orders.Publisher
	bus       *eventbus.TypedBus[events.Event]
	monitor   coremon.Monitor
	log       logger.Logger
}

// eventBuffer sizes the bus subscriptions so the collector keeps up with the
// bursts a day of failures and repairs produces.
const eventBuffer = 1024

// New creates a Service from the configuration. Resources opened before a
// failing step are released before New returns.
func New(cfg *config.Config) (_ *Service, err error) {
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logg := logger.New("service")
	var cleanup []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	monitor, err := monitoring.NewSentryMonitor(cfg.Monitoring)
	if err != nil {
		return nil, fmt.Errorf("monitoring: %w", err)
	}
	cleanup = append(cleanup, func() { monitor.Flush(2 * time.Second) })
	topo, err := cfg.Grid.Topology()
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	if c, ok := sink.(io.Closer); ok {
		cleanup = append(cleanup, func() {
			if err := c.Close(); err != nil {
				logg.Errorf("close sink: %v", err)
			}
		})
	}
	store, err := planlog.Open(cfg.PlanLog)
	if err != nil {
		return nil, fmt.Errorf("plan log: %w", err)
	}
	cleanup = append(cleanup, func() { _ = store.Close() })
	var publisher orders.Publisher = orders.Nop{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		cleanup = append(cleanup, p.Disconnect)
		publisher = p
	}
	bus := eventbus.NewTypedBuffered[events.Event](eventBuffer)
	w, err := world.New(topo, cfg.WorldConfig(),
		world.WithLogger(logger.New("world")),
		world.WithBus(bus),
		world.WithSink(sink),
		world.WithPlanLog(store),
		world.WithPublisher(publisher),
	)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	return &Service{
		World:     w,
		Store:     store,
		cfg:       cfg,
		topo:      topo,
		sink:      sink,
		publisher: publisher,
		bus:       bus,
		monitor:   monitor,
		log:       logg,
	}, nil
}

// Run simulates days (the configured horizon when days <= 0) and returns the
// day reports. The Prometheus endpoint, if any, lives until Run returns.
// Run closes the event bus on exit and must be called once per Service.
func (s *Service) Run(ctx context.Context, days int) ([]coremetrics.DayReport, error) {
	defer s.monitor.Recover()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.servePrometheus(ctx)
	done := metrics.StartEventCollector(ctx, s.bus, s.sink)
	defer func() {
		s.bus.Close()
		<-done
		if n := s.bus.Dropped(); n > 0 {
			s.log.Warnf("event bus dropped %d events", n)
		}
	}()
	s.log.Infof("run %s started", s.World.RunID())
	reports, err := s.World.Run(ctx, days)
	if err != nil {
		if ctx.Err() == nil {
			s.monitor.CaptureException(err, map[string]string{
				"run_id": s.World.RunID(),
				"day":    strconv.Itoa(s.World.Day()),
			})
		}
		return reports, err
	}
	s.log.Infof("run %s finished after %d days", s.World.RunID(), len(reports))
	return reports, nil
}

// Adequacy runs the Monte Carlo study and hands its summary to the sink when
// the sink records adequacy results.
func (s *Service) Adequacy(ctx context.Context, cfg adequacy.Config) (adequacy.Result, error) {
	study, err := adequacy.NewStudy(s.topo, s.cfg.Reliability, cfg, logger.New("adequacy"))
	if err != nil {
		return adequacy.Result{}, err
	}
	res, err := study.Run(ctx)
	if err != nil {
		return res, err
	}
	if rec, ok := s.sink.(coremetrics.AdequacyRecorder); ok {
		if err := rec.RecordAdequacy(res.Summary); err != nil {
			s.log.Errorf("record adequacy: %v", err)
		}
	}
	return res, nil
}

func (s *Service) servePrometheus(ctx context.Context) {
	addr := s.cfg.Metrics.PrometheusAddr
	if addr == "" {
		return
	}
	go func() {
		if err := metrics.StartPromServer(ctx, addr); err != nil {
			s.log.Errorf("prom server: %v", err)
		}
	}()
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.monitor.Flush(2 * time.Second)
	if p, ok := s.publisher.(*mqtt.Publisher); ok {
		p.Disconnect()
	}
	if c, ok := s.sink.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.log.Errorf("close sink: %v", err)
		}
	}
	return s.Store.Close()
}
