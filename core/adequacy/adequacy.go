// Package adequacy estimates how often the fleet cannot cover demand by
// simulating many independent reliability histories.
package adequacy

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/thermogrid/core/demand"
	"github.com/kilianp07/thermogrid/core/grid"
	"github.com/kilianp07/thermogrid/core/logger"
	"github.com/kilianp07/thermogrid/core/metrics"
	"github.com/kilianp07/thermogrid/core/plant"
	"github.com/kilianp07/thermogrid/core/world"
)

// Config holds the study size.
type Config struct {
	Runs    int    `json:"runs" yaml:"runs"`
	Days    int    `json:"days" yaml:"days"`
	Seed    uint64 `json:"seed" yaml:"seed"`
	Workers int    `json:"workers" yaml:"workers"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Runs == 0 {
		c.Runs = 100
	}
	if c.Days == 0 {
		c.Days = 365
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
}

// Validate checks the study size.
func (c Config) Validate() error {
	if c.Runs < 1 || c.Days < 1 {
		return fmt.Errorf("adequacy needs at least one run and one day, got %d runs %d days", c.Runs, c.Days)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}

// Run is the history of one simulated fleet.
type Run struct {
	Seed     uint64    `json:"seed"`
	LossDays int       `json:"loss_days"`
	Offered  []float64 `json:"offered"`
	Deficit  []float64 `json:"deficit"`
}

// Result aggregates every run.
type Result struct {
	Summary metrics.AdequacySummary `json:"summary"`
	Runs    []Run                   `json:"runs"`
}

// Study runs the Monte Carlo simulation.
type Study struct {
	topo     grid.Topology
	profiles plant.Profiles
	cfg      Config
	log      logger.Logger
	now      func() time.Time
}

// NewStudy validates its inputs.
func NewStudy(topo grid.Topology, profiles plant.Profiles, cfg Config, log logger.Logger) (*Study, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	if err := profiles.Validate(); err != nil {
		return nil, err
	}
	return &Study{topo: topo, profiles: profiles, cfg: cfg, log: logger.OrNop(log), now: time.Now}, nil
}

// Run simulates every run, bounded by Workers goroutines. Run seeds are drawn
// up front from cfg.Seed so the result does not depend on scheduling.
func (s *Study) Run(ctx context.Context) (Result, error) {
	master := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed^0x9e3779b97f4a7c15))
	runs := make([]Run, s.cfg.Runs)
	for i := range runs {
		runs[i].Seed = master.Uint64()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i := range runs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := s.simulate(runs[i].Seed)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			runs[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	res := Result{Runs: runs, Summary: s.summarize(runs)}
	s.log.Infof("adequacy: %d runs x %d days, LOLP %.4f, mean capacity %.2f",
		s.cfg.Runs, s.cfg.Days, res.Summary.LOLP, res.Summary.MeanCapacity)
	return res, nil
}

func (s *Study) simulate(seed uint64) (Run, error) {
	fleet, err := world.BuildFleet(s.topo, s.profiles, rand.NewPCG(seed, 1))
	if err != nil {
		return Run{}, err
	}
	gen, err := demand.NewGenerator(s.topo.Profiles(), rand.NewPCG(seed, 2))
	if err != nil {
		return Run{}, err
	}
	r := Run{Seed: seed, Offered: make([]float64, s.cfg.Days), Deficit: make([]float64, s.cfg.Days)}
	for d := 0; d < s.cfg.Days; d++ {
		offered := 0.0
		for _, p := range fleet {
			p.Update()
			offered += p.Offer()
		}
		need := 0.0
		for _, row := range gen.Next() {
			for _, v := range row {
				need += v
			}
		}
		r.Offered[d] = offered
		if need > offered {
			r.LossDays++
			r.Deficit[d] = need - offered
		}
		if err := serve(fleet, math.Min(need, offered)); err != nil {
			return Run{}, fmt.Errorf("day %d: %w", d+1, err)
		}
	}
	return r, nil
}

// serve draws amount from the fleet in order so the next day's stored energy
// reflects what was left.
func serve(fleet []*plant.Thermoelectric, amount float64) error {
	for _, p := range fleet {
		if amount <= 0 {
			return nil
		}
		take := math.Min(amount, p.Offer())
		if err := p.ConsumeEnergy(take); err != nil {
			return err
		}
		amount -= take
	}
	return nil
}

func (s *Study) summarize(runs []Run) metrics.AdequacySummary {
	var offered, deficit []float64
	loss := 0
	for _, r := range runs {
		offered = append(offered, r.Offered...)
		deficit = append(deficit, r.Deficit...)
		loss += r.LossDays
	}
	mean, std := stat.MeanStdDev(offered, nil)
	if len(offered) < 2 {
		std = 0
	}
	return metrics.AdequacySummary{
		Runs:         len(runs),
		Days:         s.cfg.Days,
		LOLP:         float64(loss) / float64(len(offered)),
		MeanCapacity: mean,
		StdCapacity:  std,
		MeanDeficit:  stat.Mean(deficit, nil),
		Time:         s.now(),
	}
}
