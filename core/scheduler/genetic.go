package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/thermogrid/core/logger"
)

// GenerationStats summarises the fitness of one evaluated population.
type GenerationStats struct {
	Generation int     `json:"generation"`
	Size       int     `json:"size"`
	Best       float64 `json:"best"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Repairs    int     `json:"repairs"`
}

// Result is the outcome of one planning run.
type Result struct {
	Best    *Chromosome       `json:"best"`
	Fitness float64           `json:"fitness"`
	History []GenerationStats `json:"history"`
	// Infeasible counts cells no plant could serve even at full ceiling.
	Infeasible int `json:"infeasible"`
	Repairs    int `json:"repairs"`
}

// Scheduler runs the generational loop over a compiled instance.
type Scheduler struct {
	inst      *Instance
	fitness   FitnessFunc
	cfg       Config
	mutations []Mutation
	rng       *rand.Rand
	log       logger.Logger
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for per-generation reporting.
func WithLogger(l logger.Logger) Option { return func(s *Scheduler) { s.log = logger.OrNop(l) } }

// WithRand replaces the generator seeded from Config.Seed.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// New compiles p and prepares a run. cfg is defaulted before validation.
func New(p Problem, fitness FitnessFunc, cfg Config, opts ...Option) (*Scheduler, error) {
	if fitness == nil {
		return nil, fmt.Errorf("fitness function is nil: %w", ErrInvalidProblem)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler config: %w", err)
	}
	inst, err := Compile(p)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		inst:    inst,
		fitness: fitness,
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		log:     logger.Nop{},
	}
	for _, name := range cfg.Mutations {
		m, _ := ParseMutation(name)
		s.mutations = append(s.mutations, m)
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Instance returns the compiled problem.
func (s *Scheduler) Instance() *Instance { return s.inst }

// Run evolves the population for the configured number of generations and
// returns the best chromosome seen. Random draws happen on the calling
// goroutine only, so a seed fixes the result whatever the worker count.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	res := Result{Infeasible: s.inst.InfeasibleCells()}
	pop := make([]*Chromosome, s.cfg.PopulationSize)
	for i := range pop {
		pop[i] = s.inst.Generate(s.rng)
	}
	var best Scored
	repairs := 0
	for g := 0; ; g++ {
		scored, err := s.evaluate(ctx, pop)
		if err != nil {
			return Result{}, err
		}
		best = s.track(best, scored)
		stats := summarize(g, scored, repairs, s.cfg.Objective)
		res.History = append(res.History, stats)
		res.Repairs += repairs
		generationsTotal.Inc()
		s.log.Debugw("generation evaluated", map[string]any{
			"generation": g,
			"size":       stats.Size,
			"best":       stats.Best,
			"mean":       stats.Mean,
			"repairs":    repairs,
		})
		if g == s.cfg.Generations {
			break
		}
		parents, err := Select(scored, s.cfg.PopulationSize, s.cfg.Objective)
		if err != nil {
			return Result{}, err
		}
		pop, repairs = s.breed(parents)
		repairs += s.mutate(pop)
	}
	res.Best = best.Chromosome
	res.Fitness = best.Fitness
	bestFitness.Set(res.Fitness)
	unservedCells.Set(float64(s.inst.hours*s.inst.blocks - res.Best.Served()))
	return res, nil
}

// evaluate scores pop with up to Workers goroutines. Results keep population order.
func (s *Scheduler) evaluate(ctx context.Context, pop []*Chromosome) ([]Scored, error) {
	out := make([]Scored, len(pop))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, c := range pop {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = Scored{Chromosome: c, Fitness: s.fitness(c)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate population: %w", err)
	}
	return out, nil
}

// track keeps a deep copy of the best chromosome seen so far.
func (s *Scheduler) track(best Scored, scored []Scored) Scored {
	for _, sc := range scored {
		if best.Chromosome == nil || s.cfg.Objective.Better(sc.Fitness, best.Fitness) {
			best = Scored{Chromosome: sc.Chromosome.Clone(), Fitness: sc.Fitness}
		}
	}
	return best
}

// breed crosses every survivor with Offspring randomly chosen co-parents.
func (s *Scheduler) breed(parents []Scored) ([]*Chromosome, int) {
	next := make([]*Chromosome, 0, len(parents)*s.cfg.Offspring)
	repairs := 0
	for _, p := range parents {
		for i := 0; i < s.cfg.Offspring; i++ {
			mate := parents[s.rng.IntN(len(parents))]
			child, repaired := s.inst.Crossover(p.Chromosome, mate.Chromosome, s.rng)
			if repaired {
				repairs++
				repairsTotal.WithLabelValues("crossover").Inc()
			}
			next = append(next, child)
		}
	}
	return next, repairs
}

// mutate draws the mutation chance for every chromosome and applies a
// strategy picked uniformly from the configured list.
func (s *Scheduler) mutate(pop []*Chromosome) int {
	repairs := 0
	if s.cfg.MutationRate == 0 {
		return 0
	}
	for _, c := range pop {
		if s.rng.Float64() >= s.cfg.MutationRate {
			continue
		}
		m := s.mutations[s.rng.IntN(len(s.mutations))]
		repaired, err := s.inst.Mutate(c, m, s.rng)
		if err != nil {
			s.log.Errorf("mutation %s: %v", m, err)
			continue
		}
		if repaired {
			repairs++
			repairsTotal.WithLabelValues(string(m)).Inc()
		}
	}
	return repairs
}

func summarize(g int, scored []Scored, repairs int, o Objective) GenerationStats {
	vals := make([]float64, len(scored))
	for i, sc := range scored {
		vals[i] = sc.Fitness
	}
	mean, std := stat.MeanStdDev(vals, nil)
	if len(vals) < 2 {
		std = 0
	}
	top := floats.Max(vals)
	if o == Minimize {
		top = floats.Min(vals)
	}
	return GenerationStats{
		Generation: g,
		Size:       len(scored),
		Best:       top,
		Mean:       mean,
		StdDev:     std,
		Repairs:    repairs,
	}
}
