package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func servedFitness(c *Chromosome) float64 { return float64(c.Served()) }

func tightProblem(scope Scope) Problem {
	ceil := []float64{30, 12, 20, 5}
	return Problem{
		Plants:   4,
		Blocks:   9,
		Scope:    scope,
		Ceilings: UniformCeilings(ceil, Hours),
		Cost: func(p, b, h int) float64 {
			return float64(1+(b*7+p*3+h)%6) * (1 + 0.25*float64(p))
		},
	}
}

func TestRunReturnsValidBest(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	cfg := Config{PopulationSize: 8, Generations: 5, MutationRate: 0.5, Seed: 11}
	s, err := New(tightProblem(ScopeHourly), servedFitness, cfg)
	require.NoError(t, err)
	res, err := s.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.Best)
	assert.True(t, s.Instance().Valid(res.Best))
	assert.Equal(t, float64(res.Best.Served()), res.Fitness)
	require.Len(t, res.History, 6)
	assert.Equal(t, 8, res.History[0].Size)
	assert.Equal(t, 24, res.History[1].Size)
	for _, h := range res.History {
		if h.Best > res.Fitness {
			t.Fatalf("generation %d best %.0f above returned best %.0f", h.Generation, h.Best, res.Fitness)
		}
	}
	assert.Equal(t, 6.0, testutil.ToFloat64(generationsTotal))
	assert.Equal(t, res.Fitness, testutil.ToFloat64(bestFitness))
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	run := func(workers int) []byte {
		cfg := Config{PopulationSize: 6, Generations: 4, MutationRate: 0.3, Workers: workers, Seed: 77}
		s, err := New(tightProblem(ScopeHourly), servedFitness, cfg)
		require.NoError(t, err)
		res, err := s.Run(context.Background())
		require.NoError(t, err)
		out, err := json.Marshal(res)
		require.NoError(t, err)
		return out
	}
	one := run(1)
	many := run(8)
	if !bytes.Equal(one, many) {
		t.Fatalf("results differ between worker counts")
	}
}

func TestRunMinimize(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	cfg := Config{PopulationSize: 5, Generations: 3, Objective: Minimize, Seed: 3}
	s, err := New(tightProblem(ScopeHourly), servedFitness, cfg)
	require.NoError(t, err)
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	for _, h := range res.History {
		assert.LessOrEqual(t, res.Fitness, h.Best)
	}
}

func TestRunZeroGenerationsEvaluatesInitialPopulation(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	s, err := New(tightProblem(ScopeHourly), servedFitness, Config{PopulationSize: 3, Seed: 1})
	require.NoError(t, err)
	s.cfg.Generations = 0
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.History, 1)
}

func TestRunCancelled(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := New(tightProblem(ScopeHourly), servedFitness, Config{Seed: 1})
	require.NoError(t, err)
	if _, err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled got %v", err)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(tightProblem(ScopeHourly), nil, Config{}); !errors.Is(err, ErrInvalidProblem) {
		t.Fatalf("expected ErrInvalidProblem got %v", err)
	}
	_, err := New(tightProblem(ScopeHourly), servedFitness, Config{Mutations: []string{"bogus"}})
	assert.ErrorIs(t, err, ErrUnknownMutation)
	// daily scope expects a single budget per plant
	_, err = New(tightProblem(ScopeDaily), servedFitness, Config{})
	assert.ErrorIs(t, err, ErrInvalidProblem)
}

func TestSelect(t *testing.T) {
	a, b, c := NewChromosome(1, 1), NewChromosome(1, 1), NewChromosome(1, 1)
	scored := []Scored{{a, 1}, {b, 3}, {c, 2}}

	top, err := Select(scored, 2, Maximize)
	require.NoError(t, err)
	assert.Same(t, b, top[0].Chromosome)
	assert.Same(t, c, top[1].Chromosome)

	low, err := Select(scored, 1, Minimize)
	require.NoError(t, err)
	assert.Same(t, a, low[0].Chromosome)
	assert.Equal(t, 1.0, scored[0].Fitness, "input order must be preserved")

	if _, err := Select(scored, 4, Maximize); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection got %v", err)
	}
	if _, err := Select(nil, 1, Maximize); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	data := "population_size: 12\ngenerations: 7\nmutations: [rotation, swap_points]\nobjective: minimize\n"
	cfg, err := DecodeConfig(bytes.NewBufferString(data), "yaml")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.PopulationSize != 12 || cfg.Generations != 7 || cfg.Objective != Minimize {
		t.Fatalf("bad cfg %#v", cfg)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := DecodeConfig(bytes.NewBufferString(data), "toml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ga.json")
	if err := os.WriteFile(path, []byte(`{"population_size":4,"offspring":2,"workers":2}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PopulationSize != 4 || cfg.Offspring != 2 || cfg.Workers != 2 {
		t.Fatalf("bad cfg %#v", cfg)
	}
	if _, err := LoadConfig(path + ".txt"); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	bad := cfg
	bad.MutationRate = 2
	assert.Error(t, bad.Validate())
	bad = cfg
	bad.Objective = "sideways"
	assert.Error(t, bad.Validate())
}

func TestDisableMutation(t *testing.T) {
	cfg := Config{DisableMutation: true, MutationRate: 0.4}
	cfg.SetDefaults()
	assert.Zero(t, cfg.MutationRate)
	require.NoError(t, cfg.Validate())

	on := Config{}
	on.SetDefaults()
	assert.Equal(t, 0.1, on.MutationRate)

	ResetMetrics(prometheus.NewRegistry())
	cfg = Config{PopulationSize: 8, Generations: 5, DisableMutation: true, Seed: 11}
	s, err := New(tightProblem(ScopeHourly), servedFitness, cfg)
	require.NoError(t, err)
	pop := []*Chromosome{s.Instance().NewChromosome(), s.Instance().NewChromosome()}
	before := pop[0].Clone()
	assert.Zero(t, s.mutate(pop))
	assert.True(t, before.Equal(pop[0]))
	_, err = s.Run(context.Background())
	require.NoError(t, err)
	for _, m := range Mutations() {
		assert.Zero(t, testutil.ToFloat64(repairsTotal.WithLabelValues(string(m))), "%s ran", m)
	}
}
