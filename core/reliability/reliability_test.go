package reliability

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixed always returns the same duration.
type fixed float64

func (f fixed) Sample() float64 { return float64(f) }

// sequence returns its values in order and repeats the last one.
type sequence struct {
	vals []float64
	i    int
}

func (s *sequence) Sample() float64 {
	v := s.vals[s.i]
	if s.i < len(s.vals)-1 {
		s.i++
	}
	return v
}

func TestDistributionsRejectNonPositiveParameters(t *testing.T) {
	src := rand.NewPCG(1, 2)
	build := map[string]func() error{
		"lognormal scale": func() error { _, err := NewLogNormal(0, 1, src); return err },
		"lognormal sigma": func() error { _, err := NewLogNormal(1, -0.5, src); return err },
		"weibull scale":   func() error { _, err := NewWeibull(-3, 2, src); return err },
		"weibull shape":   func() error { _, err := NewWeibull(10, 0, src); return err },
		"weibull nan":     func() error { _, err := NewWeibull(10, math.NaN(), src); return err },
		"nil source":      func() error { _, err := NewWeibull(10, 1, nil); return err },
	}
	for name, fn := range build {
		if err := fn(); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("%s: expected ErrInvalidParameter got %v", name, err)
		}
	}
}

func TestDistributionsSamplePositive(t *testing.T) {
	src := rand.NewPCG(7, 11)
	ln, err := NewLogNormal(5, 0.4, src)
	require.NoError(t, err)
	wb, err := NewWeibull(80, 2.6, src)
	require.NoError(t, err)
	var sum float64
	for i := 0; i < 2000; i++ {
		r := ln.Sample()
		l := wb.Sample()
		if r <= 0 || l <= 0 {
			t.Fatalf("non-positive sample repair=%v life=%v", r, l)
		}
		sum += l
	}
	mean := sum / 2000
	assert.InDelta(t, wb.Mean(), mean, wb.Mean()*0.1)
	assert.InDelta(t, 5*math.Exp(0.4*0.4/2), ln.Mean(), 1e-9)
}

func TestDistributionsDeterministicWithSeed(t *testing.T) {
	draw := func() []float64 {
		src := rand.NewPCG(42, 42)
		wb, err := NewWeibull(30, 1.5, src)
		require.NoError(t, err)
		out := make([]float64, 5)
		for i := range out {
			out[i] = wb.Sample()
		}
		return out
	}
	assert.Equal(t, draw(), draw())
}

func TestLogNormalParamHelpers(t *testing.T) {
	scale, sigma, err := LogNormalParamsForRange(7, 15)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(7*15), scale, 1e-9)
	assert.InDelta(t, (math.Log(15)-math.Log(7))/4, sigma, 1e-12)

	scale, sigma, err = LogNormalParamsForMeanDeviation(10, 3)
	require.NoError(t, err)
	src := rand.NewPCG(3, 3)
	ln, err := NewLogNormal(scale, sigma, src)
	require.NoError(t, err)
	assert.InDelta(t, 10, ln.Mean(), 1e-9)

	if _, _, err := LogNormalParamsForRange(0, 4); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
	if _, _, err := LogNormalParamsForMeanDeviation(4, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
}

func TestPartLifecycle(t *testing.T) {
	p, err := NewPart(Boiler, fixed(3), fixed(5))
	require.NoError(t, err)
	require.Equal(t, StateWorking, p.State())
	require.Equal(t, 5.0, p.RemainingLife())

	for tick := 1; tick <= 4; tick++ {
		if tr := p.Tick(); tr != TransitionNone {
			t.Fatalf("tick %d: unexpected transition %s", tick, tr)
		}
		if !p.IsWorking() {
			t.Fatalf("tick %d: part stopped early", tick)
		}
	}
	if tr := p.Tick(); tr != TransitionFailed {
		t.Fatalf("tick 5: expected failure got %s", tr)
	}
	assert.Equal(t, 0.0, p.RemainingLife())
	assert.Equal(t, StateRepairing, p.State())
	rem, ok := p.RemainingRepair()
	require.True(t, ok)
	assert.Equal(t, 3.0, rem)

	assert.Equal(t, TransitionNone, p.Tick())
	assert.Equal(t, TransitionNone, p.Tick())
	assert.False(t, p.IsWorking())
	assert.Equal(t, TransitionRepaired, p.Tick())
	assert.True(t, p.IsWorking())
	assert.Equal(t, 5.0, p.RemainingLife())
}

func TestPartFractionalRepairRoundsUpToTicks(t *testing.T) {
	p, err := NewPart(Coil, fixed(2.5), fixed(1))
	require.NoError(t, err)
	require.Equal(t, TransitionFailed, p.Tick())
	ticks := 0
	for !p.IsWorking() {
		p.Tick()
		ticks++
	}
	assert.Equal(t, 3, ticks)
}

func TestHurryRepair(t *testing.T) {
	life := &sequence{vals: []float64{1, 40}}
	p, err := NewPart(Generator, fixed(100), life)
	require.NoError(t, err)
	require.Equal(t, TransitionFailed, p.Tick())
	require.NoError(t, p.HurryRepair())
	assert.Equal(t, StateRepairing, p.State())

	assert.Equal(t, TransitionRepaired, p.Tick())
	assert.True(t, p.IsWorking())
	assert.Greater(t, p.RemainingLife(), 0.0)
}

func TestHurryRepairOnWorkingPart(t *testing.T) {
	p, err := NewPart(SteamTurbine, fixed(2), fixed(10))
	require.NoError(t, err)
	err = p.HurryRepair()
	if !errors.Is(err, ErrNotRepairing) {
		t.Fatalf("expected ErrNotRepairing got %v", err)
	}
}

func TestHurryRepairWithRealDistributions(t *testing.T) {
	src := rand.NewPCG(9, 9)
	prof := Profile{RepairScale: 20, RepairSigma: 0.5, LifeScale: 3, LifeShape: 1.2}
	for i := 0; i < 50; i++ {
		p, err := prof.Build(Boiler, src)
		require.NoError(t, err)
		require.True(t, p.Fail())
		require.False(t, p.Fail())
		require.NoError(t, p.HurryRepair())
		p.Tick()
		if !p.IsWorking() || p.RemainingLife() <= 0 {
			t.Fatalf("part %d not working after hurried repair", i)
		}
	}
}

func TestEstimatesFollowState(t *testing.T) {
	p, err := NewPart(Boiler, fixed(4), fixed(2))
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.EstimatedRemainingLife())
	assert.Equal(t, 0.0, p.EstimatedRemainingRepair())
	p.Tick()
	p.Tick()
	assert.Equal(t, 0.0, p.EstimatedRemainingLife())
	assert.Equal(t, 4.0, p.EstimatedRemainingRepair())
}

func TestProfileValidation(t *testing.T) {
	bad := Profile{RepairScale: 1, RepairSigma: 1, LifeScale: 0, LifeShape: 1}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
	if _, err := bad.Build(Boiler, rand.NewPCG(1, 1)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected build failure, got %v", err)
	}
	if _, err := NewPart(Boiler, nil, fixed(1)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected nil distribution rejection, got %v", err)
	}
}

func TestRoleCriticality(t *testing.T) {
	assert.False(t, Boiler.Critical())
	for _, r := range []Role{Coil, SteamTurbine, Generator} {
		assert.True(t, r.Critical(), r.String())
	}
}

func TestProfileRepairForms(t *testing.T) {
	ranged := Profile{RepairMin: 7, RepairMax: 15, LifeScale: 80, LifeShape: 2}
	r, err := ranged.Resolve()
	require.NoError(t, err)
	scale, sigma, _ := LogNormalParamsForRange(7, 15)
	assert.Equal(t, scale, r.RepairScale)
	assert.Equal(t, sigma, r.RepairSigma)
	require.NoError(t, ranged.Validate())

	moments := Profile{RepairMean: 10, RepairDeviation: 3, LifeScale: 80, LifeShape: 2}
	r, err = moments.Resolve()
	require.NoError(t, err)
	scale, sigma, _ = LogNormalParamsForMeanDeviation(10, 3)
	assert.InDelta(t, scale, r.RepairScale, 1e-12)
	assert.InDelta(t, sigma, r.RepairSigma, 1e-12)

	// Explicit parameters win over the derived forms.
	explicit := Profile{RepairScale: 4, RepairSigma: 0.1, RepairMin: 7, RepairMax: 15, LifeScale: 80, LifeShape: 2}
	r, err = explicit.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 4.0, r.RepairScale)

	p, err := moments.Build(Boiler, rand.NewPCG(3, 4))
	require.NoError(t, err)
	require.True(t, p.Fail())
	rep, ok := p.RemainingRepair()
	assert.True(t, ok)
	assert.Greater(t, rep, 0.0)

	inverted := Profile{RepairMin: 15, RepairMax: 7, LifeScale: 80, LifeShape: 2}
	if err := inverted.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected invalid range, got %v", err)
	}
	if _, err := inverted.Build(Boiler, rand.NewPCG(1, 1)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected build failure, got %v", err)
	}
}
