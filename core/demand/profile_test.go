package demand

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedShape(t *testing.T) {
	p := DefaultProfile()
	exp := p.Expected()
	require.Len(t, exp, Hours)
	assert.Equal(t, p.Base, exp[0])
	assert.Equal(t, p.MorningMean, exp[6])
	assert.InDelta(t, p.EveningMean*p.EveningWeight, exp[18], 1e-12)
	assert.Equal(t, p.Base, exp[21])
}

func TestGenerateNonNegativeAndSeeded(t *testing.T) {
	p := Profile{Base: 0.1, BaseStd: 2, MorningMean: 1, MorningStd: 3, EveningMean: 1, EveningStd: 3, EveningWeight: 1}
	a := p.Generate(rand.NewPCG(4, 4))
	b := p.Generate(rand.NewPCG(4, 4))
	assert.Equal(t, a, b)
	for h, v := range a {
		if v < 0 {
			t.Fatalf("hour %d negative demand %v", h, v)
		}
	}
}

func TestGenerateWithoutNoiseMatchesExpected(t *testing.T) {
	p := Profile{Base: 2, MorningMean: 5, EveningMean: 4, EveningWeight: 2}
	assert.Equal(t, p.Expected(), p.Generate(rand.NewPCG(1, 2)))
	assert.InDelta(t, 2*16+5*4+8*4, p.Total(), 1e-9)
}

func TestGenerator(t *testing.T) {
	if _, err := NewGenerator(nil, rand.NewPCG(1, 1)); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile got %v", err)
	}
	bad := DefaultProfile()
	bad.MorningStd = -1
	if _, err := NewGenerator([]Profile{bad}, rand.NewPCG(1, 1)); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile got %v", err)
	}
	g, err := NewGenerator([]Profile{DefaultProfile(), DefaultProfile()}, rand.NewPCG(1, 1))
	require.NoError(t, err)
	day := g.Next()
	require.Len(t, day, 2)
	assert.Len(t, day[1], Hours)
	assert.NotEqual(t, day[0], day[1])
}

func TestFixedReturnsCopies(t *testing.T) {
	f := Fixed{{1, 2}}
	d := f.Next()
	d[0][0] = 9
	assert.Equal(t, 1.0, f[0][0])
}
