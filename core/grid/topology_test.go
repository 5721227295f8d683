package grid

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/thermogrid/core/demand"
)

func sample() Topology {
	return Topology{
		Plants: []PlantSpec{{ID: "north", Capacity: 100, Boilers: 4}, {ID: "south", Capacity: 60, Boilers: 2}},
		Blocks: []Block{
			{ID: "b1", Importance: 1, Profile: demand.DefaultProfile()},
			{ID: "b2", Importance: 3, Profile: demand.DefaultProfile()},
		},
		Distances: [][]float64{{0.1, 0.4}, {0.3, 0}},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, sample().Validate())

	cases := map[string]func(*Topology){
		"dup plant":     func(tp *Topology) { tp.Plants[1].ID = "north" },
		"no boilers":    func(tp *Topology) { tp.Plants[0].Boilers = 0 },
		"bad capacity":  func(tp *Topology) { tp.Plants[0].Capacity = -1 },
		"dup block":     func(tp *Topology) { tp.Blocks[1].ID = "b1" },
		"short row":     func(tp *Topology) { tp.Distances[0] = []float64{1} },
		"negative dist": func(tp *Topology) { tp.Distances[1][0] = -2 },
		"missing rows":  func(tp *Topology) { tp.Distances = tp.Distances[:1] },
		"no blocks":     func(tp *Topology) { tp.Blocks = nil },
	}
	for name, mod := range cases {
		tp := sample()
		mod(&tp)
		if err := tp.Validate(); !errors.Is(err, ErrInvalidTopology) {
			t.Fatalf("%s: expected ErrInvalidTopology got %v", name, err)
		}
	}
}

func TestCostFunc(t *testing.T) {
	tp := sample()
	load := [][]float64{make([]float64, 24), make([]float64, 24)}
	load[1][18] = 10
	cost := tp.CostFunc(load)
	assert.InDelta(t, 14.0, cost(0, 1, 18), 1e-12)
	assert.InDelta(t, 10.0, cost(1, 1, 18), 1e-12)
	assert.Zero(t, cost(0, 0, 3))
}

func TestReadDistances(t *testing.T) {
	tp := sample()
	in := "plant_id,block_id,distance\nnorth,b2,0.25\nsouth, b1, 1.5\n"
	d, err := tp.ReadDistances(strings.NewReader(in), 1)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0.25}, {1.5, 1}}, d)

	_, err = tp.ReadDistances(strings.NewReader("west,b1,1\n"), 0)
	assert.ErrorIs(t, err, ErrInvalidTopology)
	_, err = tp.ReadDistances(strings.NewReader("north,b1,far\n"), 0)
	assert.ErrorIs(t, err, ErrInvalidTopology)
}

func TestIndexesAndViews(t *testing.T) {
	tp := sample()
	i, ok := tp.PlantIndex("south")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = tp.BlockIndex("zz")
	assert.False(t, ok)
	assert.Equal(t, []float64{1, 3}, tp.Importances())
	assert.Len(t, tp.Profiles(), 2)
}
