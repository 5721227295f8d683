package world

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/thermogrid/core/plant"
	"github.com/kilianp07/thermogrid/core/scheduler"
)

func TestOutageHistoryRecord(t *testing.T) {
	u := scheduler.Unserved
	h := newOutageHistory([]string{"b1", "b2"})
	for _, rows := range [][][]int{
		{{u, 0}, {0, 0}},
		{{u, 0}, {0, u}},
		{{0, 0}, {0, 0}},
		{{0, 0}, {u, 0}},
	} {
		c, err := scheduler.FromRows(rows)
		require.NoError(t, err)
		h.record(c)
	}
	assert.Equal(t, BlockOutage{BlockID: "b1", DaysOff: 3, CurrentRun: 1, LongestRun: 2}, h[0])
	assert.Equal(t, BlockOutage{BlockID: "b2", DaysOff: 1, CurrentRun: 0, LongestRun: 1}, h[1])

	days, longest := h.weights()
	assert.Equal(t, []float64{3, 1}, days)
	assert.Equal(t, []float64{2, 1}, longest)
}

func TestStepFeedsOutageHistoryToPlanner(t *testing.T) {
	cfg := smallConfig()
	cfg.Weights.MeetDemand = 1
	cfg.Weights.PrioritizeDaysOff = 0.5
	w, err := New(topology(), cfg,
		WithPlants([]*plant.Thermoelectric{standardPlant(t, "north", 48, 2, 1000), standardPlant(t, "south", 24, 1, 1000)}),
		WithDemand(flatDemand(2, 5)),
	)
	require.NoError(t, err)

	// No plant can cover a five-unit hour, so every block is cut every day.
	_, err = w.Run(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, w.LastPlan().Inputs.DaysOff)
	assert.Equal(t, []float64{1, 1}, w.LastPlan().Inputs.LongestOff)
	for _, o := range w.Outages() {
		assert.Equal(t, 2, o.DaysOff)
		assert.Equal(t, 2, o.LongestRun)
	}
}
