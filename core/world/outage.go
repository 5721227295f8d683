package world

import "github.com/kilianp07/thermogrid/core/scheduler"

// BlockOutage is the outage history of one block. A day counts as off when
// at least one of its hours went unserved.
type BlockOutage struct {
	BlockID    string `json:"block_id"`
	DaysOff    int    `json:"days_off"`
	CurrentRun int    `json:"current_run"`
	LongestRun int    `json:"longest_run"`
}

type outageHistory []BlockOutage

func newOutageHistory(ids []string) outageHistory {
	h := make(outageHistory, len(ids))
	for i, id := range ids {
		h[i].BlockID = id
	}
	return h
}

func (h outageHistory) record(best *scheduler.Chromosome) {
	for b := range h {
		off := false
		for hour := 0; hour < best.Hours(); hour++ {
			if best.At(hour, b) == scheduler.Unserved {
				off = true
				break
			}
		}
		o := &h[b]
		if !off {
			o.CurrentRun = 0
			continue
		}
		o.DaysOff++
		o.CurrentRun++
		o.LongestRun = max(o.LongestRun, o.CurrentRun)
	}
}

// weights returns the day-off counts and longest runs as fitness inputs.
func (h outageHistory) weights() (daysOff, longest []float64) {
	daysOff = make([]float64, len(h))
	longest = make([]float64, len(h))
	for b, o := range h {
		daysOff[b] = float64(o.DaysOff)
		longest[b] = float64(o.LongestRun)
	}
	return daysOff, longest
}
