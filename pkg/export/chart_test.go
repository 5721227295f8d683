package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kilianp07/thermogrid/core/metrics"
)

func TestWriteRunChart(t *testing.T) {
	reports := []metrics.DayReport{
		{Day: 1, Demand: 100, Offered: 120, Drawn: 100},
		{Day: 2, Demand: 130, Offered: 110, Drawn: 110, Deficit: 20.004},
	}
	var buf bytes.Buffer
	if err := WriteRunChart(&buf, reports); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"Daily energy balance", "Deficit", "Offered"} {
		if !strings.Contains(html, want) {
			t.Fatalf("chart missing %q", want)
		}
	}
}
