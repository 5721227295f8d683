package export

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/thermogrid/core/metrics"
)

// WriteRunChart renders demand, offer, drawn energy and deficit per day as
// an HTML line chart.
func WriteRunChart(w io.Writer, reports []metrics.DayReport) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Daily energy balance"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Day"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Energy"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{}),
	)

	days := make([]string, len(reports))
	var demand, offered, drawn, deficit []opts.LineData
	for i, r := range reports {
		days[i] = strconv.Itoa(r.Day)
		demand = append(demand, opts.LineData{Value: round2(r.Demand)})
		offered = append(offered, opts.LineData{Value: round2(r.Offered)})
		drawn = append(drawn, opts.LineData{Value: round2(r.Drawn)})
		deficit = append(deficit, opts.LineData{Value: round2(r.Deficit)})
	}
	line.SetXAxis(days).
		AddSeries("Demand", demand).
		AddSeries("Offered", offered).
		AddSeries("Drawn", drawn).
		AddSeries("Deficit", deficit)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
