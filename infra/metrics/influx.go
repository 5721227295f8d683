package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/thermogrid/core/metrics"
	"github.com/kilianp07/thermogrid/infra/logger"
)

// InfluxConfig holds the connection settings of an InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes simulation records to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(c InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(c.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, c.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(c.Org, c.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(c InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(c)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client resources.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

// RecordDayReport writes one day_report point.
func (s *InfluxSink) RecordDayReport(r coremetrics.DayReport) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("day_report").
		AddTag("run_id", r.RunID).
		AddTag("day", strconv.Itoa(r.Day)).
		AddField("fitness", round3(r.Fitness)).
		AddField("served", r.Served).
		AddField("unserved", r.Unserved).
		AddField("infeasible", r.Infeasible).
		AddField("demand", round3(r.Demand)).
		AddField("deficit", round3(r.Deficit)).
		AddField("offered", round3(r.Offered)).
		AddField("drawn", round3(r.Drawn)).
		AddField("failures", r.Failures).
		AddField("repairs", r.Repairs).
		AddField("hurried", r.Hurried).
		AddField("serviced", r.Serviced).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPlantStates writes one plant_state point per plant.
func (s *InfluxSink) RecordPlantStates(states []coremetrics.PlantState) error {
	if len(states) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(states))
	for _, st := range states {
		points = append(points, write.NewPointWithMeasurement("plant_state").
			AddTag("plant_id", st.PlantID).
			AddTag("working", strconv.FormatBool(st.Working)).
			AddField("day", st.Day).
			AddField("offer", round3(st.Offer)).
			AddField("current_capacity", round3(st.CurrentCapacity)).
			AddField("stored_energy", round3(st.StoredEnergy)).
			AddField("working_boilers", st.WorkingBoilers).
			AddField("total_boilers", st.TotalBoilers).
			AddField("repairing", st.Repairing).
			SetTime(st.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordPartEvent writes a part transition.
func (s *InfluxSink) RecordPartEvent(ev coremetrics.PartEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("part_event").
		AddTag("plant_id", ev.PlantID).
		AddTag("role", ev.Role).
		AddTag("kind", ev.Kind).
		AddField("day", ev.Day).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAdequacy writes the summary of an adequacy study.
func (s *InfluxSink) RecordAdequacy(sum coremetrics.AdequacySummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("adequacy").
		AddField("runs", sum.Runs).
		AddField("days", sum.Days).
		AddField("lolp", round3(sum.LOLP)).
		AddField("mean_capacity", round3(sum.MeanCapacity)).
		AddField("std_capacity", round3(sum.StdCapacity)).
		AddField("mean_deficit", round3(sum.MeanDeficit)).
		SetTime(sum.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
