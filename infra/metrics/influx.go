package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/frlm/core/metrics"
	"github.com/kilianp07/frlm/infra/logger"
)

// InfluxSink writes planning outcomes to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
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

// RecordScenario writes one frlm_scenario point.
func (s *InfluxSink) RecordScenario(ev coremetrics.ScenarioEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("frlm_scenario").
		AddTag("run_id", ev.RunID).
		AddTag("status", ev.Status).
		AddTag("scenario", ev.Params.String()).
		AddField("full_range", ev.Params.FullRange).
		AddField("start_range", ev.Params.StartRange).
		AddField("fuel_economy", ev.Params.FuelEconomy).
		AddField("stations", ev.Stations).
		AddField("dispensed_fuel", round3(ev.DispensedFuel)).
		AddField("start_fuel", round3(ev.StartFuel)).
		AddField("end_fuel", round3(ev.EndFuel)).
		AddField("consumed_fuel", round3(ev.ConsumedFuel)).
		AddField("duration_ms", float64(ev.Duration.Microseconds())/1000).
		SetTime(ev.Time)
	if ev.Err != "" {
		p = p.AddField("error", ev.Err)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSweep writes one frlm_sweep point.
func (s *InfluxSink) RecordSweep(ev coremetrics.SweepEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("frlm_sweep").
		AddTag("run_id", ev.RunID).
		AddField("scenarios", ev.Scenarios).
		AddField("failed", ev.Failed).
		AddField("duration_ms", float64(ev.Duration.Microseconds())/1000).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Flush releases the client. The sink must not be used afterwards.
func (s *InfluxSink) Flush(ctx context.Context) error {
	err := s.writeAPI.Flush(ctx)
	s.client.Close()
	return err
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
