package metrics

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremetrics "github.com/kilianp07/frlm/core/metrics"
	"github.com/kilianp07/frlm/core/model"
)

const (
	itOrg    = "frlm"
	itBucket = "planning"
	itToken  = "frlm-test-token"
)

// startInflux launches a disposable InfluxDB 2 instance and returns its URL.
func startInflux(t *testing.T, ctx context.Context) string {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "frlm",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "frlm-password",
			"DOCKER_INFLUXDB_INIT_ORG":         itOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      itBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": itToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(time.Minute),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "8086")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

// TestInfluxSink_Integration writes a scenario point to a real InfluxDB and
// reads it back with a Flux query.
func TestInfluxSink_Integration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	url := startInflux(t, ctx)

	sink, ok := NewInfluxSinkWithFallback(url, itToken, itOrg, itBucket).(*InfluxSink)
	if !ok {
		t.Fatalf("expected InfluxSink for healthy instance")
	}
	defer sink.client.Close()

	ev := coremetrics.ScenarioEvent{
		RunID:         "it-run",
		Params:        model.Params{FullRange: 300, StartRange: 150, FuelEconomy: 10},
		Status:        coremetrics.StatusOptimal,
		Stations:      2,
		DispensedFuel: 40,
		Time:          time.Now(),
	}
	if err := sink.RecordScenario(ev); err != nil {
		t.Fatalf("record scenario: %v", err)
	}

	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -1h)
  |> filter(fn: (r) => r._measurement == "frlm_scenario" and r.run_id == "it-run" and r._field == "dispensed_fuel")`, itBucket)
	res, err := sink.client.QueryAPI(itOrg).Query(ctx, flux)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer res.Close()
	var got []float64
	for res.Next() {
		if v, ok := res.Record().Value().(float64); ok {
			got = append(got, v)
		}
	}
	if res.Err() != nil {
		t.Fatalf("query result: %v", res.Err())
	}
	if len(got) != 1 || got[0] != 40 {
		t.Fatalf("expected one dispensed_fuel point of 40 got %v", got)
	}
}
