package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kilianp07/frlm/core/factory"
	"github.com/kilianp07/frlm/core/scenario"
	"github.com/kilianp07/frlm/infra/logger"
	"github.com/kilianp07/frlm/infra/store"
	"github.com/kilianp07/frlm/pkg/export"
)

// Report files written by the sweep command.
const (
	scenarioReport = "stats_by_scenario.csv"
	stationReport  = "stats_by_station.csv"
	failureReport  = "failures.csv"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run every configured scenario and write aggregate reports",
	RunE:  sweep,
}

func init() {
	addNetworkFlags(sweepCmd)
	sweepCmd.Flags().Int("workers", 0, "concurrent scenarios, overrides sweep.workers")
	sweepCmd.Flags().String("out-dir", ".", "directory receiving the CSV reports")
	sweepCmd.Flags().Bool("no-store", false, "do not persist records")
	rootCmd.AddCommand(sweepCmd)
}

func sweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if w, _ := cmd.Flags().GetInt("workers"); w > 0 {
		cfg.Sweep.Workers = w
	}
	logg := logger.New("sweep-command")
	params, err := cfg.Sweep.Params(logg)
	if err != nil {
		return err
	}
	if len(params) == 0 {
		return scenario.ErrNoScenarios
	}

	p, err := newPlanner(cmd, cfg, logg)
	if err != nil {
		return err
	}
	defer p.flush()

	runID := uuid.NewString()
	bus := scenario.NewProgressBus()
	events := bus.Subscribe(len(params))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			if ev.Err != nil {
				logg.Warnf("[%d/%d] %s failed: %v", ev.Done, ev.Total, ev.Params, ev.Err)
				continue
			}
			logg.Infof("[%d/%d] %s: %d stations", ev.Done, ev.Total, ev.Params, ev.Stations)
		}
	}()

	sw := scenario.NewSweep(p.runner(runID),
		scenario.Workers(cfg.Sweep.Workers),
		scenario.WithProgress(bus),
		scenario.WithSweepLogger(logg),
	)
	rep, err := sw.Run(ctx, params)
	bus.Close()
	wg.Wait()
	if err != nil {
		return err
	}

	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		if err := persist(ctx, cfg.Store.Module(), rep); err != nil {
			logg.Errorf("store records: %v", err)
		}
	}

	dir, _ := cmd.Flags().GetString("out-dir")
	if err := writeReports(dir, rep); err != nil {
		return err
	}
	logg.Infof("sweep %s: %d scenarios solved, %d failed in %s", runID, len(rep.Results()), len(rep.Failures), rep.Duration)
	return nil
}

func persist(ctx context.Context, cfg factory.ModuleConfig, rep *scenario.Report) error {
	st, err := store.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return st.Append(ctx, rep.Records()...)
}

func writeReports(dir string, rep *scenario.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, scenarioReport), func(f *os.File) error {
		return export.WriteScenarioCSV(f, rep.ByScenario())
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, stationReport), func(f *os.File) error {
		return export.WriteStationCSV(f, rep.ByStation())
	}); err != nil {
		return err
	}
	if len(rep.Failures) == 0 {
		return nil
	}
	return writeFile(filepath.Join(dir, failureReport), func(f *os.File) error {
		return export.WriteFailureCSV(f, rep.Failures)
	})
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
