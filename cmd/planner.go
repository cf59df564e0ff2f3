package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/frlm/config"
	coremetrics "github.com/kilianp07/frlm/core/metrics"
	coremon "github.com/kilianp07/frlm/core/monitoring"
	"github.com/kilianp07/frlm/core/network"
	"github.com/kilianp07/frlm/core/scenario"
	"github.com/kilianp07/frlm/core/solver"
	"github.com/kilianp07/frlm/infra/logger"
	_ "github.com/kilianp07/frlm/infra/metrics"
	"github.com/kilianp07/frlm/infra/monitoring"
	"github.com/kilianp07/frlm/internal/dataset"
)

// planner bundles what every command shares: the network, the solver and the
// metrics sink.
type planner struct {
	cfg  *config.Config
	ds   *dataset.Dataset
	net  *network.Network
	sink coremetrics.Sink
	log  logger.Logger
}

func addNetworkFlags(cmd *cobra.Command) {
	cmd.Flags().String("dataset", "", "network dataset, overrides network.dataset")
	cmd.Flags().String("dataset-format", "", "dataset format yaml|csv, overrides network.format")
	cmd.Flags().Bool("inclusive", false, "let a refuel reach nodes exactly full range away")
}

func newPlanner(cmd *cobra.Command, cfg *config.Config, log logger.Logger) (*planner, error) {
	if v, _ := cmd.Flags().GetString("dataset"); v != "" {
		cfg.Network.Dataset = v
	}
	if v, _ := cmd.Flags().GetString("dataset-format"); v != "" {
		cfg.Network.Format = v
	}
	if v, _ := cmd.Flags().GetBool("inclusive"); v {
		cfg.Coverage.InclusiveReach = true
	}
	if cfg.Network.Dataset == "" {
		return nil, errors.New("no dataset: set network.dataset or --dataset")
	}
	ds, err := dataset.Load(cfg.Network.Format, cfg.Network.Dataset)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	opts := []network.Option{network.WithLogger(logger.New("network"))}
	if cfg.Network.Directed {
		opts = append(opts, network.Directed())
	}
	net, err := ds.Network(opts...)
	if err != nil {
		return nil, fmt.Errorf("build network: %w", err)
	}
	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	log.Infof("dataset %s: %d nodes, %d arcs, %d routes", cfg.Network.Dataset, len(ds.Nodes), len(ds.Arcs), len(ds.Routes))
	return &planner{cfg: cfg, ds: ds, net: net, sink: sink, log: log}, nil
}

func (p *planner) runner(runID string) *scenario.Runner {
	s := solver.NewBranchAndBound(p.cfg.Solver.Limits(), solver.WithLogger(logger.New("solver")))
	opts := []scenario.RunnerOption{
		scenario.WithLogger(logger.New("scenario")),
		scenario.WithSink(p.sink),
		scenario.WithRunID(runID),
	}
	if p.cfg.Coverage.InclusiveReach {
		opts = append(opts, scenario.WithInclusiveReach())
	}
	return scenario.NewRunner(p.net, s, opts...)
}

// flush pushes buffered metrics and error reports. Failures are logged only.
func (p *planner) flush() {
	coremon.Flush(2 * time.Second)
	f, ok := p.sink.(coremetrics.Flusher)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := f.Flush(ctx); err != nil {
		p.log.Errorf("flush metrics: %v", err)
	}
}
