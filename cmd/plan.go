package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kilianp07/frlm/config"
	"github.com/kilianp07/frlm/core/model"
	"github.com/kilianp07/frlm/core/scenario"
	"github.com/kilianp07/frlm/infra/logger"
	"github.com/kilianp07/frlm/pkg/export"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Place stations for one scenario",
	RunE:  plan,
}

func init() {
	addNetworkFlags(planCmd)
	f := planCmd.Flags()
	f.Float64("full-range", 0, "vehicle full range in km")
	f.Float64("start-range", 0, "range on board at trip start in km")
	f.Float64("start-ratio", 0, "range on board at trip start as a share of full range")
	f.Float64("fuel-economy", 0, "km per unit of fuel")
	f.String("format", "table", "output format: table|json|geojson")
	f.StringP("out", "o", "", "output file, stdout when empty")
	rootCmd.AddCommand(planCmd)
}

// scenarioFlags overrides the configured scenario with the flags set on cmd.
func scenarioFlags(cmd *cobra.Command, sc config.ScenarioConfig) config.ScenarioConfig {
	set := func(name string, dst **float64) {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetFloat64(name)
			*dst = &v
		}
	}
	set("full-range", &sc.FullRange)
	set("start-range", &sc.StartRange)
	set("start-ratio", &sc.StartRatio)
	set("fuel-economy", &sc.FuelEconomy)
	if cmd.Flags().Changed("start-ratio") && !cmd.Flags().Changed("start-range") {
		sc.StartRange = nil
	}
	return sc
}

func plan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	params, err := scenarioFlags(cmd, cfg.Scenario).Params()
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" && format != "geojson" {
		return fmt.Errorf("unknown format %q", format)
	}

	logg := logger.New("plan-command")
	p, err := newPlanner(cmd, cfg, logg)
	if err != nil {
		return err
	}
	defer p.flush()

	res, err := p.runner(uuid.NewString()).Run(ctx, params)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				logg.Errorf("close %s: %v", path, cerr)
			}
		}()
		out = f
	}
	switch format {
	case "json":
		return export.WriteJSON(out, planView(res))
	case "geojson":
		skipped, err := export.WriteStationsGeoJSON(out, p.ds.Nodes, res)
		if skipped > 0 {
			logg.Warnf("%d stations have no coordinates and were left out", skipped)
		}
		return err
	default:
		return writeTable(out, res)
	}
}

type planOutput struct {
	Params             model.Params           `json:"params"`
	Status             string                 `json:"status"`
	Stations           []model.NodeID         `json:"stations"`
	DispensedByStation []scenario.StationFuel `json:"dispensed_by_station"`
	DispensedFuel      float64                `json:"dispensed_fuel"`
	StartFuel          float64                `json:"start_onboard_fuel"`
	EndFuel            float64                `json:"end_onboard_fuel"`
	ConsumedFuel       float64                `json:"enroute_consumed_fuel"`
	Paths              []model.PathTrace      `json:"paths"`
}

func planView(res *scenario.Result) planOutput {
	return planOutput{
		Params:             res.Params,
		Status:             res.Status(),
		Stations:           res.Placement.Stations.IDs(),
		DispensedByStation: res.DispensedByStation,
		DispensedFuel:      res.DispensedFuel,
		StartFuel:          res.StartFuel,
		EndFuel:            res.EndFuel,
		ConsumedFuel:       res.ConsumedFuel(),
		Paths:              res.Trace.Paths,
	}
}

func writeTable(w io.Writer, res *scenario.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "scenario\t%s\n", res.Params)
	fmt.Fprintf(tw, "status\t%s\n", res.Status())
	fmt.Fprintf(tw, "stations\t%d\n", res.StationCount())
	fmt.Fprintf(tw, "dispensed fuel\t%.3f\n", res.DispensedFuel)
	fmt.Fprintf(tw, "start onboard fuel\t%.3f\n", res.StartFuel)
	fmt.Fprintf(tw, "end onboard fuel\t%.3f\n", res.EndFuel)
	fmt.Fprintf(tw, "en-route consumed fuel\t%.3f\n\n", res.ConsumedFuel())
	fmt.Fprintln(tw, "node\tdispensed fuel")
	for _, st := range res.DispensedByStation {
		fmt.Fprintf(tw, "%d\t%.3f\n", st.Node, st.FuelKg)
	}
	return tw.Flush()
}
