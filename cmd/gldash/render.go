package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/weppcloud/gldash/pkg/layers"
	"github.com/weppcloud/gldash/pkg/timeseries"
)

// Render flags
var (
	renderScenario  string
	renderCompare   bool
	renderShow      []string
	renderStatistic string
	renderYear      int
	renderDate      string
	renderGraph     string
	renderFormat    string
	renderOutput    string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the layer stack, legends and graph for a selection",
	Long: `Detect the run's overlays, apply the selection given by flags and print
the resulting layer stack, legends and (with --graph) graph dataset.

Examples:
  gldash render --show landuse:dominant
  gldash render --show wepp_yearly:soil_loss --year 2005
  gldash render --graph hillslope-soil-loss --format yaml -o graph.yaml`,
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderScenario, "scenario", "", "scenario path (empty for base)")
	f.BoolVar(&renderCompare, "compare", false, "colour by base − scenario difference")
	f.StringSliceVar(&renderShow, "show", nil, "layer keys to show, e.g. wepp:soil_loss")
	f.StringVar(&renderStatistic, "statistic", "", "WEPP statistic: mean, p90, sd or cv")
	f.IntVar(&renderYear, "year", 0, "WEPP yearly year")
	f.StringVar(&renderDate, "date", "", "WEPP event date (YYYY-MM-DD)")
	f.StringVar(&renderGraph, "graph", "", "graph key to load")
	f.StringVar(&renderFormat, "format", "json", "output format: json or yaml")
	f.StringVarP(&renderOutput, "output", "o", "", "write to file instead of stdout")
}

type renderResult struct {
	State   any              `json:"state"`
	Layers  []layers.Layer   `json:"layers"`
	Legends []layers.Legend  `json:"legends"`
	Graph   *timeseries.View `json:"graph,omitempty"`
}

func runRender(cmd *cobra.Command, args []string) error {
	dash, log, cleanup, err := setup(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if err := dash.Init(ctx); err != nil {
		return err
	}
	if renderScenario != "" {
		dash.SetScenario(ctx, renderScenario)
	}
	if renderStatistic != "" {
		dash.SetWeppStatistic(ctx, renderStatistic)
	}
	if renderYear != 0 {
		dash.SetWeppYear(ctx, renderYear)
	}
	if renderDate != "" {
		dash.SetEventDate(ctx, renderDate)
	}
	for _, key := range renderShow {
		if err := dash.SetLayerVisible(ctx, key, true); err != nil {
			return err
		}
	}
	if renderCompare {
		dash.SetComparisonMode(ctx, true)
	}

	res := renderResult{
		State:   dash.Store().Get(),
		Layers:  dash.Render(),
		Legends: dash.Legends(),
	}
	if renderGraph != "" {
		view, err := dash.LoadGraph(ctx, renderGraph, false)
		if err != nil {
			return err
		}
		res.Graph = &view
	}
	log.Debug().Int("layers", len(res.Layers)).Msg("rendered")

	out, err := encode(res, renderFormat)
	if err != nil {
		return err
	}
	if renderOutput == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(renderOutput, out, 0o644)
}

func encode(v any, format string) ([]byte, error) {
	switch format {
	case "json":
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "yaml":
		// round-trip through JSON so the camelCase tags apply
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return yaml.Marshal(doc)
	}
	return nil, fmt.Errorf("unknown format %q (want json or yaml)", format)
}
