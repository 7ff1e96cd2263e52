package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/weppcloud/gldash/internal/config"
	"github.com/weppcloud/gldash/internal/dashboard"
	"github.com/weppcloud/gldash/internal/logx"
	"github.com/weppcloud/gldash/internal/store"
)

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "gldash",
	Short: "Headless gl-dashboard for WEPPcloud runs",
	Long: `gldash runs the gl-dashboard data, layer and graph core outside the
browser against a Query Engine and a run resource tree.

Examples:
  gldash render -c run.yaml --show wepp:soil_loss
  gldash render -c run.yaml --scenario omni/scenarios/thinning --compare --show wepp:soil_loss
  gldash serve -c run.yaml --addr :8080`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gldash.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
	rootCmd.AddCommand(renderCmd, serveCmd)
}

// setup loads the configuration and builds a dashboard. The returned
// cleanup closes the query cache.
func setup(reg prometheus.Registerer) (*dashboard.Dashboard, zerolog.Logger, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log := logx.New(cfg.Log.Level, os.Stderr)

	cache, err := store.Open(cfg.QueryEngine.Cache)
	if err != nil {
		return nil, log, nil, err
	}
	cleanup := func() {
		if cache != nil {
			if err := cache.Close(); err != nil {
				log.Warn().Err(err).Msg("close query cache")
			}
		}
	}

	dash, err := dashboard.New(dashboard.Options{
		Config:     cfg,
		Cache:      cache,
		Status:     func(msg string) { log.Warn().Str("status", msg).Msg("dashboard status") },
		Registerer: reg,
		Logger:     log,
	})
	if err != nil {
		cleanup()
		return nil, log, nil, fmt.Errorf("build dashboard: %w", err)
	}
	return dash, log, cleanup, nil
}
