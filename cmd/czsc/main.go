// Command czsc runs the structural-decomposition pipeline over a bar
// series, either as a one-shot batch replay or as a long-running server
// exposing the HTTP/WebSocket export surface. Grounded on the donor's
// cmd/cryptorun cobra-tree-plus-zerolog-bootstrap shape.
package main

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forex24/czsc-go/internal/cache"
	"github.com/forex24/czsc-go/internal/config"
	"github.com/forex24/czsc-go/internal/exportcsv"
	"github.com/forex24/czsc-go/internal/httpapi"
	"github.com/forex24/czsc-go/internal/ingest"
	"github.com/forex24/czsc-go/internal/log"
	"github.com/forex24/czsc-go/internal/metrics"
	"github.com/forex24/czsc-go/internal/pipeline"
	"github.com/forex24/czsc-go/internal/store"
)

// buildVersion is overridden at link time via -ldflags.
var buildVersion = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "czsc",
		Short: "Incremental Chan-theory structural decomposition over price bars",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "czsc.yaml", "path to the YAML config file")

	root.AddCommand(runCmd(&configPath), serveCmd(&configPath), versionCmd())
	return root
}

func bootstrapLogger(cfg *config.Config) zerolog.Logger {
	isTTY := term.IsTerminal(int(os.Stderr.Fd()))
	format := cfg.Log.Format
	if !isTTY && format == "console" {
		format = "json"
	}
	return log.Bootstrap(cfg.Log.Level, format)
}

func loadPipeline(cfg *config.Config, logger zerolog.Logger) (*pipeline.Pipeline, error) {
	pcfg, warnings, err := cfg.Pipeline.Resolve()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logger.Warn().Msg(w)
	}
	return pipeline.New(pcfg), nil
}

func runCmd(configPath *string) *cobra.Command {
	var inputPath string
	var outDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Batch-replay a CSV bar file through the pipeline and export the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := bootstrapLogger(cfg)
			runID := uuid.NewString()
			logger = logger.With().Str("run_id", runID).Logger()

			p, err := loadPipeline(cfg, logger)
			if err != nil {
				return err
			}

			isTTY := term.IsTerminal(int(os.Stderr.Fd()))
			if isTTY {
				logger.Info().Str("input", inputPath).Msg("replaying bars")
			}

			errs := ingest.ReplayCSV(p, inputPath)
			for _, e := range errs {
				logger.Warn().Err(e).Msg("bar rejected during replay")
			}

			snap := p.Snapshot()
			logger.Info().
				Int("bars", snap.BarCount).Int("strokes", snap.StrokeCount).
				Int("segments", snap.SegmentCount).Int("zones", snap.ZoneCount).
				Int("signals", snap.SignalCount).Msg("replay complete")

			if outDir != "" {
				if err := exportcsv.WriteAll(p, outDir); err != nil {
					return err
				}
				logger.Info().Str("dir", outDir).Msg("wrote csv export")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "CSV bar file to replay")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory to write CSV row-set exports into")
	cmd.MarkFlagRequired("input")
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP/WebSocket export server and metrics endpoint (no bar source is attached)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := bootstrapLogger(cfg)
			runID := uuid.NewString()
			logger = logger.With().Str("run_id", runID).Logger()

			p, err := loadPipeline(cfg, logger)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			metricSet := metrics.NewSet(reg, cfg.Ingest.LiveURL)

			var mu sync.Mutex
			server := httpapi.NewServer(p, &mu, logger)

			if cfg.Metrics.Enabled {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				go func() {
					if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
						logger.Error().Err(err).Msg("metrics server stopped")
					}
				}()
			}

			if cfg.Store.Enabled {
				st, err := store.Open(cmd.Context(), cfg.Store.DSN)
				if err != nil {
					return err
				}
				defer st.Close()
				logger.Info().Msg("connected signal-history store")
			}

			if cfg.Cache.Enabled {
				c := cache.New(cfg.Cache.Addr, time.Duration(cfg.Cache.TTLSec)*time.Second)
				defer c.Close()
				logger.Info().Str("addr", cfg.Cache.Addr).Msg("connected snapshot cache")
			}

			go func() {
				for {
					mu.Lock()
					snap := p.Snapshot()
					metricSet.Observe(snap)
					server.BroadcastNewSignals()
					mu.Unlock()
					time.Sleep(time.Duration(cfg.Ingest.PollIntervalMs) * time.Millisecond)
				}
			}()

			logger.Info().Str("addr", cfg.HTTP.Addr).Msg("serving export api")
			return http.ListenAndServe(cfg.HTTP.Addr, server.Router())
		},
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(buildVersion)
			return nil
		},
	}
}
