// dom_tail mirrors the DOM of every Chrome tab and journals its mutations
// to structured JSONL logs.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ajsharma/dom_tail/internal/cdp"
	"github.com/ajsharma/dom_tail/internal/config"
	"github.com/ajsharma/dom_tail/internal/logger"
	"github.com/ajsharma/dom_tail/internal/logging"
	"github.com/ajsharma/dom_tail/internal/metrics"
)

// flagCfg receives flag values; only flags set on the command line
// override the loaded configuration.
var (
	flagCfg    = config.DefaultConfig()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "dom_tail",
	Short: "Mirror Chrome tab DOMs and journal their mutations to JSONL logs",
	Long: `dom_tail connects to Chrome via the DevTools Protocol, keeps a mirror of
each tab's DOM (shadow roots, pseudo elements and frames included) and writes
every mutation to structured JSONL log files organized by site and tab.

Example:
  # Connect to existing Chrome (must be started with --remote-debugging-port=9222)
  dom_tail

  # Auto-launch Chrome and open the demo page
  dom_tail --launch --demo

  # Load settings from a file and expose Prometheus metrics
  dom_tail --config dom_tail.yaml --metrics-addr :9090`,
	RunE: run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file")

	// Connection
	f.StringVarP(&flagCfg.ChromePort, "port", "p", flagCfg.ChromePort, "Chrome remote debugging port")
	f.BoolVar(&flagCfg.AutoLaunch, "launch", flagCfg.AutoLaunch, "Auto-launch Chrome with debugging enabled")
	f.BoolVar(&flagCfg.Demo, "demo", flagCfg.Demo, "Open a demo page that keeps mutating its DOM")

	// Output
	f.StringVarP(&flagCfg.OutputDir, "output", "o", flagCfg.OutputDir, "Output directory for log files")
	f.DurationVar(&flagCfg.FlushInterval, "flush-interval", flagCfg.FlushInterval, "Flush interval for log buffering")
	f.IntVar(&flagCfg.BufferSize, "buffer-size", flagCfg.BufferSize, "Buffer size per tab in bytes")

	// Privacy
	f.BoolVarP(&flagCfg.Redact, "redact", "r", flagCfg.Redact, "Redact secrets in attributes, text and URLs")
	f.Bool("no-redact", false, "Disable redaction")

	// Mirror
	f.IntVar(&flagCfg.DocumentDepth, "depth", flagCfg.DocumentDepth, "Initial document depth (-1 for the whole tree)")
	f.BoolVar(&flagCfg.Pierce, "pierce", flagCfg.Pierce, "Include shadow trees and frames")
	f.BoolVar(&flagCfg.MutationCoalescing, "coalesce", flagCfg.MutationCoalescing, "Coalesce dom.mutated notifications")
	f.DurationVar(&flagCfg.StyleReloadDelay, "style-reload-delay", flagCfg.StyleReloadDelay, "Debounce for inline style reloads")

	// Event filtering
	f.BoolVar(&flagCfg.EnableStructure, "structure", flagCfg.EnableStructure, "Log structural events")
	f.BoolVar(&flagCfg.EnableAttributes, "attributes", flagCfg.EnableAttributes, "Log attribute events")
	f.BoolVar(&flagCfg.EnableCharacterData, "character-data", flagCfg.EnableCharacterData, "Log text edits")
	f.BoolVar(&flagCfg.EnableMarkers, "markers", flagCfg.EnableMarkers, "Log marker changes")
	f.Bool("no-structure", false, "Disable structural events")
	f.Bool("no-attributes", false, "Disable attribute events")
	f.Bool("no-character-data", false, "Disable text edit events")
	f.Bool("no-markers", false, "Disable marker events")

	// Operations
	f.StringVar(&flagCfg.MetricsAddr, "metrics-addr", flagCfg.MetricsAddr, "Serve Prometheus metrics on this address")
	f.BoolVar(&flagCfg.Development, "dev", flagCfg.Development, "Human readable operator logs")

	rootCmd.Version = config.Version
	rootCmd.AddCommand(controlCmd)
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}

	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "port":
			cfg.ChromePort = flagCfg.ChromePort
		case "launch":
			cfg.AutoLaunch = flagCfg.AutoLaunch
		case "demo":
			cfg.Demo = flagCfg.Demo
		case "output":
			cfg.OutputDir = flagCfg.OutputDir
		case "flush-interval":
			cfg.FlushInterval = flagCfg.FlushInterval
		case "buffer-size":
			cfg.BufferSize = flagCfg.BufferSize
		case "redact":
			cfg.Redact = flagCfg.Redact
		case "no-redact":
			cfg.Redact = false
		case "depth":
			cfg.DocumentDepth = flagCfg.DocumentDepth
		case "pierce":
			cfg.Pierce = flagCfg.Pierce
		case "coalesce":
			cfg.MutationCoalescing = flagCfg.MutationCoalescing
		case "style-reload-delay":
			cfg.StyleReloadDelay = flagCfg.StyleReloadDelay
		case "structure":
			cfg.EnableStructure = flagCfg.EnableStructure
		case "attributes":
			cfg.EnableAttributes = flagCfg.EnableAttributes
		case "character-data":
			cfg.EnableCharacterData = flagCfg.EnableCharacterData
		case "markers":
			cfg.EnableMarkers = flagCfg.EnableMarkers
		case "no-structure":
			cfg.EnableStructure = false
		case "no-attributes":
			cfg.EnableAttributes = false
		case "no-character-data":
			cfg.EnableCharacterData = false
		case "no-markers":
			cfg.EnableMarkers = false
		case "metrics-addr":
			cfg.MetricsAddr = flagCfg.MetricsAddr
		case "dev":
			cfg.Development = flagCfg.Development
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(cfg.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fm := logger.NewFileManager(cfg.OutputDir,
		logger.WithFlushInterval(cfg.FlushInterval),
		logger.WithBufferSize(cfg.BufferSize),
		logger.WithLogger(log),
	)
	mt := metrics.New()
	manager := cdp.NewManager(cfg, fm, cdp.WithLogger(log), cdp.WithMetrics(mt))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, mt, log)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Demo {
		demo, err := cdp.StartDemoServer()
		if err != nil {
			return err
		}
		defer demo.Close()
		go openDemoTab(ctx, manager, cfg.ChromePort, demo.URL(), log)
	}

	log.Info("dom_tail starting",
		zap.String("version", config.Version),
		zap.String("output", cfg.OutputDir),
		zap.String("port", cfg.ChromePort),
		zap.Bool("launch", cfg.AutoLaunch),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- manager.Start(ctx)
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		log.Info("received shutdown signal")
		select {
		case err = <-errCh:
		case <-time.After(2 * time.Second):
		}
	}

	manager.Stop()
	return err
}

func serveMetrics(addr string, mt *metrics.Metrics, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mt.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}

// openDemoTab opens the demo page once the manager is connected, so the
// new tab is picked up by target discovery.
func openDemoTab(ctx context.Context, manager *cdp.Manager, port, url string, log *zap.Logger) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for !manager.IsConnected() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
	if err := cdp.OpenNewTab(port, url); err != nil {
		log.Warn("failed to open demo tab", zap.Error(err))
		return
	}
	log.Info("opened demo tab", zap.String("url", url))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
