package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/candig/fedsearch/pkg/api"
	"github.com/candig/fedsearch/pkg/events"
	"github.com/candig/fedsearch/pkg/health"
	"github.com/candig/fedsearch/pkg/log"
	"github.com/candig/fedsearch/pkg/metrics"
	"github.com/candig/fedsearch/pkg/storage"
	"github.com/candig/fedsearch/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fedsearch",
	Short: "fedsearch - federated search node for clinical metadata",
	Long: `fedsearch is a federation node for tiered clinical and genomic
metadata. Each node serves its own datasets and fans queries out to its
registered peers, merging the answers into a single response with an
aggregated status block.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"fedsearch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(peerCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(accessCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the federation node",
	Long: `Run the federation node: the HTTP API, the peer health monitor
and the metrics collector, all over one registry database.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("config", "", "Path to YAML config file")
	serveCmd.Flags().String("listen", "", "Listen address (overrides config)")
	serveCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := types.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.ListenAddr = listen
	}
	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	logger := log.WithComponent("main")
	logger.Info().Str("version", Version).Msg("Starting fedsearch node")

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer store.Close()
	metrics.SetVersion(Version)
	metrics.RegisterComponent("registry", true, "open")

	broker := events.NewBroker()
	broker.Start()

	// Log registry and federation events as they happen.
	eventLog := log.WithComponent("events")
	sub := broker.Subscribe()
	go func() {
		for event := range sub {
			eventLog.Info().
				Str("type", string(event.Type)).
				Str("message", event.Message).
				Msg("Event")
		}
	}()

	server := api.NewServer(cfg, store, broker)

	healthCfg := health.DefaultConfig()
	if cfg.HealthInterval > 0 {
		healthCfg.Interval = cfg.HealthInterval
	}
	monitor := health.NewMonitor(store, broker, healthCfg)
	if cfg.HealthInterval > 0 {
		monitor.Start()
	}

	collector := metrics.NewCollector(store)
	collector.Start()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("API server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Warn().Err(err).Msg("API shutdown incomplete")
	}
	collector.Stop()
	if cfg.HealthInterval > 0 {
		monitor.Stop()
	}
	broker.Stop()

	logger.Info().Msg("Shutdown complete")
	return nil
}

// openStore opens the registry for the offline admin commands.
func openStore(cmd *cobra.Command) (storage.Store, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	store, err := storage.NewBoltStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry at %s: %w", dataDir, err)
	}
	return store, nil
}
