// Command shardd is the shard daemon: it loads configuration, opens
// the embedded store, wires the engine together with its metrics sink
// and block-service cache, and drives the apply loop off a pkg/logfeed
// LogSource. Networking and request dispatch are an external
// collaborator's job (spec §1); this binary's own responsibility ends
// at accepting committed log entries and answering read/prepare calls
// made directly against the Engine it builds.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ternfs/shard/internal/logger"
	"github.com/ternfs/shard/pkg/config"
	"github.com/ternfs/shard/pkg/engine"
	"github.com/ternfs/shard/pkg/logfeed"
	"github.com/ternfs/shard/pkg/metrics"
	metricsprom "github.com/ternfs/shard/pkg/metrics/prometheus"
	"github.com/ternfs/shard/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to $XDG_CONFIG_HOME/ternshard/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shardd: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Logging.Level)

	if err := run(cfg); err != nil {
		logger.Error("shardd exiting: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	storeCfg, err := config.BuildStoreConfig(cfg)
	if err != nil {
		return fmt.Errorf("building store config: %w", err)
	}
	engineCfg, err := config.BuildEngineConfig(cfg)
	if err != nil {
		return fmt.Errorf("building engine config: %w", err)
	}
	bscache, err := config.BuildBlockServiceCache(cfg)
	if err != nil {
		return fmt.Errorf("building block-service cache: %w", err)
	}

	st, err := store.Open(storeCfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("closing store: %v", err)
		}
	}()

	var shardMetrics metrics.ShardMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		shardMetrics = metricsprom.NewShardMetrics()
	}
	eng := engine.New(st, bscache, engineCfg, shardMetrics)

	metricsServer := metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port})

	// feed stands in for the real consensus client (spec §1's external
	// log/consensus layer, out of scope here); nothing pushes to it in
	// this binary, so the apply loop simply idles until shutdown. A
	// deployment wires a real logfeed.LogSource in its place.
	feed := logfeed.NewMemorySource()

	logger.Info("shard %d serving from %s (metrics enabled=%v port=%d)",
		st.ShardID(), storeCfg.DataDir, cfg.Metrics.Enabled, cfg.Metrics.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := metricsServer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := logfeed.Run(ctx, feed, eng); err != nil {
			errCh <- fmt.Errorf("apply loop: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining apply loop and metrics server")
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	}

	wg.Wait()
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
