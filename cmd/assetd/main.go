package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/milk9111/assetman/config"
	"github.com/milk9111/assetman/logging"
	"github.com/milk9111/assetman/watch"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	root := flag.String("root", "", "asset root directory (overrides config)")
	watchFlag := flag.Bool("watch", false, "keep running and hot reload changed files")
	timeout := flag.Duration("timeout", 30*time.Second, "max time to wait for the initial load")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *root != "" {
		cfg.Assets.Root = *root
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdownCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		stop()
	}()

	if err := run(ctx, cfg, *watchFlag, *timeout, logger); err != nil {
		logger.Error("assetd stopped", zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, keepWatching bool, timeout time.Duration, logger *zap.Logger) error {
	cat := newCatalog(ctx, cfg.Assets.Root, cfg.Assets.Extensions, cfg.Assets.QueueSize, logger)
	defer func() {
		if err := cat.close(); err != nil {
			logger.Warn("close registry", zap.Error(err))
		}
	}()

	n, err := cat.preload()
	if err != nil {
		return fmt.Errorf("scan %s: %w", cfg.Assets.Root, err)
	}
	logger.Info("loading assets", zap.String("root", cfg.Assets.Root), zap.Int("files", n))

	flushCtx, cancel := context.WithTimeout(ctx, timeout)
	err = cat.reg.Flush(flushCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	if err := cat.print(os.Stdout); err != nil {
		return err
	}

	if !keepWatching || !cfg.Reload.Enabled {
		return nil
	}
	return serve(ctx, cat, cfg.Reload, cfg.Assets.Extensions, logger)
}

// serve hot reloads until ctx is cancelled. File events drive reloads;
// the optional poll interval catches changes the watcher missed.
func serve(ctx context.Context, cat *catalog, rc config.ReloadConfig, exts []string, logger *zap.Logger) error {
	w, err := watch.NewWatcher(cat.root, watch.Options{Debounce: rc.Debounce, Extensions: exts})
	if err != nil {
		return fmt.Errorf("watch %s: %w", cat.root, err)
	}
	defer w.Close()
	go watch.Pump(ctx, w, cat.reg, logger)

	var poll <-chan time.Time
	if rc.PollInterval > 0 {
		t := time.NewTicker(rc.PollInterval)
		defer t.Stop()
		poll = t.C
	}
	apply := time.NewTicker(50 * time.Millisecond)
	defer apply.Stop()

	logger.Info("watching for changes", zap.String("root", cat.root))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-apply.C:
			cat.reg.Update()
		case <-poll:
			n, err := cat.reg.ReloadChanged(ctx)
			if err != nil {
				logger.Warn("poll reload", zap.Error(err))
			}
			if n > 0 {
				logger.Info("reloaded changed assets", zap.Int("assets", n))
			}
		}
	}
}
