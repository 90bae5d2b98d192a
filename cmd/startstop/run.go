package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/startstop/internal/cliconfig"
	"github.com/bft-labs/startstop/internal/listener"
	"github.com/bft-labs/startstop/pkg/lifecycle"
	"github.com/bft-labs/startstop/pkg/log"
	"github.com/bft-labs/startstop/pkg/observer"
	"github.com/bft-labs/startstop/plugins/configwatcher"
)

// run starts the listener under a lifecycle.Service and blocks until
// SIGINT/SIGTERM (or immediately with cfg.Once), then stops it.
func run(parent context.Context, cfg cliconfig.Config, cfgFile string, changed map[string]bool) error {
	zl := cliconfig.Logger(cfg.LogLevel)
	logger := log.NewZerologAdapterWithLogger(zl)

	// Log configuration (masking the token)
	logCfg := cfg
	if len(logCfg.AuthToken) > 0 {
		logCfg.AuthToken = "*****"
	}
	zl.Info().Interface("config", logCfg).Msg("configuration")

	ctx, stopSignals := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observer.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var svc *lifecycle.Service
	ln := listener.New(cfg.Addr, func() lifecycle.Status { return svc.Status() },
		listener.WithShutdownTimeout(cfg.ShutdownTimeout),
		listener.WithLogger(logger),
		listener.WithHandler("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})),
	)

	opts := []lifecycle.Option{
		lifecycle.WithName(cfg.Name),
		lifecycle.WithLogger(logger),
		lifecycle.WithObserver(observer.NewStatusFile(cfg.StateDir, logger)),
		lifecycle.WithObserver(metrics.Observer()),
	}

	if cfg.WebhookURL != "" {
		hook, err := observer.NewWebhook(observer.WebhookConfig{
			URL:         cfg.WebhookURL,
			AuthToken:   cfg.AuthToken,
			MaxAttempts: cfg.WebhookAttempts,
		}, &http.Client{Timeout: cfg.HTTPTimeout}, logger)
		if err != nil {
			return fmt.Errorf("create webhook: %w", err)
		}
		opts = append(opts, lifecycle.WithObserver(hook))

		hookCtx, cancelHook := context.WithCancel(context.Background())
		hookDone := make(chan struct{})
		go func() {
			defer close(hookDone)
			_ = hook.Run(hookCtx)
		}()
		defer func() {
			// Drain resumes any event Run was cut off on, then the rest of the queue.
			cancelHook()
			<-hookDone
			drainCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
			defer cancel()
			hook.Drain(drainCtx)
		}()
	}

	svc = lifecycle.New(ln.Open, ln.Close, opts...)

	// A failed restart leaves nothing to wait for.
	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	svc.Subscribe(lifecycle.ObserverFunc(func(e lifecycle.StateChangeEvent) {
		if e.Current.State == lifecycle.StateError {
			cancelRun()
		}
	}))

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start %s: %w", cfg.Name, err)
	}

	var wg sync.WaitGroup
	if cfg.Watch && cfgFile != "" {
		r := &reloader{svc: svc, base: cfg, cfgFile: cfgFile, changed: changed, addr: cfg.Addr, logger: logger}
		watcher, err := configwatcher.New(configwatcher.Config{
			Path:     cfgFile,
			OnChange: r.reload,
		}, configwatcher.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("create config watcher: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("config watcher stopped", log.Err(err))
			}
		}()
	} else if cfg.Watch {
		logger.Warn("no config file to watch")
	}

	if !cfg.Once {
		<-ctx.Done()
		if svc.State() != lifecycle.StateError {
			logger.Info("received signal, stopping...")
		}
	}
	stopSignals()
	wg.Wait()

	// Graceful shutdown
	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := svc.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop %s: %w", cfg.Name, err)
	}
	return nil
}

// reloader restarts the service when the watched config changes the
// listener address. Other settings need a process restart.
type reloader struct {
	svc     *lifecycle.Service
	base    cliconfig.Config
	cfgFile string
	changed map[string]bool
	logger  log.Logger

	// addr is only touched from reload, which configwatcher never runs concurrently.
	addr string
}

func (r *reloader) reload(ctx context.Context) error {
	next := r.base
	if _, err := loadConfig(&next, r.cfgFile, r.changed); err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	if next.Addr == r.addr {
		r.logger.Debug("config changed, address unchanged", log.String("addr", r.addr))
		return nil
	}

	r.logger.Info("address changed, restarting",
		log.String("from", r.addr),
		log.String("to", next.Addr),
	)
	if err := r.svc.Stop(ctx); err != nil {
		return err
	}
	if err := r.svc.Start(ctx, next.Addr); err != nil {
		return err
	}
	r.addr = next.Addr
	return nil
}
