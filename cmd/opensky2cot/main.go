package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/opensky2cot/internal/config"
	"github.com/rickgao/opensky2cot/internal/connection"
	"github.com/rickgao/opensky2cot/internal/cot"
	"github.com/rickgao/opensky2cot/internal/health"
	"github.com/rickgao/opensky2cot/internal/logging"
	"github.com/rickgao/opensky2cot/internal/metrics"
	"github.com/rickgao/opensky2cot/internal/opensky"
	"github.com/rickgao/opensky2cot/internal/poller"
	"github.com/rickgao/opensky2cot/internal/tracing"
	"github.com/rickgao/opensky2cot/internal/version"
)

const defaultConfigPath = "opensky2cot.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet(version.Name, pflag.ContinueOnError)
	configPath := flagSet.String("config", defaultConfigPath, "path to YAML config file")
	showVersion := flagSet.Bool("version", false, "print version and exit")
	config.RegisterFlags(flagSet)

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Println(version.Name, version.String())
		return nil
	}

	// An explicitly named file must exist; the default one is optional
	cfg, err := config.LoadAndValidate(*configPath, !flagSet.Changed("config"), flagSet)
	if err != nil {
		return err
	}

	// Set up structured logging
	logger, logCloser, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	instanceID := uuid.NewString()
	logger = logger.With("instance_id", instanceID)

	logger.Info("starting "+version.Name,
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    version.Name,
		ServiceVersion: version.Version,
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer tracing.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector, err = metrics.NewCollector(nil)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}

	// Telemetry source
	apiClient := opensky.NewClient(
		cfg.OpenSky.URL,
		opensky.WithCredentials(cfg.OpenSky.Username, cfg.OpenSky.Password),
		opensky.WithTimeout(cfg.OpenSky.TimeoutDuration()),
		opensky.WithRetries(cfg.OpenSky.Retries, time.Second),
		opensky.WithLogger(logger.With("component", "opensky")),
	)

	// TAK transport
	connCfg := connection.Config{
		Address:           cfg.CoT.Address,
		Port:              cfg.CoT.Port,
		Protocol:          cfg.CoT.Protocol,
		Path:              cfg.CoT.Path,
		Backoff:           cfg.CoT.BackoffDuration(),
		BackoffMultiplier: cfg.CoT.BackoffMultiplier,
		MaxBackoff:        cfg.CoT.MaxBackoffDuration(),
		DialTimeout:       cfg.CoT.DialTimeoutDuration(),
		WriteTimeout:      cfg.CoT.WriteTimeoutDuration(),
		KeepaliveInterval: cfg.CoT.KeepaliveDuration(),
	}
	if connCfg.KeepaliveInterval > 0 {
		connCfg.Keepalive = cot.NewPinger(version.Name+"-"+instanceID, 2*connCfg.KeepaliveInterval)
	}
	connOpts := []connection.Option{connection.WithLogger(logger.With("component", "tak"))}
	if collector != nil {
		connOpts = append(connOpts, connection.WithRecorder(collector))
	}
	takClient := connection.NewClient(connCfg, connOpts...)

	// Poll loop
	mapper := cot.NewMapper(cfg.CoT.UIDPrefix, cfg.OpenSky.IntervalDuration())
	pollerOpts := []poller.Option{poller.WithLogger(logger.With("component", "poller"))}
	if collector != nil {
		pollerOpts = append(pollerOpts, poller.WithRecorder(collector))
	}
	p := poller.New(poller.Config{
		Interval:     cfg.OpenSky.IntervalDuration(),
		FetchTimeout: cfg.OpenSky.TimeoutDuration(),
	}, apiClient, takClient, mapper, pollerOpts...)

	logger.Info("configuration loaded",
		"tak_endpoint", takClient.Endpoint(),
		"opensky_url", cfg.OpenSky.URL,
		"authenticated", apiClient.Authenticated(),
		"interval", cfg.OpenSky.IntervalDuration(),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := p.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("poller: %w", err)
		}
		return nil
	})

	if cfg.Metrics.Enabled {
		healthServer := &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Metrics.Port),
			Handler:           health.NewRouter(takClient, p, collector.Handler(), logger.With("component", "http")),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Info("starting health server", "port", cfg.Metrics.Port)
			if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("health server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return healthServer.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()

	logger.Info(version.Name+" stopped", "stats", p.Stats())
	return err
}
