package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"osrs-price-tracker/pkg/config"
	"osrs-price-tracker/pkg/logging"
	"osrs-price-tracker/pkg/osrs"
	"osrs-price-tracker/pkg/refresh"
	"osrs-price-tracker/pkg/rows"
	"osrs-price-tracker/pkg/server"
)

const VERSION = "0.1.0"

var (
	configPath = flag.String("config", "config.yaml", "Path to the YAML configuration file")
	noRefresh  = flag.Bool("no-refresh", false, "Disable the background refresh loop; rows are assembled on demand")
)

func main() {
	flag.Parse()

	// A missing .env file is fine; the environment may be set elsewhere.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logging.NewLogger("info", "json").WithComponent("server").WithError(err).Fatal("failed to load configuration")
	}

	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.WithComponent("server").WithField("version", VERSION).Info("starting price tracker")

	client := osrs.NewClientWith(
		cfg.OSRS.UserAgent,
		cfg.OSRS.BaseURL,
		rate.NewLimiter(rate.Every(cfg.OSRS.GetRateLimitDelay()), 1),
		logger,
	)

	// Without enrich_rows the assembler skips per-item series fetches
	// and daily metrics come from the 24h aggregate alone.
	var source rows.TimeseriesSource
	if cfg.OSRS.EnrichRows {
		source = client
	}
	assembler := rows.NewAssembler(source, &rows.AssemblerConfig{
		BatchSize: cfg.OSRS.GetBatchSize(),
		Timestep:  cfg.OSRS.Timestep,
	}, logger)

	var refresher *refresh.Refresher
	if !*noRefresh {
		refresher = refresh.NewRefresher(client, assembler, &refresh.RefresherConfig{
			Interval:           cfg.Refresh.GetInterval(),
			BackoffBaseSeconds: cfg.Refresh.GetBackoffBase(),
			CatalogCron:        cfg.Refresh.CatalogCron,
		}, logger)

		if err := refresher.Start(); err != nil {
			logger.WithComponent("server").WithError(err).Fatal("failed to start refresher")
		}
		defer refresher.Stop()
	}

	handler := server.NewHandler(client, sourceOrNil(refresher), cfg.Cache.GetRowsTTL(), cfg.OSRS.Timestep)
	srv := server.NewServer(&cfg.Server, handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithComponent("server").WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.WithComponent("server").WithError(err).Fatal("http server failed")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithComponent("server").WithError(err).Error("shutdown was not clean")
	}
}

// sourceOrNil avoids handing the handler a non-nil interface wrapping a
// nil *Refresher.
func sourceOrNil(r *refresh.Refresher) server.RowSource {
	if r == nil {
		return nil
	}
	return r
}
