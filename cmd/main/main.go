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

	"price-recon/internal/config"
	"price-recon/internal/ingest"
	"price-recon/internal/ledger"
	recHnd "price-recon/internal/reconcile/handler"
	"price-recon/internal/reconcile/service"
	serverhttp "price-recon/server/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger := config.SetupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := ledger.Open(ctx, cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open ledger")
	}
	defer store.Close()

	resolver, err := service.NewResolver(cfg.Thresholds(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("resolver")
	}
	pipeline := ingest.New(store, resolver, ingest.Options{
		CanonicalSource: cfg.CanonicalSource,
		Workers:         cfg.IngestWorkers,
	}, logger)
	cmp := service.NewComparator(cfg.CompareThreshold, logger)

	h := recHnd.New(cmp, pipeline, store, int64(cfg.MaxUploadMB)<<20)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           serverhttp.NewRouter(cfg, logger, h, store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.Addr()).
			Str("ledger", cfg.DBDriver).
			Int("auto_accept", cfg.AutoAccept).
			Int("min_floor", cfg.MinFloor).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	logger.Info().Msg("bye")
}
