package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"price-recon/internal/config"
	"price-recon/internal/ingest"
	"price-recon/internal/ledger"
	"price-recon/internal/reconcile/service"
)

// env holds what every subcommand needs once flags are parsed.
type env struct {
	cfg config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var logFile bool

	root := &cobra.Command{
		Use:           "pricerecon",
		Short:         "Reconcile air conditioner listings across retail catalogs",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !logFile {
				cfg.LogFile = ""
			}
			e.cfg = cfg
			e.log = config.SetupLogger(cfg)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&logFile, "log-file", false, "also write rotated JSON logs to LOG_FILE")

	root.AddCommand(newCompareCmd(e), newIngestCmd(e), newResolveCmd(e), newReportCmd(e))
	return root
}

// withStore opens the configured ledger for the duration of fn.
func (e *env) withStore(ctx context.Context, fn func(*ledger.Store) error) error {
	store, err := ledger.Open(ctx, e.cfg.DBDriver, e.cfg.DBDSN, e.log)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// withPipeline builds a staging pipeline over the configured ledger.
func (e *env) withPipeline(ctx context.Context, fn func(*ingest.Pipeline) error) error {
	res, err := service.NewResolver(e.cfg.Thresholds(), e.log)
	if err != nil {
		return err
	}
	return e.withStore(ctx, func(store *ledger.Store) error {
		return fn(ingest.New(store, res, ingest.Options{
			CanonicalSource: e.cfg.CanonicalSource,
			Workers:         e.cfg.IngestWorkers,
		}, e.log))
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
