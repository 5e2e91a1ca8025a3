package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"price-recon/internal/ingest"
	"price-recon/internal/reconcile/model"
)

func newIngestCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE.json",
		Short: "Stage a JSON array of scraped listings into the ledger (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			var batch []model.RawListing
			if err := json.NewDecoder(in).Decode(&batch); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			return e.withPipeline(cmd.Context(), func(p *ingest.Pipeline) error {
				sum, err := p.Run(cmd.Context(), batch)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), sum)
			})
		},
	}
}

func newResolveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Retry resolution of every unresolved competitor listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withPipeline(cmd.Context(), func(p *ingest.Pipeline) error {
				sum, err := p.Reresolve(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), sum)
			})
		},
	}
}
