package main

import (
	"github.com/spf13/cobra"

	"price-recon/internal/ledger"
	"price-recon/internal/reconcile/service"
)

func newReportCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print latest canonical and competitor prices for every matched pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStore(cmd.Context(), func(store *ledger.Store) error {
				rows, err := store.LinkedPrices(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), service.LinkedReport(rows, e.cfg.CanonicalSource))
			})
		},
	}
}
