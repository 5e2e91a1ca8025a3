package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"price-recon/internal/fileio"
	"price-recon/internal/reconcile/model"
	"price-recon/internal/reconcile/service"
)

func newCompareCmd(e *env) *cobra.Command {
	var (
		threshold  int
		stats      bool
		mapA, mapB model.Mapping
	)
	cmd := &cobra.Command{
		Use:   "compare FILE_A FILE_B",
		Short: "Pair every listing of FILE_A with its best match in FILE_B and print price deltas",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := readTable(args[0], mapA)
			if err != nil {
				return err
			}
			b, err := readTable(args[1], mapB)
			if err != nil {
				return err
			}
			service.Prepare(a)
			service.Prepare(b)

			if !cmd.Flags().Changed("threshold") {
				threshold = e.cfg.CompareThreshold
			}
			rep := service.NewComparator(threshold, e.log).Report(a, b)
			if stats {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			return printJSON(cmd.OutOrStdout(), rep.Records)
		},
	}

	f := cmd.Flags()
	f.IntVar(&threshold, "threshold", service.DefaultCompareThreshold, "a pair must score strictly above this")
	f.BoolVar(&stats, "stats", false, "print the report with summary counts instead of bare records")
	f.StringVar(&mapA.NameKey, "a-name", "", "title column of FILE_A")
	f.StringVar(&mapA.PriceKey, "a-price", "", "price column of FILE_A")
	f.IntVar(&mapA.HeaderRow, "a-header-row", 1, "header row of FILE_A (1-based)")
	f.StringVar(&mapB.NameKey, "b-name", "", "title column of FILE_B")
	f.StringVar(&mapB.PriceKey, "b-price", "", "price column of FILE_B")
	f.IntVar(&mapB.HeaderRow, "b-header-row", 1, "header row of FILE_B (1-based)")
	return cmd
}

func readTable(path string, m model.Mapping) ([]model.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	items, err := fileio.ReadItems(f, path, m, "")
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return items, nil
}
