package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entanglab/dqc/internal/store"
	"github.com/entanglab/dqc/internal/store/postgres"
)

var (
	runsStatus string
	runsScheme string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs from the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DQC_DATABASE_URL is not set; no run ledger to query")
		}
		ledger, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("opening run ledger: %w", err)
		}
		defer ledger.Close()

		filter := store.RunFilter{Scheme: runsScheme, Limit: runsLimit}
		if runsStatus != "" {
			filter.Status = []store.RunStatus{store.RunStatus(runsStatus)}
		}
		runs, err := ledger.ListRuns(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}

		if jsonOutput {
			printRunsJSON(runs)
			return nil
		}
		printRunsTable(runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (pending, executing, succeeded, failed)")
	runsCmd.Flags().StringVar(&runsScheme, "scheme", "", "filter by remote-gate scheme")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to show")
}
