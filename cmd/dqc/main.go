// Command dqc compiles monolithic quantum circuits into distributed
// per-node schedules and executes them across a simulated QPU fleet.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/entanglab/dqc/internal/config"
	"github.com/entanglab/dqc/internal/ui"
)

var (
	fleetFile  string
	jsonOutput bool
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dqc",
	Short: "Distributed quantum circuit compiler and runtime",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if fleetFile != "" {
			cfg.FleetFile = fleetFile
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&fleetFile, "fleet", "", "fleet file path (default $DQC_FLEET_FILE or fleet.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(brokerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
