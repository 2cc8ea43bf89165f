package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/entanglab/dqc/internal/config"
	"github.com/entanglab/dqc/internal/link"
)

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Run the entanglement broker for a NATS-backed fleet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.NATSURL == "" {
			return fmt.Errorf("DQC_NATS_URL is not set")
		}
		fleet, err := config.LoadFleet(cfg.FleetFile)
		if err != nil {
			return fmt.Errorf("loading fleet file: %w", err)
		}

		broker, err := link.NewBroker(cfg.NATSURL, link.BrokerOptions{
			FailureProb: fleet.Link.FailureProb,
			Seed:        fleet.Link.Seed,
		})
		if err != nil {
			return err
		}
		defer broker.Close()

		slog.Info("broker serving", "url", cfg.NATSURL, "failure_prob", fleet.Link.FailureProb)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		slog.Info("broker stopping")
		return nil
	},
}
