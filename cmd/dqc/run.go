package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/entanglab/dqc/internal/config"
	"github.com/entanglab/dqc/internal/idgen"
	"github.com/entanglab/dqc/internal/link"
	"github.com/entanglab/dqc/internal/runtime"
	"github.com/entanglab/dqc/internal/schedule"
	"github.com/entanglab/dqc/internal/sim"
	"github.com/entanglab/dqc/internal/store"
	"github.com/entanglab/dqc/internal/store/postgres"
)

var (
	runScheme      string
	runPartitioner string
	runName        string
	runSeed        int64
)

var runCmd = &cobra.Command{
	Use:   "run <circuit.qasm>",
	Short: "Compile a circuit and execute it across the fleet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, fleet, err := compileFromFile(args[0], runScheme, runPartitioner, runName)
		if err != nil {
			return err
		}
		return executeDocument(cmd.Context(), doc, fleet)
	},
}

func init() {
	runCmd.Flags().StringVar(&runScheme, "scheme", "", "remote-gate scheme (default from fleet file)")
	runCmd.Flags().StringVar(&runPartitioner, "partitioner", "fcfs", "allocation strategy (fcfs, bisect)")
	runCmd.Flags().StringVar(&runName, "name", "", "run name (default circuit file stem)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "measurement-outcome seed")
}

func executeDocument(ctx context.Context, doc *schedule.Document, fleet *config.Fleet) error {
	var clock *sim.Clock
	var layer link.Layer
	if cfg.NATSURL != "" {
		clock = sim.NewExternalClock()
		nl, err := link.NewNATSLayer(cfg.NATSURL, clock)
		if err != nil {
			return err
		}
		defer nl.Close()
		layer = nl
	} else {
		clock = sim.NewClock()
		mem := link.NewMemory(clock, link.MemoryOptions{
			ClassicalLatency:    fleet.Link.ClassicalLatency.Duration,
			EntanglementLatency: fleet.Link.EntanglementLatency.Duration,
			FailureProb:         fleet.Link.FailureProb,
			Seed:                fleet.Link.Seed,
		})
		defer mem.Close()
		layer = mem
	}

	commQubits := 0
	for _, n := range fleet.Nodes {
		if n.CommQubits > commQubits {
			commQubits = n.CommQubits
		}
	}

	engine := sim.NewTraceEngine(runSeed)
	coord := runtime.NewCoordinator(clock, layer, engine, runtime.CoordinatorOptions{
		CommQubits: commQubits,
		Retry: runtime.RetryPolicy{
			MaxAttempts: fleet.Retry.MaxAttempts,
			Backoff:     fleet.Retry.Backoff.Duration,
		},
		Logger: slog.Default(),
	})

	ledger, run, err := openLedger(ctx, doc)
	if err != nil {
		return err
	}
	if ledger != nil {
		defer ledger.Close()
	}

	report, runErr := coord.Run(ctx, doc.Schedules)
	if ledger != nil {
		if err := closeLedger(ctx, ledger, run, report, runErr); err != nil {
			slog.Warn("recording run", "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}
	printReport(run, report)
	return nil
}

// openLedger records the run as executing when a database is configured.
func openLedger(ctx context.Context, doc *schedule.Document) (store.Store, *store.Run, error) {
	id, err := idgen.NewRunID()
	if err != nil {
		return nil, nil, err
	}
	primitives := 0
	for _, sched := range doc.Schedules {
		primitives += sched.Primitives()
	}
	run := &store.Run{
		ID:         id,
		Name:       doc.Name,
		Scheme:     doc.Scheme,
		Status:     store.RunExecuting,
		Nodes:      len(doc.Schedules),
		Primitives: primitives,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if data, err := json.Marshal(doc); err == nil {
		run.Document = data
	}

	if cfg.DatabaseURL == "" {
		return nil, run, nil
	}
	ledger, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("opening run ledger: %w", err)
	}
	if err := ledger.CreateRun(ctx, run); err != nil {
		ledger.Close()
		return nil, nil, fmt.Errorf("recording run: %w", err)
	}
	return ledger, run, nil
}

func closeLedger(ctx context.Context, ledger store.Store, run *store.Run, report *runtime.Report, runErr error) error {
	run.UpdatedAt = time.Now().UTC()
	if runErr != nil {
		run.Status = store.RunFailed
		run.Error = runErr.Error()
	} else {
		run.Status = store.RunSucceeded
	}
	if report != nil {
		run.Elapsed = report.Elapsed
		for node := range report.Outcomes {
			event := &store.Event{
				RunID:     run.ID,
				Node:      node,
				Kind:      "state_change",
				Detail:    string(run.Status),
				At:        report.Elapsed,
				CreatedAt: time.Now().UTC(),
			}
			if err := ledger.RecordEvent(ctx, event); err != nil {
				return err
			}
		}
	}
	return ledger.UpdateRun(ctx, run)
}
