package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/entanglab/dqc/internal/link"
	"github.com/entanglab/dqc/internal/schedule"
	"github.com/entanglab/dqc/internal/sim"
)

// CoordinatorOptions configures a fleet run.
type CoordinatorOptions struct {
	// CommQubits is the per-node comm-qubit count. Defaults to 1.
	CommQubits int
	Retry      RetryPolicy
	Logger     *slog.Logger
}

// Report summarizes a completed fleet run.
type Report struct {
	// Outcomes maps node name to that node's data-measurement bits.
	Outcomes map[string]sim.Outcomes `json:"outcomes"`
	// Elapsed is the virtual time the run consumed.
	Elapsed time.Duration `json:"elapsed"`
}

// Coordinator builds one runtime per scheduled node, starts them together
// at virtual time zero, and drives the clock until the fleet finishes.
type Coordinator struct {
	clock  *sim.Clock
	link   link.Layer
	engine sim.Engine
	opts   CoordinatorOptions
	logger *slog.Logger
}

// NewCoordinator wires a coordinator over the given collaborators.
func NewCoordinator(clock *sim.Clock, lk link.Layer, engine sim.Engine, opts CoordinatorOptions) *Coordinator {
	if opts.CommQubits <= 0 {
		opts.CommQubits = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		clock:  clock,
		link:   lk,
		engine: engine,
		opts:   opts,
		logger: opts.Logger,
	}
}

// Run executes every node schedule in set to completion. It returns the
// first node error in roster order; a node left suspended after the event
// queue drains is reported as stalled.
func (c *Coordinator) Run(ctx context.Context, set schedule.Set) (*Report, error) {
	names := set.Nodes()
	nodes := make([]*Node, 0, len(names))
	remaining := len(names)
	for _, name := range names {
		n := NewNode(NodeOptions{
			Name:       name,
			Slices:     set[name],
			CommQubits: c.opts.CommQubits,
			Clock:      c.clock,
			Link:       c.link,
			Engine:     c.engine,
			Logger:     c.logger,
			Retry:      c.opts.Retry,
			OnDone: func(n *Node) {
				remaining--
				c.logger.Debug("node finished",
					"node", n.Name(), "state", string(n.State()), "remaining", remaining)
				// Lets an external-mode clock drain and return.
				if remaining == 0 {
					c.clock.Stop()
				}
			},
		})
		if err := c.link.Register(name, n); err != nil {
			return nil, fmt.Errorf("registering node %s: %w", name, err)
		}
		nodes = append(nodes, n)
	}

	c.logger.Info("starting fleet", "nodes", len(nodes))
	for _, n := range nodes {
		n.Start(ctx)
	}
	if err := c.clock.Run(ctx); err != nil {
		return nil, err
	}

	report := &Report{
		Outcomes: map[string]sim.Outcomes{},
		Elapsed:  c.clock.Now(),
	}
	for _, n := range nodes {
		report.Outcomes[n.Name()] = n.Outcomes()
	}
	for _, n := range nodes {
		if err := n.Err(); err != nil {
			return report, err
		}
	}
	for _, n := range nodes {
		if n.State() != StateDone {
			return report, fmt.Errorf("node %s stalled in state %s", n.Name(), n.State())
		}
	}
	c.logger.Info("fleet complete", "elapsed", report.Elapsed)
	return report, nil
}
