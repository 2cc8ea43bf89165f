// Package compile turns a node-qualified gate sequence into per-node
// execution schedules. Operations are packed greedily: every node keeps one
// open time slice that local gates append to, and a cross-node two-qubit
// gate expands into the communication primitives of its remote-gate scheme.
// Only the safe teleportation scheme forces a slice boundary: its second
// round must not be batched with anything scheduled before the
// acknowledgment.
package compile

import (
	"fmt"

	"github.com/entanglab/dqc/internal/circuit"
	"github.com/entanglab/dqc/internal/schedule"
)

// InstrSwap is the local instruction emitted to restore a teleported value
// into its home qubit after the acknowledgment round.
const InstrSwap = "swap"

// Local instruction names for the non-gate GateSpec variants.
const (
	InstrInit    = "init"
	InstrMeasure = "measure"
)

// Compile builds one NodeSchedule per node from the circuit's gate sequence.
// The sequence must already be node-qualified; a monolithic circuit compiles
// the same way, with every gate owned by its single placeholder node.
// Compiling the same sequence twice yields identical schedules.
func Compile(c *circuit.Circuit) (schedule.Set, error) {
	b := schedule.NewBuilder()
	for i, g := range c.Ops {
		if err := addGate(b, c, g); err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
	}
	return b.Build(), nil
}

func addGate(b *schedule.Builder, c *circuit.Circuit, g circuit.GateSpec) error {
	switch g.Type {
	case circuit.GateInit:
		if err := checkNode(c, g.Node); err != nil {
			return err
		}
		b.Append(g.Node, schedule.Local(InstrInit, g.Qubits...))
		return nil
	case circuit.GateMeasure:
		if err := checkNode(c, g.Node); err != nil {
			return err
		}
		b.Append(g.Node, schedule.Local(InstrMeasure, g.Qubits...))
		return nil
	case circuit.GateSingle:
		if err := checkNode(c, g.Node); err != nil {
			return err
		}
		b.Append(g.Node, schedule.Local(g.Instr, g.Qubit))
		return nil
	case circuit.GateTwo:
		if err := g.Validate(); err != nil {
			return err
		}
		if err := checkNode(c, g.NodeA); err != nil {
			return err
		}
		if err := checkNode(c, g.NodeB); err != nil {
			return err
		}
		if !g.IsRemote() {
			b.Append(g.NodeA, schedule.Local(g.Instr, g.QubitA, g.QubitB))
			return nil
		}
		return addRemote(b, g)
	}
	return circuit.Configf("unknown gate type %q", g.Type)
}

// addRemote expands a cross-node two-qubit gate into the primitives of its
// scheme, appended to the currently open slice on both ends.
func addRemote(b *schedule.Builder, g circuit.GateSpec) error {
	b.Ensure(g.NodeA)
	b.Ensure(g.NodeB)
	block := localBlock(g)
	switch g.Scheme {
	case circuit.SchemeCat:
		b.Append(g.NodeA,
			schedule.RequestEntangle(g.QubitA, g.NodeB, schedule.KindCat),
			schedule.DisentangleEnd(g.QubitA, g.NodeB, schedule.KindCat),
		)
		b.Append(g.NodeB, schedule.Correct(g.NodeA, schedule.KindCat))
		b.Append(g.NodeB, block...)
		b.Append(g.NodeB, schedule.DisentangleStart(g.QubitB, g.NodeA, schedule.KindCat))
	case circuit.SchemeTPRisky:
		b.Append(g.NodeA, schedule.BellMeasure(g.QubitA, g.NodeB, schedule.KindTP))
		b.Append(g.NodeB, schedule.Correct(g.NodeA, schedule.KindTP))
		b.Append(g.NodeB, block...)
	case circuit.SchemeTPSafe:
		// First round is tp_risky; the teleport back then needs fresh
		// slices on both ends so nothing later on the same qubit is
		// batched ahead of the acknowledgment.
		b.Append(g.NodeA, schedule.BellMeasure(g.QubitA, g.NodeB, schedule.KindTP))
		b.Append(g.NodeB, schedule.Correct(g.NodeA, schedule.KindTP))
		b.Append(g.NodeB, block...)
		b.CloseSlice(g.NodeA)
		b.CloseSlice(g.NodeB)
		b.Append(g.NodeB, schedule.BellMeasure(schedule.CommQubitPlaceholder, g.NodeA, schedule.KindTP))
		b.Append(g.NodeA,
			schedule.CorrectTeleportOnly(g.NodeB, schedule.KindTP),
			schedule.Local(InstrSwap, schedule.CommQubitPlaceholder, g.QubitA),
		)
	default:
		return circuit.Configf("remote gate %s has unknown scheme %q", g.Instr, g.Scheme)
	}
	return nil
}

// localBlock returns the local interaction the target node runs once the
// entangled surrogate is available: the caller-supplied block when present,
// otherwise the gate itself with the comm-qubit placeholder as first operand.
func localBlock(g circuit.GateSpec) []schedule.Primitive {
	if len(g.Block) == 0 {
		return []schedule.Primitive{schedule.Local(g.Instr, schedule.CommQubitPlaceholder, g.QubitB)}
	}
	prims := make([]schedule.Primitive, 0, len(g.Block))
	for _, bg := range g.Block {
		switch bg.Type {
		case circuit.GateSingle:
			prims = append(prims, schedule.Local(bg.Instr, bg.Qubit))
		case circuit.GateTwo:
			prims = append(prims, schedule.Local(bg.Instr, bg.QubitA, bg.QubitB))
		}
	}
	return prims
}

// checkNode rejects gates that still reference a placeholder node and, once
// the circuit carries a node-size map, any node outside the roster.
func checkNode(c *circuit.Circuit, node string) error {
	if node == "" || node == circuit.PlaceholderNode {
		return circuit.Configf("gate references unpartitioned placeholder node")
	}
	if len(c.NodeSizes) > 0 {
		if _, ok := c.NodeSizes[node]; !ok {
			return circuit.Configf("gate references unknown node %q", node)
		}
	}
	return nil
}
