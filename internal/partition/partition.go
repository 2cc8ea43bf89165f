// Package partition assigns the qubits of a monolithic circuit to QPU nodes
// and rewrites the circuit's operands through the resulting lookup. Low
// indices on every node are reserved for the comm qubits that mediate remote
// gates, so a data qubit's node-local index is always offset by the node's
// comm-qubit count.
package partition

import (
	"fmt"

	"github.com/entanglab/dqc/internal/circuit"
)

// NodeSpec names one QPU in the roster and the number of comm-qubit slots it
// reserves.
type NodeSpec struct {
	Name       string
	CommQubits int
}

// Location is the post-partition home of one monolithic qubit index.
type Location struct {
	Index int    `json:"index"`
	Node  string `json:"node"`
}

// Plan is the outcome of an allocation: the old-index lookup plus the
// resulting per-node qubit counts (comm qubits included), in roster order.
type Plan struct {
	Lookup    map[int]Location
	NodeSizes map[string]int
	Roster    []string
}

// FirstComeFirstServed allocates the circuit's qubits to the roster as evenly
// as possible: N div K per node, with the first N mod K nodes, in roster
// order, receiving one extra. The circuit's first gate must be an Init whose
// operand list enumerates every qubit index 0..N-1 exactly once, in ascending
// order.
func FirstComeFirstServed(c *circuit.Circuit, nodes []NodeSpec) (*Plan, error) {
	if len(nodes) == 0 {
		return nil, circuit.Configf("first-come-first-served allocation needs at least one node")
	}
	n := c.QubitCount()
	if n == 0 {
		return nil, circuit.Configf("circuit has no qubits to allocate")
	}
	if err := checkLeadingInit(c, n); err != nil {
		return nil, err
	}

	base := n / len(nodes)
	extra := n % len(nodes)

	plan := &Plan{
		Lookup:    make(map[int]Location, n),
		NodeSizes: make(map[string]int, len(nodes)),
	}
	next := 0
	for i, node := range nodes {
		count := base
		if i < extra {
			count++
		}
		for local := 0; local < count; local++ {
			plan.Lookup[next] = Location{Index: node.CommQubits + local, Node: node.Name}
			next++
		}
		plan.NodeSizes[node.Name] = count + node.CommQubits
		plan.Roster = append(plan.Roster, node.Name)
	}
	return plan, nil
}

// Bisect splits a circuit in half across node_0 and node_1, giving any odd
// remainder qubit to node_0 and reserving commQubitsPerNode low indices on
// each node for comm qubits.
func Bisect(c *circuit.Circuit, commQubitsPerNode int) (*Plan, error) {
	if commQubitsPerNode < 0 {
		return nil, circuit.Configf("comm qubits per node must be non-negative, got %d", commQubitsPerNode)
	}
	n := c.QubitCount()
	if n == 0 {
		return nil, circuit.Configf("circuit has no qubits to allocate")
	}

	total := n + 2*commQubitsPerNode
	node0Size := (total + 1) / 2
	node1Size := total - node0Size

	plan := &Plan{
		Lookup:    make(map[int]Location, n),
		NodeSizes: map[string]int{"node_0": node0Size, "node_1": node1Size},
		Roster:    []string{"node_0", "node_1"},
	}
	for old := 0; old < n; old++ {
		updated := old + commQubitsPerNode
		if updated < node0Size {
			plan.Lookup[old] = Location{Index: updated, Node: "node_0"}
		} else {
			plan.Lookup[old] = Location{Index: updated - node0Size + commQubitsPerNode, Node: "node_1"}
		}
	}
	return plan, nil
}

// checkLeadingInit verifies the circuit opens with an Init enumerating every
// qubit index 0..n-1 exactly once, in ascending order.
func checkLeadingInit(c *circuit.Circuit, n int) error {
	if len(c.Ops) == 0 || c.Ops[0].Type != circuit.GateInit {
		return circuit.Configf("circuit must begin with an init of all qubits")
	}
	init := c.Ops[0]
	if len(init.Qubits) != n {
		return circuit.Configf("leading init covers %d qubits, want %d", len(init.Qubits), n)
	}
	for i, q := range init.Qubits {
		if q != i {
			return circuit.Configf("leading init must enumerate qubits 0..%d in ascending order, got %d at position %d", n-1, q, i)
		}
	}
	return nil
}

// Rewrite replaces every operand's (index, register-or-node) pair through the
// plan's lookup, expands the leading Init into one per-node Init covering
// each node's full range, and attaches scheme to every two-qubit gate whose
// rewritten node names differ. It records the node sizes on the circuit and
// marks it partitioned.
func Rewrite(c *circuit.Circuit, plan *Plan, scheme circuit.Scheme) error {
	if c.Stage == circuit.StagePartitioned {
		return circuit.Configf("circuit is already partitioned")
	}
	if scheme != "" && !scheme.IsValid() {
		return circuit.Configf("unknown remote-gate scheme %q", scheme)
	}

	rewritten := make([]circuit.GateSpec, 0, len(c.Ops)+len(plan.Roster))
	for i, g := range c.Ops {
		if i == 0 && g.Type == circuit.GateInit && len(g.Qubits) == c.QubitCount() {
			// The monolithic init becomes one init per node spanning the
			// node's whole range, comm qubits included.
			for _, node := range plan.Roster {
				size := plan.NodeSizes[node]
				qubits := make([]int, size)
				for q := range qubits {
					qubits[q] = q
				}
				rewritten = append(rewritten, circuit.Init(node, qubits...))
			}
			continue
		}
		out, err := rewriteGate(c, plan, scheme, g)
		if err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		rewritten = append(rewritten, out...)
	}

	c.Ops = rewritten
	c.NodeSizes = make(map[string]int, len(plan.NodeSizes))
	for node, size := range plan.NodeSizes {
		c.NodeSizes[node] = size
	}
	c.Stage = circuit.StagePartitioned
	if scheme != "" {
		c.DefaultScheme = scheme
	}
	return nil
}

func rewriteGate(c *circuit.Circuit, plan *Plan, scheme circuit.Scheme, g circuit.GateSpec) ([]circuit.GateSpec, error) {
	switch g.Type {
	case circuit.GateInit, circuit.GateMeasure:
		return rewriteQubitList(c, plan, g)
	case circuit.GateSingle:
		loc, err := resolve(c, plan, g.Qubit, g.Node)
		if err != nil {
			return nil, err
		}
		g.Qubit = loc.Index
		g.Node = loc.Node
		return []circuit.GateSpec{g}, nil
	case circuit.GateTwo:
		locA, err := resolve(c, plan, g.QubitA, g.NodeA)
		if err != nil {
			return nil, err
		}
		locB, err := resolve(c, plan, g.QubitB, g.NodeB)
		if err != nil {
			return nil, err
		}
		g.QubitA, g.NodeA = locA.Index, locA.Node
		g.QubitB, g.NodeB = locB.Index, locB.Node
		if g.NodeA != g.NodeB {
			if scheme == "" {
				return nil, circuit.Configf("gate %s spans %s and %s but no scheme was supplied", g.Instr, g.NodeA, g.NodeB)
			}
			g.Scheme = scheme
		} else {
			g.Scheme = ""
		}
		return []circuit.GateSpec{g}, nil
	}
	return nil, circuit.Configf("unknown gate type %q", g.Type)
}

// rewriteQubitList maps a multi-qubit Init or Measure, splitting it per node
// when the rewritten qubits land on more than one.
func rewriteQubitList(c *circuit.Circuit, plan *Plan, g circuit.GateSpec) ([]circuit.GateSpec, error) {
	byNode := map[string][]int{}
	var order []string
	for _, q := range g.Qubits {
		loc, err := resolve(c, plan, q, g.Node)
		if err != nil {
			return nil, err
		}
		if _, ok := byNode[loc.Node]; !ok {
			order = append(order, loc.Node)
		}
		byNode[loc.Node] = append(byNode[loc.Node], loc.Index)
	}
	out := make([]circuit.GateSpec, 0, len(order))
	for _, node := range order {
		spec := g
		spec.Node = node
		spec.Qubits = byNode[node]
		out = append(out, spec)
	}
	return out, nil
}

// resolve maps an operand's (index, register-or-node) pair to its allocated
// location. A register name offsets the index into the monolithic address
// space first; the partitioning placeholder and monolithic tags pass the
// index through unchanged.
func resolve(c *circuit.Circuit, plan *Plan, index int, regOrNode string) (Location, error) {
	global := index
	if reg, ok := c.QRegs[regOrNode]; ok {
		if index < 0 || index >= reg.Size {
			return Location{}, circuit.Configf("qubit %d out of range for register %s (size %d)", index, regOrNode, reg.Size)
		}
		global = reg.StartingIndex + index
	}
	loc, ok := plan.Lookup[global]
	if !ok {
		return Location{}, circuit.Configf("qubit index %d has no allocation", global)
	}
	return loc, nil
}
