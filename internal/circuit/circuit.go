// Package circuit holds the data model for distributed quantum circuits: an
// ordered gate list over named quantum registers, annotated with the
// processing stage the circuit has reached on its way from a monolithic
// program to a fully partitioned one.
package circuit

import (
	"fmt"
	"sort"
)

// Stage records what is left to do to a circuit.
type Stage string

const (
	StageMonolithic    Stage = "monolithic"
	StageUnpartitioned Stage = "unpartitioned"
	StagePrepped       Stage = "prepped_for_partitioning"
	StagePartitioned   Stage = "partitioned"
)

// String returns the string representation of the stage.
func (s Stage) String() string { return string(s) }

// Node-name placeholders used before a circuit is partitioned.
const (
	PlaceholderNode = "placeholder"
	MonolithicNode  = "monolithic_processor"
)

// Register is a contiguous qubit-index range in the monolithic address space.
type Register struct {
	Size          int `json:"size"`
	StartingIndex int `json:"starting_index"`
}

// Circuit owns the registers, the native-gate set, and the ordered GateSpec
// sequence of one distributed quantum circuit. The gate list is append-only;
// Lock freezes it entirely. Only the partitioner mutates Stage and NodeSizes.
type Circuit struct {
	QRegs       map[string]Register `json:"qregs"`
	CRegs       map[string]int      `json:"cregs"`
	NativeGates map[string]bool     `json:"native_gates,omitempty"`
	Ops         []GateSpec          `json:"ops"`
	Stage       Stage               `json:"stage"`
	// NodeSizes maps node name to its qubit count (comm qubits included)
	// once the circuit is partitioned.
	NodeSizes map[string]int `json:"node_sizes,omitempty"`
	// DefaultScheme, when set, is the scheme attached to every two-qubit
	// gate that ends up spanning two nodes.
	DefaultScheme Scheme `json:"default_scheme,omitempty"`

	locked bool
}

// New returns an empty circuit over the given quantum registers.
func New(qregs map[string]Register, cregs map[string]int) *Circuit {
	if qregs == nil {
		qregs = map[string]Register{}
	}
	if cregs == nil {
		cregs = map[string]int{}
	}
	return &Circuit{
		QRegs: qregs,
		CRegs: cregs,
		Stage: StageUnpartitioned,
	}
}

// NewMonolithic returns a circuit with a single anonymous register of n
// qubits whose gates all name the monolithic placeholder node.
func NewMonolithic(n int) *Circuit {
	c := New(map[string]Register{"q": {Size: n}}, nil)
	c.Stage = StageMonolithic
	return c
}

// QubitCount returns the total number of data qubits across all registers.
func (c *Circuit) QubitCount() int {
	total := 0
	for _, r := range c.QRegs {
		total += r.Size
	}
	return total
}

// RegNames returns the register names sorted by starting index.
func (c *Circuit) RegNames() []string {
	names := make([]string, 0, len(c.QRegs))
	for name := range c.QRegs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return c.QRegs[names[i]].StartingIndex < c.QRegs[names[j]].StartingIndex
	})
	return names
}

// Append adds a gate to the end of the program. It fails once the circuit is
// locked.
func (c *Circuit) Append(gates ...GateSpec) error {
	if c.locked {
		return fmt.Errorf("circuit is locked")
	}
	c.Ops = append(c.Ops, gates...)
	return nil
}

// Lock freezes the gate list against further appends.
func (c *Circuit) Lock() { c.locked = true }

// Locked reports whether the gate list is frozen.
func (c *Circuit) Locked() bool { return c.locked }

// Relabel overwrites every operand's node field with the given name. It is
// the common step behind the monolithic and prepped-for-partitioning
// conversions.
func (c *Circuit) Relabel(node string) {
	for i := range c.Ops {
		g := &c.Ops[i]
		switch g.Type {
		case GateInit, GateMeasure, GateSingle:
			g.Node = node
		case GateTwo:
			g.NodeA = node
			g.NodeB = node
		}
	}
}

// ConvertToMonolithic marks every gate as owned by the monolithic placeholder
// node.
func (c *Circuit) ConvertToMonolithic() {
	c.Relabel(MonolithicNode)
	c.Stage = StageMonolithic
}

// PrepForPartitioning replaces every node field with the partitioning
// placeholder, flagging that automated partitioning is still to be done.
func (c *Circuit) PrepForPartitioning() {
	c.Relabel(PlaceholderNode)
	c.Stage = StagePrepped
}

// ApplyScheme sets the scheme attached to cross-node two-qubit gates by the
// rewrite step.
func (c *Circuit) ApplyScheme(s Scheme) error {
	if !s.IsValid() {
		return Configf("unknown remote-gate scheme %q", s)
	}
	c.DefaultScheme = s
	return nil
}

// Validate checks the scheme invariant over the whole gate list.
func (c *Circuit) Validate() error {
	for i, g := range c.Ops {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
	}
	return nil
}
