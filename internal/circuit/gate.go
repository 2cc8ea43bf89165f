package circuit

// GateType discriminates the GateSpec variants.
type GateType string

const (
	GateInit    GateType = "init"
	GateMeasure GateType = "measure"
	GateSingle  GateType = "single"
	GateTwo     GateType = "two"
)

// String returns the string representation of the gate type.
func (t GateType) String() string { return string(t) }

// GateSpec is one operation in a circuit's program order. Which fields are
// meaningful depends on Type:
//
//   - GateInit, GateMeasure: Qubits and Node.
//   - GateSingle: Instr, Qubit, and Node.
//   - GateTwo: Instr, QubitA/NodeA, QubitB/NodeB, plus an optional Block of
//     local gates to run on NodeB in place of the default local interaction.
//     Scheme is meaningful only when the two node names differ.
//
// Before partitioning the node fields hold quantum-register names (or the
// partitioning placeholder); afterwards they hold node names and qubit
// indices are node-local.
type GateSpec struct {
	Type   GateType   `json:"type"`
	Instr  string     `json:"instr,omitempty"`
	Qubit  int        `json:"qubit,omitempty"`
	Qubits []int      `json:"qubits,omitempty"`
	Node   string     `json:"node,omitempty"`
	QubitA int        `json:"qubit_a,omitempty"`
	NodeA  string     `json:"node_a,omitempty"`
	QubitB int        `json:"qubit_b,omitempty"`
	NodeB  string     `json:"node_b,omitempty"`
	Scheme Scheme     `json:"scheme,omitempty"`
	Block  []GateSpec `json:"block,omitempty"`
}

// Init returns an initialisation of the given qubits on node.
func Init(node string, qubits ...int) GateSpec {
	return GateSpec{Type: GateInit, Node: node, Qubits: qubits}
}

// Measure returns a measurement of the given qubits on node.
func Measure(node string, qubits ...int) GateSpec {
	return GateSpec{Type: GateMeasure, Node: node, Qubits: qubits}
}

// Single returns a single-qubit gate.
func Single(instr string, qubit int, node string) GateSpec {
	return GateSpec{Type: GateSingle, Instr: instr, Qubit: qubit, Node: node}
}

// Two returns a two-qubit gate. The scheme, if any, is attached later by the
// partitioner's rewrite step.
func Two(instr string, qubitA int, nodeA string, qubitB int, nodeB string) GateSpec {
	return GateSpec{
		Type:   GateTwo,
		Instr:  instr,
		QubitA: qubitA, NodeA: nodeA,
		QubitB: qubitB, NodeB: nodeB,
	}
}

// Remote returns a cross-node two-qubit gate with an explicit scheme.
func Remote(instr string, qubitA int, nodeA string, qubitB int, nodeB string, scheme Scheme) GateSpec {
	g := Two(instr, qubitA, nodeA, qubitB, nodeB)
	g.Scheme = scheme
	return g
}

// IsRemote reports whether the gate spans two distinct nodes.
func (g GateSpec) IsRemote() bool {
	return g.Type == GateTwo && g.NodeA != g.NodeB
}

// Validate checks the scheme invariant: a two-qubit gate carries a scheme iff
// its two node names differ, and any scheme present is a known value.
func (g GateSpec) Validate() error {
	if g.Type != GateTwo {
		if g.Scheme != "" {
			return Configf("%s gate must not carry a scheme", g.Type)
		}
		return nil
	}
	if g.IsRemote() {
		if g.Scheme == "" {
			return Configf("remote gate %s %s:%d-%s:%d has no scheme", g.Instr, g.NodeA, g.QubitA, g.NodeB, g.QubitB)
		}
		if !g.Scheme.IsValid() {
			return Configf("remote gate %s has unknown scheme %q", g.Instr, g.Scheme)
		}
		return nil
	}
	if g.Scheme != "" {
		return Configf("local gate %s on %s must not carry a scheme", g.Instr, g.NodeA)
	}
	return nil
}
