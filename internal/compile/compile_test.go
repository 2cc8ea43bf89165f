package compile

import (
	"reflect"
	"testing"

	"github.com/entanglab/dqc/internal/circuit"
	"github.com/entanglab/dqc/internal/partition"
	"github.com/entanglab/dqc/internal/schedule"
)

// renders a schedule set as per-node slice strings for compact comparison.
func render(set schedule.Set) map[string][]string {
	out := map[string][]string{}
	for node, sched := range set {
		for _, slice := range sched {
			out[node] = append(out[node], slice.String())
		}
	}
	return out
}

func compileOps(t *testing.T, ops ...circuit.GateSpec) schedule.Set {
	t.Helper()
	c := circuit.New(nil, nil)
	if err := c.Append(ops...); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	set, err := Compile(c)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	return set
}

func TestCompile_SingleQubitGates(t *testing.T) {
	set := compileOps(t,
		circuit.Single("x", 3, "node_0"),
		circuit.Single("y", 2, "node_0"),
	)
	want := map[string][]string{
		"node_0": {"[x(3), y(2)]"},
	}
	if got := render(set); !reflect.DeepEqual(got, want) {
		t.Errorf("schedules = %v, want %v", got, want)
	}
}

func TestCompile_LocalTwoQubitGates(t *testing.T) {
	set := compileOps(t,
		circuit.Two("CX", 2, "node_0", 3, "node_0"),
		circuit.Two("CX", 1, "node_1", 2, "node_1"),
		circuit.Two("RX", 1, "node_0", 2, "node_0"),
		circuit.Two("RY", 1, "node_1", 2, "node_1"),
	)
	want := map[string][]string{
		"node_0": {"[CX(2,3), RX(1,2)]"},
		"node_1": {"[CX(1,2), RY(1,2)]"},
	}
	if got := render(set); !reflect.DeepEqual(got, want) {
		t.Errorf("schedules = %v, want %v", got, want)
	}
}

func TestCompile_RemoteCatCNOT(t *testing.T) {
	set := compileOps(t,
		circuit.Remote("CNOT", 2, "node_0", 4, "node_1", circuit.SchemeCat),
	)
	want := map[string][]string{
		"node_0": {"[entangle(2,node_1,cat), disentangle_end(2,node_1,cat)]"},
		"node_1": {"[correct(node_0,cat), CNOT(-1,4), disentangle_start(4,node_0,cat)]"},
	}
	if got := render(set); !reflect.DeepEqual(got, want) {
		t.Errorf("schedules = %v, want %v", got, want)
	}
}

func TestCompile_RemoteCatBlock(t *testing.T) {
	g := circuit.Remote("CNOT", 2, "node_0", 4, "node_1", circuit.SchemeCat)
	g.Block = []circuit.GateSpec{
		circuit.Two("CNOT", -1, "node_1", 4, "node_1"),
		circuit.Single("x", 3, "node_1"),
		circuit.Two("CNOT", -1, "node_1", 2, "node_1"),
	}
	set := compileOps(t, g)
	want := map[string][]string{
		"node_0": {"[entangle(2,node_1,cat), disentangle_end(2,node_1,cat)]"},
		"node_1": {"[correct(node_0,cat), CNOT(-1,4), x(3), CNOT(-1,2), disentangle_start(4,node_0,cat)]"},
	}
	if got := render(set); !reflect.DeepEqual(got, want) {
		t.Errorf("schedules = %v, want %v", got, want)
	}
}

func TestCompile_RemoteRiskyTeleportCNOT(t *testing.T) {
	set := compileOps(t,
		circuit.Remote("CNOT", 2, "node_0", 4, "node_1", circuit.SchemeTPRisky),
	)
	want := map[string][]string{
		"node_0": {"[bsm(2,node_1,tp)]"},
		"node_1": {"[correct(node_0,tp), CNOT(-1,4)]"},
	}
	if got := render(set); !reflect.DeepEqual(got, want) {
		t.Errorf("schedules = %v, want %v", got, want)
	}
}

func TestCompile_RemoteSafeTeleportCNOT(t *testing.T) {
	set := compileOps(t,
		circuit.Remote("CNOT", 2, "node_0", 4, "node_1", circuit.SchemeTPSafe),
	)
	want := map[string][]string{
		"node_0": {
			"[bsm(2,node_1,tp)]",
			"[correct4tele_only(node_1,tp), swap(-1,2)]",
		},
		"node_1": {
			"[correct(node_0,tp), CNOT(-1,4)]",
			"[bsm(-1,node_0,tp)]",
		},
	}
	if got := render(set); !reflect.DeepEqual(got, want) {
		t.Errorf("schedules = %v, want %v", got, want)
	}
}

// A cat or risky-teleport gate must not force a slice boundary: a later
// local gate lands in the same slice as the expansion.
func TestCompile_NoBoundaryAfterCat(t *testing.T) {
	set := compileOps(t,
		circuit.Remote("CNOT", 2, "node_0", 4, "node_1", circuit.SchemeCat),
		circuit.Single("h", 1, "node_0"),
		circuit.Single("z", 3, "node_1"),
	)
	if len(set["node_0"]) != 1 {
		t.Errorf("node_0 slices = %d, want 1", len(set["node_0"]))
	}
	if len(set["node_1"]) != 1 {
		t.Errorf("node_1 slices = %d, want 1", len(set["node_1"]))
	}
	last := set["node_0"][0][len(set["node_0"][0])-1]
	if last.String() != "h(1)" {
		t.Errorf("node_0 last primitive = %s, want h(1)", last)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	ops := []circuit.GateSpec{
		circuit.Init("node_0", 0, 1, 2),
		circuit.Init("node_1", 0, 1, 2),
		circuit.Single("h", 2, "node_0"),
		circuit.Remote("CNOT", 2, "node_0", 2, "node_1", circuit.SchemeTPSafe),
		circuit.Remote("CZ", 1, "node_0", 1, "node_1", circuit.SchemeCat),
		circuit.Measure("node_1", 2),
	}
	first := compileOps(t, ops...)
	second := compileOps(t, ops...)
	if !reflect.DeepEqual(render(first), render(second)) {
		t.Error("compiling the same sequence twice gave different schedules")
	}
}

func TestCompile_PlaceholderNodeRejected(t *testing.T) {
	c := circuit.New(nil, nil)
	c.Append(circuit.Single("h", 0, circuit.PlaceholderNode))
	if _, err := Compile(c); err == nil {
		t.Error("Compile() with placeholder node: want error")
	} else if !circuit.IsConfiguration(err) {
		t.Errorf("error %v is not a ConfigurationError", err)
	}
}

func TestCompile_UnknownNodeRejected(t *testing.T) {
	c := circuit.New(nil, nil)
	c.NodeSizes = map[string]int{"node_0": 3, "node_1": 3}
	c.Append(circuit.Single("h", 0, "node_7"))
	if _, err := Compile(c); err == nil {
		t.Error("Compile() with unknown node: want error")
	} else if !circuit.IsConfiguration(err) {
		t.Errorf("error %v is not a ConfigurationError", err)
	}
}

func TestCompile_RemoteGateWithoutScheme(t *testing.T) {
	c := circuit.New(nil, nil)
	c.Append(circuit.Two("CX", 0, "node_0", 0, "node_1"))
	if _, err := Compile(c); err == nil {
		t.Error("Compile() remote gate without scheme: want error")
	} else if !circuit.IsConfiguration(err) {
		t.Errorf("error %v is not a ConfigurationError", err)
	}
}

// GHZ preparation over an even allocation: exactly one cross-node primitive
// pair per node boundary crossed, n-1 two-qubit interactions overall.
func TestCompile_GHZAcrossNodes(t *testing.T) {
	const n, k = 9, 3
	c := circuit.NewMonolithic(n)
	qubits := make([]int, n)
	for i := range qubits {
		qubits[i] = i
	}
	c.Append(circuit.Init(circuit.MonolithicNode, qubits...))
	c.Append(circuit.Single("h", 0, circuit.MonolithicNode))
	for i := 0; i < n-1; i++ {
		c.Append(circuit.Two("CX", i, circuit.MonolithicNode, i+1, circuit.MonolithicNode))
	}

	nodes := []partition.NodeSpec{
		{Name: "node_0", CommQubits: 1},
		{Name: "node_1", CommQubits: 1},
		{Name: "node_2", CommQubits: 1},
	}
	plan, err := partition.FirstComeFirstServed(c, nodes)
	if err != nil {
		t.Fatalf("FirstComeFirstServed() error: %v", err)
	}
	if err := partition.Rewrite(c, plan, circuit.SchemeCat); err != nil {
		t.Fatalf("Rewrite() error: %v", err)
	}
	set, err := Compile(c)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	entangles, corrects, interactions := 0, 0, 0
	for _, sched := range set {
		for _, slice := range sched {
			for _, p := range slice {
				switch p.Type {
				case schedule.PrimRequestEntangle:
					entangles++
					interactions++
				case schedule.PrimCorrect:
					corrects++
				case schedule.PrimLocal:
					if p.Instr == "CX" && len(p.Qubits) == 2 && p.Qubits[0] != schedule.CommQubitPlaceholder {
						interactions++
					}
				}
			}
		}
	}
	if entangles != k-1 {
		t.Errorf("cross-node entangle primitives = %d, want %d (one per boundary)", entangles, k-1)
	}
	if corrects != k-1 {
		t.Errorf("correct primitives = %d, want %d", corrects, k-1)
	}
	if interactions != n-1 {
		t.Errorf("two-qubit interactions = %d, want %d", interactions, n-1)
	}
}
