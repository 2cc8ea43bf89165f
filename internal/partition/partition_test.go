package partition

import (
	"testing"

	"github.com/entanglab/dqc/internal/circuit"
)

func monolithicWithInit(t *testing.T, n int) *circuit.Circuit {
	t.Helper()
	c := circuit.NewMonolithic(n)
	qubits := make([]int, n)
	for i := range qubits {
		qubits[i] = i
	}
	if err := c.Append(circuit.Init(circuit.MonolithicNode, qubits...)); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	return c
}

func roster(comm int, names ...string) []NodeSpec {
	nodes := make([]NodeSpec, len(names))
	for i, name := range names {
		nodes[i] = NodeSpec{Name: name, CommQubits: comm}
	}
	return nodes
}

func TestFirstComeFirstServed_EvenSplit(t *testing.T) {
	c := monolithicWithInit(t, 6)
	plan, err := FirstComeFirstServed(c, roster(2, "node_0", "node_1", "node_2"))
	if err != nil {
		t.Fatalf("FirstComeFirstServed() error: %v", err)
	}
	for node, want := range map[string]int{"node_0": 4, "node_1": 4, "node_2": 4} {
		if got := plan.NodeSizes[node]; got != want {
			t.Errorf("NodeSizes[%s] = %d, want %d", node, got, want)
		}
	}
	// Data qubits start above the comm-qubit slots.
	if loc := plan.Lookup[0]; loc.Node != "node_0" || loc.Index != 2 {
		t.Errorf("Lookup[0] = %+v, want index 2 on node_0", loc)
	}
	if loc := plan.Lookup[3]; loc.Node != "node_1" || loc.Index != 3 {
		t.Errorf("Lookup[3] = %+v, want index 3 on node_1", loc)
	}
	if loc := plan.Lookup[5]; loc.Node != "node_2" || loc.Index != 3 {
		t.Errorf("Lookup[5] = %+v, want index 3 on node_2", loc)
	}
}

// Remainder qubits go to the first nodes in roster order, one each.
func TestFirstComeFirstServed_Remainder(t *testing.T) {
	for _, tc := range []struct {
		n, k      int
		wantData  []int
	}{
		{7, 3, []int{3, 2, 2}},
		{5, 2, []int{3, 2}},
		{8, 3, []int{3, 3, 2}},
		{3, 3, []int{1, 1, 1}},
		{2, 3, []int{1, 1, 0}},
	} {
		c := monolithicWithInit(t, tc.n)
		names := make([]string, tc.k)
		for i := range names {
			names[i] = nodeName(i)
		}
		plan, err := FirstComeFirstServed(c, roster(1, names...))
		if err != nil {
			t.Fatalf("n=%d k=%d: error: %v", tc.n, tc.k, err)
		}
		counts := map[string]int{}
		for _, loc := range plan.Lookup {
			counts[loc.Node]++
		}
		for i, want := range tc.wantData {
			if got := counts[names[i]]; got != want {
				t.Errorf("n=%d k=%d: node %s got %d data qubits, want %d", tc.n, tc.k, names[i], got, want)
			}
		}
	}
}

func nodeName(i int) string {
	return "node_" + string(rune('0'+i))
}

func TestFirstComeFirstServed_RequiresLeadingInit(t *testing.T) {
	c := circuit.NewMonolithic(3)
	c.Append(circuit.Single("h", 0, circuit.MonolithicNode))
	if _, err := FirstComeFirstServed(c, roster(1, "node_0")); err == nil {
		t.Error("missing leading init: want error")
	} else if !circuit.IsConfiguration(err) {
		t.Errorf("error %v is not a ConfigurationError", err)
	}

	c = circuit.NewMonolithic(3)
	c.Append(circuit.Init(circuit.MonolithicNode, 0, 2, 1))
	if _, err := FirstComeFirstServed(c, roster(1, "node_0")); err == nil {
		t.Error("out-of-order init: want error")
	}

	c = circuit.NewMonolithic(3)
	c.Append(circuit.Init(circuit.MonolithicNode, 0, 1))
	if _, err := FirstComeFirstServed(c, roster(1, "node_0")); err == nil {
		t.Error("short init: want error")
	}
}

func TestBisect_OddRemainderToNodeZero(t *testing.T) {
	c := circuit.NewMonolithic(5)
	plan, err := Bisect(c, 2)
	if err != nil {
		t.Fatalf("Bisect() error: %v", err)
	}
	// 5 data + 4 comm = 9 total; node_0 gets the ceiling.
	if plan.NodeSizes["node_0"] != 5 || plan.NodeSizes["node_1"] != 4 {
		t.Errorf("NodeSizes = %v, want node_0:5 node_1:4", plan.NodeSizes)
	}
	if loc := plan.Lookup[0]; loc.Node != "node_0" || loc.Index != 2 {
		t.Errorf("Lookup[0] = %+v, want index 2 on node_0", loc)
	}
	if loc := plan.Lookup[2]; loc.Node != "node_0" || loc.Index != 4 {
		t.Errorf("Lookup[2] = %+v, want index 4 on node_0", loc)
	}
	// First qubit past node_0's range lands above node_1's comm slots.
	if loc := plan.Lookup[3]; loc.Node != "node_1" || loc.Index != 2 {
		t.Errorf("Lookup[3] = %+v, want index 2 on node_1", loc)
	}
	if loc := plan.Lookup[4]; loc.Node != "node_1" || loc.Index != 3 {
		t.Errorf("Lookup[4] = %+v, want index 3 on node_1", loc)
	}
}

func TestRewrite_AttachesSchemeOnlyAcrossNodes(t *testing.T) {
	c := monolithicWithInit(t, 4)
	c.Append(
		circuit.Single("h", 0, circuit.MonolithicNode),
		circuit.Two("CX", 0, circuit.MonolithicNode, 1, circuit.MonolithicNode),
		circuit.Two("CX", 1, circuit.MonolithicNode, 2, circuit.MonolithicNode),
	)
	plan, err := FirstComeFirstServed(c, roster(1, "node_0", "node_1"))
	if err != nil {
		t.Fatalf("FirstComeFirstServed() error: %v", err)
	}
	if err := Rewrite(c, plan, circuit.SchemeCat); err != nil {
		t.Fatalf("Rewrite() error: %v", err)
	}

	if c.Stage != circuit.StagePartitioned {
		t.Errorf("Stage = %q, want partitioned", c.Stage)
	}
	// Leading init expands to one per node covering comm + data slots.
	if c.Ops[0].Type != circuit.GateInit || c.Ops[0].Node != "node_0" || len(c.Ops[0].Qubits) != 3 {
		t.Errorf("ops[0] = %+v, want init of 3 qubits on node_0", c.Ops[0])
	}
	if c.Ops[1].Type != circuit.GateInit || c.Ops[1].Node != "node_1" || len(c.Ops[1].Qubits) != 3 {
		t.Errorf("ops[1] = %+v, want init of 3 qubits on node_1", c.Ops[1])
	}

	// h q0 -> node_0 index 1 (one comm slot).
	h := c.Ops[2]
	if h.Qubit != 1 || h.Node != "node_0" {
		t.Errorf("h rewritten to %d on %s, want 1 on node_0", h.Qubit, h.Node)
	}
	// CX q0,q1 stays local to node_0: no scheme.
	local := c.Ops[3]
	if local.NodeA != "node_0" || local.NodeB != "node_0" {
		t.Fatalf("cx0 nodes = %s,%s, want both node_0", local.NodeA, local.NodeB)
	}
	if local.Scheme != "" {
		t.Errorf("local gate scheme = %q, want empty", local.Scheme)
	}
	// CX q1,q2 crosses the cut: scheme attached.
	remote := c.Ops[4]
	if remote.NodeA != "node_0" || remote.NodeB != "node_1" {
		t.Fatalf("cx1 nodes = %s,%s, want node_0,node_1", remote.NodeA, remote.NodeB)
	}
	if remote.Scheme != circuit.SchemeCat {
		t.Errorf("remote gate scheme = %q, want cat", remote.Scheme)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() after rewrite: %v", err)
	}
}

func TestRewrite_RegisterOffsets(t *testing.T) {
	c := circuit.New(map[string]circuit.Register{
		"a": {Size: 2},
		"b": {Size: 2, StartingIndex: 2},
	}, nil)
	c.Append(
		circuit.Init(circuit.MonolithicNode, 0, 1, 2, 3),
		circuit.Two("CX", 1, "a", 0, "b"),
	)
	plan, err := FirstComeFirstServed(c, roster(1, "node_0", "node_1"))
	if err != nil {
		t.Fatalf("FirstComeFirstServed() error: %v", err)
	}
	if err := Rewrite(c, plan, circuit.SchemeTPSafe); err != nil {
		t.Fatalf("Rewrite() error: %v", err)
	}
	g := c.Ops[2]
	// a[1] is global 1 -> node_0 local 2; b[0] is global 2 -> node_1 local 1.
	if g.QubitA != 2 || g.NodeA != "node_0" || g.QubitB != 1 || g.NodeB != "node_1" {
		t.Errorf("rewritten gate = %+v, want 2@node_0 x 1@node_1", g)
	}
}

func TestRewrite_MissingSchemeForCrossNodeGate(t *testing.T) {
	c := monolithicWithInit(t, 2)
	c.Append(circuit.Two("CX", 0, circuit.MonolithicNode, 1, circuit.MonolithicNode))
	plan, err := FirstComeFirstServed(c, roster(1, "node_0", "node_1"))
	if err != nil {
		t.Fatalf("FirstComeFirstServed() error: %v", err)
	}
	if err := Rewrite(c, plan, ""); err == nil {
		t.Error("Rewrite() with no scheme over a cut: want error")
	} else if !circuit.IsConfiguration(err) {
		t.Errorf("error %v is not a ConfigurationError", err)
	}
}

func TestRewrite_OutOfRangeQubit(t *testing.T) {
	c := monolithicWithInit(t, 2)
	c.Append(circuit.Single("x", 7, circuit.MonolithicNode))
	plan, err := FirstComeFirstServed(c, roster(1, "node_0"))
	if err != nil {
		t.Fatalf("FirstComeFirstServed() error: %v", err)
	}
	if err := Rewrite(c, plan, circuit.SchemeCat); err == nil {
		t.Error("Rewrite() with out-of-range qubit: want error")
	} else if !circuit.IsConfiguration(err) {
		t.Errorf("error %v is not a ConfigurationError", err)
	}
}
