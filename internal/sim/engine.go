package sim

import (
	"context"
	"fmt"
	"math/rand"
)

// Op is one instruction in a quantum program. An op with a non-empty Key is
// a measurement whose outcome appears in the program's output under that
// key.
type Op struct {
	Instr  string `json:"instr"`
	Qubits []int  `json:"qubits"`
	Key    string `json:"key,omitempty"`
}

// Gate returns a gate op.
func Gate(instr string, qubits ...int) Op {
	return Op{Instr: instr, Qubits: qubits}
}

// MeasureOp returns a measurement op whose outcome is reported under key.
func MeasureOp(qubit int, key string) Op {
	return Op{Instr: "measure", Qubits: []int{qubit}, Key: key}
}

// Program is an ordered batch of ops executed atomically against one node's
// quantum memory.
type Program struct {
	Ops []Op `json:"ops"`
}

// Outcomes maps measurement keys to classical bits.
type Outcomes map[string]int

// Engine executes quantum programs on behalf of the node runtimes. The
// engine serializes access to a given physical qubit by construction; the
// runtime never locks around it. A full quantum-state simulator plugs in
// here; the core ships only the trace engine below.
type Engine interface {
	Run(ctx context.Context, node string, p Program) (Outcomes, error)
}

// TraceEngine records every executed program and draws measurement outcomes
// from a seeded source, so whole-fleet executions replay deterministically.
type TraceEngine struct {
	rng      *rand.Rand
	programs map[string][]Program
}

// NewTraceEngine returns a trace engine seeded for reproducible outcomes.
func NewTraceEngine(seed int64) *TraceEngine {
	return &TraceEngine{
		rng:      rand.New(rand.NewSource(seed)),
		programs: map[string][]Program{},
	}
}

// Run records the program and returns one random bit per measurement op.
func (e *TraceEngine) Run(_ context.Context, node string, p Program) (Outcomes, error) {
	e.programs[node] = append(e.programs[node], p)
	out := Outcomes{}
	for _, op := range p.Ops {
		if op.Key == "" {
			continue
		}
		if _, ok := out[op.Key]; ok {
			return nil, fmt.Errorf("duplicate measurement key %q on node %s", op.Key, node)
		}
		out[op.Key] = e.rng.Intn(2)
	}
	return out, nil
}

// Programs returns the programs executed on node, in order.
func (e *TraceEngine) Programs(node string) []Program {
	return e.programs[node]
}

// OpCount returns the total number of ops executed on node.
func (e *TraceEngine) OpCount(node string) int {
	total := 0
	for _, p := range e.programs[node] {
		total += len(p.Ops)
	}
	return total
}
