// Package schedule defines the compiled form of a distributed quantum
// circuit: one NodeSchedule per node, each an ordered list of TimeSlices,
// each slice an ordered list of Primitives executed as one contiguous batch
// between cross-node synchronization points.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CommKind names the communication protocol family a primitive belongs to.
// The two gate-teleportation schemes compile to the same "tp" primitives;
// they differ only in whether an acknowledgment round follows.
type CommKind string

const (
	KindCat CommKind = "cat"
	KindTP  CommKind = "tp"
)

// PrimitiveType discriminates the Primitive variants.
type PrimitiveType string

const (
	PrimLocal               PrimitiveType = "local"
	PrimRequestEntangle     PrimitiveType = "entangle"
	PrimCorrect             PrimitiveType = "correct"
	PrimDisentangleStart    PrimitiveType = "disentangle_start"
	PrimDisentangleEnd      PrimitiveType = "disentangle_end"
	PrimBellMeasure         PrimitiveType = "bsm"
	PrimCorrectTeleportOnly PrimitiveType = "correct4tele_only"
)

// CommQubitPlaceholder marks a qubit operand that resolves at runtime to the
// comm qubit claimed by the preceding correction step.
const CommQubitPlaceholder = -1

// Primitive is one node-local instruction in a compiled schedule. Local ops
// carry Instr and Qubits; communication primitives carry Partner and Kind,
// plus Qubit where the protocol step acts on a named qubit.
type Primitive struct {
	Type    PrimitiveType `json:"type"`
	Instr   string        `json:"instr,omitempty"`
	Qubits  []int         `json:"qubits,omitempty"`
	Qubit   int           `json:"qubit,omitempty"`
	Partner string        `json:"partner,omitempty"`
	Kind    CommKind      `json:"kind,omitempty"`
}

// Local returns a local gate, initialisation, or measurement primitive.
func Local(instr string, qubits ...int) Primitive {
	return Primitive{Type: PrimLocal, Instr: instr, Qubits: qubits}
}

// RequestEntangle returns the entangling half of a cat block.
func RequestEntangle(qubit int, partner string, kind CommKind) Primitive {
	return Primitive{Type: PrimRequestEntangle, Qubit: qubit, Partner: partner, Kind: kind}
}

// Correct returns a step that waits for the partner's measurement outcome and
// applies the implied correction to the local comm qubit.
func Correct(partner string, kind CommKind) Primitive {
	return Primitive{Type: PrimCorrect, Partner: partner, Kind: kind}
}

// DisentangleStart returns the measurement that begins unwinding a cat state.
func DisentangleStart(qubit int, partner string, kind CommKind) Primitive {
	return Primitive{Type: PrimDisentangleStart, Qubit: qubit, Partner: partner, Kind: kind}
}

// DisentangleEnd returns the correction that finishes unwinding a cat state.
func DisentangleEnd(qubit int, partner string, kind CommKind) Primitive {
	return Primitive{Type: PrimDisentangleEnd, Qubit: qubit, Partner: partner, Kind: kind}
}

// BellMeasure returns a Bell-state measurement of qubit against a fresh
// entangled pair shared with partner.
func BellMeasure(qubit int, partner string, kind CommKind) Primitive {
	return Primitive{Type: PrimBellMeasure, Qubit: qubit, Partner: partner, Kind: kind}
}

// CorrectTeleportOnly returns a teleport-back correction that does not
// reserve the comm qubit it lands on.
func CorrectTeleportOnly(partner string, kind CommKind) Primitive {
	return Primitive{Type: PrimCorrectTeleportOnly, Partner: partner, Kind: kind}
}

// String renders the primitive in the compact slice notation used by the CLI
// and the compiler tests, e.g. "entangle(2,node_1,cat)" or "CX(2,3)".
func (p Primitive) String() string {
	switch p.Type {
	case PrimLocal:
		parts := make([]string, len(p.Qubits))
		for i, q := range p.Qubits {
			parts[i] = strconv.Itoa(q)
		}
		return fmt.Sprintf("%s(%s)", p.Instr, strings.Join(parts, ","))
	case PrimCorrect, PrimCorrectTeleportOnly:
		return fmt.Sprintf("%s(%s,%s)", p.Type, p.Partner, p.Kind)
	default:
		return fmt.Sprintf("%s(%d,%s,%s)", p.Type, p.Qubit, p.Partner, p.Kind)
	}
}

// IsComm reports whether the primitive is a communication step rather than a
// local op.
func (p Primitive) IsComm() bool { return p.Type != PrimLocal }

// TimeSlice is an ordered, node-local primitive batch.
type TimeSlice []Primitive

// String renders the slice as "[p1, p2, …]".
func (s TimeSlice) String() string {
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = p.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// NodeSchedule is the ordered list of time slices compiled for one node.
type NodeSchedule []TimeSlice

// Primitives returns the total primitive count across all slices.
func (n NodeSchedule) Primitives() int {
	total := 0
	for _, s := range n {
		total += len(s)
	}
	return total
}

// Set maps node name to its compiled schedule. Each NodeSchedule is owned
// exclusively by one runtime instance; sets are never shared between runs.
type Set map[string]NodeSchedule

// Nodes returns the node names in sorted order.
func (s Set) Nodes() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Document is the serialized artifact produced by a compile: the schedule set
// plus enough metadata to execute or audit it later.
type Document struct {
	Version   string         `json:"version"`
	Name      string         `json:"name,omitempty"`
	Scheme    string         `json:"scheme,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	NodeSizes map[string]int `json:"node_sizes,omitempty"`
	Schedules Set            `json:"schedules"`
}

// DocumentVersion is the current artifact format version.
const DocumentVersion = "1"
