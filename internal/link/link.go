// Package link carries the two kinds of traffic a remote gate needs: the
// brokered generation of entangled pairs between two nodes, and the
// classical messages that ship measurement outcomes and corrections. The
// in-memory implementation drives everything from the shared simulation
// clock; the NATS implementation moves the same traffic between processes.
package link

import (
	"errors"

	"github.com/entanglab/dqc/internal/schedule"
)

// Message labels. Entanglement brokering and correction payloads share one
// label vocabulary across transports.
const (
	LabelEntRequest = "ENT_REQUEST"
	LabelEntReady   = "ENT_READY"
	LabelEntFailed  = "ENT_FAILED"
	LabelCorrection = "CORRECTION"
)

// ErrEntanglementFailed reports that the link layer gave up on a requested
// pair. It is transient: callers retry the pending request per their
// configured policy.
var ErrEntanglementFailed = errors.New("entanglement generation failed")

// Role says which side of a remote gate the requester is on.
type Role string

const (
	RoleOrigin   Role = "origin"
	RoleReceiver Role = "receiver"
)

// Request asks the link layer for entangled pairs shared with a partner
// node, to be delivered into the listed comm-qubit slots.
type Request struct {
	Role       Role              `json:"role"`
	Node       string            `json:"node"`
	Partner    string            `json:"partner"`
	CommQubits []int             `json:"comm_qubits"`
	Count      int               `json:"count"`
	Kind       schedule.CommKind `json:"kind"`
}

// pairKey is the unordered node pair a request belongs to. Both sides of a
// remote gate must file matching requests before the pair is generated.
func (r Request) pairKey() string {
	a, b := r.Node, r.Partner
	if a > b {
		a, b = b, a
	}
	return a + "<->" + b
}

// Result resolves a Request. OK is false when generation failed and the
// requester should consult its retry policy.
type Result struct {
	Request Request `json:"request"`
	OK      bool    `json:"ok"`
}

// Message is a classical payload addressed by node name.
type Message struct {
	Label string `json:"label"`
	From  string `json:"from"`
	To    string `json:"to"`
	Bits  []int  `json:"bits,omitempty"`
}

// Handler receives link-layer events for one node. Implementations run on
// the simulation clock's goroutine; no locking is needed.
type Handler interface {
	OnEntanglementResult(res Result)
	OnMessage(msg Message)
}

// Layer is the transport consumed by the node runtimes.
type Layer interface {
	// Register installs the handler that receives node's events. It must be
	// called before any traffic addresses node; a registration failure
	// leaves the node unreachable, so callers must not proceed past it.
	Register(node string, h Handler) error
	// RequestEntanglement files one side of a pair request. The result
	// arrives asynchronously via the handler.
	RequestEntanglement(req Request) error
	// Send delivers a classical message; it never blocks the sender.
	Send(msg Message) error
	Close() error
}
