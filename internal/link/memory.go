package link

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/entanglab/dqc/internal/sim"
)

// MemoryOptions tunes the simulated link. Latencies and the failure
// probability model the physical layer; the compiler/runtime core performs
// no clock arithmetic of its own.
type MemoryOptions struct {
	// ClassicalLatency delays every classical message.
	ClassicalLatency time.Duration
	// EntanglementLatency delays pair delivery after both sides have filed
	// matching requests.
	EntanglementLatency time.Duration
	// FailureProb is the per-pair probability that generation fails and
	// both sides see ENT_FAILED.
	FailureProb float64
	// Seed drives the failure draw.
	Seed int64
}

// Memory is the in-process link layer. All delivery happens through the
// simulation clock, so one run is a single deterministic event sequence.
type Memory struct {
	clock    *sim.Clock
	opts     MemoryOptions
	rng      *rand.Rand
	handlers map[string]Handler
	pending  map[string][]Request
}

// NewMemory returns a simulated link layer over the given clock.
func NewMemory(clock *sim.Clock, opts MemoryOptions) *Memory {
	return &Memory{
		clock:    clock,
		opts:     opts,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		handlers: map[string]Handler{},
		pending:  map[string][]Request{},
	}
}

// Register installs node's event handler.
func (m *Memory) Register(node string, h Handler) error {
	m.handlers[node] = h
	return nil
}

// RequestEntanglement queues one side of a pair request and, once the
// partner's matching request is present, schedules delivery to both sides.
func (m *Memory) RequestEntanglement(req Request) error {
	if _, ok := m.handlers[req.Node]; !ok {
		return fmt.Errorf("node %s is not registered", req.Node)
	}
	key := req.pairKey()
	for i, other := range m.pending[key] {
		if other.Node == req.Partner {
			m.pending[key] = append(m.pending[key][:i], m.pending[key][i+1:]...)
			m.deliverPair(other, req)
			return nil
		}
	}
	m.pending[key] = append(m.pending[key], req)
	return nil
}

func (m *Memory) deliverPair(a, b Request) {
	ok := m.rng.Float64() >= m.opts.FailureProb
	m.clock.After(m.opts.EntanglementLatency, func() {
		if h := m.handlers[a.Node]; h != nil {
			h.OnEntanglementResult(Result{Request: a, OK: ok})
		}
		if h := m.handlers[b.Node]; h != nil {
			h.OnEntanglementResult(Result{Request: b, OK: ok})
		}
	})
}

// Send schedules delivery of a classical message after the configured
// latency. The sender never waits.
func (m *Memory) Send(msg Message) error {
	h, ok := m.handlers[msg.To]
	if !ok {
		return fmt.Errorf("node %s is not registered", msg.To)
	}
	m.clock.After(m.opts.ClassicalLatency, func() {
		h.OnMessage(msg)
	})
	return nil
}

// Close discards pending requests.
func (m *Memory) Close() error {
	m.pending = map[string][]Request{}
	return nil
}
