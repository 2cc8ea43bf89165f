package link

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/entanglab/dqc/internal/sim"
)

// NATS subjects. Classical traffic and entanglement results are addressed
// per node; every request goes to the broker's single request subject.
const (
	subjectClassical  = "dqc.classical."
	subjectEntRequest = "dqc.ent.request"
	subjectEntResult  = "dqc.ent.result."
)

// NATSLayer moves link traffic over a NATS server, so node runtimes can run
// in separate processes. Incoming events are injected into the simulation
// clock, preserving the single-goroutine execution model.
type NATSLayer struct {
	conn  *nats.Conn
	clock *sim.Clock
	subs  []*nats.Subscription
}

// NewNATSLayer connects to the NATS server at url. The clock must be in
// external mode so it keeps running while network events are in flight.
func NewNATSLayer(url string, clock *sim.Clock) (*NATSLayer, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSLayer{conn: nc, clock: clock}, nil
}

// Register subscribes node's classical and entanglement-result subjects and
// routes payloads to h on the clock goroutine.
func (l *NATSLayer) Register(node string, h Handler) error {
	classical, err := l.conn.Subscribe(subjectClassical+node, func(m *nats.Msg) {
		var msg Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			return
		}
		l.clock.Inject(func() { h.OnMessage(msg) })
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", subjectClassical+node, err)
	}
	l.subs = append(l.subs, classical)

	results, err := l.conn.Subscribe(subjectEntResult+node, func(m *nats.Msg) {
		var res Result
		if err := json.Unmarshal(m.Data, &res); err != nil {
			return
		}
		l.clock.Inject(func() { h.OnEntanglementResult(res) })
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", subjectEntResult+node, err)
	}
	l.subs = append(l.subs, results)

	// Flush so traffic published right after registration is routed.
	return l.conn.Flush()
}

// RequestEntanglement publishes the request to the broker.
func (l *NATSLayer) RequestEntanglement(req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling entanglement request: %w", err)
	}
	return l.conn.Publish(subjectEntRequest, data)
}

// Send publishes a classical message to the recipient's subject.
func (l *NATSLayer) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	return l.conn.Publish(subjectClassical+msg.To, data)
}

// Close unsubscribes and drops the connection.
func (l *NATSLayer) Close() error {
	for _, sub := range l.subs {
		_ = sub.Unsubscribe()
	}
	l.conn.Close()
	return nil
}

// BrokerOptions tunes the entanglement broker.
type BrokerOptions struct {
	// FailureProb is the per-pair probability of ENT_FAILED.
	FailureProb float64
	Seed        int64
}

// Broker pairs entanglement requests arriving over NATS and publishes the
// result to both sides. Exactly one broker serves a fleet.
type Broker struct {
	conn *nats.Conn
	opts BrokerOptions

	mu      sync.Mutex
	rng     *rand.Rand
	pending map[string][]Request
	sub     *nats.Subscription
}

// NewBroker connects a broker to the NATS server at url and starts serving
// requests.
func NewBroker(url string, opts BrokerOptions) (*Broker, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	b := &Broker{
		conn:    nc,
		opts:    opts,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		pending: map[string][]Request{},
	}
	sub, err := nc.Subscribe(subjectEntRequest, b.handleRequest)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", subjectEntRequest, err)
	}
	b.sub = sub
	if err := nc.Flush(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}
	return b, nil
}

func (b *Broker) handleRequest(m *nats.Msg) {
	var req Request
	if err := json.Unmarshal(m.Data, &req); err != nil {
		return
	}

	b.mu.Lock()
	key := req.pairKey()
	var matched *Request
	for i, other := range b.pending[key] {
		if other.Node == req.Partner {
			o := other
			matched = &o
			b.pending[key] = append(b.pending[key][:i], b.pending[key][i+1:]...)
			break
		}
	}
	if matched == nil {
		b.pending[key] = append(b.pending[key], req)
		b.mu.Unlock()
		return
	}
	ok := b.rng.Float64() >= b.opts.FailureProb
	b.mu.Unlock()

	b.publishResult(Result{Request: *matched, OK: ok})
	b.publishResult(Result{Request: req, OK: ok})
}

func (b *Broker) publishResult(res Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = b.conn.Publish(subjectEntResult+res.Request.Node, data)
}

// Close stops serving requests.
func (b *Broker) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.conn.Close()
	return nil
}
