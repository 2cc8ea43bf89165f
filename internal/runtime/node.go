// Package runtime executes compiled node schedules. Each node is an
// explicit state machine driven by the shared discrete-event clock: local
// primitives accumulate into a pending program, comm primitives flush it to
// the quantum-program engine and then suspend on a named event from the
// link layer. Every suspension point is a state with one resume condition.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/entanglab/dqc/internal/compile"
	"github.com/entanglab/dqc/internal/link"
	"github.com/entanglab/dqc/internal/schedule"
	"github.com/entanglab/dqc/internal/sim"
)

// State names one phase of a node's protocol.
type State string

const (
	StateIdle                 State = "idle"
	StateRunningSlice         State = "running_slice"
	StateAwaitingEntanglement State = "awaiting_entanglement"
	StateAwaitingCorrection   State = "awaiting_correction"
	StateDone                 State = "done"
	StateFailed               State = "failed"
)

// Protocol-internal gate vocabulary.
const (
	instrCNOT = "CX"
	instrH    = "H"
	instrX    = "X"
	instrZ    = "Z"
)

// RetryPolicy governs re-filing of an entanglement request after the link
// layer reports failure. The zero value means defaults.
type RetryPolicy struct {
	// MaxAttempts bounds total attempts, the first included.
	MaxAttempts int
	// Backoff is the virtual-time delay before each retry.
	Backoff time.Duration
}

const defaultMaxAttempts = 3

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	return p
}

// NodeOptions configures one node runtime.
type NodeOptions struct {
	Name string
	// Slices is the node's compiled schedule.
	Slices []schedule.TimeSlice
	// CommQubits is how many comm-qubit slots this node owns. They occupy
	// qubit indices 0..CommQubits-1.
	CommQubits int
	Clock      *sim.Clock
	Link       link.Layer
	Engine     sim.Engine
	Logger     *slog.Logger
	Retry      RetryPolicy
	// OnDone fires once, when the node reaches Done or Failed.
	OnDone func(*Node)
}

// Node runs one QPU's schedule. All methods run on the clock goroutine; the
// node owns its qubits and schedule exclusively, so no locking is needed.
type Node struct {
	name   string
	slices []schedule.TimeSlice
	clock  *sim.Clock
	link   link.Layer
	engine sim.Engine
	logger *slog.Logger
	retry  RetryPolicy
	onDone func(*Node)

	ctx   context.Context
	state State
	err   error

	sliceIdx int
	primIdx  int
	pending  []sim.Op
	keySeq   int
	outcomes sim.Outcomes

	commQubits int
	commFree   []int
	// commCurrent is the comm qubit established by the last Correct-family
	// primitive; placeholder indices in later primitives resolve to it.
	commCurrent int

	// Entanglement suspension.
	entReq   link.Request
	onEnt    func()
	attempts int

	// Correction suspension plus buffering for early arrivals.
	awaitFrom string
	awaitBits int
	onBits    func([]int)
	inbox     map[string][]link.Message
}

// NewNode builds a node runtime in the Idle state.
func NewNode(opts NodeOptions) *Node {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	free := make([]int, opts.CommQubits)
	for i := range free {
		free[i] = i
	}
	return &Node{
		name:        opts.Name,
		slices:      opts.Slices,
		clock:       opts.Clock,
		link:        opts.Link,
		engine:      opts.Engine,
		logger:      opts.Logger.With("node", opts.Name),
		retry:       opts.Retry.withDefaults(),
		onDone:      opts.OnDone,
		state:       StateIdle,
		outcomes:    sim.Outcomes{},
		commQubits:  opts.CommQubits,
		commFree:    free,
		commCurrent: -1,
		inbox:       map[string][]link.Message{},
	}
}

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// State returns the node's current state.
func (n *Node) State() State { return n.state }

// Err returns the fatal error, if the node failed.
func (n *Node) Err() error { return n.err }

// Outcomes returns the classical bits from the node's data measurements.
func (n *Node) Outcomes() sim.Outcomes { return n.outcomes }

// Start schedules the node's first step at the current virtual time.
func (n *Node) Start(ctx context.Context) {
	n.ctx = ctx
	n.clock.After(0, n.step)
}

// step advances through the schedule until it suspends, fails, or finishes.
func (n *Node) step() {
	if n.state == StateDone || n.state == StateFailed {
		return
	}
	n.state = StateRunningSlice
	for n.sliceIdx < len(n.slices) {
		slice := n.slices[n.sliceIdx]
		for n.primIdx < len(slice) {
			p := slice[n.primIdx]
			n.primIdx++
			suspended, err := n.exec(p)
			if err != nil {
				n.fail(err)
				return
			}
			if suspended {
				return
			}
		}
		if err := n.flush(); err != nil {
			n.fail(err)
			return
		}
		n.sliceIdx++
		n.primIdx = 0
	}
	n.state = StateDone
	n.logger.Debug("schedule complete", "slices", len(n.slices))
	if n.onDone != nil {
		n.onDone(n)
	}
}

// exec handles one primitive. A true return means the node suspended and a
// link-layer event will resume it.
func (n *Node) exec(p schedule.Primitive) (bool, error) {
	switch p.Type {
	case schedule.PrimLocal:
		return false, n.accumulate(p)

	case schedule.PrimRequestEntangle:
		if err := n.flush(); err != nil {
			return false, err
		}
		comm, err := n.peekFreeComm()
		if err != nil {
			return false, err
		}
		data := p.Qubit
		n.requestEntanglement(p, comm, link.RoleOrigin, func() {
			out, err := n.run(
				sim.Gate(instrCNOT, data, comm),
				sim.MeasureOp(comm, "ma"),
			)
			if err != nil {
				n.fail(err)
				return
			}
			if err := n.sendBits(p.Partner, out["ma"]); err != nil {
				n.fail(err)
				return
			}
			n.step()
		})
		return true, nil

	case schedule.PrimCorrect, schedule.PrimCorrectTeleportOnly:
		if err := n.flush(); err != nil {
			return false, err
		}
		comm, err := n.peekFreeComm()
		if err != nil {
			return false, err
		}
		reserve := p.Type == schedule.PrimCorrect
		n.requestEntanglement(p, comm, link.RoleReceiver, func() {
			if reserve {
				n.reserveComm(comm)
			}
			n.commCurrent = comm
			n.awaitCorrection(p.Partner, correctionBits(p.Kind), func(bits []int) {
				if err := n.applyCorrection(p.Kind, comm, bits); err != nil {
					n.fail(err)
					return
				}
				n.step()
			})
		})
		return true, nil

	case schedule.PrimDisentangleStart:
		comm := n.commCurrent
		if comm < 0 {
			return false, Protocolf(n.name, "disentangle_start with no comm qubit established")
		}
		if err := n.flush(); err != nil {
			return false, err
		}
		out, err := n.run(
			sim.Gate(instrH, comm),
			sim.MeasureOp(comm, "mb"),
		)
		if err != nil {
			return false, err
		}
		if err := n.sendBits(p.Partner, out["mb"]); err != nil {
			return false, err
		}
		n.releaseComm(comm)
		return false, nil

	case schedule.PrimDisentangleEnd:
		if err := n.flush(); err != nil {
			return false, err
		}
		data := p.Qubit
		n.awaitCorrection(p.Partner, 1, func(bits []int) {
			if bits[0] == 1 {
				if _, err := n.run(sim.Gate(instrZ, data)); err != nil {
					n.fail(err)
					return
				}
			}
			n.step()
		})
		return true, nil

	case schedule.PrimBellMeasure:
		if err := n.flush(); err != nil {
			return false, err
		}
		comm, err := n.peekFreeComm()
		if err != nil {
			return false, err
		}
		tele := p.Qubit
		if tele == schedule.CommQubitPlaceholder {
			if n.commCurrent < 0 {
				return false, Protocolf(n.name, "bsm placeholder with no comm qubit established")
			}
			tele = n.commCurrent
		}
		n.requestEntanglement(p, comm, link.RoleOrigin, func() {
			out, err := n.run(
				sim.Gate(instrCNOT, tele, comm),
				sim.Gate(instrH, tele),
				sim.MeasureOp(comm, "m1"),
				sim.MeasureOp(tele, "m2"),
			)
			if err != nil {
				n.fail(err)
				return
			}
			// The measured qubit is reset so the slot can be reused.
			if _, err := n.run(sim.Gate(compile.InstrInit, tele)); err != nil {
				n.fail(err)
				return
			}
			if err := n.sendBits(p.Partner, out["m1"], out["m2"]); err != nil {
				n.fail(err)
				return
			}
			if tele < n.commQubits {
				n.releaseComm(tele)
			}
			n.step()
		})
		return true, nil

	default:
		return false, Protocolf(n.name, "unknown primitive type %q", p.Type)
	}
}

// accumulate appends a local primitive to the pending program.
func (n *Node) accumulate(p schedule.Primitive) error {
	qubits, err := n.resolve(p.Qubits)
	if err != nil {
		return err
	}
	if p.Instr == compile.InstrMeasure {
		for _, q := range qubits {
			key := fmt.Sprintf("q%d#%d", q, n.keySeq)
			n.keySeq++
			n.pending = append(n.pending, sim.MeasureOp(q, key))
		}
		return nil
	}
	n.pending = append(n.pending, sim.Gate(p.Instr, qubits...))
	return nil
}

// resolve substitutes the comm-qubit placeholder with the current comm
// qubit.
func (n *Node) resolve(qubits []int) ([]int, error) {
	out := make([]int, len(qubits))
	for i, q := range qubits {
		if q == schedule.CommQubitPlaceholder {
			if n.commCurrent < 0 {
				return nil, Protocolf(n.name, "comm-qubit placeholder with no comm qubit established")
			}
			q = n.commCurrent
		}
		out[i] = q
	}
	return out, nil
}

// flush executes the pending program, recording data-measurement outcomes.
func (n *Node) flush() error {
	if len(n.pending) == 0 {
		return nil
	}
	p := sim.Program{Ops: n.pending}
	n.pending = nil
	out, err := n.engine.Run(n.ctx, n.name, p)
	if err != nil {
		return fmt.Errorf("executing program on %s: %w", n.name, err)
	}
	for key, bit := range out {
		n.outcomes[key] = bit
	}
	return nil
}

// run executes ops immediately, outside the pending program.
func (n *Node) run(ops ...sim.Op) (sim.Outcomes, error) {
	out, err := n.engine.Run(n.ctx, n.name, sim.Program{Ops: ops})
	if err != nil {
		return nil, fmt.Errorf("executing program on %s: %w", n.name, err)
	}
	return out, nil
}

// sendBits ships a correction payload to partner. The sender never waits.
func (n *Node) sendBits(partner string, bits ...int) error {
	return n.link.Send(link.Message{
		Label: link.LabelCorrection,
		From:  n.name,
		To:    partner,
		Bits:  bits,
	})
}

// correctionBits is how many classical bits each protocol's correction
// round carries.
func correctionBits(kind schedule.CommKind) int {
	if kind == schedule.KindTP {
		return 2
	}
	return 1
}

// applyCorrection applies the measurement-dependent Paulis on the comm
// qubit. Cat communication needs X^ma; teleportation needs X^m1 Z^m2.
func (n *Node) applyCorrection(kind schedule.CommKind, comm int, bits []int) error {
	var ops []sim.Op
	if bits[0] == 1 {
		ops = append(ops, sim.Gate(instrX, comm))
	}
	if kind == schedule.KindTP && bits[1] == 1 {
		ops = append(ops, sim.Gate(instrZ, comm))
	}
	if len(ops) == 0 {
		return nil
	}
	_, err := n.run(ops...)
	return err
}

// requestEntanglement suspends the node until the link layer pairs the
// request, retrying failures per the configured policy.
func (n *Node) requestEntanglement(p schedule.Primitive, comm int, role link.Role, onReady func()) {
	n.entReq = link.Request{
		Role:       role,
		Node:       n.name,
		Partner:    p.Partner,
		CommQubits: []int{comm},
		Count:      1,
		Kind:       p.Kind,
	}
	n.attempts = 0
	n.onEnt = onReady
	n.state = StateAwaitingEntanglement
	n.fileEntRequest()
}

func (n *Node) fileEntRequest() {
	if n.state != StateAwaitingEntanglement {
		return
	}
	n.attempts++
	if err := n.link.RequestEntanglement(n.entReq); err != nil {
		n.fail(fmt.Errorf("requesting entanglement with %s: %w", n.entReq.Partner, err))
	}
}

// OnEntanglementResult resumes a suspended request, retrying failed pair
// generation until the policy's attempt budget runs out.
func (n *Node) OnEntanglementResult(res link.Result) {
	if n.state != StateAwaitingEntanglement {
		n.logger.Debug("dropping entanglement result", "state", string(n.state))
		return
	}
	if res.OK {
		n.state = StateRunningSlice
		resume := n.onEnt
		n.onEnt = nil
		resume()
		return
	}
	if n.attempts >= n.retry.MaxAttempts {
		n.fail(fmt.Errorf("entanglement with %s after %d attempts: %w",
			n.entReq.Partner, n.attempts, link.ErrEntanglementFailed))
		return
	}
	n.logger.Debug("retrying entanglement",
		"partner", n.entReq.Partner, "attempt", n.attempts+1)
	n.clock.After(n.retry.Backoff, n.fileEntRequest)
}

// awaitCorrection suspends until a correction from partner arrives,
// consuming a buffered message if one came early.
func (n *Node) awaitCorrection(partner string, want int, fn func([]int)) {
	if queued := n.inbox[partner]; len(queued) > 0 {
		msg := queued[0]
		n.inbox[partner] = queued[1:]
		n.deliverCorrection(msg, want, fn)
		return
	}
	n.state = StateAwaitingCorrection
	n.awaitFrom = partner
	n.awaitBits = want
	n.onBits = fn
}

// OnMessage resumes a node awaiting this sender's correction, or buffers
// the message for a correction the node has not reached yet.
func (n *Node) OnMessage(msg link.Message) {
	if n.state == StateAwaitingCorrection && msg.From == n.awaitFrom {
		want, fn := n.awaitBits, n.onBits
		n.awaitFrom, n.awaitBits, n.onBits = "", 0, nil
		n.deliverCorrection(msg, want, fn)
		return
	}
	n.inbox[msg.From] = append(n.inbox[msg.From], msg)
}

func (n *Node) deliverCorrection(msg link.Message, want int, fn func([]int)) {
	if msg.Label != link.LabelCorrection {
		n.fail(Protocolf(n.name, "unexpected message label %q from %s", msg.Label, msg.From))
		return
	}
	if len(msg.Bits) != want {
		n.fail(Protocolf(n.name, "correction from %s carries %d bits, want %d",
			msg.From, len(msg.Bits), want))
		return
	}
	n.state = StateRunningSlice
	fn(msg.Bits)
}

// peekFreeComm returns the lowest free comm-qubit slot.
func (n *Node) peekFreeComm() (int, error) {
	if len(n.commFree) == 0 {
		return 0, Protocolf(n.name, "no comm qubits free, too many remote gates in this time slice")
	}
	return n.commFree[0], nil
}

func (n *Node) reserveComm(q int) {
	for i, free := range n.commFree {
		if free == q {
			n.commFree = append(n.commFree[:i], n.commFree[i+1:]...)
			return
		}
	}
}

func (n *Node) releaseComm(q int) {
	for _, free := range n.commFree {
		if free == q {
			return
		}
	}
	n.commFree = append(n.commFree, q)
	sort.Ints(n.commFree)
}

// fail aborts the node. Sibling nodes keep running; a partner awaiting this
// node's traffic stalls, which the coordinator reports after the run.
func (n *Node) fail(err error) {
	if n.state == StateFailed || n.state == StateDone {
		return
	}
	n.state = StateFailed
	n.err = err
	n.logger.Error("node failed", "error", err)
	if n.onDone != nil {
		n.onDone(n)
	}
}
