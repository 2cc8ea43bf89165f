package link

import (
	"context"
	"testing"
	"time"

	"github.com/entanglab/dqc/internal/schedule"
	"github.com/entanglab/dqc/internal/sim"
)

// recordHandler collects delivered events in order.
type recordHandler struct {
	results  []Result
	messages []Message
}

func (h *recordHandler) OnEntanglementResult(res Result) { h.results = append(h.results, res) }
func (h *recordHandler) OnMessage(msg Message)           { h.messages = append(h.messages, msg) }

func TestMemory_PairsMatchingRequests(t *testing.T) {
	clock := sim.NewClock()
	layer := NewMemory(clock, MemoryOptions{EntanglementLatency: time.Millisecond})
	a, b := &recordHandler{}, &recordHandler{}
	layer.Register("node_0", a)
	layer.Register("node_1", b)

	req0 := Request{Role: RoleOrigin, Node: "node_0", Partner: "node_1", CommQubits: []int{0}, Count: 1, Kind: schedule.KindCat}
	req1 := Request{Role: RoleReceiver, Node: "node_1", Partner: "node_0", CommQubits: []int{0}, Count: 1, Kind: schedule.KindCat}
	if err := layer.RequestEntanglement(req0); err != nil {
		t.Fatalf("RequestEntanglement() error: %v", err)
	}
	// One side alone never resolves.
	if err := clock.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(a.results) != 0 {
		t.Fatalf("unpaired request resolved: %v", a.results)
	}

	if err := layer.RequestEntanglement(req1); err != nil {
		t.Fatalf("RequestEntanglement() error: %v", err)
	}
	if err := clock.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(a.results) != 1 || len(b.results) != 1 {
		t.Fatalf("results = %d/%d, want 1/1", len(a.results), len(b.results))
	}
	if !a.results[0].OK || !b.results[0].OK {
		t.Error("pair delivery failed with zero failure probability")
	}
	if a.results[0].Request.Node != "node_0" {
		t.Errorf("node_0 got result for %s", a.results[0].Request.Node)
	}
}

func TestMemory_FailureProbabilityOne(t *testing.T) {
	clock := sim.NewClock()
	layer := NewMemory(clock, MemoryOptions{FailureProb: 1.0})
	a, b := &recordHandler{}, &recordHandler{}
	layer.Register("node_0", a)
	layer.Register("node_1", b)

	layer.RequestEntanglement(Request{Node: "node_0", Partner: "node_1", Kind: schedule.KindTP})
	layer.RequestEntanglement(Request{Node: "node_1", Partner: "node_0", Kind: schedule.KindTP})
	if err := clock.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(a.results) != 1 || a.results[0].OK {
		t.Errorf("node_0 results = %v, want one failed result", a.results)
	}
	if len(b.results) != 1 || b.results[0].OK {
		t.Errorf("node_1 results = %v, want one failed result", b.results)
	}
}

func TestMemory_SendDeliversAfterLatency(t *testing.T) {
	clock := sim.NewClock()
	layer := NewMemory(clock, MemoryOptions{ClassicalLatency: 2 * time.Millisecond})
	h := &recordHandler{}
	layer.Register("node_1", h)

	var deliveredAt time.Duration
	clock.After(0, func() {
		layer.Send(Message{Label: LabelCorrection, From: "node_0", To: "node_1", Bits: []int{1}})
	})
	clock.After(3*time.Millisecond, func() {
		if len(h.messages) == 1 {
			deliveredAt = clock.Now()
		}
	})
	if err := clock.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(h.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(h.messages))
	}
	if deliveredAt == 0 {
		t.Error("message not delivered before the 3ms probe")
	}
	got := h.messages[0]
	if got.Label != LabelCorrection || got.From != "node_0" || len(got.Bits) != 1 || got.Bits[0] != 1 {
		t.Errorf("message = %+v", got)
	}
}

func TestMemory_SendToUnregisteredNode(t *testing.T) {
	layer := NewMemory(sim.NewClock(), MemoryOptions{})
	if err := layer.Send(Message{To: "nowhere"}); err == nil {
		t.Error("Send() to unregistered node: want error")
	}
	if err := layer.RequestEntanglement(Request{Node: "nowhere", Partner: "also_nowhere"}); err == nil {
		t.Error("RequestEntanglement() from unregistered node: want error")
	}
}

func TestMemory_MessageOrderPreservedBetweenPair(t *testing.T) {
	clock := sim.NewClock()
	layer := NewMemory(clock, MemoryOptions{ClassicalLatency: time.Millisecond})
	h := &recordHandler{}
	layer.Register("node_1", h)

	clock.After(0, func() {
		layer.Send(Message{Label: LabelCorrection, From: "node_0", To: "node_1", Bits: []int{0}})
		layer.Send(Message{Label: LabelCorrection, From: "node_0", To: "node_1", Bits: []int{1}})
	})
	if err := clock.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(h.messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(h.messages))
	}
	if h.messages[0].Bits[0] != 0 || h.messages[1].Bits[0] != 1 {
		t.Errorf("messages out of order: %v", h.messages)
	}
}
