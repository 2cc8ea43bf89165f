// Package sim provides the discrete-event clock that drives every node
// runtime, and the quantum-program engine interface the runtimes execute
// against. All runtime and link-layer work runs on the clock's single
// goroutine; suspension means scheduling nothing until a named event fires,
// never blocking an OS thread.
package sim

import (
	"container/heap"
	"context"
	"time"
)

type event struct {
	at  time.Duration
	seq uint64
	fn  func()
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	// Deterministic tie-break: insertion order.
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)        { *q = append(*q, x.(*event)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

// Clock is a discrete-event scheduler over virtual time. Events scheduled
// with At/After run in timestamp order with a deterministic tie-break.
// Inject posts work from other goroutines (e.g. a network callback); the
// clock stays alive waiting for injected work only when external mode is on.
type Clock struct {
	queue    eventQueue
	now      time.Duration
	seq      uint64
	inject   chan func()
	stop     chan struct{}
	external bool
}

// NewClock returns a clock that runs until its event queue drains.
func NewClock() *Clock {
	return &Clock{
		inject: make(chan func(), 64),
		stop:   make(chan struct{}),
	}
}

// NewExternalClock returns a clock that, when drained, blocks waiting for
// injected events until Stop is called. Use it when a link layer delivers
// events from outside the simulation.
func NewExternalClock() *Clock {
	c := NewClock()
	c.external = true
	return c
}

// Now returns the current virtual time.
func (c *Clock) Now() time.Duration { return c.now }

// After schedules fn to run d after the current virtual time. A zero or
// negative delay runs fn after all events already queued for the current
// instant.
func (c *Clock) After(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	c.seq++
	heap.Push(&c.queue, &event{at: c.now + d, seq: c.seq, fn: fn})
}

// Inject posts fn to run at the current virtual time. Unlike After it is
// safe to call from other goroutines.
func (c *Clock) Inject(fn func()) {
	select {
	case c.inject <- fn:
	case <-c.stop:
	}
}

// Stop ends an external-mode Run once the queue drains.
func (c *Clock) Stop() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

// Run processes events in order until the queue drains (and, in external
// mode, Stop is called), or ctx is canceled.
func (c *Clock) Run(ctx context.Context) error {
	for {
		// Absorb any injected work without blocking.
		for {
			select {
			case fn := <-c.inject:
				c.After(0, fn)
				continue
			default:
			}
			break
		}

		if len(c.queue) == 0 {
			if !c.external {
				return nil
			}
			select {
			case fn := <-c.inject:
				c.After(0, fn)
				continue
			case <-c.stop:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		ev := heap.Pop(&c.queue).(*event)
		c.now = ev.at
		ev.fn()
	}
}
