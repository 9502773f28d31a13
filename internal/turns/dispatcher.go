// Package turns serializes chat turns per conversation: at most one
// extraction in flight per conversation, while distinct conversations
// proceed in parallel on a bounded worker pool. This replaces unbounded
// per-message goroutines without a global lock.
package turns

import (
	"context"
	"fmt"
	"sync"
)

// Turn is one unit of work for a conversation.
type Turn func(ctx context.Context)

// Dispatcher distributes turns to a fixed pool of workers, keeping a FIFO
// queue per conversation. Safe for concurrent use.
type Dispatcher struct {
	workers int
	ready   chan string

	mu      sync.Mutex
	pending map[string][]Turn
	active  map[string]bool
	closed  bool

	closeChan chan struct{}
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given worker count.
// bufferSize bounds how many conversations can be runnable at once; past it
// Enqueue fails fast.
func NewDispatcher(workers, bufferSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		workers:   workers,
		ready:     make(chan string, bufferSize),
		pending:   make(map[string][]Turn),
		active:    make(map[string]bool),
		closeChan: make(chan struct{}),
	}
}

// Start launches the worker pool. Workers exit when ctx is canceled or the
// dispatcher is stopped.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Enqueue appends a turn to the conversation's queue. If the conversation is
// idle it becomes runnable; if a turn is already in flight the new turn waits
// its FIFO slot. When more conversations become runnable than the buffer
// holds, Enqueue fails instead of accepting a turn it cannot schedule; a
// failed Enqueue leaves the dispatcher untouched, so the conversation stays
// runnable for the next attempt.
func (d *Dispatcher) Enqueue(ctx context.Context, conversationID string, turn Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("turns: dispatcher is stopped")
	}

	// The wake-up must be secured before any state changes. A turn marked
	// pending without a signal would never run, and every later Enqueue for
	// the conversation would see it active and skip signaling too.
	if !d.active[conversationID] {
		select {
		case d.ready <- conversationID:
			d.active[conversationID] = true
		default:
			return fmt.Errorf("turns: dispatcher is saturated")
		}
	}

	d.pending[conversationID] = append(d.pending[conversationID], turn)
	return nil
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.closeChan:
			return
		case conversationID := <-d.ready:
			d.drain(ctx, conversationID)
		}
	}
}

// drain runs the conversation's queued turns in order until none remain.
// The conversation stays marked active for the whole drain, which is what
// guarantees one in-flight turn per conversation.
func (d *Dispatcher) drain(ctx context.Context, conversationID string) {
	for {
		d.mu.Lock()
		queue := d.pending[conversationID]
		if len(queue) == 0 {
			delete(d.pending, conversationID)
			d.active[conversationID] = false
			d.mu.Unlock()
			return
		}
		next := queue[0]
		d.pending[conversationID] = queue[1:]
		d.mu.Unlock()

		next(ctx)
	}
}

// Stop prevents new turns, signals workers to exit and waits for in-flight
// turns to finish or the context to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.closeChan)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
