package turns

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcher_FIFOWithinConversation(t *testing.T) {
	d := NewDispatcher(4, 16)
	ctx := context.Background()
	d.Start(ctx)
	defer d.Stop(context.Background())

	var mu sync.Mutex
	var order []int
	var inFlight int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		err := d.Enqueue(ctx, "conv-1", func(ctx context.Context) {
			defer wg.Done()
			if n := atomic.AddInt32(&inFlight, 1); n > 1 {
				t.Errorf("Observed %d concurrent turns for one conversation", n)
			}
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			atomic.AddInt32(&inFlight, -1)
		})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("Turn order %v is not FIFO", order)
		}
	}
}

func TestDispatcher_ConversationsRunInParallel(t *testing.T) {
	d := NewDispatcher(2, 16)
	ctx := context.Background()
	d.Start(ctx)
	defer d.Stop(context.Background())

	// Both turns block until the other has started; the test only completes
	// if the two conversations overlap.
	var barrier sync.WaitGroup
	barrier.Add(2)
	var done sync.WaitGroup

	for _, conv := range []string{"conv-a", "conv-b"} {
		done.Add(1)
		err := d.Enqueue(ctx, conv, func(ctx context.Context) {
			defer done.Done()
			barrier.Done()
			barrier.Wait()
		})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	finished := make(chan struct{})
	go func() {
		done.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("Conversations did not run in parallel")
	}
}

func TestDispatcher_FailedEnqueueLeavesConversationRunnable(t *testing.T) {
	// An unbuffered dispatcher with no workers cannot accept a wake-up, so
	// the first Enqueue must fail outright. The conversation must not be
	// left half-scheduled: once workers exist, the next Enqueue for the
	// same conversation has to run.
	d := NewDispatcher(1, 0)
	ctx := context.Background()

	if err := d.Enqueue(ctx, "conv-1", func(ctx context.Context) {
		t.Error("A failed Enqueue must not run its turn")
	}); err == nil {
		t.Fatal("Enqueue without an available wake-up slot must fail")
	}

	d.Start(ctx)
	defer d.Stop(context.Background())

	ran := make(chan struct{})
	if err := d.Enqueue(ctx, "conv-1", func(ctx context.Context) {
		close(ran)
	}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Turn enqueued after a failed Enqueue never ran")
	}
}

func TestDispatcher_CanceledContextRejectsEnqueue(t *testing.T) {
	d := NewDispatcher(1, 4)
	ctx := context.Background()
	d.Start(ctx)
	defer d.Stop(context.Background())

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Enqueue(canceled, "conv-1", func(ctx context.Context) {
		t.Error("A rejected Enqueue must not run its turn")
	}); err == nil {
		t.Fatal("Enqueue with a canceled context must fail")
	}

	ran := make(chan struct{})
	if err := d.Enqueue(ctx, "conv-1", func(ctx context.Context) {
		close(ran)
	}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Turn enqueued after a rejected Enqueue never ran")
	}
}

func TestDispatcher_StopDrainsInFlight(t *testing.T) {
	d := NewDispatcher(1, 4)
	ctx := context.Background()
	d.Start(ctx)

	started := make(chan struct{})
	var completed atomic.Bool

	err := d.Enqueue(ctx, "conv-1", func(ctx context.Context) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		completed.Store(true)
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	<-started

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if !completed.Load() {
		t.Error("Stop returned before the in-flight turn completed")
	}

	if err := d.Enqueue(ctx, "conv-1", func(ctx context.Context) {}); err == nil {
		t.Error("Enqueue after Stop must fail")
	}
}
