package gymauth

import (
	"context"
	"sync"
	"testing"
)

func TestTaskDispatcherRunsInOrder(t *testing.T) {
	d := newTaskDispatcher(DispatchConfig{BufferSize: 8})
	defer d.Close()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 0; i < 3; i++ {
		i := i
		last := i == 2
		if !d.Submit(func(ctx context.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if last {
				close(done)
			}
		}) {
			t.Fatalf("submit %d rejected", i)
		}
	}

	<-done
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("tasks must run in submission order, got %v", order)
	}
}

func TestTaskDispatcherDropsWhenFull(t *testing.T) {
	d := newTaskDispatcher(DispatchConfig{BufferSize: 1})
	defer d.Close()

	block := make(chan struct{})
	started := make(chan struct{})

	// Occupies the worker.
	if !d.Submit(func(ctx context.Context) {
		close(started)
		select {
		case <-block:
		case <-ctx.Done():
		}
	}) {
		t.Fatal("first submit rejected")
	}
	<-started

	// Fills the one-slot buffer.
	if !d.Submit(func(ctx context.Context) {}) {
		t.Fatal("buffered submit rejected")
	}

	// Overflow is dropped, not blocked.
	if d.Submit(func(ctx context.Context) {}) {
		t.Fatal("overflow submit must be rejected")
	}
	if got := d.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped task, got %d", got)
	}

	close(block)
}

func TestTaskDispatcherCloseCancelsWork(t *testing.T) {
	d := newTaskDispatcher(DispatchConfig{BufferSize: 4})

	cancelled := make(chan struct{})
	started := make(chan struct{})
	if !d.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	}) {
		t.Fatal("submit rejected")
	}
	<-started

	d.Close()
	<-cancelled

	if d.Submit(func(ctx context.Context) {}) {
		t.Fatal("submit after close must be rejected")
	}
	d.Close() // idempotent
}
