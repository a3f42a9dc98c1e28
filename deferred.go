package gymauth

import (
	"context"
	"sync"
	"sync/atomic"
)

// taskDispatcher is the deferred-work queue for side effects that must not
// run inside a provider event callback (role classification, super-admin
// sync). Tasks execute one at a time on a single worker goroutine, so they
// are ordered and never re-entrant with the state mutation that scheduled
// them.
//
// Unlike the audit dispatcher, Close does NOT drain: a pending role check
// for an engine that is shutting down is cancelled, not completed.
type taskDispatcher struct {
	ch        chan func(ctx context.Context)
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newTaskDispatcher(cfg DispatchConfig) *taskDispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &taskDispatcher{
		ch:     make(chan func(ctx context.Context), cfg.BufferSize),
		cancel: cancel,
	}

	d.wg.Add(1)
	go d.run(ctx)

	return d
}

func (d *taskDispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case task := <-d.ch:
			task(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Submit queues task for the next worker turn. Never blocks: when the
// buffer is full the task is dropped and counted, which the caller treats
// like any other recoverable classification failure (fail closed, retry on
// the next identity change).
func (d *taskDispatcher) Submit(task func(ctx context.Context)) bool {
	if d == nil || d.closed.Load() {
		return false
	}
	select {
	case d.ch <- task:
		return true
	default:
		d.dropped.Add(1)
		return false
	}
}

// Close cancels the worker and discards queued tasks. Idempotent.
func (d *taskDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		d.cancel()
		d.wg.Wait()
	})
}

// Dropped reports tasks rejected because the buffer was full.
func (d *taskDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
