package manager

import (
	"context"
	"slices"
	"sync"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

type opKind int

const (
	opSave opKind = iota
	opDelete
	opBarrier
)

func (k opKind) String() string {
	switch k {
	case opSave:
		return "save"
	case opDelete:
		return "delete"
	}
	return "barrier"
}

// remoteOp is one unit of background remote work.
type remoteOp[T any] struct {
	kind   opKind
	id     string
	entity T
	ref    types.RemoteRef
	done   chan struct{} // closed when a barrier is reached
}

// queue runs remote operations one at a time, in the order they were
// enqueued, on a single worker goroutine. Operations are held back in
// pending until the sync strategy releases them: at once for immediate,
// at Flush for on_close, every batchSize operations for batch.
type queue[T any] struct {
	strategy  string
	batchSize int
	run       func(remoteOp[T])

	mu      sync.Mutex
	pending []remoteOp[T] // held back by the strategy
	ready   []remoteOp[T] // released to the worker

	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

func newQueue[T any](strategy string, batchSize int, run func(remoteOp[T])) *queue[T] {
	q := &queue[T]{
		strategy:  strategy,
		batchSize: batchSize,
		run:       run,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *queue[T]) enqueue(op remoteOp[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch q.strategy {
	case types.SyncOnClose:
		q.pending = append(q.pending, op)
		return
	case types.SyncBatch:
		q.pending = append(q.pending, op)
		if len(q.pending) < q.batchSize {
			return
		}
		q.releaseLocked()
	default:
		q.ready = append(q.ready, op)
	}
	q.signal()
}

// releaseLocked moves held-back operations to the worker.
func (q *queue[T]) releaseLocked() {
	q.ready = append(q.ready, q.pending...)
	q.pending = nil
}

// dropPending discards held-back saves for id. Saves already released to
// the worker are not affected.
func (q *queue[T]) dropPending(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = slices.DeleteFunc(q.pending, func(op remoteOp[T]) bool {
		return op.kind == opSave && op.id == id
	})
}

// pendingLen returns the number of held-back operations.
func (q *queue[T]) pendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// flush releases every held-back operation and waits until the worker has
// run all operations enqueued so far.
func (q *queue[T]) flush(ctx context.Context) error {
	barrier := remoteOp[T]{kind: opBarrier, done: make(chan struct{})}
	q.mu.Lock()
	q.releaseLocked()
	q.ready = append(q.ready, barrier)
	q.signal()
	q.mu.Unlock()

	select {
	case <-barrier.done:
		return nil
	case <-q.stopped:
		return types.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *queue[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue[T]) loop() {
	defer close(q.stopped)
	for {
		select {
		case <-q.wake:
		case <-q.stop:
			return
		}
		for {
			q.mu.Lock()
			if len(q.ready) == 0 {
				q.mu.Unlock()
				break
			}
			op := q.ready[0]
			q.ready = q.ready[1:]
			q.mu.Unlock()

			if op.kind == opBarrier {
				close(op.done)
				continue
			}
			q.run(op)
		}
	}
}

// close stops the worker. Operations not yet run are abandoned.
func (q *queue[T]) close() {
	select {
	case <-q.stop:
	default:
		close(q.stop)
	}
	<-q.stopped
}
