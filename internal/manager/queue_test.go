package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

func TestQueueRunsInOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		ran []string
	)
	q := newQueue(types.SyncImmediate, 0, func(op remoteOp[string]) {
		mu.Lock()
		defer mu.Unlock()
		ran = append(ran, op.kind.String()+":"+op.id)
	})
	defer q.close()

	q.enqueue(remoteOp[string]{kind: opSave, id: "a"})
	q.enqueue(remoteOp[string]{kind: opDelete, id: "a"})
	q.enqueue(remoteOp[string]{kind: opSave, id: "b"})
	require.NoError(t, q.flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"save:a", "delete:a", "save:b"}, ran)
}

func TestQueueFlushHonorsContext(t *testing.T) {
	block := make(chan struct{})
	q := newQueue(types.SyncImmediate, 0, func(remoteOp[string]) { <-block })
	defer q.close()
	defer close(block)

	q.enqueue(remoteOp[string]{kind: opSave, id: "slow"})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.flush(ctx), context.DeadlineExceeded)
}

func TestQueueFlushAfterClose(t *testing.T) {
	q := newQueue(types.SyncOnClose, 0, func(remoteOp[string]) {})
	q.close()
	assert.ErrorIs(t, q.flush(context.Background()), types.ErrClosed)
}
