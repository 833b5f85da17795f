package manager

import "sync"

// Event operations.
const (
	EventAdded       = "added"
	EventUpdated     = "updated"
	EventDeleted     = "deleted"
	EventMoved       = "moved"
	EventSynced      = "synced"
	EventRemoteError = "remote_error"
)

// Event notifies subscribers of a change to the collection.
type Event struct {
	Kind string
	Op   string
	ID   string // empty for collection-wide events
	Err  error  // set for EventRemoteError
}

const subscriberBuffer = 32

// broadcaster fans events out to subscribers without blocking the sender.
// A subscriber that falls behind misses events; the collection itself is
// always available through Items.
type broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]chan Event)
	}
	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

func (b *broadcaster) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
