package events

import (
	"sync"

	"github.com/google/uuid"
)

const recentEventCap = 100

// Bus is a minimal publish/subscribe event bus. Publishing never blocks
// the caller; slow subscribers drop events rather than stall a scan.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	recent      []Event
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]chan Event),
	}
}

// Publish delivers the event to all subscribers and records it in the
// recent-event buffer. The sends stay under the lock: they never block,
// and Unsubscribe closes channels under the same lock, so a subscriber
// leaving mid-publish cannot turn a send into a panic.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recent = append(b.recent, event)
	if len(b.recent) > recentEventCap {
		b.recent = b.recent[len(b.recent)-recentEventCap:]
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its ID along with the
// delivery channel. The channel is buffered; events overflowing the
// buffer are dropped for that subscriber.
func (b *Bus) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, 32)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Recent returns a copy of the most recent events, newest last.
func (b *Bus) Recent() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Event(nil), b.recent...)
}
