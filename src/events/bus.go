package events

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Handler is a function that handles a published change.
type Handler func(Change)

// subscription represents a registered change handler.
type subscription struct {
	id      uint64
	channel Channel
	handler Handler
}

// Bus is a simple synchronous pub-sub bus carrying record diffs. Services
// publish every mutation they commit; the streaming controllers subscribe
// and forward diffs to connected clients. Components never depend on each
// other directly through it.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[Channel][]subscription
	nextID        atomic.Uint64
}

// NewBus creates a new change bus.
func NewBus() *Bus {
	return &Bus{
		subscriptions: make(map[Channel][]subscription),
	}
}

// wildcard receives changes from every channel.
const wildcard Channel = "*"

// Subscribe registers a handler for one channel.
// Returns a subscription ID that can be used to unsubscribe.
func (b *Bus) Subscribe(channel Channel, handler Handler) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID.Add(1)
	b.subscriptions[channel] = append(b.subscriptions[channel], subscription{
		id:      id,
		channel: channel,
		handler: handler,
	})
	return id
}

// SubscribeAll registers a handler for every channel.
func (b *Bus) SubscribeAll(handler Handler) uint64 {
	return b.Subscribe(wildcard, handler)
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for channel, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				b.subscriptions[channel] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish dispatches a change to all handlers registered for its channel,
// then to wildcard handlers, in registration order. A panicking handler is
// recovered and logged so it cannot block delivery to the rest.
func (b *Bus) Publish(change Change) {
	b.mu.RLock()
	specific := make([]subscription, len(b.subscriptions[change.Channel]))
	copy(specific, b.subscriptions[change.Channel])
	all := make([]subscription, len(b.subscriptions[wildcard]))
	copy(all, b.subscriptions[wildcard])
	b.mu.RUnlock()

	for _, sub := range specific {
		b.safeCall(sub.handler, change)
	}
	for _, sub := range all {
		b.safeCall(sub.handler, change)
	}
}

func (b *Bus) safeCall(handler Handler, change Change) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("change handler panicked",
				"channel", change.Channel,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	handler(change)
}
