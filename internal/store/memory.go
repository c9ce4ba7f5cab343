package store

import (
	"sync"
)

const subscriberBuffer = 16

// MemoryStore is an in-memory implementation of [Store].
//
// Only the latest snapshot is kept; each update replaces the previous one.
// Updates are sent to subscribers non-blocking; if a subscriber's buffer is
// full the update is dropped for that subscriber.
type MemoryStore struct {
	mu      sync.RWMutex
	current Snapshot
	has     bool

	subMu       sync.RWMutex
	subscribers map[chan Snapshot]struct{}
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Update stores s as the current snapshot and notifies all subscribers.
func (m *MemoryStore) Update(s Snapshot) {
	m.mu.Lock()
	m.current = s
	m.has = true
	m.mu.Unlock()

	m.notifySubscribers(s)
}

// Current returns the latest snapshot and whether one has been stored.
func (m *MemoryStore) Current() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.has
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (m *MemoryStore) notifySubscribers(s Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- s:
		default:
			// slow subscriber, drop
		}
	}
}
