package store

import "time"

// Snapshot is the displayed state of a push.
//
// HTML is the pre-rendered fragment returned by the tracking server for the
// push's display region; it is stored and served verbatim.
type Snapshot struct {
	// Key is the push identifier, if the server sent one.
	Key string `json:"key"`

	// State is the push state at the time of the update (e.g. "onstage").
	State string `json:"state"`

	// HTML is the fragment that replaces the push region.
	HTML string `json:"html"`

	// UpdatedAt is when the fragment was received.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the interface for storing and subscribing to push snapshots.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update replaces the current snapshot and notifies all subscribers.
	Update(s Snapshot)

	// Current returns the latest snapshot and whether one has been stored.
	Current() (Snapshot, bool)

	// Subscribe returns a channel that receives snapshot updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
