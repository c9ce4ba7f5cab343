package pushwatch

import "time"

// State is the state of a push as reported by the tracking server.
//
// State is an opaque tag: the watcher only distinguishes the terminal
// [StateLive] from everything else. The other constants are the values the
// tracking server is known to send.
type State string

const (
	// StateAccepting is a push that is still taking requests.
	StateAccepting State = "accepting"

	// StateOnStage is a push deployed to a staging environment.
	StateOnStage State = "onstage"

	// StateLive is the terminal state. Polling stops once it is seen.
	StateLive State = "live"

	// StateAbandoned is a push that was given up. It is not terminal for
	// polling; the server may still report changes.
	StateAbandoned State = "abandoned"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Terminal reports whether s stops polling.
func (s State) Terminal() bool {
	return s == StateLive
}

// Refresh describes one successful poll of the push.
//
// Refresh values are handed to callbacks registered with
// [WithRefreshCallback]. They are immutable after creation.
type Refresh struct {
	// PushKey is the push identifier sent by the server (may be empty).
	PushKey string

	// State is the state reported by this poll.
	State State

	// Previous is the state held before this poll.
	Previous State

	// HTML is the fragment that replaced the push region.
	HTML string

	// FetchedAt is when the poll result was applied.
	FetchedAt time.Time
}

// Changed reports whether the poll moved the push to a different state.
func (r Refresh) Changed() bool {
	return r.State != r.Previous
}
