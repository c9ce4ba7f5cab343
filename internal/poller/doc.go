// Package poller keeps a push view synchronized with the tracking server.
//
// The main components are:
//
//   - [Client]: HTTP client for the push JSON endpoint, with size limits
//   - [Loop]: fixed-interval poll loop that stops once a push is live
//   - [Payload]: decoded response of the push JSON endpoint
//
// Failures are retried forever at the configured interval. There is no
// backoff and no retry cap; the only stop conditions are the terminal
// [StateLive] state, a suppressed configuration, and context cancellation.
package poller
