// Package store holds the latest rendered push fragment and fans updates
// out to subscribers.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Snapshot]: The push key, state and HTML fragment at a point in time
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers miss updates rather than block the poll loop). Nothing is
// persisted; the snapshot lives only as long as the process.
package store
