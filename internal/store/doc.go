// Package store persists submitted messages and announces new ones.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation, lost on restart
//   - [SQLiteStore]: Durable implementation backed by a SQLite file
//   - [Message]: One submitted message
//
// Both implementations are safe for concurrent access. Subscribers receive
// every newly saved message via channels with non-blocking sends (slow
// subscribers will miss messages rather than block a save).
package store
