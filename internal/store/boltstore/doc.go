// Package boltstore is an embedded store.Backend on top of bbolt.
//
// Entity buckets (users, posts, chats) map an 8-byte order-preserving id to
// a msgpack document, so a cursor walks records in ascending id order. The
// counters bucket maps a name to an 8-byte seq. Analytics events are keyed
// by an 8-byte order-preserving unix-millisecond timestamp followed by the
// event id; a second bucket maps event ids to those keys and rejects
// duplicates.
//
// Every write runs in a single bbolt Update, which serializes writers and
// makes ReplaceAll atomic.
package boltstore
