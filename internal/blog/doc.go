// Package blog keeps the entity collections (accounts, posts, chats) in a
// durable store and mirrors each one in an in-memory cache.
//
// # Mutation shapes
//
// A Collection persists in exactly two ways:
//   - Save replaces the whole durable collection with a snapshot, then
//     publishes the snapshot to the cache. The store runs the replace in
//     one transaction, so readers never observe an empty collection.
//   - Add allocates an id when the record has none, inserts exactly one
//     record, then appends it to the cache.
//
// The cache is only updated after the durable write succeeds, so it is
// never ahead of the store.
//
// # Derived helpers
//
// The Store helpers (chat removal, likes, comments, messages) copy the
// cached collection, change the copy, persist it through Save or Add, and
// only then publish it. They are serialized within one process by a mutex;
// two processes writing the same collection can still lose updates.
package blog
