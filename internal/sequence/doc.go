// Package sequence allocates numeric ids, one durable counter per entity
// kind.
//
// Each counter must be registered with the collection it numbers. The first
// Ensure for a name seeds the durable counter from the collection's highest
// id (max+1, or 1 when empty) unless the counter already exists. Next runs
// Ensure first, so bootstrap always completes before the first allocation
// for a name, and then performs one atomic increment in the store.
//
// When the store cannot allocate, Next degrades to the local fallback
// source's max+1. Fallback ids are not persisted and can collide with ids
// handed out by other processes; every fallback is logged at Warn and
// counted.
package sequence
