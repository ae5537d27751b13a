// Package analytics records usage events and summarizes them.
//
// Recording goes through a Recorder: Record normalizes an event and hands
// it to a bounded queue without waiting. Background workers append queued
// events to the durable log, retrying with exponential backoff. A full
// queue is reported to the caller as ErrQueueFull; an event that still
// fails after its retry budget is reported on the Errors channel. Neither
// case blocks the caller.
//
// Aggregation goes through an Aggregator, which only needs a Counter. All
// buckets are UTC: an hour is a UTC hour, a day is a UTC calendar day, and
// a weekday is the weekday of that UTC calendar day. Events are counted by
// timestamp, so the order in which they were recorded never matters.
package analytics
