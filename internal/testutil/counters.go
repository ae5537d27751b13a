package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/blogstore/internal/store"
)

// ErrInjected is the failure FlakyCounters returns while failing.
var ErrInjected = errors.New("injected counter failure")

// FlakyCounters wraps a store.Counters and fails on demand.
//
// Thread-safety: all methods are safe for concurrent use.
type FlakyCounters struct {
	store.Counters

	mu       sync.Mutex
	failAll  bool
	failNext int
	calls    int
}

// NewFlakyCounters wraps inner. It starts healthy.
func NewFlakyCounters(inner store.Counters) *FlakyCounters {
	return &FlakyCounters{Counters: inner}
}

// FailAll makes every call fail until set back to false.
func (f *FlakyCounters) FailAll(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = fail
}

// FailNext makes the next n calls fail.
func (f *FlakyCounters) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}

// Calls returns how many calls reached the wrapper.
func (f *FlakyCounters) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FlakyCounters) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAll {
		return ErrInjected
	}
	if f.failNext > 0 {
		f.failNext--
		return ErrInjected
	}
	return nil
}

func (f *FlakyCounters) CounterValue(ctx context.Context, name string) (int64, bool, error) {
	if err := f.fail(); err != nil {
		return 0, false, err
	}
	return f.Counters.CounterValue(ctx, name)
}

func (f *FlakyCounters) CreateCounter(ctx context.Context, name string, seq int64) (bool, error) {
	if err := f.fail(); err != nil {
		return false, err
	}
	return f.Counters.CreateCounter(ctx, name, seq)
}

func (f *FlakyCounters) Increment(ctx context.Context, name string) (int64, error) {
	if err := f.fail(); err != nil {
		return 0, err
	}
	return f.Counters.Increment(ctx, name)
}
