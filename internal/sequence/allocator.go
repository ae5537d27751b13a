package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/blogstore/internal/store"
)

// ErrUnknownCounter is returned for names that were never registered.
var ErrUnknownCounter = errors.New("unknown counter")

// LocalMax reports the highest id known in process, typically the cache.
type LocalMax interface {
	MaxID() (id int64, ok bool)
}

// Options configures an Allocator.
type Options struct {
	// Logger receives bootstrap and fallback messages. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Registerer receives the allocator metrics. Defaults to a private
	// registry.
	Registerer prometheus.Registerer
}

// Allocator hands out ids from durable counters.
//
// Safe for concurrent use. Uniqueness across processes holds only while
// every allocation goes through the store; see the package doc for the
// fallback.
type Allocator struct {
	counters store.Counters
	logger   *slog.Logger
	metrics  *allocatorMetrics

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	name     string
	source   store.MaxIDSource
	fallback LocalMax

	ensureMu sync.Mutex
	ensured  atomic.Bool

	fallbackMu   sync.Mutex
	lastFallback int64
}

// New creates an allocator over counters.
func New(counters store.Counters, opts Options) *Allocator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registerer := opts.Registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	return &Allocator{
		counters: counters,
		logger:   logger,
		metrics:  newAllocatorMetrics(registerer),
		entries:  make(map[string]*entry),
	}
}

// Register associates name with the collection it numbers. source seeds the
// counter on first Ensure; fallback may be nil, in which case Next returns
// the store error instead of degrading.
//
// Registering a name again replaces its sources but keeps its ensured state.
func (a *Allocator) Register(name string, source store.MaxIDSource, fallback LocalMax) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.entries[name]; ok {
		e.ensureMu.Lock()
		e.source = source
		e.ensureMu.Unlock()
		e.fallbackMu.Lock()
		e.fallback = fallback
		e.fallbackMu.Unlock()
		return
	}
	a.entries[name] = &entry{name: name, source: source, fallback: fallback}
}

func (a *Allocator) lookup(name string) (*entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCounter, name)
	}
	return e, nil
}

// Ensure creates the durable counter for name if it does not exist yet,
// seeded with the collection's max id + 1, or 1 for an empty collection.
//
// Idempotent. A failed Ensure is retried by the next call.
func (a *Allocator) Ensure(ctx context.Context, name string) error {
	e, err := a.lookup(name)
	if err != nil {
		return err
	}
	if e.ensured.Load() {
		return nil
	}

	e.ensureMu.Lock()
	defer e.ensureMu.Unlock()
	if e.ensured.Load() {
		return nil
	}

	seq, exists, err := a.counters.CounterValue(ctx, name)
	if err != nil {
		return fmt.Errorf("ensure counter %q: %w", name, err)
	}
	if exists {
		a.logger.Debug("counter present", "counter", name, "seq", seq)
		e.ensured.Store(true)
		return nil
	}

	seq = 1
	if e.source != nil {
		maxID, ok, err := e.source.MaxID(ctx)
		if err != nil {
			return fmt.Errorf("ensure counter %q: scan max id: %w", name, err)
		}
		if ok {
			seq = maxID + 1
		}
	}

	created, err := a.counters.CreateCounter(ctx, name, seq)
	if err != nil {
		return fmt.Errorf("ensure counter %q: %w", name, err)
	}
	if created {
		a.logger.Info("counter bootstrapped", "counter", name, "seq", seq)
	} else {
		a.logger.Debug("counter created concurrently", "counter", name)
	}
	e.ensured.Store(true)
	return nil
}

// Next returns a fresh id for name: the counter's value before an atomic
// increment. Concurrent callers never receive the same value from the
// store path.
//
// If the counter cannot be ensured or incremented, Next falls back to the
// registered LocalMax (see the package doc). The returned error is non-nil
// only for unknown names, canceled contexts, or a failure with no fallback.
func (a *Allocator) Next(ctx context.Context, name string) (int64, error) {
	e, err := a.lookup(name)
	if err != nil {
		return 0, err
	}

	err = a.Ensure(ctx, name)
	if err == nil {
		var id int64
		id, err = a.counters.Increment(ctx, name)
		if err == nil {
			a.metrics.allocationsTotal.WithLabelValues(name, "store").Inc()
			return id, nil
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}
	id, ok := e.nextFallback()
	if !ok {
		return 0, fmt.Errorf("next %q: %w", name, err)
	}
	a.metrics.fallbacksTotal.WithLabelValues(name).Inc()
	a.metrics.allocationsTotal.WithLabelValues(name, "fallback").Inc()
	a.logger.Warn("counter unavailable, using in-memory fallback id",
		"counter", name, "id", id, "error", err)
	return id, nil
}

// nextFallback returns max(local max, last fallback) + 1 so that repeated
// fallbacks within this process do not repeat an id. ok is false when no
// fallback is registered.
func (e *entry) nextFallback() (int64, bool) {
	e.fallbackMu.Lock()
	defer e.fallbackMu.Unlock()

	if e.fallback == nil {
		return 0, false
	}
	next := int64(1)
	if maxID, ok := e.fallback.MaxID(); ok {
		next = maxID + 1
	}
	if next <= e.lastFallback {
		next = e.lastFallback + 1
	}
	e.lastFallback = next
	return next, true
}

// Current returns the counter's stored seq, which is the id Next will hand
// out on the store path.
func (a *Allocator) Current(ctx context.Context, name string) (int64, bool, error) {
	if _, err := a.lookup(name); err != nil {
		return 0, false, err
	}
	return a.counters.CounterValue(ctx, name)
}

// Names returns the registered counter names in no particular order.
func (a *Allocator) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	return names
}
