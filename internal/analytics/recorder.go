package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/store"
)

// Appender is the write side of the event log.
type Appender interface {
	Append(ctx context.Context, ev model.Event) error
}

// RecorderOptions configures a Recorder. Zero values pick the defaults.
type RecorderOptions struct {
	QueueSize int // default 256
	Workers   int // default 1

	// RetryMaxElapsed bounds the time spent retrying one event.
	// Default 5s.
	RetryMaxElapsed time.Duration

	// RetryInitialInterval is the first backoff delay. Default 100ms.
	RetryInitialInterval time.Duration

	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Clock      quartz.Clock

	// NewID generates event ids. Defaults to NewEventID.
	NewID func() string
}

// Recorder appends events to an event log in the background.
type Recorder struct {
	sink   Appender
	opts   RecorderOptions
	logger *slog.Logger
	clock  quartz.Clock

	queue chan model.Event
	errs  chan error

	mu     sync.RWMutex
	closed bool

	// ctx is canceled when Close gives up waiting, aborting retries.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics *recorderMetrics
}

// NewRecorder starts the workers. Call Close to stop them.
func NewRecorder(sink Appender, opts RecorderOptions) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RetryMaxElapsed <= 0 {
		opts.RetryMaxElapsed = 5 * time.Second
	}
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.NewRegistry()
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.NewID == nil {
		opts.NewID = NewEventID
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{
		sink:   sink,
		opts:   opts,
		logger: opts.Logger.With("component", "analytics"),
		clock:  opts.Clock,
		queue:  make(chan model.Event, opts.QueueSize),
		errs:   make(chan error, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	r.metrics = newRecorderMetrics(opts.Registerer, func() float64 {
		return float64(len(r.queue))
	})

	r.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go r.worker()
	}
	return r
}

// Normalize applies the recorder's defaults to ev.
func (r *Recorder) Normalize(ev model.Event) model.Event {
	return Normalize(ev, r.clock.Now(), r.opts.NewID)
}

// Record normalizes ev and queues it without blocking. It returns the
// normalized event; the error is ErrQueueFull or ErrRecorderClosed when the
// event was not queued.
func (r *Recorder) Record(ev model.Event) (model.Event, error) {
	ev = r.Normalize(ev)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ev, ErrRecorderClosed
	}

	select {
	case r.queue <- ev:
		return ev, nil
	default:
		r.metrics.droppedTotal.Inc()
		r.logger.Warn("event dropped, queue full", "type", ev.Type, "id", ev.ID)
		return ev, ErrQueueFull
	}
}

// RecordSync normalizes ev and appends it before returning, without retry.
func (r *Recorder) RecordSync(ctx context.Context, ev model.Event) (model.Event, error) {
	ev = r.Normalize(ev)
	if err := r.sink.Append(ctx, ev); err != nil {
		r.metrics.failedTotal.Inc()
		return ev, fmt.Errorf("record event: %w", err)
	}
	r.metrics.recordedTotal.Inc()
	return ev, nil
}

// Errors reports events that failed permanently. The channel is buffered
// and lossy: when nobody drains it, further errors are only logged. It is
// closed once Close has stopped every worker.
func (r *Recorder) Errors() <-chan error {
	return r.errs
}

// Close stops intake and waits for the workers to drain the queue. If ctx
// ends first, pending retries are abandoned and ctx's error is returned.
// Safe to call more than once.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		r.cancel()
		<-done
	}
	r.cancel()
	close(r.errs)
	return err
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for ev := range r.queue {
		if err := r.appendWithRetry(ev); err != nil {
			r.metrics.failedTotal.Inc()
			r.logger.Error("event append failed", "type", ev.Type, "id", ev.ID, "error", err)
			select {
			case r.errs <- err:
			default:
			}
			continue
		}
		r.metrics.recordedTotal.Inc()
	}
}

func (r *Recorder) appendWithRetry(ev model.Event) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.RetryInitialInterval
	b.MaxElapsedTime = r.opts.RetryMaxElapsed

	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			r.metrics.retriesTotal.Inc()
		}
		err := r.sink.Append(r.ctx, ev)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, store.ErrConflict) && attempt > 1:
			// An earlier attempt reached the log before failing.
			return nil
		case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrClosed):
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(b, r.ctx)); err != nil {
		return fmt.Errorf("append event %s: %w", ev.ID, err)
	}
	return nil
}
