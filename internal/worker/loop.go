package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrQueueFull is returned by a non-blocking Loop whose queue is full.
	ErrQueueFull = errors.New("queue full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("loop closed")
)

// LoopOption configures a Loop.
type LoopOption func(*loopConfig)

type loopConfig struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered sets the queue size. The default is 1.
func Buffered(size int) LoopOption {
	return func(c *loopConfig) {
		c.bufferSize = size
	}
}

// Blocking makes Submit wait for room instead of failing with ErrQueueFull.
func Blocking() LoopOption {
	return func(c *loopConfig) {
		c.blocking = true
	}
}

// Logged adds debug logging around each unit of work.
func Logged() LoopOption {
	return func(c *loopConfig) {
		c.logged = true
	}
}

// Loop is a named execution context: one goroutine running submitted work
// in submission order.
type Loop struct {
	name     string
	log      *slog.Logger
	blocking bool
	logged   bool

	mu     sync.RWMutex
	closed bool
	queue  chan func()
	done   chan struct{}

	// OTEL metrics
	queueSize  metric.Int64ObservableGauge
	processed  metric.Int64Counter
	dropped    metric.Int64Counter
	panics     metric.Int64Counter
	nameAttr   attribute.KeyValue
	unregister metric.Registration
}

// NewLoop starts a Loop. Uses the global OTel meter for metrics (no-op if
// not configured).
func NewLoop(name string, log *slog.Logger, opts ...LoopOption) (*Loop, error) {
	cfg := &loopConfig{bufferSize: 1}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.bufferSize < 1 {
		cfg.bufferSize = 1
	}
	if log == nil {
		log = slog.Default()
	}

	l := &Loop{
		name:     name,
		log:      log.With("loop", name),
		blocking: cfg.blocking,
		logged:   cfg.logged,
		queue:    make(chan func(), cfg.bufferSize),
		done:     make(chan struct{}),
		nameAttr: attribute.String("loop", name),
	}

	m := meter()
	var err error

	l.queueSize, err = m.Int64ObservableGauge(
		"worker.loop.queue.size",
		metric.WithDescription("Current number of units waiting in the loop"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	l.unregister, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(l.queueSize, int64(len(l.queue)), metric.WithAttributes(l.nameAttr))
			return nil
		},
		l.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	l.processed, err = m.Int64Counter(
		"worker.loop.processed",
		metric.WithDescription("Total units run"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	l.dropped, err = m.Int64Counter(
		"worker.loop.dropped",
		metric.WithDescription("Total units rejected due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	l.panics, err = m.Int64Counter(
		"worker.loop.panics",
		metric.WithDescription("Total units that panicked"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating panics counter: %w", err)
	}

	go l.run()
	return l, nil
}

// Name returns the loop name.
func (l *Loop) Name() string {
	return l.name
}

// Len returns the number of units waiting.
func (l *Loop) Len() int {
	return len(l.queue)
}

// Submit queues work to run on the loop.
func (l *Loop) Submit(work func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}

	if l.blocking {
		l.queue <- work
		return nil
	}

	select {
	case l.queue <- work:
		return nil
	default:
		l.dropped.Add(context.Background(), 1, metric.WithAttributes(l.nameAttr))
		return fmt.Errorf("%s: %w", l.name, ErrQueueFull)
	}
}

// Close stops accepting work, runs what is already queued and waits for it.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	if l.unregister != nil {
		_ = l.unregister.Unregister()
	}
}

func (l *Loop) run() {
	defer close(l.done)
	for work := range l.queue {
		l.execute(work)
		l.processed.Add(context.Background(), 1, metric.WithAttributes(l.nameAttr))
	}
}

func (l *Loop) execute(work func()) {
	start := time.Now()
	if l.logged {
		l.log.Debug("running unit", "waiting", len(l.queue))
	}
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(context.Background(), 1, metric.WithAttributes(l.nameAttr))
			l.log.Error("unit panicked", "panic", r, "stack", string(debug.Stack()))
			return
		}
		if l.logged {
			l.log.Debug("unit complete", "duration", time.Since(start))
		}
	}()
	work()
}
