// Package dispatcher routes control commands to their handlers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrUnknownCommand is returned by Dispatch when no handler is registered.
var ErrUnknownCommand = errors.New("no handler registered")

// Event is one command received on the control surface.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*route)

type route struct {
	handler     HandlerFunc
	logged      bool
	description string
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(r *route) { r.logged = true }
}

// Describe attaches a usage line shown by Help.
func Describe(text string) Option {
	return func(r *route) { r.description = text }
}

// Canonical returns the form under which command is registered.
// Commands are matched case-insensitively.
func Canonical(command string) string {
	return strings.ToUpper(strings.TrimSpace(command))
}

// Dispatcher routes events to registered handlers. Handlers run on the
// caller's goroutine; long work belongs on a worker loop.
type Dispatcher struct {
	mu     sync.RWMutex
	routes map[string]*route
	logger Logger

	commands metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		routes: make(map[string]*route),
		logger: logger,
	}

	m := meter()
	var err error

	d.commands, err = m.Int64Counter(
		"dispatcher.commands",
		metric.WithDescription("Commands dispatched, by command and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating commands counter: %w", err)
	}

	d.duration, err = m.Float64Histogram(
		"dispatcher.command.duration",
		metric.WithDescription("Handler run time"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command, replacing any previous one.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	r := &route{handler: h}
	for _, opt := range opts {
		opt(r)
	}

	d.mu.Lock()
	d.routes[Canonical(command)] = r
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	e.Command = Canonical(e.Command)
	d.mu.RLock()
	r, ok := d.routes[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", e.Command, ErrUnknownCommand)
	}

	if r.logged {
		d.logger.Debug("handling command", "command", e.Command, "args", len(e.Args))
	}
	start := time.Now()
	result, err := r.handler(e)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	cmdAttr := attribute.String("command", e.Command)
	d.commands.Add(context.Background(), 1, metric.WithAttributes(cmdAttr, attribute.String("outcome", outcome)))
	d.duration.Record(context.Background(), float64(elapsed.Microseconds())/1000, metric.WithAttributes(cmdAttr))

	if r.logged {
		if err != nil {
			d.logger.Error("command failed", "command", e.Command, "duration", elapsed, "error", err)
		} else {
			d.logger.Debug("command complete", "command", e.Command, "duration", elapsed)
		}
	}
	return result, err
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[Canonical(command)]
	return ok
}

// Commands returns the registered command names, sorted.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.routes))
	for cmd := range d.routes {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// Help maps each registered command to its description.
func (d *Dispatcher) Help() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]string, len(d.routes))
	for cmd, r := range d.routes {
		out[cmd] = r.description
	}
	return out
}
