package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TrafficReport/analyzer/internal/logging"
	"github.com/TrafficReport/analyzer/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrJobInProgress is returned when a request arrives while another is running.
var ErrJobInProgress = errors.New("job in progress")

// Executor runs submitted work in its own execution context.
type Executor interface {
	Submit(work func()) error
}

// Builder produces the three kinds of report.
type Builder interface {
	ForVehicle(ctx context.Context, id uint16) (core.Path, error)
	BySegment(ctx context.Context, segment uint16) (core.Report, error)
	ByBuilding(ctx context.Context, building uint16) (core.Report, error)
}

// Dumper writes the path of a single-vehicle report somewhere for inspection.
type Dumper interface {
	DumpPath(vehicle uint16, path core.Path) error
}

// Dependencies are the collaborators an Analyzer needs.
type Dependencies struct {
	Builder Builder
	// Compute runs report construction.
	Compute Executor
	// Delivery runs consumer callbacks.
	Delivery Executor
	Consumer Consumer
	Logger   *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// DumpVehiclePaths writes every computed vehicle path through d.
func DumpVehiclePaths(d Dumper) Option {
	return func(a *Analyzer) {
		a.dumper = d
	}
}

// WithContext sets the parent context for report computation.
func WithContext(ctx context.Context) Option {
	return func(a *Analyzer) {
		a.ctx, a.cancel = context.WithCancel(ctx)
	}
}

// Status is a point-in-time view of the analyzer.
type Status struct {
	State    string   `json:"state"`
	Accepted uint64   `json:"accepted"`
	Rejected uint64   `json:"rejected"`
	Failed   uint64   `json:"failed"`
	Last     *Summary `json:"last,omitempty"`
}

// Analyzer accepts report requests one at a time, computes them on the
// compute executor and hands the outcome to the consumer on the delivery
// executor.
type Analyzer struct {
	gate     Gate
	builder  Builder
	compute  Executor
	delivery Executor
	consumer Consumer
	dumper   Dumper
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	accepted atomic.Uint64
	rejected atomic.Uint64
	failed   atomic.Uint64

	mu   sync.RWMutex
	last *Summary

	// OTEL metrics
	requests metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates an Analyzer. Uses the global OTel meter for metrics (no-op if
// not configured).
func New(deps Dependencies, opts ...Option) (*Analyzer, error) {
	if deps.Builder == nil || deps.Compute == nil || deps.Delivery == nil || deps.Consumer == nil {
		return nil, errors.New("analyzer: builder, executors and consumer are required")
	}
	a := &Analyzer{
		builder:  deps.Builder,
		compute:  deps.Compute,
		delivery: deps.Delivery,
		consumer: deps.Consumer,
		log:      deps.Logger,
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.ctx == nil {
		a.ctx, a.cancel = context.WithCancel(context.Background())
	}

	m := meter()
	var err error

	a.requests, err = m.Int64Counter(
		"analyzer.requests",
		metric.WithDescription("Report requests by kind and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating requests counter: %w", err)
	}

	a.failures, err = m.Int64Counter(
		"analyzer.failures",
		metric.WithDescription("Accepted report requests that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}

	a.duration, err = m.Float64Histogram(
		"analyzer.report.duration",
		metric.WithDescription("Time spent computing a report"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return a, nil
}

// ReportOnVehicle requests the reconstructed path of one vehicle.
func (a *Analyzer) ReportOnVehicle(vehicle uint16) (RequestID, error) {
	return a.Request(core.ReportVehicle, vehicle)
}

// ReportOnSegment requests the paths of all vehicles that traverse segment.
func (a *Analyzer) ReportOnSegment(segment uint16) (RequestID, error) {
	return a.Request(core.ReportSegment, segment)
}

// ReportOnBuilding requests the paths of all vehicles travelling from or to building.
func (a *Analyzer) ReportOnBuilding(building uint16) (RequestID, error) {
	return a.Request(core.ReportBuilding, building)
}

// Request schedules a report. It returns ErrJobInProgress without
// scheduling anything if a previous request has not finished computing.
func (a *Analyzer) Request(kind core.ReportKind, target uint16) (RequestID, error) {
	switch kind {
	case core.ReportVehicle, core.ReportSegment, core.ReportBuilding:
	default:
		return "", fmt.Errorf("unknown report kind %d", kind)
	}

	if !a.gate.TryAcquire() {
		a.rejected.Add(1)
		a.requests.Add(a.ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind.String()), attribute.String("outcome", "rejected")))
		a.log.Warn("Report rejected, analyzer busy", "kind", kind.String(), "target", target)
		return "", ErrJobInProgress
	}

	id := newRequestID()
	if err := a.compute.Submit(func() { a.run(id, kind, target) }); err != nil {
		a.gate.Release()
		return "", fmt.Errorf("scheduling %s report: %w", kind, err)
	}

	a.accepted.Add(1)
	a.requests.Add(a.ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind.String()), attribute.String("outcome", "accepted")))
	a.log.Debug("Report scheduled", "id", id, "kind", kind.String(), "target", target)
	return id, nil
}

// State returns the gate state.
func (a *Analyzer) State() GateState {
	return a.gate.State()
}

// Status returns counters and the most recent result summary.
func (a *Analyzer) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Status{
		State:    a.gate.State().String(),
		Accepted: a.accepted.Load(),
		Rejected: a.rejected.Load(),
		Failed:   a.failed.Load(),
		Last:     a.last,
	}
}

// Close cancels any report still computing.
func (a *Analyzer) Close() {
	a.cancel()
}

func (a *Analyzer) run(id RequestID, kind core.ReportKind, target uint16) {
	res := a.computeReport(id, kind, target)
	a.record(res)

	if err := a.delivery.Submit(func() { Deliver(a.consumer, res) }); err != nil {
		a.log.Error("Failed to deliver report", "id", id, "kind", kind.String(), "error", err)
	}
}

// computeReport always releases the gate before returning, including on panic.
func (a *Analyzer) computeReport(id RequestID, kind core.ReportKind, target uint16) (res Result) {
	start := time.Now()
	res = Result{ID: id, Kind: kind, Target: target}
	ctx := logging.WithAttrs(a.ctx, slog.String("request", string(id)))

	defer func() {
		if r := recover(); r != nil {
			res.Err = &PanicError{Value: r, Stack: debug.Stack()}
			a.log.Error("Report panicked", "id", id, "kind", kind.String(), "panic", r)
		}
		res.Duration = time.Since(start)
		a.gate.Release()
	}()

	switch kind {
	case core.ReportVehicle:
		res.Path, res.Err = a.builder.ForVehicle(ctx, target)
		if res.Err == nil && a.dumper != nil {
			if err := a.dumper.DumpPath(target, res.Path); err != nil {
				a.log.Warn("Failed to dump vehicle path", "vehicle", target, "error", err)
			}
		}
	case core.ReportSegment:
		res.Report, res.Err = a.builder.BySegment(ctx, target)
	case core.ReportBuilding:
		res.Report, res.Err = a.builder.ByBuilding(ctx, target)
	}
	return res
}

func (a *Analyzer) record(res Result) {
	attrs := metric.WithAttributes(attribute.String("kind", res.Kind.String()))
	a.duration.Record(context.Background(), float64(res.Duration.Microseconds())/1000, attrs)

	if res.Err != nil {
		a.failed.Add(1)
		a.failures.Add(context.Background(), 1, attrs)
		a.log.Error("Report failed", "id", res.ID, "kind", res.Kind.String(), "target", res.Target, "error", res.Err)
	} else {
		a.log.Info("Report computed", "id", res.ID, "kind", res.Kind.String(), "target", res.Target, "duration", res.Duration)
	}

	s := Summarize(res)
	a.mu.Lock()
	a.last = &s
	a.mu.Unlock()
}
