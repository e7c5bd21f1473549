package analyzer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/TrafficReport/analyzer/internal/logging"
	"github.com/TrafficReport/analyzer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// heldExecutor queues work until run is called.
type heldExecutor struct {
	mu    sync.Mutex
	work  []func()
	fails error
}

func (h *heldExecutor) Submit(work func()) error {
	if h.fails != nil {
		return h.fails
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.work = append(h.work, work)
	return nil
}

func (h *heldExecutor) run() int {
	h.mu.Lock()
	work := h.work
	h.work = nil
	h.mu.Unlock()
	for _, w := range work {
		w()
	}
	return len(work)
}

type inlineExecutor struct{}

func (inlineExecutor) Submit(work func()) error {
	work()
	return nil
}

type stubBuilder struct {
	path   core.Path
	report core.Report
	err    error
	panics bool
	ctx    context.Context
}

func (b *stubBuilder) ForVehicle(_ context.Context, _ uint16) (core.Path, error) {
	if b.panics {
		panic("boom")
	}
	return b.path, b.err
}

func (b *stubBuilder) BySegment(ctx context.Context, segment uint16) (core.Report, error) {
	b.ctx = ctx
	r := b.report
	r.Kind, r.Target = core.ReportSegment, segment
	return r, b.err
}

func (b *stubBuilder) ByBuilding(_ context.Context, building uint16) (core.Report, error) {
	r := b.report
	r.Kind, r.Target = core.ReportBuilding, building
	return r, b.err
}

type dumpRecorder struct {
	vehicles []uint16
}

func (d *dumpRecorder) DumpPath(vehicle uint16, _ core.Path) error {
	d.vehicles = append(d.vehicles, vehicle)
	return nil
}

type harness struct {
	analyzer *Analyzer
	compute  *heldExecutor
	delivery *heldExecutor
	recorder *Recorder
	log      bytes.Buffer
}

func newHarness(t *testing.T, b Builder, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		compute:  &heldExecutor{},
		delivery: &heldExecutor{},
		recorder: NewRecorder(),
	}
	a, err := New(Dependencies{
		Builder:  b,
		Compute:  h.compute,
		Delivery: h.delivery,
		Consumer: h.recorder,
		Logger:   slog.New(slog.NewTextHandler(&h.log, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	h.analyzer = a
	return h
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Dependencies{})
	assert.Error(t, err)
}

func TestRequest_RejectsWhileBusy(t *testing.T) {
	h := newHarness(t, &stubBuilder{path: core.Path{{X: 1}}})

	id, err := h.analyzer.ReportOnVehicle(3)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, Busy, h.analyzer.State())

	_, err = h.analyzer.ReportOnSegment(5)
	assert.ErrorIs(t, err, ErrJobInProgress)
	_, err = h.analyzer.ReportOnBuilding(5)
	assert.ErrorIs(t, err, ErrJobInProgress)
	assert.Contains(t, h.log.String(), "Report rejected, analyzer busy")

	// only the first request reached the compute executor
	assert.Equal(t, 1, h.compute.run())
	assert.Equal(t, Idle, h.analyzer.State())

	st := h.analyzer.Status()
	assert.Equal(t, uint64(1), st.Accepted)
	assert.Equal(t, uint64(2), st.Rejected)
}

func TestRequest_AcceptsAfterCompletion(t *testing.T) {
	h := newHarness(t, &stubBuilder{})

	first, err := h.analyzer.ReportOnSegment(1)
	require.NoError(t, err)
	h.compute.run()

	second, err := h.analyzer.ReportOnSegment(2)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestRequest_GateReleasedBeforeDelivery(t *testing.T) {
	h := newHarness(t, &stubBuilder{})

	_, err := h.analyzer.ReportOnBuilding(9)
	require.NoError(t, err)
	h.compute.run()

	// compute finished, delivery still pending
	assert.Equal(t, Idle, h.analyzer.State())
	assert.Equal(t, 0, h.recorder.Len())

	h.delivery.run()
	assert.Equal(t, 1, h.recorder.Len())
}

func TestRequest_DeliversEachKind(t *testing.T) {
	report := core.NewReport(core.ReportSegment, 0)
	report.Add(4, core.Path{{X: 1}, {X: 2}})
	h := newHarness(t, &stubBuilder{path: core.Path{{Z: 3}}, report: report})

	for _, kind := range []core.ReportKind{core.ReportVehicle, core.ReportSegment, core.ReportBuilding} {
		_, err := h.analyzer.Request(kind, 11)
		require.NoError(t, err)
		h.compute.run()
		h.delivery.run()
	}

	results := h.recorder.Drain()
	require.Len(t, results, 3)
	assert.Equal(t, core.ReportVehicle, results[0].Kind)
	assert.Equal(t, core.Path{{Z: 3}}, results[0].Path)
	assert.Equal(t, uint16(11), results[0].Target)
	assert.Equal(t, core.ReportSegment, results[1].Kind)
	assert.Equal(t, []uint16{4}, results[1].Report.Vehicles)
	assert.Equal(t, core.ReportBuilding, results[2].Kind)
	assert.Equal(t, uint16(11), results[2].Report.Target)
}

func TestRequest_FailureIsDelivered(t *testing.T) {
	boom := errors.New("store gone")
	h := newHarness(t, &stubBuilder{err: boom})

	id, err := h.analyzer.ReportOnSegment(5)
	require.NoError(t, err)
	h.compute.run()
	h.delivery.run()

	results := h.recorder.Drain()
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
	assert.ErrorIs(t, results[0].Err, boom)
	assert.Equal(t, core.ReportSegment, results[0].Kind)
	assert.Equal(t, uint64(1), h.analyzer.Status().Failed)
	require.NotNil(t, h.analyzer.Status().Last)
	assert.Equal(t, "store gone", h.analyzer.Status().Last.Error)
}

func TestRequest_PanicReleasesGate(t *testing.T) {
	h := newHarness(t, &stubBuilder{panics: true})

	_, err := h.analyzer.ReportOnVehicle(1)
	require.NoError(t, err)
	require.NotPanics(t, func() { h.compute.run() })
	h.delivery.run()

	assert.Equal(t, Idle, h.analyzer.State())
	results := h.recorder.Drain()
	require.Len(t, results, 1)
	var pe *PanicError
	require.ErrorAs(t, results[0].Err, &pe)
	assert.Equal(t, "boom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestRequest_SubmitFailureReleasesGate(t *testing.T) {
	h := newHarness(t, &stubBuilder{})
	h.compute.fails = errors.New("queue full")

	_, err := h.analyzer.ReportOnSegment(1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrJobInProgress)
	assert.Equal(t, Idle, h.analyzer.State())
	assert.Equal(t, uint64(0), h.analyzer.Status().Accepted)
}

func TestRequest_UnknownKind(t *testing.T) {
	h := newHarness(t, &stubBuilder{})

	_, err := h.analyzer.Request(core.ReportKind(99), 1)
	assert.Error(t, err)
	assert.Equal(t, Idle, h.analyzer.State())
}

func TestDumpVehiclePaths(t *testing.T) {
	d := &dumpRecorder{}
	h := newHarness(t, &stubBuilder{path: core.Path{{X: 1}}}, DumpVehiclePaths(d))

	_, err := h.analyzer.ReportOnVehicle(8)
	require.NoError(t, err)
	h.compute.run()
	_, err = h.analyzer.ReportOnSegment(8)
	require.NoError(t, err)
	h.compute.run()

	assert.Equal(t, []uint16{8}, d.vehicles)
}

func TestRecorder_Wait(t *testing.T) {
	a, err := New(Dependencies{
		Builder:  &stubBuilder{path: core.Path{{X: 2}}},
		Compute:  inlineExecutor{},
		Delivery: inlineExecutor{},
		Consumer: NewRecorder(),
	})
	require.NoError(t, err)
	rec := a.consumer.(*Recorder)

	id, err := a.ReportOnVehicle(2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := rec.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, res.ID)
	assert.True(t, res.OK())

	_, err = rec.Wait(ctx)
	assert.Error(t, err)
}

func TestConsumers_FanOut(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	cs := Consumers{a, b}

	Deliver(cs, Result{ID: "x", Kind: core.ReportBuilding, Report: core.NewReport(core.ReportBuilding, 3)})
	Deliver(cs, Result{ID: "y", Kind: core.ReportVehicle, Err: errors.New("nope")})

	for _, r := range []*Recorder{a, b} {
		got := r.Drain()
		require.Len(t, got, 2)
		assert.Equal(t, RequestID("x"), got[0].ID)
		assert.Error(t, got[1].Err)
	}
}

func TestSummarize(t *testing.T) {
	r := core.NewReport(core.ReportSegment, 2)
	r.Add(1, core.Path{{}, {}})
	r.Add(2, core.Path{{}})
	r.Skip(3, errors.New("broken"))

	s := Summarize(Result{ID: "a", Kind: core.ReportSegment, Target: 2, Report: r})
	assert.Equal(t, 2, s.Paths)
	assert.Equal(t, 3, s.Points)
	assert.Equal(t, 1, s.Skipped)
	assert.Empty(t, s.Error)
}

func TestRequest_BuilderContextCarriesRequestID(t *testing.T) {
	b := &stubBuilder{}
	h := newHarness(t, b)

	id, err := h.analyzer.ReportOnSegment(3)
	require.NoError(t, err)
	h.compute.run()

	require.NotNil(t, b.ctx)
	assert.Contains(t, logging.AttrsFrom(b.ctx), slog.String("request", string(id)))
}
