package analyzer

import (
	"context"
	"sync"

	"github.com/TrafficReport/analyzer/internal/queue"
	"github.com/TrafficReport/analyzer/pkg/core"
)

// Consumer receives finished requests in the delivery context.
type Consumer interface {
	OnGotVehiclePath(id RequestID, vehicle uint16, path core.Path)
	OnGotSegmentReport(id RequestID, report core.Report)
	OnGotBuildingReport(id RequestID, report core.Report)
	OnReportFailed(id RequestID, kind core.ReportKind, target uint16, err error)
}

// Deliver invokes the callback of c matching r.
func Deliver(c Consumer, r Result) {
	if r.Err != nil {
		c.OnReportFailed(r.ID, r.Kind, r.Target, r.Err)
		return
	}
	switch r.Kind {
	case core.ReportVehicle:
		c.OnGotVehiclePath(r.ID, r.Target, r.Path)
	case core.ReportSegment:
		c.OnGotSegmentReport(r.ID, r.Report)
	case core.ReportBuilding:
		c.OnGotBuildingReport(r.ID, r.Report)
	}
}

// Consumers fans every callback out to each member in order.
type Consumers []Consumer

func (cs Consumers) OnGotVehiclePath(id RequestID, vehicle uint16, path core.Path) {
	for _, c := range cs {
		c.OnGotVehiclePath(id, vehicle, path)
	}
}

func (cs Consumers) OnGotSegmentReport(id RequestID, report core.Report) {
	for _, c := range cs {
		c.OnGotSegmentReport(id, report)
	}
}

func (cs Consumers) OnGotBuildingReport(id RequestID, report core.Report) {
	for _, c := range cs {
		c.OnGotBuildingReport(id, report)
	}
}

func (cs Consumers) OnReportFailed(id RequestID, kind core.ReportKind, target uint16, err error) {
	for _, c := range cs {
		c.OnReportFailed(id, kind, target, err)
	}
}

// Recorder is a Consumer that keeps delivered results until they are taken.
type Recorder struct {
	results *queue.Queue[Result]

	mu     sync.Mutex
	notify chan struct{}
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		results: queue.New[Result](),
		notify:  make(chan struct{}, 1),
	}
}

func (r *Recorder) push(res Result) {
	r.results.Push(res)
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *Recorder) OnGotVehiclePath(id RequestID, vehicle uint16, path core.Path) {
	r.push(Result{ID: id, Kind: core.ReportVehicle, Target: vehicle, Path: path})
}

func (r *Recorder) OnGotSegmentReport(id RequestID, report core.Report) {
	r.push(Result{ID: id, Kind: core.ReportSegment, Target: report.Target, Report: report})
}

func (r *Recorder) OnGotBuildingReport(id RequestID, report core.Report) {
	r.push(Result{ID: id, Kind: core.ReportBuilding, Target: report.Target, Report: report})
}

func (r *Recorder) OnReportFailed(id RequestID, kind core.ReportKind, target uint16, err error) {
	r.push(Result{ID: id, Kind: kind, Target: target, Err: err})
}

// Len returns the number of results waiting.
func (r *Recorder) Len() int {
	return r.results.Len()
}

// Drain returns every waiting result.
func (r *Recorder) Drain() []Result {
	return r.results.Drain()
}

// Wait blocks until a result is available or ctx is done.
func (r *Recorder) Wait(ctx context.Context) (Result, error) {
	for {
		if res, ok := r.results.TryPop(); ok {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-r.notify:
		}
	}
}
