package influx

import (
	"context"
	"log/slog"
	"time"

	"github.com/TrafficReport/analyzer/internal/analyzer"
	"github.com/TrafficReport/analyzer/internal/geo"
	"github.com/TrafficReport/analyzer/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement is the name of the points written per report.
const Measurement = "traffic_report"

// PointWriter accepts points. *Manager implements it.
type PointWriter interface {
	WritePoint(ctx context.Context, point *influxdb2_write.Point) error
}

// Publisher is an analyzer.Consumer that records every delivered result as a
// point before passing it on to the next consumer.
type Publisher struct {
	writer PointWriter
	next   analyzer.Consumer
	log    *slog.Logger
	now    func() time.Time
}

// NewPublisher wraps next. next may be nil.
func NewPublisher(w PointWriter, next analyzer.Consumer, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{writer: w, next: next, log: log, now: time.Now}
}

func (p *Publisher) write(point *influxdb2_write.Point) {
	if err := p.writer.WritePoint(context.Background(), point); err != nil {
		p.log.Warn("Failed to write report metrics", "error", err)
	}
}

func (p *Publisher) point(id analyzer.RequestID, kind core.ReportKind, target uint16, outcome string) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(Measurement).
		AddTag("kind", kind.String()).
		AddTag("outcome", outcome).
		AddField("request", string(id)).
		AddField("target", int64(target)).
		SetTime(p.now())
}

// ReportPoint builds the point for a successful multi-vehicle report.
func (p *Publisher) ReportPoint(id analyzer.RequestID, r core.Report) *influxdb2_write.Point {
	length := 0.0
	for _, path := range r.Paths {
		length += geo.Length(path)
	}
	return p.point(id, r.Kind, r.Target, "ok").
		AddField("vehicles", int64(len(r.Vehicles))).
		AddField("points", int64(r.PointCount())).
		AddField("skipped", int64(len(r.Skipped))).
		AddField("scanned", int64(r.Scanned)).
		AddField("length", length)
}

func (p *Publisher) OnGotVehiclePath(id analyzer.RequestID, vehicle uint16, path core.Path) {
	p.write(p.point(id, core.ReportVehicle, vehicle, "ok").
		AddField("points", int64(len(path))).
		AddField("length", geo.Length(path)))
	if p.next != nil {
		p.next.OnGotVehiclePath(id, vehicle, path)
	}
}

func (p *Publisher) OnGotSegmentReport(id analyzer.RequestID, r core.Report) {
	p.write(p.ReportPoint(id, r))
	if p.next != nil {
		p.next.OnGotSegmentReport(id, r)
	}
}

func (p *Publisher) OnGotBuildingReport(id analyzer.RequestID, r core.Report) {
	p.write(p.ReportPoint(id, r))
	if p.next != nil {
		p.next.OnGotBuildingReport(id, r)
	}
}

func (p *Publisher) OnReportFailed(id analyzer.RequestID, kind core.ReportKind, target uint16, err error) {
	p.write(p.point(id, kind, target, "failed").AddField("error", err.Error()))
	if p.next != nil {
		p.next.OnReportFailed(id, kind, target, err)
	}
}
