// Package report builds traffic reports by scanning the vehicle table.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/TrafficReport/analyzer/internal/geo"
	"github.com/TrafficReport/analyzer/internal/store"
	"github.com/TrafficReport/analyzer/internal/traversal"
	"github.com/TrafficReport/analyzer/pkg/core"
)

var (
	// ErrNoPath is returned for single-vehicle reports on a vehicle without a path.
	ErrNoPath = errors.New("vehicle has no path")
	// ErrInvalidSegment is returned for segment reports on the reserved handle 0.
	ErrInvalidSegment = errors.New("segment handle 0 is reserved")
)

// Filter decides whether a routable vehicle belongs in a report.
type Filter func(v core.Vehicle) (bool, error)

// Builder produces reports from a store snapshot.
type Builder struct {
	store         store.Provider
	walker        *traversal.Walker
	reconstructor *geo.Reconstructor
	log           *slog.Logger
	now           func() time.Time
}

// NewBuilder wires a builder over p. maxChainUnits bounds each path walk.
func NewBuilder(p store.Provider, maxChainUnits int, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	w := traversal.NewWalker(p, maxChainUnits)
	return &Builder{
		store:         p,
		walker:        w,
		reconstructor: geo.NewReconstructor(p, w, log),
		log:           log,
		now:           time.Now,
	}
}

// BySegment reports every vehicle whose path uses segment.
func (b *Builder) BySegment(ctx context.Context, segment uint16) (core.Report, error) {
	if segment == 0 {
		return core.Report{}, ErrInvalidSegment
	}
	return b.scan(ctx, core.ReportSegment, segment, func(v core.Vehicle) (bool, error) {
		return b.walker.ContainsSegment(v.Path, segment)
	})
}

// ByBuilding reports every vehicle travelling from or to building.
func (b *Builder) ByBuilding(ctx context.Context, building uint16) (core.Report, error) {
	return b.scan(ctx, core.ReportBuilding, building, func(v core.Vehicle) (bool, error) {
		return v.SourceBuilding == building || v.TargetBuilding == building, nil
	})
}

// ForVehicle reconstructs the path of a single vehicle without scanning the table.
// Unlike the table scans it does not skip vehicles flagged deleted.
func (b *Builder) ForVehicle(ctx context.Context, id uint16) (core.Path, error) {
	if err := b.store.Ping(ctx); err != nil {
		return nil, err
	}
	v, err := b.store.Vehicle(id)
	if err != nil {
		return nil, err
	}
	if !v.HasPath() {
		return nil, fmt.Errorf("vehicle %d: %w", id, ErrNoPath)
	}

	b.log.InfoContext(ctx, "Reporting on vehicle", "vehicle", id, "name", v.Name, "deleted", v.Deleted())
	path, err := b.reconstructor.Reconstruct(v.Path)
	if err != nil {
		return nil, fmt.Errorf("vehicle %d: %w", id, err)
	}
	return path, nil
}

// scan walks the vehicle table in ascending handle order and adds the
// reconstructed path of each routable vehicle accepted by filter.
// Vehicles whose chains cannot be read are skipped and recorded.
func (b *Builder) scan(ctx context.Context, kind core.ReportKind, target uint16, filter Filter) (core.Report, error) {
	if err := b.store.Ping(ctx); err != nil {
		return core.Report{}, err
	}

	report := core.NewReport(kind, target)
	start := b.now()
	// handles past the 16-bit range would alias low ones
	capacity := min(b.store.VehicleCapacity(), core.MaxHandles)

	for i := 0; i < capacity; i++ {
		if err := ctx.Err(); err != nil {
			return core.Report{}, err
		}
		id := uint16(i)

		v, err := b.store.Vehicle(id)
		if err != nil {
			b.log.WarnContext(ctx, "Skipping unreadable vehicle", "vehicle", id, "error", err)
			continue
		}
		if !v.Routable() {
			continue
		}
		report.Scanned++
		b.log.DebugContext(ctx, "Analyzing vehicle", "vehicle", id, "name", v.Name)

		ok, err := filter(v)
		if err != nil {
			b.skip(ctx, &report, v, err)
			continue
		}
		if !ok {
			continue
		}

		path, err := b.reconstructor.Reconstruct(v.Path)
		if err != nil {
			b.skip(ctx, &report, v, err)
			continue
		}
		report.Add(id, path)
	}

	report.GeneratedAt = b.now()
	b.log.InfoContext(ctx, "Report complete",
		"kind", kind.String(),
		"target", target,
		"scanned", report.Scanned,
		"paths", len(report.Paths),
		"skipped", len(report.Skipped),
		"duration", report.GeneratedAt.Sub(start),
	)
	return report, nil
}

func (b *Builder) skip(ctx context.Context, r *core.Report, v core.Vehicle, err error) {
	b.log.WarnContext(ctx, "Skipping vehicle with unreadable path", "vehicle", v.ID, "path", v.Path, "error", err)
	r.Skip(v.ID, err)
}
