package geo

import (
	"log/slog"

	"github.com/TrafficReport/analyzer/internal/store"
	"github.com/TrafficReport/analyzer/internal/traversal"
	"github.com/TrafficReport/analyzer/pkg/core"
)

// Interpolate returns the point offset/255 of the way from start to end.
func Interpolate(start, end core.Position3D, offset uint8) core.Position3D {
	direction := end.Sub(start)
	return start.Add(direction.Scale(float64(offset) / core.OffsetScale))
}

// Reconstructor turns path chains into world-space polylines.
type Reconstructor struct {
	store  store.Provider
	walker *traversal.Walker
	log    *slog.Logger
}

// NewReconstructor returns a Reconstructor reading from p.
func NewReconstructor(p store.Provider, w *traversal.Walker, log *slog.Logger) *Reconstructor {
	if log == nil {
		log = slog.Default()
	}
	return &Reconstructor{store: p, walker: w, log: log}
}

// Reconstruct returns one point per position of the chain starting at start,
// in travel order. Positions without a segment contribute nothing; positions
// whose segment or nodes cannot be resolved are skipped with a warning.
// A broken chain aborts the path.
func (r *Reconstructor) Reconstruct(start uint32) (core.Path, error) {
	path := make(core.Path, 0)
	unresolved := 0

	err := r.walker.Positions(start, func(p core.Position) bool {
		if p.Segment == 0 {
			return true
		}
		a, b, err := store.SegmentEndpoints(r.store, p.Segment)
		if err != nil {
			unresolved++
			r.log.Debug("Skipping unresolved position", "path", start, "segment", p.Segment, "error", err)
			return true
		}
		path = append(path, Interpolate(a, b, p.Offset))
		return true
	})
	if err != nil {
		return nil, err
	}

	if unresolved > 0 {
		r.log.Warn("Path has unresolved positions", "path", start, "skipped", unresolved, "points", len(path))
	}
	return path, nil
}
