package geo

import (
	"fmt"
	"math"

	"github.com/TrafficReport/analyzer/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Geometry uses the ground plane as XY and the height as Z, so world X/Z map
// to geometry X/Y and world Y maps to geometry Z.

// LineString converts a path into a simplefeatures XYZ line string.
// Paths with fewer than two points yield an empty line string.
func LineString(path core.Path) (geom.LineString, error) {
	if len(path) < 2 {
		return geom.LineString{}, nil
	}
	flat := make([]float64, 0, len(path)*3)
	for _, p := range path {
		flat = append(flat, p.X, p.Z, p.Y)
	}
	return newLineString(flat)
}

func newLineString(flat []float64) (geom.LineString, error) {
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("building line string: %w", err)
	}
	return ls, nil
}

// MultiLineString collects every path of a report that forms a valid line.
func MultiLineString(r core.Report) geom.MultiLineString {
	lines := make([]geom.LineString, 0, len(r.Paths))
	for _, p := range r.Paths {
		ls, err := LineString(p)
		if err != nil || ls.IsEmpty() {
			continue
		}
		lines = append(lines, ls)
	}
	return geom.NewMultiLineString(lines)
}

// GroundLength is the path's length on the ground plane. Degenerate paths
// measure 0.
func GroundLength(path core.Path) float64 {
	ls, err := LineString(path)
	if err != nil {
		return 0
	}
	return ls.Length()
}

// Length is the path's length in world units, including height changes.
func Length(path core.Path) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		d := path[i].Sub(path[i-1])
		total += math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
	}
	return total
}
