package dump

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TrafficReport/analyzer/internal/geo"
	"github.com/TrafficReport/analyzer/internal/util"
	"github.com/TrafficReport/analyzer/pkg/core"
	"github.com/peterstace/simplefeatures/geom"
)

// ReportDocument is the JSON form of a report.
type ReportDocument struct {
	Kind        string                `json:"kind"`
	Target      uint16                `json:"target"`
	GeneratedAt time.Time             `json:"generatedAt"`
	Scanned     int                   `json:"scanned"`
	Vehicles    []VehicleDocument     `json:"vehicles"`
	Skipped     []core.SkippedVehicle `json:"skipped,omitempty"`
}

// VehicleDocument is one vehicle's path inside a ReportDocument.
type VehicleDocument struct {
	ID     uint16       `json:"id"`
	Length float64      `json:"length"`
	Points [][3]float64 `json:"points"`
}

// NewReportDocument converts r for export.
func NewReportDocument(r core.Report) ReportDocument {
	doc := ReportDocument{
		Kind:        r.Kind.String(),
		Target:      r.Target,
		GeneratedAt: r.GeneratedAt,
		Scanned:     r.Scanned,
		Vehicles:    make([]VehicleDocument, 0, len(r.Paths)),
		Skipped:     r.Skipped,
	}
	for i, p := range r.Paths {
		v := VehicleDocument{
			ID:     r.Vehicles[i],
			Length: geo.Length(p),
			Points: make([][3]float64, len(p)),
		}
		for j, pt := range p {
			v.Points[j] = [3]float64{pt.X, pt.Y, pt.Z}
		}
		doc.Vehicles = append(doc.Vehicles, v)
	}
	return doc
}

// WriteReportJSON writes r as JSON, gzip-compressed when compress is set.
func WriteReportJSON(w io.Writer, r core.Report, compress bool) error {
	if compress {
		gw := gzip.NewWriter(w)
		if err := json.NewEncoder(gw).Encode(NewReportDocument(r)); err != nil {
			gw.Close()
			return fmt.Errorf("encoding report: %w", err)
		}
		return gw.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewReportDocument(r)); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// WriteReportGeoJSON writes r as a FeatureCollection with one LineString per
// vehicle. World coordinates are used unless a projector is given. Paths that
// do not form a valid line are left out.
func WriteReportGeoJSON(w io.Writer, r core.Report, p *geo.Projector) error {
	fc := geom.GeoJSONFeatureCollection{}
	for i, path := range r.Paths {
		var (
			ls  geom.LineString
			err error
		)
		if p != nil {
			ls, err = p.LineString(path)
		} else {
			ls, err = geo.LineString(path)
		}
		if err != nil || ls.IsEmpty() {
			continue
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: ls.AsGeometry(),
			ID:       r.Vehicles[i],
			Properties: map[string]interface{}{
				"vehicle": r.Vehicles[i],
				"kind":    r.Kind.String(),
				"target":  r.Target,
				"points":  len(path),
				"length":  geo.Length(path),
			},
		})
	}
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return fmt.Errorf("encoding geojson: %w", err)
	}
	return nil
}

// Format is an export file format.
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatJSONGzip
	FormatGeoJSON
)

// FormatFor picks the format from a file name.
func FormatFor(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".json.gz"):
		return FormatJSONGzip, nil
	case strings.HasSuffix(lower, ".geojson"):
		return FormatGeoJSON, nil
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON, nil
	case strings.HasSuffix(lower, ".txt"):
		return FormatText, nil
	}
	return 0, fmt.Errorf("unsupported export file %q (want .txt, .json, .json.gz or .geojson)", name)
}

// ReportToFile exports r to target, choosing the format from its extension.
// Text files hold every path back to back, separated by a blank line.
func ReportToFile(target string, r core.Report, p *geo.Projector) error {
	format, err := FormatFor(target)
	if err != nil {
		return err
	}
	if err := util.EnsureDir(filepath.Dir(target)); err != nil {
		return err
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating export: %w", err)
	}

	switch format {
	case FormatJSON:
		err = WriteReportJSON(f, r, false)
	case FormatJSONGzip:
		err = WriteReportJSON(f, r, true)
	case FormatGeoJSON:
		err = WriteReportGeoJSON(f, r, p)
	default:
		for i, path := range r.Paths {
			if i > 0 {
				if _, err = io.WriteString(f, "\n"); err != nil {
					break
				}
			}
			if err = WritePath(f, path); err != nil {
				break
			}
		}
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
