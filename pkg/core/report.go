// pkg/core/report.go
package core

import (
	"fmt"
	"strings"
	"time"
)

// ReportKind identifies which query produced a result.
type ReportKind uint8

const (
	ReportVehicle ReportKind = iota + 1
	ReportSegment
	ReportBuilding
)

func (k ReportKind) String() string {
	switch k {
	case ReportVehicle:
		return "vehicle"
	case ReportSegment:
		return "segment"
	case ReportBuilding:
		return "building"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseReportKind accepts the names returned by ReportKind.String.
func ParseReportKind(s string) (ReportKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vehicle":
		return ReportVehicle, nil
	case "segment":
		return ReportSegment, nil
	case "building":
		return ReportBuilding, nil
	}
	return 0, fmt.Errorf("unknown report kind %q", s)
}

// SkippedVehicle records a vehicle left out of a report because its path
// could not be resolved.
type SkippedVehicle struct {
	ID     uint16 `json:"id"`
	Reason string `json:"reason"`
}

// Report is the aggregated output of a multi-vehicle query.
// Paths[i] belongs to Vehicles[i]; both are in ascending handle order.
type Report struct {
	Kind        ReportKind
	Target      uint16
	Paths       []Path
	Vehicles    []uint16
	Skipped     []SkippedVehicle
	Scanned     int
	GeneratedAt time.Time
}

// NewReport returns an empty report for the given query.
func NewReport(kind ReportKind, target uint16) Report {
	return Report{
		Kind:     kind,
		Target:   target,
		Paths:    make([]Path, 0),
		Vehicles: make([]uint16, 0),
	}
}

// Add appends a vehicle's path.
func (r *Report) Add(vehicle uint16, path Path) {
	r.Vehicles = append(r.Vehicles, vehicle)
	r.Paths = append(r.Paths, path)
}

// Skip records a vehicle that could not be included.
func (r *Report) Skip(vehicle uint16, reason error) {
	r.Skipped = append(r.Skipped, SkippedVehicle{ID: vehicle, Reason: reason.Error()})
}

// PointCount is the number of points across all paths.
func (r Report) PointCount() int {
	n := 0
	for _, p := range r.Paths {
		n += len(p)
	}
	return n
}
