package streaming

import (
	"encoding/json"
	"time"

	"github.com/TrafficReport/analyzer/pkg/core"
)

// Message type constants of the report stream.
const (
	TypeHello          = "hello"
	TypeVehiclePath    = "vehicle_path"
	TypeSegmentReport  = "segment_report"
	TypeBuildingReport = "building_report"
	TypeReportFailed   = "report_failed"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`
}

// HelloPayload opens a session and is replayed after every reconnect.
type HelloPayload struct {
	Service  string `json:"service"`
	Snapshot string `json:"snapshot,omitempty"`
}

// VehiclePathPayload carries a single vehicle's reconstructed path.
type VehiclePathPayload struct {
	RequestID string    `json:"requestId"`
	Vehicle   uint16    `json:"vehicle"`
	Path      core.Path `json:"path"`
}

// ReportPayload carries a segment or building report.
type ReportPayload struct {
	RequestID   string                `json:"requestId"`
	Target      uint16                `json:"target"`
	Vehicles    []uint16              `json:"vehicles"`
	Paths       []core.Path           `json:"paths"`
	Skipped     []core.SkippedVehicle `json:"skipped,omitempty"`
	Scanned     int                   `json:"scanned"`
	GeneratedAt time.Time             `json:"generatedAt"`
}

// FailurePayload reports a request that produced no result.
type FailurePayload struct {
	RequestID string `json:"requestId"`
	Kind      string `json:"kind"`
	Target    uint16 `json:"target"`
	Error     string `json:"error"`
}

// NewReportPayload copies r into its wire form.
func NewReportPayload(id string, r core.Report) ReportPayload {
	return ReportPayload{
		RequestID:   id,
		Target:      r.Target,
		Vehicles:    r.Vehicles,
		Paths:       r.Paths,
		Skipped:     r.Skipped,
		Scanned:     r.Scanned,
		GeneratedAt: r.GeneratedAt,
	}
}
