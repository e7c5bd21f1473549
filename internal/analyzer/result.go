package analyzer

import (
	"fmt"
	"time"

	"github.com/TrafficReport/analyzer/pkg/core"
	"github.com/google/uuid"
)

// RequestID identifies one accepted report request.
type RequestID string

func newRequestID() RequestID {
	return RequestID(uuid.NewString())
}

// Result is the outcome of the compute stage. Exactly one of Path/Report
// is meaningful on success depending on Kind; Err is set on failure.
type Result struct {
	ID       RequestID
	Kind     core.ReportKind
	Target   uint16
	Path     core.Path
	Report   core.Report
	Err      error
	Duration time.Duration
}

// OK reports whether the request succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// PanicError is a panic recovered while computing a report.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("report panicked: %v", e.Value)
}

// Summary is a short description of a finished request.
type Summary struct {
	ID       RequestID `json:"id"`
	Kind     string    `json:"kind"`
	Target   uint16    `json:"target"`
	Paths    int       `json:"paths"`
	Points   int       `json:"points"`
	Skipped  int       `json:"skipped"`
	Error    string    `json:"error,omitempty"`
	Duration string    `json:"duration"`
}

// Summarize condenses a result for status output and logging.
func Summarize(r Result) Summary {
	s := Summary{
		ID:       r.ID,
		Kind:     r.Kind.String(),
		Target:   r.Target,
		Duration: r.Duration.String(),
	}
	switch {
	case r.Err != nil:
		s.Error = r.Err.Error()
	case r.Kind == core.ReportVehicle:
		s.Paths = 1
		s.Points = len(r.Path)
	default:
		s.Paths = len(r.Report.Paths)
		s.Points = r.Report.PointCount()
		s.Skipped = len(r.Report.Skipped)
	}
	return s
}
