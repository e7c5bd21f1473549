package worker

import (
	"log/slog"

	"github.com/TrafficReport/analyzer/internal/analyzer"
	"github.com/TrafficReport/analyzer/pkg/core"
)

// Reporter accepts report requests.
type Reporter interface {
	Request(kind core.ReportKind, target uint16) (analyzer.RequestID, error)
	Status() analyzer.Status
}

// Switch turns an optional behaviour on or off at runtime.
type Switch interface {
	SetEnabled(on bool)
	Enabled() bool
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Reporter Reporter
	// Dumps controls vehicle path dumping. Optional.
	Dumps  Switch
	Logger *slog.Logger
}

// Manager turns control commands into analyzer requests.
type Manager struct {
	deps Dependencies
	log  *slog.Logger
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		deps: deps,
		log:  log,
	}
}
