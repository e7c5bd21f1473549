package worker

import (
	"errors"
	"fmt"

	"github.com/TrafficReport/analyzer/internal/dispatcher"
	"github.com/TrafficReport/analyzer/internal/parser"
	"github.com/TrafficReport/analyzer/pkg/core"
)

// Command names understood by RegisterHandlers.
const (
	CommandReportVehicle  = ":REPORT:VEHICLE:"
	CommandReportSegment  = ":REPORT:SEGMENT:"
	CommandReportBuilding = ":REPORT:BUILDING:"
	CommandStatus         = ":STATUS:"
	CommandDump           = ":DUMP:"
	CommandHelp           = ":HELP:"
)

// RegisterHandlers registers all control commands with the dispatcher.
// Report commands stay synchronous so a busy analyzer is reported to the caller.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CommandReportVehicle, m.reportHandler(core.ReportVehicle),
		dispatcher.Logged(), dispatcher.Describe("<vehicle> reconstruct one vehicle path"))
	d.Register(CommandReportSegment, m.reportHandler(core.ReportSegment),
		dispatcher.Logged(), dispatcher.Describe("<segment> report vehicles using a segment"))
	d.Register(CommandReportBuilding, m.reportHandler(core.ReportBuilding),
		dispatcher.Logged(), dispatcher.Describe("<building> report vehicles from or to a building"))

	d.Register(CommandStatus, m.handleStatus, dispatcher.Describe("analyzer state and counters"))
	d.Register(CommandDump, m.handleDump, dispatcher.Logged(), dispatcher.Describe("[on|off] vehicle path dumping"))
	d.Register(CommandHelp, func(dispatcher.Event) (any, error) { return d.Help(), nil },
		dispatcher.Describe("list commands"))
}

func (m *Manager) reportHandler(kind core.ReportKind) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		target, err := parser.HandleArg(e.Args, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s report target: %w", kind, err)
		}

		id, err := m.deps.Reporter.Request(kind, target)
		if err != nil {
			return nil, err
		}
		return string(id), nil
	}
}

func (m *Manager) handleStatus(dispatcher.Event) (any, error) {
	return m.deps.Reporter.Status(), nil
}

func (m *Manager) handleDump(e dispatcher.Event) (any, error) {
	if m.deps.Dumps == nil {
		return nil, errors.New("path dumping not configured")
	}
	if len(e.Args) == 0 {
		return m.deps.Dumps.Enabled(), nil
	}

	on, err := parser.ParseToggle(e.Args[0])
	if err != nil {
		return nil, err
	}
	m.deps.Dumps.SetEnabled(on)
	m.log.Info("Vehicle path dumping changed", "enabled", on)
	return on, nil
}
