package dispatcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ArgSeparator separates the command from its arguments on a command line.
const ArgSeparator = "|"

// ErrEmptyLine is returned by ParseLine for blank input.
var ErrEmptyLine = errors.New("empty command line")

// ParseLine reads a command line such as ":REPORT:SEGMENT:|5" into an Event.
func ParseLine(line string) (Event, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, ErrEmptyLine
	}
	parts := strings.Split(line, ArgSeparator)
	e := Event{
		Command:   strings.TrimSpace(parts[0]),
		Timestamp: time.Now(),
	}
	if !strings.HasPrefix(e.Command, ":") || !strings.HasSuffix(e.Command, ":") {
		return Event{}, fmt.Errorf("malformed command %q", e.Command)
	}
	for _, arg := range parts[1:] {
		e.Args = append(e.Args, strings.TrimSpace(arg))
	}
	return e, nil
}

// FormatResponse renders a handler outcome as ["ok", cmd, value] or
// ["error", cmd, msg].
func FormatResponse(command string, result any, err error) string {
	var resp []any
	switch {
	case err != nil:
		resp = []any{"error", command, err.Error()}
	case result == nil:
		resp = []any{"ok", command}
	default:
		resp = []any{"ok", command, result}
	}
	b, merr := json.Marshal(resp)
	if merr != nil {
		return fmt.Sprintf(`["error", %q, %q]`, command, merr.Error())
	}
	return string(b)
}

// DispatchLine parses and dispatches one command line and formats the response.
func (d *Dispatcher) DispatchLine(line string) string {
	e, err := ParseLine(line)
	if err != nil {
		return FormatResponse(strings.TrimSpace(line), nil, err)
	}
	e.Command = Canonical(e.Command)
	if !d.HasHandler(e.Command) {
		return FormatResponse(e.Command, nil, ErrUnknownCommand)
	}
	result, err := d.Dispatch(e)
	return FormatResponse(e.Command, result, err)
}
