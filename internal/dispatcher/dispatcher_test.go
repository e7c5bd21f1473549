package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) log(level, msg string, keysAndValues []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, keysAndValues))
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.log("DEBUG", msg, keysAndValues) }
func (l *testLogger) Info(msg string, keysAndValues ...any)  { l.log("INFO", msg, keysAndValues) }
func (l *testLogger) Error(msg string, keysAndValues ...any) { l.log("ERROR", msg, keysAndValues) }

func (l *testLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.messages {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got []string
	d.Register(":REPORT:SEGMENT:", func(e Event) (any, error) {
		got = e.Args
		return "scheduled", nil
	})

	result, err := d.Dispatch(Event{Command: ":REPORT:SEGMENT:", Args: []string{"5"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "5" {
		t.Errorf("handler got args %v", got)
	}
	if result != "scheduled" {
		t.Errorf("expected 'scheduled', got %v", result)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: ":UNKNOWN:"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestDispatcher_CaseInsensitive(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var seen string
	d.Register(":report:building:", func(e Event) (any, error) {
		seen = e.Command
		return nil, nil
	})

	if !d.HasHandler(":REPORT:BUILDING:") {
		t.Fatal("expected canonical registration")
	}
	if _, err := d.Dispatch(Event{Command: " :Report:Building: "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != ":REPORT:BUILDING:" {
		t.Errorf("handler saw %q", seen)
	}
}

func TestDispatcher_RegisterReplaces(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":STATUS:", func(Event) (any, error) { return "old", nil })
	d.Register(":STATUS:", func(Event) (any, error) { return "new", nil })

	result, _ := d.Dispatch(Event{Command: ":STATUS:"})
	if result != "new" {
		t.Errorf("expected replacement handler, got %v", result)
	}
	if n := len(d.Commands()); n != 1 {
		t.Errorf("expected 1 command, got %d", n)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":STATUS:", func(e Event) (any, error) {
		return "idle", nil
	}, Logged())

	d.Dispatch(Event{Command: ":STATUS:"})

	if n := logger.count("DEBUG"); n < 2 {
		t.Errorf("expected at least 2 debug messages, got %d", n)
	}
}

func TestDispatcher_UnloggedHandlerIsQuiet(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":STATUS:", func(e Event) (any, error) {
		return nil, errors.New("nope")
	})

	if _, err := d.Dispatch(Event{Command: ":STATUS:"}); err == nil {
		t.Error("expected handler error")
	}
	if n := len(logger.messages); n != 0 {
		t.Errorf("expected no log messages, got %d", n)
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":REPORT:VEHICLE:", func(e Event) (any, error) {
		return nil, fmt.Errorf("job in progress")
	}, Logged())

	d.Dispatch(Event{Command: ":REPORT:VEHICLE:"})

	if logger.count("ERROR") == 0 {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasHandlerAndCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":REPORT:SEGMENT:", func(e Event) (any, error) { return nil, nil })
	d.Register(":REPORT:BUILDING:", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler(":REPORT:SEGMENT:") {
		t.Error("expected handler to exist")
	}
	if d.HasHandler(":NOT_EXISTS:") {
		t.Error("expected handler to not exist")
	}

	cmds := d.Commands()
	if len(cmds) != 2 || cmds[0] != ":REPORT:BUILDING:" || cmds[1] != ":REPORT:SEGMENT:" {
		t.Errorf("unexpected commands %v", cmds)
	}
}

func TestDispatcher_Help(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":REPORT:SEGMENT:", func(e Event) (any, error) { return nil, nil }, Describe("<segment>"))
	d.Register(":STATUS:", func(e Event) (any, error) { return nil, nil })

	help := d.Help()
	if len(help) != 2 {
		t.Fatalf("expected 2 entries, got %v", help)
	}
	if help[":REPORT:SEGMENT:"] != "<segment>" {
		t.Errorf("unexpected description %q", help[":REPORT:SEGMENT:"])
	}
	if desc, ok := help[":STATUS:"]; !ok || desc != "" {
		t.Errorf("expected empty description for :STATUS:, got %q", desc)
	}
}
