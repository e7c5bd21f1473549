package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}

// SnapshotContext returns a ContextProvider that tags records with the
// name of the snapshot being analyzed, if any.
func SnapshotContext(name func() string) ContextProvider {
	return func() []slog.Attr {
		if n := name(); n != "" {
			return []slog.Attr{slog.String("snapshot", n)}
		}
		return nil
	}
}
