package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// swapped by tests
var osStdout = os.Stdout

// InstrumentationName is the otelslog scope used for analyzer logs.
const InstrumentationName = "traffic-report"

// Options configures SlogManager.SetupWithOptions.
type Options struct {
	// File receives text logs. When nil, logs go to stdout instead.
	File  io.Writer
	Level string
	// Provider enables the OTel bridge when set.
	Provider *sdklog.LoggerProvider
	// Graylog receives JSON records, typically a *gelf.Writer.
	Graylog io.Writer
	// Context adds dynamic attributes to every record.
	Context ContextProvider
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger
	level  slog.LevelVar

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system with file and optional OTel output.
// If provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	m.SetupWithOptions(Options{File: file, Level: level, Provider: provider})
}

// SetupWithOptions initializes the logging system.
func (m *SlogManager) SetupWithOptions(opts Options) {
	m.level.Set(parseLevel(opts.Level))
	m.logProvider = opts.Provider

	// RFC3339 UTC timestamps
	handlerOpts := &slog.HandlerOptions{
		Level: &m.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	if opts.Graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.Graylog, handlerOpts))
	}

	if opts.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(opts.Provider)))
	}

	m.logger = slog.New(NewContextHandler(NewMultiHandler(handlers...), opts.Context))
	m.logger.Info("Logging initialized", "level", m.level.Level().String())
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// SetLevel changes the level of the text and Graylog handlers at runtime.
func (m *SlogManager) SetLevel(level string) {
	lvl := parseLevel(level)
	if lvl == m.level.Level() {
		return
	}
	m.level.Set(lvl)
	if m.logger != nil {
		m.logger.Info("Log level changed", "level", lvl.String())
	}
}

// Level returns the current level.
func (m *SlogManager) Level() slog.Level {
	return m.level.Level()
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
