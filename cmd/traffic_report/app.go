package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/TrafficReport/analyzer/internal/config"
	"github.com/TrafficReport/analyzer/internal/database"
	"github.com/TrafficReport/analyzer/internal/geo"
	"github.com/TrafficReport/analyzer/internal/logging"
	intOtel "github.com/TrafficReport/analyzer/internal/otel"
	"github.com/TrafficReport/analyzer/internal/store"
	"github.com/TrafficReport/analyzer/internal/store/memory"
	"github.com/TrafficReport/analyzer/internal/store/snapshot"
	"github.com/TrafficReport/analyzer/internal/util"
	"github.com/TrafficReport/analyzer/pkg/core"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Store types besides the SQL ones handled by the database package.
const storeMemory = "memory"

// app carries the process-wide services every command shares.
type app struct {
	configDir        string
	logLevel         string
	snapshotOverride string

	start   time.Time
	slog    *logging.SlogManager
	log     *slog.Logger
	dbLog   zerolog.Logger
	logFile *os.File
	otel    *intOtel.Provider
	graylog io.Closer

	snapshotName atomic.Value
}

func newApp(start time.Time) *app {
	a := &app{
		start: start,
		slog:  logging.NewSlogManager(),
		dbLog: zerolog.Nop(),
	}
	a.snapshotName.Store("")
	// stdout is reserved for command output
	a.slog.SetupWithOptions(logging.Options{File: os.Stderr, Level: "info"})
	a.log = a.slog.Logger()
	return a
}

func (a *app) currentSnapshot() string {
	return a.snapshotName.Load().(string)
}

// setup loads .env and config, then moves logging to the session log file.
func (a *app) setup() error {
	if err := godotenv.Load(filepath.Join(a.configDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.log.Warn("Failed to load .env file", "error", err)
	}

	if err := config.Load(a.configDir); err != nil {
		a.log.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.log.Info("Loaded config", "file", viper.ConfigFileUsed())
	}
	if a.logLevel != "" {
		viper.Set("logLevel", a.logLevel)
	}
	if a.snapshotOverride != "" {
		viper.Set("store.snapshot", a.snapshotOverride)
	}

	logsDir := config.GetString("logsDir")
	if err := util.EnsureDir(logsDir); err != nil {
		return err
	}
	logPath := logging.LogFilePath(logsDir, ExtensionName, a.start)
	if err := util.BackupExisting(logPath); err != nil {
		a.log.Warn("Failed to move previous log file", "error", err, "path", logPath)
	}
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		a.log.Error("Failed to create/open log file!", "error", err, "path", logPath)
	} else {
		a.logFile = f
	}

	level := config.GetString("logLevel")
	opts := logging.Options{
		File:    os.Stderr,
		Level:   level,
		Context: logging.SnapshotContext(a.currentSnapshot),
	}
	if a.logFile != nil {
		opts.File = a.logFile
		a.dbLog = logging.NewZerolog(a.logFile, level)
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		a.otel, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: CurrentVersion,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      a.logFile,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
			Metrics:        otelCfg.Metrics,
			MetricInterval: otelCfg.MetricsInterval,
		})
		if err != nil {
			a.log.Error("Failed to initialize OTel provider", "error", err)
		} else {
			opts.Provider = a.otel.LoggerProvider()
		}
	}

	if config.GetBool("graylog.enabled") {
		w, err := logging.NewGraylogWriter(config.GetString("graylog.address"), ExtensionName)
		if err != nil {
			a.log.Error("Failed to connect to Graylog", "error", err)
		} else {
			a.graylog = w
			opts.Graylog = w
		}
	}

	a.slog.SetupWithOptions(opts)
	a.log = a.slog.Logger()
	a.log.Info("Logging to file", "path", logPath, "version", CurrentVersion, "build", BuildDate)

	config.Watch(func(file string) {
		a.slog.SetLevel(config.GetString("logLevel"))
		a.log.Info("Config reloaded", "file", file)
	})
	return nil
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.slog.Flush(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "log flush failed:", err)
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "otel shutdown failed:", err)
		}
	}
	if a.graylog != nil {
		_ = a.graylog.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// openDB connects to the SQL snapshot store. Any store type other than
// postgres uses the local SQLite file.
func (a *app) openDB() (*database.Manager, error) {
	cfg := config.GetStoreConfig()
	dbType := database.TypeSQLite
	if cfg.Type == database.TypePostgres {
		dbType = database.TypePostgres
	}

	m := database.NewManager(config.GetDBConfig(), cfg.SQLitePath, a.dbLog)
	if err := m.Connect(dbType); err != nil {
		return nil, fmt.Errorf("connecting to %s store: %w", dbType, err)
	}
	if err := m.Setup(); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

// openStore returns the tables reports are computed from.
func (a *app) openStore(ctx context.Context) (store.Provider, func() error, error) {
	cfg := config.GetStoreConfig()

	var (
		s    *memory.Store
		snap *core.Snapshot
		err  error
	)
	switch cfg.Type {
	case storeMemory, "":
		s, snap, err = loadMemoryStore(cfg.Snapshot)
	case database.TypeSQLite, database.TypePostgres:
		var m *database.Manager
		m, err = a.openDB()
		if err != nil {
			return nil, nil, err
		}
		s, snap, err = snapshot.Load(ctx, m.DB, cfg.Snapshot)
		if closeErr := m.Close(); closeErr != nil {
			a.log.Warn("Failed to close database", "error", closeErr)
		}
	default:
		err = fmt.Errorf("unsupported store type %q", cfg.Type)
	}
	if err != nil {
		return nil, nil, err
	}

	a.snapshotName.Store(snap.Name)
	a.log.Info("Store ready",
		"type", cfg.Type,
		"vehicles", len(snap.Vehicles),
		"pathUnits", len(snap.PathUnits),
		"segments", len(snap.Segments),
		"nodes", len(snap.Nodes),
	)
	return s, s.Close, nil
}

// loadMemoryStore reads a JSON snapshot file, or generates the default
// synthetic network when path is empty.
func loadMemoryStore(path string) (*memory.Store, *core.Snapshot, error) {
	if path == "" {
		s, err := memory.Generate(memory.DefaultGenerateOptions)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Snapshot("generated"), nil
	}

	snap, err := readSnapshotFile(path)
	if err != nil {
		return nil, nil, err
	}
	s, err := memory.FromSnapshot(snap)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return s, snap, nil
}

func readSnapshotFile(path string) (*core.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	var snap core.Snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	if snap.Name == "" {
		snap.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &snap, nil
}

// projector returns nil when no export origin is configured.
func projector() (*geo.Projector, error) {
	cfg := config.GetExportConfig()
	if cfg.OriginLat == 0 && cfg.OriginLon == 0 {
		return nil, nil
	}
	return geo.NewProjector(cfg.OriginLon, cfg.OriginLat)
}
