package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/TrafficReport/analyzer/internal/config"
	"github.com/TrafficReport/analyzer/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store types understood by Connect.
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Manager handles database connections and operations.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	SqliteFilePath  string
	Config          config.DBConfig
	Logger          zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(cfg config.DBConfig, sqlitePath string, log zerolog.Logger) *Manager {
	return &Manager{
		Config:         cfg,
		SqliteFilePath: sqlitePath,
		Logger:         log,
	}
}

// Connect opens the store of the given type. Postgres falls back to the
// local SQLite file when it cannot be reached.
func (m *Manager) Connect(storeType string) error {
	var err error

	switch storeType {
	case TypeSQLite:
		m.ShouldSaveLocal = true
		m.DB, err = m.GetSqliteDB(m.SqliteFilePath)
		if err != nil {
			return fmt.Errorf("failed to open SQLite DB: %w", err)
		}
	case TypePostgres:
		m.DB, err = m.GetPostgresDB()
		if err != nil {
			m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
			return m.fallback()
		}
	default:
		return fmt.Errorf("unsupported store type %q", storeType)
	}

	// test connection
	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}

	if err = m.SqlDB.Ping(); err != nil {
		if m.ShouldSaveLocal {
			return fmt.Errorf("failed to validate SQLite connection: %w", err)
		}
		m.Logger.Error().Err(err).Msg("Failed to validate connection, trying SQLite")
		return m.fallback()
	}

	m.Logger.Info().Str("dialect", m.DB.Dialector.Name()).Msg("Connected to database")
	m.IsValid = true
	if !m.ShouldSaveLocal {
		m.SqlDB.SetMaxOpenConns(10)
	}
	return nil
}

func (m *Manager) fallback() error {
	var err error
	m.ShouldSaveLocal = true
	m.DB, err = m.GetSqliteDB(m.SqliteFilePath)
	if err != nil || m.DB == nil {
		m.IsValid = false
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	m.IsValid = true
	return nil
}

// GetPostgresDB returns a connection to the Postgres database.
func (m *Manager) GetPostgresDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		m.Config.Host,
		m.Config.Port,
		m.Config.Username,
		m.Config.Password,
		m.Config.Database,
	)

	m.Logger.Debug().Str("host", m.Config.Host).Str("database", m.Config.Database).
		Msg("Connecting to Postgres DB")

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// GetSqliteDB returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func (m *Manager) GetSqliteDB(path string) (*gorm.DB, error) {
	dsn := path
	if path == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		m.IsValid = false
		return nil, err
	}
	if path == "" {
		m.Logger.Info().Msg("Using local SQLite DB in memory")
	} else {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	}

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// Setup migrates the snapshot tables.
func (m *Manager) Setup() error {
	if m.DB == nil {
		return errors.New("database not connected")
	}
	m.Logger.Info().Msg("Migrating schema")
	if err := m.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// Ping reports whether the connection is still usable.
func (m *Manager) Ping() error {
	if m.SqlDB == nil {
		return errors.New("database not connected")
	}
	return m.SqlDB.Ping()
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	m.IsValid = false
	if m.SqlDB == nil {
		return nil
	}
	return m.SqlDB.Close()
}
