package database

import (
	"path/filepath"
	"testing"

	"github.com/TrafficReport/analyzer/internal/config"
	"github.com/TrafficReport/analyzer/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.db")
	m := NewManager(config.DBConfig{}, path, zerolog.Nop())
	require.NoError(t, m.Connect(TypeSQLite))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestConnect_SQLite(t *testing.T) {
	m := newSQLiteManager(t)

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
	assert.NoError(t, m.Ping())
}

func TestSetup_CreatesTables(t *testing.T) {
	m := newSQLiteManager(t)
	require.NoError(t, m.Setup())

	for _, table := range model.DatabaseModels {
		assert.True(t, m.DB.Migrator().HasTable(table))
	}

	// migrations are repeatable
	assert.NoError(t, m.Setup())
}

func TestConnect_PostgresFallsBackToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.db")
	m := NewManager(config.DBConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "traffic",
	}, path, zerolog.Nop())
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Connect(TypePostgres))
	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
}

func TestConnect_UnknownType(t *testing.T) {
	m := NewManager(config.DBConfig{}, "", zerolog.Nop())
	assert.Error(t, m.Connect("mysql"))
}

func TestSetup_NotConnected(t *testing.T) {
	m := NewManager(config.DBConfig{}, "", zerolog.Nop())
	assert.Error(t, m.Setup())
	assert.Error(t, m.Ping())
	assert.NoError(t, m.Close())
}
