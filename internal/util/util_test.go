package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no quotes", "hello", "hello"},
		{"double quoted", `"hello"`, "hello"},
		{"single quotes only", "'hello'", "'hello'"},
		{"quotes in middle", `he"llo`, `he"llo`},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TrimQuotes(tt.input))
		})
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, EnsureDir(""))
}

func TestBackupExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic.log")

	// nothing to move
	require.NoError(t, BackupExisting(path))

	require.NoError(t, os.WriteFile(path, []byte("first"), 0644))
	require.NoError(t, BackupExisting(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	b, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "first", string(b))
}
