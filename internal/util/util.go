// Package util provides small helpers shared across the analyzer.
package util

import (
	"fmt"
	"os"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// EnsureDir creates dir and any parents if it does not exist.
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

// BackupExisting moves path to path.old if it exists, so a new file can
// take its place.
func BackupExisting(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Rename(path, path+".old")
}
