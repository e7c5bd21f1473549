// Package dump writes paths and reports to files for inspection.
package dump

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/TrafficReport/analyzer/internal/util"
	"github.com/TrafficReport/analyzer/pkg/core"
)

// DefaultPathFile is the file name used for single-vehicle dumps.
const DefaultPathFile = "path.txt"

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WritePath writes one "x y z" line per point.
func WritePath(w io.Writer, path core.Path) error {
	bw := bufio.NewWriter(w)
	for _, p := range path {
		if _, err := fmt.Fprintf(bw, "%s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// PathToFile writes path to dir/name, replacing any previous dump.
func PathToFile(dir, name string, path core.Path) (string, error) {
	if name == "" {
		name = DefaultPathFile
	}
	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}
	target := filepath.Join(dir, name)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("creating path dump: %w", err)
	}
	if err := WritePath(f, path); err != nil {
		f.Close()
		return "", fmt.Errorf("writing path dump: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing path dump: %w", err)
	}
	return target, nil
}

// FileDumper dumps vehicle paths to a fixed file.
type FileDumper struct {
	Dir  string
	Name string
}

// DumpPath implements analyzer.Dumper.
func (d FileDumper) DumpPath(_ uint16, path core.Path) error {
	_, err := PathToFile(d.Dir, d.Name, path)
	return err
}

// Dumper is anything that can dump a vehicle path.
type Dumper interface {
	DumpPath(vehicle uint16, path core.Path) error
}

// Toggle forwards to a Dumper only while enabled.
type Toggle struct {
	next    Dumper
	enabled atomic.Bool
}

// NewToggle wraps next.
func NewToggle(next Dumper, enabled bool) *Toggle {
	t := &Toggle{next: next}
	t.enabled.Store(enabled)
	return t
}

func (t *Toggle) SetEnabled(on bool) { t.enabled.Store(on) }
func (t *Toggle) Enabled() bool      { return t.enabled.Load() }

// DumpPath dumps through the wrapped Dumper if enabled.
func (t *Toggle) DumpPath(vehicle uint16, path core.Path) error {
	if !t.enabled.Load() {
		return nil
	}
	return t.next.DumpPath(vehicle, path)
}
