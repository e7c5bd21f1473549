package logging

import (
	"fmt"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogWriter connects a GELF UDP writer to addr (host:port).
func NewGraylogWriter(addr, facility string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to graylog at %s: %w", addr, err)
	}
	if facility != "" {
		w.Facility = facility
	}
	return w, nil
}
