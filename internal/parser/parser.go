// Package parser converts command arguments into typed values.
package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/TrafficReport/analyzer/internal/util"
)

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// Callers that build commands from scripting front ends often serialize numbers as floats.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxUint64 {
		return 0, fmt.Errorf("%q is not a whole non-negative number", s)
	}
	return uint64(f), nil
}

func clean(s string) string {
	return util.TrimQuotes(strings.TrimSpace(s))
}

// ParseHandle parses a vehicle, segment, node or building handle.
func ParseHandle(s string) (uint16, error) {
	v, err := parseUintFromFloat(clean(s))
	if err != nil {
		return 0, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	if v > math.MaxUint16 {
		return 0, fmt.Errorf("handle %d out of range", v)
	}
	return uint16(v), nil
}

// ParsePathHandle parses a path unit handle.
func ParsePathHandle(s string) (uint32, error) {
	v, err := parseUintFromFloat(clean(s))
	if err != nil {
		return 0, fmt.Errorf("invalid path handle %q: %w", s, err)
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("path handle %d out of range", v)
	}
	return uint32(v), nil
}

// ParseToggle accepts on/off, true/false, yes/no and 1/0.
func ParseToggle(s string) (bool, error) {
	switch strings.ToLower(clean(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid toggle %q", s)
}

// HandleArg parses args[i] as a handle.
func HandleArg(args []string, i int) (uint16, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d: expected handle", i+1)
	}
	return ParseHandle(args[i])
}
