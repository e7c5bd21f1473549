// Package traversal walks the singly linked PathUnit chains of vehicle journeys.
package traversal

import (
	"errors"
	"fmt"

	"github.com/TrafficReport/analyzer/internal/store"
	"github.com/TrafficReport/analyzer/pkg/core"
)

// DefaultMaxUnits bounds a walk when no limit is configured.
const DefaultMaxUnits = 1 << 16

var (
	// ErrCycle is returned when a chain links back to a unit already visited.
	ErrCycle = errors.New("path chain loops")
	// ErrChainTooLong is returned when a chain exceeds the walker's unit limit.
	ErrChainTooLong = errors.New("path chain exceeds unit limit")
)

// ChainError describes where a malformed chain was detected.
type ChainError struct {
	Start   uint32 // first unit of the walk
	At      uint32 // unit that triggered the error
	Visited int    // units visited before the error
	Err     error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("path %d: %v at unit %d after %d units", e.Start, e.Err, e.At, e.Visited)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// Walker reads path chains from a store.
type Walker struct {
	store    store.Provider
	maxUnits int
}

// NewWalker returns a walker over p. maxUnits <= 0 selects DefaultMaxUnits.
func NewWalker(p store.Provider, maxUnits int) *Walker {
	if maxUnits <= 0 {
		maxUnits = DefaultMaxUnits
	}
	return &Walker{store: p, maxUnits: maxUnits}
}

// MaxUnits returns the unit limit of a single walk.
func (w *Walker) MaxUnits() int {
	return w.maxUnits
}

// Walk calls visit for each unit of the chain starting at start, in chain
// order, until the chain ends or visit returns false. Each unit is visited
// at most once.
func (w *Walker) Walk(start uint32, visit func(core.PathUnit) bool) error {
	visited := make(map[uint32]struct{})
	id := start
	for id != 0 {
		if _, seen := visited[id]; seen {
			return &ChainError{Start: start, At: id, Visited: len(visited), Err: ErrCycle}
		}
		if len(visited) >= w.maxUnits {
			return &ChainError{Start: start, At: id, Visited: len(visited), Err: ErrChainTooLong}
		}

		unit, err := w.store.PathUnit(id)
		if err != nil {
			if id == start {
				return err
			}
			return fmt.Errorf("path %d after %d units: %w", start, len(visited), err)
		}
		visited[id] = struct{}{}

		if !visit(unit) {
			return nil
		}
		id = unit.Next
	}
	return nil
}

// Positions calls visit for every used position along the chain, in order,
// until the chain ends or visit returns false.
func (w *Walker) Positions(start uint32, visit func(core.Position) bool) error {
	return w.Walk(start, func(u core.PathUnit) bool {
		for _, p := range u.Used() {
			if !visit(p) {
				return false
			}
		}
		return true
	})
}

// Any reports whether some position along the chain satisfies match.
// It stops at the first match.
func (w *Walker) Any(start uint32, match func(core.Position) bool) (bool, error) {
	found := false
	err := w.Positions(start, func(p core.Position) bool {
		if match(p) {
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// ContainsSegment reports whether the chain ever uses segment.
func (w *Walker) ContainsSegment(start uint32, segment uint16) (bool, error) {
	return w.Any(start, func(p core.Position) bool {
		return p.Segment == segment
	})
}
