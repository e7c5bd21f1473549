// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/TrafficReport/analyzer/pkg/core"
)

// ErrNotFound is matched by every failed handle lookup.
var ErrNotFound = errors.New("record not found")

// ErrUnavailable is returned when the whole store cannot be read.
var ErrUnavailable = errors.New("store unavailable")

// Kind names the table a handle belongs to.
type Kind string

const (
	KindVehicle  Kind = "vehicle"
	KindPathUnit Kind = "path unit"
	KindSegment  Kind = "segment"
	KindNode     Kind = "node"
)

// NotFoundError is returned when a handle does not resolve to a live record.
type NotFoundError struct {
	Kind   Kind
	Handle uint32
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.Handle)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound builds a NotFoundError.
func NotFound(kind Kind, handle uint32) error {
	return &NotFoundError{Kind: kind, Handle: handle}
}

// Provider is read access to a snapshot of the simulation's tables.
// Lookups are O(1) by handle and never mutate the snapshot.
type Provider interface {
	// Ping returns ErrUnavailable (wrapped) when no table can be read.
	Ping(ctx context.Context) error

	// VehicleCapacity is the size of the vehicle table; handles are 0..cap-1.
	VehicleCapacity() int

	Vehicle(id uint16) (core.Vehicle, error)
	PathUnit(id uint32) (core.PathUnit, error)
	Segment(id uint16) (core.Segment, error)
	Node(id uint16) (core.Node, error)
}

// SegmentEndpoints resolves the world positions of a segment's start and end node.
func SegmentEndpoints(p Provider, segment uint16) (start, end core.Position3D, err error) {
	seg, err := p.Segment(segment)
	if err != nil {
		return start, end, err
	}
	a, err := p.Node(seg.StartNode)
	if err != nil {
		return start, end, fmt.Errorf("segment %d start: %w", segment, err)
	}
	b, err := p.Node(seg.EndNode)
	if err != nil {
		return start, end, fmt.Errorf("segment %d end: %w", segment, err)
	}
	return a.Position, b.Position, nil
}
