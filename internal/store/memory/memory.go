// internal/store/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/TrafficReport/analyzer/internal/store"
	"github.com/TrafficReport/analyzer/pkg/core"
)

// Store holds the simulation tables in fixed-capacity slices indexed by handle.
type Store struct {
	caps core.Capacities

	vehicles  []core.Vehicle
	pathUnits []core.PathUnit
	segments  []core.Segment
	nodes     []core.Node
	nodeLive  []bool

	closed bool
	mu     sync.RWMutex
}

// Compile-time interface check
var _ store.Provider = (*Store)(nil)

// New allocates empty tables of the given capacities.
// Zero capacities fall back to core.DefaultCapacities; 16-bit tables are
// capped at core.MaxHandles.
func New(caps core.Capacities) *Store {
	if caps.Vehicles <= 0 {
		caps.Vehicles = core.DefaultCapacities.Vehicles
	}
	if caps.PathUnits <= 0 {
		caps.PathUnits = core.DefaultCapacities.PathUnits
	}
	if caps.Segments <= 0 {
		caps.Segments = core.DefaultCapacities.Segments
	}
	if caps.Nodes <= 0 {
		caps.Nodes = core.DefaultCapacities.Nodes
	}
	caps.Vehicles = min(caps.Vehicles, core.MaxHandles)
	caps.Segments = min(caps.Segments, core.MaxHandles)
	caps.Nodes = min(caps.Nodes, core.MaxHandles)

	s := &Store{
		caps:      caps,
		vehicles:  make([]core.Vehicle, caps.Vehicles),
		pathUnits: make([]core.PathUnit, caps.PathUnits),
		segments:  make([]core.Segment, caps.Segments),
		nodes:     make([]core.Node, caps.Nodes),
		nodeLive:  make([]bool, caps.Nodes),
	}
	for i := range s.vehicles {
		s.vehicles[i].ID = uint16(i)
	}
	return s
}

// FromSnapshot builds a store holding the snapshot's records.
func FromSnapshot(snap *core.Snapshot) (*Store, error) {
	if err := snap.Capacities.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot %q: %w", snap.Name, err)
	}
	s := New(snap.Capacities)
	for _, v := range snap.Vehicles {
		if err := s.SetVehicle(v); err != nil {
			return nil, err
		}
	}
	for _, u := range snap.PathUnits {
		if err := s.SetPathUnit(u); err != nil {
			return nil, err
		}
	}
	for _, seg := range snap.Segments {
		if err := s.SetSegment(seg); err != nil {
			return nil, err
		}
	}
	for _, n := range snap.Nodes {
		if err := s.SetNode(n); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Capacities returns the table sizes.
func (s *Store) Capacities() core.Capacities {
	return s.caps
}

// Ping fails once the store has been closed.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("memory store closed: %w", store.ErrUnavailable)
	}
	return nil
}

// Close marks the store unavailable. Lookups keep working on the retained tables.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// VehicleCapacity implements store.Provider.
func (s *Store) VehicleCapacity() int {
	return len(s.vehicles)
}

// Vehicle returns the slot for id. Unused slots are zero vehicles.
func (s *Store) Vehicle(id uint16) (core.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(id) >= len(s.vehicles) {
		return core.Vehicle{}, store.NotFound(store.KindVehicle, uint32(id))
	}
	return s.vehicles[id], nil
}

// PathUnit returns an allocated unit. Handle 0 is never allocated.
func (s *Store) PathUnit(id uint32) (core.PathUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == 0 || int(id) >= len(s.pathUnits) || s.pathUnits[id].ID != id {
		return core.PathUnit{}, store.NotFound(store.KindPathUnit, id)
	}
	return s.pathUnits[id], nil
}

// Segment returns a created segment. Handle 0 is never created.
func (s *Store) Segment(id uint16) (core.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == 0 || int(id) >= len(s.segments) || s.segments[id].ID != id {
		return core.Segment{}, store.NotFound(store.KindSegment, uint32(id))
	}
	return s.segments[id], nil
}

// Node returns a created node.
func (s *Store) Node(id uint16) (core.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(id) >= len(s.nodes) || !s.nodeLive[id] {
		return core.Node{}, store.NotFound(store.KindNode, uint32(id))
	}
	return s.nodes[id], nil
}

// SetVehicle overwrites the vehicle slot v.ID.
func (s *Store) SetVehicle(v core.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(v.ID) >= len(s.vehicles) {
		return fmt.Errorf("vehicle %d exceeds capacity %d", v.ID, len(s.vehicles))
	}
	s.vehicles[v.ID] = v
	return nil
}

// SetPathUnit stores u at handle u.ID.
func (s *Store) SetPathUnit(u core.PathUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		return fmt.Errorf("path unit handle 0 is reserved")
	}
	if int(u.ID) >= len(s.pathUnits) {
		return fmt.Errorf("path unit %d exceeds capacity %d", u.ID, len(s.pathUnits))
	}
	if u.PositionCount > core.MaxPathPositions {
		return fmt.Errorf("path unit %d has %d positions, max %d", u.ID, u.PositionCount, core.MaxPathPositions)
	}
	s.pathUnits[u.ID] = u
	return nil
}

// ReleasePathUnit frees handle id, as the simulation does when a path is dropped.
func (s *Store) ReleasePathUnit(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != 0 && int(id) < len(s.pathUnits) {
		s.pathUnits[id] = core.PathUnit{}
	}
}

// SetSegment stores seg at handle seg.ID.
func (s *Store) SetSegment(seg core.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seg.ID == 0 {
		return fmt.Errorf("segment handle 0 is reserved")
	}
	if int(seg.ID) >= len(s.segments) {
		return fmt.Errorf("segment %d exceeds capacity %d", seg.ID, len(s.segments))
	}
	s.segments[seg.ID] = seg
	return nil
}

// SetNode stores n at handle n.ID.
func (s *Store) SetNode(n core.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(n.ID) >= len(s.nodes) {
		return fmt.Errorf("node %d exceeds capacity %d", n.ID, len(s.nodes))
	}
	s.nodes[n.ID] = n
	s.nodeLive[n.ID] = true
	return nil
}

// Snapshot copies the live records out of the store.
func (s *Store) Snapshot(name string) *core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &core.Snapshot{
		Name:       name,
		Capacities: s.caps,
	}
	for _, v := range s.vehicles {
		if v.Flags != 0 || v.Path != 0 {
			snap.Vehicles = append(snap.Vehicles, v)
		}
	}
	for i, u := range s.pathUnits {
		if i != 0 && u.ID == uint32(i) {
			snap.PathUnits = append(snap.PathUnits, u)
		}
	}
	for i, seg := range s.segments {
		if i != 0 && seg.ID == uint16(i) {
			snap.Segments = append(snap.Segments, seg)
		}
	}
	for i, n := range s.nodes {
		if s.nodeLive[i] {
			snap.Nodes = append(snap.Nodes, n)
		}
	}
	return snap
}
