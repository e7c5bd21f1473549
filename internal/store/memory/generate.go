package memory

import (
	"fmt"
	"math/rand"

	"github.com/TrafficReport/analyzer/pkg/core"
)

// GenerateOptions shapes a synthetic grid network.
type GenerateOptions struct {
	Columns   int     // nodes per row
	Rows      int     // nodes per column
	Spacing   float64 // distance between neighbouring nodes
	Vehicles  int
	Buildings int
	PathHops  int // segments per vehicle journey
	Seed      int64
}

// DefaultGenerateOptions is a small town usable in tests and demos.
var DefaultGenerateOptions = GenerateOptions{
	Columns:   8,
	Rows:      8,
	Spacing:   96,
	Vehicles:  200,
	Buildings: 40,
	PathHops:  30,
	Seed:      1,
}

// gridNode returns the node handle at column c, row r. Node 0 stays unused.
func gridNode(opts GenerateOptions, c, r int) uint16 {
	return uint16(r*opts.Columns + c + 1)
}

// Generate builds a grid road network with vehicles driving random walks on it.
// Every journey is split into chained path units and contains a zero-segment
// marker between consecutive segments, as lane changes do in the simulation.
func Generate(opts GenerateOptions) (*Store, error) {
	if opts.Columns < 2 || opts.Rows < 2 {
		return nil, fmt.Errorf("grid must be at least 2x2, got %dx%d", opts.Columns, opts.Rows)
	}
	nodeCount := opts.Columns*opts.Rows + 1
	segCount := 2*opts.Columns*opts.Rows + 1
	hops := opts.PathHops
	if hops < 1 {
		hops = 1
	}
	unitsPerPath := (2*hops)/core.MaxPathPositions + 1

	caps := core.Capacities{
		Vehicles:  opts.Vehicles + 1,
		PathUnits: opts.Vehicles*unitsPerPath + 1,
		Segments:  segCount,
		Nodes:     nodeCount,
	}
	if err := caps.Validate(); err != nil {
		return nil, fmt.Errorf("grid %dx%d with %d vehicles: %w", opts.Columns, opts.Rows, opts.Vehicles, err)
	}
	s := New(caps)
	rng := rand.New(rand.NewSource(opts.Seed))

	for r := 0; r < opts.Rows; r++ {
		for c := 0; c < opts.Columns; c++ {
			id := gridNode(opts, c, r)
			if err := s.SetNode(core.Node{
				ID:       id,
				Position: core.Position3D{X: float64(c) * opts.Spacing, Y: 0, Z: float64(r) * opts.Spacing},
			}); err != nil {
				return nil, err
			}
		}
	}

	// adjacency: node -> segments leaving it (in either direction)
	adjacent := make(map[uint16][]core.Segment)
	var segID uint16 = 1
	addSegment := func(a, b uint16) error {
		seg := core.Segment{ID: segID, StartNode: a, EndNode: b}
		if err := s.SetSegment(seg); err != nil {
			return err
		}
		adjacent[a] = append(adjacent[a], seg)
		adjacent[b] = append(adjacent[b], seg)
		segID++
		return nil
	}
	for r := 0; r < opts.Rows; r++ {
		for c := 0; c < opts.Columns; c++ {
			if c+1 < opts.Columns {
				if err := addSegment(gridNode(opts, c, r), gridNode(opts, c+1, r)); err != nil {
					return nil, err
				}
			}
			if r+1 < opts.Rows {
				if err := addSegment(gridNode(opts, c, r), gridNode(opts, c, r+1)); err != nil {
					return nil, err
				}
			}
		}
	}

	var unitID uint32 = 1
	for v := 1; v <= opts.Vehicles; v++ {
		positions := make([]core.Position, 0, 2*hops)
		at := gridNode(opts, rng.Intn(opts.Columns), rng.Intn(opts.Rows))
		for h := 0; h < hops; h++ {
			choices := adjacent[at]
			seg := choices[rng.Intn(len(choices))]
			// offset 255 is the end node; driving backwards ends at offset 0
			offset, next := uint8(255), seg.EndNode
			if seg.EndNode == at {
				offset, next = 0, seg.StartNode
			}
			positions = append(positions, core.Position{Segment: seg.ID, Offset: offset, Lane: uint8(rng.Intn(2))})
			if h+1 < hops {
				positions = append(positions, core.Position{})
			}
			at = next
		}

		first := unitID
		for i := 0; i < len(positions); i += core.MaxPathPositions {
			end := i + core.MaxPathPositions
			var next uint32
			if end < len(positions) {
				next = unitID + 1
			} else {
				end = len(positions)
			}
			if err := s.SetPathUnit(core.NewPathUnit(unitID, next, positions[i:end]...)); err != nil {
				return nil, err
			}
			unitID++
		}

		vehicle := core.Vehicle{
			ID:    uint16(v),
			Name:  fmt.Sprintf("Vehicle %d", v),
			Flags: core.VehicleCreated | core.VehicleSpawned,
			Path:  first,
		}
		if opts.Buildings > 0 {
			vehicle.SourceBuilding = uint16(rng.Intn(opts.Buildings) + 1)
			vehicle.TargetBuilding = uint16(rng.Intn(opts.Buildings) + 1)
		}
		if err := s.SetVehicle(vehicle); err != nil {
			return nil, err
		}
	}

	return s, nil
}
