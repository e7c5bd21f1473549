// pkg/core/path.go
package core

import "fmt"

// MaxPathPositions is the number of positions a single PathUnit can hold.
const MaxPathPositions = 12

// OffsetScale maps Position.Offset onto 0.0..1.0.
const OffsetScale = 255.0

// Position is one waypoint of a path: a segment and how far along it.
// Segment 0 marks a position with no geometric meaning (lane changes, turns).
type Position struct {
	Segment uint16 `json:"segment"`
	Offset  uint8  `json:"offset"`
	Lane    uint8  `json:"lane"`
}

// Fraction returns Offset as 0.0..1.0 measured from the segment's start node.
func (p Position) Fraction() float64 {
	return float64(p.Offset) / OffsetScale
}

// PathUnit is one link of a vehicle's path chain.
type PathUnit struct {
	ID            uint32                     `json:"id"`
	PositionCount uint8                      `json:"positionCount"`
	Positions     [MaxPathPositions]Position `json:"positions"`
	Next          uint32                     `json:"next"` // 0 = end of chain
}

// Position returns the i-th used position of the unit.
func (u PathUnit) Position(i int) (Position, error) {
	if i < 0 || i >= int(u.PositionCount) || i >= MaxPathPositions {
		return Position{}, fmt.Errorf("position %d out of range for path unit %d (count %d)", i, u.ID, u.PositionCount)
	}
	return u.Positions[i], nil
}

// Used returns the used positions in order. Counts above capacity are clamped.
func (u PathUnit) Used() []Position {
	n := int(u.PositionCount)
	if n > MaxPathPositions {
		n = MaxPathPositions
	}
	return u.Positions[:n]
}

// NewPathUnit builds a unit from positions, truncating to capacity.
func NewPathUnit(id uint32, next uint32, positions ...Position) PathUnit {
	u := PathUnit{ID: id, Next: next}
	n := copy(u.Positions[:], positions)
	u.PositionCount = uint8(n)
	return u
}

// Path is a reconstructed route polyline in travel order.
type Path []Position3D
