// pkg/core/network.go
package core

// Position3D represents a world-space coordinate
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"` // height
	Z float64 `json:"z"`
}

// Add returns p+o.
func (p Position3D) Add(o Position3D) Position3D {
	return Position3D{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// Sub returns p-o.
func (p Position3D) Sub(o Position3D) Position3D {
	return Position3D{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// Scale returns p*f.
func (p Position3D) Scale(f float64) Position3D {
	return Position3D{X: p.X * f, Y: p.Y * f, Z: p.Z * f}
}

// Node is a junction or end point of the road network.
type Node struct {
	ID       uint16     `json:"id"`
	Position Position3D `json:"position"`
}

// Segment is a road piece between two nodes.
type Segment struct {
	ID        uint16 `json:"id"`
	StartNode uint16 `json:"startNode"`
	EndNode   uint16 `json:"endNode"`
}
