// pkg/core/snapshot.go
package core

import (
	"fmt"
	"time"
)

// MaxHandles is the number of distinct 16-bit vehicle, segment and node handles.
const MaxHandles = 1 << 16

// Capacities are the fixed sizes of the simulation's tables.
type Capacities struct {
	Vehicles  int `json:"vehicles"`
	PathUnits int `json:"pathUnits"`
	Segments  int `json:"segments"`
	Nodes     int `json:"nodes"`
}

// DefaultCapacities match the host simulation's buffer sizes.
var DefaultCapacities = Capacities{
	Vehicles:  16384,
	PathUnits: 262144,
	Segments:  36864,
	Nodes:     32768,
}

// Validate rejects tables that 16-bit handles cannot address.
func (c Capacities) Validate() error {
	for _, t := range []struct {
		name string
		size int
	}{
		{"vehicle", c.Vehicles},
		{"segment", c.Segments},
		{"node", c.Nodes},
	} {
		if t.size < 0 || t.size > MaxHandles {
			return fmt.Errorf("%s capacity %d outside 0..%d", t.name, t.size, MaxHandles)
		}
	}
	if c.PathUnits < 0 {
		return fmt.Errorf("path unit capacity %d is negative", c.PathUnits)
	}
	return nil
}

// Snapshot is a portable dump of the tables a report reads.
// Only live records are listed.
type Snapshot struct {
	Name       string     `json:"name"`
	CapturedAt time.Time  `json:"capturedAt"`
	Capacities Capacities `json:"capacities"`
	Vehicles   []Vehicle  `json:"vehicles"`
	PathUnits  []PathUnit `json:"pathUnits"`
	Segments   []Segment  `json:"segments"`
	Nodes      []Node     `json:"nodes"`
}
