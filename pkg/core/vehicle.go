// pkg/core/vehicle.go
package core

// VehicleFlags is the simulation's vehicle state bitset.
type VehicleFlags uint32

const (
	VehicleCreated VehicleFlags = 1 << iota
	VehicleDeleted
	VehicleSpawned
	VehicleWaitingPath
	VehicleStopped
	VehicleLeaving
	VehicleArriving
)

// Has reports whether all bits of f are set.
func (v VehicleFlags) Has(f VehicleFlags) bool {
	return v&f == f
}

// Vehicle is one slot of the vehicle table.
// ID is the table handle; an unused slot has no flags and no path.
type Vehicle struct {
	ID             uint16       `json:"id"`
	Name           string       `json:"name,omitempty"`
	Flags          VehicleFlags `json:"flags"`
	Path           uint32       `json:"path"` // first PathUnit of the journey, 0 = none
	SourceBuilding uint16       `json:"sourceBuilding"`
	TargetBuilding uint16       `json:"targetBuilding"`
}

// Deleted reports whether the slot has been released by the simulation.
func (v Vehicle) Deleted() bool {
	return v.Flags.Has(VehicleDeleted)
}

// HasPath reports whether the vehicle references a path chain.
func (v Vehicle) HasPath() bool {
	return v.Path != 0
}

// Routable reports whether a report may consider this vehicle at all.
func (v Vehicle) Routable() bool {
	return !v.Deleted() && v.HasPath()
}
