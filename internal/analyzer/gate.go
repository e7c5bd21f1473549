package analyzer

import "sync/atomic"

// GateState is the state of a single-flight gate.
type GateState int32

const (
	Idle GateState = iota
	Busy
)

func (s GateState) String() string {
	if s == Busy {
		return "busy"
	}
	return "idle"
}

// Gate admits one job at a time and rejects, rather than queues, the rest.
type Gate struct {
	state atomic.Int32
}

// TryAcquire moves the gate from Idle to Busy. It returns false if the gate
// was already Busy.
func (g *Gate) TryAcquire() bool {
	return g.state.CompareAndSwap(int32(Idle), int32(Busy))
}

// Release returns the gate to Idle.
func (g *Gate) Release() {
	g.state.Store(int32(Idle))
}

// State returns the current state.
func (g *Gate) State() GateState {
	return GateState(g.state.Load())
}
