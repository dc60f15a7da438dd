// Package opstate holds the operational state shared between the volume
// orchestrator and the status indicator.
package opstate

import (
	"sync/atomic"
)

// State is the operational state of the device.
type State int32

const (
	// Idle: waiting for a volume.
	Idle State = iota
	// Encrypting: a volume is being processed.
	Encrypting
	// Error: the last volume failed. Cleared by the next successful run.
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Encrypting:
		return "ENCRYPTING"
	case Error:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Cell is a concurrency-safe holder for a State. Readers poll Get, or wait
// on Changed to be woken up after a Set. The zero value is not usable, call
// NewCell.
type Cell struct {
	v       atomic.Int32
	changed chan struct{}
}

// NewCell returns a Cell in the Idle state.
func NewCell() *Cell {
	return &Cell{changed: make(chan struct{}, 1)}
}

// Get returns the current state.
func (c *Cell) Get() State {
	return State(c.v.Load())
}

// Set stores "s" and notifies a waiter. Notifications coalesce: a waiter
// that was not listening sees at most one pending wakeup.
func (c *Cell) Set(s State) {
	old := State(c.v.Swap(int32(s)))
	if old == s {
		return
	}
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// Changed returns the notification channel. There is a single slot, so only
// one consumer should wait on it.
func (c *Cell) Changed() <-chan struct{} {
	return c.changed
}
