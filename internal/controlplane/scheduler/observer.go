package scheduler

import "github.com/VerteraIO/taskbalancer/internal/controlplane/registry"

// Event describes a mutation that was applied.
type Event struct {
	Op     Op
	NodeID int
	TaskID int
	// Moved lists tasks returned to pending by an unregister.
	Moved []int
	// Plan is set for OpSchedule.
	Plan *Plan
	// State is the registry content right after the mutation.
	State registry.State
}

// Observer is notified after every successful mutation, outside the
// registry lock. Implementations must not call back into the Service
// synchronously.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }
