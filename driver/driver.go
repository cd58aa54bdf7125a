// Package driver runs a cpu.Stepper for a number of instructions.
//
// Every driver resumes the stepper once per clock cycle, and clocks each of
// its peers once per cycle after the stepper, so other clocked subsystems
// observe the processor's progress cycle by cycle. The drivers differ only
// in how the suspended instruction is represented:
//
//   - "loop" calls Advance from a plain loop.
//   - "task" runs the processor as a task of a cooperative Scheduler,
//     resumed once per scheduler tick.
//   - "coroutine" runs the processor inside a pull iterator, whose paused
//     call stack holds the instruction in flight.
package driver

import (
	"maps"
	"slices"

	"github.com/ezrec/tickcpu/cpu"
)

// Driver runs a stepper.
type Driver interface {
	// Name of the driving strategy.
	Name() string
	// Run advances the stepper until count more instructions retire.
	Run(count int) error
}

// Clocked is a subsystem clocked in step with the processor.
type Clocked interface {
	Clock()
}

// Counter is a Clocked peer that counts the cycles it observes.
type Counter struct {
	Cycles uint64
}

var _ Clocked = (*Counter)(nil)

// Clock counts a cycle.
func (ctr *Counter) Clock() {
	ctr.Cycles++
}

// Factory creates a driver of a stepper and its peers.
type Factory func(stepper cpu.Stepper, peers ...Clocked) Driver

var factories = map[string]Factory{
	LOOP:      func(stepper cpu.Stepper, peers ...Clocked) Driver { return NewLoop(stepper, peers...) },
	TASK:      func(stepper cpu.Stepper, peers ...Clocked) Driver { return NewTask(stepper, peers...) },
	COROUTINE: func(stepper cpu.Stepper, peers ...Clocked) Driver { return NewCoroutine(stepper, peers...) },
}

// Driver names.
const (
	LOOP      = "loop"
	TASK      = "task"
	COROUTINE = "coroutine"
)

// Names returns the names of all drivers, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(factories))
}

// New creates a driver by name.
func New(name string, stepper cpu.Stepper, peers ...Clocked) (drv Driver, err error) {
	factory, ok := factories[name]
	if !ok {
		err = ErrDriverUnknown(name)
		return
	}

	drv = factory(stepper, peers...)

	return
}

// clock clocks every peer once.
func clock(peers []Clocked) {
	for _, peer := range peers {
		peer.Clock()
	}
}
