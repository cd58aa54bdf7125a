package driver

import (
	"iter"

	"github.com/ezrec/tickcpu/cpu"
)

// CoroutineDriver drives a stepper from inside a pull iterator.
type CoroutineDriver struct {
	stepper cpu.Stepper
	peers   []Clocked
}

var _ Driver = (*CoroutineDriver)(nil)

// NewCoroutine creates a stackful coroutine driver.
func NewCoroutine(stepper cpu.Stepper, peers ...Clocked) *CoroutineDriver {
	return &CoroutineDriver{stepper: stepper, peers: peers}
}

// Name of the driver.
func (drv *CoroutineDriver) Name() string {
	return COROUTINE
}

// cycles executes count instructions, suspending after every cycle.
func (drv *CoroutineDriver) cycles(count int) iter.Seq[cpu.Status] {
	return func(yield func(cpu.Status) bool) {
		instruction := func() bool {
			for {
				status := drv.stepper.Advance()
				if !yield(status) {
					return false
				}
				if status == cpu.STATUS_COMPLETE {
					return true
				}
			}
		}

		for range count {
			if !instruction() {
				return
			}
		}
	}
}

// Run advances the stepper until count more instructions retire.
func (drv *CoroutineDriver) Run(count int) (err error) {
	if count < 0 {
		err = ErrCount
		return
	}

	next, stop := iter.Pull(drv.cycles(count))
	defer stop()

	for {
		_, ok := next()
		if !ok {
			break
		}
		clock(drv.peers)
	}

	return
}
