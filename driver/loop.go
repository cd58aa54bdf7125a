package driver

import (
	"github.com/ezrec/tickcpu/cpu"
)

// Loop drives a stepper from a plain loop.
type Loop struct {
	stepper cpu.Stepper
	peers   []Clocked
}

var _ Driver = (*Loop)(nil)

// NewLoop creates a loop driver.
func NewLoop(stepper cpu.Stepper, peers ...Clocked) *Loop {
	return &Loop{stepper: stepper, peers: peers}
}

// Name of the driver.
func (drv *Loop) Name() string {
	return LOOP
}

// Run advances the stepper until count more instructions retire.
func (drv *Loop) Run(count int) (err error) {
	if count < 0 {
		err = ErrCount
		return
	}

	for range count {
		for {
			status := drv.stepper.Advance()
			clock(drv.peers)
			if status == cpu.STATUS_COMPLETE {
				break
			}
		}
	}

	return
}
