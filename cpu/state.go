package cpu

import (
	"fmt"
)

// Registers are the CPU-visible results of execution.
type Registers struct {
	PC           uint16 `yaml:"pc"`           // Program counter.
	A            uint8  `yaml:"a"`            // Accumulator.
	Y            uint8  `yaml:"y"`            // Index register.
	Cycles       uint64 `yaml:"cycles"`       // Total clock cycles consumed.
	Instructions uint64 `yaml:"instructions"` // Instructions retired.
}

// String returns the registers as a single line.
func (regs Registers) String() string {
	return fmt.Sprintf("pc=%04X a=%02X y=%02X cycles=%d instructions=%d",
		regs.PC, regs.A, regs.Y, regs.Cycles, regs.Instructions)
}

// State is the complete execution state of a stepper.
//
// Copying a State captures the resume point. Between calls to Advance,
// Phase, Step and Wait together with the Opcode, Address and Data latches
// determine all remaining work of the instruction in flight.
type State struct {
	Registers `yaml:",inline"`

	Address uint16 `yaml:"address"` // Address latch, assembled low byte first.
	Opcode  uint8  `yaml:"opcode"`  // Opcode latch.
	Data    uint8  `yaml:"data"`    // Datum of the read in flight.
	Wait    uint   `yaml:"wait"`    // Cycles owed before the current step completes.

	Phase Phase `yaml:"phase"` // Macro step of the instruction in flight.
	Step  Step  `yaml:"step"`  // Micro step within Phase.
}

// AtBoundary returns true if no instruction is in flight.
func (st *State) AtBoundary() bool {
	return st.Phase == PHASE_IDLE
}

// Validate checks that the resume point is one the Engine can reach.
func (st *State) Validate() (err error) {
	switch {
	case st.Phase == PHASE_IDLE:
		if st.Step != STEP_NONE || st.Wait != 0 {
			err = ErrResumePoint
		}
	case st.Phase.Reads():
		switch st.Step {
		case STEP_SETUP:
			if st.Wait == 0 || st.Wait > READ_SETUP_CYCLES {
				err = ErrResumePoint
			}
		case STEP_SETTLE:
			if st.Wait == 0 || st.Wait > READ_SETTLE_CYCLES {
				err = ErrResumePoint
			}
		default:
			err = ErrResumePoint
		}
	case st.Phase == PHASE_PAGE_WAIT:
		if st.Step != STEP_PENALTY || st.Wait == 0 || st.Wait > PAGE_CROSS_CYCLES {
			err = ErrResumePoint
		}
	default:
		err = ErrResumePoint
	}

	if err == nil && st.Phase > PHASE_FETCH {
		if _, ok := Decode(st.Opcode); !ok {
			err = ErrResumePoint
		}
	}

	if err != nil {
		err = fmt.Errorf("%w: %v/%v wait %d", err, st.Phase, st.Step, st.Wait)
	}

	return
}

// String returns the state as a single line.
func (st State) String() string {
	return fmt.Sprintf("%v addr=%04X op=%02X data=%02X %v/%v wait=%d",
		st.Registers, st.Address, st.Opcode, st.Data, st.Phase, st.Step, st.Wait)
}

// Stepper advances a processor by one clock cycle per call.
type Stepper interface {
	// Advance consumes one clock cycle, and reports STATUS_COMPLETE
	// on the last cycle of an instruction.
	Advance() Status
	// State returns a copy of the execution state.
	State() State
}
