package cpu

import (
	"iter"
	"log"
)

// Coroutine is the direct-style stepper.
//
// Its instruction execution is written as straight-line code, and each
// clock cycle suspends the pull iterator running that code. The resume
// point is the paused call stack, so a Coroutine can only be restored
// at an instruction boundary.
//
// The state machine fields of State (Phase, Step, Wait) are maintained for
// introspection, and match those of an Engine on every cycle.
type Coroutine struct {
	Verbose bool // Set to enable verbose logging.

	bus   Bus
	state State

	owed bool // A consumed cycle has not yet been reported.

	next func() (Status, bool)
	stop func()
}

var _ Stepper = (*Coroutine)(nil)

// NewCoroutine creates a coroutine stepper at an instruction boundary,
// with all registers zeroed. Close the stepper to release its coroutine.
func NewCoroutine(bus Bus) (co *Coroutine) {
	co = &Coroutine{
		bus: bus,
	}
	co.next, co.stop = iter.Pull(co.run)

	return
}

// Close releases the coroutine. Advance panics with ErrClosed afterwards.
func (co *Coroutine) Close() (err error) {
	co.stop()
	return
}

// Restore replaces the execution state between instructions.
func (co *Coroutine) Restore(state State) (err error) {
	if !co.state.AtBoundary() || !state.AtBoundary() {
		err = ErrMidInstruction
		return
	}

	err = state.Validate()
	if err != nil {
		return
	}

	co.state = state

	return
}

// State returns a copy of the execution state.
func (co *Coroutine) State() State {
	return co.state
}

// AtBoundary returns true if no instruction is in flight.
func (co *Coroutine) AtBoundary() bool {
	return co.state.AtBoundary()
}

// Result returns the registers after the last retired instruction.
func (co *Coroutine) Result() (regs Registers, err error) {
	if !co.state.AtBoundary() {
		err = ErrMidInstruction
		return
	}

	regs = co.state.Registers

	return
}

// LoadPC sets the program counter between instructions.
func (co *Coroutine) LoadPC(pc uint16) (err error) {
	if !co.state.AtBoundary() {
		err = ErrMidInstruction
		return
	}

	co.state.PC = pc

	return
}

// LoadY sets the index register between instructions.
func (co *Coroutine) LoadY(y uint8) (err error) {
	if !co.state.AtBoundary() {
		err = ErrMidInstruction
		return
	}

	co.state.Y = y

	return
}

// Advance resumes the coroutine for one clock cycle.
func (co *Coroutine) Advance() Status {
	status, ok := co.next()
	if !ok {
		panic(ErrClosed)
	}

	return status
}

// run executes instructions until the consumer stops pulling.
func (co *Coroutine) run(yield func(Status) bool) {
	for co.execute(yield) {
	}
}

// execute runs one instruction to completion.
func (co *Coroutine) execute(yield func(Status) bool) bool {
	st := &co.state

	opcode, ok := co.read(yield, PHASE_FETCH, st.PC)
	if !ok {
		return false
	}
	st.Opcode = opcode
	st.PC++

	defn, implemented := Decode(opcode)
	switch {
	case !implemented:
		if co.Verbose {
			log.Printf("cpu: %04x: opcode 0x%02x unimplemented", st.PC-1, opcode)
		}
	case defn.Mode == MODE_ABSOLUTE_Y:
		lo, ok := co.read(yield, PHASE_ADDR_LO, st.PC)
		if !ok {
			return false
		}
		st.Address = uint16(lo)
		st.PC++

		hi, ok := co.read(yield, PHASE_ADDR_HI, st.PC)
		if !ok {
			return false
		}
		st.Address |= uint16(hi) << 8
		st.PC++

		if PageCrossed(st.Address, st.Y) {
			co.enter(PHASE_PAGE_WAIT, STEP_PENALTY)
			if !co.wait(yield, PAGE_CROSS_CYCLES) {
				return false
			}
		}

		st.A, ok = co.read(yield, PHASE_FINAL_READ, st.Address+uint16(st.Y))
		if !ok {
			return false
		}
	}

	st.Instructions++
	st.Opcode = 0
	st.Address = 0
	st.Data = 0
	st.Phase = PHASE_IDLE
	st.Step = STEP_NONE

	if co.Verbose {
		log.Printf("cpu: retired %v", st.Registers)
	}

	co.owed = false
	return yield(STATUS_COMPLETE)
}

// read performs a timed read as part of a phase.
func (co *Coroutine) read(yield func(Status) bool, phase Phase, addr uint16) (data uint8, ok bool) {
	st := &co.state

	co.enter(phase, STEP_SETUP)
	if !co.wait(yield, READ_SETUP_CYCLES) {
		return
	}

	st.Data = co.bus.Read(addr)
	st.Step = STEP_SETTLE
	if !co.wait(yield, READ_SETTLE_CYCLES) {
		return
	}

	return st.Data, true
}

// enter records the phase and step being executed.
func (co *Coroutine) enter(phase Phase, step Step) {
	st := &co.state

	if co.Verbose && st.Phase != phase {
		log.Printf("cpu: %v -> %v at cycle %d", st.Phase, phase, st.Cycles)
	}

	st.Phase = phase
	st.Step = step
}

// wait consumes clock cycles, suspending once per cycle.
//
// A cycle is reported when the next one begins, or by the yield of
// STATUS_COMPLETE when it is the last of the instruction.
func (co *Coroutine) wait(yield func(Status) bool, cycles uint) bool {
	st := &co.state

	st.Wait += cycles
	for st.Wait > 0 {
		if co.owed && !yield(STATUS_RUNNING) {
			return false
		}
		st.Wait--
		st.Cycles++
		co.owed = true
	}

	return true
}
