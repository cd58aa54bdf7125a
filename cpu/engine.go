package cpu

import (
	"log"
)

// Engine is the state machine stepper.
//
// All of the Engine's progress is held in its State, so the Engine may be
// abandoned at any cycle, and a copy of its State restored into a fresh
// Engine continues exactly where it stopped.
type Engine struct {
	Verbose bool // Set to enable verbose logging.

	bus   Bus   // Memory read by the engine.
	state State // Execution state, including the resume point.
}

var _ Stepper = (*Engine)(nil)

// NewEngine creates an engine at an instruction boundary, with all
// registers zeroed.
func NewEngine(bus Bus) (engine *Engine) {
	engine = &Engine{
		bus: bus,
	}

	return
}

// NewEngineFromState creates an engine resuming from a captured state.
func NewEngineFromState(bus Bus, state State) (engine *Engine, err error) {
	engine = NewEngine(bus)
	err = engine.Restore(state)
	if err != nil {
		engine = nil
	}

	return
}

// Restore replaces the execution state, including the resume point.
func (engine *Engine) Restore(state State) (err error) {
	err = state.Validate()
	if err != nil {
		return
	}

	engine.state = state

	return
}

// Reset zeros the registers and counters, abandoning any instruction in flight.
func (engine *Engine) Reset() {
	if engine.Verbose {
		log.Printf("cpu: reset")
	}

	engine.state = State{}
}

// State returns a copy of the execution state.
func (engine *Engine) State() State {
	return engine.state
}

// String returns the current execution state as a string.
func (engine *Engine) String() string {
	return engine.state.String()
}

// PC returns the program counter.
func (engine *Engine) PC() uint16 {
	return engine.state.PC
}

// A returns the accumulator.
func (engine *Engine) A() uint8 {
	return engine.state.A
}

// Y returns the index register.
func (engine *Engine) Y() uint8 {
	return engine.state.Y
}

// Cycles returns the total cycles consumed.
func (engine *Engine) Cycles() uint64 {
	return engine.state.Cycles
}

// Instructions returns the number of retired instructions.
func (engine *Engine) Instructions() uint64 {
	return engine.state.Instructions
}

// AtBoundary returns true if no instruction is in flight.
func (engine *Engine) AtBoundary() bool {
	return engine.state.AtBoundary()
}

// Result returns the registers after the last retired instruction.
func (engine *Engine) Result() (regs Registers, err error) {
	if !engine.state.AtBoundary() {
		err = ErrMidInstruction
		return
	}

	regs = engine.state.Registers

	return
}

// LoadPC sets the program counter between instructions.
func (engine *Engine) LoadPC(pc uint16) (err error) {
	if !engine.state.AtBoundary() {
		err = ErrMidInstruction
		return
	}

	engine.state.PC = pc

	return
}

// LoadY sets the index register between instructions.
func (engine *Engine) LoadY(y uint8) (err error) {
	if !engine.state.AtBoundary() {
		err = ErrMidInstruction
		return
	}

	engine.state.Y = y

	return
}

// Advance consumes one clock cycle.
//
// Zero cost work (decode, address latching, the page crossing decision)
// is done by the call that finishes the wait preceding it, so on return
// from a running instruction there is always at least one cycle owed.
func (engine *Engine) Advance() (status Status) {
	st := &engine.state

	if st.Phase == PHASE_IDLE {
		engine.enter(PHASE_FETCH)
	}

	st.Wait--
	st.Cycles++

	if st.Wait > 0 {
		return STATUS_RUNNING
	}

	switch st.Step {
	case STEP_SETUP:
		st.Data = engine.bus.Read(engine.readAddress())
		st.Wait = READ_SETTLE_CYCLES
		st.Step = STEP_SETTLE
	case STEP_SETTLE:
		status = engine.settled()
	case STEP_PENALTY:
		engine.enter(PHASE_FINAL_READ)
	}

	return
}

// readAddress is the address of the timed read in flight.
func (engine *Engine) readAddress() uint16 {
	st := &engine.state

	if st.Phase == PHASE_FINAL_READ {
		return st.Address + uint16(st.Y)
	}

	return st.PC
}

// settled delivers the datum of a completed timed read to its phase.
func (engine *Engine) settled() (status Status) {
	st := &engine.state

	switch st.Phase {
	case PHASE_FETCH:
		st.Opcode = st.Data
		st.PC++
		defn, ok := Decode(st.Opcode)
		if !ok {
			if engine.Verbose {
				log.Printf("cpu: %04x: opcode 0x%02x unimplemented", st.PC-1, st.Opcode)
			}
			return engine.retire()
		}
		switch defn.Mode {
		case MODE_ABSOLUTE_Y:
			engine.enter(PHASE_ADDR_LO)
		default:
			return engine.retire()
		}
	case PHASE_ADDR_LO:
		st.Address = uint16(st.Data)
		st.PC++
		engine.enter(PHASE_ADDR_HI)
	case PHASE_ADDR_HI:
		st.Address |= uint16(st.Data) << 8
		st.PC++
		engine.enter(PHASE_PAGE_WAIT)
	case PHASE_FINAL_READ:
		st.A = st.Data
		return engine.retire()
	}

	return STATUS_RUNNING
}

// enter begins a phase, owing the cycles of its first step.
func (engine *Engine) enter(phase Phase) {
	st := &engine.state

	if phase == PHASE_PAGE_WAIT {
		if !PageCrossed(st.Address, st.Y) {
			phase = PHASE_FINAL_READ
		} else if engine.Verbose {
			log.Printf("cpu: 0x%04x,y crosses a page", st.Address)
		}
	}

	if engine.Verbose {
		log.Printf("cpu: %v -> %v at cycle %d", st.Phase, phase, st.Cycles)
	}

	st.Phase = phase
	if phase == PHASE_PAGE_WAIT {
		st.Step = STEP_PENALTY
		st.Wait = PAGE_CROSS_CYCLES
	} else {
		st.Step = STEP_SETUP
		st.Wait = READ_SETUP_CYCLES
	}
}

// retire completes the instruction in flight.
func (engine *Engine) retire() Status {
	st := &engine.state

	st.Instructions++
	st.Opcode = 0
	st.Address = 0
	st.Data = 0
	st.Phase = PHASE_IDLE
	st.Step = STEP_NONE

	if engine.Verbose {
		log.Printf("cpu: retired %v", st.Registers)
	}

	return STATUS_COMPLETE
}
