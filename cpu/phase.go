package cpu

// Phase is the macro step of an instruction in flight.
type Phase int

//go:generate go tool stringer -linecomment -type=Phase,Step,Status
const (
	PHASE_IDLE       = Phase(0) // idle
	PHASE_FETCH      = Phase(1) // fetch
	PHASE_ADDR_LO    = Phase(2) // addr-lo
	PHASE_ADDR_HI    = Phase(3) // addr-hi
	PHASE_PAGE_WAIT  = Phase(4) // page-wait
	PHASE_FINAL_READ = Phase(5) // final-read
)

// Step is the micro step within a Phase.
type Step int

const (
	STEP_NONE    = Step(0) // none
	STEP_SETUP   = Step(1) // setup
	STEP_SETTLE  = Step(2) // settle
	STEP_PENALTY = Step(3) // penalty
)

// Status is reported by every call to Stepper.Advance.
type Status int

const (
	STATUS_RUNNING  = Status(0) // running
	STATUS_COMPLETE = Status(1) // complete
)

// Reads returns true if the phase is a timed memory read.
func (ph Phase) Reads() bool {
	switch ph {
	case PHASE_FETCH, PHASE_ADDR_LO, PHASE_ADDR_HI, PHASE_FINAL_READ:
		return true
	}
	return false
}

// MarshalText encodes the phase by name.
func (ph Phase) MarshalText() ([]byte, error) {
	return []byte(ph.String()), nil
}

// UnmarshalText decodes a phase by name.
func (ph *Phase) UnmarshalText(text []byte) (err error) {
	for n := PHASE_IDLE; n <= PHASE_FINAL_READ; n++ {
		if n.String() == string(text) {
			*ph = n
			return
		}
	}
	err = ErrPhaseUnknown(string(text))
	return
}

// MarshalText encodes the step by name.
func (st Step) MarshalText() ([]byte, error) {
	return []byte(st.String()), nil
}

// UnmarshalText decodes a step by name.
func (st *Step) UnmarshalText(text []byte) (err error) {
	for n := STEP_NONE; n <= STEP_PENALTY; n++ {
		if n.String() == string(text) {
			*st = n
			return
		}
	}
	err = ErrPhaseUnknown(string(text))
	return
}
