// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log"
	"maps"
	"slices"
	"time"

	"github.com/ezrec/tickcpu/cpu"
	"github.com/ezrec/tickcpu/driver"
	"github.com/ezrec/tickcpu/internal"
	"github.com/ezrec/tickcpu/snapshot"
)

// Stepping strategies.
const (
	STRATEGY_ENGINE    = "engine"    // State machine stepper.
	STRATEGY_COROUTINE = "coroutine" // Direct-style stepper.
)

// MAX_INSTRUCTION_CYCLES is the cost of the slowest instruction.
const MAX_INSTRUCTION_CYCLES = 4*cpu.READ_CYCLES + cpu.PAGE_CROSS_CYCLES

var _emulator_defines = map[string]string{
	"MAX_INSTRUCTION_CYCLES": fmt.Sprintf("%d", MAX_INSTRUCTION_CYCLES),
}

// Processor is a stepper that can be loaded and restored.
type Processor interface {
	cpu.Stepper
	// AtBoundary returns true if no instruction is in flight.
	AtBoundary() bool
	// Restore replaces the execution state.
	Restore(state cpu.State) error
	// LoadPC sets the program counter between instructions.
	LoadPC(pc uint16) error
	// LoadY sets the index register between instructions.
	LoadY(y uint8) error
	// Result returns the registers between instructions.
	Result() (cpu.Registers, error)
}

var strategies = map[string](func(bus cpu.Bus, verbose bool) Processor){
	STRATEGY_ENGINE: func(bus cpu.Bus, verbose bool) Processor {
		engine := cpu.NewEngine(bus)
		engine.Verbose = verbose
		return engine
	},
	STRATEGY_COROUTINE: func(bus cpu.Bus, verbose bool) Processor {
		co := cpu.NewCoroutine(bus)
		co.Verbose = verbose
		return co
	},
}

// Strategies returns the names of all stepping strategies, sorted.
func Strategies() []string {
	return slices.Sorted(maps.Keys(strategies))
}

// Emulator state. Processor + memory + a cycle counting peer.
type Emulator struct {
	Verbose   bool         // If set, enables verbose logging.
	Strict    bool         // If set, unimplemented opcodes are runtime errors.
	Processor              // The stepper in use.
	Program   *cpu.Program // Reference to the currently running program listing.
	Memory    *cpu.Memory  // Working copy of the program's memory image.
	Counter   driver.Counter

	strategy string
	fetch    uint16 // Address of the instruction in flight.
}

// NewEmulator creates a new emulator, with the given stepping strategy.
func NewEmulator(strategy string) (emu *Emulator, err error) {
	if _, ok := strategies[strategy]; !ok {
		err = fmt.Errorf("%w: '%v'", ErrStrategy, strategy)
		return
	}

	emu = &Emulator{
		strategy: strategy,
	}

	err = emu.Reset(nil)
	if err != nil {
		emu = nil
	}

	return
}

// Strategy returns the name of the stepping strategy.
func (emu *Emulator) Strategy() string {
	return emu.strategy
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		cpu.Defines(),
	)
}

// Close the emulator, releasing the processor.
func (emu *Emulator) Close() (err error) {
	if closer, ok := emu.Processor.(io.Closer); ok {
		err = closer.Close()
	}
	emu.Processor = nil

	return
}

// Reset loads a program and a fresh processor. A nil program runs
// memory filled with MEMORY_FILL from address 0.
func (emu *Emulator) Reset(prog *cpu.Program) (err error) {
	if prog == nil {
		prog = &cpu.Program{}
	}

	err = emu.Close()
	if err != nil {
		return
	}

	emu.Program = prog
	if prog.Memory == nil {
		emu.Memory = cpu.NewMemory(cpu.MEMORY_FILL)
	} else {
		emu.Memory = prog.Memory.Clone()
	}
	emu.Counter = driver.Counter{}
	emu.Processor = strategies[emu.strategy](emu.Memory, emu.Verbose)
	emu.fetch = prog.Entry

	err = emu.Processor.LoadPC(prog.Entry)
	if err != nil {
		return
	}
	err = emu.Processor.LoadY(prog.Y)
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: reset %v, entry 0x%04x y=0x%02x", emu.strategy, prog.Entry, prog.Y)
	}

	return
}

// State returns the processor's execution state.
func (emu *Emulator) State() cpu.State {
	return emu.Processor.State()
}

// Cycles returns the total cycles since a reset.
func (emu *Emulator) Cycles() uint64 {
	return emu.Processor.State().Cycles
}

// Instructions returns the total instructions retired since a reset.
func (emu *Emulator) Instructions() uint64 {
	return emu.Processor.State().Instructions
}

// LineNo returns the source line of the instruction in flight, or of the
// next instruction when between instructions.
func (emu *Emulator) LineNo() int {
	if emu.Processor.AtBoundary() {
		return emu.Program.LineNo(emu.Processor.State().PC)
	}

	return emu.Program.LineNo(emu.fetch)
}

// Disassemble returns the text of the instruction in flight, or of the
// next instruction when between instructions.
func (emu *Emulator) Disassemble() string {
	addr := emu.fetch
	if emu.Processor.AtBoundary() {
		addr = emu.Processor.State().PC
	}

	text, _ := cpu.Disassemble(emu.Memory, addr)

	return text
}

// Tick performs a single clock cycle of the emulator, reporting done on
// the last cycle of an instruction.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.Processor.AtBoundary() {
		emu.fetch = emu.Processor.State().PC
	}

	done = emu.Processor.Advance() == cpu.STATUS_COMPLETE
	emu.Counter.Clock()

	if done && emu.Strict {
		err = emu.retired()
	}

	return
}

// retired checks the opcode of the instruction that just retired.
func (emu *Emulator) retired() (err error) {
	opcode := emu.Memory.Read(emu.fetch)
	if _, ok := cpu.Decode(opcode); !ok {
		err = &ErrRuntime{
			Cycle:  emu.Cycles(),
			LineNo: emu.Program.LineNo(emu.fetch),
			Err:    fmt.Errorf("%w: 0x%02x at 0x%04x", ErrOpcodeUnimplemented, opcode, emu.fetch),
		}
	}

	return
}

// RunCycles ticks the emulator for a number of clock cycles.
func (emu *Emulator) RunCycles(cycles uint64) (err error) {
	for range cycles {
		_, err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}

// Report is the outcome of a timed run.
type Report struct {
	Strategy     string        // Stepping strategy.
	Driver       string        // Driver name.
	Instructions uint64        // Instructions retired during the run.
	Cycles       uint64        // Clock cycles consumed during the run.
	Elapsed      time.Duration // Wall clock time of the run.
}

// Name of the variant run.
func (rep Report) Name() string {
	return rep.Strategy + "/" + rep.Driver
}

// CyclesPerSecond returns the emulated clock rate.
func (rep Report) CyclesPerSecond() float64 {
	if rep.Elapsed <= 0 {
		return 0
	}
	return float64(rep.Cycles) / rep.Elapsed.Seconds()
}

// Run drives the processor with the named driver until count more
// instructions retire.
func (emu *Emulator) Run(name string, count int) (report Report, err error) {
	drv, err := driver.New(name, emu.Processor, &emu.Counter)
	if err != nil {
		return
	}

	before := emu.State()

	start := time.Now()
	if emu.Strict {
		err = emu.runStrict(drv, count)
	} else {
		err = drv.Run(count)
	}
	elapsed := time.Since(start)

	after := emu.State()

	report = Report{
		Strategy:     emu.strategy,
		Driver:       drv.Name(),
		Instructions: after.Instructions - before.Instructions,
		Cycles:       after.Cycles - before.Cycles,
		Elapsed:      elapsed,
	}

	if emu.Verbose {
		log.Printf("emulator: %v: %d instructions, %d cycles in %v",
			report.Name(), report.Instructions, report.Cycles, report.Elapsed)
	}

	return
}

// runStrict runs the driver one instruction at a time, stopping at the
// first unimplemented opcode to retire.
func (emu *Emulator) runStrict(drv driver.Driver, count int) (err error) {
	if count <= 0 {
		return drv.Run(count)
	}

	for range count {
		if emu.Processor.AtBoundary() {
			emu.fetch = emu.Processor.State().PC
		}

		err = drv.Run(1)
		if err != nil {
			return
		}

		err = emu.retired()
		if err != nil {
			return
		}
	}

	return
}

// Snapshot captures the execution state and memory.
func (emu *Emulator) Snapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		State:  emu.State(),
		Memory: emu.Memory.Clone(),
	}
}

// Save writes a snapshot into its own subdirectory of filesys, and returns
// the subdirectory name.
func (emu *Emulator) Save(filesys snapshot.CreateFS) (name string, err error) {
	name, err = emu.Snapshot().Save(filesys)
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: saved %v", name)
	}

	return
}

// Resume replaces the processor and memory with the latest snapshot in
// filesys. The program listing is kept.
//
// A coroutine strategy emulator can only resume from a snapshot taken
// between instructions.
func (emu *Emulator) Resume(filesys fs.FS) (err error) {
	snap, err := snapshot.Latest(filesys)
	if err != nil {
		return
	}

	return emu.Load(snap)
}

// Load replaces the processor and memory from a snapshot. On error the
// emulator is left unchanged.
func (emu *Emulator) Load(snap *snapshot.Snapshot) (err error) {
	memory := snap.Memory.Clone()
	processor := strategies[emu.strategy](memory, emu.Verbose)

	err = processor.Restore(snap.State)
	if err != nil {
		if closer, ok := processor.(io.Closer); ok {
			closer.Close()
		}
		return
	}

	err = emu.Close()
	if err != nil {
		return
	}

	emu.Memory = memory
	emu.Processor = processor
	emu.Counter = driver.Counter{Cycles: snap.State.Cycles}

	// The fetch address of an instruction in flight is not latched; it is
	// recovered from the operand bytes consumed.
	emu.fetch = snap.State.PC
	switch snap.State.Phase {
	case cpu.PHASE_FETCH, cpu.PHASE_IDLE:
	case cpu.PHASE_ADDR_LO:
		emu.fetch -= 1
	case cpu.PHASE_ADDR_HI:
		emu.fetch -= 2
	default:
		emu.fetch -= 3
	}

	if emu.Verbose {
		log.Printf("emulator: restored %v", snap.State)
	}

	return
}
