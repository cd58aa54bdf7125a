package emulator

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/tickcpu/cpu"
	"github.com/ezrec/tickcpu/driver"
	"github.com/ezrec/tickcpu/snapshot"
)

func assemble(t *testing.T, program []string) *cpu.Program {
	asm := &cpu.Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatalf("%v", err)
	}
	return prog
}

var crossingProgram = []string{
	"        .entry start",
	"        .y 1",
	"start:  lda table,y",
	"        lda 0x10,y",
	"        .org 0x00ff",
	"table:  .byte 0x11 0x5a",
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	for _, strategy := range Strategies() {
		emu, err := NewEmulator(strategy)
		assert.NoError(err)
		assert.Equal(strategy, emu.Strategy())
		assert.False(emu.Verbose)
		assert.NotNil(emu.Processor)
		assert.True(emu.AtBoundary())
		assert.NoError(emu.Close())
	}

	_, err := NewEmulator("quantum")
	assert.ErrorIs(err, ErrStrategy)
}

func TestEmulator_Defines(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewEmulator(STRATEGY_ENGINE)
	assert.NoError(err)

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}

	assert.Equal("30", defines["MAX_INSTRUCTION_CYCLES"])
	assert.Equal("0xb9", defines["OP_LDA_ABS_Y"])
}

func TestEmulator_Tick(t *testing.T) {
	for _, strategy := range Strategies() {
		t.Run(strategy, func(t *testing.T) {
			assert := assert.New(t)

			prog := assemble(t, crossingProgram)

			emu, err := NewEmulator(strategy)
			assert.NoError(err)
			defer emu.Close()

			assert.NoError(emu.Reset(prog))
			assert.Equal(3, emu.LineNo())
			assert.Equal("lda 0x00ff,y", emu.Disassemble())

			var retired []uint64
			for len(retired) < 2 {
				done, err := emu.Tick()
				assert.NoError(err)
				if done {
					retired = append(retired, emu.Cycles())
					if len(retired) == 1 {
						assert.Equal(uint8(0x5a), emu.State().A)
					}
				} else {
					assert.Equal(len(retired)+3, emu.LineNo())
				}
			}

			// The crossing costs six cycles; 0x10 + 1 does not cross.
			assert.Equal([]uint64{30, 54}, retired)
			assert.Equal(uint16(6), emu.State().PC)
			assert.Equal(emu.Cycles(), emu.Counter.Cycles)

			// The working memory is a copy.
			assert.Equal(prog.Memory, emu.Memory)
			assert.NotSame(prog.Memory, emu.Memory)
		})
	}
}

func TestEmulator_Strict(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, []string{
		"        nop",
		"        lda 0x1234,y",
	})

	emu, err := NewEmulator(STRATEGY_ENGINE)
	assert.NoError(err)
	assert.NoError(emu.Reset(prog))

	// An unimplemented opcode retires after its fetch.
	assert.NoError(emu.RunCycles(cpu.READ_CYCLES))
	assert.Equal(uint64(1), emu.Instructions())

	emu.Strict = true
	assert.NoError(emu.Reset(prog))

	err = emu.RunCycles(cpu.READ_CYCLES)
	assert.ErrorIs(err, ErrOpcodeUnimplemented)

	var err_runtime *ErrRuntime
	assert.True(errors.As(err, &err_runtime))
	assert.Equal(1, err_runtime.LineNo)
	assert.Equal(uint64(cpu.READ_CYCLES), err_runtime.Cycle)
}

func TestEmulator_RunStrict(t *testing.T) {
	prog := assemble(t, []string{
		"        lda 0x1234,y",
		"        nop",
		"        lda 0x1234,y",
	})

	for _, strategy := range Strategies() {
		for _, name := range driver.Names() {
			t.Run(strategy+"/"+name, func(t *testing.T) {
				assert := assert.New(t)

				emu, err := NewEmulator(strategy)
				assert.NoError(err)
				defer emu.Close()

				assert.NoError(emu.Reset(prog))
				_, err = emu.Run(name, 3)
				assert.NoError(err)
				assert.Equal(uint64(3), emu.Instructions())

				emu.Strict = true
				assert.NoError(emu.Reset(prog))

				report, err := emu.Run(name, 3)
				assert.ErrorIs(err, ErrOpcodeUnimplemented)

				var err_runtime *ErrRuntime
				assert.True(errors.As(err, &err_runtime))
				assert.Equal(2, err_runtime.LineNo)
				assert.Equal(uint64(5*cpu.READ_CYCLES), err_runtime.Cycle)
				assert.Equal(uint64(2), report.Instructions)
				assert.Equal(uint64(5*cpu.READ_CYCLES), emu.Counter.Cycles)
			})
		}
	}
}

func TestEmulator_Run(t *testing.T) {
	for _, strategy := range Strategies() {
		for _, name := range driver.Names() {
			t.Run(strategy+"/"+name, func(t *testing.T) {
				assert := assert.New(t)

				emu, err := NewEmulator(strategy)
				assert.NoError(err)
				defer emu.Close()

				report, err := emu.Run(name, 10)
				assert.NoError(err)
				assert.Equal(strategy, report.Strategy)
				assert.Equal(name, report.Driver)
				assert.Equal(uint64(10), report.Instructions)
				assert.Equal(uint64(240), report.Cycles)
				assert.Equal(report.Cycles, emu.Counter.Cycles)

				report, err = emu.Run(name, 5)
				assert.NoError(err)
				assert.Equal(uint64(5), report.Instructions)
				assert.Equal(uint64(15), emu.Instructions())
			})
		}
	}

	emu, err := NewEmulator(STRATEGY_ENGINE)
	assert.NoError(t, err)
	_, err = emu.Run("spin", 1)
	assert.ErrorIs(t, err, driver.ErrDriverUnknown("spin"))
}

func TestEmulator_SaveResume(t *testing.T) {
	prog := assemble(t, crossingProgram)

	// Uninterrupted run.
	ref, err := NewEmulator(STRATEGY_ENGINE)
	assert.NoError(t, err)
	assert.NoError(t, ref.Reset(prog))
	assert.NoError(t, ref.RunCycles(54))

	for _, stop := range []uint64{0, 13, 29, 30, 31, 45} {
		for _, strategy := range Strategies() {
			t.Run(strategy, func(t *testing.T) {
				assert := assert.New(t)

				dir := snapshot.DirFS(t.TempDir())

				emu, err := NewEmulator(STRATEGY_ENGINE)
				assert.NoError(err)
				assert.NoError(emu.Reset(prog))
				assert.NoError(emu.RunCycles(stop))
				_, err = emu.Save(dir)
				assert.NoError(err)

				resumed, err := NewEmulator(strategy)
				assert.NoError(err)
				defer resumed.Close()
				assert.NoError(resumed.Reset(prog))

				err = resumed.Resume(dir)
				if strategy == STRATEGY_COROUTINE && !emu.AtBoundary() {
					assert.ErrorIs(err, cpu.ErrMidInstruction)

					// A failed resume leaves the emulator as it was.
					assert.True(resumed.AtBoundary())
					assert.Equal(uint64(0), resumed.Cycles())
					assert.Equal(uint64(0), resumed.Counter.Cycles)
					assert.NoError(resumed.RunCycles(54))
					assert.Equal(ref.State(), resumed.State())
					return
				}
				assert.NoError(err)
				assert.Equal(emu.LineNo(), resumed.LineNo())

				assert.NoError(resumed.RunCycles(54 - stop))
				assert.Equal(ref.State(), resumed.State())
				assert.Equal(ref.Cycles(), resumed.Counter.Cycles)
			})
		}
	}
}

func TestEmulator_ResumeEmpty(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewEmulator(STRATEGY_ENGINE)
	assert.NoError(err)

	err = emu.Resume(os.DirFS(t.TempDir()))
	assert.ErrorIs(err, snapshot.ErrNoSnapshot)
}

func TestBench(t *testing.T) {
	assert := assert.New(t)

	reports, err := Bench(nil, Strategies(), driver.Names(), 100)
	assert.NoError(err)
	assert.Len(reports, len(Strategies())*len(driver.Names()))

	for _, report := range reports {
		assert.Equal(uint64(100), report.Instructions, report.Name())
		assert.Equal(uint64(2400), report.Cycles, report.Name())
		assert.GreaterOrEqual(report.CyclesPerSecond(), 0.0)
	}

	_, err = Bench(nil, []string{STRATEGY_ENGINE}, []string{driver.LOOP}, -1)
	assert.ErrorIs(err, driver.ErrCount)

	var err_variant *ErrVariant
	assert.True(errors.As(err, &err_variant))
	assert.Equal("engine/loop", err_variant.Name)
}

func TestVerify(t *testing.T) {
	assert := assert.New(t)

	err := Verify(context.Background(), nil, Strategies(), driver.Names(), []int{1, 10, 10000})
	assert.NoError(err)

	prog := assemble(t, crossingProgram)
	err = Verify(context.Background(), prog, Strategies(), driver.Names(), []int{1, 2, 100})
	assert.NoError(err)

	err = Verify(context.Background(), nil, Strategies(), []string{"spin"}, []int{1})
	assert.ErrorIs(err, driver.ErrDriverUnknown("spin"))
}
