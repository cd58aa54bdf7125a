package snapshot

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/tickcpu/cpu"
)

// crossing returns memory holding an LDA 0x00ff,y at 0, and 0x5a at 0x0100.
func crossing() *cpu.Memory {
	mem := cpu.NewMemory(cpu.MEMORY_FILL)
	mem.Write(1, 0xff)
	mem.Write(2, 0x00)
	mem.Write(0x100, 0x5a)
	return mem
}

func finish(t *testing.T, engine *cpu.Engine) {
	for range 100 {
		if engine.Advance() == cpu.STATUS_COMPLETE {
			return
		}
	}
	t.Fatalf("instruction did not complete: %v", engine.State())
}

func TestSnapshot_MidInstruction(t *testing.T) {
	assert := assert.New(t)

	mem := crossing()
	engine := cpu.NewEngine(mem)
	assert.NoError(engine.LoadY(1))

	// Stop once the low address byte is latched.
	for engine.State().Phase != cpu.PHASE_ADDR_HI {
		engine.Advance()
	}

	snap := &Snapshot{State: engine.State(), Memory: mem.Clone()}
	dir := t.TempDir()
	assert.NoError(snap.Marshal(DirFS(dir)))

	loaded := &Snapshot{}
	assert.NoError(loaded.Unmarshal(os.DirFS(dir)))
	assert.Equal(snap.State, loaded.State)
	assert.Equal(*snap.Memory, *loaded.Memory)

	resumed, err := cpu.NewEngineFromState(loaded.Memory, loaded.State)
	assert.NoError(err)
	finish(t, resumed)
	finish(t, engine)

	assert.Equal(engine.State(), resumed.State())
	assert.Equal(uint64(30), resumed.Cycles())
	assert.Equal(uint8(0x5a), resumed.A())
}

func TestSnapshot_EveryCycle(t *testing.T) {
	assert := assert.New(t)

	mem := crossing()
	engine := cpu.NewEngine(mem)
	assert.NoError(engine.LoadY(1))

	for {
		snap := &Snapshot{State: engine.State(), Memory: mem}
		dir := t.TempDir()
		assert.NoError(snap.Marshal(DirFS(dir)))

		loaded := &Snapshot{}
		assert.NoError(loaded.Unmarshal(DirFS(dir)))
		assert.Equal(engine.State(), loaded.State, "cycle %d", engine.Cycles())

		if engine.Advance() == cpu.STATUS_COMPLETE {
			break
		}
	}
}

func TestSnapshot_State(t *testing.T) {
	assert := assert.New(t)

	state := cpu.State{
		Registers: cpu.Registers{PC: 1, A: 2, Y: 3, Cycles: 13, Instructions: 4},
		Address:   0x12,
		Opcode:    cpu.OP_LDA_ABS_Y,
		Data:      0x34,
		Wait:      3,
		Phase:     cpu.PHASE_ADDR_HI,
		Step:      cpu.STEP_SETTLE,
	}

	dir := t.TempDir()
	snap := &Snapshot{State: state, Memory: cpu.NewMemory(0)}
	assert.NoError(snap.Marshal(DirFS(dir)))

	text, err := os.ReadFile(filepath.Join(dir, STATE_FILE))
	assert.NoError(err)
	assert.Contains(string(text), "phase: addr-hi\n")
	assert.Contains(string(text), "step: settle\n")
	assert.Contains(string(text), "cycles: 13\n")

	image, err := os.ReadFile(filepath.Join(dir, MEMORY_FILE))
	assert.NoError(err)
	assert.Len(image, cpu.MEMORY_SIZE)
}

func TestSnapshot_Errors(t *testing.T) {
	table := [...]struct {
		name   string
		state  string
		memory []byte
		err    error
	}{
		{"phase", "phase: decode\nstep: none\n", nil, cpu.ErrPhaseUnknown("decode")},
		{"resume", "phase: fetch\nstep: penalty\nwait: 1\n", nil, cpu.ErrResumePoint},
		{"short", "phase: idle\nstep: none\n", []byte{1, 2, 3}, ErrMemorySize},
		{"long", "phase: idle\nstep: none\n", make([]byte, cpu.MEMORY_SIZE+1), ErrMemorySize},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			dir := t.TempDir()
			assert.NoError(os.WriteFile(filepath.Join(dir, STATE_FILE), []byte(entry.state), 0644))
			memory := entry.memory
			if memory == nil {
				memory = make([]byte, cpu.MEMORY_SIZE)
			}
			assert.NoError(os.WriteFile(filepath.Join(dir, MEMORY_FILE), memory, 0644))

			snap := &Snapshot{}
			err := snap.Unmarshal(DirFS(dir))
			assert.ErrorIs(err, entry.err)

			var err_file *ErrFile
			assert.True(errors.As(err, &err_file))
		})
	}

	snap := &Snapshot{}
	err := snap.Unmarshal(DirFS(t.TempDir()))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSnapshot_Save(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	filesys := DirFS(dir)

	_, err := Latest(filesys)
	assert.ErrorIs(err, ErrNoSnapshot)

	engine := cpu.NewEngine(cpu.NewMemory(cpu.MEMORY_FILL))
	for _, cycles := range []int{5, 30, 7} {
		for range cycles {
			engine.Advance()
		}
		snap := &Snapshot{State: engine.State(), Memory: cpu.NewMemory(cpu.MEMORY_FILL)}
		name, err := snap.Save(filesys)
		assert.NoError(err)
		assert.DirExists(filepath.Join(dir, name))

		// Saving twice overwrites.
		_, err = snap.Save(filesys)
		assert.NoError(err)
	}

	assert.NoError(os.Mkdir(filepath.Join(dir, "notes"), 0755))

	names, err := List(filesys)
	assert.NoError(err)
	assert.Equal([]string{"0000000000000005.snap", "0000000000000023.snap", "000000000000002a.snap"}, names)

	snap, err := Latest(filesys)
	assert.NoError(err)
	assert.Equal(engine.State(), snap.State)
	assert.Equal(uint64(42), snap.State.Cycles)

	big := &Snapshot{
		State:  cpu.State{Registers: cpu.Registers{Cycles: 1 << 48}},
		Memory: cpu.NewMemory(cpu.MEMORY_FILL),
	}
	name, err := big.Save(filesys)
	assert.NoError(err)
	assert.Equal("0001000000000000.snap", name)

	snap, err = Latest(filesys)
	assert.NoError(err)
	assert.Equal(uint64(1<<48), snap.State.Cycles)
}

func TestDirFS(t *testing.T) {
	assert := assert.New(t)

	filesys := DirFS(t.TempDir())

	_, err := filesys.Sub("missing")
	assert.ErrorIs(err, fs.ErrNotExist)

	_, err = filesys.Create("../escape")
	assert.ErrorIs(err, fs.ErrInvalid)

	assert.NoError(filesys.Mkdir("sub", 0755))
	sub, err := filesys.Sub("sub")
	assert.NoError(err)

	file, err := sub.Create("file")
	assert.NoError(err)
	assert.NoError(file.Close())

	_, err = sub.Sub("file")
	assert.ErrorIs(err, fs.ErrInvalid)

	_, err = fs.Stat(filesys, "sub/file")
	assert.NoError(err)
}
