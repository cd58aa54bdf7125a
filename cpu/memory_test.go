package cpu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory_Fill(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(MEMORY_FILL)
	assert.Equal(uint8(0xb9), mem.Read(0))
	assert.Equal(uint8(0xb9), mem.Read(0xffff))

	mem.Fill(0)
	assert.Equal(uint8(0), mem.Read(0x8000))
}

func TestMemory_Deterministic(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(0)
	mem.Write(0x1234, 0x56)

	for range 4 {
		assert.Equal(uint8(0x56), mem.Read(0x1234))
	}
}

func TestMemory_Load(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(0xee)
	n, err := mem.Load(bytes.NewReader([]byte{1, 2, 3}))
	assert.NoError(err)
	assert.Equal(3, n)
	assert.Equal(uint8(1), mem.Read(0))
	assert.Equal(uint8(3), mem.Read(2))
	assert.Equal(uint8(0xee), mem.Read(3))

	big := bytes.Repeat([]byte{0x42}, MEMORY_SIZE+10)
	n, err = mem.Load(bytes.NewReader(big))
	assert.NoError(err)
	assert.Equal(MEMORY_SIZE, n)
	assert.Equal(uint8(0x42), mem.Read(0xffff))
}

func TestMemory_Clone(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(1)
	clone := mem.Clone()
	clone.Write(0, 2)

	assert.Equal(uint8(1), mem.Read(0))
	assert.Equal(uint8(2), clone.Read(0))
}

func TestOpcode(t *testing.T) {
	assert := assert.New(t)

	defn, ok := Decode(OP_LDA_ABS_Y)
	assert.True(ok)
	assert.Equal(MODE_ABSOLUTE_Y, defn.Mode)
	assert.Equal(3, defn.Bytes)

	_, ok = Decode(OP_NOP)
	assert.False(ok)

	assert.True(PageCrossed(0x00ff, 1))
	assert.False(PageCrossed(0x0010, 1))
	assert.True(PageCrossed(0xffff, 1))

	mem := ldaImage(0x00ff)
	text, size := Disassemble(mem, 0)
	assert.Equal("lda 0x00ff,y", text)
	assert.Equal(3, size)
	assert.Equal(30, Cycles(mem, 0, 1))
	assert.Equal(24, Cycles(mem, 0, 0))

	text, size = Disassemble(NewMemory(OP_NOP), 0)
	assert.Equal(".byte 0xea", text)
	assert.Equal(1, size)
	assert.Equal(READ_CYCLES, Cycles(NewMemory(OP_NOP), 0, 0))
}

func TestPhase_Text(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("page-wait", PHASE_PAGE_WAIT.String())
	assert.Equal("settle", STEP_SETTLE.String())
	assert.Equal("complete", STATUS_COMPLETE.String())

	var phase Phase
	assert.NoError(phase.UnmarshalText([]byte("addr-hi")))
	assert.Equal(PHASE_ADDR_HI, phase)
	assert.Error(phase.UnmarshalText([]byte("bogus")))

	text, err := STEP_PENALTY.MarshalText()
	assert.NoError(err)
	assert.Equal("penalty", string(text))

	assert.True(PHASE_FINAL_READ.Reads())
	assert.False(PHASE_PAGE_WAIT.Reads())
}
