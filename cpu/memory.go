package cpu

import (
	"io"
)

const (
	MEMORY_SIZE = 0x10000 // Bytes of addressable memory.
	MEMORY_FILL = 0xb9    // Default fill byte of a new memory.

	READ_SETUP_CYCLES  = 2 // Cycles before a read's datum is available.
	READ_SETTLE_CYCLES = 4 // Cycles after the datum is available.
	READ_CYCLES        = READ_SETUP_CYCLES + READ_SETTLE_CYCLES

	PAGE_CROSS_CYCLES = 6 // Penalty for an indexed address crossing a page.
)

// Bus is the memory interface the steppers read through.
type Bus interface {
	Read(addr uint16) uint8
}

// Memory is a flat, fully populated 64KiB address space.
type Memory [MEMORY_SIZE]uint8

var _ Bus = (*Memory)(nil)

// NewMemory creates a memory with every byte set to fill.
func NewMemory(fill uint8) (mem *Memory) {
	mem = &Memory{}
	mem.Fill(fill)
	return
}

// Fill sets every byte of memory to value.
func (mem *Memory) Fill(value uint8) {
	for n := range mem {
		mem[n] = value
	}
}

// Read returns the byte at addr.
// The cycle cost of the read is accounted by the caller.
func (mem *Memory) Read(addr uint16) uint8 {
	return mem[addr]
}

// Write stores a byte at addr.
func (mem *Memory) Write(addr uint16, value uint8) {
	mem[addr] = value
}

// Load copies an image into memory starting at address 0.
// Images shorter than MEMORY_SIZE leave the remaining bytes untouched;
// longer images are truncated.
func (mem *Memory) Load(r io.Reader) (n int, err error) {
	n, err = io.ReadFull(r, mem[:])
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		err = nil
	}
	return
}

// Clone returns a copy of the memory.
func (mem *Memory) Clone() *Memory {
	clone := *mem
	return &clone
}
