package cpu

import (
	"iter"
)

// Opcode is a single assembled source line.
type Opcode struct {
	LineNo    int      // Source line number.
	Addr      uint16   // Address of the first byte.
	Words     []string // Source words, after equate and macro expansion.
	Bytes     []uint8  // Assembled bytes.
	LinkLabel string   // Label to link into the last two bytes, if any.
}

// Program is an assembled memory image, with the registers to start it from.
type Program struct {
	Memory  *Memory  // Memory image.
	Entry   uint16   // Initial program counter.
	Y       uint8    // Initial index register.
	Opcodes []Opcode // Assembly listing.
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the listing entry holding the byte at addr.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		offset := addr - op.Addr
		if int(offset) < len(op.Bytes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(offset),
			}
			break
		}
	}

	return
}

// LineNo returns the source line of the byte at addr, or 0 if
// the byte was not assembled from source.
func (prog *Program) LineNo(addr uint16) int {
	dbg := prog.Debug(addr)
	if dbg.Opcode == nil {
		return 0
	}
	return dbg.LineNo
}

// Bytes iterates over every assembled byte and its address.
func (prog *Program) Bytes() iter.Seq2[uint16, uint8] {
	return func(yield func(addr uint16, value uint8) bool) {
		for _, op := range prog.Opcodes {
			for n, value := range op.Bytes {
				if !yield(op.Addr+uint16(n), value) {
					return
				}
			}
		}
	}
}

// Image returns the memory image as a byte slice.
func (prog *Program) Image() []byte {
	if prog.Memory == nil {
		return nil
	}
	return prog.Memory[:]
}
