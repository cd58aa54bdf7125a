package cpu

import (
	"fmt"
	"iter"
	"maps"
)

// Opcodes known to the assembler.
const (
	OP_LDA_ABS_Y = uint8(0xb9) // LDA abs,Y
	OP_NOP       = uint8(0xea) // NOP; retired as an unimplemented opcode.
)

// AddrMode is an operand addressing mode.
type AddrMode int

const (
	MODE_IMPLIED    = AddrMode(0) // no operand
	MODE_ABSOLUTE_Y = AddrMode(1) // 16-bit address, indexed by Y
)

// Definition describes an implemented opcode.
type Definition struct {
	Opcode   uint8
	Mnemonic string
	Mode     AddrMode
	Bytes    int // Instruction length, including the opcode.
}

// definitions is the dispatch table. A nil entry is an unimplemented
// opcode, which retires after its fetch.
var definitions = [256]*Definition{
	OP_LDA_ABS_Y: {Opcode: OP_LDA_ABS_Y, Mnemonic: "lda", Mode: MODE_ABSOLUTE_Y, Bytes: 3},
}

var _cpu_defines = map[string]string{
	"OP_LDA_ABS_Y":       fmt.Sprintf("0x%02x", OP_LDA_ABS_Y),
	"OP_NOP":             fmt.Sprintf("0x%02x", OP_NOP),
	"MEMORY_SIZE":        fmt.Sprintf("0x%x", MEMORY_SIZE),
	"MEMORY_FILL":        fmt.Sprintf("0x%02x", MEMORY_FILL),
	"READ_CYCLES":        fmt.Sprintf("%d", READ_CYCLES),
	"READ_SETUP_CYCLES":  fmt.Sprintf("%d", READ_SETUP_CYCLES),
	"READ_SETTLE_CYCLES": fmt.Sprintf("%d", READ_SETTLE_CYCLES),
	"PAGE_CROSS_CYCLES":  fmt.Sprintf("%d", PAGE_CROSS_CYCLES),
}

// Defines for the cpu
func Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Decode looks up the definition of an opcode.
func Decode(opcode uint8) (defn Definition, ok bool) {
	entry := definitions[opcode]
	if entry == nil {
		return
	}
	return *entry, true
}

// PageCrossed returns true if indexing addr by y changes its high byte.
func PageCrossed(addr uint16, y uint8) bool {
	return addr>>8 != (addr+uint16(y))>>8
}

// Cycles returns the cycle cost of the instruction at addr.
func Cycles(bus Bus, addr uint16, y uint8) (cycles int) {
	cycles = READ_CYCLES

	defn, ok := Decode(bus.Read(addr))
	if !ok {
		return
	}

	switch defn.Mode {
	case MODE_ABSOLUTE_Y:
		target := uint16(bus.Read(addr+1)) | uint16(bus.Read(addr+2))<<8
		cycles += 3 * READ_CYCLES
		if PageCrossed(target, y) {
			cycles += PAGE_CROSS_CYCLES
		}
	}

	return
}

// Disassemble returns the text of the instruction at addr, and its size.
func Disassemble(bus Bus, addr uint16) (text string, size int) {
	opcode := bus.Read(addr)
	defn, ok := Decode(opcode)
	if !ok {
		return fmt.Sprintf(".byte 0x%02x", opcode), 1
	}

	switch defn.Mode {
	case MODE_ABSOLUTE_Y:
		target := uint16(bus.Read(addr+1)) | uint16(bus.Read(addr+2))<<8
		text = fmt.Sprintf("%s 0x%04x,y", defn.Mnemonic, target)
	default:
		text = defn.Mnemonic
	}
	size = defn.Bytes

	return
}
