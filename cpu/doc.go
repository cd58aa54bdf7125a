// Package cpu implements a cycle-stepped processor core and the assembler
// for its memory images.
//
// The core consists of a program counter (PC), an index register (Y), an
// accumulator (A), a 16-bit address latch, and a 64KiB clocked memory. Every
// memory read costs READ_SETUP_CYCLES before the datum is available and
// READ_SETTLE_CYCLES after, and the core suspends after each single cycle.
//
// Two steppers execute the same instruction stream:
//
//   - Engine is an explicit state machine. Its resume point is the Phase and
//     Step held in State, so a State copied mid-instruction can be restored
//     into a new Engine and continued.
//   - Coroutine is written in direct style. Its resume point is the paused
//     call stack of a pull iterator.
//
// Both report STATUS_RUNNING after every cycle but the last of an
// instruction, which reports STATUS_COMPLETE. The only implemented
// instruction is LDA abs,Y (OP_LDA_ABS_Y), including its page crossing
// penalty; every other opcode retires as a no-op after the fetch.
//
// The assembler provides a small assembly language for building memory
// images, supporting macros, labels, equates, and compile-time expression
// evaluation.
package cpu
