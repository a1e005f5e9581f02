// Package cpu implements the processor and assembler for the mini CPU.
//
// The CPU has a program counter, thirty-two signed 32-bit registers (r0 is
// hardwired to zero) and 4096 bytes of big-endian, byte-addressable memory.
// Each Tick runs one instruction through fetch, decode, execute, memory
// access and write-back before the next instruction is fetched. An all-zero
// instruction word halts the processor.
//
// The assembler provides a small assembly language for the instruction set,
// supporting macros, labels, equates, and compile-time expression evaluation.
package cpu
