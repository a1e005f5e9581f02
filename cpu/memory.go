package cpu

import (
	"encoding/binary"
)

const (
	MEMORY_SIZE    = 4096 // Bytes of byte-addressable memory.
	WORD_SIZE      = 4    // Bytes per instruction or data word.
	REGISTER_COUNT = 32   // Registers in the register file.
)

// Memory is the flat, big-endian, byte-addressable memory.
type Memory [MEMORY_SIZE]byte

// InRange returns true if a whole word at addr lies inside memory,
// that is addr+3 < MEMORY_SIZE.
func (mem *Memory) InRange(addr uint32) bool {
	return addr <= MEMORY_SIZE-WORD_SIZE
}

// Word reads the big-endian word at addr.
// The caller must check InRange first.
func (mem *Memory) Word(addr uint32) uint32 {
	return binary.BigEndian.Uint32(mem[addr : addr+WORD_SIZE])
}

// SetWord writes value as a big-endian word at addr.
// The caller must check InRange first.
func (mem *Memory) SetWord(addr uint32, value uint32) {
	binary.BigEndian.PutUint32(mem[addr:addr+WORD_SIZE], value)
}

// Reset clears all of memory.
func (mem *Memory) Reset() {
	clear(mem[:])
}
