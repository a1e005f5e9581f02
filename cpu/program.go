package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and generated instructions.
type Opcode struct {
	LineNo    int
	Addr      int
	Words     []string
	Codes     []Word
	LinkLabel string
}

// Program is an assembled program listing.
type Program struct {
	Opcodes []Opcode
}

// Debug locates the opcode, and the index of the code within it, at a
// memory address.
type Debug struct {
	*Opcode
	Index int
}

func (prog *Program) Debug(addr uint32) (dbg Debug) {
	for n, op := range prog.Opcodes {
		start := uint32(op.Addr)
		end := start + uint32(len(op.Codes))*WORD_SIZE
		if addr >= start && addr < end {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr-start) / WORD_SIZE,
			}
			break
		}
	}

	return
}

// Binary returns the memory image of the program.
func (prog *Program) Binary() (bins []uint32) {
	for _, code := range prog.Codes() {
		bins = append(bins, uint32(code))
	}

	return
}

// Codes iterates over every instruction word, by address.
func (prog *Program) Codes() iter.Seq2[uint32, Word] {
	return func(yield func(addr uint32, code Word) bool) {
		for _, op := range prog.Opcodes {
			addr := uint32(op.Addr)
			for n, code := range op.Codes {
				if !yield(addr+uint32(n)*WORD_SIZE, code) {
					return
				}
			}
		}
	}
}
