package cpu

import (
	"fmt"
)

// Op is the primary operation selector, bits 31-26 of a Word.
type Op int

//go:generate go tool stringer -linecomment -type=Op
const (
	OP_SPECIAL = Op(0)  // special
	OP_BEQ     = Op(4)  // beq
	OP_ADDI    = Op(8)  // addi
	OP_LW      = Op(35) // lw
	OP_SW      = Op(43) // sw
)

// Funct is the secondary selector of an OP_SPECIAL word, bits 5-0.
type Funct int

//go:generate go tool stringer -linecomment -type=Funct
const (
	FUNCT_ADD = Funct(0x20) // add
	FUNCT_SUB = Funct(0x22) // sub
)

// Reg is a register file index, 0 through 31.
type Reg int

// String returns the assembler name of the register.
func (reg Reg) String() string {
	return fmt.Sprintf("r%d", int(reg))
}

// Word is a single 32-bit instruction word.
type Word uint32

// Fields are the bit fields of an instruction word.
type Fields struct {
	Opcode Op
	Rs     Reg
	Rt     Reg
	Rd     Reg
	Shamt  int
	Funct  Funct
	Imm    int32 // Sign extended from 16 bits.
}

// Opcode returns bits 31-26.
func (word Word) Opcode() Op {
	return Op((word >> 26) & 0x3f)
}

// Rs returns bits 25-21.
func (word Word) Rs() Reg {
	return Reg((word >> 21) & 0x1f)
}

// Rt returns bits 20-16.
func (word Word) Rt() Reg {
	return Reg((word >> 16) & 0x1f)
}

// Rd returns bits 15-11.
func (word Word) Rd() Reg {
	return Reg((word >> 11) & 0x1f)
}

// Shamt returns the shift amount, bits 10-6.
func (word Word) Shamt() int {
	return int((word >> 6) & 0x1f)
}

// Funct returns bits 5-0.
func (word Word) Funct() Funct {
	return Funct(word & 0x3f)
}

// Imm returns bits 15-0, sign extended.
func (word Word) Imm() int32 {
	return int32(int16(word & 0xffff))
}

// Decode extracts all of the instruction fields.
func (word Word) Decode() Fields {
	return Fields{
		Opcode: word.Opcode(),
		Rs:     word.Rs(),
		Rt:     word.Rt(),
		Rd:     word.Rd(),
		Shamt:  word.Shamt(),
		Funct:  word.Funct(),
		Imm:    word.Imm(),
	}
}

// makeR creates a register-register instruction.
func makeR(funct Funct, rd, rs, rt Reg) Word {
	return Word(uint32(OP_SPECIAL)<<26 |
		(uint32(rs)&0x1f)<<21 |
		(uint32(rt)&0x1f)<<16 |
		(uint32(rd)&0x1f)<<11 |
		uint32(funct)&0x3f)
}

// makeI creates an immediate instruction.
func makeI(op Op, rt, rs Reg, imm int16) Word {
	return Word((uint32(op)&0x3f)<<26 |
		(uint32(rs)&0x1f)<<21 |
		(uint32(rt)&0x1f)<<16 |
		uint32(uint16(imm)))
}

// MakeCodeHalt creates the all-zero halt sentinel.
func MakeCodeHalt() Word {
	return Word(0)
}

// MakeCodeAdd creates 'rd = rs + rt'.
func MakeCodeAdd(rd, rs, rt Reg) Word {
	return makeR(FUNCT_ADD, rd, rs, rt)
}

// MakeCodeSub creates 'rd = rs - rt'.
func MakeCodeSub(rd, rs, rt Reg) Word {
	return makeR(FUNCT_SUB, rd, rs, rt)
}

// MakeCodeAddi creates 'rt = rs + imm'.
func MakeCodeAddi(rt, rs Reg, imm int16) Word {
	return makeI(OP_ADDI, rt, rs, imm)
}

// MakeCodeBeq creates a branch of 'offset' words, relative to the
// following instruction, taken when rs == rt.
func MakeCodeBeq(rs, rt Reg, offset int16) Word {
	return makeI(OP_BEQ, rt, rs, offset)
}

// MakeCodeLw creates 'rt = MEM[rs + offset]'.
func MakeCodeLw(rt, rs Reg, offset int16) Word {
	return makeI(OP_LW, rt, rs, offset)
}

// MakeCodeSw creates 'MEM[rs + offset] = rt'.
func MakeCodeSw(rt, rs Reg, offset int16) Word {
	return makeI(OP_SW, rt, rs, offset)
}

// Known returns true if the word encodes an instruction with an effect.
func (word Word) Known() bool {
	switch word.Opcode() {
	case OP_SPECIAL:
		switch word.Funct() {
		case FUNCT_ADD, FUNCT_SUB:
			return true
		}
	case OP_ADDI, OP_BEQ, OP_LW, OP_SW:
		return true
	}

	return false
}

// String returns the assembly language representation of this instruction.
func (word Word) String() (out string) {
	if word == 0 {
		return "halt"
	}

	if !word.Known() {
		return fmt.Sprintf(".word 0x%08x", uint32(word))
	}

	op := word.Opcode()
	switch op {
	case OP_SPECIAL:
		out = fmt.Sprintf("%v %v %v %v", word.Funct(), word.Rd(), word.Rs(), word.Rt())
	case OP_ADDI:
		out = fmt.Sprintf("%v %v %v %d", op, word.Rt(), word.Rs(), word.Imm())
	case OP_BEQ:
		out = fmt.Sprintf("%v %v %v %d", op, word.Rs(), word.Rt(), word.Imm())
	case OP_LW, OP_SW:
		out = fmt.Sprintf("%v %v %d(%v)", op, word.Rt(), word.Imm(), word.Rs())
	}

	return
}
