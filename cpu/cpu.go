package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"strings"
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE":    fmt.Sprintf("%d", MEMORY_SIZE),
	"WORD_SIZE":      fmt.Sprintf("%d", WORD_SIZE),
	"REGISTER_COUNT": fmt.Sprintf("%d", REGISTER_COUNT),
}

// Effect is the pending architectural effect of one instruction, latched
// by Execute and consumed by MemoryAccess and WriteBack in the same cycle.
type Effect struct {
	RegWrite bool  // Set if Result is to be written to Dest.
	Dest     Reg   // Write-back target register.
	Result   int32 // ALU result, replaced by the loaded word on MemRead.

	MemRead  bool   // Set if a word is loaded from Addr.
	MemWrite bool   // Set if Data is stored to Addr.
	Addr     uint32 // Effective memory address.
	Data     int32  // Store data.

	Branch bool   // Set if a branch was taken.
	Target uint32 // Branch target, valid if Branch is set.
}

// Cycle records one completed instruction cycle.
type Cycle struct {
	Pc     uint32 // Address the word was fetched from.
	Word   Word   // Fetched instruction.
	Fields Fields // Decoded fields of Word.
	Effect Effect // Effect after memory access.
}

// Cpu is the simulation context of the processor: register file,
// memory, program counter and cycle counter.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Pc       uint32                // Address of the next instruction.
	Register [REGISTER_COUNT]int32 // Register file. Register[0] is always 0.
	Memory   Memory                // Byte addressable memory.

	Cycles int // Executed instruction cycles since reset.
}

// NewCpu creates a new, zeroed, CPU.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the register file as rows of four registers.
func (cpu *Cpu) String() string {
	var text strings.Builder
	for n, val := range cpu.Register {
		fmt.Fprintf(&text, " R%2d: %8d", n, val)
		if n%4 == 3 {
			text.WriteString("\n")
		}
	}

	return text.String()
}

// Reset the CPU state.
// - Clears the registers and memory.
// - Sets the program counter to 0.
// - Zeros the cycle counter.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Memory.Reset()
	cpu.Pc = 0
	cpu.Cycles = 0
}

// Load packs words into memory starting at address 0.
// Loading stops at the first word that would not fit.
func (cpu *Cpu) Load(words iter.Seq[uint32]) (count int) {
	var addr uint32
	for word := range words {
		if !cpu.Memory.InRange(addr) {
			break
		}
		cpu.Memory.SetWord(addr, word)
		addr += WORD_SIZE
		count++
	}

	if cpu.Verbose {
		log.Printf("cpu: loaded %v words", count)
	}

	return
}

// Fetch reads the instruction at the program counter, and advances
// the program counter by one word.
func (cpu *Cpu) Fetch() (word Word) {
	word = Word(cpu.Memory.Word(cpu.Pc))
	cpu.Pc += WORD_SIZE
	return
}

// Execute determines the effect of an instruction.
// A taken branch updates the program counter, relative to the already
// advanced program counter.
// Unknown instructions have no effect.
func (cpu *Cpu) Execute(word Word) (eff Effect) {
	rs := word.Rs()
	rt := word.Rt()
	imm := word.Imm()

	switch word.Opcode() {
	case OP_SPECIAL:
		rd := word.Rd()
		switch word.Funct() {
		case FUNCT_ADD:
			eff.Result = cpu.Register[rs] + cpu.Register[rt]
			eff.Dest = rd
			eff.RegWrite = true
		case FUNCT_SUB:
			eff.Result = cpu.Register[rs] - cpu.Register[rt]
			eff.Dest = rd
			eff.RegWrite = true
		default:
			if cpu.Verbose {
				log.Printf("cpu: %08x: unknown funct %#x", cpu.Pc-WORD_SIZE, int(word.Funct()))
			}
		}
	case OP_ADDI:
		eff.Result = cpu.Register[rs] + imm
		eff.Dest = rt
		eff.RegWrite = true
	case OP_BEQ:
		if cpu.Register[rs] == cpu.Register[rt] {
			eff.Branch = true
			eff.Target = cpu.Pc + uint32(imm<<2)
			cpu.Pc = eff.Target
		}
	case OP_LW:
		eff.Addr = uint32(cpu.Register[rs] + imm)
		eff.MemRead = true
		eff.Dest = rt
		eff.RegWrite = true
	case OP_SW:
		eff.Addr = uint32(cpu.Register[rs] + imm)
		eff.Data = cpu.Register[rt]
		eff.MemWrite = true
		eff.RegWrite = false
	default:
		if cpu.Verbose {
			log.Printf("cpu: %08x: unknown opcode %v", cpu.Pc-WORD_SIZE, int(word.Opcode()))
		}
	}

	return
}

// MemoryAccess performs the load or store latched in the effect.
// A loaded word replaces the effect's result.
// Accesses outside of memory load zero, or are discarded.
func (cpu *Cpu) MemoryAccess(eff Effect) Effect {
	if eff.MemRead {
		if cpu.Memory.InRange(eff.Addr) {
			eff.Result = int32(cpu.Memory.Word(eff.Addr))
		} else {
			if cpu.Verbose {
				log.Printf("cpu: load from %#x out of range", eff.Addr)
			}
			eff.Result = 0
		}
	}

	if eff.MemWrite {
		if cpu.Memory.InRange(eff.Addr) {
			cpu.Memory.SetWord(eff.Addr, uint32(eff.Data))
		} else if cpu.Verbose {
			log.Printf("cpu: store to %#x out of range", eff.Addr)
		}
	}

	return eff
}

// WriteBack commits the effect's result to the register file.
// Writes to register 0 are discarded.
func (cpu *Cpu) WriteBack(eff Effect) {
	if !eff.RegWrite {
		return
	}

	if eff.Dest != 0 {
		cpu.Register[eff.Dest] = eff.Result
	}

	cpu.Register[0] = 0
}

// Tick executes a single instruction cycle.
// Returns ErrPcRange if the program counter has left memory, or
// ErrHalt if the fetched word is the all-zero halt sentinel. Neither
// counts as a cycle.
func (cpu *Cpu) Tick() (cycle Cycle, err error) {
	cycle.Pc = cpu.Pc

	if !cpu.Memory.InRange(cpu.Pc) {
		err = ErrPcRange
		return
	}

	cycle.Word = cpu.Fetch()
	if cycle.Word == 0 {
		err = ErrHalt
		return
	}

	cpu.Cycles++

	cycle.Fields = cycle.Word.Decode()
	if cpu.Verbose {
		log.Printf("%08x: %v", cycle.Pc, cycle.Word)
	}

	eff := cpu.Execute(cycle.Word)
	eff = cpu.MemoryAccess(eff)
	cpu.WriteBack(eff)

	cycle.Effect = eff

	return
}
