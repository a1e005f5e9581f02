package emulator

import (
	"strings"

	"github.com/ezrec/minicpu/cpu"
)

// trace writes text to the trace output, if any.
func (emu *Emulator) trace(text string) (err error) {
	if emu.Trace == nil {
		return
	}

	_, err = emu.Trace.Write([]byte(text))
	return
}

// traceCycle writes the diagnostics for one instruction cycle.
func (emu *Emulator) traceCycle(cycle cpu.Cycle) (err error) {
	if emu.Trace == nil {
		return
	}

	var text strings.Builder

	text.WriteString("\n==============================\n")
	text.WriteString(f("Cycle %d\n", emu.Cpu.Cycles))
	text.WriteString(f("PC = %#x\n", cycle.Pc))
	text.WriteString(f("IR = 0x%08x\n", uint32(cycle.Word)))

	for _, line := range DescribeFields(cycle.Fields) {
		text.WriteString(line + "\n")
	}
	for _, line := range Describe(cycle) {
		text.WriteString(line + "\n")
	}

	text.WriteString(f("Registers:\n"))
	text.WriteString(emu.Cpu.String())

	err = emu.trace(text.String())
	return
}

// Final writes the final register dump to the trace.
func (emu *Emulator) Final() (err error) {
	err = emu.trace(f("\n==== Final Mini CPU Results ====\n") +
		f("Cycles: %d\n", emu.Cpu.Cycles) +
		f("Registers:\n") +
		emu.Cpu.String())
	return
}

// DescribeFields returns the decoded fields of an instruction, one per line.
func DescribeFields(fields cpu.Fields) []string {
	return []string{
		f("Decoded instructions:"),
		f(" opcode = %d", int(fields.Opcode)),
		f(" rs = %d", int(fields.Rs)),
		f(" rt = %d", int(fields.Rt)),
		f(" rd = %d", int(fields.Rd)),
		f(" shamt = %d", fields.Shamt),
		f(" funct = %d", int(fields.Funct)),
		f(" imm = %d", fields.Imm),
	}
}

// Describe returns a human-readable account of what an instruction cycle
// did, one line per phase that had an effect.
func Describe(cycle cpu.Cycle) (lines []string) {
	fields := cycle.Fields
	eff := cycle.Effect

	lines = append(lines, f("Execute:"))

	switch fields.Opcode {
	case cpu.OP_SPECIAL:
		switch fields.Funct {
		case cpu.FUNCT_ADD:
			lines = append(lines, f(" ADD: R%d = R%d + R%d", int(fields.Rd), int(fields.Rs), int(fields.Rt)))
		case cpu.FUNCT_SUB:
			lines = append(lines, f(" SUB: R%d = R%d - R%d", int(fields.Rd), int(fields.Rs), int(fields.Rt)))
		default:
			lines = append(lines, f(" R type funct unknown: %d", int(fields.Funct)))
		}
	case cpu.OP_ADDI:
		lines = append(lines, f(" ADDI: R%d = R%d + %d", int(fields.Rt), int(fields.Rs), fields.Imm))
	case cpu.OP_BEQ:
		lines = append(lines, f(" BEQ: if R%d == R%d", int(fields.Rs), int(fields.Rt)))
		if eff.Branch {
			lines = append(lines, f(" Branch taken. New PC = %#x", eff.Target))
		} else {
			lines = append(lines, f(" Branch not taken."))
		}
	case cpu.OP_LW:
		lines = append(lines, f(" LW: R%d = MEM[%d]", int(fields.Rt), eff.Addr))
	case cpu.OP_SW:
		lines = append(lines, f(" SW: MEM[%d] = R%d", eff.Addr, int(fields.Rt)))
	default:
		lines = append(lines, f(" opcode unknown: %d", int(fields.Opcode)))
	}

	if eff.MemRead {
		lines = append(lines, f(" Memory Read: %d", eff.Result))
	}
	if eff.MemWrite {
		lines = append(lines, f(" Memory Write: %d", eff.Data))
	}
	if eff.RegWrite {
		lines = append(lines, f(" Write back: R%d = %d", int(eff.Dest), eff.Result))
	}

	return
}
