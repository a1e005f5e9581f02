// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"fmt"
	goio "io"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/minicpu/cpu"
	"github.com/ezrec/minicpu/internal"
	"github.com/ezrec/minicpu/io"
)

const (
	ROM_WORDS    = cpu.MEMORY_SIZE / cpu.WORD_SIZE // Words in a full memory image.
	PROGRAM_BASE = 0                               // Load address of the image.
)

var _emulator_defines = map[string]string{
	"ROM_WORDS":    fmt.Sprintf("%d", ROM_WORDS),
	"PROGRAM_BASE": fmt.Sprintf("%d", PROGRAM_BASE),
}

// Emulator state. CPU + program image + diagnostics.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	Quiet    bool         // If set, only the final register dump is traced.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Rom   io.Rom      // Program image, loaded at reset.
	Trace goio.Writer // Diagnostic output, or nil for none.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
	}

	emu.Rom.Capacity = ROM_WORDS

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset the emulator, and load the program image into memory.
// If a program listing is present, it replaces the image.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	if len(emu.Program.Opcodes) != 0 {
		emu.Rom.Data = emu.Program.Binary()
	}

	emu.Cpu.Reset()
	count := emu.Cpu.Load(emu.Rom.Words())
	if count < len(emu.Rom.Data) && emu.Verbose {
		log.Printf("emulator: %v of %v words loaded", count, len(emu.Rom.Data))
	}

	err = emu.trace(f("Mini CPU Simulator Initialized\n"))

	return
}

// Cycles returns the executed instruction cycles since a reset.
func (emu *Emulator) Cycles() int {
	return emu.Cpu.Cycles
}

// Pc returns the address of the next instruction.
func (emu *Emulator) Pc() uint32 {
	return emu.Cpu.Pc
}

// Code returns the instruction at the program counter.
func (emu *Emulator) Code() cpu.Word {
	if !emu.Cpu.Memory.InRange(emu.Cpu.Pc) {
		return cpu.MakeCodeHalt()
	}

	return cpu.Word(emu.Cpu.Memory.Word(emu.Cpu.Pc))
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction cycle of the emulator.
// done is set when the processor halts, either on the all-zero word or
// when the program counter leaves memory.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	cycle, err := emu.Cpu.Tick()
	switch {
	case errors.Is(err, cpu.ErrHalt):
		done = true
		err = nil
		if !emu.Quiet {
			err = emu.trace(f("Program complete\n"))
		}
		return
	case errors.Is(err, cpu.ErrPcRange):
		done = true
		err = nil
		return
	case err != nil:
		return
	}

	if !emu.Quiet {
		err = emu.traceCycle(cycle)
	}

	return
}

// Run ticks the emulator until it halts, then traces the final
// register dump.
func (emu *Emulator) Run() (err error) {
	var done bool
	for !done {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	err = emu.Final()

	return
}
