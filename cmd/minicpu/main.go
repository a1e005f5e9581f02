// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/tebeka/atexit"

	"github.com/ezrec/minicpu/cpu"
	"github.com/ezrec/minicpu/emulator"
	"github.com/ezrec/minicpu/monitor"
	"github.com/ezrec/minicpu/translate"
)

// defineFlag collects repeated -D NAME=VALUE assembler predefines.
type defineFlag map[string]string

func (df defineFlag) String() string {
	var defs []string
	for name, value := range df {
		defs = append(defs, name+"="+value)
	}
	return strings.Join(defs, ",")
}

func (df defineFlag) Set(text string) error {
	name, value, ok := strings.Cut(text, "=")
	if !ok {
		value = "1"
	}
	df[name] = value
	return nil
}

func main() {
	var assemble bool
	var output string
	var trace string
	var quiet bool
	var verbose bool
	var interactive bool
	defines := defineFlag{}

	flag.BoolVar(&assemble, "a", false, "Program is assembly source, not hex")
	flag.StringVar(&output, "o", "", "Write the program image as hex, do not execute")
	flag.StringVar(&trace, "t", "-", "Trace output")
	flag.BoolVar(&quiet, "q", false, "Quiet mode, final registers only")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&interactive, "m", false, "Interactive monitor")
	flag.Var(defines, "D", "Assembler predefine NAME=VALUE")

	flag.Usage = func() {
		translate.Fprint(flag.CommandLine.Output(), "Usage: %v [options] <program.hex>\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		atexit.Exit(1)
	}
	program := flag.Arg(0)

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Quiet = quiet

	if assemble {
		inf, err := os.Open(program)
		if err != nil {
			log.Printf("%v: %v", program, err)
			atexit.Exit(1)
		}
		asm := &cpu.Assembler{Verbose: verbose}
		for name, value := range emu.Defines() {
			asm.Predefine(name, value)
		}
		for name, value := range defines {
			asm.Predefine(name, value)
		}
		emu.Program, err = asm.Parse(inf)
		inf.Close()
		if err != nil {
			log.Printf("%v: %v", program, err)
			atexit.Exit(1)
		}
		emu.Rom.Data = emu.Program.Binary()
	} else {
		inf, err := os.Open(program)
		if err != nil {
			// Memory stays zeroed, which halts on the first fetch.
			translate.Fprint(os.Stderr, "Error opening file: %v\n", program)
		} else {
			err = emu.Rom.ReadHex(inf)
			inf.Close()
			if err != nil {
				log.Printf("%v: %v", program, err)
			}
		}
	}

	if len(output) != 0 {
		ouf, err := os.Create(output)
		if err != nil {
			log.Printf("%v: %v", output, err)
			atexit.Exit(1)
		}
		atexit.Register(func() { ouf.Close() })
		err = emu.Rom.WriteHex(ouf)
		if err != nil {
			log.Printf("%v: %v", output, err)
			atexit.Exit(1)
		}
		atexit.Exit(0)
	}

	if interactive {
		err := monitor.Run(emu)
		if err != nil {
			log.Printf("monitor: %v", err)
			atexit.Exit(1)
		}
		atexit.Exit(0)
	}

	if trace == "-" {
		emu.Trace = os.Stdout
	} else {
		ouf, err := os.Create(trace)
		if err != nil {
			log.Printf("%v: %v", trace, err)
			atexit.Exit(1)
		}
		atexit.Register(func() { ouf.Close() })
		emu.Trace = ouf
	}

	err := emu.Reset()
	if err == nil {
		err = emu.Run()
	}
	if err != nil {
		log.Printf("%v: %v", program, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
