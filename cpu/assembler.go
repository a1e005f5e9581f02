// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass macro assembler for the mini CPU.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of branch labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regAlias maps the register names that are not rN or $N.
var regAlias = map[string]Reg{
	"zero": 0,
}

// regOf returns the register named by a word.
func (asm *Assembler) regOf(word string) (reg Reg, err error) {
	reg, ok := regAlias[word]
	if ok {
		return
	}

	if len(word) < 2 || (word[0] != 'r' && word[0] != '$') {
		err = ErrRegisterInvalid
		return
	}

	n, perr := strconv.ParseUint(word[1:], 10, 8)
	if perr != nil || n >= REGISTER_COUNT {
		err = ErrRegisterInvalid
		return
	}

	reg = Reg(n)
	return
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) > 0 && word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 <= 0xffffffff && v64 >= -int64(0x80000000) {
		if v64 < 0 {
			value = uint32(0xffffffff + (v64 + 1))
		} else {
			value = uint32(v64)
		}
	} else {
		err = ErrParseNumber(word)
		return
	}

	if invert {
		value = ^value
	}

	return
}

// immOf returns a 16-bit immediate.
// Signed values in -32768..32767 and raw values up to 0xffff are accepted.
func (asm *Assembler) immOf(word string) (imm int16, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if int32(value) < -0x8000 || int32(value) > 0xffff {
		err = ErrImmediateRange
		return
	}

	imm = int16(uint16(value))
	return
}

// addrRe matches an 'offset(register)' address.
var addrRe = regexp.MustCompile(`^(.*)\(([^()]+)\)$`)

// addressOf parses the base register and offset of a load or store.
// Both 'offset(reg)' and 'reg offset' forms are accepted.
func (asm *Assembler) addressOf(words []string) (base Reg, offset int16, err error) {
	switch len(words) {
	case 0:
		err = ErrOpcodeValueMissing
	case 1:
		match := addrRe.FindStringSubmatch(words[0])
		if match == nil {
			err = ErrParseAddress(words[0])
			return
		}
		base, err = asm.regOf(match[2])
		if err != nil {
			return
		}
		if len(match[1]) > 0 {
			offset, err = asm.immOf(match[1])
		}
	case 2:
		base, err = asm.regOf(words[0])
		if err != nil {
			return
		}
		offset, err = asm.immOf(words[1])
	default:
		err = ErrOpcodeExtraArgs
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(int32(value32)))
	}
	for key, addr := range asm.Label {
		if _, ok := pred[key]; !ok {
			pred[key] = starlark.MakeInt(addr)
		}
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	line = re.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", int32(value))
	})
	if err != nil {
		return
	}

	words = strings.Fields(strings.ReplaceAll(line, ",", " "))

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		// '@' labels are unique to each expansion.
		unique := fmt.Sprintf("%v_%v_", name, lineno)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", unique)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddr gets the address of the next generated code.
func (asm *Assembler) currentAddr() int {
	if len(asm.Opcode) == 0 {
		return 0
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Addr + len(last.Codes)*WORD_SIZE
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}

		if asm.currentAddr() > MEMORY_SIZE {
			err = ErrProgramSize
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of branch labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		lineno = op.LineNo
		line = strings.Join(op.Words, " ")

		label := op.LinkLabel
		addr, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		// Branches are relative to the following instruction.
		next := op.Addr + len(op.Codes)*WORD_SIZE
		offset := (addr - next) / WORD_SIZE
		if (addr-next)%WORD_SIZE != 0 || offset < -0x8000 || offset > 0x7fff {
			err = ErrBranchRange
			return
		}
		linked := &op.Codes[len(op.Codes)-1]
		*linked = (*linked &^ 0xffff) | Word(uint16(int16(offset)))
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// aluMap maps register-register opcode names.
var aluMap = map[string]Funct{
	"add": FUNCT_ADD,
	"sub": FUNCT_SUB,
}

// memMap maps load and store opcode names.
var memMap = map[string]Op{
	"lw": OP_LW,
	"sw": OP_SW,
}

// regsOf parses a list of register names.
func (asm *Assembler) regsOf(words []string) (regs []Reg, err error) {
	for _, word := range words {
		var reg Reg
		reg, err = asm.regOf(word)
		if err != nil {
			return
		}
		regs = append(regs, reg)
	}

	return
}

// argCount checks that exactly 'count' arguments follow the opcode.
func argCount(words []string, count int) (err error) {
	switch {
	case len(words) < count+1:
		err = ErrOpcodeValueMissing
	case len(words) > count+1:
		err = ErrOpcodeExtraArgs
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Word
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(codes) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Addr: asm.currentAddr(), Words: initial_words, Codes: codes, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	// Alternate syntax substitutions
	switch {
	case len(words) == 1 && words[0] == "nop":
		// nop => add r0 r0 r0
		words = []string{"add", "r0", "r0", "r0"}
	case len(words) == 3 && words[0] == "move":
		// move RD RS => add RD RS r0
		words = []string{"add", words[1], words[2], "r0"}
	case len(words) == 3 && words[0] == "li":
		// li RT IMM => addi RT r0 IMM
		words = []string{"addi", words[1], "r0", words[2]}
	case len(words) == 2 && words[0] == "b":
		// b TARGET => beq r0 r0 TARGET
		words = []string{"beq", "r0", "r0", words[1]}
	default:
		// unchanged
	}

	switch words[0] {
	case "halt":
		err = argCount(words, 0)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeHalt())
	case ".word":
		err = argCount(words, 1)
		if err != nil {
			return
		}
		var value uint32
		value, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		codes = append(codes, Word(value))
	case "add", "sub":
		err = argCount(words, 3)
		if err != nil {
			return
		}
		var regs []Reg
		regs, err = asm.regsOf(words[1:])
		if err != nil {
			return
		}
		codes = append(codes, makeR(aluMap[words[0]], regs[0], regs[1], regs[2]))
	case "addi":
		err = argCount(words, 3)
		if err != nil {
			return
		}
		var regs []Reg
		regs, err = asm.regsOf(words[1:3])
		if err != nil {
			return
		}
		var imm int16
		imm, err = asm.immOf(words[3])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeAddi(regs[0], regs[1], imm))
	case "beq":
		err = argCount(words, 3)
		if err != nil {
			return
		}
		var regs []Reg
		regs, err = asm.regsOf(words[1:3])
		if err != nil {
			return
		}
		var offset int16
		target := words[3]
		if _, nerr := asm.valueOf(target); nerr == nil {
			offset, err = asm.immOf(target)
			if err != nil {
				return
			}
		} else {
			label = target
		}
		codes = append(codes, MakeCodeBeq(regs[0], regs[1], offset))
	case "lw", "sw":
		if len(words) < 3 {
			err = ErrOpcodeValueMissing
			return
		}
		var rt Reg
		rt, err = asm.regOf(words[1])
		if err != nil {
			return
		}
		var base Reg
		var offset int16
		base, offset, err = asm.addressOf(words[2:])
		if err != nil {
			return
		}
		codes = append(codes, makeI(memMap[words[0]], rt, base, offset))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}
