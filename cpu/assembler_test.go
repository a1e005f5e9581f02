package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assemble(t *testing.T, program ...string) (prog *Program, asm *Assembler) {
	asm = &Assembler{}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	return
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))

	assert.Equal("0", asm.Equate["LINENO"])
}

func TestAssemblerProgram(t *testing.T) {
	assert := assert.New(t)

	prog, _ := assemble(t,
		"; add two numbers",
		"    addi r2, r0, 5",
		"    addi r3 r0 10 ; ten",
		"",
		"    add r4 r2 r3",
		"    halt",
	)

	expected := []Opcode{
		{2, 0, []string{"addi", "r2", "r0", "5"}, []Word{0x20020005}, ""},
		{3, 4, []string{"addi", "r3", "r0", "10"}, []Word{0x2003000A}, ""},
		{5, 8, []string{"add", "r4", "r2", "r3"}, []Word{0x00432020}, ""},
		{6, 12, []string{"halt"}, []Word{0x00000000}, ""},
	}

	assert.Equal(expected, prog.Opcodes)
	assert.Equal([]uint32{0x20020005, 0x2003000A, 0x00432020, 0x00000000}, prog.Binary())
}

func TestAssemblerForms(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		line string
		code Word
	}){
		{"nop", MakeCodeAdd(0, 0, 0)},
		{"move r5 r6", MakeCodeAdd(5, 6, 0)},
		{"li r1 -1", MakeCodeAddi(1, 0, -1)},
		{"sub $4 $2 $3", MakeCodeSub(4, 2, 3)},
		{"addi r1 zero 0xffff", MakeCodeAddi(1, 0, -1)},
		{"addi r1 r0 ~0", MakeCodeAddi(1, 0, -1)},
		{"addi r1 r0 -32768", MakeCodeAddi(1, 0, -32768)},
		{"addi r1 r0 'A'", MakeCodeAddi(1, 0, 65)},
		{"addi r1 r0 '\\n'", MakeCodeAddi(1, 0, 10)},
		{"addi r1 r0 $(3 * 4 + 1)", MakeCodeAddi(1, 0, 13)},
		{"addi r1 r0 $(-8 // 2)", MakeCodeAddi(1, 0, -4)},
		{"lw r1 100(r0)", MakeCodeLw(1, 0, 100)},
		{"lw r1 -4(r2)", MakeCodeLw(1, 2, -4)},
		{"lw r1 r2 -4", MakeCodeLw(1, 2, -4)},
		{"sw r7 (r2)", MakeCodeSw(7, 2, 0)},
		{"sw r7, 0x10(r31)", MakeCodeSw(7, 31, 16)},
		{"beq r1 r2 -3", MakeCodeBeq(1, 2, -3)},
		{"b 2", MakeCodeBeq(0, 0, 2)},
		{".word 0xdeadbeef", Word(0xdeadbeef)},
		{".word -1", Word(0xffffffff)},
		{"halt", MakeCodeHalt()},
	}

	for _, entry := range table {
		prog, _ := assemble(t, entry.line)
		assert.Equal([]uint32{uint32(entry.code)}, prog.Binary(), entry.line)
	}
}

func TestAssemblerDisassembly(t *testing.T) {
	assert := assert.New(t)

	for _, code := range []Word{
		MakeCodeHalt(),
		MakeCodeAdd(4, 2, 3),
		MakeCodeSub(31, 30, 29),
		MakeCodeAddi(2, 0, -5),
		MakeCodeBeq(1, 2, -3),
		MakeCodeLw(5, 6, 100),
		MakeCodeSw(1, 0, -4),
		makeR(Funct(0x21), 1, 2, 3),
		Word(0xfc000001),
	} {
		prog, _ := assemble(t, code.String())
		assert.Equal([]uint32{uint32(code)}, prog.Binary(), code.String())
	}
}

func TestAssemblerLabels(t *testing.T) {
	assert := assert.New(t)

	prog, asm := assemble(t,
		"      li r1 3",
		"loop: addi r2 r2 1",
		"      addi r1 r1 -1",
		"      beq r1 r0 done",
		"      b loop",
		"done: halt",
	)

	assert.Equal(map[string]int{"loop": 4, "done": 20}, asm.Label)
	assert.Equal([]uint32{
		uint32(MakeCodeAddi(1, 0, 3)),
		uint32(MakeCodeAddi(2, 2, 1)),
		uint32(MakeCodeAddi(1, 1, -1)),
		uint32(MakeCodeBeq(1, 0, 1)),
		uint32(MakeCodeBeq(0, 0, -4)),
		uint32(MakeCodeHalt()),
	}, prog.Binary())
	assert.Equal("done", prog.Opcodes[3].LinkLabel)
}

func TestAssemblerLabelExpression(t *testing.T) {
	assert := assert.New(t)

	prog, _ := assemble(t,
		"       b start",
		"data:  .word 7",
		"start: lw r1 r0 $(data)",
		"       halt",
	)

	assert.Equal([]uint32{
		uint32(MakeCodeBeq(0, 0, 1)),
		7,
		uint32(MakeCodeLw(1, 0, 4)),
		0,
	}, prog.Binary())
}

func TestAssemblerEquate(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("MEMORY_SIZE", "4096")
	asm.Predefine("TMP", "r9")

	prog, err := asm.Parse(strings.NewReader(strings.Join([]string{
		".equ COUNT 5",
		".equ LAST $(MEMORY_SIZE - 4)",
		"li TMP COUNT",
		"sw TMP r0 LAST",
		"addi r1 r0 $(LINENO)",
	}, "\n")))
	assert.NoError(err)

	assert.Equal([]uint32{
		uint32(MakeCodeAddi(9, 0, 5)),
		uint32(MakeCodeSw(9, 0, 4092)),
		uint32(MakeCodeAddi(1, 0, 5)),
	}, prog.Binary())
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	prog, _ := assemble(t,
		".macro store REG ADDR",
		"    sw REG r0 ADDR",
		".endm",
		".macro countdown REG",
		"@top: beq REG r0 @end",
		"    addi REG REG -1",
		"    b @top",
		"@end:",
		".endm",
		"    li r1 2",
		"    store r1 100",
		"    countdown r1",
		"    countdown r1",
		"    halt",
	)

	assert.Equal([]uint32{
		uint32(MakeCodeAddi(1, 0, 2)),
		uint32(MakeCodeSw(1, 0, 100)),
		uint32(MakeCodeBeq(1, 0, 2)),
		uint32(MakeCodeAddi(1, 1, -1)),
		uint32(MakeCodeBeq(0, 0, -3)),
		uint32(MakeCodeBeq(1, 0, 2)),
		uint32(MakeCodeAddi(1, 1, -1)),
		uint32(MakeCodeBeq(0, 0, -3)),
		uint32(MakeCodeHalt()),
	}, prog.Binary())
}

func TestAssemblerProgramSize(t *testing.T) {
	assert := assert.New(t)

	lines := make([]string, MEMORY_SIZE/WORD_SIZE)
	for n := range lines {
		lines[n] = "addi r1 r1 1"
	}

	_, asm := assemble(t, lines...)
	assert.Equal(MEMORY_SIZE, asm.currentAddr())

	_, err := asm.Parse(strings.NewReader(strings.Join(append(lines, "halt"), "\n")))
	assert.ErrorIs(err, ErrProgramSize)
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		err     error
		lineno  int
	}){
		{"missing", []string{"add r1 r2"}, ErrOpcodeValueMissing, 1},
		{"extra", []string{"add r1 r2 r3 r4"}, ErrOpcodeExtraArgs, 1},
		{"extra_halt", []string{"halt now"}, ErrOpcodeExtraArgs, 1},
		{"register", []string{"halt", "add r1 r2 r32"}, ErrRegisterInvalid, 2},
		{"register_name", []string{"add r1 r2 sp"}, ErrRegisterInvalid, 1},
		{"range", []string{"addi r1 r0 70000"}, ErrImmediateRange, 1},
		{"range_negative", []string{"addi r1 r0 -32769"}, ErrImmediateRange, 1},
		{"instruction", []string{"jump r1"}, ErrInstructionInvalid, 1},
		{"label_duplicate", []string{"x: halt", "x: halt"}, ErrLabelDuplicate, 2},
		{"equate_duplicate", []string{".equ A 1", ".equ A 2"}, ErrEquateDuplicate, 2},
		{"equate_syntax", []string{".equ A"}, ErrEquateSyntax, 1},
		{"macro_lonely", []string{".macro m", "halt"}, ErrMacroLonely, 2},
		{"macro_endm", []string{".endm"}, ErrMacroLonelyEndm, 1},
		{"macro_nesting", []string{".macro a", ".macro b"}, ErrMacroNesting, 2},
		{"macro_args", []string{".macro m X", "li X 1", ".endm", "m"}, ErrMacroSyntax, 4},
		{"macro_body", []string{".macro m X", "li X 1", ".endm", "m r99"}, ErrRegisterInvalid, 4},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(strings.Join(entry.program, "\n")))
		assert.ErrorIs(err, entry.err, entry.name)

		var syntax *ErrSyntax
		if assert.True(errors.As(err, &syntax), entry.name) {
			assert.Equal(entry.lineno, syntax.LineNo, entry.name)
		}
	}
}

func TestAssemblerErrorTypes(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Parse(strings.NewReader("beq r0 r0 nowhere\nhalt"))
	var missing ErrLabelMissing
	assert.True(errors.As(err, &missing))
	assert.Equal(ErrLabelMissing("nowhere"), missing)

	_, err = asm.Parse(strings.NewReader("lw r1 100"))
	var address ErrParseAddress
	assert.True(errors.As(err, &address))

	_, err = asm.Parse(strings.NewReader(".word zzz"))
	var number ErrParseNumber
	assert.True(errors.As(err, &number))

	_, err = asm.Parse(strings.NewReader("addi r1 r0 $(\"text\")"))
	var expr ErrParseExpression
	assert.True(errors.As(err, &expr))

	_, err = asm.Parse(strings.NewReader("addi r1 r0 $(1 +)"))
	assert.Error(err)
}
