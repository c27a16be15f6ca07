package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))
	assert.Nil(prog.Binary())

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal("0x1000", asm.Equate["MEMORY_SIZE"])
	assert.Equal("0x50", asm.Equate["FONT_BASE"])
	assert.Equal("5", asm.Equate["FONT_HEIGHT"])
	assert.Equal("0x200", asm.Equate["PROGRAM_START"])
}

func opEqual(t *testing.T, expected, opcodes []Opcode) {
	assert := assert.New(t)

	assert.Equal(len(expected), len(opcodes))
	if len(expected) == len(opcodes) {
		for n := range len(expected) {
			assert.Equal(expected[n], opcodes[n])
		}
	}
}

func assemble(t *testing.T, asm *Assembler, program ...string) (prog *Program) {
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	require.NoError(t, err)

	return
}

func TestAssemblerInstructions(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		line string
		code uint16
	}){
		{"cls", 0x00e0},
		{"ret", 0x00ee},
		{"jp 0x208", 0x1208},
		{"jp v0 0x300", 0xb300},
		{"call 0xabc", 0x2abc},
		{"se v1 0x12", 0x3112},
		{"sne v1 18", 0x4112},
		{"se v1 v2", 0x5120},
		{"sne v1 v2", 0x9120},
		{"ld v3 0x42", 0x6342},
		{"ld v3 -1", 0x63ff},
		{"add v3 1", 0x7301},
		{"ld v3 v4", 0x8340},
		{"or v3 v4", 0x8341},
		{"and v3 v4", 0x8342},
		{"xor v3 v4", 0x8343},
		{"add v3 v4", 0x8344},
		{"sub v3 v4", 0x8345},
		{"shr v3 v4", 0x8346},
		{"shr v3", 0x8306},
		{"subn v3 v4", 0x8347},
		{"shl v3 v4", 0x834e},
		{"shl v3", 0x830e},
		{"ld i 0x2ea", 0xa2ea},
		{"rnd v5 0x0f", 0xc50f},
		{"drw va vb 15", 0xdabf},
		{"skp v6", 0xe69e},
		{"sknp v6", 0xe6a1},
		{"ld v7 dt", 0xf707},
		{"ld v7 k", 0xf70a},
		{"ld dt v7", 0xf715},
		{"ld st v7", 0xf718},
		{"add i v7", 0xf71e},
		{"ld f v7", 0xf729},
		{"ld b v7", 0xf733},
		{"ld [i] v7", 0xf755},
		{"ld v7 [i]", 0xf765},
		{"LD V1, 0x20", 0x6120},
		{"Drw V0, V1, 5", 0xd015},
		{"ld v1 'A'", 0x6141},
		{"ld v1 '\\n'", 0x610a},
	}

	asm := &Assembler{}
	for _, entry := range table {
		prog, err := asm.Parse(strings.NewReader(entry.line))
		if !assert.NoError(err, entry.line) {
			continue
		}
		assert.Equal([]byte{byte(entry.code >> 8), byte(entry.code)}, prog.Binary(), entry.line)
	}
}

func TestAssemblerData(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := assemble(t, asm,
		".byte 0xf0 0x90, 0x90 -1",
		".word 0x1234 0xabcd",
		"cls",
	)

	expected := []Opcode{
		{1, 0x200, []string{".byte", "0xf0", "0x90", "0x90", "-1"}, []byte{0xf0, 0x90, 0x90, 0xff}, ""},
		{2, 0x204, []string{".word", "0x1234", "0xabcd"}, []byte{0x12, 0x34, 0xab, 0xcd}, ""},
		{3, 0x208, []string{"cls"}, []byte{0x00, 0xe0}, ""},
	}

	opEqual(t, expected, prog.Opcodes)
	assert.Len(prog.Binary(), 10)
}

func TestAssemblerLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := assemble(t, asm,
		"start:",
		"ld i sprite ; forward reference",
		"drw v0 v1 5",
		"loop: jp loop",
		"call sub",
		"sprite: .byte 0xf0 0x90",
		"sub: also: ret",
		"jp start",
	)

	expected := []Opcode{
		{2, 0x200, []string{"ld", "i", "sprite"}, []byte{0xa2, 0x08}, "sprite"},
		{3, 0x202, []string{"drw", "v0", "v1", "5"}, []byte{0xd0, 0x15}, ""},
		{4, 0x204, []string{"jp", "loop"}, []byte{0x12, 0x04}, "loop"},
		{5, 0x206, []string{"call", "sub"}, []byte{0x22, 0x0a}, "sub"},
		{6, 0x208, []string{".byte", "0xf0", "0x90"}, []byte{0xf0, 0x90}, ""},
		{7, 0x20a, []string{"ret"}, []byte{0x00, 0xee}, ""},
		{8, 0x20c, []string{"jp", "start"}, []byte{0x12, 0x00}, "start"},
	}

	opEqual(t, expected, prog.Opcodes)

	assert.Equal(map[string]int{
		"start":  0x200,
		"loop":   0x204,
		"sprite": 0x208,
		"sub":    0x20a,
		"also":   0x20a,
	}, asm.Label)
}

func TestAssemblerEquate(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("SPEED", "7")

	prog := assemble(t, asm,
		".equ ROW 3",
		".equ KEY 'a'",
		"ld v0 ROW",
		"ld v1 KEY",
		"ld v2 $(ROW * 4 + 1)",
		"ld i $(FONT_BASE + 5 * 2)",
		"ld v3 $(LINENO)",
		"ld v4 SPEED",
		"data: .byte 1 2 3 4",
		"ld i $(data + 2)",
	)

	assert.Equal([]byte{
		0x60, 0x03,
		0x61, 0x61,
		0x62, 0x0d,
		0xa0, 0x5a,
		0x63, 0x07,
		0x64, 0x07,
		0x01, 0x02, 0x03, 0x04,
		0xa2, 0x0e,
	}, prog.Binary())

	// Predefines survive a new Parse, equates do not.
	prog = assemble(t, asm, "ld v0 SPEED")
	assert.Equal([]byte{0x60, 0x07}, prog.Binary())
	_, ok := asm.Equate["ROW"]
	assert.False(ok)
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := assemble(t, asm,
		".macro spot X Y",
		"ld v0 X",
		"ld v1 Y",
		"@loop: jp @loop",
		".endm",
		"spot 1 2",
		"spot 3, 4",
	)

	assert.Equal([]byte{
		0x60, 0x01,
		0x61, 0x02,
		0x12, 0x04,
		0x60, 0x03,
		0x61, 0x04,
		0x12, 0x0a,
	}, prog.Binary())

	assert.Equal(0x204, asm.Label["spot_1_loop"])
	assert.Equal(0x20a, asm.Label["spot_2_loop"])

	// Macro arguments do not leak out of the expansion.
	_, ok := asm.Equate["X"]
	assert.False(ok)
}

func TestAssemblerErrLabelMissing(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader("cls\ncall nowhere\n"))

	var lm ErrLabelMissing
	assert.True(errors.As(err, &lm))
	assert.Equal(ErrLabelMissing("nowhere"), lm)

	var se *ErrSyntax
	if assert.True(errors.As(err, &se)) {
		assert.Equal(2, se.LineNo)
		assert.Equal("call nowhere", se.Line)
	}
}

func TestAssemblerErrSyntax(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	// Various syntax errors
	table := [](struct {
		prog string
		line int
		err  error
	}){
		{"DUP:\nDUP:\n", 2, ErrLabelDuplicate},
		{"ld v0 nothing", 1, nil},
		{"ld v0 $(\"aaa\")", 1, nil},
		{"ld v0 $(more(\"aaa\"))", 1, nil},
		{"ld v0 $(0x10000000000000000)", 1, nil},
		{"ld v0 256", 1, ErrValueRange},
		{"ld v0 -129", 1, ErrValueRange},
		{"ld vg 1", 1, ErrRegisterInvalid},
		{"ld i 'ab'", 1, nil},
		{"ld x v0", 1, ErrRegisterInvalid},
		{"ld v0", 1, ErrOpcodeValueMissing},
		{"jp 0x1000", 1, ErrAddressRange},
		{"jp -1", 1, ErrAddressRange},
		{"jp v1 0x200", 1, ErrRegisterInvalid},
		{"jp v0 0x200 1", 1, ErrOpcodeExtraArgs},
		{"cls\njp nowhere\n", 2, nil},
		{"cls 1", 1, ErrOpcodeExtraArgs},
		{"call", 1, ErrOpcodeValueMissing},
		{"drw v0 v1 16", 1, ErrValueRange},
		{"drw v0 v1", 1, ErrOpcodeValueMissing},
		{"add i 1", 1, ErrRegisterInvalid},
		{"or v0 1", 1, ErrRegisterInvalid},
		{"shr", 1, ErrOpcodeValueMissing},
		{"skp 1", 1, ErrRegisterInvalid},
		{"nop v0", 1, ErrInstructionInvalid},
		{".byte", 1, ErrOpcodeValueMissing},
		{".word 0x10000", 1, ErrValueRange},
		{".equ", 1, ErrEquateSyntax},
		{".equ A", 1, ErrEquateSyntax},
		{".equ A 1\n.equ A 2\n", 2, ErrEquateDuplicate},
		{".macro\n", 1, ErrMacroSyntax},
		{".macro A B C\n.endm\nA 1\n", 3, ErrMacroSyntax},
		{".macro A B\nld v0 B\n.endm\nA 1\nA nothing\n", 5, nil},
		{".macro A B\n.macro C\n.endm\n.endm", 2, ErrMacroNesting},
		{".macro A B\n.endm\n.macro A\n.endm\n", 3, ErrMacroDuplicate},
		{".macro A B\n.endm\n.endm\n", 3, ErrMacroLonelyEndm},
		{".macro A\ncls\n", 2, ErrMacroLonely},
		{"jp far\n" + strings.Repeat("cls\n", 0x700) + "far: cls\n", 1, ErrAddressRange},
	}

	for _, entry := range table {
		_, err := asm.Parse(strings.NewReader(entry.prog))
		var se *ErrSyntax
		assert.NotNil(err, entry.prog)
		if err != nil {
			assert.True(errors.As(err, &se), entry.prog)
			assert.Equal(entry.line, se.LineNo, entry.prog)
			if entry.err != nil {
				assert.ErrorIs(err, entry.err, entry.prog)
			}
		}
	}
}

func TestAssemblerErrMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader(".macro A B\nld v0 B\n.endm\nA 0x100\n"))

	var em *ErrMacro
	if assert.True(errors.As(err, &em)) {
		assert.Equal("A", em.Macro)
		assert.Equal(2, em.Line)
	}
	assert.ErrorIs(err, ErrValueRange)
}

func TestAssemblerComment(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := assemble(t, asm,
		"ld v0 ';' ; semicolon",
		"ld v1 '\\\\' ; backslash",
		"ld v2 'a';",
	)

	assert.Equal([]byte{0x60, ';', 0x61, '\\', 0x62, 'a'}, prog.Binary())
}

func TestAssemblerSystemEquates(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := assemble(t, asm,
		"ld i FONT_BASE",
		"jp PROGRAM_START",
		"ld v0 FONT_HEIGHT",
	)

	assert.Equal([]byte{0xa0, 0x50, 0x12, 0x00, 0x60, 0x05}, prog.Binary())
	assert.Equal("0x1000", asm.Equate["MEMORY_SIZE"])
}
