// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

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

	"github.com/ezrec/chip8/memory"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = func() map[string]string {
	equate := maps.Collect(memory.Defines())
	equate["LINENO"] = "0"
	return equate
}()

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
)

// Assembler is a single pass macro assembler for CHIP-8 programs.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	expansion int                 // Count of macro expansions.
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate, or redefines an existing equate, before
// the next Parse.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	if len(word) == 0 {
		err = ErrOpcodeValueMissing
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	value, err = strconv.ParseInt(word, 0, 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	return
}

// isRegister returns true if the word names one of v0 to vf.
func isRegister(word string) bool {
	_, err := registerOf(word)
	return err == nil
}

// registerOf returns the index of a v0 to vf register.
func registerOf(word string) (x uint8, err error) {
	word = strings.ToLower(word)
	if len(word) != 2 || word[0] != 'v' {
		err = ErrRegisterInvalid
		return
	}

	value, perr := strconv.ParseUint(word[1:], 16, 4)
	if perr != nil {
		err = ErrRegisterInvalid
		return
	}

	x = uint8(value)
	return
}

// byteOf returns an 8-bit immediate. Negative values are two's complement.
func (asm *Assembler) byteOf(word string) (nn uint8, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if value < -128 || value > 0xff {
		err = ErrValueRange
		return
	}

	nn = uint8(value)
	return
}

// nibbleOf returns a 4-bit immediate.
func (asm *Assembler) nibbleOf(word string) (n uint8, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if value < 0 || value > 0xf {
		err = ErrValueRange
		return
	}

	n = uint8(value)
	return
}

// addressOf returns a 12-bit address, or the label to link it to.
func (asm *Assembler) addressOf(word string) (nnn uint16, label string, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		if reLabel.MatchString(word) && !isRegister(word) {
			label = word
			err = nil
		}
		return
	}

	if value < 0 || value >= memory.MEMORY_SIZE {
		err = ErrAddressRange
		return
	}

	nnn = uint16(value)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value64 int64
		value64, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(value64)
	}
	for key, address := range asm.Label {
		pred[key] = starlark.MakeInt(address)
	}
	err = nil

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
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// stripComment removes a trailing ';' comment, ignoring any ';' inside
// a character literal.
func stripComment(text string) string {
	quoted := false
	for n := 0; n < len(text); n++ {
		switch text[n] {
		case '\\':
			if quoted {
				n++
			}
		case '\'':
			quoted = !quoted
		case ';':
			if !quoted {
				return text[:n]
			}
		}
	}

	return text
}

// splitWords splits a line on whitespace and commas.
func splitWords(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
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
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%v", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)

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
		asm.Label[label] = asm.currentAddress()
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
			asm.Equate[arg] = args[n]
		}
		defer func() { asm.Equate = old_equate }()

		// Local labels are unique to each expansion.
		asm.expansion++
		local := fmt.Sprintf("%v_%v_", name, asm.expansion)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddress gets the load address of the next opcode.
func (asm *Assembler) currentAddress() int {
	if len(asm.Opcode) == 0 {
		return memory.PROGRAM_START
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Address + len(last.Data)
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
	asm.expansion = 0
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

		line = strings.TrimSpace(stripComment(text))
		words := splitWords(line)

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
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		address, ok := asm.Label[label]
		if !ok {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrLabelMissing(label)
			return
		}
		if address >= memory.MEMORY_SIZE {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrAddressRange
			return
		}
		if len(op.Data) != 2 {
			log.Fatalf("Unable to link label '%s' to line %d: %v", label, op.LineNo, op.Words)
		}
		op.Data[0] |= byte((address >> 8) & 0xf)
		op.Data[1] |= byte(address & 0xff)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// arity checks the operand count of an instruction.
func arity(words []string, lo, hi int) (err error) {
	switch {
	case len(words)-1 < lo:
		err = ErrOpcodeValueMissing
	case len(words)-1 > hi:
		err = ErrOpcodeExtraArgs
	}
	return
}

// codeXNN encodes the 0xPXNN instruction family.
func codeXNN(prefix uint16, x uint8, nn uint8) Code {
	return Code(prefix<<12 | uint16(x)<<8 | uint16(nn))
}

// codeXYN encodes the 0xPXYN instruction family.
func codeXYN(prefix uint16, x uint8, y uint8, n uint8) Code {
	return MakeCode(uint8(prefix), x, y, n)
}

// codeNNN encodes the 0xPNNN instruction family.
func codeNNN(prefix uint16, nnn uint16) Code {
	return Code(prefix<<12 | (nnn & 0xfff))
}

// regPair parses two register operands.
func regPair(a, b string) (x, y uint8, err error) {
	x, err = registerOf(a)
	if err != nil {
		return
	}
	y, err = registerOf(b)
	return
}

// aluOps are the 8XYN register to register instructions.
var aluOps = map[string]uint8{
	"or":   0x1,
	"and":  0x2,
	"xor":  0x3,
	"sub":  0x5,
	"subn": 0x7,
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var data []byte
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(data) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Address: asm.currentAddress(), Words: initial_words, Data: data, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	var code Code
	var x, y, n, nn uint8
	var nnn uint16

	mnemonic := strings.ToLower(words[0])
	operand := func(i int) string {
		return strings.ToLower(words[i])
	}

	switch mnemonic {
	case ".byte":
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		var bytes []byte
		for _, word := range words[1:] {
			nn, err = asm.byteOf(word)
			if err != nil {
				return
			}
			bytes = append(bytes, nn)
		}
		data = bytes
		return
	case ".word":
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		var bytes []byte
		for _, word := range words[1:] {
			var value int64
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			if value < -0x8000 || value > 0xffff {
				err = ErrValueRange
				return
			}
			bytes = append(bytes, byte(value>>8), byte(value))
		}
		data = bytes
		return
	case "cls", "ret":
		if err = arity(words, 0, 0); err != nil {
			return
		}
		code = 0x00e0
		if mnemonic == "ret" {
			code = 0x00ee
		}
	case "jp":
		if err = arity(words, 1, 2); err != nil {
			return
		}
		prefix := uint16(0x1)
		target := words[1]
		if len(words) == 3 {
			if operand(1) != "v0" {
				err = ErrRegisterInvalid
				return
			}
			prefix = 0xb
			target = words[2]
		}
		nnn, label, err = asm.addressOf(target)
		if err != nil {
			return
		}
		code = codeNNN(prefix, nnn)
	case "call":
		if err = arity(words, 1, 1); err != nil {
			return
		}
		nnn, label, err = asm.addressOf(words[1])
		if err != nil {
			return
		}
		code = codeNNN(0x2, nnn)
	case "se", "sne":
		if err = arity(words, 2, 2); err != nil {
			return
		}
		x, err = registerOf(words[1])
		if err != nil {
			return
		}
		if isRegister(words[2]) {
			y, _ = registerOf(words[2])
			code = codeXYN(0x5, x, y, 0)
			if mnemonic == "sne" {
				code = codeXYN(0x9, x, y, 0)
			}
		} else {
			nn, err = asm.byteOf(words[2])
			if err != nil {
				return
			}
			code = codeXNN(0x3, x, nn)
			if mnemonic == "sne" {
				code = codeXNN(0x4, x, nn)
			}
		}
	case "ld":
		if err = arity(words, 2, 2); err != nil {
			return
		}
		code, label, err = asm.parseLoad(operand(1), words[2])
		if err != nil {
			return
		}
	case "add":
		if err = arity(words, 2, 2); err != nil {
			return
		}
		if operand(1) == "i" {
			x, err = registerOf(words[2])
			if err != nil {
				return
			}
			code = codeXNN(0xf, x, 0x1e)
			break
		}
		x, err = registerOf(words[1])
		if err != nil {
			return
		}
		if isRegister(words[2]) {
			y, _ = registerOf(words[2])
			code = codeXYN(0x8, x, y, 0x4)
		} else {
			nn, err = asm.byteOf(words[2])
			if err != nil {
				return
			}
			code = codeXNN(0x7, x, nn)
		}
	case "or", "and", "xor", "sub", "subn":
		if err = arity(words, 2, 2); err != nil {
			return
		}
		x, y, err = regPair(words[1], words[2])
		if err != nil {
			return
		}
		code = codeXYN(0x8, x, y, aluOps[mnemonic])
	case "shr", "shl":
		if err = arity(words, 1, 2); err != nil {
			return
		}
		x, err = registerOf(words[1])
		if err != nil {
			return
		}
		if len(words) == 3 {
			y, err = registerOf(words[2])
			if err != nil {
				return
			}
		}
		n = 0x6
		if mnemonic == "shl" {
			n = 0xe
		}
		code = codeXYN(0x8, x, y, n)
	case "rnd":
		if err = arity(words, 2, 2); err != nil {
			return
		}
		x, err = registerOf(words[1])
		if err != nil {
			return
		}
		nn, err = asm.byteOf(words[2])
		if err != nil {
			return
		}
		code = codeXNN(0xc, x, nn)
	case "drw":
		if err = arity(words, 3, 3); err != nil {
			return
		}
		x, y, err = regPair(words[1], words[2])
		if err != nil {
			return
		}
		n, err = asm.nibbleOf(words[3])
		if err != nil {
			return
		}
		code = codeXYN(0xd, x, y, n)
	case "skp", "sknp":
		if err = arity(words, 1, 1); err != nil {
			return
		}
		x, err = registerOf(words[1])
		if err != nil {
			return
		}
		code = codeXNN(0xe, x, 0x9e)
		if mnemonic == "sknp" {
			code = codeXNN(0xe, x, 0xa1)
		}
	default:
		err = ErrInstructionInvalid
		return
	}

	data = []byte{byte(code >> 8), byte(code)}

	return
}

// miscLoads are the 'ld <dst> vx' forms of the FXNN family.
var miscLoads = map[string]uint8{
	"dt":  0x15,
	"st":  0x18,
	"f":   0x29,
	"b":   0x33,
	"[i]": 0x55,
}

// parseLoad encodes the many forms of 'ld'.
func (asm *Assembler) parseLoad(dst string, src string) (code Code, label string, err error) {
	if dst == "i" {
		var nnn uint16
		nnn, label, err = asm.addressOf(src)
		if err != nil {
			return
		}
		code = codeNNN(0xa, nnn)
		return
	}

	var x uint8
	if nn, ok := miscLoads[dst]; ok {
		x, err = registerOf(src)
		if err != nil {
			return
		}
		code = codeXNN(0xf, x, nn)
		return
	}

	x, err = registerOf(dst)
	if err != nil {
		return
	}

	switch strings.ToLower(src) {
	case "dt":
		code = codeXNN(0xf, x, 0x07)
	case "k":
		code = codeXNN(0xf, x, 0x0a)
	case "[i]":
		code = codeXNN(0xf, x, 0x65)
	default:
		if isRegister(src) {
			y, _ := registerOf(src)
			code = codeXYN(0x8, x, y, 0x0)
			return
		}
		var nn uint8
		nn, err = asm.byteOf(src)
		if err != nil {
			return
		}
		code = codeXNN(0x6, x, nn)
	}

	return
}
