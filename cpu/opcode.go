package cpu

import (
	"fmt"
)

// Op is a decoded instruction type.
type Op int

//go:generate go tool stringer -linecomment -type=Op
const (
	OP_CLS      = Op(0)  // cls
	OP_RET      = Op(1)  // ret
	OP_JP       = Op(2)  // jp
	OP_CALL     = Op(3)  // call
	OP_SE_BYTE  = Op(4)  // se
	OP_SNE_BYTE = Op(5)  // sne
	OP_SE_REG   = Op(6)  // se
	OP_LD_BYTE  = Op(7)  // ld
	OP_ADD_BYTE = Op(8)  // add
	OP_LD_REG   = Op(9)  // ld
	OP_OR       = Op(10) // or
	OP_AND      = Op(11) // and
	OP_XOR      = Op(12) // xor
	OP_ADD_REG  = Op(13) // add
	OP_SUB      = Op(14) // sub
	OP_SHR      = Op(15) // shr
	OP_SUBN     = Op(16) // subn
	OP_SHL      = Op(17) // shl
	OP_SNE_REG  = Op(18) // sne
	OP_LD_I     = Op(19) // ld
	OP_JP_V0    = Op(20) // jp
	OP_RND      = Op(21) // rnd
	OP_DRW      = Op(22) // drw
	OP_SKP      = Op(23) // skp
	OP_SKNP     = Op(24) // sknp
	OP_LD_VX_DT = Op(25) // ld
	OP_LD_VX_K  = Op(26) // ld
	OP_LD_DT    = Op(27) // ld
	OP_LD_ST    = Op(28) // ld
	OP_ADD_I    = Op(29) // add
	OP_LD_F     = Op(30) // ld
	OP_LD_B     = Op(31) // ld
	OP_LD_STORE = Op(32) // ld
	OP_LD_FILL  = Op(33) // ld
)

// Code is a single two-byte instruction word.
type Code uint16

// MakeCode joins four nibbles, most significant first, into a Code.
func MakeCode(n0, n1, n2, n3 uint8) Code {
	return Code(uint16(n0&0xf)<<12 | uint16(n1&0xf)<<8 | uint16(n2&0xf)<<4 | uint16(n3&0xf))
}

// Nibbles splits the instruction word, most significant nibble first.
func (code Code) Nibbles() [4]uint8 {
	word := uint16(code)
	return [4]uint8{
		uint8((word >> 12) & 0xf),
		uint8((word >> 8) & 0xf),
		uint8((word >> 4) & 0xf),
		uint8((word >> 0) & 0xf),
	}
}

// X returns the first register operand.
func (code Code) X() int {
	return int((code >> 8) & 0xf)
}

// Y returns the second register operand.
func (code Code) Y() int {
	return int((code >> 4) & 0xf)
}

// N returns the low nibble.
func (code Code) N() uint8 {
	return uint8(code & 0xf)
}

// NN returns the low byte.
func (code Code) NN() uint8 {
	return uint8(code & 0xff)
}

// NNN returns the low 12 bits, an address.
func (code Code) NNN() uint16 {
	return uint16(code & 0xfff)
}

// aluMap decodes the low nibble of the 8XYN family.
var aluMap = map[uint8]Op{
	0x0: OP_LD_REG,
	0x1: OP_OR,
	0x2: OP_AND,
	0x3: OP_XOR,
	0x4: OP_ADD_REG,
	0x5: OP_SUB,
	0x6: OP_SHR,
	0x7: OP_SUBN,
	0xe: OP_SHL,
}

// miscMap decodes the low byte of the FXNN family.
var miscMap = map[uint8]Op{
	0x07: OP_LD_VX_DT,
	0x0a: OP_LD_VX_K,
	0x15: OP_LD_DT,
	0x18: OP_LD_ST,
	0x1e: OP_ADD_I,
	0x29: OP_LD_F,
	0x33: OP_LD_B,
	0x55: OP_LD_STORE,
	0x65: OP_LD_FILL,
}

// Decode dispatches on the high nibble, then on the low byte or low nibble
// for the instruction families that need it.
func Decode(code Code) (op Op, err error) {
	n := code.Nibbles()

	var ok bool
	switch n[0] {
	case 0x0:
		switch code {
		case 0x00e0:
			op, ok = OP_CLS, true
		case 0x00ee:
			op, ok = OP_RET, true
		}
	case 0x1:
		op, ok = OP_JP, true
	case 0x2:
		op, ok = OP_CALL, true
	case 0x3:
		op, ok = OP_SE_BYTE, true
	case 0x4:
		op, ok = OP_SNE_BYTE, true
	case 0x5:
		op, ok = OP_SE_REG, n[3] == 0
	case 0x6:
		op, ok = OP_LD_BYTE, true
	case 0x7:
		op, ok = OP_ADD_BYTE, true
	case 0x8:
		op, ok = aluMap[n[3]]
	case 0x9:
		op, ok = OP_SNE_REG, n[3] == 0
	case 0xa:
		op, ok = OP_LD_I, true
	case 0xb:
		op, ok = OP_JP_V0, true
	case 0xc:
		op, ok = OP_RND, true
	case 0xd:
		op, ok = OP_DRW, true
	case 0xe:
		switch code.NN() {
		case 0x9e:
			op, ok = OP_SKP, true
		case 0xa1:
			op, ok = OP_SKNP, true
		}
	case 0xf:
		op, ok = miscMap[code.NN()]
	}

	if !ok {
		op = 0
		err = ErrOpcodeDecode
	}

	return
}

// String returns the assembly language representation of this instruction.
// Words that do not decode are shown as data.
func (code Code) String() (out string) {
	op, err := Decode(code)
	if err != nil {
		return fmt.Sprintf(".word 0x%04x", uint16(code))
	}

	x, y := code.X(), code.Y()

	switch op {
	case OP_CLS, OP_RET:
		out = op.String()
	case OP_JP, OP_CALL:
		out = fmt.Sprintf("%v 0x%03x", op, code.NNN())
	case OP_SE_BYTE, OP_SNE_BYTE, OP_LD_BYTE, OP_ADD_BYTE, OP_RND:
		out = fmt.Sprintf("%v v%x 0x%02x", op, x, code.NN())
	case OP_SE_REG, OP_SNE_REG, OP_LD_REG, OP_OR, OP_AND, OP_XOR,
		OP_ADD_REG, OP_SUB, OP_SHR, OP_SUBN, OP_SHL:
		out = fmt.Sprintf("%v v%x v%x", op, x, y)
	case OP_LD_I:
		out = fmt.Sprintf("%v i 0x%03x", op, code.NNN())
	case OP_JP_V0:
		out = fmt.Sprintf("%v v0 0x%03x", op, code.NNN())
	case OP_DRW:
		out = fmt.Sprintf("%v v%x v%x %d", op, x, y, code.N())
	case OP_SKP, OP_SKNP:
		out = fmt.Sprintf("%v v%x", op, x)
	case OP_LD_VX_DT:
		out = fmt.Sprintf("%v v%x dt", op, x)
	case OP_LD_VX_K:
		out = fmt.Sprintf("%v v%x k", op, x)
	case OP_LD_DT:
		out = fmt.Sprintf("%v dt v%x", op, x)
	case OP_LD_ST:
		out = fmt.Sprintf("%v st v%x", op, x)
	case OP_ADD_I:
		out = fmt.Sprintf("%v i v%x", op, x)
	case OP_LD_F:
		out = fmt.Sprintf("%v f v%x", op, x)
	case OP_LD_B:
		out = fmt.Sprintf("%v b v%x", op, x)
	case OP_LD_STORE:
		out = fmt.Sprintf("%v [i] v%x", op, x)
	case OP_LD_FILL:
		out = fmt.Sprintf("%v v%x [i]", op, x)
	}

	return
}
