package cpu

import (
	"fmt"
	"iter"
	"strings"

	"github.com/ezrec/chip8/memory"
)

// Opcode is a single assembled source line.
type Opcode struct {
	LineNo    int      // Source line number.
	Address   int      // Load address of the first byte.
	Words     []string // Source words.
	Data      []byte   // Assembled bytes.
	LinkLabel string   // Label whose address is linked into the low 12 bits.
}

// Program is an assembled program listing.
type Program struct {
	Opcodes []Opcode
}

// Debug locates the source of an address.
type Debug struct {
	*Opcode
	Index int // Byte offset of the address within the opcode.
}

// NewProgramBinary wraps a raw program image, disassembling each word.
func NewProgramBinary(rom []byte) (prog *Program) {
	prog = &Program{}

	for n := 0; n < len(rom); n += 2 {
		op := Opcode{
			LineNo:  n/2 + 1,
			Address: memory.PROGRAM_START + n,
		}
		if n+1 < len(rom) {
			op.Data = []byte{rom[n], rom[n+1]}
			code := Code(uint16(rom[n])<<8 | uint16(rom[n+1]))
			op.Words = strings.Fields(code.String())
		} else {
			op.Data = []byte{rom[n]}
			op.Words = []string{".byte", fmt.Sprintf("0x%02x", rom[n])}
		}
		prog.Opcodes = append(prog.Opcodes, op)
	}

	return
}

// Debug returns the opcode that holds the byte at address.
func (prog *Program) Debug(address uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(address) >= op.Address && int(address) < op.Address+len(op.Data) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(address) - op.Address,
			}
			break
		}
	}

	return
}

// Binary returns the program image, as loaded at PROGRAM_START.
func (prog *Program) Binary() (bin []byte) {
	for address, value := range prog.Bytes() {
		offset := int(address) - memory.PROGRAM_START
		if offset < 0 {
			continue
		}
		if offset >= len(bin) {
			bin = append(bin, make([]byte, offset+1-len(bin))...)
		}
		bin[offset] = value
	}

	return
}

// Bytes yields every assembled byte with its address.
func (prog *Program) Bytes() iter.Seq2[uint16, byte] {
	return func(yield func(address uint16, value byte) bool) {
		for _, op := range prog.Opcodes {
			for n, value := range op.Data {
				if !yield(uint16(op.Address+n), value) {
					return
				}
			}
		}
	}
}
