// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package memory implements the 4 KiB address space of the CHIP-8 machine.
//
// The low 512 bytes are reserved: the hex digit font lives at FONT_BASE,
// everything else below PROGRAM_START is unused. Programs are loaded at
// PROGRAM_START and may use the rest of the space.
package memory

import (
	"encoding/hex"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
)

const (
	MEMORY_SIZE   = 0x1000                      // Size of the address space.
	FONT_BASE     = 0x050                       // Address of the font glyphs.
	FONT_HEIGHT   = 5                           // Rows per font glyph.
	FONT_COUNT    = 16                          // Number of font glyphs.
	PROGRAM_START = 0x200                       // Load address of programs.
	PROGRAM_LIMIT = MEMORY_SIZE - PROGRAM_START // Largest loadable program.
)

var _memory_defines = map[string]string{
	"MEMORY_SIZE":   fmt.Sprintf("%#x", MEMORY_SIZE),
	"FONT_BASE":     fmt.Sprintf("%#x", FONT_BASE),
	"FONT_HEIGHT":   fmt.Sprintf("%v", FONT_HEIGHT),
	"PROGRAM_START": fmt.Sprintf("%#x", PROGRAM_START),
}

// Memory is the byte addressable store of the machine.
type Memory struct {
	Verbose bool              // Set to log program loads.
	Data    [MEMORY_SIZE]byte // Raw contents.
}

// NewMemory creates a new memory, holding only the font.
func NewMemory() (mem *Memory) {
	mem = &Memory{}

	mem.Reset()

	return
}

// Defines for the memory map.
func Defines() iter.Seq2[string, string] {
	return maps.All(_memory_defines)
}

// Defines for the memory map.
func (mem *Memory) Defines() iter.Seq2[string, string] {
	return Defines()
}

// Reset clears all of memory, then restores the font.
func (mem *Memory) Reset() {
	clear(mem.Data[:])
	copy(mem.Data[FONT_BASE:], Font[:])
}

// check verifies that [address, address+length) is addressable.
func check(address int, length int) (err error) {
	if address < 0 || length < 0 || address+length > MEMORY_SIZE {
		err = ErrBounds{Address: address, Length: length}
	}
	return
}

// Write copies data into memory, starting at address.
func (mem *Memory) Write(address uint16, data []byte) (err error) {
	err = check(int(address), len(data))
	if err != nil {
		return
	}

	copy(mem.Data[address:], data)

	return
}

// Read returns a copy of n bytes of memory, starting at address.
func (mem *Memory) Read(address uint16, n int) (data []byte, err error) {
	err = check(int(address), n)
	if err != nil {
		return
	}

	data = make([]byte, n)
	copy(data, mem.Data[address:])

	return
}

// Load a single byte.
func (mem *Memory) Load(address uint16) (value byte, err error) {
	err = check(int(address), 1)
	if err != nil {
		return
	}

	value = mem.Data[address]

	return
}

// Store a single byte.
func (mem *Memory) Store(address uint16, value byte) (err error) {
	err = check(int(address), 1)
	if err != nil {
		return
	}

	mem.Data[address] = value

	return
}

// ReadInstruction fetches the big-endian instruction word at address.
func (mem *Memory) ReadInstruction(address uint16) (word uint16, err error) {
	err = check(int(address), 2)
	if err != nil {
		return
	}

	word = uint16(mem.Data[address])<<8 | uint16(mem.Data[address+1])

	return
}

// LoadProgram writes a program image at PROGRAM_START.
// The reserved area below PROGRAM_START is never written.
func (mem *Memory) LoadProgram(program []byte) (err error) {
	if len(program) > PROGRAM_LIMIT {
		err = ErrProgramSize
		return
	}

	if mem.Verbose {
		log.Printf("memory: load %d bytes at 0x%03x", len(program), PROGRAM_START)
	}

	err = mem.Write(PROGRAM_START, program)

	return
}

// Dump writes a hex dump of the entire address space.
func (mem *Memory) Dump(w io.Writer) (err error) {
	dumper := hex.Dumper(w)

	_, err = dumper.Write(mem.Data[:])
	if err != nil {
		return
	}

	err = dumper.Close()

	return
}
