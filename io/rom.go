package io

import (
	"io"
	"io/fs"

	"github.com/ezrec/chip8/memory"
)

// ReadRom reads a complete program image. The image must fit in the
// program area of memory.
func ReadRom(input io.Reader) (rom []byte, err error) {
	rom, err = io.ReadAll(io.LimitReader(input, memory.PROGRAM_LIMIT+1))
	if err != nil {
		return
	}

	switch {
	case len(rom) == 0:
		err = ErrRomEmpty
	case len(rom) > memory.PROGRAM_LIMIT:
		err = ErrRomSize
	}

	if err != nil {
		rom = nil
	}

	return
}

// OpenRom reads the named program image from a file system.
func OpenRom(fsys fs.FS, name string) (rom []byte, err error) {
	inf, err := fsys.Open(name)
	if err != nil {
		return
	}
	defer inf.Close()

	return ReadRom(inf)
}
