package memory

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Memory errors
	ErrProgramSize = errors.New(f("program too large"))
)

// ErrBounds is an access outside of the address space.
type ErrBounds struct {
	Address int // First address of the access.
	Length  int // Number of bytes accessed.
}

func (eb ErrBounds) Error() string {
	return f("address 0x%03x+%d out of bounds", eb.Address, eb.Length)
}

// Is matches any ErrBounds, regardless of the address.
func (eb ErrBounds) Is(err error) (ok bool) {
	_, ok = err.(ErrBounds)
	return
}
