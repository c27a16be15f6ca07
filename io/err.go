package io

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Loader errors
	ErrRomSize  = errors.New(f("rom too large"))
	ErrRomEmpty = errors.New(f("rom empty"))
)
