// Package io provides the collaborators of the CHIP-8 interpreter that live
// outside of the core: the framebuffer handed to a renderer, the keypad
// polled before every step, and the program image loader.
package io

// Renderer consumes a framebuffer whenever the interpreter marks it dirty.
type Renderer interface {
	// Publish hands over a snapshot of the framebuffer.
	Publish(frame Frame)
}

// Keypad produces the state of the 16 logical keys.
type Keypad interface {
	// Poll returns the current key mask, bit N set when key N is pressed.
	Poll() uint16
}
