package io

import (
	"io"
)

// ANSI sequence to home the cursor and clear the screen.
const ansiHome = "\033[H\033[2J"

// Terminal renders frames as text onto an output stream.
type Terminal struct {
	Output io.Writer // Destination of the rendered frames.
	Home   bool      // If set, home the cursor before every frame.

	Frames int   // Count of frames published.
	Err    error // First write error, if any.
}

var _ Renderer = (*Terminal)(nil)

// Publish writes the frame to the output. Once a write fails the
// terminal stops writing; the failure is kept in Err.
func (tc *Terminal) Publish(frame Frame) {
	tc.Frames++

	if tc.Err != nil || tc.Output == nil {
		return
	}

	text := frame.String()
	if tc.Home {
		text = ansiHome + text
	}

	_, tc.Err = io.WriteString(tc.Output, text)
}
