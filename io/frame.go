package io

import (
	"math/bits"
	"strings"
)

const (
	DISPLAY_WIDTH  = 64 // Pixel columns.
	DISPLAY_HEIGHT = 32 // Pixel rows.
)

// Frame is the monochrome framebuffer, one 64-bit word per row.
// Column 0 is the most significant bit of the row.
type Frame [DISPLAY_HEIGHT]uint64

// Clear turns off every pixel.
func (fr *Frame) Clear() {
	clear(fr[:])
}

// Pixel reports whether the pixel at column x, row y is set.
// Coordinates wrap around the display.
func (fr *Frame) Pixel(x, y int) bool {
	x = ((x % DISPLAY_WIDTH) + DISPLAY_WIDTH) % DISPLAY_WIDTH
	y = ((y % DISPLAY_HEIGHT) + DISPLAY_HEIGHT) % DISPLAY_HEIGHT
	return (fr[y]>>(DISPLAY_WIDTH-1-x))&1 != 0
}

// Count returns the number of set pixels.
func (fr *Frame) Count() (count int) {
	for _, row := range fr {
		count += bits.OnesCount64(row)
	}
	return
}

// String renders the frame as text, '#' for set pixels and '.' for clear.
func (fr *Frame) String() string {
	var sb strings.Builder

	sb.Grow((DISPLAY_WIDTH + 1) * DISPLAY_HEIGHT)
	for _, row := range fr {
		for x := range DISPLAY_WIDTH {
			if (row>>(DISPLAY_WIDTH-1-x))&1 != 0 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}
