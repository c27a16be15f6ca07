package cpu

import (
	"math/bits"

	"github.com/ezrec/chip8/io"
)

// draw XORs an n row sprite from memory at I into the framebuffer at
// (vx, vy). VF is set when any lit pixel was turned off.
func (cpu *Cpu) draw(vx, vy byte, n uint8) (err error) {
	sprite, err := cpu.Memory.Read(cpu.I, int(n))
	if err != nil {
		return
	}

	col := int(vx) % io.DISPLAY_WIDTH
	row := int(vy) % io.DISPLAY_HEIGHT

	collision := false
	for i, line := range sprite {
		y := row + i
		if y >= io.DISPLAY_HEIGHT {
			if cpu.Clip {
				break
			}
			y %= io.DISPLAY_HEIGHT
		}

		var pixels uint64
		if cpu.Clip {
			pixels = (uint64(line) << 56) >> col
		} else {
			pixels = bits.RotateLeft64(uint64(line)<<56, -col)
		}

		if cpu.Display[y]&pixels != 0 {
			collision = true
		}
		cpu.Display[y] ^= pixels
	}

	cpu.V[REGISTER_FLAG] = 0
	if collision {
		cpu.V[REGISTER_FLAG] = 1
	}

	cpu.Dirty = true

	return
}
