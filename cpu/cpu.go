// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"math/bits"
	"math/rand/v2"
	"strings"

	"github.com/ezrec/chip8/io"
	"github.com/ezrec/chip8/memory"
)

const (
	REGISTER_COUNT = 16  // Number of V registers.
	REGISTER_FLAG  = 0xf // Register overloaded as carry, borrow and collision flag.
)

var _cpu_defines = map[string]string{
	"STACK_LIMIT":    fmt.Sprintf("%v", STACK_LIMIT),
	"DISPLAY_WIDTH":  fmt.Sprintf("%v", io.DISPLAY_WIDTH),
	"DISPLAY_HEIGHT": fmt.Sprintf("%v", io.DISPLAY_HEIGHT),
}

// Cpu is the complete mutable state of the interpreter.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory *memory.Memory // Address space.

	V     [REGISTER_COUNT]byte // Register bank.
	I     uint16               // Index register.
	Pc    uint16               // Address of the next instruction.
	Stack Stack                // Return addresses.
	Delay byte                 // Delay timer.
	Sound byte                 // Sound timer.

	Display io.Frame // Framebuffer.
	Dirty   bool     // Framebuffer changed since last published.
	Keys    uint16   // Latest key snapshot, bit N set when key N is pressed.

	State State      // Execution state.
	Quirk Quirk      // Shift and register spill behaviour.
	Clip  bool       // Clip sprites at the display edges instead of wrapping.
	Rand  *rand.Rand // Random source for the rnd instruction.

	Ticks int // Instructions executed.

	waitRegister int    // Destination of the awaited key.
	waitHeld     uint16 // Keys already held when the wait began.
}

// NewCpu creates a new CPU with its own memory and random source.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{
		Memory: memory.NewMemory(),
		Rand:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Restores memory to the font-only image.
// - Clears the registers, timers, stack, framebuffer and keys.
// - Starts execution at PROGRAM_START.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Memory.Reset()

	clear(cpu.V[:])
	cpu.I = 0
	cpu.Pc = memory.PROGRAM_START
	cpu.Stack.Reset()
	cpu.Delay = 0
	cpu.Sound = 0

	cpu.Display.Clear()
	cpu.Dirty = false
	cpu.Keys = 0

	cpu.State = STATE_RUNNING
	cpu.Ticks = 0
}

// LoadProgram writes a program image at PROGRAM_START.
func (cpu *Cpu) LoadProgram(program []byte) (err error) {
	cpu.Memory.Verbose = cpu.Verbose

	return cpu.Memory.LoadProgram(program)
}

// SetKeys stores the latest key snapshot.
func (cpu *Cpu) SetKeys(mask uint16) {
	cpu.Keys = mask
}

// Waiting returns true while the CPU waits for a key press.
func (cpu *Cpu) Waiting() bool {
	return cpu.State == STATE_WAITING
}

// Halted returns true once the CPU has stopped on an error.
func (cpu *Cpu) Halted() bool {
	return cpu.State == STATE_HALTED
}

// Sounding returns true while the sound timer is running.
func (cpu *Cpu) Sounding() bool {
	return cpu.Sound > 0
}

// TickTimers counts both timers down by one, stopping at zero.
func (cpu *Cpu) TickTimers() {
	if cpu.Delay > 0 {
		cpu.Delay--
	}
	if cpu.Sound > 0 {
		cpu.Sound--
	}
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%5s: 0x%03X\n", "pc", cpu.Pc)
	fmt.Fprintf(&sb, "%5s: 0x%03X\n", "i", cpu.I)
	for n, v := range cpu.V {
		fmt.Fprintf(&sb, "%5s: 0x%02X\n", fmt.Sprintf("v%x", n), v)
	}

	stack := "---"
	if pc, ok := cpu.Stack.Peek(); ok {
		stack = fmt.Sprintf("0x%03X (%d)", pc, cpu.Stack.Depth())
	}
	fmt.Fprintf(&sb, "%5s: %v\n", "stack", stack)
	fmt.Fprintf(&sb, "%5s: 0x%02X\n", "dt", cpu.Delay)
	fmt.Fprintf(&sb, "%5s: 0x%02X\n", "st", cpu.Sound)
	fmt.Fprintf(&sb, "%5s: 0x%04X\n", "keys", cpu.Keys)
	fmt.Fprintf(&sb, "%5s: %v\n", "state", cpu.State)

	return sb.String()
}

// Fetch reads the instruction at the program counter, and advances the
// program counter past it.
func (cpu *Cpu) Fetch() (code Code, err error) {
	word, err := cpu.Memory.ReadInstruction(cpu.Pc)
	if err != nil {
		return
	}

	code = Code(word)
	cpu.Pc += 2

	return
}

// Step executes a single instruction. While waiting for a key, the
// key snapshot is examined instead.
func (cpu *Cpu) Step() (err error) {
	switch cpu.State {
	case STATE_HALTED:
		err = ErrHalted
		return
	case STATE_WAITING:
		cpu.awaitKey()
		return
	}

	code, err := cpu.Fetch()
	if err != nil {
		cpu.State = STATE_HALTED
		return
	}

	err = cpu.Execute(code)

	return
}

// awaitKey completes a key wait once a key that was not already held
// when the wait began is pressed.
func (cpu *Cpu) awaitKey() {
	cpu.waitHeld &= cpu.Keys

	fresh := cpu.Keys &^ cpu.waitHeld
	if fresh == 0 {
		return
	}

	key := bits.TrailingZeros16(fresh)
	cpu.V[cpu.waitRegister] = byte(key)
	cpu.State = STATE_RUNNING

	if cpu.Verbose {
		log.Printf("cpu: key %x to v%x", key, cpu.waitRegister)
	}
}

// setFlag writes a result to vx, then the flag to vf.
func (cpu *Cpu) setFlag(x int, value byte, flag bool) {
	cpu.V[x] = value
	cpu.V[REGISTER_FLAG] = 0
	if flag {
		cpu.V[REGISTER_FLAG] = 1
	}
}

// skipIf skips the next instruction when cond holds.
func (cpu *Cpu) skipIf(cond bool) {
	if cond {
		cpu.Pc += 2
	}
}

// Execute executes a single instruction. The program counter must already
// point past the instruction. Any failure halts the CPU.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			cpu.State = STATE_HALTED
			err = errors.Join(ErrOpcode(code), err)
		}
	}()

	if cpu.Verbose {
		log.Printf("%03x: %v", cpu.Pc-2, code)
	}

	op, err := Decode(code)
	if err != nil {
		return
	}

	x, y := code.X(), code.Y()
	vx, vy := cpu.V[x], cpu.V[y]
	nn, nnn := code.NN(), code.NNN()

	switch op {
	case OP_CLS:
		cpu.Display.Clear()
		cpu.Dirty = true
	case OP_RET:
		pc, ok := cpu.Stack.Pop()
		if !ok {
			err = ErrStackEmpty
			return
		}
		cpu.Pc = pc
	case OP_JP:
		cpu.Pc = nnn
	case OP_CALL:
		if cpu.Stack.Full() {
			err = ErrStackFull
			return
		}
		cpu.Stack.Push(cpu.Pc)
		cpu.Pc = nnn
	case OP_SE_BYTE:
		cpu.skipIf(vx == nn)
	case OP_SNE_BYTE:
		cpu.skipIf(vx != nn)
	case OP_SE_REG:
		cpu.skipIf(vx == vy)
	case OP_SNE_REG:
		cpu.skipIf(vx != vy)
	case OP_LD_BYTE:
		cpu.V[x] = nn
	case OP_ADD_BYTE:
		cpu.V[x] = vx + nn
	case OP_LD_REG:
		cpu.V[x] = vy
	case OP_OR:
		cpu.V[x] = vx | vy
	case OP_AND:
		cpu.V[x] = vx & vy
	case OP_XOR:
		cpu.V[x] = vx ^ vy
	case OP_ADD_REG:
		sum := uint16(vx) + uint16(vy)
		cpu.setFlag(x, byte(sum), sum > 0xff)
	case OP_SUB:
		cpu.setFlag(x, vx-vy, vx >= vy)
	case OP_SUBN:
		cpu.setFlag(x, vy-vx, vy >= vx)
	case OP_SHR:
		if cpu.Quirk == QUIRK_LEGACY {
			vx = vy
		}
		cpu.setFlag(x, vx>>1, vx&0x01 != 0)
	case OP_SHL:
		if cpu.Quirk == QUIRK_LEGACY {
			vx = vy
		}
		cpu.setFlag(x, vx<<1, vx&0x80 != 0)
	case OP_LD_I:
		cpu.I = nnn
	case OP_JP_V0:
		cpu.Pc = nnn + uint16(cpu.V[0])
	case OP_RND:
		cpu.V[x] = byte(cpu.Rand.Uint32()) & nn
	case OP_DRW:
		err = cpu.draw(vx, vy, code.N())
	case OP_SKP:
		cpu.skipIf(cpu.Keys&(1<<(vx&0xf)) != 0)
	case OP_SKNP:
		cpu.skipIf(cpu.Keys&(1<<(vx&0xf)) == 0)
	case OP_LD_VX_DT:
		cpu.V[x] = cpu.Delay
	case OP_LD_VX_K:
		cpu.State = STATE_WAITING
		cpu.waitRegister = x
		cpu.waitHeld = cpu.Keys
	case OP_LD_DT:
		cpu.Delay = vx
	case OP_LD_ST:
		cpu.Sound = vx
	case OP_ADD_I:
		sum := uint32(cpu.I) + uint32(vx)
		cpu.I = uint16(sum & 0xfff)
		cpu.setFlag(REGISTER_FLAG, cpu.V[REGISTER_FLAG], sum > 0xfff)
	case OP_LD_F:
		cpu.I = memory.Glyph(vx)
	case OP_LD_B:
		err = cpu.Memory.Write(cpu.I, []byte{vx / 100, (vx / 10) % 10, vx % 10})
	case OP_LD_STORE:
		err = cpu.Memory.Write(cpu.I, cpu.V[:x+1])
		if err == nil && cpu.Quirk == QUIRK_LEGACY {
			cpu.I = (cpu.I + uint16(x+1)) & 0xfff
		}
	case OP_LD_FILL:
		var data []byte
		data, err = cpu.Memory.Read(cpu.I, x+1)
		if err == nil {
			copy(cpu.V[:], data)
			if cpu.Quirk == QUIRK_LEGACY {
				cpu.I = (cpu.I + uint16(x+1)) & 0xfff
			}
		}
	default:
		err = ErrOpcodeDecode
	}

	if err != nil {
		return
	}

	cpu.Ticks++

	return
}
