// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"fmt"
	goio "io"
	"iter"
	"log"
	"maps"
	"time"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/internal"
	"github.com/ezrec/chip8/io"
)

const (
	TIMER_DIVIDER = 12  // Steps per 60Hz timer tick.
	STEP_RATE     = 720 // Steps per second.
)

var _emulator_defines = map[string]string{
	"TIMER_DIVIDER": fmt.Sprintf("%v", TIMER_DIVIDER),
	"STEP_RATE":     fmt.Sprintf("%v", STEP_RATE),
}

// Emulator state. CPU + keypad + display.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Renderer io.Renderer // Receives each changed frame. May be nil.
	Keypad   io.Keypad   // Polled before every step. May be nil.

	Divider int // Steps per timer tick.
	Rate    int // Steps per second, for Run.

	Steps  int // Steps since the last reset.
	Frames int // Frames published since the last reset.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
		Divider: TIMER_DIVIDER,
		Rate:    STEP_RATE,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.Defines(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
		emu.Cpu.Memory.Defines(),
	)
}

// Reset the machine, and load the program.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()

	emu.Steps = 0
	emu.Frames = 0

	err = emu.Cpu.LoadProgram(emu.Program.Binary())
	if err != nil {
		return
	}

	return
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Dump writes a hex dump of the machine memory.
func (emu *Emulator) Dump(w goio.Writer) (err error) {
	return emu.Cpu.Memory.Dump(w)
}

// Tick performs a single step of the emulator.
// - Polls the keypad.
// - Steps the CPU.
// - Publishes the display, if it changed.
// - Ticks the timers every Divider steps.
// done is set when the program is spinning on a jump to itself.
// A call to itself grows the stack, so is not done.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	address := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Address: int(address), Err: err}
		}
	}()

	if emu.Keypad != nil {
		emu.Cpu.SetKeys(emu.Keypad.Poll())
	}

	waiting := emu.Cpu.Waiting()
	depth := emu.Cpu.Stack.Depth()

	err = emu.Cpu.Step()
	if err != nil {
		return
	}

	emu.Steps++

	if emu.Cpu.Dirty {
		if emu.Renderer != nil {
			emu.Renderer.Publish(emu.Cpu.Display)
		}
		emu.Cpu.Dirty = false
		emu.Frames++
	}

	divider := emu.Divider
	if divider <= 0 {
		divider = TIMER_DIVIDER
	}
	if emu.Steps%divider == 0 {
		emu.Cpu.TickTimers()
	}

	if !waiting && !emu.Cpu.Waiting() && emu.Cpu.Pc == address && emu.Cpu.Stack.Depth() == depth {
		if emu.Verbose {
			log.Printf("emulator: 0x%03x: loop after %d steps", address, emu.Steps)
		}
		done = true
	}

	return
}

// Run ticks the emulator at Rate steps per second, until the program
// is done, fails, or the context is cancelled.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	rate := emu.Rate
	if rate <= 0 {
		rate = STEP_RATE
	}

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-ticker.C:
			var done bool
			done, err = emu.Tick()
			if err != nil || done {
				return
			}
		}
	}
}
