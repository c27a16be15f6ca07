// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/internal"
	"github.com/ezrec/chip8/io"
	"github.com/ezrec/chip8/translate"
)

// parseKeys parses a comma separated list of hex key masks.
func parseKeys(text string) (masks []uint16, err error) {
	for _, word := range strings.Split(text, ",") {
		word = strings.TrimSpace(word)
		if len(word) == 0 {
			continue
		}
		var mask uint64
		mask, err = strconv.ParseUint(strings.TrimPrefix(word, "0x"), 16, 16)
		if err != nil {
			return
		}
		masks = append(masks, uint16(mask))
	}

	return
}

func main() {
	var compile string
	var rom string
	var save bool
	var output string
	var quirk cpu.Quirk
	var clip bool
	var rate int
	var divider int
	var steps int
	var dump string
	var keys string
	var lang string
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&rom, "r", "", ".ch8 program image to load")
	flag.BoolVar(&save, "s", false, "Save program image, do not execute")
	flag.StringVar(&output, "o", "-", "Program image output, for -s")
	flag.Var(&quirk, "q", "Quirk mode (modern, legacy)")
	flag.BoolVar(&clip, "clip", false, "Clip sprites at the display edges")
	flag.IntVar(&rate, "rate", emulator.STEP_RATE, "Steps per second")
	flag.IntVar(&divider, "divider", emulator.TIMER_DIVIDER, "Steps per timer tick")
	flag.IntVar(&steps, "n", 0, "Run at most N steps, unpaced")
	flag.StringVar(&dump, "d", "", "Memory dump output, written at exit")
	flag.StringVar(&keys, "k", "", "Comma separated hex key masks, one per step")
	flag.StringVar(&lang, "lang", "", "Message language, as a BCP 47 tag")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(lang) != 0 {
		translate.SetLanguage(lang)
	}

	if len(compile) != 0 && len(rom) != 0 {
		log.Fatalf("%v: -c and -r are exclusive", os.Args[0])
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Cpu.Quirk = quirk
	emu.Cpu.Clip = clip
	emu.Rate = rate
	emu.Divider = divider

	if verbose {
		names, values := internal.SortedDefines(emu.Defines())
		for _, name := range names {
			log.Printf("define: %v = %v", name, values[name])
		}
	}

	prog := &cpu.Program{}

	// Compile a new program.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for name, value := range emu.Defines() {
			asm.Predefine(name, value)
		}
		prog, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	// Load an existing program image.
	if len(rom) != 0 {
		data, err := io.OpenRom(os.DirFS(filepath.Dir(rom)), filepath.Base(rom))
		if err != nil {
			log.Fatalf("%v: %v", rom, err)
		}
		prog = cpu.NewProgramBinary(data)
	}

	if save {
		ouf := os.Stdout
		if output != "-" {
			var err error
			ouf, err = os.Create(output)
			if err != nil {
				log.Fatalf("%v: %v", output, err)
			}
			defer ouf.Close()
		}
		_, err := ouf.Write(prog.Binary())
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	keypad := &io.Keys{}
	masks, err := parseKeys(keys)
	if err != nil {
		log.Fatalf("-k %v: %v", keys, err)
	}
	keypad.Queue(masks...)

	terminal := &io.Terminal{Output: os.Stdout, Home: !verbose}

	emu.Program = prog
	emu.Renderer = terminal
	emu.Keypad = keypad

	err = emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	if steps > 0 {
		for range steps {
			var done bool
			done, err = emu.Tick()
			if err != nil || done {
				break
			}
		}
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = emu.Run(ctx)
		stop()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}

	if len(dump) != 0 {
		ouf, derr := os.Create(dump)
		if derr != nil {
			log.Fatalf("%v: %v", dump, derr)
		}
		derr = emu.Dump(ouf)
		ouf.Close()
		if derr != nil {
			log.Fatalf("%v: %v", dump, derr)
		}
	}

	if err != nil {
		log.Print(emu.Cpu.String())
		log.Fatal(err)
	}

	if terminal.Err != nil {
		log.Fatal(terminal.Err)
	}

	if verbose {
		log.Printf("chip8: %d steps, %d frames", emu.Steps, emu.Frames)
	}
}
