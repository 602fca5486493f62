// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/ezrec/csim/cpu"
	"github.com/ezrec/csim/emulator"
	"github.com/ezrec/csim/io"
)

func create(path string, write func(f *os.File) error) {
	ouf, err := os.Create(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
	defer ouf.Close()

	err = write(ouf)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
}

func main() {
	var compile string
	var listing string
	var load string
	var run string
	var execute bool
	var start string
	var steps int
	var base int
	var input string
	var trace string
	var verbose bool

	flag.StringVar(&compile, "c", "", "assembly source to compile")
	flag.StringVar(&listing, "l", "", "listing file to write")
	flag.StringVar(&load, "o", "", "load file to write")
	flag.StringVar(&run, "r", "", "load file to run")
	flag.BoolVar(&execute, "x", false, "run the compiled program")
	flag.StringVar(&start, "s", "", "start address, in octal")
	flag.IntVar(&steps, "n", emulator.DEFAULT_STEP_LIMIT, "step limit")
	flag.IntVar(&base, "b", 8, "console number base, 8 or 10")
	flag.StringVar(&input, "i", "-", "console input")
	flag.StringVar(&trace, "t", "", "cache trace file to write")
	flag.BoolVar(&verbose, "v", false, "verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if base != 8 && base != 10 {
		log.Fatalf("-b %v: %v", base, io.ErrBaseInvalid)
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.StepLimit = steps

	var prog *cpu.Program

	// Compile a new program.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := emu.Assembler()
		prog, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}

		if len(listing) != 0 {
			create(listing, func(f *os.File) error { return prog.WriteListing(f) })
		}
		if len(load) != 0 {
			create(load, func(f *os.File) error { return prog.WriteLoad(f) })
		}
	}

	switch {
	case len(run) != 0:
		inf, err := os.Open(run)
		if err != nil {
			log.Fatalf("%v: %v", run, err)
		}
		defer inf.Close()

		_, err = emu.LoadFile(inf)
		if err != nil {
			log.Fatalf("%v: %v", run, err)
		}
	case execute && prog != nil:
		emu.Load(prog)
	default:
		return
	}

	if len(start) != 0 {
		address, err := strconv.ParseUint(start, 8, 12)
		if err != nil {
			log.Fatalf("-s %v: %v", start, err)
		}
		emu.SetPC(int(address))
	}

	tape := &io.Tape{Base: base}
	if input == "-" {
		tape.Input = os.Stdin
		if io.IsTerminal(os.Stdin) {
			tape.Prompt = os.Stderr
		}
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		tape.Input = inf
	}
	emu.Cpu.SetDevice(cpu.DEVICE_CONSOLE_IN, tape)

	emu.Printer.Writer = os.Stdout
	emu.Printer.Base = base

	if len(trace) != 0 {
		ouf, err := os.Create(trace)
		if err != nil {
			log.Fatalf("%v: %v", trace, err)
		}
		defer ouf.Close()
		emu.Cache.Trace = ouf
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// A program waiting on an exhausted tape can never continue.
	starved := false
	rn := emu.Start(ctx, func(snap emulator.Snapshot) {
		code := cpu.Code(snap.Register.Get(cpu.REG_IR))
		if tape.Exhausted() && code.Opcode() == cpu.OP_IN && code.Address() == cpu.DEVICE_CONSOLE_IN {
			starved = true
			emu.Halt()
		}
	})

	count, err := rn.Wait()
	if verbose {
		fmt.Fprint(os.Stderr, emu.Cpu.String())
		fmt.Fprintf(os.Stderr, "cache: %v\n", emu.Cache.Stats())
	}
	if starved {
		log.Printf("%v: console input exhausted after %d steps", os.Args[0], count)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
}
