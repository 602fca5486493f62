// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"io"
	"iter"
	"maps"
	"sync"

	"github.com/ezrec/csim/cpu"
	"github.com/ezrec/csim/internal"
	csio "github.com/ezrec/csim/io"
	"github.com/ezrec/csim/memory"
)

const (
	DEFAULT_STEP_LIMIT = 1_000_000 // Steps allowed by Run when StepLimit is unset.
)

var _emulator_defines = map[string]int{
	"MEMORY_SIZE": memory.MEMORY_SIZE,
	"CACHE_LINES": memory.CACHE_LINES,
}

// Emulator state. CPU + cache + memory + console devices.
type Emulator struct {
	Verbose   bool // If set, enables verbose logging.
	StepLimit int  // Maximum steps for Run. Zero selects DEFAULT_STEP_LIMIT.

	*cpu.Cpu                // Reference to the CPU simulation.
	Memory   *memory.Memory // Physical memory.
	Cache    *memory.Cache  // Cache in front of memory, the CPU's bus.
	Program  *cpu.Program   // Currently loaded program listing, if any.

	Keyboard csio.Keyboard // Console input, device 0.
	Printer  csio.Printer  // Console output, device 1.

	mutex sync.Mutex
}

// Snapshot is the machine state between two steps.
type Snapshot struct {
	Register cpu.Registers
	Halted   bool
	Ticks    int
	Lines    []memory.Line
	Stats    memory.Stats
}

// NewEmulator creates a new emulator, with the keyboard and printer attached
// to the console devices.
func NewEmulator() (emu *Emulator) {
	mem := memory.NewMemory()
	cache := memory.NewCache(mem)

	emu = &Emulator{
		Cpu:     cpu.NewCpu(cache),
		Memory:  mem,
		Cache:   cache,
		Program: &cpu.Program{},
	}

	emu.Cpu.SetDevice(cpu.DEVICE_CONSOLE_IN, &emu.Keyboard)
	emu.Cpu.SetDevice(cpu.DEVICE_CONSOLE_OUT, &emu.Printer)

	return
}

// Defines returns an iterator over all of the defines.
func (emu *Emulator) Defines() iter.Seq2[string, int] {
	return internal.Concat2(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Assembler returns an assembler with every define predefined.
func (emu *Emulator) Assembler() (asm *cpu.Assembler) {
	asm = &cpu.Assembler{Verbose: emu.Verbose}
	for name, value := range emu.Defines() {
		asm.Predefine(name, value)
	}
	return
}

func (emu *Emulator) verbose() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cache.Verbose = emu.Verbose
}

// Load stores an assembled program into memory and sets PC to its first
// instruction. The cache is emptied. Registers are otherwise untouched.
func (emu *Emulator) Load(prog *cpu.Program) (loaded int) {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	loaded = emu.Memory.LoadImage(prog.Words())
	emu.Cache.Invalidate()
	emu.Program = prog

	if entry, ok := prog.Entry(); ok {
		emu.Cpu.Register.Set(cpu.REG_PC, entry)
	}

	return
}

// LoadFile stores a load file into memory and empties the cache. No listing
// is kept.
func (emu *Emulator) LoadFile(input io.Reader) (loaded int, err error) {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	emu.Program = &cpu.Program{}
	loaded, err = emu.Memory.Load(input)
	emu.Cache.Invalidate()
	return
}

// Reset zeroes the registers and clears halted. Memory and cache are kept.
func (emu *Emulator) Reset() {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	emu.verbose()
	emu.Cpu.Reset()
}

// PowerOn zeroes registers and memory, empties the cache, and rewinds the
// console devices.
func (emu *Emulator) PowerOn() {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	emu.verbose()
	emu.Cpu.Reset()
	emu.Memory.Reset()
	emu.Cache.Invalidate()
	for _, device := range emu.Cpu.Devices() {
		device.Rewind()
	}
	emu.Program = &cpu.Program{}
}

// Halt stops the CPU between two steps.
func (emu *Emulator) Halt() {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	emu.Cpu.Halt()
}

// Unhalt allows a halted CPU to continue.
func (emu *Emulator) Unhalt() {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	emu.Cpu.Unhalt()
}

// Halted returns true if the CPU has stopped.
func (emu *Emulator) Halted() bool {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	return emu.Cpu.Halted()
}

// SetPC sets the program counter.
func (emu *Emulator) SetPC(address int) {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	emu.Cpu.Register.Set(cpu.REG_PC, address)
}

// LineNo returns the source line of the word at an address, or 0.
func (emu *Emulator) LineNo(address int) int {
	if emu.Program == nil {
		return 0
	}
	entry := emu.Program.Debug(address)
	if entry == nil {
		return 0
	}
	return entry.LineNo
}

// Step performs a single instruction. A fault that halts the CPU is
// returned as an *ErrRuntime.
func (emu *Emulator) Step() (err error) {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	if emu.Cpu.Halted() {
		err = ErrHalted
		return
	}

	emu.verbose()

	pc := int(emu.Cpu.Register.Get(cpu.REG_PC))
	emu.Cpu.Step()

	if emu.Cpu.Halted() {
		if fault := emu.Cpu.Fault(); fault != nil {
			err = &ErrRuntime{PC: pc, LineNo: emu.LineNo(pc), Err: fault}
		}
	}

	return
}

// Snapshot returns the machine state. It is never taken mid-step.
func (emu *Emulator) Snapshot() (snap Snapshot) {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	snap = Snapshot{
		Register: emu.Cpu.Register,
		Halted:   emu.Cpu.Halted(),
		Ticks:    emu.Cpu.Ticks,
		Lines:    emu.Cache.Lines(),
		Stats:    emu.Cache.Stats(),
	}
	return
}

// Run steps until the CPU halts, the context is done, or the step limit is
// reached. Cancellation is checked between steps. onStep, if not nil,
// receives a snapshot after every step.
func (emu *Emulator) Run(ctx context.Context, onStep func(snap Snapshot)) (steps int, err error) {
	limit := emu.StepLimit
	if limit <= 0 {
		limit = DEFAULT_STEP_LIMIT
	}

	for !emu.Halted() {
		err = ctx.Err()
		if err != nil {
			return
		}
		if steps >= limit {
			err = ErrStepLimit
			return
		}

		err = emu.Step()
		if errors.Is(err, ErrHalted) {
			// Halted by another goroutine since the check above.
			err = nil
			return
		}
		steps++
		if onStep != nil {
			onStep(emu.Snapshot())
		}
		if err != nil {
			return
		}
	}

	return
}
