package emulator

import (
	"context"
	"maps"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/csim/cpu"
	"github.com/ezrec/csim/memory"
)

var countdown = []string{
	"        LOC 6",
	"count:  DATA 3",
	"        LOC 8",
	"start:  LDR 0,0,count",
	"loop:   OUT 0,0,DEV_CONSOLE_OUT",
	"        SOB 0,0,loop",
	"        HLT",
}

func assemble(emu *Emulator, program []string, t *testing.T) *cpu.Program {
	asm := emu.Assembler()
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatalf("%v", err)
	}
	return prog
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.Equal(emu.Cache, emu.Cpu.Bus)

	defines := maps.Collect(emu.Defines())
	assert.Equal(memory.MEMORY_SIZE, defines["MEMORY_SIZE"])
	assert.Equal(memory.CACHE_LINES, defines["CACHE_LINES"])
	assert.Equal(0, defines["DEV_CONSOLE_IN"])
	assert.Equal(1, defines["DEV_CONSOLE_OUT"])
	assert.Equal(cpu.CC_EQUAL, defines["CC_EQUAL"])
}

func TestEmulator_Run(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	prog := assemble(emu, countdown, t)

	assert.Equal(5, emu.Load(prog))
	assert.Equal(uint16(8), emu.Register.Get(cpu.REG_PC))

	var snaps []Snapshot
	steps, err := emu.Run(context.Background(), func(snap Snapshot) {
		snaps = append(snaps, snap)
	})
	assert.NoError(err)
	assert.Equal(8, steps)
	assert.Len(snaps, 8)
	assert.True(snaps[7].Halted)
	assert.Equal(8, snaps[7].Ticks)
	assert.Equal([]uint16{3, 2, 1}, emu.Printer.Printed())
	assert.Equal(uint16(0), emu.Register.Get(cpu.REG_R0))

	// Cache saw the loop body more than once.
	assert.Greater(snaps[7].Stats.Hits, 0)
	assert.Equal(snaps[7].Stats.Accesses, snaps[7].Stats.Hits+snaps[7].Stats.Misses)

	// Stepping a halted machine is refused.
	assert.ErrorIs(emu.Step(), ErrHalted)
}

func TestEmulator_StepLimit(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	prog := assemble(emu, []string{
		"spin: JMA 0,0,spin",
	}, t)
	emu.Load(prog)
	emu.StepLimit = 100

	steps, err := emu.Run(context.Background(), nil)
	assert.ErrorIs(err, ErrStepLimit)
	assert.Equal(100, steps)
	assert.False(emu.Halted())
}

func TestEmulator_Fault(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	prog := assemble(emu, []string{
		"        LOC 4",
		"        AIR 0,0,0",
		"        TRAP 0",
	}, t)
	emu.Load(prog)

	_, err := emu.Run(context.Background(), nil)
	assert.ErrorIs(err, cpu.ErrIllegalTrap)

	var runtime *ErrRuntime
	assert.ErrorAs(err, &runtime)
	assert.Equal(5, runtime.PC)
	assert.Equal(3, runtime.LineNo)
	assert.True(emu.Halted())
}

func TestEmulator_Input(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	prog := assemble(emu, []string{
		"        IN 1,0,DEV_CONSOLE_IN",
		"        OUT 1,0,DEV_CONSOLE_OUT",
		"        HLT",
	}, t)
	emu.Load(prog)

	// No input yet; IN retries.
	for range 5 {
		assert.NoError(emu.Step())
		assert.Equal(uint16(0), emu.Register.Get(cpu.REG_PC))
	}

	emu.Keyboard.Type(0o123)
	steps, err := emu.Run(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(3, steps)
	assert.Equal([]uint16{0o123}, emu.Printer.Printed())
}

func TestEmulator_ResetPowerOn(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	prog := assemble(emu, countdown, t)
	emu.Load(prog)
	emu.Run(context.Background(), nil)

	emu.Reset()
	assert.False(emu.Halted())
	assert.Equal(uint16(0), emu.Register.Get(cpu.REG_PC))
	value, _ := emu.Memory.Read(6)
	assert.Equal(uint16(3), value)
	assert.Equal(2, emu.LineNo(6))

	emu.PowerOn()
	value, _ = emu.Memory.Read(6)
	assert.Equal(uint16(0), value)
	assert.Equal(memory.Stats{}, emu.Cache.Stats())
	assert.Empty(emu.Printer.Printed())
	assert.Equal(0, emu.LineNo(6))
}

func TestEmulator_Reload(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	first := assemble(emu, []string{"LDA 0,0,5", "HLT"}, t)
	second := assemble(emu, []string{"LDA 0,0,9", "HLT"}, t)

	emu.Load(first)
	_, err := emu.Run(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(uint16(5), emu.Register.Get(cpu.REG_R0))

	emu.Reset()
	emu.Load(second)
	_, err = emu.Run(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(uint16(9), emu.Register.Get(cpu.REG_R0))

	// Same again from a load file.
	emu.Reset()
	_, err = emu.LoadFile(strings.NewReader("000000 006007\n000001 000000\n"))
	assert.NoError(err)
	_, err = emu.Run(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(uint16(7), emu.Register.Get(cpu.REG_R0))
}

func TestEmulator_LoadFile(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	loaded, err := emu.LoadFile(strings.NewReader("000012 000005\n000013 000000\n"))
	assert.NoError(err)
	assert.Equal(2, loaded)

	emu.SetPC(0o13)
	steps, err := emu.Run(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(1, steps)
	assert.True(emu.Halted())

	emu.Unhalt()
	assert.False(emu.Halted())
	emu.Halt()
	assert.True(emu.Halted())
}

func TestRunner(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	prog := assemble(emu, countdown, t)
	emu.Load(prog)

	rn := emu.Start(context.Background(), nil)
	steps, err := rn.Wait()
	assert.NoError(err)
	assert.Equal(8, steps)
	assert.Equal([]uint16{3, 2, 1}, emu.Printer.Printed())
}

func TestRunner_Stop(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	prog := assemble(emu, []string{
		"spin: JMA 0,0,spin",
	}, t)
	emu.Load(prog)
	emu.StepLimit = 1 << 30

	started := make(chan struct{})
	var once bool
	rn := emu.Start(context.Background(), func(snap Snapshot) {
		if !once {
			once = true
			close(started)
		}
	})

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("runner never stepped")
	}

	// Observers may snapshot while the runner is going.
	snap := emu.Snapshot()
	assert.False(snap.Halted)

	steps, err := rn.Stop()
	assert.NoError(err)
	assert.Greater(steps, 0)
	assert.False(emu.Halted())
}

func TestRunner_Halt(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	prog := assemble(emu, []string{
		"spin: JMA 0,0,spin",
	}, t)
	emu.Load(prog)
	emu.StepLimit = 1 << 30

	for range 50 {
		emu.Reset()
		emu.SetPC(0)

		started := make(chan struct{}, 1)
		rn := emu.Start(context.Background(), func(snap Snapshot) {
			select {
			case started <- struct{}{}:
			default:
			}
		})

		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("runner never stepped")
		}

		// A user halt is an ordinary end of the run.
		emu.Halt()
		steps, err := rn.Wait()
		assert.NoError(err)
		assert.Greater(steps, 0)
		assert.True(emu.Halted())
	}
}
