package emulator

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Runner runs an emulator on a background goroutine.
type Runner struct {
	cancel context.CancelFunc
	group  *errgroup.Group
	steps  int
}

// Start runs the emulator in the background until it halts, faults, reaches
// its step limit, or is stopped.
func (emu *Emulator) Start(ctx context.Context, onStep func(snap Snapshot)) (rn *Runner) {
	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)

	rn = &Runner{
		cancel: cancel,
		group:  group,
	}

	group.Go(func() (err error) {
		rn.steps, err = emu.Run(ctx, onStep)
		return
	})

	return
}

// Wait for the run to finish. A run ended by Stop is not an error.
func (rn *Runner) Wait() (steps int, err error) {
	err = rn.group.Wait()
	rn.cancel()

	if errors.Is(err, context.Canceled) {
		err = nil
	}

	steps = rn.steps
	return
}

// Stop the run after the current step, and wait for it to finish.
func (rn *Runner) Stop() (steps int, err error) {
	rn.cancel()
	return rn.Wait()
}
