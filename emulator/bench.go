package emulator

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ezrec/tickcpu/cpu"
)

// Bench times every strategy and driver pairing running count
// instructions of a program, one variant after another.
func Bench(prog *cpu.Program, strategies []string, drivers []string, count int) (reports []Report, err error) {
	for _, strategy := range strategies {
		for _, name := range drivers {
			var report Report
			report, err = runVariant(prog, strategy, name, count, nil)
			if err != nil {
				err = &ErrVariant{Name: strategy + "/" + name, Err: err}
				return
			}
			reports = append(reports, report)
		}
	}

	return
}

// Verify runs every strategy and driver pairing for each instruction count,
// concurrently, and checks that each pairing reaches the same state as the
// engine strategy stepped cycle by cycle.
func Verify(ctx context.Context, prog *cpu.Program, strategies []string, drivers []string, counts []int) (err error) {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))

	wants := make([]cpu.State, len(counts))
	for n, count := range counts {
		wants[n], err = reference(prog, count)
		if err != nil {
			return
		}
	}

	for n, count := range counts {
		want := wants[n]
		for _, strategy := range strategies {
			for _, name := range drivers {
				variant := fmt.Sprintf("%v/%v/%d", strategy, name, count)
				group.Go(func() (err error) {
					if ctx.Err() != nil {
						return ctx.Err()
					}

					var got cpu.State
					_, err = runVariant(prog, strategy, name, count, &got)
					if err == nil && got != want {
						err = fmt.Errorf("%w: %v, expected %v", ErrMismatch, got, want)
					}
					if err != nil {
						err = &ErrVariant{Name: variant, Err: err}
					}
					return
				})
			}
		}
	}

	err = group.Wait()

	return
}

// reference steps an engine emulator one cycle at a time for count
// instructions.
func reference(prog *cpu.Program, count int) (state cpu.State, err error) {
	emu, err := NewEmulator(STRATEGY_ENGINE)
	if err != nil {
		return
	}
	defer emu.Close()

	err = emu.Reset(prog)
	if err != nil {
		return
	}

	for retired := 0; retired < count; {
		var done bool
		done, err = emu.Tick()
		if err != nil {
			return
		}
		if done {
			retired++
		}
	}

	state = emu.State()

	return
}

// runVariant runs count instructions of a program on a fresh emulator.
func runVariant(prog *cpu.Program, strategy string, name string, count int, state *cpu.State) (report Report, err error) {
	emu, err := NewEmulator(strategy)
	if err != nil {
		return
	}
	defer emu.Close()

	err = emu.Reset(prog)
	if err != nil {
		return
	}

	report, err = emu.Run(name, count)
	if err != nil {
		return
	}

	if emu.Counter.Cycles != report.Cycles {
		err = fmt.Errorf("%w: peer clocked %d times in %d cycles", ErrMismatch, emu.Counter.Cycles, report.Cycles)
		return
	}

	if state != nil {
		*state = emu.State()
	}

	return
}
