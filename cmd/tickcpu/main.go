// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ezrec/tickcpu/cpu"
	"github.com/ezrec/tickcpu/driver"
	"github.com/ezrec/tickcpu/emulator"
	"github.com/ezrec/tickcpu/snapshot"
	"github.com/ezrec/tickcpu/translate"
)

// source selects the program to run.
type source struct {
	asm   string
	image string
	pc    uint16
	y     uint8
}

func (src *source) flags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&src.asm, "asm", "a", "", "assembly file to run")
	cmd.Flags().StringVarP(&src.image, "image", "i", "", "memory image to run")
	cmd.Flags().Uint16Var(&src.pc, "pc", 0, "initial program counter")
	cmd.Flags().Uint8Var(&src.y, "y", 0, "initial index register")
	cmd.MarkFlagsMutuallyExclusive("asm", "image")
}

// program loads the selected program. Without a source, memory is filled
// with MEMORY_FILL.
func (src *source) program(cmd *cobra.Command, verbose bool) (prog *cpu.Program, err error) {
	switch {
	case len(src.asm) != 0:
		var inf *os.File
		inf, err = os.Open(src.asm)
		if err != nil {
			return
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		prog, err = asm.Parse(inf)
		if err != nil {
			err = fmt.Errorf("%v: %w", src.asm, err)
			return
		}
	case len(src.image) != 0:
		var inf *os.File
		inf, err = os.Open(src.image)
		if err != nil {
			return
		}
		defer inf.Close()

		prog = &cpu.Program{Memory: cpu.NewMemory(cpu.MEMORY_FILL)}
		_, err = prog.Memory.Load(inf)
		if err != nil {
			err = fmt.Errorf("%v: %w", src.image, err)
			return
		}
	default:
		prog = &cpu.Program{Memory: cpu.NewMemory(cpu.MEMORY_FILL)}
	}

	if cmd.Flags().Changed("pc") {
		prog.Entry = src.pc
	}
	if cmd.Flags().Changed("y") {
		prog.Y = src.y
	}

	return
}

func runCommand() *cobra.Command {
	var src source
	var strategy string
	var name string
	var count int
	var cycles uint64
	var verbose bool
	var strict bool
	var save string
	var resume string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a program, instruction by instruction or cycle by cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, err := src.program(cmd, verbose)
			if err != nil {
				return
			}

			emu, err := emulator.NewEmulator(strategy)
			if err != nil {
				return
			}
			defer emu.Close()

			emu.Verbose = verbose
			emu.Strict = strict

			err = emu.Reset(prog)
			if err != nil {
				return
			}

			if len(resume) != 0 {
				err = emu.Resume(os.DirFS(resume))
				if err != nil {
					return
				}
			}

			out := translate.Printer()

			if cycles != 0 {
				err = emu.RunCycles(cycles)
				if err != nil {
					return
				}
			} else {
				var report emulator.Report
				report, err = emu.Run(name, count)
				if err != nil {
					return
				}
				out.Fprintf(cmd.OutOrStdout(), "%v: %d instructions, %d cycles in %v\n",
					report.Name(), report.Instructions, report.Cycles, report.Elapsed)
			}

			out.Fprintf(cmd.OutOrStdout(), "%v\n", emu.State())
			if !emu.AtBoundary() {
				out.Fprintf(cmd.OutOrStdout(), "line %d: %v\n", emu.LineNo(), emu.Disassemble())
			}

			if len(save) != 0 {
				var snap string
				snap, err = emu.Save(snapshot.DirFS(save))
				if err != nil {
					return
				}
				out.Fprintf(cmd.OutOrStdout(), "saved %v\n", snap)
			}

			return
		},
	}

	src.flags(cmd)
	cmd.Flags().StringVarP(&strategy, "strategy", "s", emulator.STRATEGY_ENGINE, fmt.Sprintf("stepping strategy %v", emulator.Strategies()))
	cmd.Flags().StringVarP(&name, "driver", "d", driver.LOOP, fmt.Sprintf("driver %v", driver.Names()))
	cmd.Flags().IntVarP(&count, "count", "n", 1, "instructions to run")
	cmd.Flags().Uint64Var(&cycles, "cycles", 0, "clock cycles to run, instead of instructions")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose mode")
	cmd.Flags().BoolVar(&strict, "strict", false, "stop on unimplemented opcodes")
	cmd.Flags().StringVar(&save, "save", "", "directory to save a snapshot into when stopped")
	cmd.Flags().StringVar(&resume, "resume", "", "directory to resume the latest snapshot from")

	return cmd
}

func asmCommand() *cobra.Command {
	var output string
	var list bool
	var verbose bool
	var defines []string

	cmd := &cobra.Command{
		Use:   "asm FILE",
		Short: "Assemble a memory image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			inf, err := os.Open(args[0])
			if err != nil {
				return
			}
			defer inf.Close()

			asm := &cpu.Assembler{Verbose: verbose}
			for _, define := range defines {
				key, value, ok := cutDefine(define)
				if !ok {
					err = fmt.Errorf("-D %v: %w", define, cpu.ErrEquateSyntax)
					return
				}
				asm.Predefine(key, value)
			}

			prog, err := asm.Parse(inf)
			if err != nil {
				err = fmt.Errorf("%v: %w", args[0], err)
				return
			}

			if list {
				listing(cmd.OutOrStdout(), prog)
			}

			if len(output) != 0 {
				err = os.WriteFile(output, prog.Image(), 0644)
			}

			return
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "memory image to write")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "print the assembly listing")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose mode")
	cmd.Flags().StringArrayVarP(&defines, "define", "D", nil, "predefine NAME=VALUE")

	return cmd
}

func cutDefine(define string) (key string, value string, ok bool) {
	key, value, ok = strings.Cut(define, "=")
	ok = ok && len(key) != 0
	return
}

// listing prints each assembled line with its address and bytes.
func listing(w io.Writer, prog *cpu.Program) {
	for _, op := range prog.Opcodes {
		text, _ := cpu.Disassemble(prog.Memory, op.Addr)
		fmt.Fprintf(w, "%04x: % -12x %4d  %v\n", op.Addr, op.Bytes, op.LineNo, text)
	}
	fmt.Fprintf(w, "entry %04x y %02x\n", prog.Entry, prog.Y)
}

func benchCommand() *cobra.Command {
	var src source
	var count int
	var strategies []string
	var drivers []string
	var stats bool
	var stats_addr string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time every stepping strategy and driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, err := src.program(cmd, false)
			if err != nil {
				return
			}

			if stats {
				launchStatsview(cmd.ErrOrStderr(), stats_addr)
			}

			reports, err := emulator.Bench(prog, strategies, drivers, count)
			if err != nil {
				return
			}

			if file, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(file.Fd())) {
				table(cmd.OutOrStdout(), reports)
				return
			}

			err = csvReport(cmd.OutOrStdout(), reports)

			return
		},
	}

	src.flags(cmd)
	cmd.Flags().IntVarP(&count, "count", "n", 5_000_000, "instructions per variant")
	cmd.Flags().StringSliceVar(&strategies, "strategies", emulator.Strategies(), "stepping strategies to time")
	cmd.Flags().StringSliceVar(&drivers, "drivers", driver.Names(), "drivers to time")
	cmd.Flags().BoolVar(&stats, "statsview", false, "serve live runtime charts while timing")
	cmd.Flags().StringVar(&stats_addr, "statsview-addr", STATSVIEW_ADDR, "statsview listen address")

	return cmd
}

// table prints the reports for a terminal.
func table(w io.Writer, reports []emulator.Report) {
	out := translate.Printer()
	for _, report := range reports {
		out.Fprintf(w, "%-22s %10.3f s %16.0f cycles/s\n",
			report.Name(), report.Elapsed.Seconds(), report.CyclesPerSecond())
	}
}

// csvReport prints the variant names as one row, and their seconds as the next.
func csvReport(w io.Writer, reports []emulator.Report) (err error) {
	names := make([]string, len(reports))
	seconds := make([]string, len(reports))
	for n, report := range reports {
		names[n] = report.Name()
		seconds[n] = strconv.FormatFloat(report.Elapsed.Seconds(), 'f', 6, 64)
	}

	out := csv.NewWriter(w)
	err = out.WriteAll([][]string{names, seconds})

	return
}

func verifyCommand() *cobra.Command {
	var src source
	var counts []int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every stepping strategy and driver agree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, err := src.program(cmd, false)
			if err != nil {
				return
			}

			err = emulator.Verify(context.Background(), prog, emulator.Strategies(), driver.Names(), counts)
			if err != nil {
				return
			}

			translate.Printer().Fprintf(cmd.OutOrStdout(), "%d strategies and %d drivers agree for %v instructions\n",
				len(emulator.Strategies()), len(driver.Names()), counts)

			return
		},
	}

	src.flags(cmd)
	cmd.Flags().IntSliceVar(&counts, "counts", []int{1, 10, 10000}, "instruction counts to verify")

	return cmd
}

func main() {
	root := &cobra.Command{
		Use:           "tickcpu",
		Short:         "Cycle-steppable instruction executor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(runCommand(), asmCommand(), benchCommand(), verifyCommand())

	err := root.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", root.Name(), err)
		os.Exit(1)
	}
}
