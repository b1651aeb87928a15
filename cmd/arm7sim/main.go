// Package main provides the arm7sim command line. It loads an ARM ELF
// executable or a raw binary image into memory and either runs it on the
// ARM7TDMI core or prints a disassembly of the image.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/arm7sim/emu"
	"github.com/sarchlab/arm7sim/insts"
	"github.com/sarchlab/arm7sim/loader"
	"github.com/sarchlab/arm7sim/memory"
	"github.com/sarchlab/arm7sim/trace"
)

var (
	configPath = flag.String("config", "", "Path to CPU configuration JSON file")
	layoutPath = flag.String("layout", "", "Path to memory layout JSON file")
	rawBase    = flag.String("bin", "", "Treat the program as a raw image loaded at this address")
	maxInsts   = flag.Uint64("max", 1_000_000, "Maximum instructions to execute (0 for no limit)")
	disasm     = flag.Bool("disasm", false, "Print the decoded image instead of running it")
	useCache   = flag.Bool("cache", false, "Run through a 4KB data cache and print its statistics")
	verbosity  = flag.Int("v", 0, "Log verbosity (2 traces every instruction)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: arm7sim [options] <program.elf|image.bin>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, prefix, args)
	}, funcr.Options{Verbosity: *verbosity})

	prog, err := loadProgram(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *disasm {
		printDisassembly(prog)
		return
	}

	if err := run(prog, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadProgram(path string) (*loader.Program, error) {
	if *rawBase == "" {
		return loader.Load(path)
	}

	base, err := strconv.ParseUint(*rawBase, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid -bin address %q: %w", *rawBase, err)
	}
	return loader.LoadBinary(path, uint32(base))
}

// printDisassembly decodes every word of every segment.
func printDisassembly(prog *loader.Program) {
	for _, seg := range prog.Segments {
		for i := 0; i+4 <= len(seg.Data); i += 4 {
			word := uint32(seg.Data[i]) | uint32(seg.Data[i+1])<<8 |
				uint32(seg.Data[i+2])<<16 | uint32(seg.Data[i+3])<<24
			fmt.Printf("%08x: %v\n", seg.VirtAddr+uint32(i), insts.Decode(word))
		}
	}
}

func run(prog *loader.Program, logger logr.Logger) error {
	layout := memory.DefaultLayout()
	if *layoutPath != "" {
		var err error
		if layout, err = memory.LoadLayout(*layoutPath); err != nil {
			return err
		}
	}

	config := emu.DefaultConfig()
	if *configPath != "" {
		var err error
		if config, err = emu.LoadConfig(*configPath); err != nil {
			return err
		}
	}
	config.ResetPC = prog.EntryPoint

	bus, err := memory.NewBus(layout, memory.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := prog.LoadInto(bus); err != nil {
		return err
	}

	var mem emu.Memory = bus
	var cache *memory.Cache
	if *useCache {
		if cache, err = memory.NewCache(memory.DefaultCacheConfig(), bus); err != nil {
			return err
		}
		mem = cache
	}

	cpu, err := emu.NewCPU(mem,
		emu.WithConfig(config),
		emu.WithLogger(logger),
		emu.WithMaxInstructions(*maxInsts),
	)
	if err != nil {
		return err
	}
	cpu.AcceptHook(trace.NewLogHook(logger))

	var result emu.StepResult
	for {
		result = cpu.Step()
		if result.Err != nil {
			break
		}
	}

	printState(cpu)
	if cache != nil {
		cache.Flush()
		stats := cache.Stats()
		fmt.Printf("cache: %d reads, %d writes, %d hits, %d misses, %d writebacks\n",
			stats.Reads, stats.Writes, stats.Hits, stats.Misses, stats.Writebacks)
	}

	if errors.Is(result.Err, emu.ErrMaxInstructions) {
		return nil
	}
	return result.Err
}

func printState(cpu *emu.CPU) {
	regFile := cpu.RegFile()
	for n := uint8(0); n < 16; n++ {
		fmt.Printf("r%-2d = 0x%08X", n, regFile.GetRegister(n))
		if n%4 == 3 {
			fmt.Println()
		} else {
			fmt.Print("  ")
		}
	}
	fmt.Printf("cpsr = %v\n", *regFile.CPSR())
	fmt.Printf("instructions: %d\n", cpu.InstructionCount())
}
