// main.go - Main entry point for the Phosphor Engine virtual machine

/*
(c) 2025 - 2026 Phosphor Engine contributors
https://github.com/phosphorvm/PhosphorEngine
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

func boilerPlate() {
	fmt.Println("\nPhosphor Engine - a text-mode virtual machine in the spirit of the VGA era.")
	fmt.Println("(c) 2025 - 2026 Phosphor Engine contributors")
	fmt.Println("https://github.com/phosphorvm/PhosphorEngine")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	var (
		displayMode string
		scale       int
		refresh     int
		fgName      string
		bgName      string
		runPath     string
		selfTest    bool
		autoExit    bool
		serialPath  string
		timeout     time.Duration
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&displayMode, "display", "auto", "Display backend: auto, window, term or none")
	flagSet.IntVar(&scale, "scale", 2, "Window pixel scale")
	flagSet.IntVar(&refresh, "refresh", 60, "Display refresh rate in Hz")
	flagSet.StringVar(&fgName, "fg", "lightgray", "Boot foreground color (name or 0-15)")
	flagSet.StringVar(&bgName, "bg", "black", "Boot background color (name or 0-15)")
	flagSet.StringVar(&runPath, "run", "", "Run a Lua guest program")
	flagSet.BoolVar(&selfTest, "selftest", false, "Run the built-in self test and exit")
	flagSet.BoolVar(&autoExit, "autoexit", false, "Exit after the boot program instead of idling")
	flagSet.StringVar(&serialPath, "serial", "", "Write serial output to a file, or - for stdout")
	flagSet.DurationVar(&timeout, "timeout", 0, "Stop the machine after this duration (0 disables)")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./phosphor [-display auto|window|term|none] [-run program.lua] [-selftest]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if selfTest && runPath != "" {
		fmt.Println("Error: -selftest and -run are mutually exclusive")
		os.Exit(1)
	}

	backend, err := resolveBackend(displayMode, selfTest)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fg, err := ParseColor(fgName)
	if err != nil {
		fmt.Printf("Invalid -fg: %v\n", err)
		os.Exit(1)
	}
	bg, err := ParseColor(bgName)
	if err != nil {
		fmt.Printf("Invalid -bg: %v\n", err)
		os.Exit(1)
	}

	sink, closeSink, err := openSerialSink(serialPath)
	if err != nil {
		fmt.Printf("Error opening serial sink: %v\n", err)
		os.Exit(1)
	}

	// Select the guest program before touching any backend so a load
	// error never leaves a half-open display.
	var program func(*Kernel)
	switch {
	case selfTest:
		program = SelfTestProgram()
	case runPath != "":
		program, err = LuaProgram(runPath)
		if err != nil {
			fmt.Printf("Error loading program: %v\n", err)
			os.Exit(1)
		}
	default:
		program = BootProgram(autoExit)
	}

	if backend != DISPLAY_BACKEND_TERMINAL {
		boilerPlate()
	}

	machine, err := NewMachine(MachineConfig{
		Backend:     backend,
		Scale:       scale,
		RefreshRate: refresh,
		Title:       "Phosphor Engine",
		SerialSink:  sink,
	})
	if err != nil {
		fmt.Printf("Failed to initialize machine: %v\n", err)
		os.Exit(1)
	}
	machine.console.SetAttr(MakeAttr(fg, bg))

	if timeout > 0 {
		time.AfterFunc(timeout, machine.Stop)
	}

	value, err := machine.Run(program)
	if closeSink != nil {
		closeSink()
	}
	if err != nil {
		fmt.Printf("Machine error: %v\n", err)
		os.Exit(1)
	}

	// Without a serial sink the captured output would vanish with the
	// machine; surface it on the host instead.
	if sink == nil {
		machine.DumpSerial()
	}

	os.Exit(HostExitCode(value))
}

// resolveBackend maps the -display flag to a backend constant. Auto picks
// the terminal backend when stdout is a TTY, the headless one otherwise;
// the self test always defaults to headless so it can run anywhere.
func resolveBackend(mode string, selfTest bool) (int, error) {
	switch mode {
	case "auto":
		if selfTest {
			return DISPLAY_BACKEND_HEADLESS, nil
		}
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return DISPLAY_BACKEND_TERMINAL, nil
		}
		return DISPLAY_BACKEND_HEADLESS, nil
	case "window":
		return DISPLAY_BACKEND_WINDOW, nil
	case "term":
		return DISPLAY_BACKEND_TERMINAL, nil
	case "none", "headless":
		return DISPLAY_BACKEND_HEADLESS, nil
	default:
		return 0, fmt.Errorf("unknown display mode %q", mode)
	}
}

// openSerialSink resolves the -serial flag: empty means capture only, a
// dash means stdout, anything else is created as a file.
func openSerialSink(path string) (io.Writer, func(), error) {
	switch path {
	case "":
		return nil, nil, nil
	case "-":
		return os.Stdout, nil, nil
	default:
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	}
}
