// lmx-init: Power up and calibrate an LMX2594 synthesizer
//
// This tool drives chip enable, the reset handshake, the register map and
// the calibration handshake over a CH341A USB bridge or a Raspberry Pi
// spidev bus. The register map is compiled in; the board file only says
// how the chip is wired.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/gousb"
	"github.com/herlein/lmxinit/pkg/ch341"
	"github.com/herlein/lmxinit/pkg/config"
	"github.com/herlein/lmxinit/pkg/lmx2594"
	"github.com/herlein/lmxinit/pkg/rpi"
	"github.com/herlein/lmxinit/pkg/sequencer"
	"github.com/herlein/lmxinit/pkg/trace"
)

type options struct {
	boardFile string
	saveBoard string
	transport string
	deviceSel string
	dryRun    bool
	verbose   bool
}

func main() {
	// -v is taken by glog, which embd pulls in
	var opts options
	flag.StringVar(&opts.boardFile, "b", "", "Board file or name in etc/boards (default: built-in CH341A board)")
	flag.StringVar(&opts.saveBoard, "save-board", "", "Save the effective board to a file or name and exit")
	flag.StringVar(&opts.transport, "t", "", "Transport override: ch341 or rpi")
	flag.StringVar(&opts.deviceSel, "d", "", ch341.DeviceFlagUsage())
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Print the write trace instead of driving hardware")
	flag.BoolVar(&opts.verbose, "verbose", false, "Verbose output (show every write)")
	flag.Parse()

	if err := run(opts); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	board, err := loadBoard(opts)
	if err != nil {
		return err
	}

	if opts.saveBoard != "" {
		path := config.ResolveBoardPath(opts.saveBoard)
		if err := config.SaveToFile(board, path); err != nil {
			return fmt.Errorf("failed to save board: %w", err)
		}
		fmt.Printf("Board saved to: %s\n", path)
		return nil
	}

	if opts.dryRun {
		return dryRun(opts)
	}

	switch board.Transport {
	case config.TransportCH341:
		context := gousb.NewContext()
		defer context.Close()

		device, err := ch341.SelectDevice(context, ch341.DeviceSelector(board.Device))
		if err != nil {
			return err
		}
		defer device.Close()

		if opts.verbose {
			fmt.Printf("Connected to: %s\n", device)
		}
		if err := device.Configure(board.CH341Speed); err != nil {
			return err
		}
		return powerUp(sequencer.New(device, sequencer.LineFunc(device.SetSelect), sequencer.LineFunc(device.SetEnable)), opts)

	case config.TransportRPi:
		host, err := rpi.Open(board.RPi)
		if err != nil {
			return err
		}
		defer host.Close()

		if opts.verbose {
			fmt.Printf("Using spidev channel %d, CS %s, CE %s\n", board.RPi.Channel, board.RPi.SelectPin, board.RPi.EnablePin)
		}
		return powerUp(sequencer.New(host, sequencer.LineFunc(host.SetSelect), sequencer.LineFunc(host.SetEnable)), opts)
	}

	return fmt.Errorf("%w: %q", config.ErrUnknownTransport, board.Transport)
}

func loadBoard(opts options) (*config.Board, error) {
	board := config.DefaultBoard()
	if opts.boardFile != "" {
		loaded, err := config.LoadFromFile(config.ResolveBoardPath(opts.boardFile))
		if err != nil {
			return nil, fmt.Errorf("failed to load board: %w", err)
		}
		board = loaded
	}

	if opts.transport != "" {
		board.Transport = opts.transport
	}
	if opts.deviceSel != "" {
		board.Device = opts.deviceSel
	}

	if err := board.Validate(); err != nil {
		return nil, err
	}
	if opts.verbose {
		fmt.Printf("Board: %s (%s)\n", board.Name, board.Transport)
	}
	return board, nil
}

// powerUp runs the sequence and reports progress
func powerUp(seq *sequencer.Sequencer, opts options) error {
	phase := color.New(color.FgCyan)
	seq.OnPhase = func(p sequencer.Phase) {
		phase.Printf("  %s\n", p)
	}
	// Dry runs log through the recorder instead
	if opts.verbose && !opts.dryRun {
		seq.OnWrite = func(p sequencer.Phase, w lmx2594.Word) {
			fmt.Printf("    %s\n", w)
		}
	}

	start := time.Now()
	fmt.Println("Powering up LMX2594...")
	if err := seq.Run(); err != nil {
		return fmt.Errorf("power-up aborted after %s (%d writes): %w", seq.Phase(), seq.Writes(), err)
	}

	color.Green("Synthesizer programmed: %d writes in %v", seq.Writes(), time.Since(start).Round(time.Millisecond))
	return nil
}

// dryRun sequences against a recorder and prints what would go on the wire
func dryRun(opts options) error {
	rec := trace.New()
	if opts.verbose {
		rec.DebugLog = func(format string, args ...interface{}) {
			fmt.Printf("    "+format+"\n", args...)
		}
	}
	seq := sequencer.New(rec, rec.Select(), rec.Enable())
	seq.Sleep = rec.Sleep

	if err := powerUp(seq, opts); err != nil {
		return err
	}

	// Verbose runs already logged every event as it was recorded
	if !opts.verbose {
		fmt.Println()
		for _, e := range rec.Events {
			if e.Kind != trace.KindSleep {
				fmt.Printf("  %s\n", e)
			}
		}
	}
	fmt.Printf("\n%d writes, %v of settle time\n", len(rec.Writes()), rec.Elapsed())

	if v := rec.Violations(); len(v) > 0 {
		return fmt.Errorf("framing violations: %v", v)
	}
	return nil
}
