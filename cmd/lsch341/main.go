// lsch341: List connected CH341A USB bridges and how lmx-init drives them
//
// Use the printed index, bus:address or serial with lmx-init -d.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/gousb"
	"github.com/herlein/lmxinit/pkg/ch341"
	"github.com/herlein/lmxinit/pkg/config"
)

func main() {
	boardName := flag.String("b", "", "Board file or name, for the stream speed (default: built-in board)")
	// -v is taken by glog, which the board config pulls in through embd
	verbose := flag.Bool("verbose", false, "Verbose output (show pin wiring)")
	flag.Parse()

	board := config.DefaultBoard()
	if *boardName != "" {
		loaded, err := config.LoadFromFile(config.ResolveBoardPath(*boardName))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to load board: %v\n", err)
			os.Exit(1)
		}
		board = loaded
	}

	context := gousb.NewContext()
	defer context.Close()

	devices, err := ch341.FindAllDevices(context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to enumerate devices: %v\n", err)
		os.Exit(1)
	}

	if len(devices) == 0 {
		fmt.Println("No CH341A bridges found")
		return
	}

	header := color.New(color.Bold)
	header.Printf("%-4s %-10s %-8s %-8s %s\n", "#", "SERIAL", "BUS:ADDR", "CHIP", "PRODUCT")
	for i, device := range devices {
		serial := device.Serial
		if serial == "" {
			serial = "-"
		}
		fmt.Printf("#%-3d %-10s %-8s %-8s %s\n", i, serial,
			fmt.Sprintf("%d:%d", device.Bus, device.Address), "v"+device.Version.String(), device.Product)
		device.Close()
	}

	fmt.Printf("\nStream speed: %s (board %q)\n", ch341.SpeedName(board.CH341Speed), board.Name)

	if *verbose {
		fmt.Println("\nWiring:")
		fmt.Printf("  D%d  CSB   chip select, active low\n", pinNumber(ch341.PinCS0))
		fmt.Printf("  D%d  CE    chip enable, active high\n", pinNumber(ch341.PinCS1))
		fmt.Printf("  D%d  SCK\n", pinNumber(ch341.PinDCK))
		fmt.Printf("  D%d  SDI   MOSI, MSB first\n", pinNumber(ch341.PinDOUT))
		return
	}

	fmt.Println()
	fmt.Println("Use -d flag with lmx-init to select a bridge:")
	fmt.Println("  -d \"#0\"      Select by index")
	fmt.Println("  -d \"1:10\"    Select by bus:address")
	fmt.Println("  -d \"5A2B\"    Select by serial (if unique)")
}

// pinNumber returns the D-line index of a single-bit pin mask
func pinNumber(mask uint8) int {
	n := 0
	for mask > 1 {
		mask >>= 1
		n++
	}
	return n
}
