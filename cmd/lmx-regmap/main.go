// lmx-regmap: Print the compiled-in LMX2594 register map
//
// Output matches the TICS Pro hex export, highest register first, which
// is also the order lmx-init writes them in.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/herlein/lmxinit/pkg/lmx2594"
)

func main() {
	ascending := flag.Bool("a", false, "Print R0 first")
	bytesOut := flag.Bool("x", false, "Show the three octets sent for each word")
	groups := flag.Bool("g", false, "Annotate each register with its group")
	handshake := flag.Bool("s", false, "Also print the reset and calibration words")
	flag.Parse()

	table := lmx2594.Registers()
	if err := lmx2594.Validate(table[:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	order := make([]int, 0, len(table))
	for i := len(table) - 1; i >= 0; i-- {
		order = append(order, i)
	}
	if *ascending {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}

	dim := color.New(color.Faint)
	for _, i := range order {
		w := table[i]
		fmt.Printf("R%d\t0x%06X", w.Address(), uint32(w))
		if *bytesOut {
			b := lmx2594.Encode(w)
			fmt.Printf("\t% X", b[:])
		}
		if *groups {
			dim.Printf("\t%s", lmx2594.GroupOf(w.Address()))
		}
		fmt.Println()
	}

	if *handshake {
		fmt.Println()
		fmt.Printf("Reset assert:        %s\n", lmx2594.ResetAssert)
		fmt.Printf("Reset deassert:      %s\n", lmx2594.ResetDeassert)
		fmt.Printf("Calibration enable:  %s\n", lmx2594.CalibrationEnable)
		fmt.Printf("Calibration disable: %s\n", lmx2594.CalibrationDisable)
	}
}
