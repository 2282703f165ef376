//go:build tinygo

// lmx-pico: LMX2594 power-up firmware for a Raspberry Pi Pico
//
// Build with: tinygo flash -target=pico ./cmd/lmx-pico
//
//	| Pico pin | GPIO | Purpose     | uWire pin |
//	|----------|------|-------------|-----------|
//	|    4     | GP2  | SPI0 SCK    | 8  SCK    |
//	|    5     | GP3  | SPI0 TX     | 4  SDI    |
//	|    6     | GP4  | SPI0 RX     | 3  MUXout |
//	|    7     | GP5  | CSn (GPIO)  | 2  CSB    |
//	|    8     | GND  |             | 6  GND    |
//	|    9     | GP6  | Chip enable | 1  CE     |
package main

import (
	"machine"
	"time"

	"github.com/herlein/lmxinit/pkg/lmx2594"
	"github.com/herlein/lmxinit/pkg/sequencer"
)

const spiFrequency = 1000000

var (
	spi   = machine.SPI0
	csPin = machine.GP5
	cePin = machine.GP6
	led   = machine.LED
)

// spiBus adapts machine.SPI to sequencer.Bus
type spiBus struct {
	spi *machine.SPI
}

func (b spiBus) Write(w []byte) error {
	return b.spi.Tx(w, nil)
}

// pinLine drives a GPIO. activeLow inverts the level.
type pinLine struct {
	pin       machine.Pin
	activeLow bool
}

func (l pinLine) Set(active bool) error {
	l.pin.Set(active != l.activeLow)
	return nil
}

func main() {
	println("lmx-pico: start")

	// LED stays lit until the synthesizer is programmed; a failed
	// bring-up leaves it on.
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.High()

	err := spi.Configure(machine.SPIConfig{
		Frequency: spiFrequency,
		SCK:       machine.GP2,
		SDO:       machine.GP3,
		SDI:       machine.GP4,
		LSBFirst:  false,
		Mode:      0,
	})
	if err != nil {
		halt("spi configure", err)
	}

	csPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cePin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	seq := sequencer.New(spiBus{spi: spi}, pinLine{pin: csPin, activeLow: true}, pinLine{pin: cePin})
	seq.OnPhase = func(p sequencer.Phase) {
		println("lmx-pico:", p.String())
	}
	if err := seq.Run(); err != nil {
		halt("power-up in "+seq.Phase().String(), err)
	}

	led.Low()
	println("lmx-pico: programmed", seq.Writes(), "writes,", lmx2594.NumRegisters, "registers")
	idle()
}

func halt(step string, err error) {
	println("lmx-pico:", step, "failed:", err.Error())
	idle()
}

// idle keeps the firmware alive without touching the bus
func idle() {
	for {
		time.Sleep(time.Hour)
	}
}
