// Package rpi drives the synthesizer from a Raspberry Pi: spidev for the
// serial bus and two GPIO pins for chip select and chip enable.
//
// Chip select is a plain GPIO so a frame can be held open by the caller.
// Leave the spidev CE0/CE1 pin unconnected.
package rpi

import (
	"errors"
	"fmt"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/rpi" // register the Raspberry Pi host
)

// Defaults for the uWire header on the LMX2594 evaluation board
const (
	DefaultChannel   = 0
	DefaultSpeedHz   = 1000000
	DefaultSelectPin = "GPIO_25"
	DefaultEnablePin = "GPIO_24"
	bitsPerWord      = 8
)

// ErrInvalidConfig indicates a bad host configuration
var ErrInvalidConfig = errors.New("invalid rpi configuration")

// Config selects the spidev channel and the GPIO pins
type Config struct {
	Channel   byte   `json:"channel"`
	SpeedHz   int    `json:"speed_hz"`
	SelectPin string `json:"select_pin"`
	EnablePin string `json:"enable_pin"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Channel:   DefaultChannel,
		SpeedHz:   DefaultSpeedHz,
		SelectPin: DefaultSelectPin,
		EnablePin: DefaultEnablePin,
	}
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if c.Channel > 1 {
		return fmt.Errorf("%w: spidev channel %d", ErrInvalidConfig, c.Channel)
	}
	if c.SpeedHz <= 0 {
		return fmt.Errorf("%w: speed %d Hz", ErrInvalidConfig, c.SpeedHz)
	}
	if c.SelectPin == "" || c.EnablePin == "" {
		return fmt.Errorf("%w: select and enable pins are required", ErrInvalidConfig)
	}
	if c.SelectPin == c.EnablePin {
		return fmt.Errorf("%w: select and enable share pin %s", ErrInvalidConfig, c.SelectPin)
	}
	return nil
}

// Host owns the SPI bus and both pins until Close
type Host struct {
	bus embd.SPIBus
	sel embd.DigitalPin
	ce  embd.DigitalPin
}

// Open initializes spidev and GPIO. Chip select starts released and chip
// enable starts low.
func Open(cfg Config) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := embd.InitGPIO(); err != nil {
		return nil, fmt.Errorf("failed to init GPIO: %w", err)
	}
	if err := embd.InitSPI(); err != nil {
		embd.CloseGPIO()
		return nil, fmt.Errorf("failed to init SPI: %w", err)
	}

	h := &Host{}
	var err error
	if h.sel, err = outputPin(cfg.SelectPin, embd.High); err != nil {
		h.Close()
		return nil, err
	}
	if h.ce, err = outputPin(cfg.EnablePin, embd.Low); err != nil {
		h.Close()
		return nil, err
	}
	h.bus = embd.NewSPIBus(embd.SPIMode0, cfg.Channel, cfg.SpeedHz, bitsPerWord, 0)
	return h, nil
}

func outputPin(key string, initial int) (embd.DigitalPin, error) {
	pin, err := embd.NewDigitalPin(key)
	if err != nil {
		return nil, fmt.Errorf("failed to open pin %s: %w", key, err)
	}
	if err := pin.SetDirection(embd.Out); err != nil {
		pin.Close()
		return nil, fmt.Errorf("failed to set %s as output: %w", key, err)
	}
	if err := pin.Write(initial); err != nil {
		pin.Close()
		return nil, fmt.Errorf("failed to drive %s: %w", key, err)
	}
	return pin, nil
}

// Write shifts w out MSB first. spidev is full duplex; the bytes read
// back are dropped.
func (h *Host) Write(w []byte) error {
	buf := make([]byte, len(w))
	copy(buf, w)
	if err := h.bus.TransferAndReceiveData(buf); err != nil {
		return fmt.Errorf("spi transfer failed: %w", err)
	}
	return nil
}

// SetSelect drives chip select. Active means low.
func (h *Host) SetSelect(active bool) error {
	return h.sel.Write(level(active, true))
}

// SetEnable drives chip enable, active high
func (h *Host) SetEnable(active bool) error {
	return h.ce.Write(level(active, false))
}

func level(active, activeLow bool) int {
	if active != activeLow {
		return embd.High
	}
	return embd.Low
}

// Close releases the bus and the pins. Pin levels are not changed.
func (h *Host) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if h.bus != nil {
		keep(h.bus.Close())
	}
	if h.sel != nil {
		keep(h.sel.Close())
	}
	if h.ce != nil {
		keep(h.ce.Close())
	}
	keep(embd.CloseSPI())
	keep(embd.CloseGPIO())
	return first
}
