package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/herlein/lmxinit/pkg/rpi"
)

// Transport names
const (
	TransportCH341 = "ch341"
	TransportRPi   = "rpi"
)

// CH341A serial engine speeds, the values ch341.Device.Configure takes.
// Kept here so reading a board file does not need libusb.
const (
	CH341Speed20K  = 0
	CH341Speed100K = 1
	CH341Speed400K = 2
	CH341Speed750K = 3
)

// Board configuration errors
var (
	// ErrUnknownTransport indicates a transport name that is not supported
	ErrUnknownTransport = errors.New("unknown transport")

	// ErrInvalidBoard indicates an invalid board profile
	ErrInvalidBoard = errors.New("invalid board profile")
)

// Board describes how the synthesizer is wired to this host. It carries
// no register values: the register map is compiled in.
type Board struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Transport   string    `json:"transport"`
	Created     time.Time `json:"created"`

	// CH341A bridge
	Device     string `json:"device,omitempty"` // bridge selector: "", serial, bus:addr or #N
	CH341Speed uint8  `json:"ch341_speed"`

	// Raspberry Pi host
	RPi rpi.Config `json:"rpi"`
}

// DefaultBoard returns a Board with default values for a CH341A bridge
func DefaultBoard() *Board {
	return &Board{
		Name:       "default",
		Transport:  TransportCH341,
		CH341Speed: CH341Speed100K,
		RPi:        rpi.DefaultConfig(),
	}
}

// Validate checks the board for errors
func (b *Board) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidBoard)
	}

	switch b.Transport {
	case TransportCH341:
		if b.CH341Speed > CH341Speed750K {
			return fmt.Errorf("%w: ch341 speed %d", ErrInvalidBoard, b.CH341Speed)
		}
	case TransportRPi:
		if err := b.RPi.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBoard, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, b.Transport)
	}

	return nil
}
