// Package lmx2594 holds the register model of the TI LMX2594 wideband
// PLL/VCO synthesizer.
//
// The device is programmed with 24-bit shift register words, sent MSB
// first:
//
//	[R/W bit, 0 for writes] [7-bit address] [16-bit data]
package lmx2594

import "fmt"

// Word is a single 24-bit register word stored in a uint32.
// The top 8 bits of the container are always zero.
type Word uint32

// Word layout
const (
	ReadBit     = 1 << 23
	AddressMask = 0x7F
	DataMask    = 0xFFFF
	AddressBits = 7
	DataBits    = 16
	WordMask    = 0xFFFFFF
	WordBytes   = 3
)

// NewWord packs a write word for the given register address and data.
func NewWord(address uint8, data uint16) Word {
	return Word(uint32(address&AddressMask)<<DataBits | uint32(data))
}

// Address returns the 7-bit register address
func (w Word) Address() uint8 {
	return uint8((uint32(w) >> DataBits) & AddressMask)
}

// Data returns the 16-bit data field
func (w Word) Data() uint16 {
	return uint16(uint32(w) & DataMask)
}

// Valid reports whether the word fits in 24 bits and is a write.
func (w Word) Valid() bool {
	return uint32(w)&^WordMask == 0 && uint32(w)&ReadBit == 0
}

// String returns the word the way TICS Pro exports it, e.g. "R36 0x240800"
func (w Word) String() string {
	return fmt.Sprintf("R%d 0x%06X", w.Address(), uint32(w)&WordMask)
}

// Encode returns the three octets of w, most significant first.
// Bits above bit 23 are discarded; tables are checked with Validate so
// this never loses information in practice.
func Encode(w Word) [WordBytes]byte {
	return [WordBytes]byte{
		byte(w >> 16),
		byte(w >> 8),
		byte(w),
	}
}
