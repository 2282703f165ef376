package lmx2594

import "fmt"

// NumRegisters is the number of programmable registers, R0 through R112.
const NumRegisters = 113

// R0 fields used by the power-up handshake
const (
	R0PowerDown   = 1 << 0
	R0Reset       = 1 << 1
	R0MuxoutLDSel = 1 << 2
	R0FcalEn      = 1 << 3
)

// r0 is R0 as exported by TICS Pro for the target frequency, with
// FCAL_EN set and RESET clear.
const r0 Word = 0x00241C

// Reset and calibration handshake words. All of them address R0.
const (
	ResetAssert        Word = r0 | R0Reset
	ResetDeassert      Word = r0
	CalibrationEnable  Word = r0
	CalibrationDisable Word = r0 &^ R0FcalEn
)

// registerMap is the TICS Pro hex dump for the target output frequency.
// Index equals register address.
var registerMap = [NumRegisters]Word{
	r0,       // R0
	0x010808, // R1
	0x020500, // R2
	0x030642, // R3
	0x040a43, // R4
	0x0500c8, // R5
	0x06c802, // R6
	0x0740b2, // R7
	0x082000, // R8
	0x090604, // R9
	0x0a10d8, // R10
	0x0b0018, // R11
	0x0c5001, // R12
	0x0d4000, // R13
	0x0e1e70, // R14
	0x0f064f, // R15
	0x100080, // R16
	0x110118, // R17
	0x120064, // R18
	0x1327b7, // R19
	0x14d848, // R20
	0x150401, // R21
	0x160001, // R22
	0x17007c, // R23
	0x18071a, // R24
	0x190c2b, // R25
	0x1a0db0, // R26
	0x1b0002, // R27
	0x1c0488, // R28
	0x1d318c, // R29
	0x1e318c, // R30
	0x1f43ec, // R31
	0x200393, // R32
	0x211e21, // R33
	0x220000, // R34
	0x230004, // R35
	0x240800, // R36 PLL_N (0x190800 gives 36.82000)
	0x250304, // R37
	0x260000, // R38
	0x270001, // R39
	0x280000, // R40
	0x290000, // R41
	0x2a0000, // R42
	0x2b0000, // R43
	0x2c1fa3, // R44
	0x2dc0df, // R45
	0x2e07fc, // R46
	0x2f0300, // R47
	0x300300, // R48
	0x314180, // R49
	0x320000, // R50
	0x330080, // R51
	0x340820, // R52
	0x350000, // R53
	0x360000, // R54
	0x370000, // R55
	0x380000, // R56
	0x390020, // R57
	0x3a8001, // R58
	0x3b0001, // R59
	0x3c0000, // R60
	0x3d00a8, // R61
	0x3e0322, // R62
	0x3f0000, // R63
	0x401388, // R64
	0x410000, // R65
	0x4201f4, // R66
	0x430000, // R67
	0x4403e8, // R68
	0x450000, // R69
	0x46c350, // R70
	0x470081, // R71
	0x480001, // R72
	0x49003f, // R73
	0x4a0000, // R74
	0x4b0b80, // R75
	0x4c000c, // R76
	0x4d0000, // R77
	0x4e00c3, // R78
	0x4f0000, // R79
	0x500000, // R80
	0x510000, // R81
	0x520000, // R82
	0x530000, // R83
	0x540000, // R84
	0x550000, // R85
	0x560000, // R86
	0x570000, // R87
	0x580000, // R88
	0x590000, // R89
	0x5a0000, // R90
	0x5b0000, // R91
	0x5c0000, // R92
	0x5d0000, // R93
	0x5e0000, // R94
	0x5f0000, // R95
	0x600000, // R96
	0x610888, // R97
	0x620000, // R98
	0x630000, // R99
	0x640000, // R100
	0x650011, // R101
	0x660000, // R102
	0x670000, // R103
	0x680000, // R104
	0x690021, // R105
	0x6a0000, // R106
	0x6b0000, // R107
	0x6c0000, // R108
	0x6d0000, // R109
	0x6e0000, // R110
	0x6f0000, // R111
	0x700000, // R112
}

// Registers returns a copy of the register map, indexed by address.
func Registers() [NumRegisters]Word {
	return registerMap
}

// Group classifies a register by how the power-up sequence treats it.
type Group uint8

const (
	GroupGeneral  Group = iota // R0-R78, always programmed
	GroupRamp                  // R79-R106, only used with RAMP_EN
	GroupReadback              // R107-R112, readback only
)

// String returns a human-readable name for the group
func (g Group) String() string {
	switch g {
	case GroupGeneral:
		return "general"
	case GroupRamp:
		return "ramp"
	case GroupReadback:
		return "readback"
	default:
		return "unknown"
	}
}

// GroupOf returns the group a register address belongs to.
// Ramp and readback registers are still written with their map values.
func GroupOf(address uint8) Group {
	switch {
	case address <= 78:
		return GroupGeneral
	case address <= 106:
		return GroupRamp
	default:
		return GroupReadback
	}
}

// Validate checks that every word fits in 24 bits, is a write, and sits
// at the index equal to its address.
func Validate(table []Word) error {
	if len(table) == 0 {
		return ErrEmptyTable
	}
	if len(table) > AddressMask+1 {
		return fmt.Errorf("%w: %d entries", ErrTableTooLarge, len(table))
	}
	for i, w := range table {
		if !w.Valid() {
			return fmt.Errorf("%w: index %d (0x%08X)", ErrInvalidWord, i, uint32(w))
		}
		if int(w.Address()) != i {
			return fmt.Errorf("%w: index %d holds R%d", ErrAddressMismatch, i, w.Address())
		}
	}
	return nil
}
