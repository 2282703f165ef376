package ch341

import "time"

// USB Device Identifiers
const (
	VendorID  = 0x1A86
	ProductID = 0x5512 // CH341A in EPP/MEM/I2C/SPI mode
)

// USB Endpoint Configuration
const (
	EPBulkNum     = 2 // bulk endpoint number, both directions
	PacketLength  = 0x20
	MaxPacketData = PacketLength - 1 // one byte per packet is the command
)

// USB Timeouts
const (
	USBDefaultTimeout = 1000 * time.Millisecond
	USBReadSlice      = 100 * time.Millisecond
)

// Stream commands
const (
	CmdSPIStream = 0xA8
	CmdI2CStream = 0xAA
	CmdUIOStream = 0xAB
)

// I2C stream sub-commands. CmdI2CStream with I2CStmSet configures the
// serial engine, SPI included.
const (
	I2CStmSet = 0x60
	I2CStmEnd = 0x00
)

// Serial engine speeds for I2CStmSet
const (
	Speed20K  = 0x00
	Speed100K = 0x01
	Speed400K = 0x02
	Speed750K = 0x03
	SpeedMask = 0x03
)

var speedNames = map[uint8]string{
	Speed20K:  "20 kHz",
	Speed100K: "100 kHz",
	Speed400K: "400 kHz",
	Speed750K: "750 kHz",
}

// SpeedName returns the serial engine clock selected by speed
func SpeedName(speed uint8) string {
	if name, ok := speedNames[speed]; ok {
		return name
	}
	return "UNKNOWN"
}

// UIO stream sub-commands, used to drive D0-D5 directly
const (
	UIOStmDir = 0x40
	UIOStmOut = 0x80
	UIOStmEnd = 0x20
)

// Parallel port pins. D3 is SCK, D5 is MOSI, D7 is MISO.
const (
	PinCS0   = 1 << 0 // chip select, active low
	PinCS1   = 1 << 1 // wired to the synthesizer CE, active high
	PinCS2   = 1 << 2
	PinDCK   = 1 << 3
	PinDOUT2 = 1 << 4
	PinDOUT  = 1 << 5

	// PinsOutputMask puts D0-D5 in output mode
	PinsOutputMask = 0x3F

	// pinsIdle has CS0 released, CE low, and the spare lines high
	pinsIdle = PinCS0 | PinCS2 | PinDOUT2 | PinDOUT
)
