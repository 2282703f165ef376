// Package ch341 drives a CH341A USB bridge as the serial bus and control
// lines of the synthesizer. D0 frames each write, D1 drives chip enable.
package ch341

import (
	"context"
	"fmt"
	"math/bits"
	"strings"
	"sync"
	"time"

	"github.com/google/gousb"
)

// Device represents a CH341A USB bridge
type Device struct {
	usbDevice    *gousb.Device
	usbConfig    *gousb.Config
	usbInterface *gousb.Interface
	epIn         *gousb.InEndpoint
	epOut        *gousb.OutEndpoint
	Serial       string
	Manufacturer string
	Product      string
	Bus          int
	Address      int
	Version      gousb.BCD // bcdDevice, the chip revision

	// pins is the last value driven on D0-D5
	pins uint8
	mu   sync.Mutex
}

// FindAllDevices finds all connected CH341A bridges
func FindAllDevices(context *gousb.Context) ([]*Device, error) {
	devices := []*Device{}

	usbDevices, err := context.OpenDevices(func(descriptor *gousb.DeviceDesc) bool {
		return descriptor.Vendor == gousb.ID(VendorID) && descriptor.Product == gousb.ID(ProductID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	for _, usbDev := range usbDevices {
		device, err := wrapDevice(usbDev)
		if err != nil {
			usbDev.Close()
			continue
		}
		devices = append(devices, device)
	}

	return devices, nil
}

func wrapDevice(usbDev *gousb.Device) (*Device, error) {
	manufacturer, _ := usbDev.Manufacturer()
	product, _ := usbDev.Product()
	serial, _ := usbDev.SerialNumber()

	usbDev.SetAutoDetach(true)

	config, err := usbDev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}

	iface, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("failed to claim interface: %w", err)
	}

	epIn, err := iface.InEndpoint(EPBulkNum)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get IN endpoint: %w", err)
	}

	epOut, err := iface.OutEndpoint(EPBulkNum)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get OUT endpoint: %w", err)
	}

	desc := usbDev.Desc
	return &Device{
		usbDevice:    usbDev,
		usbConfig:    config,
		usbInterface: iface,
		epIn:         epIn,
		epOut:        epOut,
		Serial:       serial,
		Manufacturer: manufacturer,
		Product:      product,
		Bus:          desc.Bus,
		Address:      desc.Address,
		Version:      desc.Device,
		pins:         pinsIdle,
	}, nil
}

// Close releases the USB handles. Pin levels are left as they are so a
// configured synthesizer keeps running.
func (d *Device) Close() error {
	if d.usbInterface != nil {
		d.usbInterface.Close()
	}
	if d.usbConfig != nil {
		d.usbConfig.Close()
	}
	if d.usbDevice != nil {
		return d.usbDevice.Close()
	}
	return nil
}

// String returns a human-readable description of the device
func (d *Device) String() string {
	if d.Serial == "" {
		return fmt.Sprintf("%s %s (%d:%d)", d.Manufacturer, d.Product, d.Bus, d.Address)
	}
	return fmt.Sprintf("%s %s (Serial: %s)", d.Manufacturer, d.Product, d.Serial)
}

// Configure sets the serial engine speed and puts D0-D5 in output mode
// with chip select released and chip enable low.
func (d *Device) Configure(speed uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.send(streamConfigCommand(speed)); err != nil {
		return fmt.Errorf("failed to configure stream: %w", err)
	}
	d.pins = pinsIdle
	if err := d.send(pinCommand(d.pins, PinsOutputMask)); err != nil {
		return fmt.Errorf("failed to enable pins: %w", err)
	}
	return nil
}

// SetSelect drives D0. Active means low.
func (d *Device) SetSelect(active bool) error {
	return d.setPin(PinCS0, !active)
}

// SetEnable drives D1, the synthesizer chip enable.
func (d *Device) SetEnable(active bool) error {
	return d.setPin(PinCS1, active)
}

func (d *Device) setPin(pin uint8, high bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	pins := d.pins &^ pin
	if high {
		pins |= pin
	}
	if err := d.send(pinCommand(pins, PinsOutputMask)); err != nil {
		return fmt.Errorf("failed to drive pins 0x%02X: %w", pins, err)
	}
	d.pins = pins
	return nil
}

// Write shifts w out on the SPI lines, MSB first. The bytes clocked in
// at the same time are read and discarded.
func (d *Device) Write(w []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.send(spiStreamCommand(w)); err != nil {
		return fmt.Errorf("spi write failed: %w", err)
	}
	if err := d.drain(len(w), USBDefaultTimeout); err != nil {
		return fmt.Errorf("spi write failed: %w", err)
	}
	return nil
}

// send writes one command buffer to the bulk OUT endpoint
func (d *Device) send(packet []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), USBDefaultTimeout)
	n, err := d.epOut.WriteContext(ctx, packet)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("write timeout: %w", err)
		}
		return fmt.Errorf("failed to write to EP%d: %w", EPBulkNum, err)
	}
	if n != len(packet) {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, len(packet))
	}
	return nil
}

// drain reads back the n bytes the bridge returns for an SPI stream
func (d *Device) drain(n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, PacketLength)
	got := 0

	for got < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("timeout reading SPI echo: have %d, need %d", got, n)
		}

		// Short reads so the deadline is checked regularly
		readTimeout := USBReadSlice
		if remaining < readTimeout {
			readTimeout = remaining
		}

		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		m, err := d.epIn.ReadContext(ctx, buf)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			errStr := strings.ToLower(err.Error())
			if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out") {
				continue
			}
			return fmt.Errorf("failed to read from EP%d: %w", EPBulkNum, err)
		}
		got += m
	}
	return nil
}

// streamConfigCommand selects the serial engine speed
func streamConfigCommand(speed uint8) []byte {
	return []byte{CmdI2CStream, I2CStmSet | (speed & SpeedMask), I2CStmEnd}
}

// pinCommand drives D0-D5 to out with the given direction mask
func pinCommand(out, dir uint8) []byte {
	return []byte{CmdUIOStream, UIOStmOut | (out & PinsOutputMask), UIOStmDir | (dir & PinsOutputMask), UIOStmEnd}
}

// spiStreamCommand splits w into packets of one command byte and up to
// MaxPacketData data bytes. The CH341A shifts LSB first, so every data
// byte is bit-reversed to put the MSB on the wire first.
func spiStreamCommand(w []byte) []byte {
	packets := (len(w) + MaxPacketData - 1) / MaxPacketData
	out := make([]byte, 0, len(w)+packets)
	for len(w) > 0 {
		n := len(w)
		if n > MaxPacketData {
			n = MaxPacketData
		}
		out = append(out, CmdSPIStream)
		for _, b := range w[:n] {
			out = append(out, bits.Reverse8(b))
		}
		w = w[n:]
	}
	return out
}
