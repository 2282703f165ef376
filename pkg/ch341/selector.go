package ch341

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// DeviceSelector specifies how to identify a CH341A bridge
// Supported formats:
//   - ""           : Use first available bridge
//   - "serial"     : Match by serial number (e.g., "5A2B")
//   - "bus:addr"   : Match by USB bus and address (e.g., "1:10")
//   - "#N"         : Use Nth bridge, 0-indexed (e.g., "#0", "#1")
type DeviceSelector string

// selectorKind is the parsed form of a DeviceSelector
type selectorKind uint8

const (
	selectFirst selectorKind = iota
	selectIndex
	selectBusAddr
	selectSerial
)

type parsedSelector struct {
	kind   selectorKind
	index  int
	bus    int
	addr   int
	serial string
}

func (p parsedSelector) String() string {
	switch p.kind {
	case selectIndex:
		return fmt.Sprintf("index %d", p.index)
	case selectBusAddr:
		return fmt.Sprintf("bus %d address %d", p.bus, p.addr)
	case selectSerial:
		return fmt.Sprintf("serial %s", p.serial)
	default:
		return "first device"
	}
}

// parse validates the selector syntax without touching USB
func (s DeviceSelector) parse() (parsedSelector, error) {
	sel := strings.TrimSpace(string(s))

	switch {
	case sel == "":
		return parsedSelector{kind: selectFirst}, nil

	case strings.HasPrefix(sel, "#"):
		index, err := strconv.Atoi(sel[1:])
		if err != nil || index < 0 {
			return parsedSelector{}, fmt.Errorf("invalid device index: %s", sel)
		}
		return parsedSelector{kind: selectIndex, index: index}, nil

	case strings.Contains(sel, ":"):
		parts := strings.SplitN(sel, ":", 2)
		bus, err := strconv.Atoi(parts[0])
		if err != nil {
			return parsedSelector{}, fmt.Errorf("invalid bus number: %s", parts[0])
		}
		addr, err := strconv.Atoi(parts[1])
		if err != nil {
			return parsedSelector{}, fmt.Errorf("invalid address number: %s", parts[1])
		}
		return parsedSelector{kind: selectBusAddr, bus: bus, addr: addr}, nil

	default:
		return parsedSelector{kind: selectSerial, serial: sel}, nil
	}
}

// pick returns the index of the device matching p, or an error.
// Serial numbers must be unique among the connected bridges.
func (p parsedSelector) pick(devices []*Device) (int, error) {
	if len(devices) == 0 {
		return -1, fmt.Errorf("no CH341A bridges found")
	}

	switch p.kind {
	case selectFirst:
		return 0, nil
	case selectIndex:
		if p.index >= len(devices) {
			return -1, fmt.Errorf("device index %d out of range (found %d devices)", p.index, len(devices))
		}
		return p.index, nil
	}

	found := -1
	matches := 0
	for i, d := range devices {
		if (p.kind == selectBusAddr && d.Bus == p.bus && d.Address == p.addr) ||
			(p.kind == selectSerial && d.Serial == p.serial) {
			if found < 0 {
				found = i
			}
			matches++
		}
	}

	switch {
	case matches == 0:
		return -1, fmt.Errorf("no CH341A found with %s", p)
	case matches > 1:
		return -1, fmt.Errorf("multiple devices (%d) found with %s; use bus:addr format (e.g., 1:10) or index format (e.g., #0)", matches, p)
	}
	return found, nil
}

// SelectDevice opens the CH341A bridge matching the selector and closes
// every other bridge it opened along the way.
func SelectDevice(context *gousb.Context, selector DeviceSelector) (*Device, error) {
	parsed, err := selector.parse()
	if err != nil {
		return nil, err
	}

	devices, err := FindAllDevices(context)
	if err != nil {
		return nil, err
	}

	index, err := parsed.pick(devices)
	for i, d := range devices {
		if i != index {
			d.Close()
		}
	}
	if err != nil {
		return nil, err
	}
	return devices[index], nil
}

// DeviceFlagUsage returns usage text for a -d flag
func DeviceFlagUsage() string {
	return `Bridge selector. Formats:
    ""        - Use first available bridge
    "serial"  - Match by serial number (e.g., "5A2B")
    "bus:addr"- Match by USB location (e.g., "1:10")
    "#N"      - Use Nth bridge, 0-indexed (e.g., "#0", "#1")`
}
