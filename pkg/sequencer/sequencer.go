// Package sequencer runs the LMX2594 power-up and calibration sequence
// over a caller-supplied serial bus and two control lines.
//
// The sequence is fixed:
//
//  1. Release chip select, wait.
//  2. Assert chip enable, wait.
//  3. Write R0 with RESET=1, wait.
//  4. Write R0 with RESET=0, wait.
//  5. Write the register map from the highest address down to R0,
//     waiting after every write, then wait once more.
//  6. Write R0 with FCAL_EN=1 again so calibration runs from a stable
//     state, wait.
//  7. Write R0 with FCAL_EN=0, wait.
//
// Every wait is SettleDelay. There are no retries: the first error from
// a collaborator stops the sequence.
package sequencer

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/herlein/lmxinit/pkg/lmx2594"
)

// SettleDelay is the wait after every bus or line operation
const SettleDelay = 10 * time.Millisecond

// Bus transmits one register word. It must send all bytes synchronously,
// MSB of the first byte first.
type Bus interface {
	Write(w []byte) error
}

// Line drives a control signal. Set(true) means active, whatever the
// electrical polarity of the pin.
type Line interface {
	Set(active bool) error
}

// LineFunc adapts a function to the Line interface
type LineFunc func(active bool) error

// Set calls f(active)
func (f LineFunc) Set(active bool) error {
	return f(active)
}

// Handshake holds the R0 words used around the register map
type Handshake struct {
	ResetAssert        lmx2594.Word
	ResetDeassert      lmx2594.Word
	CalibrationEnable  lmx2594.Word
	CalibrationDisable lmx2594.Word
}

// DefaultHandshake returns the handshake words of the compiled-in map
func DefaultHandshake() Handshake {
	return Handshake{
		ResetAssert:        lmx2594.ResetAssert,
		ResetDeassert:      lmx2594.ResetDeassert,
		CalibrationEnable:  lmx2594.CalibrationEnable,
		CalibrationDisable: lmx2594.CalibrationDisable,
	}
}

func (h Handshake) words() []lmx2594.Word {
	return []lmx2594.Word{h.ResetAssert, h.ResetDeassert, h.CalibrationEnable, h.CalibrationDisable}
}

// Sequencer owns the bus and both control lines for the duration of Run.
type Sequencer struct {
	bus    Bus
	sel    Line
	enable Line

	// Table is written in descending address order; Table[i] must address Ri
	Table []lmx2594.Word

	Handshake Handshake

	// Sleep blocks for at least d. Defaults to time.Sleep.
	Sleep func(d time.Duration)

	// Callbacks (optional). They run on the Run goroutine.
	OnPhase func(p Phase)
	OnWrite func(p Phase, w lmx2594.Word)

	running atomic.Bool
	phase   Phase
	writes  int
}

// New returns a sequencer for the compiled-in register map
func New(bus Bus, sel, enable Line) *Sequencer {
	table := lmx2594.Registers()
	return &Sequencer{
		bus:       bus,
		sel:       sel,
		enable:    enable,
		Table:     table[:],
		Handshake: DefaultHandshake(),
	}
}

// Phase returns the last phase reached. After a failed Run it is the
// phase the device was left in.
func (s *Sequencer) Phase() Phase {
	return s.phase
}

// Writes returns the number of framed writes completed by the last Run
func (s *Sequencer) Writes() int {
	return s.writes
}

// Run brings the device from power-off to a calibrated, idle state.
// Errors from the bus or the lines are returned unchanged and nothing
// else is written after them.
func (s *Sequencer) Run() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.running.Store(false)

	if s.bus == nil || s.sel == nil || s.enable == nil {
		return ErrNoTransport
	}
	if err := s.validate(); err != nil {
		return err
	}

	s.phase = PoweredOff
	s.writes = 0

	// Quiesce the bus before the device sees power
	if err := s.sel.Set(false); err != nil {
		return err
	}
	s.settle(LineIdle)

	if err := s.enable.Set(true); err != nil {
		return err
	}
	s.settle(ChipEnabled)

	if err := s.write(s.Handshake.ResetAssert); err != nil {
		return err
	}
	s.settle(InReset)

	if err := s.write(s.Handshake.ResetDeassert); err != nil {
		return err
	}
	s.settle(ResetCleared)

	s.enter(Programming)
	for i := len(s.Table) - 1; i >= 0; i-- {
		if err := s.write(s.Table[i]); err != nil {
			return err
		}
		s.sleep(SettleDelay)
	}
	s.sleep(SettleDelay)

	// R0 is already in the map with FCAL_EN=1; it goes out again here
	if err := s.write(s.Handshake.CalibrationEnable); err != nil {
		return err
	}
	s.settle(CalibrationTriggered)

	if err := s.write(s.Handshake.CalibrationDisable); err != nil {
		return err
	}
	s.settle(CalibrationSettled)

	s.enter(Idle)
	return nil
}

func (s *Sequencer) validate() error {
	if err := lmx2594.Validate(s.Table); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, w := range s.Handshake.words() {
		if !w.Valid() || w.Address() != 0 {
			return fmt.Errorf("%w: handshake word %s is not an R0 write", ErrInvalidConfig, w)
		}
	}

	h := s.Handshake
	switch {
	case h.ResetDeassert != h.CalibrationEnable:
		return fmt.Errorf("%w: reset deassert %s differs from calibration enable %s",
			ErrInvalidConfig, h.ResetDeassert, h.CalibrationEnable)
	case h.CalibrationEnable != s.Table[0]:
		return fmt.Errorf("%w: calibration enable %s differs from table %s",
			ErrInvalidConfig, h.CalibrationEnable, s.Table[0])
	case h.CalibrationEnable^h.CalibrationDisable != lmx2594.R0FcalEn:
		return fmt.Errorf("%w: calibration words %s and %s must differ only in FCAL_EN",
			ErrInvalidConfig, h.CalibrationEnable, h.CalibrationDisable)
	case h.ResetAssert^h.ResetDeassert != lmx2594.R0Reset:
		return fmt.Errorf("%w: reset words %s and %s must differ only in RESET",
			ErrInvalidConfig, h.ResetAssert, h.ResetDeassert)
	}
	return nil
}

// write performs one framed write: select, three octets, deselect.
func (s *Sequencer) write(w lmx2594.Word) error {
	buf := lmx2594.Encode(w)

	if err := s.sel.Set(true); err != nil {
		return err
	}
	if err := s.bus.Write(buf[:]); err != nil {
		// Leave the frame closed if the line still works
		s.sel.Set(false)
		return err
	}
	if err := s.sel.Set(false); err != nil {
		return err
	}

	s.writes++
	if s.OnWrite != nil {
		s.OnWrite(s.phase, w)
	}
	return nil
}

func (s *Sequencer) settle(next Phase) {
	s.sleep(SettleDelay)
	s.enter(next)
}

func (s *Sequencer) enter(p Phase) {
	s.phase = p
	if s.OnPhase != nil {
		s.OnPhase(p)
	}
}

func (s *Sequencer) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}
