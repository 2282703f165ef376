package sequencer

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/herlein/lmxinit/pkg/lmx2594"
	"github.com/herlein/lmxinit/pkg/trace"
)

func newRecorded() (*Sequencer, *trace.Recorder) {
	r := trace.New()
	s := New(r, r.Select(), r.Enable())
	s.Sleep = r.Sleep
	return s, r
}

func TestThreeRegisterTrace(t *testing.T) {
	s, r := newRecorded()
	s.Table = []lmx2594.Word{0x00241C, 0x010808, 0x020500}
	s.Handshake = Handshake{
		ResetAssert:        0x00241E,
		ResetDeassert:      0x00241C,
		CalibrationEnable:  0x00241C,
		CalibrationDisable: 0x002414,
	}

	if err := s.Run(); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	frame := func(w uint32) []string {
		return []string{
			"select active",
			fmt.Sprintf("write R%d 0x%06X", w>>16, w),
			"select idle",
			"sleep 10ms",
		}
	}
	want := []string{"select idle", "sleep 10ms", "enable active", "sleep 10ms"}
	want = append(want, frame(0x00241E)...)
	want = append(want, frame(0x00241C)...)
	want = append(want, frame(0x020500)...)
	want = append(want, frame(0x010808)...)
	want = append(want, frame(0x00241C)...)
	want = append(want, "sleep 10ms")
	want = append(want, frame(0x00241C)...)
	want = append(want, frame(0x002414)...)

	var got []string
	for _, e := range r.Events {
		switch e.Kind {
		case trace.KindWrite:
			got = append(got, fmt.Sprintf("write R%d 0x%06X", e.Word()>>16, e.Word()))
		default:
			got = append(got, fmt.Sprintf("%s %s", e.Kind, levelOrDelay(e)))
		}
	}

	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d:\n%v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}

	addrs := r.Addresses()
	wantAddrs := []uint8{0, 0, 2, 1, 0, 0, 0}
	if fmt.Sprint(addrs) != fmt.Sprint(wantAddrs) {
		t.Errorf("addresses = %v, want %v", addrs, wantAddrs)
	}
	if s.Writes() != 7 {
		t.Errorf("Writes() = %d, want 7", s.Writes())
	}
	if s.Phase() != Idle {
		t.Errorf("Phase() = %s, want Idle", s.Phase())
	}
}

func levelOrDelay(e trace.Event) string {
	if e.Kind == trace.KindSleep {
		return e.Delay.String()
	}
	if e.Active {
		return "active"
	}
	return "idle"
}

func TestFullRegisterMap(t *testing.T) {
	s, r := newRecorded()

	if err := s.Run(); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	writes := r.Writes()
	if len(writes) != lmx2594.NumRegisters+4 {
		t.Fatalf("%d writes, want %d", len(writes), lmx2594.NumRegisters+4)
	}
	if s.Writes() != len(writes) {
		t.Errorf("Writes() = %d, recorder saw %d", s.Writes(), len(writes))
	}

	// Reset handshake, then the map from R112 down, then calibration
	if writes[0].Word() != uint32(lmx2594.ResetAssert) || writes[1].Word() != uint32(lmx2594.ResetDeassert) {
		t.Errorf("reset handshake = 0x%06X 0x%06X", writes[0].Word(), writes[1].Word())
	}
	n := len(writes)
	if writes[n-2].Word() != uint32(lmx2594.CalibrationEnable) || writes[n-1].Word() != uint32(lmx2594.CalibrationDisable) {
		t.Errorf("calibration handshake = 0x%06X 0x%06X", writes[n-2].Word(), writes[n-1].Word())
	}

	table := lmx2594.Registers()
	programming := r.Addresses()[2 : n-2]
	seen := make(map[uint8]int)
	for i, addr := range programming {
		seen[addr]++
		if i > 0 && addr >= programming[i-1] {
			t.Fatalf("address %d follows %d, order is not strictly descending", addr, programming[i-1])
		}
		if writes[i+2].Word() != uint32(table[addr]) {
			t.Errorf("R%d written as 0x%06X, want 0x%06X", addr, writes[i+2].Word(), uint32(table[addr]))
		}
	}
	for addr := 0; addr < lmx2594.NumRegisters; addr++ {
		if seen[uint8(addr)] != 1 {
			t.Errorf("R%d written %d times", addr, seen[uint8(addr)])
		}
	}

	// One delay per line/write step plus the extra wait after R0
	wantElapsed := time.Duration(2+len(writes)+1) * SettleDelay
	if r.Elapsed() != wantElapsed {
		t.Errorf("Elapsed() = %v, want %v", r.Elapsed(), wantElapsed)
	}
	if v := r.Violations(); len(v) != 0 {
		t.Errorf("framing violations: %v", v)
	}
}

func TestWriteFaultStopsSequence(t *testing.T) {
	fault := errors.New("spi: transfer failed")
	total := lmx2594.NumRegisters + 4

	for _, k := range []int{1, 2, 3, 60, total - 2, total - 1, total} {
		t.Run(fmt.Sprintf("write%d", k), func(t *testing.T) {
			s, r := newRecorded()
			r.FailWrite = k
			r.Fault = fault

			err := s.Run()
			if err != fault {
				t.Fatalf("Run() = %v, want the transport fault unchanged", err)
			}
			if got := len(r.Writes()); got != k-1 {
				t.Errorf("%d writes recorded, want %d", got, k-1)
			}
			if s.Writes() != k-1 {
				t.Errorf("Writes() = %d, want %d", s.Writes(), k-1)
			}
			if s.Phase() == Idle {
				t.Error("failed run reached Idle")
			}

			last := r.Events[len(r.Events)-1]
			if last.Kind != trace.KindSelect || last.Active {
				t.Errorf("last event %s, want select released", last)
			}
		})
	}
}

func TestFaultPhase(t *testing.T) {
	fault := errors.New("no ack")
	tests := []struct {
		failWrite int
		want      Phase
	}{
		{1, ChipEnabled},
		{2, InReset},
		{3, Programming},
		{lmx2594.NumRegisters + 3, Programming},
		{lmx2594.NumRegisters + 4, CalibrationTriggered},
	}

	for _, tt := range tests {
		s, r := newRecorded()
		r.FailWrite = tt.failWrite
		r.Fault = fault
		s.Run()
		if s.Phase() != tt.want {
			t.Errorf("fault on write %d left phase %s, want %s", tt.failWrite, s.Phase(), tt.want)
		}
	}
}

func TestEnableFault(t *testing.T) {
	fault := errors.New("gpio: export failed")
	s, r := newRecorded()
	r.FailEnable = fault

	if err := s.Run(); err != fault {
		t.Fatalf("Run() = %v, want %v", err, fault)
	}
	if len(r.Writes()) != 0 {
		t.Errorf("%d writes after enable failure", len(r.Writes()))
	}
	if s.Phase() != LineIdle {
		t.Errorf("Phase() = %s, want LineIdle", s.Phase())
	}
}

func TestLineFaultDuringFrame(t *testing.T) {
	fault := errors.New("cs stuck")
	r := trace.New()
	frames := 0
	sel := LineFunc(func(active bool) error {
		if active {
			frames++
			if frames == 4 {
				return fault
			}
		}
		return r.Select().Set(active)
	})
	s := New(r, sel, r.Enable())
	s.Sleep = r.Sleep

	if err := s.Run(); err != fault {
		t.Fatalf("Run() = %v, want %v", err, fault)
	}
	if len(r.Writes()) != 3 {
		t.Errorf("%d writes, want 3", len(r.Writes()))
	}
}

func TestPhases(t *testing.T) {
	s, _ := newRecorded()
	var phases []Phase
	s.OnPhase = func(p Phase) { phases = append(phases, p) }
	writesIn := make(map[Phase]int)
	s.OnWrite = func(p Phase, w lmx2594.Word) { writesIn[p]++ }

	if err := s.Run(); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	want := []Phase{LineIdle, ChipEnabled, InReset, ResetCleared, Programming, CalibrationTriggered, CalibrationSettled, Idle}
	if fmt.Sprint(phases) != fmt.Sprint(want) {
		t.Errorf("phases = %v, want %v", phases, want)
	}
	if writesIn[Programming] != lmx2594.NumRegisters+1 {
		t.Errorf("%d writes reported in Programming, want %d", writesIn[Programming], lmx2594.NumRegisters+1)
	}
}

func TestRunErrors(t *testing.T) {
	r := trace.New()

	if err := New(nil, r.Select(), r.Enable()).Run(); !errors.Is(err, ErrNoTransport) {
		t.Errorf("nil bus: %v", err)
	}

	s := New(r, r.Select(), r.Enable())
	s.Sleep = r.Sleep
	s.Table = []lmx2594.Word{0x00241C, 0x020500, 0x010808}
	if err := s.Run(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("swapped table: %v", err)
	}
	if len(r.Events) != 0 {
		t.Errorf("invalid table still drove %d events", len(r.Events))
	}

	s.Table = []lmx2594.Word{0x00241C}
	s.Handshake.CalibrationDisable = 0x012414
	if err := s.Run(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("handshake off R0: %v", err)
	}
}

func TestHandshakeInvariants(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(h *Handshake)
		wantErr bool
	}{
		{"default", func(h *Handshake) {}, false},
		{"deassert differs from calibration enable", func(h *Handshake) {
			h.ResetDeassert = 0x002414
		}, true},
		{"calibration enable differs from table", func(h *Handshake) {
			*h = Handshake{
				ResetAssert:        0x00240E,
				ResetDeassert:      0x00240C,
				CalibrationEnable:  0x00240C,
				CalibrationDisable: 0x002404,
			}
		}, true},
		{"calibration words differ outside FCAL_EN", func(h *Handshake) {
			h.CalibrationDisable = 0x00240C
		}, true},
		{"reset words differ outside RESET", func(h *Handshake) {
			h.ResetAssert = 0x00241D
		}, true},
		{"R0 with fields cleared", func(h *Handshake) {
			h.ResetDeassert = 0x002000
			h.CalibrationDisable = 0x000000
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, r := newRecorded()
			s.Table = []lmx2594.Word{0x00241C}
			tt.modify(&s.Handshake)

			err := s.Run()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Run() = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Run() = %v, want ErrInvalidConfig", err)
			}
			if len(r.Events) != 0 {
				t.Errorf("rejected handshake still drove %d events", len(r.Events))
			}
		})
	}
}

func TestRunIsNotReentrant(t *testing.T) {
	s, _ := newRecorded()
	var nested error
	s.OnPhase = func(p Phase) {
		if p == ChipEnabled {
			nested = s.Run()
		}
	}

	if err := s.Run(); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if nested != ErrBusy {
		t.Errorf("nested Run() = %v, want ErrBusy", nested)
	}

	// Usable again once the first run returns
	s.OnPhase = nil
	if err := s.Run(); err != nil {
		t.Errorf("second Run() = %v", err)
	}
}

func TestPhaseString(t *testing.T) {
	if CalibrationTriggered.String() != "CalibrationTriggered" {
		t.Errorf("String() = %q", CalibrationTriggered.String())
	}
	if Phase(42).String() != "UNKNOWN" {
		t.Errorf("String() = %q", Phase(42).String())
	}
}
