package sequencer

// Phase is a state of the power-up sequence. Phases only move forward.
type Phase uint8

const (
	PoweredOff           Phase = iota // nothing driven yet
	LineIdle                          // select released, bus quiet
	ChipEnabled                       // CE asserted
	InReset                           // RESET=1 written
	ResetCleared                      // RESET=0 written
	Programming                       // register map going out, highest address first
	CalibrationTriggered              // R0 rewritten with FCAL_EN=1
	CalibrationSettled                // R0 written with FCAL_EN=0
	Idle                              // done, no further bus activity
)

// String returns a human-readable name for the phase
func (p Phase) String() string {
	names := map[Phase]string{
		PoweredOff:           "PoweredOff",
		LineIdle:             "LineIdle",
		ChipEnabled:          "ChipEnabled",
		InReset:              "InReset",
		ResetCleared:         "ResetCleared",
		Programming:          "Programming",
		CalibrationTriggered: "CalibrationTriggered",
		CalibrationSettled:   "CalibrationSettled",
		Idle:                 "Idle",
	}
	if name, ok := names[p]; ok {
		return name
	}
	return "UNKNOWN"
}
