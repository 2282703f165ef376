package sequencer

import "errors"

// Sequencer errors. Transport faults are not listed here: they are
// returned exactly as the collaborator reported them.
var (
	// ErrBusy indicates Run was called while another Run is in progress
	ErrBusy = errors.New("sequencer is already running")

	// ErrNoTransport indicates a missing bus or control line
	ErrNoTransport = errors.New("sequencer needs a bus, a select line and an enable line")

	// ErrInvalidConfig indicates a bad register table or handshake word
	ErrInvalidConfig = errors.New("invalid sequencer configuration")
)
