package lmx2594

import "errors"

// Register model errors
var (
	// ErrEmptyTable indicates a register table with no entries
	ErrEmptyTable = errors.New("register table is empty")

	// ErrTableTooLarge indicates more entries than 7-bit addresses
	ErrTableTooLarge = errors.New("register table exceeds address space")

	// ErrInvalidWord indicates a word with bits above bit 23 or the read bit set
	ErrInvalidWord = errors.New("register word is not a 24-bit write")

	// ErrAddressMismatch indicates a word stored at the wrong index
	ErrAddressMismatch = errors.New("register address does not match table index")
)
