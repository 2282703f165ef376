package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SaveToFile writes the board as indented JSON, creating parent directories
func SaveToFile(board *Board, path string) error {
	if board.Created.IsZero() {
		board.Created = time.Now()
	}

	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(board, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// LoadFromFile reads a board file. Fields missing from the file keep
// their DefaultBoard values.
func LoadFromFile(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	board := DefaultBoard()
	if err := json.Unmarshal(data, board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if err := board.Validate(); err != nil {
		return nil, err
	}

	return board, nil
}

// GetBoardPath returns the default location of a named board file
func GetBoardPath(name string) string {
	return filepath.Join("etc", "boards", fmt.Sprintf("%s.json", name))
}

// ResolveBoardPath maps a -b argument to a file. A bare name such as
// "bench" means etc/boards/bench.json; anything with a directory or a
// .json extension is used as given.
func ResolveBoardPath(arg string) string {
	if filepath.Ext(arg) == ".json" || strings.ContainsRune(arg, '/') || strings.ContainsRune(arg, filepath.Separator) {
		return arg
	}
	return GetBoardPath(arg)
}
