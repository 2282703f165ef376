package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultBoardValid(t *testing.T) {
	if err := DefaultBoard().Validate(); err != nil {
		t.Fatalf("DefaultBoard().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Board)
		want   error
	}{
		{"no name", func(b *Board) { b.Name = "" }, ErrInvalidBoard},
		{"unknown transport", func(b *Board) { b.Transport = "ftdi" }, ErrUnknownTransport},
		{"ch341 speed", func(b *Board) { b.CH341Speed = 7 }, ErrInvalidBoard},
		{"rpi pins", func(b *Board) {
			b.Transport = TransportRPi
			b.RPi.EnablePin = b.RPi.SelectPin
		}, ErrInvalidBoard},
		{"rpi ok", func(b *Board) { b.Transport = TransportRPi }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBoard()
			tt.mutate(b)
			if err := b.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "boards", "bench.json")

	board := DefaultBoard()
	board.Name = "bench"
	board.Device = "#1"
	if err := SaveToFile(board, path); err != nil {
		t.Fatalf("SaveToFile() = %v", err)
	}
	if board.Created.IsZero() {
		t.Error("SaveToFile did not stamp Created")
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() = %v", err)
	}
	if loaded.Name != "bench" || loaded.Device != "#1" || loaded.Transport != TransportCH341 {
		t.Errorf("loaded %+v", loaded)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pi.json")
	data := []byte(`{"name": "pi", "transport": "rpi", "rpi": {"select_pin": "GPIO_8"}}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	board, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() = %v", err)
	}
	if board.RPi.SelectPin != "GPIO_8" {
		t.Errorf("SelectPin = %q", board.RPi.SelectPin)
	}
	if board.RPi.EnablePin == "" || board.RPi.SpeedHz == 0 {
		t.Errorf("defaults lost: %+v", board.RPi)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"name": "x", "transport": "uart"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); !errors.Is(err, ErrUnknownTransport) {
		t.Errorf("LoadFromFile() = %v", err)
	}
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file loaded")
	}
}

func TestGetBoardPath(t *testing.T) {
	if got := GetBoardPath("bench"); got != filepath.Join("etc", "boards", "bench.json") {
		t.Errorf("GetBoardPath() = %q", got)
	}
}

func TestResolveBoardPath(t *testing.T) {
	tests := []struct {
		arg  string
		want string
	}{
		{"bench", filepath.Join("etc", "boards", "bench.json")},
		{"bench.json", "bench.json"},
		{"./bench", "./bench"},
		{"/tmp/boards/pi.json", "/tmp/boards/pi.json"},
	}

	for _, tt := range tests {
		if got := ResolveBoardPath(tt.arg); got != tt.want {
			t.Errorf("ResolveBoardPath(%q) = %q, want %q", tt.arg, got, tt.want)
		}
	}
}

func TestResolvedBoardLoads(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	board := DefaultBoard()
	board.Name = "bench"
	if err := SaveToFile(board, ResolveBoardPath("bench")); err != nil {
		t.Fatalf("SaveToFile() = %v", err)
	}

	loaded, err := LoadFromFile(ResolveBoardPath("bench"))
	if err != nil {
		t.Fatalf("LoadFromFile() = %v", err)
	}
	if loaded.Name != "bench" {
		t.Errorf("Name = %q", loaded.Name)
	}
}
