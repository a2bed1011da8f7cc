// Package snapshot saves and restores complete machine states, either in
// the native gob format or as ZX Spectrum 48K .sna images.
package snapshot

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oisee/z80emu/pkg/cpu"
	"github.com/oisee/z80emu/pkg/inst"
)

// imageVersion is bumped whenever Image changes shape.
const imageVersion = 1

// ErrVersion is returned when loading an image written by a different version.
var ErrVersion = errors.New("unsupported snapshot version")

// Image holds everything needed to resume a machine. The port device
// is not part of it.
type Image struct {
	Version        int
	Regs           [inst.RegCount]uint8
	I, R           uint8
	IX, IY, SP, PC uint16
	IFF1, IFF2     bool
	IM             uint8
	Halted         bool
	Mem            []byte
}

// Capture copies s into a new Image.
func Capture(s *cpu.State) *Image {
	img := &Image{
		Version: imageVersion,
		Regs:    s.Regs,
		I:       s.I,
		R:       s.R,
		IX:      s.IX,
		IY:      s.IY,
		SP:      s.SP,
		PC:      s.PC,
		IFF1:    s.IFF1,
		IFF2:    s.IFF2,
		IM:      s.IM,
		Halted:  s.Halted,
		Mem:     make([]byte, len(s.Mem)),
	}
	copy(img.Mem, s.Mem[:])
	return img
}

// Restore overwrites s with the image. s.Ports is left as is.
func (img *Image) Restore(s *cpu.State) {
	s.Regs = img.Regs
	s.I, s.R = img.I, img.R
	s.IX, s.IY, s.SP, s.PC = img.IX, img.IY, img.SP, img.PC
	s.IFF1, s.IFF2 = img.IFF1, img.IFF2
	s.IM = img.IM
	s.Halted = img.Halted
	s.Mem = [65536]uint8{}
	copy(s.Mem[:], img.Mem)
}

// Encode writes s to w in gob format.
func Encode(w io.Writer, s *cpu.State) error {
	return gob.NewEncoder(w).Encode(Capture(s))
}

// Decode reads a gob image from r into a new state.
func Decode(r io.Reader) (*cpu.State, error) {
	var img Image
	if err := gob.NewDecoder(r).Decode(&img); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if img.Version != imageVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, img.Version)
	}
	s := cpu.New()
	img.Restore(s)
	return s, nil
}

// Save writes machine state to a file.
func Save(path string, s *cpu.State) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, s); err != nil {
		f.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	return f.Close()
}

// Load reads machine state from a file.
func Load(path string) (*cpu.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
