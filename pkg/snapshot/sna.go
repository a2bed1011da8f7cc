package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oisee/z80emu/pkg/cpu"
	"github.com/oisee/z80emu/pkg/inst"
)

const (
	snaHeaderLen = 27
	snaRAMStart  = 0x4000
	snaRAMLen    = 0x10000 - snaRAMStart
)

var (
	// ErrROMInUse is returned when saving a state whose 0000h-3FFFh range
	// is not empty; .sna files only carry the 48K of RAM.
	ErrROMInUse = errors.New("non-zero byte in ROM area")
	// ErrSNASize is returned for a .sna file that is not 27+49152 bytes.
	ErrSNASize = errors.New("bad .sna size")
)

// SNA carries the Spectrum-specific parts of a .sna image.
type SNA struct {
	Border uint8
}

func alt(s *cpu.State, hi, lo inst.Reg) uint16 {
	return uint16(s.Reg(hi))<<8 | uint16(s.Reg(lo))
}

func setAlt(s *cpu.State, hi, lo inst.Reg, v uint16) {
	s.SetReg(hi, uint8(v>>8))
	s.SetReg(lo, uint8(v))
}

// WriteSNA writes s as a 48K .sna image. The format stores PC on the
// stack, so the written SP is two lower than s.SP and the two bytes below
// s.SP hold PC. s itself is not modified.
func WriteSNA(w io.Writer, s *cpu.State, meta SNA) error {
	for i := 0; i < snaRAMStart; i++ {
		if s.Mem[i] != 0 {
			return fmt.Errorf("%w: %02Xh at %04Xh", ErrROMInUse, s.Mem[i], i)
		}
	}
	sp := s.SP - 2

	bw := bufio.NewWriter(w)
	var writeErr error
	// write byte
	wb := func(b uint8) {
		if writeErr != nil {
			return
		}
		writeErr = bw.WriteByte(b)
	}
	// write word little-endian
	ww := func(u uint16) {
		wb(uint8(u))
		wb(uint8(u >> 8))
	}

	wb(s.I)
	for _, v := range []uint16{
		alt(s, inst.H2, inst.L2), alt(s, inst.D2, inst.E2), alt(s, inst.B2, inst.C2), alt(s, inst.A2, inst.F2),
		s.Wide(inst.HL), s.Wide(inst.DE), s.Wide(inst.BC), s.IY, s.IX,
	} {
		ww(v)
	}
	var interrupt uint8
	if s.IFF2 {
		interrupt |= 0x4
	}
	wb(interrupt)
	wb(s.R)
	ww(s.Wide(inst.AF))
	ww(sp)
	wb(s.IM)
	wb(meta.Border)
	if writeErr != nil {
		return fmt.Errorf("write .sna header: %w", writeErr)
	}

	for i := snaRAMStart; i < 0x10000; i++ {
		addr := uint16(i)
		switch addr {
		case sp:
			wb(uint8(s.PC))
		case sp + 1:
			wb(uint8(s.PC >> 8))
		default:
			wb(s.Mem[addr])
		}
	}
	if writeErr != nil {
		return fmt.Errorf("write .sna memory: %w", writeErr)
	}
	return bw.Flush()
}

// ReadSNA loads a 48K .sna image. PC is popped off the stored stack,
// as a RETN at the end of loading would do.
func ReadSNA(r io.Reader) (*cpu.State, SNA, error) {
	buf := make([]byte, snaHeaderLen+snaRAMLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, SNA{}, fmt.Errorf("%w: %v", ErrSNASize, err)
	}
	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return nil, SNA{}, fmt.Errorf("%w: trailing data", ErrSNASize)
	}

	h := buf[:snaHeaderLen]
	word := func(off int) uint16 { return uint16(h[off]) | uint16(h[off+1])<<8 }

	s := cpu.New()
	s.I = h[0]
	setAlt(s, inst.H2, inst.L2, word(1))
	setAlt(s, inst.D2, inst.E2, word(3))
	setAlt(s, inst.B2, inst.C2, word(5))
	setAlt(s, inst.A2, inst.F2, word(7))
	s.SetWide(inst.HL, word(9))
	s.SetWide(inst.DE, word(11))
	s.SetWide(inst.BC, word(13))
	s.IY = word(15)
	s.IX = word(17)
	s.IFF2 = h[19]&0x4 != 0
	s.IFF1 = s.IFF2
	s.R = h[20]
	s.SetWide(inst.AF, word(21))
	s.SP = word(23)
	s.IM = h[25] & 3
	meta := SNA{Border: h[26] & 7}

	copy(s.Mem[snaRAMStart:], buf[snaHeaderLen:])
	s.PC = s.Pop()
	return s, meta, nil
}

// SaveSNA writes s to the named .sna file.
func SaveSNA(path string, s *cpu.State, meta SNA) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteSNA(f, s, meta); err != nil {
		f.Close()
		return fmt.Errorf("failed to write SNA file %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close SNA file %q: %w", path, err)
	}
	return nil
}

// LoadSNA reads the named .sna file.
func LoadSNA(path string) (*cpu.State, SNA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, SNA{}, err
	}
	defer f.Close()
	return ReadSNA(f)
}
