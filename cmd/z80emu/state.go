package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oisee/z80emu/pkg/cpu"
	"github.com/oisee/z80emu/pkg/inst"
	"github.com/oisee/z80emu/pkg/snapshot"
)

func isSNA(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".sna")
}

// loadState reads a snapshot, picking the format by extension.
func loadState(path string) (*cpu.State, error) {
	if isSNA(path) {
		s, meta, err := snapshot.LoadSNA(path)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"path": path, "border": meta.Border}).Debug("loaded .sna")
		return s, nil
	}
	return snapshot.Load(path)
}

func saveState(path string, s *cpu.State) error {
	if isSNA(path) {
		return snapshot.SaveSNA(path, s, snapshot.SNA{Border: 7})
	}
	return snapshot.Save(path, s)
}

func printRegs(s *cpu.State) {
	fmt.Printf("  AF=%04X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X SP=%04X PC=%04X\n",
		s.Wide(inst.AF), s.Wide(inst.BC), s.Wide(inst.DE), s.Wide(inst.HL),
		s.IX, s.IY, s.SP, s.PC)
	fmt.Printf("  AF'=%02X%02X BC'=%02X%02X DE'=%02X%02X HL'=%02X%02X I=%02X R=%02X IM=%d IFF1=%t\n",
		s.Reg(inst.A2), s.Reg(inst.F2), s.Reg(inst.B2), s.Reg(inst.C2),
		s.Reg(inst.D2), s.Reg(inst.E2), s.Reg(inst.H2), s.Reg(inst.L2),
		s.I, s.R, s.IM, s.IFF1)
	f := s.Reg(inst.F)
	flags := []byte("SZ-H-PNC")
	for i := range flags {
		if f&(0x80>>i) == 0 {
			flags[i] = '-'
		}
	}
	fmt.Printf("  Flags: %s\n", flags)
}

// portLog is the port device for the run command: writes are logged,
// reads see a floating bus.
type portLog struct {
	log logrus.FieldLogger
}

func (p *portLog) In(port uint16) uint8 {
	p.log.WithField("port", fmt.Sprintf("%04X", port)).Debug("in")
	return 0xFF
}

func (p *portLog) Out(port uint16, v uint8) {
	p.log.WithFields(logrus.Fields{
		"port":  fmt.Sprintf("%04X", port),
		"value": fmt.Sprintf("%02X", v),
	}).Info("out")
}

// memReader reads bytes from memory, wrapping at 64 KiB.
type memReader struct {
	mem  *[65536]uint8
	addr uint16
}

func (r *memReader) ReadByte() (byte, error) {
	b := r.mem[r.addr]
	r.addr++
	return b, nil
}
