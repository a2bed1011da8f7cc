package cpu

import "github.com/oisee/z80emu/pkg/inst"

// IO is a port device. Ports are 16 bits wide: the high byte carries A
// for IN A,(n) / OUT (n),A and B for the (C) forms.
type IO interface {
	In(port uint16) uint8
	Out(port uint16, v uint8)
}

// State is the whole machine: register file, special registers,
// 64 KiB of memory and the interrupt flip-flops.
//
// The zero value is the power-on state. State is not safe for concurrent
// use; callers that inspect it from another goroutine must synchronize.
type State struct {
	Regs           [inst.RegCount]uint8 // indexed by inst.Reg.Index()
	I, R           uint8
	IX, IY, SP, PC uint16
	Mem            [65536]uint8
	IFF1, IFF2     bool

	IM     uint8 // interrupt mode 0, 1 or 2
	Halted bool  // set by HALT
	Ports  IO    // nil: reads return 0xFF, writes are dropped
}

var fIdx = inst.F.Index()

// New returns a zeroed machine.
func New() *State {
	return &State{}
}

// Reg returns the value of an 8-bit register.
func (s *State) Reg(r inst.Reg) uint8 {
	return s.Regs[r.Index()]
}

// SetReg stores v in an 8-bit register.
func (s *State) SetReg(r inst.Reg, v uint8) {
	s.Regs[r.Index()] = v
}

// Wide returns a 16-bit register. Pairs are big-endian: B is the high
// byte of BC.
func (s *State) Wide(rr inst.BigReg) uint16 {
	switch rr {
	case inst.SP:
		return s.SP
	case inst.IX:
		return s.IX
	case inst.IY:
		return s.IY
	}
	hi, lo, _ := rr.Pair()
	return uint16(s.Reg(hi))<<8 | uint16(s.Reg(lo))
}

// SetWide stores v in a 16-bit register.
func (s *State) SetWide(rr inst.BigReg, v uint16) {
	switch rr {
	case inst.SP:
		s.SP = v
		return
	case inst.IX:
		s.IX = v
		return
	case inst.IY:
		s.IY = v
		return
	}
	hi, lo, _ := rr.Pair()
	s.SetReg(hi, uint8(v>>8))
	s.SetReg(lo, uint8(v))
}

// Read16 reads a little-endian word; addr+1 wraps at 64 KiB.
func (s *State) Read16(addr uint16) uint16 {
	return uint16(s.Mem[addr]) | uint16(s.Mem[addr+1])<<8
}

// Write16 writes a little-endian word; addr+1 wraps at 64 KiB.
func (s *State) Write16(addr, v uint16) {
	s.Mem[addr] = uint8(v)
	s.Mem[addr+1] = uint8(v >> 8)
}

// Push decrements SP by two, then writes v at the new SP.
func (s *State) Push(v uint16) {
	s.SP -= 2
	s.Write16(s.SP, v)
}

// Pop reads the word at SP, then increments SP by two.
func (s *State) Pop() uint16 {
	v := s.Read16(s.SP)
	s.SP += 2
	return v
}

// IndexAddr returns x+d with 16-bit wraparound.
func (s *State) IndexAddr(x inst.BigReg, d int8) uint16 {
	return s.Wide(x) + uint16(int16(d))
}

func (s *State) in(port uint16) uint8 {
	if s.Ports == nil {
		return 0xFF
	}
	return s.Ports.In(port)
}

func (s *State) out(port uint16, v uint8) {
	if s.Ports != nil {
		s.Ports.Out(port, v)
	}
}

// Equal returns true if two states have the same registers and memory.
// The attached port device is not compared.
func (s *State) Equal(o *State) bool {
	a, b := *s, *o
	a.Ports, b.Ports = nil, nil
	return a == b
}
