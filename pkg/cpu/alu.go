package cpu

import "github.com/oisee/z80emu/pkg/inst"

// --- ALU helpers, ported from remogatto/z80 ---

// add implements ADD/ADC A: carry is 0 or 1.
func (s *State) add(value, carry uint8) {
	a := s.Reg(inst.A)
	sum := uint16(a) + uint16(value) + uint16(carry)
	lookup := ((a & 0x88) >> 3) | ((value & 0x88) >> 2) | uint8((sum&0x88)>>1)
	r := uint8(sum)
	s.SetReg(inst.A, r)
	s.putFlags(flagsAll, bsel(sum&0x100 != 0, FlagC, 0)|
		HalfcarryAddTable[lookup&0x07]|
		OverflowAddTable[lookup>>4]|
		SzTable[r])
}

// sub implements SUB/SBC A and CP. The incoming carry is part of the
// subtraction itself, so H, V and C see a - value - carry as one step.
// CP passes store=false and keeps A.
func (s *State) sub(value, carry uint8, store bool) {
	a := s.Reg(inst.A)
	diff := uint16(a) - uint16(value) - uint16(carry)
	lookup := ((a & 0x88) >> 3) | ((value & 0x88) >> 2) | uint8((diff&0x88)>>1)
	r := uint8(diff)
	if store {
		s.SetReg(inst.A, r)
	}
	s.putFlags(flagsAll, bsel(diff&0x100 != 0, FlagC, 0)|FlagN|
		HalfcarrySubTable[lookup&0x07]|
		OverflowSubTable[lookup>>4]|
		SzTable[r])
}

func (s *State) and(value uint8) {
	r := s.Reg(inst.A) & value
	s.SetReg(inst.A, r)
	s.putFlags(flagsAll, FlagH|SzpTable[r])
}

func (s *State) or(value uint8) {
	r := s.Reg(inst.A) | value
	s.SetReg(inst.A, r)
	s.putFlags(flagsAll, SzpTable[r])
}

func (s *State) xor(value uint8) {
	r := s.Reg(inst.A) ^ value
	s.SetReg(inst.A, r)
	s.putFlags(flagsAll, SzpTable[r])
}

// alu dispatches one of the eight accumulator operations in opcode order.
func (s *State) alu(op int, value uint8) {
	switch op {
	case 0:
		s.add(value, 0)
	case 1:
		s.add(value, s.Reg(inst.F)&FlagC)
	case 2:
		s.sub(value, 0, true)
	case 3:
		s.sub(value, s.Reg(inst.F)&FlagC, true)
	case 4:
		s.and(value)
	case 5:
		s.xor(value)
	case 6:
		s.or(value)
	default:
		s.sub(value, 0, false)
	}
}

// inc returns v+1. C is preserved.
func (s *State) inc(v uint8) uint8 {
	v++
	s.putFlags(flagsAll&^FlagC,
		bsel(v == 0x80, FlagV, 0)|
			bsel(v&0x0F != 0, 0, FlagH)|
			SzTable[v])
	return v
}

// dec returns v-1. C is preserved.
func (s *State) dec(v uint8) uint8 {
	f := bsel(v&0x0F != 0, 0, FlagH) | FlagN | bsel(v == 0x80, FlagV, 0)
	v--
	s.putFlags(flagsAll&^FlagC, f|SzTable[v])
	return v
}

func (s *State) daa() {
	a := s.Reg(inst.A)
	var add, carry uint8
	carry = s.Reg(inst.F) & FlagC
	if s.HalfCarry() || (a&0x0F) > 9 {
		add = 6
	}
	if carry != 0 || a > 0x99 {
		add |= 0x60
	}
	if a > 0x99 {
		carry = FlagC
	}
	if s.AddSubtract() {
		s.sub(add, 0, true)
	} else {
		s.add(add, 0)
	}
	s.putFlags(FlagC|FlagP, carry|ParityTable[s.Reg(inst.A)])
}

// CB-prefix rotate/shift helpers (return the new value)

func (s *State) rlc(v uint8) uint8 {
	v = (v << 1) | (v >> 7)
	s.putFlags(flagsAll, (v&FlagC)|SzpTable[v])
	return v
}

func (s *State) rrc(v uint8) uint8 {
	c := v & FlagC
	v = (v >> 1) | (v << 7)
	s.putFlags(flagsAll, c|SzpTable[v])
	return v
}

func (s *State) rl(v uint8) uint8 {
	c := v >> 7
	v = (v << 1) | (s.Reg(inst.F) & FlagC)
	s.putFlags(flagsAll, c|SzpTable[v])
	return v
}

func (s *State) rr(v uint8) uint8 {
	c := v & FlagC
	v = (v >> 1) | (s.Reg(inst.F) << 7)
	s.putFlags(flagsAll, c|SzpTable[v])
	return v
}

func (s *State) sla(v uint8) uint8 {
	c := v >> 7
	v <<= 1
	s.putFlags(flagsAll, c|SzpTable[v])
	return v
}

func (s *State) sra(v uint8) uint8 {
	c := v & FlagC
	v = (v & 0x80) | (v >> 1)
	s.putFlags(flagsAll, c|SzpTable[v])
	return v
}

func (s *State) srl(v uint8) uint8 {
	c := v & FlagC
	v >>= 1
	s.putFlags(flagsAll, c|SzpTable[v])
	return v
}

// rotAcc implements RLCA/RRCA/RLA/RRA: same rotation as the CB forms,
// but only H, N and C change.
func (s *State) rotAcc(rot func(uint8) uint8) {
	saved := s.Reg(inst.F)
	r := rot(s.Reg(inst.A))
	c := s.Reg(inst.F) & FlagC
	s.Regs[fIdx] = saved
	s.SetReg(inst.A, r)
	s.putFlags(FlagH|FlagN|FlagC, c)
}

// bit implements BIT n: Z (and P) when the bit is clear, S when bit 7
// is tested and set, H=1, N=0, C preserved.
func (s *State) bit(v, n uint8) {
	f := FlagH
	if v&(1<<(n&7)) == 0 {
		f |= FlagP | FlagZ
	}
	if n == 7 && v&0x80 != 0 {
		f |= FlagS
	}
	s.putFlags(flagsAll&^FlagC, f)
}

// add16 implements ADD HL/IX/IY, rr: H from bit 11, N=0, C from bit 15.
// S, Z and P/V are preserved.
func (s *State) add16(a, b uint16) uint16 {
	result := uint32(a) + uint32(b)
	hc := (a & 0x0FFF) + (b & 0x0FFF)
	s.putFlags(FlagH|FlagN|FlagC,
		bsel(hc&0x1000 != 0, FlagH, 0)|
			bsel(result&0x10000 != 0, FlagC, 0))
	return uint16(result)
}

// adc16 implements ADC HL, rr with full flags.
func (s *State) adc16(value uint16) {
	hl := s.Wide(inst.HL)
	carry := uint(s.Reg(inst.F) & FlagC)
	result := uint(hl) + uint(value) + carry
	// Lookup: bits 11 and 15 of hl, value, result → 3-bit index for half-carry, 3-bit for overflow
	lookup := byte(((uint(hl) & 0x8800) >> 11) | ((uint(value) & 0x8800) >> 10) | ((result & 0x8800) >> 9))
	r := uint16(result)
	s.SetWide(inst.HL, r)
	s.putFlags(flagsAll, bsel(result&0x10000 != 0, FlagC, 0)|
		OverflowAddTable[lookup>>4]|
		(uint8(r>>8)&FlagS)|
		HalfcarryAddTable[lookup&0x07]|
		bsel(r != 0, 0, FlagZ))
}

// sbc16 implements SBC HL, rr with full flags.
func (s *State) sbc16(value uint16) {
	hl := s.Wide(inst.HL)
	carry := uint(s.Reg(inst.F) & FlagC)
	result := uint(hl) - uint(value) - carry
	lookup := byte(((uint(hl) & 0x8800) >> 11) | ((uint(value) & 0x8800) >> 10) | ((result & 0x8800) >> 9))
	r := uint16(result)
	s.SetWide(inst.HL, r)
	s.putFlags(flagsAll, bsel(result&0x10000 != 0, FlagC, 0)|
		FlagN|
		OverflowSubTable[lookup>>4]|
		(uint8(r>>8)&FlagS)|
		HalfcarrySubTable[lookup&0x07]|
		bsel(r != 0, 0, FlagZ))
}
