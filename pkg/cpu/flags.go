package cpu

// Z80 flag bit positions in the F register.
const (
	FlagC uint8 = 0x01 // Carry
	FlagN uint8 = 0x02 // Subtract
	FlagP uint8 = 0x04 // Parity/Overflow
	FlagV       = FlagP // Overflow (same bit as Parity)
	Flag3 uint8 = 0x08 // Undocumented bit 3, never written
	FlagH uint8 = 0x10 // Half-carry
	Flag5 uint8 = 0x20 // Undocumented bit 5, never written
	FlagZ uint8 = 0x40 // Zero
	FlagS uint8 = 0x80 // Sign
)

// flagsAll covers every documented flag.
const flagsAll = FlagS | FlagZ | FlagH | FlagP | FlagN | FlagC

// Precomputed flag tables, ported from remogatto/z80 with bits 3 and 5 removed.
var (
	// SzTable: S and Z flags for each byte value
	SzTable [256]uint8
	// SzpTable: SzTable with the parity flag included
	SzpTable [256]uint8
	// ParityTable: parity flag for each byte value
	ParityTable [256]uint8

	// Half-carry and overflow lookup tables.
	// For 8-bit ops: index from bits 3 (and 7) of {arg1, arg2, result}.
	// For 16-bit ops (ADC/SBC HL): index from bits 11 and 15, same tables.
	HalfcarryAddTable = [8]uint8{0, FlagH, FlagH, FlagH, 0, 0, 0, FlagH}
	HalfcarrySubTable = [8]uint8{0, 0, FlagH, 0, FlagH, 0, FlagH, FlagH}
	OverflowAddTable  = [8]uint8{0, 0, 0, FlagV, FlagV, 0, 0, 0}
	OverflowSubTable  = [8]uint8{0, FlagV, 0, 0, 0, 0, FlagV, 0}
)

func init() {
	for i := 0; i < 256; i++ {
		SzTable[i] = uint8(i) & FlagS

		// Count parity (number of 1 bits)
		j := uint8(i)
		parity := uint8(0)
		for k := 0; k < 8; k++ {
			parity ^= j & 1
			j >>= 1
		}
		if parity == 0 {
			ParityTable[i] = FlagP
		}
		SzpTable[i] = SzTable[i] | ParityTable[i]
	}
	// Zero flag for value 0
	SzTable[0] |= FlagZ
	SzpTable[0] |= FlagZ
}

// putFlags replaces the flags selected by mask with the same bits of f.
// All bulk flag writes go through here, so bits outside the mask
// (always including 3 and 5) are left alone.
func (s *State) putFlags(mask, f uint8) {
	mask &= flagsAll
	s.Regs[fIdx] = s.Regs[fIdx]&^mask | f&mask
}

func (s *State) flag(m uint8) bool {
	return s.Regs[fIdx]&m != 0
}

func (s *State) setFlag(m uint8, on bool) {
	s.putFlags(m, bsel(on, m, 0))
}

// Sign reports the S flag.
func (s *State) Sign() bool { return s.flag(FlagS) }
func (s *State) SetSign(on bool) { s.setFlag(FlagS, on) }
func (s *State) Zero() bool { return s.flag(FlagZ) }
func (s *State) SetZero(on bool) { s.setFlag(FlagZ, on) }
func (s *State) HalfCarry() bool { return s.flag(FlagH) }
func (s *State) SetHalfCarry(on bool) { s.setFlag(FlagH, on) }

// ParityOverflow reports the P/V flag: parity for logical ops,
// signed overflow for arithmetic, BC != 0 for block ops, IFF2 for LD A,I.
func (s *State) ParityOverflow() bool { return s.flag(FlagP) }
func (s *State) SetParityOverflow(on bool) { s.setFlag(FlagP, on) }
func (s *State) AddSubtract() bool { return s.flag(FlagN) }
func (s *State) SetAddSubtract(on bool) { s.setFlag(FlagN, on) }
func (s *State) Carry() bool { return s.flag(FlagC) }
func (s *State) SetCarry(on bool) { s.setFlag(FlagC, on) }

// bsel returns a if cond is true, else b. Branchless flag selection.
func bsel(cond bool, a, b uint8) uint8 {
	if cond {
		return a
	}
	return b
}
