package cpu

import (
	"fmt"

	"github.com/oisee/z80emu/pkg/inst"
)

// Exec executes a single instruction on the given state.
// The state is modified in place. PC must already point past the
// instruction; jumps, calls, returns and RST overwrite it.
// Repeating block instructions run until they finish.
func Exec(s *State, in inst.Instruction) {
	hl := s.Wide(inst.HL)

	switch in.Op {
	case inst.UNKNOWN, inst.NOP:
		// no effect

	// === 8-bit loads ===
	case inst.LD_R8_R8:
		s.SetReg(in.R, s.Reg(in.R2))
	case inst.LD_R8_N:
		s.SetReg(in.R, in.N)
	case inst.LD_R8_HLI:
		s.SetReg(in.R, s.Mem[hl])
	case inst.LD_R8_IDXD:
		s.SetReg(in.R, s.Mem[s.IndexAddr(in.X, in.D)])
	case inst.LD_HLI_R8:
		s.Mem[hl] = s.Reg(in.R)
	case inst.LD_IDXD_R8:
		s.Mem[s.IndexAddr(in.X, in.D)] = s.Reg(in.R)
	case inst.LD_HLI_N:
		s.Mem[hl] = in.N
	case inst.LD_IDXD_N:
		s.Mem[s.IndexAddr(in.X, in.D)] = in.N
	case inst.LD_A_BCI:
		s.SetReg(inst.A, s.Mem[s.Wide(inst.BC)])
	case inst.LD_A_DEI:
		s.SetReg(inst.A, s.Mem[s.Wide(inst.DE)])
	case inst.LD_A_NNI:
		s.SetReg(inst.A, s.Mem[in.NN])
	case inst.LD_BCI_A:
		s.Mem[s.Wide(inst.BC)] = s.Reg(inst.A)
	case inst.LD_DEI_A:
		s.Mem[s.Wide(inst.DE)] = s.Reg(inst.A)
	case inst.LD_NNI_A:
		s.Mem[in.NN] = s.Reg(inst.A)
	case inst.LD_A_I:
		s.loadSpecial(s.I)
	case inst.LD_A_R:
		s.loadSpecial(s.R)
	case inst.LD_I_A:
		s.I = s.Reg(inst.A)
	case inst.LD_R_A:
		s.R = s.Reg(inst.A)

	// === 16-bit loads and stack ===
	case inst.LD_RR_NN:
		s.SetWide(in.RR, in.NN)
	case inst.LD_IDX_NN:
		s.SetWide(in.X, in.NN)
	case inst.LD_HL_NNI:
		s.SetWide(inst.HL, s.Read16(in.NN))
	case inst.LD_RR_NNI:
		s.SetWide(in.RR, s.Read16(in.NN))
	case inst.LD_IDX_NNI:
		s.SetWide(in.X, s.Read16(in.NN))
	case inst.LD_NNI_HL:
		s.Write16(in.NN, hl)
	case inst.LD_NNI_RR:
		s.Write16(in.NN, s.Wide(in.RR))
	case inst.LD_NNI_IDX:
		s.Write16(in.NN, s.Wide(in.X))
	case inst.LD_SP_HL:
		s.SP = hl
	case inst.LD_SP_IDX:
		s.SP = s.Wide(in.X)
	case inst.PUSH_RR:
		s.Push(s.Wide(in.RR))
	case inst.PUSH_IDX:
		s.Push(s.Wide(in.X))
	case inst.POP_RR:
		s.SetWide(in.RR, s.Pop())
	case inst.POP_IDX:
		s.SetWide(in.X, s.Pop())

	// === Exchange ===
	case inst.EX_DE_HL:
		s.SetWide(inst.HL, s.Wide(inst.DE))
		s.SetWide(inst.DE, hl)
	case inst.EX_AF_AF:
		s.swap(inst.A, inst.A2)
		s.swap(inst.F, inst.F2)
	case inst.EXX:
		for _, r := range [...]inst.Reg{inst.B, inst.C, inst.D, inst.E, inst.H, inst.L} {
			s.swap(r, r+inst.A2)
		}
	case inst.EX_SPI_HL:
		s.SetWide(inst.HL, s.Read16(s.SP))
		s.Write16(s.SP, hl)
	case inst.EX_SPI_IDX:
		v := s.Wide(in.X)
		s.SetWide(in.X, s.Read16(s.SP))
		s.Write16(s.SP, v)

	// === Block transfer and search ===
	case inst.LDI:
		s.blockLoad(1)
	case inst.LDD:
		s.blockLoad(-1)
	case inst.LDIR:
		for s.blockLoad(1) {
		}
	case inst.LDDR:
		for s.blockLoad(-1) {
		}
	case inst.CPI:
		s.blockCompare(1)
	case inst.CPD:
		s.blockCompare(-1)
	case inst.CPIR:
		for s.blockCompare(1) {
		}
	case inst.CPDR:
		for s.blockCompare(-1) {
		}

	// === 8-bit arithmetic and logic ===
	case inst.ADD_A_R8, inst.ADC_A_R8, inst.SUB_R8, inst.SBC_A_R8,
		inst.AND_R8, inst.XOR_R8, inst.OR_R8, inst.CP_R8:
		s.alu(aluIndex(in.Op), s.Reg(in.R))
	case inst.ADD_A_N, inst.ADC_A_N, inst.SUB_N, inst.SBC_A_N,
		inst.AND_N, inst.XOR_N, inst.OR_N, inst.CP_N:
		s.alu(aluIndex(in.Op), in.N)
	case inst.ADD_A_HLI, inst.ADC_A_HLI, inst.SUB_HLI, inst.SBC_A_HLI,
		inst.AND_HLI, inst.XOR_HLI, inst.OR_HLI, inst.CP_HLI:
		s.alu(aluIndex(in.Op), s.Mem[hl])
	case inst.ADD_A_IDXD, inst.ADC_A_IDXD, inst.SUB_IDXD, inst.SBC_A_IDXD,
		inst.AND_IDXD, inst.XOR_IDXD, inst.OR_IDXD, inst.CP_IDXD:
		s.alu(aluIndex(in.Op), s.Mem[s.IndexAddr(in.X, in.D)])
	case inst.INC_R8:
		s.SetReg(in.R, s.inc(s.Reg(in.R)))
	case inst.INC_HLI:
		s.Mem[hl] = s.inc(s.Mem[hl])
	case inst.INC_IDXD:
		addr := s.IndexAddr(in.X, in.D)
		s.Mem[addr] = s.inc(s.Mem[addr])
	case inst.DEC_R8:
		s.SetReg(in.R, s.dec(s.Reg(in.R)))
	case inst.DEC_HLI:
		s.Mem[hl] = s.dec(s.Mem[hl])
	case inst.DEC_IDXD:
		addr := s.IndexAddr(in.X, in.D)
		s.Mem[addr] = s.dec(s.Mem[addr])

	// === General purpose and CPU control ===
	case inst.DAA:
		s.daa()
	case inst.CPL:
		s.SetReg(inst.A, ^s.Reg(inst.A))
		s.putFlags(FlagH|FlagN, FlagH|FlagN)
	case inst.NEG:
		v := s.Reg(inst.A)
		s.SetReg(inst.A, 0)
		s.sub(v, 0, true)
	case inst.CCF:
		c := s.Carry()
		s.putFlags(FlagH|FlagN|FlagC, bsel(c, FlagH, FlagC))
	case inst.SCF:
		s.putFlags(FlagH|FlagN|FlagC, FlagC)
	case inst.HALT:
		s.Halted = true
	case inst.DI:
		s.IFF1, s.IFF2 = false, false
	case inst.EI:
		s.IFF1, s.IFF2 = true, true
	case inst.IM0:
		s.IM = 0
	case inst.IM1:
		s.IM = 1
	case inst.IM2:
		s.IM = 2

	// === 16-bit arithmetic ===
	case inst.ADD_HL_RR:
		s.SetWide(inst.HL, s.add16(hl, s.Wide(in.RR)))
	case inst.ADC_HL_RR:
		s.adc16(s.Wide(in.RR))
	case inst.SBC_HL_RR:
		s.sbc16(s.Wide(in.RR))
	case inst.ADD_IDX_RR:
		s.SetWide(in.X, s.add16(s.Wide(in.X), s.Wide(in.RR)))
	case inst.INC_RR:
		s.SetWide(in.RR, s.Wide(in.RR)+1)
	case inst.INC_IDX:
		s.SetWide(in.X, s.Wide(in.X)+1)
	case inst.DEC_RR:
		s.SetWide(in.RR, s.Wide(in.RR)-1)
	case inst.DEC_IDX:
		s.SetWide(in.X, s.Wide(in.X)-1)

	// === Rotate and shift ===
	case inst.RLCA:
		s.rotAcc(s.rlc)
	case inst.RLA:
		s.rotAcc(s.rl)
	case inst.RRCA:
		s.rotAcc(s.rrc)
	case inst.RRA:
		s.rotAcc(s.rr)
	case inst.RLC_R8, inst.RRC_R8, inst.RL_R8, inst.RR_R8,
		inst.SLA_R8, inst.SRA_R8, inst.SRL_R8:
		s.SetReg(in.R, s.rotFor(in.Op)(s.Reg(in.R)))
	case inst.RLC_HLI, inst.RRC_HLI, inst.RL_HLI, inst.RR_HLI,
		inst.SLA_HLI, inst.SRA_HLI, inst.SRL_HLI:
		s.Mem[hl] = s.rotFor(in.Op)(s.Mem[hl])
	case inst.RLC_IDXD, inst.RRC_IDXD, inst.RL_IDXD, inst.RR_IDXD,
		inst.SLA_IDXD, inst.SRA_IDXD, inst.SRL_IDXD:
		addr := s.IndexAddr(in.X, in.D)
		s.Mem[addr] = s.rotFor(in.Op)(s.Mem[addr])
	case inst.RLD:
		m, a := s.Mem[hl], s.Reg(inst.A)
		s.Mem[hl] = m<<4 | a&0x0F
		s.digitResult(a&0xF0 | m>>4)
	case inst.RRD:
		m, a := s.Mem[hl], s.Reg(inst.A)
		s.Mem[hl] = a<<4 | m>>4
		s.digitResult(a&0xF0 | m&0x0F)

	// === Bit set, reset and test ===
	case inst.BIT_B_R8:
		s.bit(s.Reg(in.R), in.Bit)
	case inst.BIT_B_HLI:
		s.bit(s.Mem[hl], in.Bit)
	case inst.BIT_B_IDXD:
		s.bit(s.Mem[s.IndexAddr(in.X, in.D)], in.Bit)
	case inst.SET_B_R8:
		s.SetReg(in.R, s.Reg(in.R)|mask(in.Bit))
	case inst.SET_B_HLI:
		s.Mem[hl] |= mask(in.Bit)
	case inst.SET_B_IDXD:
		s.Mem[s.IndexAddr(in.X, in.D)] |= mask(in.Bit)
	case inst.RES_B_R8:
		s.SetReg(in.R, s.Reg(in.R)&^mask(in.Bit))
	case inst.RES_B_HLI:
		s.Mem[hl] &^= mask(in.Bit)
	case inst.RES_B_IDXD:
		s.Mem[s.IndexAddr(in.X, in.D)] &^= mask(in.Bit)

	// === Jump, call and return ===
	case inst.JP_NN:
		s.PC = in.NN
	case inst.JP_CC_NN:
		if s.cond(in.Cond) {
			s.PC = in.NN
		}
	case inst.JR_E:
		s.PC += uint16(int16(in.D))
	case inst.JR_CC_E:
		if s.cond(in.Cond) {
			s.PC += uint16(int16(in.D))
		}
	case inst.JP_HLI:
		s.PC = hl
	case inst.JP_IDX:
		s.PC = s.Wide(in.X)
	case inst.DJNZ_E:
		b := s.Reg(inst.B) - 1
		s.SetReg(inst.B, b)
		if b != 0 {
			s.PC += uint16(int16(in.D))
		}
	case inst.CALL_NN:
		s.Push(s.PC)
		s.PC = in.NN
	case inst.CALL_CC_NN:
		if s.cond(in.Cond) {
			s.Push(s.PC)
			s.PC = in.NN
		}
	case inst.RET, inst.RETI:
		s.PC = s.Pop()
	case inst.RET_CC:
		if s.cond(in.Cond) {
			s.PC = s.Pop()
		}
	case inst.RETN:
		s.PC = s.Pop()
		s.IFF1 = s.IFF2
	case inst.RST_P:
		s.Push(s.PC)
		s.PC = uint16(in.N)

	// === Input and output ===
	case inst.IN_A_N:
		a := s.Reg(inst.A)
		s.SetReg(inst.A, s.in(uint16(a)<<8|uint16(in.N)))
	case inst.IN_R8_C:
		v := s.in(s.Wide(inst.BC))
		s.SetReg(in.R, v)
		s.putFlags(flagsAll&^FlagC, SzpTable[v])
	case inst.OUT_N_A:
		a := s.Reg(inst.A)
		s.out(uint16(a)<<8|uint16(in.N), a)
	case inst.OUT_C_R8:
		s.out(s.Wide(inst.BC), s.Reg(in.R))
	case inst.INI:
		s.blockIn(1)
	case inst.IND:
		s.blockIn(-1)
	case inst.INIR:
		for s.blockIn(1) {
		}
	case inst.INDR:
		for s.blockIn(-1) {
		}
	case inst.OUTI:
		s.blockOut(1)
	case inst.OUTD:
		s.blockOut(-1)
	case inst.OTIR:
		for s.blockOut(1) {
		}
	case inst.OTDR:
		for s.blockOut(-1) {
		}

	default:
		panic(fmt.Sprintf("unhandled opcode in Exec: %d", in.Op))
	}
}

func mask(bit uint8) uint8 {
	return 1 << (bit & 7)
}

func (s *State) swap(a, b inst.Reg) {
	s.Regs[a.Index()], s.Regs[b.Index()] = s.Regs[b.Index()], s.Regs[a.Index()]
}

// loadSpecial implements LD A,I and LD A,R: P/V copies IFF2.
func (s *State) loadSpecial(v uint8) {
	s.SetReg(inst.A, v)
	s.putFlags(flagsAll&^FlagC, SzTable[v]|bsel(s.IFF2, FlagP, 0))
}

// digitResult stores the RLD/RRD accumulator and sets S, Z, P; H=N=0.
func (s *State) digitResult(a uint8) {
	s.SetReg(inst.A, a)
	s.putFlags(flagsAll&^FlagC, SzpTable[a])
}

func (s *State) cond(cc inst.Condition) bool {
	switch cc {
	case inst.NZ:
		return !s.Zero()
	case inst.Z:
		return s.Zero()
	case inst.NC:
		return !s.Carry()
	case inst.CY:
		return s.Carry()
	case inst.PO:
		return !s.ParityOverflow()
	case inst.PE:
		return s.ParityOverflow()
	case inst.P:
		return !s.Sign()
	}
	return s.Sign()
}

// blockLoad performs one LDI (step 1) or LDD (step -1) and reports
// whether a repeating form should go on.
func (s *State) blockLoad(step int16) bool {
	hl, de := s.Wide(inst.HL), s.Wide(inst.DE)
	s.Mem[de] = s.Mem[hl]
	s.SetWide(inst.HL, hl+uint16(step))
	s.SetWide(inst.DE, de+uint16(step))
	bc := s.Wide(inst.BC) - 1
	s.SetWide(inst.BC, bc)
	s.putFlags(FlagH|FlagP|FlagN, bsel(bc != 0, FlagP, 0))
	return bc != 0
}

// blockCompare performs one CPI or CPD: S, Z and H come from A-(HL),
// P/V is BC != 0, N=1, C is preserved. A repeating form stops on a
// match or when BC runs out.
func (s *State) blockCompare(step int16) bool {
	hl := s.Wide(inst.HL)
	a, v := s.Reg(inst.A), s.Mem[hl]
	r := a - v
	s.SetWide(inst.HL, hl+uint16(step))
	bc := s.Wide(inst.BC) - 1
	s.SetWide(inst.BC, bc)
	s.putFlags(flagsAll&^FlagC, SzTable[r]|FlagN|
		bsel((a&0x0F) < (v&0x0F), FlagH, 0)|
		bsel(bc != 0, FlagP, 0))
	return bc != 0 && r != 0
}

// blockIn performs one INI or IND: Z when B reaches 0, N=1.
func (s *State) blockIn(step int16) bool {
	hl := s.Wide(inst.HL)
	s.Mem[hl] = s.in(s.Wide(inst.BC))
	s.SetWide(inst.HL, hl+uint16(step))
	b := s.Reg(inst.B) - 1
	s.SetReg(inst.B, b)
	s.putFlags(FlagZ|FlagN, bsel(b == 0, FlagZ, 0)|FlagN)
	return b != 0
}

// blockOut performs one OUTI or OUTD. B is decremented before the port
// address is formed.
func (s *State) blockOut(step int16) bool {
	hl := s.Wide(inst.HL)
	v := s.Mem[hl]
	b := s.Reg(inst.B) - 1
	s.SetReg(inst.B, b)
	s.out(s.Wide(inst.BC), v)
	s.SetWide(inst.HL, hl+uint16(step))
	s.putFlags(FlagZ|FlagN, bsel(b == 0, FlagZ, 0)|FlagN)
	return b != 0
}

func aluIndex(op inst.OpCode) int {
	switch op {
	case inst.ADD_A_R8, inst.ADD_A_N, inst.ADD_A_HLI, inst.ADD_A_IDXD:
		return 0
	case inst.ADC_A_R8, inst.ADC_A_N, inst.ADC_A_HLI, inst.ADC_A_IDXD:
		return 1
	case inst.SUB_R8, inst.SUB_N, inst.SUB_HLI, inst.SUB_IDXD:
		return 2
	case inst.SBC_A_R8, inst.SBC_A_N, inst.SBC_A_HLI, inst.SBC_A_IDXD:
		return 3
	case inst.AND_R8, inst.AND_N, inst.AND_HLI, inst.AND_IDXD:
		return 4
	case inst.XOR_R8, inst.XOR_N, inst.XOR_HLI, inst.XOR_IDXD:
		return 5
	case inst.OR_R8, inst.OR_N, inst.OR_HLI, inst.OR_IDXD:
		return 6
	}
	return 7
}

func (s *State) rotFor(op inst.OpCode) func(uint8) uint8 {
	switch op {
	case inst.RLC_R8, inst.RLC_HLI, inst.RLC_IDXD:
		return s.rlc
	case inst.RRC_R8, inst.RRC_HLI, inst.RRC_IDXD:
		return s.rrc
	case inst.RL_R8, inst.RL_HLI, inst.RL_IDXD:
		return s.rl
	case inst.RR_R8, inst.RR_HLI, inst.RR_IDXD:
		return s.rr
	case inst.SLA_R8, inst.SLA_HLI, inst.SLA_IDXD:
		return s.sla
	case inst.SRA_R8, inst.SRA_HLI, inst.SRA_IDXD:
		return s.sra
	}
	return s.srl
}
