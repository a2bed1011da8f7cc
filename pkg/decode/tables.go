package decode

import "github.com/oisee/z80emu/pkg/inst"

// hli marks slot 110 of the register triplet table: (HL), not a register.
const hli = 6

// r8 is the register triplet table {B,C,D,E,H,L,(HL),A}.
var r8 = [8]inst.Reg{inst.B, inst.C, inst.D, inst.E, inst.H, inst.L, 0, inst.A}

// rp is the pair table for loads and arithmetic; rp2 is the push/pop table.
var (
	rp  = [4]inst.BigReg{inst.BC, inst.DE, inst.HL, inst.SP}
	rp2 = [4]inst.BigReg{inst.BC, inst.DE, inst.HL, inst.AF}
)

var cc = [8]inst.Condition{inst.NZ, inst.Z, inst.NC, inst.CY, inst.PO, inst.PE, inst.P, inst.M}

// aluOps holds the register, (HL), (IX+d) and immediate forms of the
// eight accumulator operations, indexed by bits 5..3 of the opcode.
var aluOps = [8]struct{ r8, hli, idxd, n inst.OpCode }{
	{inst.ADD_A_R8, inst.ADD_A_HLI, inst.ADD_A_IDXD, inst.ADD_A_N},
	{inst.ADC_A_R8, inst.ADC_A_HLI, inst.ADC_A_IDXD, inst.ADC_A_N},
	{inst.SUB_R8, inst.SUB_HLI, inst.SUB_IDXD, inst.SUB_N},
	{inst.SBC_A_R8, inst.SBC_A_HLI, inst.SBC_A_IDXD, inst.SBC_A_N},
	{inst.AND_R8, inst.AND_HLI, inst.AND_IDXD, inst.AND_N},
	{inst.XOR_R8, inst.XOR_HLI, inst.XOR_IDXD, inst.XOR_N},
	{inst.OR_R8, inst.OR_HLI, inst.OR_IDXD, inst.OR_N},
	{inst.CP_R8, inst.CP_HLI, inst.CP_IDXD, inst.CP_N},
}

// rotOps is the CB x=0 table. Slot 6 (SLL) is undocumented.
var rotOps = [8]struct{ r8, hli, idxd inst.OpCode }{
	{inst.RLC_R8, inst.RLC_HLI, inst.RLC_IDXD},
	{inst.RRC_R8, inst.RRC_HLI, inst.RRC_IDXD},
	{inst.RL_R8, inst.RL_HLI, inst.RL_IDXD},
	{inst.RR_R8, inst.RR_HLI, inst.RR_IDXD},
	{inst.SLA_R8, inst.SLA_HLI, inst.SLA_IDXD},
	{inst.SRA_R8, inst.SRA_HLI, inst.SRA_IDXD},
	{inst.UNKNOWN, inst.UNKNOWN, inst.UNKNOWN},
	{inst.SRL_R8, inst.SRL_HLI, inst.SRL_IDXD},
}

// bitOps is the CB x=1..3 table (BIT, RES, SET), indexed by x-1.
var bitOps = [3]struct{ r8, hli, idxd inst.OpCode }{
	{inst.BIT_B_R8, inst.BIT_B_HLI, inst.BIT_B_IDXD},
	{inst.RES_B_R8, inst.RES_B_HLI, inst.RES_B_IDXD},
	{inst.SET_B_R8, inst.SET_B_HLI, inst.SET_B_IDXD},
}

// blockOps is ED 1yyy0zzz for y=4..7, z=0..3.
var blockOps = [4][4]inst.OpCode{
	{inst.LDI, inst.CPI, inst.INI, inst.OUTI},
	{inst.LDD, inst.CPD, inst.IND, inst.OUTD},
	{inst.LDIR, inst.CPIR, inst.INIR, inst.OTIR},
	{inst.LDDR, inst.CPDR, inst.INDR, inst.OTDR},
}

// Fixed single-byte opcodes, matched before the bit-field tables.
var single = map[uint8]inst.OpCode{
	0x00: inst.NOP,
	0x02: inst.LD_BCI_A,
	0x07: inst.RLCA,
	0x08: inst.EX_AF_AF,
	0x0A: inst.LD_A_BCI,
	0x0F: inst.RRCA,
	0x12: inst.LD_DEI_A,
	0x17: inst.RLA,
	0x1A: inst.LD_A_DEI,
	0x1F: inst.RRA,
	0x27: inst.DAA,
	0x2F: inst.CPL,
	0x34: inst.INC_HLI,
	0x35: inst.DEC_HLI,
	0x37: inst.SCF,
	0x3F: inst.CCF,
	0x76: inst.HALT,
	0xC9: inst.RET,
	0xD9: inst.EXX,
	0xE3: inst.EX_SPI_HL,
	0xE9: inst.JP_HLI,
	0xEB: inst.EX_DE_HL,
	0xF3: inst.DI,
	0xF9: inst.LD_SP_HL,
	0xFB: inst.EI,
}

// Fixed ED-prefixed opcodes.
var extended = map[uint8]inst.OpCode{
	0x44: inst.NEG,
	0x45: inst.RETN,
	0x46: inst.IM0,
	0x47: inst.LD_I_A,
	0x4D: inst.RETI,
	0x4F: inst.LD_R_A,
	0x56: inst.IM1,
	0x57: inst.LD_A_I,
	0x5E: inst.IM2,
	0x5F: inst.LD_A_R,
	0x67: inst.RRD,
	0x6F: inst.RLD,
}
