package inst

import (
	"strconv"
	"strings"
)

// Form is a bit set describing which operand bytes follow the opcode
// bytes of an instruction in the stream.
type Form uint8

const (
	FormN  Form = 1 << iota // 8-bit immediate or port
	FormNN                  // 16-bit immediate or address, low byte first
	FormD                   // signed index displacement
	FormE                   // signed relative jump offset
	FormX                   // DD/FD prefix selects IX or IY
)

// Info holds static metadata for an instruction opcode.
type Info struct {
	Mnemonic string  // Template, e.g. "LD {r}, {xd}"
	Bytes    []uint8 // Encoding with operand fields zero; indexed forms show the DD prefix
	Form     Form
	Stub     bool // executor arm is a documented placeholder
}

// Catalog maps each OpCode to its Info.
var Catalog [OpCodeCount]Info

// ByteSize returns the total byte size of an instruction (encoding + operands).
func ByteSize(op OpCode) int {
	info := &Catalog[op]
	n := len(info.Bytes)
	if info.Form&FormNN != 0 {
		n += 2
	}
	if info.Form&FormN != 0 {
		n++
	}
	if info.Form&(FormD|FormE) != 0 {
		n++
	}
	return n
}

// Stubs returns the OpCodes whose executor arm is a placeholder rather
// than the full documented effect.
func Stubs() []OpCode {
	var ops []OpCode
	for op := OpCode(0); op < OpCodeCount; op++ {
		if Catalog[op].Stub {
			ops = append(ops, op)
		}
	}
	return ops
}

// Disassemble returns assembly text for an instruction.
func Disassemble(in Instruction) string {
	if in.Op >= OpCodeCount {
		return "?"
	}
	m := Catalog[in.Op].Mnemonic
	if strings.IndexByte(m, '{') < 0 {
		return m
	}
	rep := strings.NewReplacer(
		"{r}", in.R.String(),
		"{r2}", in.R2.String(),
		"{rr}", in.RR.String(),
		"{x}", in.X.String(),
		"{xd}", string(appendIndexed(nil, in.X, in.D)),
		"{n}", string(appendHex8(nil, in.N)),
		"{nn}", string(appendHex16(nil, in.NN)),
		"{e}", "$"+signed(int(in.D)+2),
		"{b}", strconv.Itoa(int(in.Bit&7)),
		"{cc}", in.Cond.String(),
	)
	return rep.Replace(m)
}

func signed(v int) string {
	if v < 0 {
		return strconv.Itoa(v)
	}
	return "+" + strconv.Itoa(v)
}

func appendIndexed(buf []byte, x BigReg, d int8) []byte {
	buf = append(buf, '(')
	buf = append(buf, x.String()...)
	if d < 0 {
		buf = append(buf, '-')
		buf = appendHex8(buf, uint8(-int(d)))
	} else {
		buf = append(buf, '+')
		buf = appendHex8(buf, uint8(d))
	}
	return append(buf, ')')
}

func appendHex8(buf []byte, v uint8) []byte {
	const hex = "0123456789ABCDEF"
	if v >= 0xA0 {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>4], hex[v&0x0F], 'h')
	return buf
}

func appendHex16(buf []byte, v uint16) []byte {
	const hex = "0123456789ABCDEF"
	if v>>12 >= 0xA {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>12], hex[(v>>8)&0x0F], hex[(v>>4)&0x0F], hex[v&0x0F], 'h')
	return buf
}

func def(op OpCode, mnemonic string, form Form, enc ...uint8) {
	Catalog[op] = Info{Mnemonic: mnemonic, Bytes: enc, Form: form}
}

func init() {
	def(UNKNOWN, "???", 0)

	// 8-bit loads
	def(LD_R8_R8, "LD {r}, {r2}", 0, 0x40)
	def(LD_R8_N, "LD {r}, {n}", FormN, 0x06)
	def(LD_R8_HLI, "LD {r}, (HL)", 0, 0x46)
	def(LD_R8_IDXD, "LD {r}, {xd}", FormX|FormD, 0xDD, 0x46)
	def(LD_HLI_R8, "LD (HL), {r}", 0, 0x70)
	def(LD_IDXD_R8, "LD {xd}, {r}", FormX|FormD, 0xDD, 0x70)
	def(LD_HLI_N, "LD (HL), {n}", FormN, 0x36)
	def(LD_IDXD_N, "LD {xd}, {n}", FormX|FormD|FormN, 0xDD, 0x36)
	def(LD_A_BCI, "LD A, (BC)", 0, 0x0A)
	def(LD_A_DEI, "LD A, (DE)", 0, 0x1A)
	def(LD_A_NNI, "LD A, ({nn})", FormNN, 0x3A)
	def(LD_BCI_A, "LD (BC), A", 0, 0x02)
	def(LD_DEI_A, "LD (DE), A", 0, 0x12)
	def(LD_NNI_A, "LD ({nn}), A", FormNN, 0x32)
	def(LD_A_I, "LD A, I", 0, 0xED, 0x57)
	def(LD_A_R, "LD A, R", 0, 0xED, 0x5F)
	def(LD_I_A, "LD I, A", 0, 0xED, 0x47)
	def(LD_R_A, "LD R, A", 0, 0xED, 0x4F)

	// 16-bit loads and stack
	def(LD_RR_NN, "LD {rr}, {nn}", FormNN, 0x01)
	def(LD_IDX_NN, "LD {x}, {nn}", FormX|FormNN, 0xDD, 0x21)
	def(LD_HL_NNI, "LD HL, ({nn})", FormNN, 0x2A)
	def(LD_RR_NNI, "LD {rr}, ({nn})", FormNN, 0xED, 0x4B)
	def(LD_IDX_NNI, "LD {x}, ({nn})", FormX|FormNN, 0xDD, 0x2A)
	def(LD_NNI_HL, "LD ({nn}), HL", FormNN, 0x22)
	def(LD_NNI_RR, "LD ({nn}), {rr}", FormNN, 0xED, 0x43)
	def(LD_NNI_IDX, "LD ({nn}), {x}", FormX|FormNN, 0xDD, 0x22)
	def(LD_SP_HL, "LD SP, HL", 0, 0xF9)
	def(LD_SP_IDX, "LD SP, {x}", FormX, 0xDD, 0xF9)
	def(PUSH_RR, "PUSH {rr}", 0, 0xC5)
	def(PUSH_IDX, "PUSH {x}", FormX, 0xDD, 0xE5)
	def(POP_RR, "POP {rr}", 0, 0xC1)
	def(POP_IDX, "POP {x}", FormX, 0xDD, 0xE1)

	// Exchange and block
	def(EX_DE_HL, "EX DE, HL", 0, 0xEB)
	def(EX_AF_AF, "EX AF, AF'", 0, 0x08)
	def(EXX, "EXX", 0, 0xD9)
	def(EX_SPI_HL, "EX (SP), HL", 0, 0xE3)
	def(EX_SPI_IDX, "EX (SP), {x}", FormX, 0xDD, 0xE3)
	def(LDI, "LDI", 0, 0xED, 0xA0)
	def(LDIR, "LDIR", 0, 0xED, 0xB0)
	def(LDD, "LDD", 0, 0xED, 0xA8)
	def(LDDR, "LDDR", 0, 0xED, 0xB8)
	def(CPI, "CPI", 0, 0xED, 0xA1)
	def(CPIR, "CPIR", 0, 0xED, 0xB1)
	def(CPD, "CPD", 0, 0xED, 0xA9)
	def(CPDR, "CPDR", 0, 0xED, 0xB9)

	// 8-bit ALU: the operation sits in bits 5..3 of the opcode
	alu := []struct {
		r8, n, hli, idxd OpCode
		name             string
	}{
		{ADD_A_R8, ADD_A_N, ADD_A_HLI, ADD_A_IDXD, "ADD A, "},
		{ADC_A_R8, ADC_A_N, ADC_A_HLI, ADC_A_IDXD, "ADC A, "},
		{SUB_R8, SUB_N, SUB_HLI, SUB_IDXD, "SUB "},
		{SBC_A_R8, SBC_A_N, SBC_A_HLI, SBC_A_IDXD, "SBC A, "},
		{AND_R8, AND_N, AND_HLI, AND_IDXD, "AND "},
		{XOR_R8, XOR_N, XOR_HLI, XOR_IDXD, "XOR "},
		{OR_R8, OR_N, OR_HLI, OR_IDXD, "OR "},
		{CP_R8, CP_N, CP_HLI, CP_IDXD, "CP "},
	}
	for i, a := range alu {
		y := uint8(i) << 3
		def(a.r8, a.name+"{r}", 0, 0x80|y)
		def(a.n, a.name+"{n}", FormN, 0xC6|y)
		def(a.hli, a.name+"(HL)", 0, 0x86|y)
		def(a.idxd, a.name+"{xd}", FormX|FormD, 0xDD, 0x86|y)
	}
	def(INC_R8, "INC {r}", 0, 0x04)
	def(INC_HLI, "INC (HL)", 0, 0x34)
	def(INC_IDXD, "INC {xd}", FormX|FormD, 0xDD, 0x34)
	def(DEC_R8, "DEC {r}", 0, 0x05)
	def(DEC_HLI, "DEC (HL)", 0, 0x35)
	def(DEC_IDXD, "DEC {xd}", FormX|FormD, 0xDD, 0x35)

	// General purpose and CPU control
	def(DAA, "DAA", 0, 0x27)
	def(CPL, "CPL", 0, 0x2F)
	def(NEG, "NEG", 0, 0xED, 0x44)
	def(CCF, "CCF", 0, 0x3F)
	def(SCF, "SCF", 0, 0x37)
	def(NOP, "NOP", 0, 0x00)
	def(HALT, "HALT", 0, 0x76)
	def(DI, "DI", 0, 0xF3)
	def(EI, "EI", 0, 0xFB)
	def(IM0, "IM 0", 0, 0xED, 0x46)
	def(IM1, "IM 1", 0, 0xED, 0x56)
	def(IM2, "IM 2", 0, 0xED, 0x5E)

	// 16-bit arithmetic
	def(ADD_HL_RR, "ADD HL, {rr}", 0, 0x09)
	def(ADC_HL_RR, "ADC HL, {rr}", 0, 0xED, 0x4A)
	def(SBC_HL_RR, "SBC HL, {rr}", 0, 0xED, 0x42)
	def(ADD_IDX_RR, "ADD {x}, {rr}", FormX, 0xDD, 0x09)
	def(INC_RR, "INC {rr}", 0, 0x03)
	def(INC_IDX, "INC {x}", FormX, 0xDD, 0x23)
	def(DEC_RR, "DEC {rr}", 0, 0x0B)
	def(DEC_IDX, "DEC {x}", FormX, 0xDD, 0x2B)

	// Rotates and shifts
	def(RLCA, "RLCA", 0, 0x07)
	def(RLA, "RLA", 0, 0x17)
	def(RRCA, "RRCA", 0, 0x0F)
	def(RRA, "RRA", 0, 0x1F)
	rot := []struct {
		r8, hli, idxd OpCode
		name          string
		y             uint8
	}{
		{RLC_R8, RLC_HLI, RLC_IDXD, "RLC ", 0},
		{RRC_R8, RRC_HLI, RRC_IDXD, "RRC ", 1},
		{RL_R8, RL_HLI, RL_IDXD, "RL ", 2},
		{RR_R8, RR_HLI, RR_IDXD, "RR ", 3},
		{SLA_R8, SLA_HLI, SLA_IDXD, "SLA ", 4},
		{SRA_R8, SRA_HLI, SRA_IDXD, "SRA ", 5},
		{SRL_R8, SRL_HLI, SRL_IDXD, "SRL ", 7},
	}
	for _, r := range rot {
		y := r.y << 3
		def(r.r8, r.name+"{r}", 0, 0xCB, y)
		def(r.hli, r.name+"(HL)", 0, 0xCB, y|6)
		// DD CB d op: the displacement precedes the final opcode byte
		def(r.idxd, r.name+"{xd}", FormX|FormD, 0xDD, 0xCB, y|6)
	}
	def(RLD, "RLD", 0, 0xED, 0x6F)
	def(RRD, "RRD", 0, 0xED, 0x67)

	// Bit set, reset and test
	bits := []struct {
		r8, hli, idxd OpCode
		name          string
		x             uint8
	}{
		{BIT_B_R8, BIT_B_HLI, BIT_B_IDXD, "BIT {b}, ", 0x40},
		{RES_B_R8, RES_B_HLI, RES_B_IDXD, "RES {b}, ", 0x80},
		{SET_B_R8, SET_B_HLI, SET_B_IDXD, "SET {b}, ", 0xC0},
	}
	for _, b := range bits {
		def(b.r8, b.name+"{r}", 0, 0xCB, b.x)
		def(b.hli, b.name+"(HL)", 0, 0xCB, b.x|6)
		def(b.idxd, b.name+"{xd}", FormX|FormD, 0xDD, 0xCB, b.x|6)
	}

	// Jump, call and return
	def(JP_NN, "JP {nn}", FormNN, 0xC3)
	def(JP_CC_NN, "JP {cc}, {nn}", FormNN, 0xC2)
	def(JR_E, "JR {e}", FormE, 0x18)
	def(JR_CC_E, "JR {cc}, {e}", FormE, 0x20)
	def(JP_HLI, "JP (HL)", 0, 0xE9)
	def(JP_IDX, "JP ({x})", FormX, 0xDD, 0xE9)
	def(DJNZ_E, "DJNZ {e}", FormE, 0x10)
	def(CALL_NN, "CALL {nn}", FormNN, 0xCD)
	def(CALL_CC_NN, "CALL {cc}, {nn}", FormNN, 0xC4)
	def(RET, "RET", 0, 0xC9)
	def(RET_CC, "RET {cc}", 0, 0xC0)
	def(RETI, "RETI", 0, 0xED, 0x4D)
	def(RETN, "RETN", 0, 0xED, 0x45)
	def(RST_P, "RST {n}", 0, 0xC7)

	// Input and output
	def(IN_A_N, "IN A, ({n})", FormN, 0xDB)
	def(IN_R8_C, "IN {r}, (C)", 0, 0xED, 0x40)
	def(INI, "INI", 0, 0xED, 0xA2)
	def(INIR, "INIR", 0, 0xED, 0xB2)
	def(IND, "IND", 0, 0xED, 0xAA)
	def(INDR, "INDR", 0, 0xED, 0xBA)
	def(OUT_N_A, "OUT ({n}), A", FormN, 0xD3)
	def(OUT_C_R8, "OUT (C), {r}", 0, 0xED, 0x41)
	def(OUTI, "OUTI", 0, 0xED, 0xA3)
	def(OTIR, "OTIR", 0, 0xED, 0xB3)
	def(OUTD, "OUTD", 0, 0xED, 0xAB)
	def(OTDR, "OTDR", 0, 0xED, 0xBB)
}
