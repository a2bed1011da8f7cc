package inst

// OpCode identifies one Z80 mnemonic/addressing-mode combination.
// Operands (registers, immediates, displacements) live in Instruction,
// so LD B,C and LD A,E share LD_R8_R8. IX and IY forms share one OpCode
// and carry the index register in Instruction.X.
//
// Naming: R8 is an 8-bit register operand, RR a register pair, HLI is
// (HL), IDX is IX/IY itself and IDXD is (IX+d)/(IY+d), NNI is (nn).
type OpCode uint16

// Instruction is one decoded Z80 instruction. It is a plain value: the
// decoder returns a fresh one per call and the executor never retains it.
// Fields not used by Op are zero.
type Instruction struct {
	Op   OpCode
	R    Reg       // destination, or the only register operand
	R2   Reg       // source register of LD r,r'
	RR   BigReg    // register pair operand
	X    BigReg    // index register (IX or IY) of IDX/IDXD forms
	N    uint8     // 8-bit immediate, port number or RST vector
	NN   uint16    // 16-bit immediate or absolute address
	D    int8      // index displacement or relative jump offset
	Bit  uint8     // bit number 0..7 of BIT/SET/RES
	Cond Condition // branch condition
}

const (
	UNKNOWN OpCode = iota // unrecognized encoding; executes as a no-op

	// === 8-bit loads ===
	LD_R8_R8   // LD r, r'
	LD_R8_N    // LD r, n
	LD_R8_HLI  // LD r, (HL)
	LD_R8_IDXD // LD r, (IX+d)
	LD_HLI_R8  // LD (HL), r
	LD_IDXD_R8 // LD (IX+d), r
	LD_HLI_N   // LD (HL), n
	LD_IDXD_N  // LD (IX+d), n
	LD_A_BCI   // LD A, (BC)
	LD_A_DEI   // LD A, (DE)
	LD_A_NNI   // LD A, (nn)
	LD_BCI_A   // LD (BC), A
	LD_DEI_A   // LD (DE), A
	LD_NNI_A   // LD (nn), A
	LD_A_I
	LD_A_R
	LD_I_A
	LD_R_A

	// === 16-bit loads and stack ===
	LD_RR_NN    // LD dd, nn
	LD_IDX_NN   // LD IX, nn
	LD_HL_NNI   // LD HL, (nn)
	LD_RR_NNI   // LD dd, (nn)   (ED form)
	LD_IDX_NNI  // LD IX, (nn)
	LD_NNI_HL   // LD (nn), HL
	LD_NNI_RR   // LD (nn), dd   (ED form)
	LD_NNI_IDX  // LD (nn), IX
	LD_SP_HL    // LD SP, HL
	LD_SP_IDX   // LD SP, IX
	PUSH_RR     // PUSH qq
	PUSH_IDX    // PUSH IX
	POP_RR      // POP qq
	POP_IDX     // POP IX

	// === Exchange, block transfer, block search ===
	EX_DE_HL
	EX_AF_AF
	EXX
	EX_SPI_HL  // EX (SP), HL
	EX_SPI_IDX // EX (SP), IX
	LDI
	LDIR
	LDD
	LDDR
	CPI
	CPIR
	CPD
	CPDR

	// === 8-bit arithmetic and logic ===
	ADD_A_R8
	ADD_A_N
	ADD_A_HLI
	ADD_A_IDXD
	ADC_A_R8
	ADC_A_N
	ADC_A_HLI
	ADC_A_IDXD
	SUB_R8
	SUB_N
	SUB_HLI
	SUB_IDXD
	SBC_A_R8
	SBC_A_N
	SBC_A_HLI
	SBC_A_IDXD
	AND_R8
	AND_N
	AND_HLI
	AND_IDXD
	XOR_R8
	XOR_N
	XOR_HLI
	XOR_IDXD
	OR_R8
	OR_N
	OR_HLI
	OR_IDXD
	CP_R8
	CP_N
	CP_HLI
	CP_IDXD
	INC_R8
	INC_HLI
	INC_IDXD
	DEC_R8
	DEC_HLI
	DEC_IDXD

	// === General purpose and CPU control ===
	DAA
	CPL
	NEG
	CCF
	SCF
	NOP
	HALT
	DI
	EI
	IM0
	IM1
	IM2

	// === 16-bit arithmetic ===
	ADD_HL_RR
	ADC_HL_RR
	SBC_HL_RR
	ADD_IDX_RR // ADD IX, pp (pp = BC, DE, IX, SP)
	INC_RR
	INC_IDX
	DEC_RR
	DEC_IDX

	// === Rotate and shift ===
	RLCA
	RLA
	RRCA
	RRA
	RLC_R8
	RLC_HLI
	RLC_IDXD
	RL_R8
	RL_HLI
	RL_IDXD
	RRC_R8
	RRC_HLI
	RRC_IDXD
	RR_R8
	RR_HLI
	RR_IDXD
	SLA_R8
	SLA_HLI
	SLA_IDXD
	SRA_R8
	SRA_HLI
	SRA_IDXD
	SRL_R8
	SRL_HLI
	SRL_IDXD
	RLD
	RRD

	// === Bit set, reset and test ===
	BIT_B_R8
	BIT_B_HLI
	BIT_B_IDXD
	SET_B_R8
	SET_B_HLI
	SET_B_IDXD
	RES_B_R8
	RES_B_HLI
	RES_B_IDXD

	// === Jump, call and return ===
	JP_NN
	JP_CC_NN
	JR_E
	JR_CC_E // cc limited to NZ, Z, NC, C
	JP_HLI  // JP (HL)
	JP_IDX  // JP (IX)
	DJNZ_E
	CALL_NN
	CALL_CC_NN
	RET
	RET_CC
	RETI
	RETN
	RST_P

	// === Input and output ===
	IN_A_N   // IN A, (n)
	IN_R8_C  // IN r, (C)
	INI
	INIR
	IND
	INDR
	OUT_N_A  // OUT (n), A
	OUT_C_R8 // OUT (C), r
	OUTI
	OTIR
	OUTD
	OTDR

	OpCodeCount // sentinel
)

// AllOps returns every OpCode value, UNKNOWN included.
func AllOps() []OpCode {
	ops := make([]OpCode, 0, OpCodeCount)
	for op := OpCode(0); op < OpCodeCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// IsIndexed returns true if op carries an index register in X.
func IsIndexed(op OpCode) bool {
	f := Catalog[op].Form
	return f&FormX != 0
}

// String renders the instruction as assembly text, e.g. "LD A, (IX+05h)".
func (in Instruction) String() string {
	return Disassemble(in)
}
