package inst

import (
	"errors"
	"fmt"
)

var (
	// ErrNotEncodable is returned by Encode for UNKNOWN and out-of-range opcodes.
	ErrNotEncodable = errors.New("instruction has no encoding")
	// ErrOperand is returned by Encode when an operand cannot appear in the
	// requested form (e.g. an alternate register, or RST 09h).
	ErrOperand = errors.New("invalid operand")
)

// regCode maps a main-set register to its 3-bit encoding. (HL) owns 110.
func regCode(r Reg) (uint8, bool) {
	switch r {
	case B:
		return 0, true
	case C:
		return 1, true
	case D:
		return 2, true
	case E:
		return 3, true
	case H:
		return 4, true
	case L:
		return 5, true
	case A:
		return 7, true
	}
	return 0, false
}

// pairCode maps rr to its 2-bit encoding. slot2 is the register that
// occupies code 2 (HL, or IX/IY under an index prefix) and last is the
// one in code 3 (SP for arithmetic and loads, AF for push/pop).
func pairCode(rr, slot2, last BigReg) (uint8, bool) {
	switch rr {
	case BC:
		return 0, true
	case DE:
		return 1, true
	case slot2:
		return 2, true
	case last:
		return 3, true
	}
	return 0, false
}

func indexPrefix(x BigReg) (uint8, bool) {
	switch x {
	case IX:
		return 0xDD, true
	case IY:
		return 0xFD, true
	}
	return 0, false
}

// Encode returns the machine code for in. It is the inverse of decoding:
// decoding the result yields in again.
func Encode(in Instruction) ([]byte, error) {
	if in.Op == UNKNOWN || in.Op >= OpCodeCount {
		return nil, fmt.Errorf("encode op %d: %w", in.Op, ErrNotEncodable)
	}
	info := &Catalog[in.Op]
	out := make([]byte, 0, ByteSize(in.Op))
	base := info.Bytes
	if info.Form&FormX != 0 {
		pfx, ok := indexPrefix(in.X)
		if !ok {
			return nil, fmt.Errorf("encode %s: index %s: %w", info.Mnemonic, in.X, ErrOperand)
		}
		out = append(out, pfx)
		base = base[1:]
	}
	// Everything but the final opcode byte is fixed.
	out = append(out, base[:len(base)-1]...)
	op := base[len(base)-1]

	fields, err := opFields(in)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", info.Mnemonic, err)
	}
	op |= fields

	// DD CB d op puts the displacement before the opcode byte.
	if info.Form&FormD != 0 && len(base) == 2 && base[0] == 0xCB {
		out = append(out, uint8(in.D), op)
		return out, nil
	}
	out = append(out, op)
	if info.Form&(FormD|FormE) != 0 {
		out = append(out, uint8(in.D))
	}
	if info.Form&FormN != 0 {
		out = append(out, in.N)
	}
	if info.Form&FormNN != 0 {
		out = append(out, uint8(in.NN), uint8(in.NN>>8))
	}
	return out, nil
}

// opFields returns the operand bits OR-ed into the final opcode byte.
func opFields(in Instruction) (uint8, error) {
	reg := func(r Reg) (uint8, error) {
		c, ok := regCode(r)
		if !ok {
			return 0, fmt.Errorf("register %s: %w", r, ErrOperand)
		}
		return c, nil
	}
	pair := func(slot2, last BigReg) (uint8, error) {
		c, ok := pairCode(in.RR, slot2, last)
		if !ok {
			return 0, fmt.Errorf("register pair %s: %w", in.RR, ErrOperand)
		}
		return c << 4, nil
	}
	bit := func() (uint8, error) {
		if in.Bit > 7 {
			return 0, fmt.Errorf("bit %d: %w", in.Bit, ErrOperand)
		}
		return in.Bit << 3, nil
	}

	switch in.Op {
	case LD_R8_R8:
		y, err := reg(in.R)
		if err != nil {
			return 0, err
		}
		z, err := reg(in.R2)
		if err != nil {
			return 0, err
		}
		return y<<3 | z, nil

	case LD_R8_N, LD_R8_HLI, LD_R8_IDXD, INC_R8, DEC_R8, IN_R8_C, OUT_C_R8:
		y, err := reg(in.R)
		return y << 3, err

	case LD_HLI_R8, LD_IDXD_R8,
		ADD_A_R8, ADC_A_R8, SUB_R8, SBC_A_R8, AND_R8, XOR_R8, OR_R8, CP_R8,
		RLC_R8, RRC_R8, RL_R8, RR_R8, SLA_R8, SRA_R8, SRL_R8:
		return reg(in.R)

	case BIT_B_R8, SET_B_R8, RES_B_R8:
		b, err := bit()
		if err != nil {
			return 0, err
		}
		z, err := reg(in.R)
		return b | z, err

	case BIT_B_HLI, SET_B_HLI, RES_B_HLI, BIT_B_IDXD, SET_B_IDXD, RES_B_IDXD:
		return bit()

	case LD_RR_NN, LD_RR_NNI, LD_NNI_RR, ADD_HL_RR, ADC_HL_RR, SBC_HL_RR, INC_RR, DEC_RR:
		return pair(HL, SP)

	case ADD_IDX_RR:
		return pair(in.X, SP)

	case PUSH_RR, POP_RR:
		return pair(HL, AF)

	case JP_CC_NN, CALL_CC_NN, RET_CC:
		return uint8(in.Cond&7) << 3, nil

	case JR_CC_E:
		if in.Cond > CY {
			return 0, fmt.Errorf("relative condition %s: %w", in.Cond, ErrOperand)
		}
		return uint8(in.Cond) << 3, nil

	case RST_P:
		if in.N&^0x38 != 0 {
			return 0, fmt.Errorf("restart vector %02Xh: %w", in.N, ErrOperand)
		}
		return in.N, nil
	}
	return 0, nil
}
