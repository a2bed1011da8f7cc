package decode

import "github.com/oisee/z80emu/pkg/inst"

// indexed decodes the bytes after a DD or FD prefix. The two tables are
// the same apart from the index register, which x carries throughout.
// Undocumented forms (IXH/IXL halves, prefixed no-ops) decode to UNKNOWN.
func indexed(c *cursor, x inst.BigReg) inst.Instruction {
	op := c.next()
	switch op {
	case 0x09, 0x19, 0x29, 0x39:
		pp := rp[op>>4]
		if pp == inst.HL {
			pp = x
		}
		return inst.Instruction{Op: inst.ADD_IDX_RR, X: x, RR: pp}
	case 0x21:
		return inst.Instruction{Op: inst.LD_IDX_NN, X: x, NN: c.nn()}
	case 0x22:
		return inst.Instruction{Op: inst.LD_NNI_IDX, X: x, NN: c.nn()}
	case 0x2A:
		return inst.Instruction{Op: inst.LD_IDX_NNI, X: x, NN: c.nn()}
	case 0x23:
		return inst.Instruction{Op: inst.INC_IDX, X: x}
	case 0x2B:
		return inst.Instruction{Op: inst.DEC_IDX, X: x}
	case 0x34:
		return inst.Instruction{Op: inst.INC_IDXD, X: x, D: c.d()}
	case 0x35:
		return inst.Instruction{Op: inst.DEC_IDXD, X: x, D: c.d()}
	case 0x36:
		d := c.d()
		return inst.Instruction{Op: inst.LD_IDXD_N, X: x, D: d, N: c.next()}
	case 0xCB:
		return indexedBits(c, x)
	case 0xE1:
		return inst.Instruction{Op: inst.POP_IDX, X: x}
	case 0xE3:
		return inst.Instruction{Op: inst.EX_SPI_IDX, X: x}
	case 0xE5:
		return inst.Instruction{Op: inst.PUSH_IDX, X: x}
	case 0xE9:
		return inst.Instruction{Op: inst.JP_IDX, X: x}
	case 0xF9:
		return inst.Instruction{Op: inst.LD_SP_IDX, X: x}
	}

	y, z := (op>>3)&7, op&7
	switch op >> 6 {
	case 1:
		switch {
		case z == hli && y != hli:
			return inst.Instruction{Op: inst.LD_R8_IDXD, R: r8[y], X: x, D: c.d()}
		case y == hli && z != hli:
			return inst.Instruction{Op: inst.LD_IDXD_R8, R: r8[z], X: x, D: c.d()}
		}
	case 2:
		if z == hli {
			return inst.Instruction{Op: aluOps[y].idxd, X: x, D: c.d()}
		}
	}
	return unknown()
}

// indexedBits decodes DD CB d op. The displacement comes before the
// opcode byte, so all four bytes are read before the form is known.
func indexedBits(c *cursor, x inst.BigReg) inst.Instruction {
	d := c.d()
	op := c.next()
	xx, y, z := op>>6, (op>>3)&7, op&7
	if z != hli {
		return unknown()
	}
	if xx == 0 {
		if rotOps[y].idxd == inst.UNKNOWN {
			return unknown()
		}
		return inst.Instruction{Op: rotOps[y].idxd, X: x, D: d}
	}
	return inst.Instruction{Op: bitOps[xx-1].idxd, X: x, D: d, Bit: y}
}
