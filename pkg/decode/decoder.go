// Package decode turns a Z80 byte stream into inst.Instruction values.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/oisee/z80emu/pkg/inst"
)

// ErrTruncated is returned when the stream ends in the middle of an
// instruction. It wraps io.ErrUnexpectedEOF.
var ErrTruncated = fmt.Errorf("truncated instruction: %w", io.ErrUnexpectedEOF)

// cursor counts bytes read and keeps the first read error. Reads after
// an error return 0 so decoding can finish its switch before checking.
type cursor struct {
	r   io.ByteReader
	n   uint8
	err error
}

func (c *cursor) next() uint8 {
	if c.err != nil {
		return 0
	}
	b, err := c.r.ReadByte()
	if err != nil {
		c.err = err
		return 0
	}
	c.n++
	return b
}

func (c *cursor) nn() uint16 {
	lo := c.next()
	hi := c.next()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *cursor) d() int8 {
	return int8(c.next())
}

// ParseNext decodes one instruction from r and reports how many bytes it
// consumed. It returns io.EOF if r is empty, and ErrTruncated if r ends
// before the instruction is complete. Encodings that match nothing decode
// to inst.UNKNOWN, with n counting every byte read while probing.
func ParseNext(r io.ByteReader) (n uint8, in inst.Instruction, err error) {
	c := &cursor{r: r}
	op := c.next()
	if c.err != nil {
		return 0, inst.Instruction{}, c.err
	}
	in = base(c, op)
	if c.err != nil {
		if errors.Is(c.err, io.EOF) {
			return c.n, inst.Instruction{}, ErrTruncated
		}
		return c.n, inst.Instruction{}, fmt.Errorf("decode after %d bytes: %w", c.n, c.err)
	}
	return c.n, in, nil
}

// Bytes decodes the first instruction in b.
func Bytes(b []byte) (uint8, inst.Instruction, error) {
	return ParseNext(bytes.NewReader(b))
}

// Entry is one line of a listing.
type Entry struct {
	Offset int
	Len    uint8
	Inst   inst.Instruction
}

// All decodes b front to back. On a truncated tail it returns the entries
// decoded so far together with the error.
func All(b []byte) ([]Entry, error) {
	r := bytes.NewReader(b)
	var out []Entry
	off := 0
	for {
		n, in, err := ParseNext(r)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("offset %d: %w", off, err)
		}
		out = append(out, Entry{Offset: off, Len: n, Inst: in})
		off += int(n)
	}
}

func unknown() inst.Instruction {
	return inst.Instruction{Op: inst.UNKNOWN}
}

// base decodes an unprefixed opcode byte, or dispatches on a prefix.
func base(c *cursor, op uint8) inst.Instruction {
	if fixed, ok := single[op]; ok {
		return inst.Instruction{Op: fixed}
	}
	switch op {
	case 0xCB:
		return bitTable(c)
	case 0xED:
		return extTable(c)
	case 0xDD:
		return indexed(c, inst.IX)
	case 0xFD:
		return indexed(c, inst.IY)
	}

	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	switch x {
	case 0:
		switch z {
		case 0:
			switch y {
			case 2:
				return inst.Instruction{Op: inst.DJNZ_E, D: c.d()}
			case 3:
				return inst.Instruction{Op: inst.JR_E, D: c.d()}
			default: // 4..7
				return inst.Instruction{Op: inst.JR_CC_E, Cond: cc[y-4], D: c.d()}
			}
		case 1:
			if q == 0 {
				return inst.Instruction{Op: inst.LD_RR_NN, RR: rp[p], NN: c.nn()}
			}
			return inst.Instruction{Op: inst.ADD_HL_RR, RR: rp[p]}
		case 2:
			switch op {
			case 0x22:
				return inst.Instruction{Op: inst.LD_NNI_HL, NN: c.nn()}
			case 0x2A:
				return inst.Instruction{Op: inst.LD_HL_NNI, NN: c.nn()}
			case 0x32:
				return inst.Instruction{Op: inst.LD_NNI_A, NN: c.nn()}
			default: // 0x3A
				return inst.Instruction{Op: inst.LD_A_NNI, NN: c.nn()}
			}
		case 3:
			if q == 0 {
				return inst.Instruction{Op: inst.INC_RR, RR: rp[p]}
			}
			return inst.Instruction{Op: inst.DEC_RR, RR: rp[p]}
		case 4:
			return inst.Instruction{Op: inst.INC_R8, R: r8[y]}
		case 5:
			return inst.Instruction{Op: inst.DEC_R8, R: r8[y]}
		case 6:
			if y == hli {
				return inst.Instruction{Op: inst.LD_HLI_N, N: c.next()}
			}
			return inst.Instruction{Op: inst.LD_R8_N, R: r8[y], N: c.next()}
		}

	case 1:
		switch {
		case y == hli:
			return inst.Instruction{Op: inst.LD_HLI_R8, R: r8[z]}
		case z == hli:
			return inst.Instruction{Op: inst.LD_R8_HLI, R: r8[y]}
		}
		return inst.Instruction{Op: inst.LD_R8_R8, R: r8[y], R2: r8[z]}

	case 2:
		if z == hli {
			return inst.Instruction{Op: aluOps[y].hli}
		}
		return inst.Instruction{Op: aluOps[y].r8, R: r8[z]}

	case 3:
		switch z {
		case 0:
			return inst.Instruction{Op: inst.RET_CC, Cond: cc[y]}
		case 1:
			return inst.Instruction{Op: inst.POP_RR, RR: rp2[p]}
		case 2:
			return inst.Instruction{Op: inst.JP_CC_NN, Cond: cc[y], NN: c.nn()}
		case 3:
			switch y {
			case 0:
				return inst.Instruction{Op: inst.JP_NN, NN: c.nn()}
			case 2:
				return inst.Instruction{Op: inst.OUT_N_A, N: c.next()}
			case 3:
				return inst.Instruction{Op: inst.IN_A_N, N: c.next()}
			}
		case 4:
			return inst.Instruction{Op: inst.CALL_CC_NN, Cond: cc[y], NN: c.nn()}
		case 5:
			if q == 0 {
				return inst.Instruction{Op: inst.PUSH_RR, RR: rp2[p]}
			}
			return inst.Instruction{Op: inst.CALL_NN, NN: c.nn()}
		case 6:
			return inst.Instruction{Op: aluOps[y].n, N: c.next()}
		case 7:
			return inst.Instruction{Op: inst.RST_P, N: y << 3}
		}
	}
	return unknown()
}

// bitTable decodes the byte after a CB prefix.
func bitTable(c *cursor) inst.Instruction {
	op := c.next()
	x, y, z := op>>6, (op>>3)&7, op&7
	if x == 0 {
		ops := rotOps[y]
		if z == hli {
			return inst.Instruction{Op: ops.hli}
		}
		if ops.r8 == inst.UNKNOWN {
			return unknown()
		}
		return inst.Instruction{Op: ops.r8, R: r8[z]}
	}
	ops := bitOps[x-1]
	if z == hli {
		return inst.Instruction{Op: ops.hli, Bit: y}
	}
	return inst.Instruction{Op: ops.r8, Bit: y, R: r8[z]}
}

// extTable decodes the byte after an ED prefix.
func extTable(c *cursor) inst.Instruction {
	op := c.next()
	if fixed, ok := extended[op]; ok {
		return inst.Instruction{Op: fixed}
	}
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	switch x {
	case 1:
		switch z {
		case 0:
			if y != hli {
				return inst.Instruction{Op: inst.IN_R8_C, R: r8[y]}
			}
		case 1:
			if y != hli {
				return inst.Instruction{Op: inst.OUT_C_R8, R: r8[y]}
			}
		case 2:
			if q == 0 {
				return inst.Instruction{Op: inst.SBC_HL_RR, RR: rp[p]}
			}
			return inst.Instruction{Op: inst.ADC_HL_RR, RR: rp[p]}
		case 3:
			if q == 0 {
				return inst.Instruction{Op: inst.LD_NNI_RR, RR: rp[p], NN: c.nn()}
			}
			return inst.Instruction{Op: inst.LD_RR_NNI, RR: rp[p], NN: c.nn()}
		}
	case 2:
		if y >= 4 && z <= 3 {
			return inst.Instruction{Op: blockOps[y-4][z]}
		}
	}
	return unknown()
}
