package decode

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oisee/z80emu/pkg/inst"
)

func TestParseNextCanonical(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
		want  inst.Instruction
		n     uint8
	}{
		{"ld a,b", []byte{0b01111000}, inst.Instruction{Op: inst.LD_R8_R8, R: inst.A, R2: inst.B}, 1},
		{"ld ix,nn", []byte{0xDD, 0x21, 0x01, 0x02}, inst.Instruction{Op: inst.LD_IDX_NN, X: inst.IX, NN: 0x0201}, 4},
		{"ld iy,nn", []byte{0xFD, 0x21, 0x01, 0x02}, inst.Instruction{Op: inst.LD_IDX_NN, X: inst.IY, NN: 0x0201}, 4},
		{"ld (hl),e", []byte{0x73}, inst.Instruction{Op: inst.LD_HLI_R8, R: inst.E}, 1},
		{"ld l,(hl)", []byte{0x6E}, inst.Instruction{Op: inst.LD_R8_HLI, R: inst.L}, 1},
		{"ld (hl),n", []byte{0x36, 0x7F}, inst.Instruction{Op: inst.LD_HLI_N, N: 0x7F}, 2},
		{"ld d,n", []byte{0x16, 0x80}, inst.Instruction{Op: inst.LD_R8_N, R: inst.D, N: 0x80}, 2},
		{"ld b,(ix+d)", []byte{0xDD, 0x46, 0x19}, inst.Instruction{Op: inst.LD_R8_IDXD, R: inst.B, X: inst.IX, D: 0x19}, 3},
		{"ld (iy-1),a", []byte{0xFD, 0x77, 0xFF}, inst.Instruction{Op: inst.LD_IDXD_R8, R: inst.A, X: inst.IY, D: -1}, 3},
		{"ld (ix+d),n", []byte{0xDD, 0x36, 0x02, 0xAA}, inst.Instruction{Op: inst.LD_IDXD_N, X: inst.IX, D: 2, N: 0xAA}, 4},
		{"ld a,(nn)", []byte{0x3A, 0x34, 0x12}, inst.Instruction{Op: inst.LD_A_NNI, NN: 0x1234}, 3},
		{"ld a,i", []byte{0xED, 0x57}, inst.Instruction{Op: inst.LD_A_I}, 2},
		{"ld sp,nn", []byte{0x31, 0x00, 0xFF}, inst.Instruction{Op: inst.LD_RR_NN, RR: inst.SP, NN: 0xFF00}, 3},
		{"ld bc,(nn)", []byte{0xED, 0x4B, 0x00, 0x40}, inst.Instruction{Op: inst.LD_RR_NNI, RR: inst.BC, NN: 0x4000}, 4},
		{"ld (nn),ix", []byte{0xDD, 0x22, 0x10, 0x20}, inst.Instruction{Op: inst.LD_NNI_IDX, X: inst.IX, NN: 0x2010}, 4},
		{"push af", []byte{0xF5}, inst.Instruction{Op: inst.PUSH_RR, RR: inst.AF}, 1},
		{"pop iy", []byte{0xFD, 0xE1}, inst.Instruction{Op: inst.POP_IDX, X: inst.IY}, 2},
		{"ex (sp),ix", []byte{0xDD, 0xE3}, inst.Instruction{Op: inst.EX_SPI_IDX, X: inst.IX}, 2},
		{"exx", []byte{0xD9}, inst.Instruction{Op: inst.EXX}, 1},
		{"ldir", []byte{0xED, 0xB0}, inst.Instruction{Op: inst.LDIR}, 2},
		{"cpdr", []byte{0xED, 0xB9}, inst.Instruction{Op: inst.CPDR}, 2},
		{"add a,(hl)", []byte{0x86}, inst.Instruction{Op: inst.ADD_A_HLI}, 1},
		{"sbc a,c", []byte{0x99}, inst.Instruction{Op: inst.SBC_A_R8, R: inst.C}, 1},
		{"cp n", []byte{0xFE, 0x10}, inst.Instruction{Op: inst.CP_N, N: 0x10}, 2},
		{"xor (iy+d)", []byte{0xFD, 0xAE, 0x03}, inst.Instruction{Op: inst.XOR_IDXD, X: inst.IY, D: 3}, 3},
		{"inc (ix+d)", []byte{0xDD, 0x34, 0x80}, inst.Instruction{Op: inst.INC_IDXD, X: inst.IX, D: -128}, 3},
		{"dec h", []byte{0x25}, inst.Instruction{Op: inst.DEC_R8, R: inst.H}, 1},
		{"add hl,sp", []byte{0x39}, inst.Instruction{Op: inst.ADD_HL_RR, RR: inst.SP}, 1},
		{"add ix,ix", []byte{0xDD, 0x29}, inst.Instruction{Op: inst.ADD_IDX_RR, X: inst.IX, RR: inst.IX}, 2},
		{"adc hl,de", []byte{0xED, 0x5A}, inst.Instruction{Op: inst.ADC_HL_RR, RR: inst.DE}, 2},
		{"im 2", []byte{0xED, 0x5E}, inst.Instruction{Op: inst.IM2}, 2},
		{"rl c", []byte{0xCB, 0x11}, inst.Instruction{Op: inst.RL_R8, R: inst.C}, 2},
		{"srl (hl)", []byte{0xCB, 0x3E}, inst.Instruction{Op: inst.SRL_HLI}, 2},
		{"bit 7,h", []byte{0xCB, 0x7C}, inst.Instruction{Op: inst.BIT_B_R8, Bit: 7, R: inst.H}, 2},
		{"res 0,(hl)", []byte{0xCB, 0x86}, inst.Instruction{Op: inst.RES_B_HLI}, 2},
		{"rr (ix+d)", []byte{0xDD, 0xCB, 0x05, 0x1E}, inst.Instruction{Op: inst.RR_IDXD, X: inst.IX, D: 5}, 4},
		{"set 6,(iy+d)", []byte{0xFD, 0xCB, 0xFE, 0xF6}, inst.Instruction{Op: inst.SET_B_IDXD, X: inst.IY, D: -2, Bit: 6}, 4},
		{"jr nz,e", []byte{0x20, 0xFE}, inst.Instruction{Op: inst.JR_CC_E, Cond: inst.NZ, D: -2}, 2},
		{"djnz e", []byte{0x10, 0x05}, inst.Instruction{Op: inst.DJNZ_E, D: 5}, 2},
		{"jp pe,nn", []byte{0xEA, 0x00, 0x80}, inst.Instruction{Op: inst.JP_CC_NN, Cond: inst.PE, NN: 0x8000}, 3},
		{"call nn", []byte{0xCD, 0x21, 0x43}, inst.Instruction{Op: inst.CALL_NN, NN: 0x4321}, 3},
		{"ret m", []byte{0xF8}, inst.Instruction{Op: inst.RET_CC, Cond: inst.M}, 1},
		{"rst 38h", []byte{0xFF}, inst.Instruction{Op: inst.RST_P, N: 0x38}, 1},
		{"jp (iy)", []byte{0xFD, 0xE9}, inst.Instruction{Op: inst.JP_IDX, X: inst.IY}, 2},
		{"in e,(c)", []byte{0xED, 0x58}, inst.Instruction{Op: inst.IN_R8_C, R: inst.E}, 2},
		{"out (n),a", []byte{0xD3, 0xFE}, inst.Instruction{Op: inst.OUT_N_A, N: 0xFE}, 2},
		{"otir", []byte{0xED, 0xB3}, inst.Instruction{Op: inst.OTIR}, 2},
		{"halt", []byte{0x76}, inst.Instruction{Op: inst.HALT}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Trailing bytes must not be consumed.
			r := bytes.NewReader(append(append([]byte{}, tc.bytes...), 0xAA, 0xBB))
			n, in, err := ParseNext(r)
			require.NoError(t, err)
			assert.Equal(t, tc.n, n)
			assert.Equal(t, tc.want, in)
			assert.Equal(t, 2, r.Len(), "bytes left in stream")
		})
	}
}

func TestParseNextUnknown(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
		n     uint8
	}{
		{"sll b", []byte{0xCB, 0x30}, 2},
		{"ed nop", []byte{0xED, 0x00}, 2},
		{"neg duplicate", []byte{0xED, 0x4C}, 2},
		{"in f,(c)", []byte{0xED, 0x70}, 2},
		{"ld ixh,n", []byte{0xDD, 0x26}, 2},
		{"dd halt", []byte{0xDD, 0x76}, 2},
		{"dd dd", []byte{0xDD, 0xDD}, 2},
		{"fd ed", []byte{0xFD, 0xED}, 2},
		{"ddcb register copy", []byte{0xDD, 0xCB, 0x01, 0x00}, 4},
		{"ddcb sll", []byte{0xFD, 0xCB, 0x01, 0x36}, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, in, err := Bytes(tc.bytes)
			require.NoError(t, err)
			assert.Equal(t, inst.UNKNOWN, in.Op)
			assert.Equal(t, tc.n, n)
		})
	}
}

func TestParseNextEmpty(t *testing.T) {
	n, _, err := Bytes(nil)
	assert.Equal(t, io.EOF, err)
	assert.Zero(t, n)
}

func TestParseNextTruncated(t *testing.T) {
	tests := [][]byte{
		{0xDD},
		{0xDD, 0x21},
		{0xDD, 0x21, 0x01},
		{0xCB},
		{0xED},
		{0xED, 0x43, 0x00},
		{0x3E},
		{0xC3, 0x00},
		{0x18},
		{0xDD, 0xCB, 0x01},
		{0xFD, 0x36, 0x01},
	}
	for _, b := range tests {
		_, in, err := Bytes(b)
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("% X: err = %v, want ErrTruncated", b, err)
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("% X: err does not wrap io.ErrUnexpectedEOF", b)
		}
		if in != (inst.Instruction{}) {
			t.Errorf("% X: got partial instruction %+v", b, in)
		}
	}
}

// TestRoundTrip decodes every opcode of every table and re-encodes it.
func TestRoundTrip(t *testing.T) {
	tail := []byte{0x05, 0x34, 0x12}
	var prefixes = [][]byte{
		nil, {0xCB}, {0xED}, {0xDD}, {0xFD},
	}
	check := func(b []byte) {
		n, in, err := Bytes(b)
		if err != nil {
			t.Errorf("% X: %v", b, err)
			return
		}
		if in.Op == inst.UNKNOWN {
			return
		}
		if int(n) != inst.ByteSize(in.Op) {
			t.Errorf("% X (%s): consumed %d, catalog size %d", b, in, n, inst.ByteSize(in.Op))
		}
		enc, err := inst.Encode(in)
		if err != nil {
			t.Errorf("% X (%s): encode: %v", b, in, err)
			return
		}
		if !bytes.Equal(enc, b[:n]) {
			t.Errorf("% X (%s): re-encoded as % X", b[:n], in, enc)
		}
	}
	for _, pfx := range prefixes {
		for op := 0; op < 256; op++ {
			b := append(append(append([]byte{}, pfx...), uint8(op)), tail...)
			check(b)
		}
	}
	for _, pfx := range []uint8{0xDD, 0xFD} {
		for op := 0; op < 256; op++ {
			check([]byte{pfx, 0xCB, 0x7F, uint8(op)})
		}
	}
}

func TestAll(t *testing.T) {
	prog := []byte{
		0x3E, 0x01, // LD A, 01h
		0xDD, 0x21, 0x00, 0x80, // LD IX, 8000h
		0xED, 0xB0, // LDIR
		0xCB, // truncated
	}
	got, err := All(prog)
	require.ErrorIs(t, err, ErrTruncated)
	require.Len(t, got, 3)
	assert.Equal(t, Entry{Offset: 0, Len: 2, Inst: inst.Instruction{Op: inst.LD_R8_N, R: inst.A, N: 1}}, got[0])
	assert.Equal(t, 2, got[1].Offset)
	assert.Equal(t, inst.LD_IDX_NN, got[1].Inst.Op)
	assert.Equal(t, 6, got[2].Offset)
	assert.Equal(t, inst.LDIR, got[2].Inst.Op)

	got, err = All(prog[:8])
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
