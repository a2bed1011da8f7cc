package machine

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oisee/z80emu/pkg/cpu"
	"github.com/oisee/z80emu/pkg/inst"
)

// sumLoop adds 5+4+3+2+1 into A, then halts at 0007h.
var sumLoop = []byte{
	0x3E, 0x00, // LD A, 0
	0x06, 0x05, // LD B, 5
	0x80,       // ADD A, B
	0x10, 0xFD, // DJNZ -3
	0x76, // HALT
}

func newMachine(t *testing.T, cfg Config) *Machine {
	t.Helper()
	if cfg.Log == nil {
		log, _ := test.NewNullLogger()
		cfg.Log = log
	}
	m, err := New(nil, cfg)
	require.NoError(t, err)
	m.Load(0, sumLoop)
	return m
}

func TestRunUntilHalt(t *testing.T) {
	m := newMachine(t, Config{})
	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopHalt, res.Reason)
	assert.Equal(t, uint64(13), res.Steps)
	assert.Equal(t, uint16(0x0008), res.PC)
	assert.Equal(t, uint8(15), m.CPU.Reg(inst.A))
	assert.Zero(t, m.CPU.Reg(inst.B))
	assert.True(t, m.CPU.Halted)
}

func TestRunBudget(t *testing.T) {
	m := newMachine(t, Config{MaxSteps: 3})
	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopBudget, res.Reason)
	assert.Equal(t, uint64(3), res.Steps)
	assert.Equal(t, uint16(0x0005), res.PC)
}

func TestRunStopCondition(t *testing.T) {
	tests := []struct {
		expr  string
		steps uint64
		pc    uint16
	}{
		{"pc == 0x0007", 12, 0x0007},
		{"peek(0x0004) == 0x80 and b == 3", 6, 0x0004},
		{"a >= 9", 5, 0x0005},
		{"bc == 0x0400", 4, 0x0004},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			m := newMachine(t, Config{StopWhen: tc.expr})
			res, err := m.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, StopCondition, res.Reason)
			assert.Equal(t, tc.steps, res.Steps)
			assert.Equal(t, tc.pc, res.PC)
		})
	}
}

func TestBadStopCondition(t *testing.T) {
	for _, expr := range []string{"pc ==", "nosuch == 1", "a = 1"} {
		_, err := New(nil, Config{StopWhen: expr})
		assert.ErrorIs(t, err, ErrStopExpr, expr)
	}
}

func TestStopConditionRuntimeError(t *testing.T) {
	m := newMachine(t, Config{StopWhen: "a // 0 == 1"})
	_, err := m.Run(context.Background())
	assert.Error(t, err)
}

func TestRunCanceled(t *testing.T) {
	m := newMachine(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopCanceled, res.Reason)
	assert.Zero(t, res.Steps)
}

func TestTrace(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	m := newMachine(t, Config{Trace: true, Log: log})
	res, err := m.Run(context.Background())
	require.NoError(t, err)

	var steps []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "step" {
			steps = append(steps, e)
		}
	}
	require.Len(t, steps, int(res.Steps))
	assert.Equal(t, "0000", steps[0].Data["pc"])
	assert.Equal(t, "LD A, 00h", steps[0].Data["op"])
	assert.Equal(t, uint8(2), steps[0].Data["len"])
	assert.Equal(t, "HALT", steps[len(steps)-1].Data["op"])

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "run stopped", last.Message)
	assert.Equal(t, "halt", last.Data["reason"])
}

func TestStepWrapsMemory(t *testing.T) {
	s := cpu.New()
	s.PC = 0xFFFF
	log, _ := test.NewNullLogger()
	m, err := New(s, Config{Log: log})
	require.NoError(t, err)
	m.Load(0xFFFF, []byte{0x3E, 0x42}) // LD A, 42h across the top of memory
	assert.Equal(t, uint8(0x42), s.Mem[0x0000])

	n, in, err := m.Step()
	require.NoError(t, err)
	assert.Equal(t, uint8(2), n)
	assert.Equal(t, inst.LD_R8_N, in.Op)
	assert.Equal(t, uint16(0x0001), s.PC)
	assert.Equal(t, uint8(0x42), s.Reg(inst.A))
}

func TestStepCallReturn(t *testing.T) {
	log, _ := test.NewNullLogger()
	m, err := New(nil, Config{Log: log})
	require.NoError(t, err)
	m.CPU.SP = 0x8000
	m.Load(0x0000, []byte{
		0xCD, 0x10, 0x00, // CALL 0010h
		0x76, // HALT
	})
	m.Load(0x0010, []byte{
		0x3E, 0x07, // LD A, 7
		0xC9, // RET
	})
	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), res.Steps)
	assert.Equal(t, uint8(7), m.CPU.Reg(inst.A))
	assert.Equal(t, uint16(0x8000), m.CPU.SP)
	assert.Equal(t, uint16(0x0003), m.CPU.Read16(0x7FFE))
}
