// Package machine drives a cpu.State: fetch at PC, decode, advance PC,
// execute, until something tells it to stop.
package machine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oisee/z80emu/pkg/cpu"
	"github.com/oisee/z80emu/pkg/decode"
	"github.com/oisee/z80emu/pkg/inst"
)

// StopReason says why Run returned.
type StopReason int

const (
	StopHalt      StopReason = iota // HALT executed
	StopBudget                      // MaxSteps reached
	StopCondition                   // stop condition became true
	StopCanceled                    // context done
)

var reasonNames = [...]string{"halt", "budget", "condition", "canceled"}

func (r StopReason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("StopReason(%d)", int(r))
}

// Config holds run configuration.
type Config struct {
	MaxSteps uint64 // Step budget (0 = unlimited)
	StopWhen string // Starlark expression checked after every step
	Trace    bool   // Log every executed instruction at debug level
	Log      logrus.FieldLogger
}

// Result summarizes a Run.
type Result struct {
	Steps  uint64
	Reason StopReason
	PC     uint16
}

// Machine is a host loop around one cpu.State.
type Machine struct {
	CPU  *cpu.State
	cfg  Config
	log  logrus.FieldLogger
	stop *Condition
}

// New creates a machine for s. A nil s gets a fresh zeroed state.
func New(s *cpu.State, cfg Config) (*Machine, error) {
	if s == nil {
		s = cpu.New()
	}
	m := &Machine{CPU: s, cfg: cfg, log: cfg.Log}
	if m.log == nil {
		m.log = logrus.StandardLogger()
	}
	if cfg.StopWhen != "" {
		c, err := CompileCondition(cfg.StopWhen)
		if err != nil {
			return nil, err
		}
		m.stop = c
	}
	return m, nil
}

// Load copies code into memory at addr, wrapping at the top of memory.
func (m *Machine) Load(addr uint16, code []byte) {
	for i, b := range code {
		m.CPU.Mem[addr+uint16(i)] = b
	}
}

// Step executes the instruction at PC and returns it with its length.
func (m *Machine) Step() (uint8, inst.Instruction, error) {
	s := m.CPU
	pc := s.PC
	n, in, err := decode.ParseNext(&fetcher{mem: &s.Mem, addr: pc})
	if err != nil {
		return 0, in, fmt.Errorf("decode at %04Xh: %w", pc, err)
	}
	s.PC = pc + uint16(n)
	if m.cfg.Trace {
		m.log.WithFields(logrus.Fields{
			"pc":  fmt.Sprintf("%04X", pc),
			"op":  in.String(),
			"len": n,
		}).Debug("step")
	}
	cpu.Exec(s, in)
	return n, in, nil
}

// Run steps until HALT, the step budget, the stop condition or ctx ends.
func (m *Machine) Run(ctx context.Context) (Result, error) {
	var res Result
	s := m.CPU
	s.Halted = false
	for {
		if res.Steps&0x3FF == 0 {
			if err := ctx.Err(); err != nil {
				res.Reason, res.PC = StopCanceled, s.PC
				return res, err
			}
		}
		if m.cfg.MaxSteps > 0 && res.Steps >= m.cfg.MaxSteps {
			res.Reason = StopBudget
			break
		}
		if _, _, err := m.Step(); err != nil {
			res.PC = s.PC
			return res, err
		}
		res.Steps++
		if s.Halted {
			res.Reason = StopHalt
			break
		}
		if m.stop != nil {
			hit, err := m.stop.Eval(s)
			if err != nil {
				res.PC = s.PC
				return res, err
			}
			if hit {
				res.Reason = StopCondition
				break
			}
		}
	}
	res.PC = s.PC
	m.log.WithFields(logrus.Fields{
		"steps":  res.Steps,
		"reason": res.Reason.String(),
		"pc":     fmt.Sprintf("%04X", res.PC),
	}).Info("run stopped")
	return res, nil
}

// fetcher reads instruction bytes from memory, wrapping at 64 KiB.
// It never runs out, so decoding from memory cannot be truncated.
type fetcher struct {
	mem  *[65536]uint8
	addr uint16
}

func (f *fetcher) ReadByte() (byte, error) {
	b := f.mem[f.addr]
	f.addr++
	return b, nil
}
