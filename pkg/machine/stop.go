package machine

import (
	"errors"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/oisee/z80emu/pkg/cpu"
	"github.com/oisee/z80emu/pkg/inst"
)

// ErrStopExpr is returned for a stop condition that does not compile.
var ErrStopExpr = errors.New("invalid stop condition")

// stopParams are the names a stop condition can use, in call order.
var stopParams = []string{
	"pc", "sp", "ix", "iy", "i", "r",
	"a", "f", "b", "c", "d", "e", "h", "l",
	"af", "bc", "de", "hl",
}

const stateKey = "state"

// Condition is a compiled Starlark boolean expression over the machine
// registers, e.g. "pc == 0x8000 and a == 0". peek(addr) reads memory.
type Condition struct {
	src    string
	fn     *starlark.Function
	thread *starlark.Thread
}

// CompileCondition parses expr once so it can be checked every step.
func CompileCondition(expr string) (*Condition, error) {
	prog := "def stop("
	for i, p := range stopParams {
		if i > 0 {
			prog += ", "
		}
		prog += p
	}
	prog += "):\n    return (" + expr + ")\n"

	thread := &starlark.Thread{Name: "stop"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{
		"peek": starlark.NewBuiltin("peek", peek),
	}
	globals, err := starlark.ExecFileOptions(&opts, thread, "stop", prog, pred)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrStopExpr, expr, err)
	}
	fn, ok := globals["stop"].(*starlark.Function)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrStopExpr, expr)
	}
	return &Condition{src: expr, fn: fn, thread: thread}, nil
}

func (c *Condition) String() string {
	return c.src
}

// Eval reports whether the condition holds for s.
func (c *Condition) Eval(s *cpu.State) (bool, error) {
	u := func(v uint16) starlark.Value { return starlark.MakeInt(int(v)) }
	b := func(r inst.Reg) starlark.Value { return starlark.MakeInt(int(s.Reg(r))) }
	args := starlark.Tuple{
		u(s.PC), u(s.SP), u(s.IX), u(s.IY),
		starlark.MakeInt(int(s.I)), starlark.MakeInt(int(s.R)),
		b(inst.A), b(inst.F), b(inst.B), b(inst.C), b(inst.D), b(inst.E), b(inst.H), b(inst.L),
		u(s.Wide(inst.AF)), u(s.Wide(inst.BC)), u(s.Wide(inst.DE)), u(s.Wide(inst.HL)),
	}
	c.thread.SetLocal(stateKey, s)
	v, err := starlark.Call(c.thread, c.fn, args, nil)
	if err != nil {
		return false, fmt.Errorf("stop condition %q: %w", c.src, err)
	}
	return bool(v.Truth()), nil
}

func peek(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addr int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &addr); err != nil {
		return nil, err
	}
	s, ok := thread.Local(stateKey).(*cpu.State)
	if !ok {
		return nil, fmt.Errorf("%s: no machine state", b.Name())
	}
	return starlark.MakeInt(int(s.Mem[uint16(addr)])), nil
}
