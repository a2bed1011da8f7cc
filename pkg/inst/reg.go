package inst

// Reg names one of the 16 single-byte slots of the register file:
// the main set A..L and its alternate set A2..L2 (A', B', ...).
type Reg uint8

const (
	A Reg = iota
	B
	C
	D
	E
	F
	H
	L
	A2
	B2
	C2
	D2
	E2
	F2
	H2
	L2

	RegCount // sentinel
)

// Index returns the register-file slot for r. It is the only place a Reg
// is turned into an integer, and it is total: every Reg maps into 0..15.
func (r Reg) Index() int {
	return int(r & 0x0F)
}

var regNames = [RegCount]string{
	"A", "B", "C", "D", "E", "F", "H", "L",
	"A'", "B'", "C'", "D'", "E'", "F'", "H'", "L'",
}

func (r Reg) String() string {
	return regNames[r.Index()]
}

// BigReg is a 16-bit register: either a big-endian pair of Regs
// (BC, DE, HL, AF) or a dedicated 16-bit register (SP, IX, IY).
type BigReg uint8

const (
	BC BigReg = iota
	DE
	HL
	SP
	IX
	IY
	AF
)

var bigRegNames = [...]string{"BC", "DE", "HL", "SP", "IX", "IY", "AF"}

func (rr BigReg) String() string {
	if int(rr) < len(bigRegNames) {
		return bigRegNames[rr]
	}
	return "??"
}

// Pair returns the high and low Regs of a register pair.
// ok is false for SP, IX and IY, which have no byte halves in the file.
func (rr BigReg) Pair() (hi, lo Reg, ok bool) {
	switch rr {
	case BC:
		return B, C, true
	case DE:
		return D, E, true
	case HL:
		return H, L, true
	case AF:
		return A, F, true
	}
	return 0, 0, false
}

// Condition is a branch condition, in encoding order.
type Condition uint8

const (
	NZ Condition = iota // non-zero
	Z                   // zero
	NC                  // no carry
	CY                  // carry
	PO                  // parity odd
	PE                  // parity even
	P                   // sign positive
	M                   // sign negative
)

var condNames = [...]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

func (cc Condition) String() string {
	return condNames[cc&7]
}
