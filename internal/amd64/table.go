// Completion: 100% - Encoding table complete
package amd64

import (
	"fmt"

	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/xyproto/lirgen/internal/lir"
)

// Operation is an abstract machine operation, independent of operand size
// and encoding shape
type Operation int

const (
	OpAdd Operation = iota
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpXor
	OpCmp
	OpTest
	OpInc
	OpDec
	OpNeg
	OpNot
	OpWideIMul // RDX:RAX := RAX * src, signed
	OpWideMul  // RDX:RAX := RAX * src, unsigned
	OpIDiv
	OpUDiv
	OpSignExtendAX // CDQ/CQO
	OpShl
	OpSar
	OpShr
	OpRol
	OpRor
	OpSqrt
	OpRound
	OpUcomis
	OpMov
	OpMovSXB
	OpMovSXW
	OpMovSXD
	OpMovZXB
	OpMovZXW
	OpMovD // 32-bit move between a general purpose and an XMM register
	OpMovQ // 64-bit move between a general purpose and an XMM register
	OpPopcnt
	OpBsf
	OpBsr
	OpLzcnt
	OpTzcnt
	OpCvtSD2SS
	OpCvtSS2SD
	OpCvtTSD2SI
	OpCvtTSS2SI
	OpCvtSI2SD
	OpCvtSI2SS
	OpFPRem
)

var opNames = [...]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpCmp: "cmp", OpTest: "test",
	OpInc: "inc", OpDec: "dec", OpNeg: "neg", OpNot: "not",
	OpWideIMul: "imul-wide", OpWideMul: "mul-wide",
	OpIDiv: "idiv", OpUDiv: "udiv", OpSignExtendAX: "cdq",
	OpShl: "shl", OpSar: "sar", OpShr: "shr", OpRol: "rol", OpRor: "ror",
	OpSqrt: "sqrt", OpRound: "round", OpUcomis: "ucomis",
	OpMov: "mov", OpMovSXB: "movsxb", OpMovSXW: "movsxw", OpMovSXD: "movsxd",
	OpMovZXB: "movzxb", OpMovZXW: "movzxw", OpMovD: "movd", OpMovQ: "movq",
	OpPopcnt: "popcnt", OpBsf: "bsf", OpBsr: "bsr", OpLzcnt: "lzcnt", OpTzcnt: "tzcnt",
	OpCvtSD2SS: "cvtsd2ss", OpCvtSS2SD: "cvtss2sd",
	OpCvtTSD2SI: "cvttsd2si", OpCvtTSS2SI: "cvttss2si",
	OpCvtSI2SD: "cvtsi2sd", OpCvtSI2SS: "cvtsi2ss",
	OpFPRem: "fprem",
}

func (op Operation) String() string {
	if int(op) >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op_%d", int(op))
}

// Shape is the operand layout an opcode is encoded with
type Shape int

const (
	ShapeRM  Shape = iota // reg, reg/mem (destructive for arithmetic)
	ShapeMI               // reg/mem, imm
	ShapeRRM              // reg, reg, reg/mem (VEX)
	ShapeM                // single operand
	ShapeM1               // shift by one
	ShapeMC               // shift by CL
	ShapeRMI              // reg, reg/mem, imm
	ShapeMR               // reg/mem, reg
)

func (s Shape) String() string {
	switch s {
	case ShapeRM:
		return "RM"
	case ShapeMI:
		return "MI"
	case ShapeRRM:
		return "RRM"
	case ShapeM:
		return "M"
	case ShapeM1:
		return "M1"
	case ShapeMC:
		return "MC"
	case ShapeRMI:
		return "RMI"
	case ShapeMR:
		return "MR"
	}
	return fmt.Sprintf("shape_%d", int(s))
}

type encodingKey struct {
	op    Operation
	size  lir.OperandSize
	shape Shape
}

// encodings is filled once at init and only read afterwards, so it is safe
// to share between compilations
var encodings = make(map[encodingKey]obj.As)

// bySize lists one opcode per operand size
type bySize map[lir.OperandSize]obj.As

func register(op Operation, ops bySize, shapes ...Shape) {
	for size, as := range ops {
		for _, shape := range shapes {
			key := encodingKey{op, size, shape}
			if _, dup := encodings[key]; dup {
				panic(fmt.Sprintf("duplicate encoding %s.%s %s", op, size, shape))
			}
			encodings[key] = as
		}
	}
}

func init() {
	// integer arithmetic and logic, register and immediate forms
	register(OpAdd, bySize{lir.BYTE: x86.AADDB, lir.WORD: x86.AADDW, lir.DWORD: x86.AADDL, lir.QWORD: x86.AADDQ}, ShapeRM, ShapeMI)
	register(OpSub, bySize{lir.BYTE: x86.ASUBB, lir.WORD: x86.ASUBW, lir.DWORD: x86.ASUBL, lir.QWORD: x86.ASUBQ}, ShapeRM, ShapeMI)
	register(OpAnd, bySize{lir.BYTE: x86.AANDB, lir.WORD: x86.AANDW, lir.DWORD: x86.AANDL, lir.QWORD: x86.AANDQ}, ShapeRM, ShapeMI)
	register(OpOr, bySize{lir.BYTE: x86.AORB, lir.WORD: x86.AORW, lir.DWORD: x86.AORL, lir.QWORD: x86.AORQ}, ShapeRM, ShapeMI)
	register(OpXor, bySize{lir.BYTE: x86.AXORB, lir.WORD: x86.AXORW, lir.DWORD: x86.AXORL, lir.QWORD: x86.AXORQ}, ShapeRM, ShapeMI)
	register(OpCmp, bySize{lir.BYTE: x86.ACMPB, lir.WORD: x86.ACMPW, lir.DWORD: x86.ACMPL, lir.QWORD: x86.ACMPQ}, ShapeRM, ShapeMI)
	register(OpTest, bySize{lir.BYTE: x86.ATESTB, lir.WORD: x86.ATESTW, lir.DWORD: x86.ATESTL, lir.QWORD: x86.ATESTQ}, ShapeRM)

	// unary
	register(OpInc, bySize{lir.DWORD: x86.AINCL, lir.QWORD: x86.AINCQ}, ShapeM)
	register(OpDec, bySize{lir.DWORD: x86.ADECL, lir.QWORD: x86.ADECQ}, ShapeM)
	register(OpNeg, bySize{lir.DWORD: x86.ANEGL, lir.QWORD: x86.ANEGQ}, ShapeM)
	register(OpNot, bySize{lir.DWORD: x86.ANOTL, lir.QWORD: x86.ANOTQ}, ShapeM)

	// multiply and divide
	register(OpMul, bySize{lir.DWORD: x86.AIMULL, lir.QWORD: x86.AIMULQ}, ShapeRM)
	register(OpMul, bySize{lir.DWORD: x86.AIMUL3L, lir.QWORD: x86.AIMUL3Q}, ShapeRMI)
	register(OpWideIMul, bySize{lir.DWORD: x86.AIMULL, lir.QWORD: x86.AIMULQ}, ShapeM)
	register(OpWideMul, bySize{lir.DWORD: x86.AMULL, lir.QWORD: x86.AMULQ}, ShapeM)
	register(OpIDiv, bySize{lir.DWORD: x86.AIDIVL, lir.QWORD: x86.AIDIVQ}, ShapeM)
	register(OpUDiv, bySize{lir.DWORD: x86.ADIVL, lir.QWORD: x86.ADIVQ}, ShapeM)
	register(OpSignExtendAX, bySize{lir.DWORD: x86.ACDQ, lir.QWORD: x86.ACQO}, ShapeM)

	// shifts and rotates share one opcode per size across the three shapes
	register(OpShl, bySize{lir.DWORD: x86.ASHLL, lir.QWORD: x86.ASHLQ}, ShapeM1, ShapeMI, ShapeMC)
	register(OpSar, bySize{lir.DWORD: x86.ASARL, lir.QWORD: x86.ASARQ}, ShapeM1, ShapeMI, ShapeMC)
	register(OpShr, bySize{lir.DWORD: x86.ASHRL, lir.QWORD: x86.ASHRQ}, ShapeM1, ShapeMI, ShapeMC)
	register(OpRol, bySize{lir.DWORD: x86.AROLL, lir.QWORD: x86.AROLQ}, ShapeM1, ShapeMI, ShapeMC)
	register(OpRor, bySize{lir.DWORD: x86.ARORL, lir.QWORD: x86.ARORQ}, ShapeM1, ShapeMI, ShapeMC)

	// scalar float arithmetic, SSE two-operand and VEX three-operand
	register(OpAdd, bySize{lir.SS: x86.AADDSS, lir.SD: x86.AADDSD}, ShapeRM)
	register(OpAdd, bySize{lir.SS: x86.AVADDSS, lir.SD: x86.AVADDSD}, ShapeRRM)
	register(OpSub, bySize{lir.SS: x86.ASUBSS, lir.SD: x86.ASUBSD}, ShapeRM)
	register(OpSub, bySize{lir.SS: x86.AVSUBSS, lir.SD: x86.AVSUBSD}, ShapeRRM)
	register(OpMul, bySize{lir.SS: x86.AMULSS, lir.SD: x86.AMULSD}, ShapeRM)
	register(OpMul, bySize{lir.SS: x86.AVMULSS, lir.SD: x86.AVMULSD}, ShapeRRM)
	register(OpDiv, bySize{lir.SS: x86.ADIVSS, lir.SD: x86.ADIVSD}, ShapeRM)
	register(OpDiv, bySize{lir.SS: x86.AVDIVSS, lir.SD: x86.AVDIVSD}, ShapeRRM)
	register(OpSqrt, bySize{lir.SS: x86.ASQRTSS, lir.SD: x86.ASQRTSD}, ShapeRM)
	register(OpRound, bySize{lir.SS: x86.AROUNDSS, lir.SD: x86.AROUNDSD}, ShapeRMI)
	register(OpUcomis, bySize{lir.SS: x86.AUCOMISS, lir.SD: x86.AUCOMISD}, ShapeRM)
	register(OpFPRem, bySize{lir.SS: x86.AFPREM, lir.SD: x86.AFPREM}, ShapeM)

	// packed bitwise float operations used for masks
	register(OpAnd, bySize{lir.PS: x86.AANDPS, lir.PD: x86.AANDPD}, ShapeRM)
	register(OpAnd, bySize{lir.PS: x86.AVANDPS, lir.PD: x86.AVANDPD}, ShapeRRM)
	register(OpOr, bySize{lir.PS: x86.AORPS, lir.PD: x86.AORPD}, ShapeRM)
	register(OpOr, bySize{lir.PS: x86.AVORPS, lir.PD: x86.AVORPD}, ShapeRRM)
	register(OpXor, bySize{lir.PS: x86.AXORPS, lir.PD: x86.AXORPD}, ShapeRM)
	register(OpXor, bySize{lir.PS: x86.AVXORPS, lir.PD: x86.AVXORPD}, ShapeRRM)

	// moves
	register(OpMov, bySize{lir.BYTE: x86.AMOVB, lir.WORD: x86.AMOVW, lir.DWORD: x86.AMOVL, lir.QWORD: x86.AMOVQ}, ShapeRM, ShapeMI, ShapeMR)
	register(OpMov, bySize{lir.SS: x86.AMOVSS, lir.SD: x86.AMOVSD}, ShapeRM, ShapeMR)
	register(OpMovSXB, bySize{lir.DWORD: x86.AMOVBLSX, lir.QWORD: x86.AMOVBQSX}, ShapeRM)
	register(OpMovSXW, bySize{lir.DWORD: x86.AMOVWLSX, lir.QWORD: x86.AMOVWQSX}, ShapeRM)
	register(OpMovSXD, bySize{lir.QWORD: x86.AMOVLQSX}, ShapeRM)
	register(OpMovZXB, bySize{lir.DWORD: x86.AMOVBLZX, lir.QWORD: x86.AMOVBQZX}, ShapeRM)
	register(OpMovZXW, bySize{lir.DWORD: x86.AMOVWLZX, lir.QWORD: x86.AMOVWQZX}, ShapeRM)
	register(OpMovD, bySize{lir.DWORD: x86.AMOVL}, ShapeRM, ShapeMR)
	register(OpMovQ, bySize{lir.QWORD: x86.AMOVQ}, ShapeRM, ShapeMR)

	// bit counting
	register(OpPopcnt, bySize{lir.DWORD: x86.APOPCNTL, lir.QWORD: x86.APOPCNTQ}, ShapeRM)
	register(OpBsf, bySize{lir.DWORD: x86.ABSFL, lir.QWORD: x86.ABSFQ}, ShapeRM)
	register(OpBsr, bySize{lir.DWORD: x86.ABSRL, lir.QWORD: x86.ABSRQ}, ShapeRM)
	register(OpLzcnt, bySize{lir.DWORD: x86.ALZCNTL, lir.QWORD: x86.ALZCNTQ}, ShapeRM)
	register(OpTzcnt, bySize{lir.DWORD: x86.ATZCNTL, lir.QWORD: x86.ATZCNTQ}, ShapeRM)

	// conversions; the size is the integer side where there is one
	register(OpCvtSD2SS, bySize{lir.SD: x86.ACVTSD2SS}, ShapeRM)
	register(OpCvtSS2SD, bySize{lir.SS: x86.ACVTSS2SD}, ShapeRM)
	register(OpCvtTSD2SI, bySize{lir.DWORD: x86.ACVTTSD2SL, lir.QWORD: x86.ACVTTSD2SQ}, ShapeRM)
	register(OpCvtTSS2SI, bySize{lir.DWORD: x86.ACVTTSS2SL, lir.QWORD: x86.ACVTTSS2SQ}, ShapeRM)
	register(OpCvtSI2SD, bySize{lir.DWORD: x86.ACVTSL2SD, lir.QWORD: x86.ACVTSQ2SD}, ShapeRM)
	register(OpCvtSI2SS, bySize{lir.DWORD: x86.ACVTSL2SS, lir.QWORD: x86.ACVTSQ2SS}, ShapeRM)
}

// Lookup returns the opcode for op encoded with the given size and shape
func Lookup(op Operation, size lir.OperandSize, shape Shape) (obj.As, error) {
	if as, ok := encodings[encodingKey{op, size, shape}]; ok {
		return as, nil
	}
	return obj.AXXX, fmt.Errorf("%s.%s %s: %w", op, size, shape, ErrUnsupported)
}

// mustLookup is Lookup for combinations the lowering code never asks for
// unless the table is wrong
func mustLookup(op Operation, size lir.OperandSize, shape Shape) obj.As {
	as, err := Lookup(op, size, shape)
	if err != nil {
		shouldNotReachHere("%v", err)
	}
	return as
}

// Operations returns the names of all operations known to the table
func Operations() []string {
	names := make([]string, 0, len(opNames))
	for _, name := range opNames {
		names = append(names, name)
	}
	return names
}

// incDecFor returns the single-operand opcode that replaces an add or
// subtract of +1/-1. Only used when the caller does not need the carry flag,
// since INC and DEC leave it untouched.
func incDecFor(op Operation, imm int32) (Operation, bool) {
	switch {
	case op == OpAdd && imm == 1, op == OpSub && imm == -1:
		return OpInc, true
	case op == OpSub && imm == 1, op == OpAdd && imm == -1:
		return OpDec, true
	}
	return op, false
}
