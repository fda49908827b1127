// Completion: 100% - Math lowering complete
package amd64

import (
	"fmt"

	"github.com/twitchyliquid64/golang-asm/obj"

	"github.com/xyproto/lirgen/internal/lir"
)

// MathAbs clears the sign bit of a float
func (l *Lowerer) MathAbs(v lir.Value) *lir.Variable {
	switch k := v.ValueKind().Platform; k {
	case lir.Single:
		return l.emitMaskOp(OpAnd, lir.PS, v, lir.FloatBits(0x7FFFFFFF))
	case lir.Double:
		return l.emitMaskOp(OpAnd, lir.PD, v, lir.DoubleBits(0x7FFFFFFFFFFFFFFF))
	default:
		shouldNotReachHere("abs of %s", k)
		return nil
	}
}

// MathSqrt lowers the correctly rounded square root
func (l *Lowerer) MathSqrt(v lir.Value) *lir.Variable {
	var size lir.OperandSize
	switch k := v.ValueKind().Platform; k {
	case lir.Single:
		size = lir.SS
	case lir.Double:
		size = lir.SD
	default:
		shouldNotReachHere("sqrt of %s", k)
	}
	result := l.newVariable(lir.Combine(v))
	l.append(&lir.Instr{
		Op:     mustLookup(OpSqrt, size, ShapeRM),
		Form:   lir.FormRM,
		Size:   size,
		Result: result,
		Inputs: []lir.Value{l.asAllocatable(v)},
	})
	return result
}

// emitIntrinsic emits a double precision math stub. Each call site gets its
// own scratch slot from the frame of the current compilation.
func (l *Lowerer) emitIntrinsic(name string, inputs ...lir.Value) *lir.Variable {
	for _, in := range inputs {
		if in.ValueKind().Platform != lir.Double {
			shouldNotReachHere("%s of %s", name, in.ValueKind())
		}
	}
	result := l.newVariable(lir.Combine(inputs...))
	slot := l.gen.Frame().AllocateSpillSlot(lir.ValueOf(lir.QWord))
	args := make([]lir.Value, len(inputs))
	for i, in := range inputs {
		args[i] = l.asAllocatable(in)
	}
	l.append(&lir.Instr{
		Op:        obj.AXXX,
		Intrinsic: name,
		Form:      lir.FormIntrinsic,
		Size:      lir.SD,
		Result:    result,
		Inputs:    args,
		Temps:     []lir.Value{slot},
	})
	return result
}

// MathLog lowers the natural or, with base10, the decimal logarithm
func (l *Lowerer) MathLog(v lir.Value, base10 bool) *lir.Variable {
	if base10 {
		return l.emitIntrinsic("LOG10", v)
	}
	return l.emitIntrinsic("LOG", v)
}

func (l *Lowerer) MathSin(v lir.Value) *lir.Variable { return l.emitIntrinsic("SIN", v) }
func (l *Lowerer) MathCos(v lir.Value) *lir.Variable { return l.emitIntrinsic("COS", v) }
func (l *Lowerer) MathTan(v lir.Value) *lir.Variable { return l.emitIntrinsic("TAN", v) }
func (l *Lowerer) MathExp(v lir.Value) *lir.Variable { return l.emitIntrinsic("EXP", v) }

// MathPow lowers a raised to b
func (l *Lowerer) MathPow(a, b lir.Value) *lir.Variable { return l.emitIntrinsic("POW", a, b) }

// RoundingMode is the immediate of ROUNDSS/ROUNDSD
type RoundingMode int

const (
	RoundNearest RoundingMode = 0
	RoundDown    RoundingMode = 1
	RoundUp      RoundingMode = 2
	RoundTrunc   RoundingMode = 3
)

// ParseRoundingMode accepts "nearest", "down", "up" and "trunc"
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch s {
	case "nearest", "rint":
		return RoundNearest, nil
	case "down", "floor":
		return RoundDown, nil
	case "up", "ceil":
		return RoundUp, nil
	case "trunc", "zero":
		return RoundTrunc, nil
	}
	return 0, fmt.Errorf("unknown rounding mode %q", s)
}

// Round rounds a float to an integral float value
func (l *Lowerer) Round(v lir.Value, mode RoundingMode) *lir.Variable {
	var size lir.OperandSize
	switch k := v.ValueKind().Platform; k {
	case lir.Single:
		size = lir.SS
	case lir.Double:
		size = lir.SD
	default:
		shouldNotReachHere("round of %s", k)
	}
	if mode < RoundNearest || mode > RoundTrunc {
		shouldNotReachHere("rounding mode %d", int(mode))
	}
	l.require(ExtSSE41, "round")
	result := l.newVariable(lir.Combine(v))
	l.append(&lir.Instr{
		Op:       mustLookup(OpRound, size, ShapeRMI),
		Form:     lir.FormRMI,
		Size:     size,
		Result:   result,
		Inputs:   []lir.Value{l.asAllocatable(v)},
		Imm:      int64(mode),
		HasImm:   true,
		ImmWidth: 1,
	})
	return result
}
