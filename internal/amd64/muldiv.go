// Completion: 100% - Multiply and divide lowering complete
package amd64

import (
	"github.com/xyproto/lirgen/internal/lir"
)

func (l *Lowerer) emitIMUL(size lir.OperandSize, a, b lir.Value) *lir.Variable {
	if c, ok := asFoldable(b); ok {
		return l.emitIMULConst(size, l.asAllocatable(a), c)
	}
	if c, ok := asFoldable(a); ok {
		return l.emitIMULConst(size, l.asAllocatable(b), c)
	}
	return l.emitBinaryVar(lir.Combine(a, b), OpMul, size, true, l.asAllocatable(a), l.asAllocatable(b))
}

func (l *Lowerer) emitIMULConst(size lir.OperandSize, a lir.Value, b *lir.Constant) *lir.Variable {
	value := b.AsLong()
	if !IsInt(value) {
		return l.emitBinaryVar(lir.Combine(a, b), OpMul, size, true, a, l.asAllocatable(b))
	}
	result := l.newVariable(lir.Combine(a, b))
	l.append(&lir.Instr{
		Op:       mustLookup(OpMul, size, ShapeRMI),
		Form:     lir.FormRMI,
		Size:     size,
		Result:   result,
		Inputs:   []lir.Value{a},
		Imm:      value,
		HasImm:   true,
		ImmWidth: ImmediateWidth(value),
	})
	return result
}

// Mul lowers a * b
func (l *Lowerer) Mul(a, b lir.Value) *lir.Variable {
	avx := l.target.HasAVX()
	switch k := a.ValueKind().Platform; k {
	case lir.DWord:
		return l.emitIMUL(lir.DWORD, a, b)
	case lir.QWord:
		return l.emitIMUL(lir.QWORD, a, b)
	case lir.Single:
		return l.emitFloatBinary(lir.Combine(a, b), OpMul, lir.SS, true, a, b, avx)
	case lir.Double:
		return l.emitFloatBinary(lir.Combine(a, b), OpMul, lir.SD, true, a, b, avx)
	default:
		shouldNotReachHere("mul of %s", k)
		return nil
	}
}

func (l *Lowerer) emitMulHigh(op Operation, size lir.OperandSize, a, b lir.Value) *lir.Variable {
	lowReg, highReg := l.target.DividendRegisters()
	kind := lir.Combine(a, b)
	low := l.moveToReg(lowReg, a)
	high := lir.RegisterValue{Reg: highReg, Kind: low.Kind}
	l.append(&lir.Instr{
		Op:     mustLookup(op, size, ShapeM),
		Form:   lir.FormMulDiv,
		Size:   size,
		Inputs: []lir.Value{low, l.asAllocatable(b)},
		Fixed:  []lir.RegisterValue{{Reg: lowReg, Kind: kind}, high},
	})
	return l.emitMoveToNew(high)
}

// gprSize returns the size of a DWord or QWord operand
func (l *Lowerer) gprSize(what string, v lir.Value) lir.OperandSize {
	switch k := v.ValueKind().Platform; k {
	case lir.DWord:
		return lir.DWORD
	case lir.QWord:
		return lir.QWORD
	default:
		shouldNotReachHere("%s of %s", what, k)
		return 0
	}
}

// MulHigh returns the upper half of the signed double-width product
func (l *Lowerer) MulHigh(a, b lir.Value) *lir.Variable {
	return l.emitMulHigh(OpWideIMul, l.gprSize("mulhigh", a), a, b)
}

// UMulHigh returns the upper half of the unsigned double-width product
func (l *Lowerer) UMulHigh(a, b lir.Value) *lir.Variable {
	return l.emitMulHigh(OpWideMul, l.gprSize("umulhigh", a), a, b)
}

// emitIDIV leaves the quotient in the low and the remainder in the high
// dividend register. A constant divisor, zero included, is materialized and
// the hardware trap is left in place.
func (l *Lowerer) emitIDIV(size lir.OperandSize, a, b lir.Value, state *lir.FrameState) (quotient, remainder lir.RegisterValue) {
	lowReg, highReg := l.target.DividendRegisters()
	kind := lir.Combine(a, b)
	low := l.moveToReg(lowReg, a)
	quotient = lir.RegisterValue{Reg: lowReg, Kind: kind}
	remainder = lir.RegisterValue{Reg: highReg, Kind: kind}
	l.append(&lir.Instr{
		Op:     mustLookup(OpSignExtendAX, size, ShapeM),
		Form:   lir.FormSignExtend,
		Size:   size,
		Inputs: []lir.Value{low},
		Fixed:  []lir.RegisterValue{remainder, quotient},
	})
	l.append(&lir.Instr{
		Op:     mustLookup(OpIDiv, size, ShapeM),
		Form:   lir.FormMulDiv,
		Size:   size,
		Inputs: []lir.Value{remainder, quotient, l.asAllocatable(b)},
		Fixed:  []lir.RegisterValue{quotient, remainder},
		State:  state,
	})
	return quotient, remainder
}

// emitDIV is emitIDIV for unsigned operands: the high half is cleared
// instead of sign extended
func (l *Lowerer) emitDIV(size lir.OperandSize, a, b lir.Value, state *lir.FrameState) (quotient, remainder lir.RegisterValue) {
	lowReg, highReg := l.target.DividendRegisters()
	kind := lir.Combine(a, b)
	l.moveToReg(lowReg, a)
	quotient = lir.RegisterValue{Reg: lowReg, Kind: kind}
	remainder = lir.RegisterValue{Reg: highReg, Kind: kind}
	l.append(&lir.Instr{
		Op:     mustLookup(OpXor, size, ShapeRM),
		Form:   lir.FormClear,
		Size:   size,
		Result: remainder,
	})
	l.append(&lir.Instr{
		Op:     mustLookup(OpUDiv, size, ShapeM),
		Form:   lir.FormMulDiv,
		Size:   size,
		Inputs: []lir.Value{remainder, quotient, l.asAllocatable(b)},
		Fixed:  []lir.RegisterValue{quotient, remainder},
		State:  state,
	})
	return quotient, remainder
}

// SignedDivRem lowers a combined signed quotient and remainder
func (l *Lowerer) SignedDivRem(a, b lir.Value, state *lir.FrameState) (quotient, remainder *lir.Variable) {
	q, r := l.emitIDIV(l.gprSize("divrem", a), a, b, state)
	return l.emitMoveToNew(q), l.emitMoveToNew(r)
}

// UnsignedDivRem lowers a combined unsigned quotient and remainder
func (l *Lowerer) UnsignedDivRem(a, b lir.Value, state *lir.FrameState) (quotient, remainder *lir.Variable) {
	q, r := l.emitDIV(l.gprSize("udivrem", a), a, b, state)
	return l.emitMoveToNew(q), l.emitMoveToNew(r)
}

// Div lowers a / b. Integer division carries state for the divide fault.
func (l *Lowerer) Div(a, b lir.Value, state *lir.FrameState) *lir.Variable {
	avx := l.target.HasAVX()
	switch k := a.ValueKind().Platform; k {
	case lir.DWord, lir.QWord:
		q, _ := l.emitIDIV(integerSize(k), a, b, state)
		return l.emitMoveToNew(q)
	case lir.Single:
		return l.emitFloatBinary(lir.Combine(a, b), OpDiv, lir.SS, false, a, b, avx)
	case lir.Double:
		return l.emitFloatBinary(lir.Combine(a, b), OpDiv, lir.SD, false, a, b, avx)
	default:
		shouldNotReachHere("div of %s", k)
		return nil
	}
}

// Rem lowers a % b. Float remainder uses the x87 partial remainder loop.
func (l *Lowerer) Rem(a, b lir.Value, state *lir.FrameState) *lir.Variable {
	switch k := a.ValueKind().Platform; k {
	case lir.DWord, lir.QWord:
		_, r := l.emitIDIV(integerSize(k), a, b, state)
		return l.emitMoveToNew(r)
	case lir.Single:
		return l.emitFPRem(lir.SS, a, b)
	case lir.Double:
		return l.emitFPRem(lir.SD, a, b)
	default:
		shouldNotReachHere("rem of %s", k)
		return nil
	}
}

func (l *Lowerer) emitFPRem(size lir.OperandSize, a, b lir.Value) *lir.Variable {
	result := l.newVariable(lir.Combine(a, b))
	l.append(&lir.Instr{
		Op:     mustLookup(OpFPRem, size, ShapeM),
		Form:   lir.FormFPRem,
		Size:   size,
		Result: result,
		Inputs: []lir.Value{l.asAllocatable(a), l.asAllocatable(b)},
	})
	return result
}

// UDiv lowers unsigned a / b
func (l *Lowerer) UDiv(a, b lir.Value, state *lir.FrameState) *lir.Variable {
	q, _ := l.emitDIV(l.gprSize("udiv", a), a, b, state)
	return l.emitMoveToNew(q)
}

// URem lowers unsigned a % b
func (l *Lowerer) URem(a, b lir.Value, state *lir.FrameState) *lir.Variable {
	_, r := l.emitDIV(l.gprSize("urem", a), a, b, state)
	return l.emitMoveToNew(r)
}
