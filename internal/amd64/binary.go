// Completion: 100% - Binary arithmetic and logic lowering complete
package amd64

import (
	"github.com/xyproto/lirgen/internal/lir"
)

// emitBinary lowers an integer binary operation. A foldable constant in b is
// encoded as an immediate; for commutative operations a constant in a is
// swapped into b first.
func (l *Lowerer) emitBinary(resultKind lir.ValueKind, op Operation, size lir.OperandSize, commutative bool, a, b lir.Value, setFlags bool) *lir.Variable {
	if c, ok := asFoldable(b); ok {
		return l.emitBinaryConst(resultKind, op, size, commutative, l.asAllocatable(a), c, setFlags)
	}
	if c, ok := asFoldable(a); ok && commutative {
		return l.emitBinaryConst(resultKind, op, size, commutative, l.asAllocatable(b), c, setFlags)
	}
	return l.emitBinaryVar(resultKind, op, size, commutative, l.asAllocatable(a), l.asAllocatable(b))
}

func (l *Lowerer) emitBinaryConst(resultKind lir.ValueKind, op Operation, size lir.OperandSize, commutative bool, a lir.Value, b *lir.Constant, setFlags bool) *lir.Variable {
	value := b.AsLong()
	if !IsInt(value) {
		// no imm64 form exists, the constant goes through a register
		return l.emitBinaryVar(resultKind, op, size, commutative, a, l.asAllocatable(b))
	}
	imm := int32(value)
	result := l.newVariable(resultKind)
	if !setFlags {
		if unary, ok := incDecFor(op, imm); ok {
			l.append(&lir.Instr{
				Op:     mustLookup(unary, size, ShapeM),
				Form:   lir.FormM,
				Size:   size,
				Result: result,
				Inputs: []lir.Value{a},
			})
			return result
		}
	}
	l.append(&lir.Instr{
		Op:       mustLookup(op, size, ShapeMI),
		Form:     lir.FormConst,
		Size:     size,
		Result:   result,
		Inputs:   []lir.Value{a},
		Imm:      int64(imm),
		HasImm:   true,
		ImmWidth: ImmediateWidth(int64(imm)),
	})
	return result
}

func (l *Lowerer) emitBinaryVar(resultKind lir.ValueKind, op Operation, size lir.OperandSize, commutative bool, a, b lir.Value) *lir.Variable {
	result := l.newVariable(resultKind)
	form := lir.FormTwoOp
	if commutative {
		form = lir.FormCommutativeTwoOp
	}
	l.append(&lir.Instr{
		Op:     mustLookup(op, size, ShapeRM),
		Form:   form,
		Size:   size,
		Result: result,
		Inputs: []lir.Value{a, b},
	})
	return result
}

// emitFloatBinary lowers a scalar or packed float operation. Float constants
// are never immediates; they are read from the data section.
func (l *Lowerer) emitFloatBinary(resultKind lir.ValueKind, op Operation, size lir.OperandSize, commutative bool, a, b lir.Value, avx bool) *lir.Variable {
	if c, ok := asFoldable(b); ok {
		return l.emitFloatBinaryConst(resultKind, op, size, l.asAllocatable(a), c, avx)
	}
	if c, ok := asFoldable(a); ok && commutative {
		return l.emitFloatBinaryConst(resultKind, op, size, l.asAllocatable(b), c, avx)
	}
	return l.emitFloatBinaryVar(resultKind, op, size, commutative, l.asAllocatable(a), l.asAllocatable(b), avx)
}

// dataAlign is the alignment of a data section operand. Legacy SSE packed
// instructions fault on unaligned memory.
func dataAlign(size lir.OperandSize) int {
	return size.Bytes()
}

func (l *Lowerer) emitFloatBinaryConst(resultKind lir.ValueKind, op Operation, size lir.OperandSize, a lir.Value, b *lir.Constant, avx bool) *lir.Variable {
	result := l.newVariable(resultKind)
	i := &lir.Instr{
		Form:   lir.FormDataTwoOp,
		Size:   size,
		Result: result,
		Inputs: []lir.Value{a},
		Data:   b,
		Align:  dataAlign(size),
	}
	if avx {
		i.Op = mustLookup(op, size, ShapeRRM)
		i.Form = lir.FormDataThreeOp
	} else {
		i.Op = mustLookup(op, size, ShapeRM)
	}
	l.append(i)
	return result
}

func (l *Lowerer) emitFloatBinaryVar(resultKind lir.ValueKind, op Operation, size lir.OperandSize, commutative bool, a, b lir.Value, avx bool) *lir.Variable {
	result := l.newVariable(resultKind)
	i := &lir.Instr{
		Size:   size,
		Result: result,
		Inputs: []lir.Value{a, b},
	}
	switch {
	case avx && commutative:
		i.Op, i.Form = mustLookup(op, size, ShapeRRM), lir.FormCommutativeThreeOp
	case avx:
		i.Op, i.Form = mustLookup(op, size, ShapeRRM), lir.FormThreeOp
	case commutative:
		i.Op, i.Form = mustLookup(op, size, ShapeRM), lir.FormCommutativeTwoOp
	default:
		i.Op, i.Form = mustLookup(op, size, ShapeRM), lir.FormTwoOp
	}
	l.append(i)
	return result
}

// Add lowers a + b. setFlags requests a carry flag consumable by the next
// instruction, which rules out INC and DEC.
func (l *Lowerer) Add(resultKind lir.ValueKind, a, b lir.Value, setFlags bool) *lir.Variable {
	avx := l.target.HasAVX()
	switch k := a.ValueKind().Platform; k {
	case lir.DWord:
		return l.emitBinary(resultKind, OpAdd, lir.DWORD, true, a, b, setFlags)
	case lir.QWord:
		return l.emitBinary(resultKind, OpAdd, lir.QWORD, true, a, b, setFlags)
	case lir.Single:
		return l.emitFloatBinary(resultKind, OpAdd, lir.SS, true, a, b, avx)
	case lir.Double:
		return l.emitFloatBinary(resultKind, OpAdd, lir.SD, true, a, b, avx)
	default:
		shouldNotReachHere("add of %s", k)
		return nil
	}
}

// Sub lowers a - b
func (l *Lowerer) Sub(resultKind lir.ValueKind, a, b lir.Value, setFlags bool) *lir.Variable {
	avx := l.target.HasAVX()
	switch k := a.ValueKind().Platform; k {
	case lir.DWord:
		return l.emitBinary(resultKind, OpSub, lir.DWORD, false, a, b, setFlags)
	case lir.QWord:
		return l.emitBinary(resultKind, OpSub, lir.QWORD, false, a, b, setFlags)
	case lir.Single:
		return l.emitFloatBinary(resultKind, OpSub, lir.SS, false, a, b, avx)
	case lir.Double:
		return l.emitFloatBinary(resultKind, OpSub, lir.SD, false, a, b, avx)
	default:
		shouldNotReachHere("sub of %s", k)
		return nil
	}
}

func (l *Lowerer) emitLogic(op Operation, a, b lir.Value) *lir.Variable {
	resultKind := lir.Combine(a, b)
	avx := l.target.HasAVX()
	switch k := a.ValueKind().Platform; k {
	case lir.DWord:
		return l.emitBinary(resultKind, op, lir.DWORD, true, a, b, false)
	case lir.QWord:
		return l.emitBinary(resultKind, op, lir.QWORD, true, a, b, false)
	case lir.Single:
		return l.emitFloatBinary(resultKind, op, lir.PS, true, a, b, avx)
	case lir.Double:
		return l.emitFloatBinary(resultKind, op, lir.PD, true, a, b, avx)
	default:
		shouldNotReachHere("%s of %s", op, k)
		return nil
	}
}

// And lowers a & b, bitwise on the raw pattern for floats
func (l *Lowerer) And(a, b lir.Value) *lir.Variable { return l.emitLogic(OpAnd, a, b) }

// Or lowers a | b
func (l *Lowerer) Or(a, b lir.Value) *lir.Variable { return l.emitLogic(OpOr, a, b) }

// Xor lowers a ^ b
func (l *Lowerer) Xor(a, b lir.Value) *lir.Variable { return l.emitLogic(OpXor, a, b) }

func (l *Lowerer) emitUnary(op Operation, size lir.OperandSize, input lir.Value) *lir.Variable {
	result := l.newVariable(lir.Combine(input))
	l.append(&lir.Instr{
		Op:     mustLookup(op, size, ShapeM),
		Form:   lir.FormM,
		Size:   size,
		Result: result,
		Inputs: []lir.Value{l.asAllocatable(input)},
	})
	return result
}

// Negate lowers -v. Floats flip the sign bit with a 16 byte aligned mask.
func (l *Lowerer) Negate(v lir.Value) *lir.Variable {
	switch k := v.ValueKind().Platform; k {
	case lir.DWord:
		return l.emitUnary(OpNeg, lir.DWORD, v)
	case lir.QWord:
		return l.emitUnary(OpNeg, lir.QWORD, v)
	case lir.Single:
		return l.emitMaskOp(OpXor, lir.PS, v, lir.FloatBits(0x80000000))
	case lir.Double:
		return l.emitMaskOp(OpXor, lir.PD, v, lir.DoubleBits(0x8000000000000000))
	default:
		shouldNotReachHere("negate of %s", k)
		return nil
	}
}

// emitMaskOp applies a packed bitwise operation against a data mask
func (l *Lowerer) emitMaskOp(op Operation, size lir.OperandSize, v lir.Value, m *lir.Constant) *lir.Variable {
	result := l.newVariable(lir.Combine(v))
	i := &lir.Instr{
		Op:     mustLookup(op, size, ShapeRM),
		Form:   lir.FormDataTwoOp,
		Size:   size,
		Result: result,
		Inputs: []lir.Value{l.asAllocatable(v)},
		Data:   m,
		Align:  16,
	}
	if l.target.HasAVX() {
		i.Op, i.Form = mustLookup(op, size, ShapeRRM), lir.FormDataThreeOp
	}
	l.append(i)
	return result
}

// Not lowers ^v
func (l *Lowerer) Not(v lir.Value) *lir.Variable {
	switch k := v.ValueKind().Platform; k {
	case lir.DWord:
		return l.emitUnary(OpNot, lir.DWORD, v)
	case lir.QWord:
		return l.emitUnary(OpNot, lir.QWORD, v)
	default:
		shouldNotReachHere("not of %s", k)
		return nil
	}
}
