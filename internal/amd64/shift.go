// Completion: 100% - Shift and rotate lowering complete
package amd64

import (
	"github.com/xyproto/lirgen/internal/lir"
)

// emitShift picks the shift-by-one opcode for a constant 1, an imm8 for other
// constants and otherwise moves the count into CL. The hardware masks the
// count to the operand width, so constants are passed through unmasked.
func (l *Lowerer) emitShift(op Operation, size lir.OperandSize, a, b lir.Value) *lir.Variable {
	result := l.newVariable(lir.Combine(a, b))
	input := l.asAllocatable(a)
	if c, ok := asFoldable(b); ok {
		if c.AsLong() == 1 {
			l.append(&lir.Instr{
				Op:     mustLookup(op, size, ShapeM1),
				Form:   lir.FormShiftOne,
				Size:   size,
				Result: result,
				Inputs: []lir.Value{input},
			})
			return result
		}
		l.append(&lir.Instr{
			Op:       mustLookup(op, size, ShapeMI),
			Form:     lir.FormConst,
			Size:     size,
			Result:   result,
			Inputs:   []lir.Value{input},
			Imm:      int64(c.AsInt()),
			HasImm:   true,
			ImmWidth: 1,
		})
		return result
	}
	count := lir.RegisterValue{Reg: l.target.ShiftCountRegister(), Kind: lir.ValueOf(lir.DWord)}
	l.emitMove(count, b)
	l.append(&lir.Instr{
		Op:     mustLookup(op, size, ShapeMC),
		Form:   lir.FormShiftCL,
		Size:   size,
		Result: result,
		Inputs: []lir.Value{input, count},
	})
	return result
}

func (l *Lowerer) shift(what string, op Operation, a, b lir.Value) *lir.Variable {
	switch k := a.ValueKind().Platform; k {
	case lir.DWord:
		return l.emitShift(op, lir.DWORD, a, b)
	case lir.QWord:
		return l.emitShift(op, lir.QWORD, a, b)
	default:
		shouldNotReachHere("%s of %s", what, k)
		return nil
	}
}

// Shl lowers a << b
func (l *Lowerer) Shl(a, b lir.Value) *lir.Variable { return l.shift("shl", OpShl, a, b) }

// Shr lowers the arithmetic right shift a >> b
func (l *Lowerer) Shr(a, b lir.Value) *lir.Variable { return l.shift("shr", OpSar, a, b) }

// UShr lowers the logical right shift a >>> b
func (l *Lowerer) UShr(a, b lir.Value) *lir.Variable { return l.shift("ushr", OpShr, a, b) }

// Rol rotates a left by b
func (l *Lowerer) Rol(a, b lir.Value) *lir.Variable { return l.shift("rol", OpRol, a, b) }

// Ror rotates a right by b
func (l *Lowerer) Ror(a, b lir.Value) *lir.Variable { return l.shift("ror", OpRor, a, b) }
