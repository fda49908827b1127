// Completion: 100% - Compare lowering complete
package amd64

import (
	"github.com/xyproto/lirgen/internal/lir"
)

// Compare sets the flags for left compared with right, both of kind k, and
// returns the flag-setting instruction. No value is produced.
func (l *Lowerer) Compare(k lir.Kind, left, right lir.Value) *lir.Instr {
	var size lir.OperandSize
	switch k {
	case lir.Byte:
		size = lir.BYTE
	case lir.Word:
		size = lir.WORD
	case lir.DWord:
		size = lir.DWORD
	case lir.QWord:
		size = lir.QWORD
	case lir.Single:
		return l.append(&lir.Instr{
			Op:     mustLookup(OpUcomis, lir.SS, ShapeRM),
			Form:   lir.FormCompare,
			Size:   lir.SS,
			Inputs: []lir.Value{l.asAllocatable(left), l.asAllocatable(right)},
		})
	case lir.Double:
		return l.append(&lir.Instr{
			Op:     mustLookup(OpUcomis, lir.SD, ShapeRM),
			Form:   lir.FormCompare,
			Size:   lir.SD,
			Inputs: []lir.Value{l.asAllocatable(left), l.asAllocatable(right)},
		})
	default:
		shouldNotReachHere("compare of %s", k)
		return nil
	}

	x := l.asAllocatable(left)
	c, isConst := right.(*lir.Constant)
	switch {
	case isConst && c.IsNull():
		return l.emitTest(size, x)
	case isConst && c.IsSymbolic():
		if size == lir.DWORD && !l.target.GeneratePIC() {
			return l.append(&lir.Instr{
				Op:     mustLookup(OpCmp, size, ShapeMI),
				Form:   lir.FormCompareSymbol,
				Size:   size,
				Inputs: []lir.Value{x, c},
			})
		}
		return l.append(&lir.Instr{
			Op:     mustLookup(OpCmp, size, ShapeRM),
			Form:   lir.FormCompareData,
			Size:   size,
			Inputs: []lir.Value{x},
			Data:   c,
			Align:  size.Bytes(),
		})
	case isConst && c.AsLong() == 0:
		return l.emitTest(size, x)
	case isConst && IsInt(c.AsLong()):
		imm := c.AsLong()
		return l.append(&lir.Instr{
			Op:       mustLookup(OpCmp, size, ShapeMI),
			Form:     lir.FormCompareConst,
			Size:     size,
			Inputs:   []lir.Value{x},
			Imm:      imm,
			HasImm:   true,
			ImmWidth: min(ImmediateWidth(imm), size.Bytes()),
		})
	}
	return l.append(&lir.Instr{
		Op:     mustLookup(OpCmp, size, ShapeRM),
		Form:   lir.FormCompare,
		Size:   size,
		Inputs: []lir.Value{x, l.asAllocatable(right)},
	})
}

// emitTest compares x against zero with TEST x, x
func (l *Lowerer) emitTest(size lir.OperandSize, x lir.Value) *lir.Instr {
	return l.append(&lir.Instr{
		Op:     mustLookup(OpTest, size, ShapeRM),
		Form:   lir.FormCompare,
		Size:   size,
		Inputs: []lir.Value{x, x},
	})
}
