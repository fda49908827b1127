// Completion: 100% - Bit counting lowering complete
package amd64

import (
	"github.com/xyproto/lirgen/internal/lir"
)

// emitBitOp counts bits of an integer value. The count always fits 32 bits.
func (l *Lowerer) emitBitOp(what string, op Operation, v lir.Value, size lir.OperandSize) *lir.Variable {
	if !v.ValueKind().Platform.IsInteger() {
		shouldNotReachHere("%s of %s", what, v.ValueKind())
	}
	result := l.newVariable(lir.Combine(v).ChangeType(lir.DWord))
	l.append(&lir.Instr{
		Op:     mustLookup(op, size, ShapeRM),
		Form:   lir.FormRM,
		Size:   size,
		Result: result,
		Inputs: []lir.Value{l.asAllocatable(v)},
	})
	return result
}

func sizeOf(v lir.Value) lir.OperandSize {
	if v.ValueKind().Platform == lir.QWord {
		return lir.QWORD
	}
	return lir.DWORD
}

// BitCount returns the number of set bits
func (l *Lowerer) BitCount(v lir.Value) *lir.Variable {
	l.require(ExtPOPCNT, "bitcount")
	return l.emitBitOp("bitcount", OpPopcnt, v, sizeOf(v))
}

// BitScanForward returns the index of the lowest set bit. The 64-bit form is
// used for every width; a 32-bit input has nothing set in its upper half.
func (l *Lowerer) BitScanForward(v lir.Value) *lir.Variable {
	return l.emitBitOp("bsf", OpBsf, v, lir.QWORD)
}

// BitScanReverse returns the index of the highest set bit
func (l *Lowerer) BitScanReverse(v lir.Value) *lir.Variable {
	return l.emitBitOp("bsr", OpBsr, v, sizeOf(v))
}

// CountLeadingZeros needs LZCNT. Without it the encoding runs as BSR.
func (l *Lowerer) CountLeadingZeros(v lir.Value) *lir.Variable {
	l.require(ExtBMI1, "lzcnt")
	return l.emitBitOp("lzcnt", OpLzcnt, v, sizeOf(v))
}

// CountTrailingZeros needs TZCNT
func (l *Lowerer) CountTrailingZeros(v lir.Value) *lir.Variable {
	l.require(ExtBMI1, "tzcnt")
	return l.emitBitOp("tzcnt", OpTzcnt, v, sizeOf(v))
}
