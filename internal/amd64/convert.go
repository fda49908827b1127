// Completion: 100% - Conversion lowering complete
package amd64

import (
	"github.com/xyproto/lirgen/internal/lir"
)

// Conversion is a float/integer value conversion
type Conversion int

const (
	D2F Conversion = iota
	D2I
	D2L
	F2D
	F2I
	F2L
	I2D
	I2F
	L2D
	L2F
)

var conversionNames = [...]string{
	D2F: "d2f", D2I: "d2i", D2L: "d2l", F2D: "f2d", F2I: "f2i",
	F2L: "f2l", I2D: "i2d", I2F: "i2f", L2D: "l2d", L2F: "l2f",
}

func (c Conversion) String() string {
	if int(c) >= 0 && int(c) < len(conversionNames) {
		return conversionNames[c]
	}
	return "conversion?"
}

// ParseConversion accepts the names produced by Conversion.String
func ParseConversion(s string) (Conversion, bool) {
	for i, name := range conversionNames {
		if name == s {
			return Conversion(i), true
		}
	}
	return 0, false
}

// encoding returns the target kind, opcode and operand size of a conversion
func (c Conversion) encoding() (lir.Kind, Operation, lir.OperandSize) {
	switch c {
	case D2F:
		return lir.Single, OpCvtSD2SS, lir.SD
	case D2I:
		return lir.DWord, OpCvtTSD2SI, lir.DWORD
	case D2L:
		return lir.QWord, OpCvtTSD2SI, lir.QWORD
	case F2D:
		return lir.Double, OpCvtSS2SD, lir.SS
	case F2I:
		return lir.DWord, OpCvtTSS2SI, lir.DWORD
	case F2L:
		return lir.QWord, OpCvtTSS2SI, lir.QWORD
	case I2D:
		return lir.Double, OpCvtSI2SD, lir.DWORD
	case I2F:
		return lir.Single, OpCvtSI2SS, lir.DWORD
	case L2D:
		return lir.Double, OpCvtSI2SD, lir.QWORD
	case L2F:
		return lir.Single, OpCvtSI2SS, lir.QWORD
	}
	shouldNotReachHere("unknown conversion %d", int(c))
	return 0, 0, 0
}

func (l *Lowerer) emitConvertOp(kind lir.ValueKind, op Operation, size lir.OperandSize, input lir.Value, shape Shape) *lir.Variable {
	result := l.newVariable(kind)
	form := lir.FormRM
	if shape == ShapeMR {
		form = lir.FormMR
	}
	l.append(&lir.Instr{
		Op:     mustLookup(op, size, shape),
		Form:   form,
		Size:   size,
		Result: result,
		Inputs: []lir.Value{l.asAllocatable(input)},
	})
	return result
}

// Reinterpret moves the raw bits of v into a register of kind to. Only moves
// between a general purpose and an XMM register of equal width exist.
func (l *Lowerer) Reinterpret(to lir.ValueKind, v lir.Value) lir.Value {
	from := v.ValueKind()
	if to.Platform == from.Platform {
		return v
	}
	switch {
	case to.Platform == lir.DWord && from.Platform == lir.Single:
		return l.emitConvertOp(to, OpMovD, lir.DWORD, v, ShapeMR)
	case to.Platform == lir.QWord && from.Platform == lir.Double:
		return l.emitConvertOp(to, OpMovQ, lir.QWORD, v, ShapeMR)
	case to.Platform == lir.Single && from.Platform == lir.DWord:
		return l.emitConvertOp(to, OpMovD, lir.DWORD, v, ShapeRM)
	case to.Platform == lir.Double && from.Platform == lir.QWord:
		return l.emitConvertOp(to, OpMovQ, lir.QWORD, v, ShapeRM)
	}
	shouldNotReachHere("reinterpret %s as %s", from, to)
	return nil
}

// FloatConvert converts between float and integer values. Float to integer
// conversions truncate toward zero.
func (l *Lowerer) FloatConvert(c Conversion, v lir.Value) *lir.Variable {
	kind, op, size := c.encoding()
	return l.emitConvertOp(lir.Combine(v).ChangeType(kind), op, size, v, ShapeRM)
}

// Narrow truncates v to bits. Narrowing a QWord to 32 bits or less is a
// 32-bit move; anything else is already representable and returned as is.
func (l *Lowerer) Narrow(v lir.Value, bits int) lir.Value {
	if v.ValueKind().Platform == lir.QWord && bits <= 32 {
		return l.emitConvertOp(lir.Combine(v).ChangeType(lir.DWord), OpMov, lir.DWORD, v, ShapeRM)
	}
	return v
}

// SignExtend widens the low fromBits of v to toBits, replicating the sign bit
func (l *Lowerer) SignExtend(v lir.Value, fromBits, toBits int) lir.Value {
	if fromBits > toBits || toBits > 64 {
		shouldNotReachHere("sign extend from %d to %d bits", fromBits, toBits)
	}
	if !v.ValueKind().Platform.IsInteger() {
		shouldNotReachHere("sign extend of %s", v.ValueKind())
	}
	if fromBits == toBits {
		return v
	}
	if toBits > 32 {
		kind := lir.Combine(v).ChangeType(lir.QWord)
		switch fromBits {
		case 8:
			return l.emitConvertOp(kind, OpMovSXB, lir.QWORD, v, ShapeRM)
		case 16:
			return l.emitConvertOp(kind, OpMovSXW, lir.QWORD, v, ShapeRM)
		case 32:
			return l.emitConvertOp(kind, OpMovSXD, lir.QWORD, v, ShapeRM)
		}
		unimplemented("sign extend from %d bits", fromBits)
		return nil
	}
	kind := lir.Combine(v).ChangeType(lir.DWord)
	switch fromBits {
	case 8:
		return l.emitConvertOp(kind, OpMovSXB, lir.DWORD, v, ShapeRM)
	case 16:
		return l.emitConvertOp(kind, OpMovSXW, lir.DWORD, v, ShapeRM)
	case 32:
		return v
	}
	unimplemented("sign extend from %d bits", fromBits)
	return nil
}

// ZeroExtend widens the low fromBits of v to toBits, filling with zeros.
// 32-bit operations clear the upper half of the register, so every extension
// to 64 bits from 32 bits or less uses the 32-bit form.
func (l *Lowerer) ZeroExtend(v lir.Value, fromBits, toBits int) lir.Value {
	if fromBits > toBits || toBits > 64 {
		shouldNotReachHere("zero extend from %d to %d bits", fromBits, toBits)
	}
	if !v.ValueKind().Platform.IsInteger() {
		shouldNotReachHere("zero extend of %s", v.ValueKind())
	}
	if fromBits == toBits {
		return v
	}
	if fromBits > 32 {
		if v.ValueKind().Platform != lir.QWord {
			shouldNotReachHere("zero extend of %d bits from %s", fromBits, v.ValueKind())
		}
		return l.emitMaskAnd(lir.Combine(v), lir.QWORD, v, lir.Long(mask(fromBits)))
	}
	kind := lir.Combine(v).ChangeType(lir.DWord)
	if toBits > 32 {
		kind = kind.ChangeType(lir.QWord)
	}
	switch fromBits {
	case 8:
		return l.emitConvertOp(kind, OpMovZXB, lir.DWORD, v, ShapeRM)
	case 16:
		return l.emitConvertOp(kind, OpMovZXW, lir.DWORD, v, ShapeRM)
	case 32:
		return l.emitConvertOp(kind, OpMov, lir.DWORD, v, ShapeRM)
	}
	// odd widths are masked
	return l.emitMaskAnd(kind, lir.DWORD, v, lir.Int(int32(mask(fromBits))))
}

func (l *Lowerer) emitMaskAnd(kind lir.ValueKind, size lir.OperandSize, v lir.Value, m *lir.Constant) *lir.Variable {
	result := l.newVariable(kind)
	l.append(&lir.Instr{
		Op:     mustLookup(OpAnd, size, ShapeRM),
		Form:   lir.FormDataTwoOp,
		Size:   size,
		Result: result,
		Inputs: []lir.Value{l.asAllocatable(v)},
		Data:   m,
		Align:  size.Bytes(),
	})
	return result
}
