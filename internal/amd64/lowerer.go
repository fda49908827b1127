// Completion: 100% - Lowerer and instruction emitter complete
package amd64

import (
	"github.com/xyproto/lirgen/internal/lir"
)

// Lowerer selects AMD64 instructions for arithmetic IR operations and appends
// them to the current block of its Builder. A Lowerer belongs to one
// compilation; the Target may be shared.
type Lowerer struct {
	target Target
	gen    *lir.Builder
}

// New returns a Lowerer emitting into gen
func New(target Target, gen *lir.Builder) *Lowerer {
	if target == nil || gen == nil {
		shouldNotReachHere("lowerer needs a target and a builder")
	}
	return &Lowerer{target: target, gen: gen}
}

// Builder returns the emission context
func (l *Lowerer) Builder() *lir.Builder {
	return l.gen
}

// Target returns the capability query
func (l *Lowerer) Target() Target {
	return l.target
}

func (l *Lowerer) newVariable(kind lir.ValueKind) *lir.Variable {
	return l.gen.NewVariable(kind)
}

func (l *Lowerer) append(i *lir.Instr) *lir.Instr {
	return l.gen.Append(i)
}

// registerKind widens memory-only integer kinds to the kind they occupy in a
// register
func registerKind(vk lir.ValueKind) lir.ValueKind {
	switch vk.Platform {
	case lir.Byte, lir.Word:
		return vk.ChangeType(lir.DWord)
	}
	return vk
}

// integerSize returns the register operand size for an integer kind
func integerSize(k lir.Kind) lir.OperandSize {
	switch k {
	case lir.Byte, lir.Word, lir.DWord:
		return lir.DWORD
	case lir.QWord:
		return lir.QWORD
	}
	shouldNotReachHere("no integer size for %s", k)
	return 0
}

// moveSize returns the operand size used to copy a value of kind k
func moveSize(k lir.Kind) lir.OperandSize {
	switch k {
	case lir.Single:
		return lir.SS
	case lir.Double:
		return lir.SD
	}
	return integerSize(k)
}

// emitMove copies src into dst. dst must be allocatable.
func (l *Lowerer) emitMove(dst, src lir.Value) {
	if !lir.IsAllocatable(dst) {
		shouldNotReachHere("move into %s", dst)
	}
	if c, ok := src.(*lir.Constant); ok {
		l.emitLoadConstant(dst, c)
		return
	}
	size := moveSize(dst.ValueKind().Platform)
	l.append(&lir.Instr{
		Op:     mustLookup(OpMov, size, ShapeRM),
		Form:   lir.FormMove,
		Size:   size,
		Result: dst,
		Inputs: []lir.Value{src},
	})
}

// emitMoveToNew copies v into a fresh variable
func (l *Lowerer) emitMoveToNew(v lir.Value) *lir.Variable {
	result := l.newVariable(registerKind(v.ValueKind()))
	l.emitMove(result, v)
	return result
}

func (l *Lowerer) emitLoadConstant(dst lir.Value, c *lir.Constant) {
	k := dst.ValueKind().Platform
	switch {
	case k.IsInteger():
		size := integerSize(k)
		i := &lir.Instr{
			Op:     mustLookup(OpMov, size, ShapeMI),
			Form:   lir.FormMove,
			Size:   size,
			Result: dst,
		}
		if c.IsSymbolic() {
			// the relocation is resolved by the assembler
			i.Inputs = []lir.Value{c}
		} else {
			i.HasImm = true
			i.Imm = c.AsLong()
			i.ImmWidth = 4
			if size == lir.QWORD && !IsInt(i.Imm) {
				i.ImmWidth = 8
			}
		}
		l.append(i)
	case c.IsDefaultForKind():
		// +0.0, the all-zero pattern, uses the XOR zero idiom
		size := lir.PS
		if k == lir.Double {
			size = lir.PD
		}
		l.append(&lir.Instr{
			Op:     mustLookup(OpXor, size, ShapeRM),
			Form:   lir.FormClear,
			Size:   size,
			Result: dst,
		})
	default:
		size := moveSize(k)
		l.append(&lir.Instr{
			Op:     mustLookup(OpMov, size, ShapeRM),
			Form:   lir.FormMove,
			Size:   size,
			Result: dst,
			Data:   c,
			Align:  size.Bytes(),
		})
	}
}

// asAllocatable returns v itself unless it is a constant, which is first
// materialized into a fresh variable
func (l *Lowerer) asAllocatable(v lir.Value) lir.Value {
	if lir.IsAllocatable(v) {
		return v
	}
	return l.emitMoveToNew(v)
}

// moveToReg copies v into the physical register reg
func (l *Lowerer) moveToReg(reg int16, v lir.Value) lir.RegisterValue {
	rv := lir.RegisterValue{Reg: reg, Kind: registerKind(v.ValueKind())}
	l.emitMove(rv, v)
	return rv
}
