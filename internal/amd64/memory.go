// Completion: 100% - Memory load and store lowering complete
package amd64

import (
	"github.com/xyproto/lirgen/internal/lir"
)

func (l *Lowerer) emitLoad(result *lir.Variable, op Operation, size lir.OperandSize, addr *lir.Address, state *lir.FrameState) *lir.Variable {
	l.append(&lir.Instr{
		Op:      mustLookup(op, size, ShapeRM),
		Form:    lir.FormMemoryLoad,
		Size:    size,
		Result:  result,
		Address: addr,
		State:   state,
	})
	return result
}

// Load reads a value of kind from memory. Byte and Word loads sign extend
// into a 32-bit register.
func (l *Lowerer) Load(kind lir.ValueKind, addr *lir.Address, state *lir.FrameState) *lir.Variable {
	result := l.newVariable(registerKind(kind))
	switch k := kind.Platform; k {
	case lir.Byte:
		return l.emitLoad(result, OpMovSXB, lir.DWORD, addr, state)
	case lir.Word:
		return l.emitLoad(result, OpMovSXW, lir.DWORD, addr, state)
	case lir.DWord:
		return l.emitLoad(result, OpMov, lir.DWORD, addr, state)
	case lir.QWord:
		return l.emitLoad(result, OpMov, lir.QWORD, addr, state)
	case lir.Single:
		return l.emitLoad(result, OpMov, lir.SS, addr, state)
	case lir.Double:
		return l.emitLoad(result, OpMov, lir.SD, addr, state)
	default:
		shouldNotReachHere("load of %s", k)
		return nil
	}
}

// ZeroExtendLoad reads an integer of memKind and zero extends it to
// resultBits
func (l *Lowerer) ZeroExtendLoad(memKind lir.Kind, resultBits int, addr *lir.Address, state *lir.FrameState) *lir.Variable {
	kind := lir.ValueOf(lir.DWord)
	if resultBits > 32 {
		kind = lir.ValueOf(lir.QWord)
	}
	result := l.newVariable(kind)
	switch memKind {
	case lir.Byte:
		return l.emitLoad(result, OpMovZXB, lir.DWORD, addr, state)
	case lir.Word:
		return l.emitLoad(result, OpMovZXW, lir.DWORD, addr, state)
	case lir.DWord:
		return l.emitLoad(result, OpMov, lir.DWORD, addr, state)
	case lir.QWord:
		return l.emitLoad(result, OpMov, lir.QWORD, addr, state)
	}
	unimplemented("zero extending load of %s", memKind)
	return nil
}

// ConvertLoad applies a float conversion directly to a memory operand
func (l *Lowerer) ConvertLoad(c Conversion, addr *lir.Address, state *lir.FrameState) *lir.Variable {
	kind, op, size := c.encoding()
	return l.emitLoad(l.newVariable(lir.ValueOf(kind)), op, size, addr, state)
}

// BinaryMemory lowers a op [addr] with the second operand read from memory.
// Float sizes use the VEX three-operand form when the target has AVX.
func (l *Lowerer) BinaryMemory(op Operation, size lir.OperandSize, a lir.Value, addr *lir.Address, state *lir.FrameState) *lir.Variable {
	result := l.newVariable(lir.Combine(a))
	i := &lir.Instr{
		Size:    size,
		Result:  result,
		Inputs:  []lir.Value{l.asAllocatable(a)},
		Address: addr,
		State:   state,
	}
	switch size {
	case lir.SS, lir.SD, lir.PS, lir.PD:
		if l.target.HasAVX() {
			i.Op, i.Form = mustLookup(op, size, ShapeRRM), lir.FormMemoryThreeOp
			break
		}
		fallthrough
	default:
		i.Op, i.Form = mustLookup(op, size, ShapeRM), lir.FormMemoryTwoOp
	}
	l.append(i)
	return result
}

func storeSize(k lir.Kind) lir.OperandSize {
	switch k {
	case lir.Byte:
		return lir.BYTE
	case lir.Word:
		return lir.WORD
	case lir.DWord:
		return lir.DWORD
	case lir.QWord:
		return lir.QWORD
	case lir.Single:
		return lir.SS
	case lir.Double:
		return lir.SD
	}
	shouldNotReachHere("store of %s", k)
	return 0
}

// Store writes input to memory as kind. Constants are folded into the
// store when they can be encoded as an immediate.
func (l *Lowerer) Store(kind lir.ValueKind, addr *lir.Address, input lir.Value, state *lir.FrameState) *lir.Instr {
	if c, ok := input.(*lir.Constant); ok {
		return l.emitStoreConst(kind.Platform, addr, c, state)
	}
	return l.emitStore(kind.Platform, addr, input, state)
}

func (l *Lowerer) emitStore(k lir.Kind, addr *lir.Address, input lir.Value, state *lir.FrameState) *lir.Instr {
	size := storeSize(k)
	return l.append(&lir.Instr{
		Op:      mustLookup(OpMov, size, ShapeMR),
		Form:    lir.FormMemoryStore,
		Size:    size,
		Inputs:  []lir.Value{l.asAllocatable(input)},
		Address: addr,
		State:   state,
	})
}

// canEmbedSymbol reports whether a relocatable reference may be patched
// directly into an instruction immediate of the given width
func (l *Lowerer) canEmbedSymbol(c *lir.Constant, bits int) bool {
	if bits != l.target.PatchableImmediateBits() || l.target.GeneratePIC() {
		return false
	}
	return !c.IsObject() || l.target.InlineObjects()
}

func (l *Lowerer) emitStoreConst(k lir.Kind, addr *lir.Address, c *lir.Constant, state *lir.FrameState) *lir.Instr {
	switch {
	case c.IsNull():
		if k != lir.DWord && k != lir.QWord {
			shouldNotReachHere("null stored as %s", k)
		}
		size := storeSize(k)
		return l.append(&lir.Instr{
			Op:       mustLookup(OpMov, size, ShapeMI),
			Form:     lir.FormMemoryConst,
			Size:     size,
			Imm:      0,
			HasImm:   true,
			ImmWidth: 4,
			Address:  addr,
			State:    state,
		})
	case c.IsSymbolic():
		if k.IsInteger() && l.canEmbedSymbol(c, k.Bits()) {
			size := storeSize(k)
			return l.append(&lir.Instr{
				Op:      mustLookup(OpMov, size, ShapeMI),
				Form:    lir.FormMemorySymbol,
				Size:    size,
				Inputs:  []lir.Value{c},
				Address: addr,
				State:   state,
			})
		}
	default:
		// floats are stored through their bit pattern
		size, imm := storeSize(k), c.AsLong()
		if k == lir.Single {
			size = lir.DWORD
		} else if k == lir.Double {
			size = lir.QWORD
		}
		if IsInt(imm) {
			return l.append(&lir.Instr{
				Op:       mustLookup(OpMov, size, ShapeMI),
				Form:     lir.FormMemoryConst,
				Size:     size,
				Imm:      imm,
				HasImm:   true,
				ImmWidth: min(4, size.Bytes()),
				Address:  addr,
				State:    state,
			})
		}
	}
	return l.emitStore(k, addr, c, state)
}
