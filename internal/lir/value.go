// Completion: 100% - Value model complete
package lir

import (
	"fmt"
	"math"

	"github.com/twitchyliquid64/golang-asm/obj"
)

// Value is an operand of an LIR instruction: a fresh variable, a fixed
// register, a stack slot or a constant.
type Value interface {
	ValueKind() ValueKind
	String() string
}

// Variable is a symbolic register. It is defined exactly once, by the
// instruction that produces it, and is resolved by the register allocator.
type Variable struct {
	ID   int
	Kind ValueKind
}

func (v *Variable) ValueKind() ValueKind { return v.Kind }
func (v *Variable) String() string { return fmt.Sprintf("v%d:%s", v.ID, v.Kind) }

// RegisterValue is a value pinned to a physical register.
// Reg uses the golang-asm register numbering (x86.REG_AX, ...).
type RegisterValue struct {
	Reg  int16
	Kind ValueKind
}

func (r RegisterValue) ValueKind() ValueKind { return r.Kind }
func (r RegisterValue) String() string {
	return fmt.Sprintf("%%%s:%s", obj.Rconv(int(r.Reg)), r.Kind)
}

// StackSlot is a frame location, relative to the frame base
type StackSlot struct {
	Offset int
	Kind   ValueKind
}

func (s StackSlot) ValueKind() ValueKind { return s.Kind }
func (s StackSlot) String() string { return fmt.Sprintf("stack:%d:%s", s.Offset, s.Kind) }

// IsAllocatable reports whether v can be used directly as a register or
// stack operand (everything except constants)
func IsAllocatable(v Value) bool {
	switch v.(type) {
	case *Variable, RegisterValue, StackSlot:
		return true
	case *Constant:
		return false
	case nil:
		return false
	default:
		ShouldNotReachHere("unexpected value %T", v)
		return false
	}
}

// Constant is an immutable literal. Integer and float constants keep their raw
// bit pattern; symbolic constants are linker-relocatable references.
type Constant struct {
	kind   ValueKind
	bits   uint64
	null   bool
	symbol string
	object bool
}

// IntConst returns an integer constant of the given integer kind
func IntConst(k Kind, v int64) *Constant {
	if !k.IsInteger() {
		ShouldNotReachHere("integer constant of kind %s", k)
	}
	return &Constant{kind: ValueOf(k), bits: uint64(v)}
}

// Int returns a 32-bit integer constant
func Int(v int32) *Constant { return IntConst(DWord, int64(v)) }

// Long returns a 64-bit integer constant
func Long(v int64) *Constant { return IntConst(QWord, v) }

// FloatConst returns a single precision constant
func FloatConst(f float32) *Constant {
	return &Constant{kind: ValueOf(Single), bits: uint64(math.Float32bits(f))}
}

// DoubleConst returns a double precision constant
func DoubleConst(d float64) *Constant {
	return &Constant{kind: ValueOf(Double), bits: math.Float64bits(d)}
}

// FloatBits returns a single precision constant with the exact bit pattern
func FloatBits(bits uint32) *Constant {
	return &Constant{kind: ValueOf(Single), bits: uint64(bits)}
}

// DoubleBits returns a double precision constant with the exact bit pattern
func DoubleBits(bits uint64) *Constant {
	return &Constant{kind: ValueOf(Double), bits: bits}
}

// Null returns the null reference. k is DWord for compressed references.
func Null(k Kind) *Constant {
	return &Constant{kind: ReferenceOf(k), null: true}
}

// Symbol returns a relocatable reference to name. object distinguishes heap
// object pointers from metadata pointers.
func Symbol(name string, k Kind, object bool) *Constant {
	vk := ValueOf(k)
	if object {
		vk = ReferenceOf(k)
	}
	return &Constant{kind: vk, symbol: name, object: object}
}

func (c *Constant) ValueKind() ValueKind { return c.kind }

// Kind returns the platform kind of the constant
func (c *Constant) Kind() Kind { return c.kind.Platform }

// RawBits returns the bit pattern, zero for null and symbolic constants
func (c *Constant) RawBits() uint64 { return c.bits }

// IsNull reports whether the constant is the null reference
func (c *Constant) IsNull() bool { return c.null }

// IsSymbolic reports whether the constant needs a relocation
func (c *Constant) IsSymbolic() bool { return c.symbol != "" }

// SymbolName returns the relocation target of a symbolic constant
func (c *Constant) SymbolName() string { return c.symbol }

// IsObject reports whether a symbolic constant points to a heap object
func (c *Constant) IsObject() bool { return c.object }

// AsLong returns the value sign-extended from the constant's width
func (c *Constant) AsLong() int64 {
	switch c.kind.Platform {
	case Byte:
		return int64(int8(c.bits))
	case Word:
		return int64(int16(c.bits))
	case DWord, Single:
		return int64(int32(c.bits))
	case QWord, Double:
		return int64(c.bits)
	default:
		ShouldNotReachHere("unknown kind %d", int(c.kind.Platform))
		return 0
	}
}

// AsInt returns the low 32 bits of the value
func (c *Constant) AsInt() int32 { return int32(c.bits) }

// AsFloat interprets the constant as a single precision float
func (c *Constant) AsFloat() float32 { return math.Float32frombits(uint32(c.bits)) }

// AsDouble interprets the constant as a double precision float
func (c *Constant) AsDouble() float64 { return math.Float64frombits(c.bits) }

// IsDefaultForKind reports whether the constant is the all-zero value of its
// kind (0, +0.0 or null)
func (c *Constant) IsDefaultForKind() bool {
	if c.IsSymbolic() {
		return false
	}
	return c.null || c.bits == 0
}

func (c *Constant) String() string {
	switch {
	case c.null:
		return "null"
	case c.IsSymbolic():
		return "@" + c.symbol
	}
	switch c.kind.Platform {
	case Single:
		return fmt.Sprintf("%gf", c.AsFloat())
	case Double:
		return fmt.Sprintf("%gd", c.AsDouble())
	}
	return fmt.Sprintf("%d", c.AsLong())
}
