// Completion: 100% - Operand classifier complete
package amd64

import (
	"math"

	"github.com/xyproto/lirgen/internal/lir"
)

// IsFoldableConstant reports whether v is a compile-time constant that may be
// encoded into an instruction. Symbolic constants need a relocation and are
// not foldable into arithmetic.
func IsFoldableConstant(v lir.Value) bool {
	c, ok := v.(*lir.Constant)
	return ok && !c.IsSymbolic()
}

func asFoldable(v lir.Value) (*lir.Constant, bool) {
	c, ok := v.(*lir.Constant)
	if !ok || c.IsSymbolic() {
		return nil, false
	}
	return c, true
}

// IsInt reports whether x survives a round trip through a signed 32-bit field
func IsInt(x int64) bool {
	return x == int64(int32(x))
}

// IsByte reports whether x fits a signed 8-bit field
func IsByte(x int64) bool {
	return x == int64(int8(x))
}

// FitsImmediate reports whether c can be encoded in a signed immediate field
// of the given width in bits
func FitsImmediate(c *lir.Constant, bits int) bool {
	if c.IsSymbolic() {
		return false
	}
	x := c.AsLong()
	switch bits {
	case 8:
		return IsByte(x)
	case 16:
		return x >= math.MinInt16 && x <= math.MaxInt16
	case 32:
		return IsInt(x)
	case 64:
		return true
	}
	shouldNotReachHere("immediate field of %d bits", bits)
	return false
}

// ImmediateWidth returns the smallest encoded width in bytes for x
func ImmediateWidth(x int64) int {
	switch {
	case IsByte(x):
		return 1
	case IsInt(x):
		return 4
	}
	return 8
}

// mask returns a value with the low bits set
func mask(bits int) int64 {
	if bits >= 64 {
		return -1
	}
	return int64(1)<<uint(bits) - 1
}
