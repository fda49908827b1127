// Completion: 100% - Kind and size descriptors complete
package lir

// Kind is the physical representation a value occupies on AMD64.
// Narrow integers (Byte, Word) only appear as memory kinds; in registers they
// are carried as DWord.
type Kind int

const (
	Byte Kind = iota
	Word
	DWord
	QWord
	Single
	Double
)

func (k Kind) String() string {
	switch k {
	case Byte:
		return "i8"
	case Word:
		return "i16"
	case DWord:
		return "i32"
	case QWord:
		return "i64"
	case Single:
		return "f32"
	case Double:
		return "f64"
	default:
		ShouldNotReachHere("unknown kind %d", int(k))
		return ""
	}
}

// ParseKind accepts the names produced by Kind.String
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "i8", "byte":
		return Byte, true
	case "i16", "word":
		return Word, true
	case "i32", "dword", "int":
		return DWord, true
	case "i64", "qword", "long", "obj":
		return QWord, true
	case "f32", "float", "single":
		return Single, true
	case "f64", "double":
		return Double, true
	}
	return 0, false
}

// Bits returns the width of the kind in bits
func (k Kind) Bits() int {
	switch k {
	case Byte:
		return 8
	case Word:
		return 16
	case DWord, Single:
		return 32
	case QWord, Double:
		return 64
	default:
		ShouldNotReachHere("unknown kind %d", int(k))
		return 0
	}
}

// IsInteger reports whether the kind lives in a general purpose register
func (k Kind) IsInteger() bool {
	switch k {
	case Byte, Word, DWord, QWord:
		return true
	case Single, Double:
		return false
	default:
		ShouldNotReachHere("unknown kind %d", int(k))
		return false
	}
}

// IsXMM reports whether the kind lives in an SSE register
func (k Kind) IsXMM() bool {
	return !k.IsInteger()
}

// OperandSize is the size attribute an instruction is encoded with.
// SS/SD are scalar float sizes, PS/PD the packed sizes used by the bitwise
// float operations.
type OperandSize int

const (
	BYTE OperandSize = iota
	WORD
	DWORD
	QWORD
	SS
	SD
	PS
	PD
)

func (s OperandSize) String() string {
	switch s {
	case BYTE:
		return "byte"
	case WORD:
		return "word"
	case DWORD:
		return "dword"
	case QWORD:
		return "qword"
	case SS:
		return "ss"
	case SD:
		return "sd"
	case PS:
		return "ps"
	case PD:
		return "pd"
	default:
		return "size?"
	}
}

// Bytes returns the operand width in bytes
func (s OperandSize) Bytes() int {
	switch s {
	case BYTE:
		return 1
	case WORD:
		return 2
	case DWORD, SS:
		return 4
	case QWORD, SD:
		return 8
	case PS, PD:
		return 16
	default:
		ShouldNotReachHere("unknown operand size %d", int(s))
		return 0
	}
}

// RefKind tracks whether a value holds a heap reference
type RefKind int

const (
	Primitive RefKind = iota
	Reference
	// Derived values are computed from a reference (e.g. base + offset)
	Derived
)

// ValueKind is the kind of a symbolic value: its platform kind plus whether
// the garbage collector has to know about it.
type ValueKind struct {
	Platform Kind
	Ref      RefKind
}

// ValueOf returns a primitive ValueKind for k
func ValueOf(k Kind) ValueKind {
	return ValueKind{Platform: k}
}

// ReferenceOf returns the ValueKind of an object reference with platform kind k
func ReferenceOf(k Kind) ValueKind {
	return ValueKind{Platform: k, Ref: Reference}
}

// ChangeType keeps the reference state and swaps the platform kind
func (vk ValueKind) ChangeType(k Kind) ValueKind {
	vk.Platform = k
	return vk
}

// IsReference reports whether the value is (or is derived from) a reference
func (vk ValueKind) IsReference() bool {
	return vk.Ref != Primitive
}

func (vk ValueKind) String() string {
	switch vk.Ref {
	case Reference:
		return vk.Platform.String() + "[ref]"
	case Derived:
		return vk.Platform.String() + "[derived]"
	}
	return vk.Platform.String()
}

// Combine returns the kind of a result computed from the given inputs.
// The platform kind is taken from the first input; any reference input makes
// the result a derived reference.
func Combine(inputs ...Value) ValueKind {
	if len(inputs) == 0 {
		ShouldNotReachHere("combine without inputs")
	}
	result := inputs[0].ValueKind()
	result.Ref = Primitive
	for _, v := range inputs {
		if v.ValueKind().IsReference() {
			result.Ref = Derived
		}
	}
	return result
}
