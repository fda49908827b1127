// Completion: 100% - Target capability interface complete
package amd64

// Extension is an instruction set extension beyond the SSE2 baseline that
// some operations cannot be lowered without
type Extension int

const (
	ExtPOPCNT Extension = iota
	// ExtBMI1 covers TZCNT, and LZCNT which ships with every BMI1 part
	ExtBMI1
	// ExtSSE41 covers ROUNDSS and ROUNDSD
	ExtSSE41
)

func (e Extension) String() string {
	switch e {
	case ExtPOPCNT:
		return "POPCNT"
	case ExtBMI1:
		return "BMI1"
	case ExtSSE41:
		return "SSE4.1"
	}
	return "unknown extension"
}

// Target is the capability query of the processor and runtime being compiled
// for. engine.Features implements it.
type Target interface {
	HasAVX() bool
	Supports(ext Extension) bool
	WordSize() int
	// DividendRegisters returns the fixed low/high registers of MUL and DIV
	DividendRegisters() (low, high int16)
	ShiftCountRegister() int16
	// InlineObjects reports whether object references may be embedded
	// directly into instruction immediates
	InlineObjects() bool
	GeneratePIC() bool
	PatchableImmediateBits() int
}
