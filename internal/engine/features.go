// Completion: 100% - Target description complete
package engine

import (
	"fmt"
	"strings"

	"github.com/twitchyliquid64/golang-asm/obj/x86"
	"golang.org/x/sys/cpu"

	"github.com/xyproto/lirgen/internal/amd64"
)

// Features describes an x86_64 compilation target: which instruction set
// extensions may be used and how constants may be embedded. A Features value
// is read-only once built and can be shared between concurrent compilations.
type Features struct {
	Arch   Arch
	AVX    bool
	POPCNT bool
	BMI1   bool // TZCNT; LZCNT ships together with it on every BMI1 part
	SSE41  bool // ROUNDSS/ROUNDSD

	// PIC forbids absolute relocations inside immediate fields
	PIC           bool
	// EmbedObjects allows heap object pointers to be embedded in code
	EmbedObjects  bool
	// PatchableBits is the width of immediate fields a relocation can patch
	PatchableBits int
}

// Baseline returns the x86_64 baseline: SSE2 only, no PIC, objects inlined
// through 32-bit (compressed) relocations
func Baseline() Features {
	return Features{
		Arch:          ArchX86_64,
		EmbedObjects:  true,
		PatchableBits: 32,
	}
}

// Level returns the x86-64 microarchitecture level n (1 to 4). Level 2 adds
// POPCNT and SSE4.1, level 3 adds AVX and BMI1. Level 4 only adds AVX-512,
// which nothing here selects.
func Level(n int) (Features, error) {
	f := Baseline()
	switch n {
	case 3, 4:
		f.AVX = true
		f.BMI1 = true
		fallthrough
	case 2:
		f.POPCNT = true
		f.SSE41 = true
	case 1:
	default:
		return Features{}, fmt.Errorf("unknown x86-64 level %d (want 1 to 4)", n)
	}
	return f, nil
}

// DetectHost returns the baseline extended with the features of the CPU the
// process runs on
func DetectHost() Features {
	f := Baseline()
	if HostArch() != ArchX86_64 {
		return f
	}
	f.AVX = cpu.X86.HasAVX
	f.POPCNT = cpu.X86.HasPOPCNT
	f.BMI1 = cpu.X86.HasBMI1
	f.SSE41 = cpu.X86.HasSSE41
	return f
}

func (f Features) HasAVX() bool { return f.AVX }

// Supports reports whether ext may be used
func (f Features) Supports(ext amd64.Extension) bool {
	switch ext {
	case amd64.ExtPOPCNT:
		return f.POPCNT
	case amd64.ExtBMI1:
		return f.BMI1
	case amd64.ExtSSE41:
		return f.SSE41
	}
	return false
}
func (f Features) WordSize() int { return 8 }
func (f Features) GeneratePIC() bool { return f.PIC }
func (f Features) InlineObjects() bool { return f.EmbedObjects }

// PatchableImmediateBits returns the field width relocations can be folded into
func (f Features) PatchableImmediateBits() int {
	if f.PatchableBits == 0 {
		return 32
	}
	return f.PatchableBits
}

// DividendRegisters returns the low and high halves of the dividend
func (f Features) DividendRegisters() (low, high int16) {
	return x86.REG_AX, x86.REG_DX
}

// ShiftCountRegister returns the register variable shift counts are read from
func (f Features) ShiftCountRegister() int16 {
	return x86.REG_CX
}

func (f Features) String() string {
	var sb strings.Builder
	sb.WriteString(f.Arch.String())
	flag := func(name string, on bool) {
		if on {
			sb.WriteString(" +")
		} else {
			sb.WriteString(" -")
		}
		sb.WriteString(name)
	}
	flag("avx", f.AVX)
	flag("popcnt", f.POPCNT)
	flag("bmi1", f.BMI1)
	flag("sse4.1", f.SSE41)
	flag("pic", f.PIC)
	flag("inline-objects", f.EmbedObjects)
	return sb.String()
}
