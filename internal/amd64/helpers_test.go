package amd64

import (
	"errors"
	"fmt"
	"testing"

	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/xyproto/lirgen/internal/lir"
)

type testTarget struct {
	avx    bool
	pic    bool
	inline bool

	// legacy drops POPCNT, BMI1 and SSE4.1
	legacy    bool
	patchBits int
}

func (t testTarget) HasAVX() bool { return t.avx }
func (t testTarget) Supports(Extension) bool { return !t.legacy }
func (t testTarget) WordSize() int { return 8 }
func (t testTarget) DividendRegisters() (int16, int16) { return x86.REG_AX, x86.REG_DX }
func (t testTarget) ShiftCountRegister() int16 { return x86.REG_CX }
func (t testTarget) InlineObjects() bool { return t.inline }
func (t testTarget) GeneratePIC() bool { return t.pic }
func (t testTarget) PatchableImmediateBits() int {
	if t.patchBits == 0 {
		return 32
	}
	return t.patchBits
}

var sse = testTarget{inline: true}

func newTestLowerer(target Target) (*Lowerer, *lir.Builder) {
	b := lir.NewBuilder()
	b.StartBlock("entry")
	return New(target, b), b
}

func instrs(b *lir.Builder) []*lir.Instr {
	return b.Current().Instrs
}

func last(t *testing.T, b *lir.Builder) *lir.Instr {
	t.Helper()
	is := instrs(b)
	if len(is) == 0 {
		t.Fatalf("no instructions emitted")
	}
	return is[len(is)-1]
}

// expectInternalError runs f and fails unless it raises an internal error
func expectInternalError(t *testing.T, f func()) {
	t.Helper()
	var err error
	func() {
		defer lir.Recover(&err)
		f()
	}()
	var ie *lir.InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("expected an internal error, got %v", err)
	}
}

// machine is a reference evaluator for the integer instructions the lowering
// emits. Registers and variables share one namespace.
type machine struct {
	regs map[string]uint64
}

func newMachine() *machine {
	return &machine{regs: make(map[string]uint64)}
}

func valueKey(v lir.Value) string {
	switch v := v.(type) {
	case *lir.Variable:
		return fmt.Sprintf("v%d", v.ID)
	case lir.RegisterValue:
		return fmt.Sprintf("r%d", v.Reg)
	}
	panic(fmt.Sprintf("no storage for %s", v))
}

func (m *machine) set(v lir.Value, x uint64) { m.regs[valueKey(v)] = x }
func (m *machine) get(v lir.Value) uint64 { return m.read(v) }

func (m *machine) read(v lir.Value) uint64 {
	if c, ok := v.(*lir.Constant); ok {
		return uint64(c.AsLong())
	}
	return m.regs[valueKey(v)]
}

func (m *machine) run(t *testing.T, is []*lir.Instr) {
	t.Helper()
	for _, i := range is {
		in := func(n int) uint64 { return m.read(i.Inputs[n]) }
		operand := func() uint64 {
			switch {
			case i.HasImm:
				return uint64(i.Imm)
			case i.Data != nil:
				return i.Data.RawBits()
			case len(i.Inputs) > 1:
				return in(1)
			}
			t.Fatalf("no second operand in %s", i)
			return 0
		}
		source := func() uint64 {
			if i.HasImm {
				return uint64(i.Imm)
			}
			return in(0)
		}
		var r uint64
		switch i.Op {
		case x86.AMOVL:
			r = uint64(uint32(source()))
		case x86.AMOVQ:
			r = source()
		case x86.AMOVBLSX:
			r = uint64(uint32(int32(int8(in(0)))))
		case x86.AMOVBQSX:
			r = uint64(int64(int8(in(0))))
		case x86.AMOVWLSX:
			r = uint64(uint32(int32(int16(in(0)))))
		case x86.AMOVWQSX:
			r = uint64(int64(int16(in(0))))
		case x86.AMOVLQSX:
			r = uint64(int64(int32(in(0))))
		case x86.AMOVBLZX:
			r = uint64(uint8(in(0)))
		case x86.AMOVWLZX:
			r = uint64(uint16(in(0)))
		case x86.AADDL:
			r = uint64(uint32(in(0) + operand()))
		case x86.AADDQ:
			r = in(0) + operand()
		case x86.ASUBL:
			r = uint64(uint32(in(0) - operand()))
		case x86.ASUBQ:
			r = in(0) - operand()
		case x86.AINCL:
			r = uint64(uint32(in(0) + 1))
		case x86.AINCQ:
			r = in(0) + 1
		case x86.ADECL:
			r = uint64(uint32(in(0) - 1))
		case x86.ADECQ:
			r = in(0) - 1
		case x86.AANDL:
			r = uint64(uint32(in(0) & operand()))
		case x86.AANDQ:
			r = in(0) & operand()
		case x86.AIMULL, x86.AIMUL3L:
			r = uint64(uint32(in(0) * operand()))
		case x86.AIMULQ, x86.AIMUL3Q:
			r = in(0) * operand()
		default:
			t.Fatalf("evaluator: unsupported instruction %s", i)
		}
		m.set(i.Result, r)
	}
}
