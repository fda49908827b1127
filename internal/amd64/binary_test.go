package amd64

import (
	"testing"

	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/xyproto/lirgen/internal/lir"
)

func TestAddConstantUsesImmediate(t *testing.T) {
	l, b := newTestLowerer(sse)
	x := b.NewVariable(lir.ValueOf(lir.DWord))
	res := l.Add(lir.ValueOf(lir.DWord), x, lir.Int(5), false)

	if n := len(instrs(b)); n != 1 {
		t.Fatalf("expected 1 instruction, got %d:\n%s", n, b.Dump())
	}
	i := last(t, b)
	if i.Op != x86.AADDL || i.Form != lir.FormConst {
		t.Errorf("expected ADDL in const form, got %s", i)
	}
	if !i.HasImm || i.Imm != 5 || i.ImmWidth != 1 {
		t.Errorf("expected imm8 5, got %s (width %d)", i, i.ImmWidth)
	}
	if i.Result != lir.Value(res) || res == x {
		t.Errorf("result must be a fresh variable, got %s", i.Result)
	}
	if res.Kind.Platform != lir.DWord {
		t.Errorf("expected i32 result, got %s", res.Kind)
	}
}

func TestCommutativeConstantIsSwapped(t *testing.T) {
	for _, tc := range []struct {
		name  string
		lower func(l *Lowerer, a, b lir.Value) *lir.Variable
		op    obj.As
	}{
		{"add", func(l *Lowerer, a, b lir.Value) *lir.Variable { return l.Add(lir.ValueOf(lir.DWord), a, b, false) }, x86.AADDL},
		{"and", (*Lowerer).And, x86.AANDL},
		{"or", (*Lowerer).Or, x86.AORL},
		{"xor", (*Lowerer).Xor, x86.AXORL},
	} {
		t.Run(tc.name, func(t *testing.T) {
			l, b := newTestLowerer(sse)
			x := b.NewVariable(lir.ValueOf(lir.DWord))
			tc.lower(l, lir.Int(7), x)
			is := instrs(b)
			if len(is) != 1 {
				t.Fatalf("constant should be folded, got:\n%s", b.Dump())
			}
			if is[0].Op != tc.op || is[0].Form != lir.FormConst || is[0].Imm != 7 || is[0].Inputs[0] != lir.Value(x) {
				t.Errorf("unexpected %s", is[0])
			}
		})
	}
}

func TestCommutativeSwapPreservesValue(t *testing.T) {
	for _, x := range []uint64{0, 1, 41, 0xFFFFFFFF, 0x80000000} {
		l, b := newTestLowerer(sse)
		v := b.NewVariable(lir.ValueOf(lir.DWord))
		r1 := l.Add(lir.ValueOf(lir.DWord), v, lir.Int(5), true)
		r2 := l.Add(lir.ValueOf(lir.DWord), lir.Int(5), v, true)
		m := newMachine()
		m.set(v, x)
		m.run(t, instrs(b))
		if m.get(r1) != m.get(r2) {
			t.Errorf("add(%#x, 5) = %#x but add(5, %#x) = %#x", x, m.get(r1), x, m.get(r2))
		}
	}
}

func TestSubConstantOnLeftIsMaterialized(t *testing.T) {
	l, b := newTestLowerer(sse)
	x := b.NewVariable(lir.ValueOf(lir.DWord))
	l.Sub(lir.ValueOf(lir.DWord), lir.Int(5), x, false)
	is := instrs(b)
	if len(is) != 2 {
		t.Fatalf("expected move and sub, got:\n%s", b.Dump())
	}
	if is[0].Op != x86.AMOVL || !is[0].HasImm || is[0].Imm != 5 {
		t.Errorf("expected MOVL $5, got %s", is[0])
	}
	if is[1].Op != x86.ASUBL || is[1].Form != lir.FormTwoOp || is[1].Inputs[1] != lir.Value(x) {
		t.Errorf("expected non-commutative SUBL, got %s", is[1])
	}
}

func TestImmediateBoundary(t *testing.T) {
	tests := []struct {
		name   string
		sub    bool
		value  int64
		folded bool
	}{
		{"add 2^31-1", false, 1<<31 - 1, true},
		{"add 2^31", false, 1 << 31, false},
		{"add -2^31", false, -1 << 31, true},
		{"add -2^31-1", false, -1<<31 - 1, false},
		{"sub 2^31-1", true, 1<<31 - 1, true},
		{"sub 2^31", true, 1 << 31, false},
		{"sub -2^31", true, -1 << 31, true},
		{"sub -2^31-1", true, -1<<31 - 1, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, b := newTestLowerer(sse)
			x := b.NewVariable(lir.ValueOf(lir.QWord))
			lower, op := (*Lowerer).Add, obj.As(x86.AADDQ)
			if tc.sub {
				lower, op = (*Lowerer).Sub, x86.ASUBQ
			}
			r := lower(l, lir.ValueOf(lir.QWord), x, lir.Long(tc.value), false)

			is := instrs(b)
			if tc.folded {
				if len(is) != 1 {
					t.Fatalf("%d should be an immediate:\n%s", tc.value, b.Dump())
				}
				if i := is[0]; i.Op != op || i.Imm != tc.value || i.ImmWidth != 4 {
					t.Errorf("unexpected %s", i)
				}
			} else {
				if len(is) != 2 {
					t.Fatalf("%d must be materialized:\n%s", tc.value, b.Dump())
				}
				if is[0].Op != x86.AMOVQ || is[0].Imm != tc.value || is[0].ImmWidth != 8 {
					t.Errorf("expected MOVQ imm64, got %s", is[0])
				}
				if is[1].Op != op || is[1].HasImm || is[1].Inputs[1] != is[0].Result {
					t.Errorf("expected register form, got %s", is[1])
				}
			}

			m := newMachine()
			m.set(x, 0x1234_5678_9abc)
			m.run(t, is)
			want := uint64(0x1234_5678_9abc) + uint64(tc.value)
			if tc.sub {
				want = uint64(0x1234_5678_9abc) - uint64(tc.value)
			}
			if got := m.get(r); got != want {
				t.Errorf("got %#x, want %#x", got, want)
			}
		})
	}
}

func TestIncDecPeephole(t *testing.T) {
	tests := []struct {
		sub      bool
		imm      int32
		setFlags bool
		want     obj.As
	}{
		{false, 1, false, x86.AINCL},
		{false, -1, false, x86.ADECL},
		{true, 1, false, x86.ADECL},
		{true, -1, false, x86.AINCL},
		{false, 1, true, x86.AADDL},
		{true, 1, true, x86.ASUBL},
		{false, 2, false, x86.AADDL},
	}
	for _, tc := range tests {
		l, b := newTestLowerer(sse)
		x := b.NewVariable(lir.ValueOf(lir.DWord))
		if tc.sub {
			l.Sub(lir.ValueOf(lir.DWord), x, lir.Int(tc.imm), tc.setFlags)
		} else {
			l.Add(lir.ValueOf(lir.DWord), x, lir.Int(tc.imm), tc.setFlags)
		}
		if got := last(t, b).Op; got != tc.want {
			t.Errorf("sub=%v imm=%d setFlags=%v: got %s, want %s", tc.sub, tc.imm, tc.setFlags, got, tc.want)
		}
	}
}

func TestFloatArithmetic(t *testing.T) {
	for _, tc := range []struct {
		avx  bool
		op   obj.As
		form lir.Form
	}{
		{false, x86.AADDSD, lir.FormCommutativeTwoOp},
		{true, x86.AVADDSD, lir.FormCommutativeThreeOp},
	} {
		l, b := newTestLowerer(testTarget{avx: tc.avx})
		x := b.NewVariable(lir.ValueOf(lir.Double))
		y := b.NewVariable(lir.ValueOf(lir.Double))
		l.Add(lir.ValueOf(lir.Double), x, y, false)
		if i := last(t, b); i.Op != tc.op || i.Form != tc.form {
			t.Errorf("avx=%v: got %s", tc.avx, i)
		}
	}

	l, b := newTestLowerer(sse)
	x := b.NewVariable(lir.ValueOf(lir.Single))
	l.Sub(lir.ValueOf(lir.Single), x, lir.FloatConst(1.5), false)
	i := last(t, b)
	if i.Op != x86.ASUBSS || i.Form != lir.FormDataTwoOp || i.Data.AsFloat() != 1.5 || i.Align != 4 {
		t.Errorf("float constant should come from the data section, got %s", i)
	}
}

func TestFloatNegateMask(t *testing.T) {
	for _, tc := range []struct {
		kind lir.Kind
		avx  bool
		op   obj.As
		mask uint64
	}{
		{lir.Single, false, x86.AXORPS, 0x80000000},
		{lir.Double, false, x86.AXORPD, 0x8000000000000000},
		{lir.Single, true, x86.AVXORPS, 0x80000000},
		{lir.Double, true, x86.AVXORPD, 0x8000000000000000},
	} {
		l, b := newTestLowerer(testTarget{avx: tc.avx})
		x := b.NewVariable(lir.ValueOf(tc.kind))
		l.Negate(x)
		i := last(t, b)
		if i.Op != tc.op || i.Data == nil || i.Data.RawBits() != tc.mask || i.Align != 16 {
			t.Errorf("negate %s avx=%v: got %s", tc.kind, tc.avx, i)
		}
	}
}

func TestIntegerNegateAndNot(t *testing.T) {
	l, b := newTestLowerer(sse)
	x := b.NewVariable(lir.ValueOf(lir.QWord))
	l.Negate(x)
	if i := last(t, b); i.Op != x86.ANEGQ || i.Form != lir.FormM {
		t.Errorf("got %s", i)
	}
	l.Not(x)
	if i := last(t, b); i.Op != x86.ANOTQ {
		t.Errorf("got %s", i)
	}
	f := b.NewVariable(lir.ValueOf(lir.Double))
	expectInternalError(t, func() { l.Not(f) })
}

func TestFloatLogicUsesPackedSize(t *testing.T) {
	l, b := newTestLowerer(sse)
	x := b.NewVariable(lir.ValueOf(lir.Double))
	y := b.NewVariable(lir.ValueOf(lir.Double))
	l.And(x, y)
	if i := last(t, b); i.Op != x86.AANDPD || i.Size != lir.PD {
		t.Errorf("got %s", i)
	}
}

func TestAbsMask(t *testing.T) {
	l, b := newTestLowerer(sse)
	x := b.NewVariable(lir.ValueOf(lir.Single))
	l.MathAbs(x)
	if i := last(t, b); i.Op != x86.AANDPS || i.Data.RawBits() != 0x7FFFFFFF {
		t.Errorf("got %s", i)
	}
}

func TestUnsupportedKindsPanic(t *testing.T) {
	l, b := newTestLowerer(sse)
	f := b.NewVariable(lir.ValueOf(lir.Single))
	i8 := b.NewVariable(lir.ValueOf(lir.Byte))
	expectInternalError(t, func() { l.Rol(f, lir.Int(1)) })
	expectInternalError(t, func() { l.Add(lir.ValueOf(lir.Byte), i8, lir.Int(1), false) })
	expectInternalError(t, func() { l.BitCount(f) })
	expectInternalError(t, func() { l.MathSin(f) })
}
