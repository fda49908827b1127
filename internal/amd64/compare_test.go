package amd64

import (
	"testing"

	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/xyproto/lirgen/internal/lir"
)

func TestCompareForms(t *testing.T) {
	tests := []struct {
		name   string
		target testTarget
		kind   lir.Kind
		right  func(b *lir.Builder) lir.Value
		op     obj.As
		form   lir.Form
	}{
		{"zero", sse, lir.DWord, func(*lir.Builder) lir.Value { return lir.Int(0) }, x86.ATESTL, lir.FormCompare},
		{"null", sse, lir.QWord, func(*lir.Builder) lir.Value { return lir.Null(lir.QWord) }, x86.ATESTQ, lir.FormCompare},
		{"byte zero", sse, lir.Byte, func(*lir.Builder) lir.Value { return lir.IntConst(lir.Byte, 0) }, x86.ATESTB, lir.FormCompare},
		{"imm", sse, lir.DWord, func(*lir.Builder) lir.Value { return lir.Int(7) }, x86.ACMPL, lir.FormCompareConst},
		{"wide", sse, lir.QWord, func(*lir.Builder) lir.Value { return lir.Long(1 << 40) }, x86.ACMPQ, lir.FormCompare},
		{"symbol", sse, lir.DWord, func(*lir.Builder) lir.Value { return lir.Symbol("klass", lir.DWord, false) }, x86.ACMPL, lir.FormCompareSymbol},
		{"symbol pic", testTarget{pic: true}, lir.DWord, func(*lir.Builder) lir.Value { return lir.Symbol("klass", lir.DWord, false) }, x86.ACMPL, lir.FormCompareData},
		{"symbol qword", sse, lir.QWord, func(*lir.Builder) lir.Value { return lir.Symbol("klass", lir.QWord, false) }, x86.ACMPQ, lir.FormCompareData},
		{"register", sse, lir.DWord, func(b *lir.Builder) lir.Value { return b.NewVariable(lir.ValueOf(lir.DWord)) }, x86.ACMPL, lir.FormCompare},
		{"float", sse, lir.Single, func(b *lir.Builder) lir.Value { return b.NewVariable(lir.ValueOf(lir.Single)) }, x86.AUCOMISS, lir.FormCompare},
		{"double", sse, lir.Double, func(b *lir.Builder) lir.Value { return b.NewVariable(lir.ValueOf(lir.Double)) }, x86.AUCOMISD, lir.FormCompare},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, b := newTestLowerer(tc.target)
			x := b.NewVariable(registerKind(lir.ValueOf(tc.kind)))
			i := l.Compare(tc.kind, x, tc.right(b))
			if i != last(t, b) {
				t.Fatalf("Compare should return the last instruction")
			}
			if i.Op != tc.op || i.Form != tc.form {
				t.Errorf("got %s", i)
			}
			if !i.DefinesFlagsOnly() || i.Result != nil {
				t.Errorf("compare must not produce a value: %s", i)
			}
		})
	}
}

func TestCompareFloatConstantZero(t *testing.T) {
	l, b := newTestLowerer(sse)
	x := b.NewVariable(lir.ValueOf(lir.Double))
	l.Compare(lir.Double, x, lir.DoubleConst(0))
	is := instrs(b)
	if len(is) != 2 || is[0].Op != x86.AXORPD || is[0].Form != lir.FormClear {
		t.Fatalf("+0.0 should use the zero idiom:\n%s", b.Dump())
	}
}
