package amd64

import (
	"testing"

	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/xyproto/lirgen/internal/lir"
)

func testAddress(b *lir.Builder) *lir.Address {
	return &lir.Address{Base: b.NewVariable(lir.ReferenceOf(lir.QWord)), Disp: 16}
}

func TestStoreNullReference(t *testing.T) {
	l, b := newTestLowerer(sse)
	addr := testAddress(b)
	l.Store(lir.ReferenceOf(lir.QWord), addr, lir.Null(lir.QWord), nil)
	is := instrs(b)
	if len(is) != 1 {
		t.Fatalf("null store should need one instruction:\n%s", b.Dump())
	}
	i := is[0]
	if i.Op != x86.AMOVQ || i.Form != lir.FormMemoryConst || !i.HasImm || i.Imm != 0 || i.Address != addr {
		t.Errorf("got %s", i)
	}
}

func TestStorePrimitiveConstants(t *testing.T) {
	tests := []struct {
		kind  lir.Kind
		value *lir.Constant
		n     int
		op    obj.As
		form  lir.Form
	}{
		{lir.Byte, lir.IntConst(lir.Byte, -1), 1, x86.AMOVB, lir.FormMemoryConst},
		{lir.DWord, lir.Int(42), 1, x86.AMOVL, lir.FormMemoryConst},
		{lir.QWord, lir.Long(-5), 1, x86.AMOVQ, lir.FormMemoryConst},
		{lir.QWord, lir.Long(1 << 32), 2, x86.AMOVQ, lir.FormMemoryStore},
		{lir.Single, lir.FloatConst(1), 1, x86.AMOVL, lir.FormMemoryConst},
		{lir.Double, lir.DoubleConst(0), 1, x86.AMOVQ, lir.FormMemoryConst},
		{lir.Double, lir.DoubleConst(2.5), 2, x86.AMOVSD, lir.FormMemoryStore},
	}
	for _, tc := range tests {
		l, b := newTestLowerer(sse)
		l.Store(lir.ValueOf(tc.kind), testAddress(b), tc.value, nil)
		is := instrs(b)
		i := is[len(is)-1]
		if len(is) != tc.n || i.Op != tc.op || i.Form != tc.form {
			t.Errorf("store %s %s:\n%s", tc.kind, tc.value, b.Dump())
		}
	}
}

func TestStoreSymbol(t *testing.T) {
	tests := []struct {
		name   string
		target testTarget
		kind   lir.Kind
		object bool
		folded bool
	}{
		{"compressed object", testTarget{inline: true}, lir.DWord, true, true},
		{"object not inlined", testTarget{}, lir.DWord, true, false},
		{"metadata not inlined", testTarget{}, lir.DWord, false, true},
		{"pic", testTarget{pic: true, inline: true}, lir.DWord, true, false},
		{"full width", testTarget{inline: true}, lir.QWord, true, false},
		{"full width patchable", testTarget{inline: true, patchBits: 64}, lir.QWord, true, true},
		{"dword field on a 64-bit target", testTarget{inline: true, patchBits: 64}, lir.DWord, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, b := newTestLowerer(tc.target)
			c := lir.Symbol("obj", tc.kind, tc.object)
			l.Store(c.ValueKind(), testAddress(b), c, nil)
			i := last(t, b)
			if folded := i.Form == lir.FormMemorySymbol; folded != tc.folded {
				t.Errorf("folded=%v, want %v:\n%s", folded, tc.folded, b.Dump())
			}
			if tc.folded && i.Size != storeSize(tc.kind) {
				t.Errorf("folded store has size %s, want %s", i.Size, storeSize(tc.kind))
			}
			if !tc.folded && (len(instrs(b)) != 2 || i.Form != lir.FormMemoryStore) {
				t.Errorf("expected materialize then store:\n%s", b.Dump())
			}
		})
	}
}

func TestLoadKinds(t *testing.T) {
	tests := []struct {
		kind   lir.Kind
		op     obj.As
		result lir.Kind
	}{
		{lir.Byte, x86.AMOVBLSX, lir.DWord},
		{lir.Word, x86.AMOVWLSX, lir.DWord},
		{lir.DWord, x86.AMOVL, lir.DWord},
		{lir.QWord, x86.AMOVQ, lir.QWord},
		{lir.Single, x86.AMOVSS, lir.Single},
		{lir.Double, x86.AMOVSD, lir.Double},
	}
	for _, tc := range tests {
		l, b := newTestLowerer(sse)
		state := &lir.FrameState{BCI: 3}
		v := l.Load(lir.ValueOf(tc.kind), testAddress(b), state)
		i := last(t, b)
		if i.Op != tc.op || i.Form != lir.FormMemoryLoad || i.State != state || v.Kind.Platform != tc.result {
			t.Errorf("load %s: got %s", tc.kind, i)
		}
	}
}

func TestZeroExtendLoad(t *testing.T) {
	l, b := newTestLowerer(sse)
	v := l.ZeroExtendLoad(lir.Byte, 64, testAddress(b), nil)
	if i := last(t, b); i.Op != x86.AMOVBLZX || v.Kind.Platform != lir.QWord {
		t.Errorf("got %s", i)
	}
	expectInternalError(t, func() { l.ZeroExtendLoad(lir.Single, 32, testAddress(b), nil) })
}

func TestConvertLoadAndBinaryMemory(t *testing.T) {
	l, b := newTestLowerer(sse)
	v := l.ConvertLoad(I2D, testAddress(b), nil)
	if i := last(t, b); i.Op != x86.ACVTSL2SD || i.Form != lir.FormMemoryLoad || v.Kind.Platform != lir.Double {
		t.Errorf("got %s", i)
	}

	x := b.NewVariable(lir.ValueOf(lir.QWord))
	l.BinaryMemory(OpAdd, lir.QWORD, x, testAddress(b), nil)
	if i := last(t, b); i.Op != x86.AADDQ || i.Form != lir.FormMemoryTwoOp {
		t.Errorf("got %s", i)
	}

	l, b = newTestLowerer(testTarget{avx: true})
	f := b.NewVariable(lir.ValueOf(lir.Double))
	l.BinaryMemory(OpMul, lir.SD, f, testAddress(b), nil)
	if i := last(t, b); i.Op != x86.AVMULSD || i.Form != lir.FormMemoryThreeOp {
		t.Errorf("got %s", i)
	}
}
