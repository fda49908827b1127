package main

import (
	"strings"
	"sync"
	"testing"

	"github.com/xyproto/lirgen/internal/engine"
	"github.com/xyproto/lirgen/internal/lir"
)

// v2Target is x86-64-v2: POPCNT and SSE4.1, no AVX
func v2Target() engine.Features {
	f, err := engine.Level(2)
	if err != nil {
		panic(err)
	}
	return f
}

// lowerOK lowers src for x86-64-v2 and fails the test on any error
func lowerOK(t *testing.T, src string) *Unit {
	t.Helper()
	return lowerWith(t, v2Target(), src)
}

func lowerWith(t *testing.T, f engine.Features, src string) *Unit {
	t.Helper()
	u, err := LowerSource("test.lir", src, f, nil)
	if err != nil {
		t.Fatalf("lowering failed: %v\n%s", err, u.Errors().Report(false))
	}
	return u
}

// lowerErr lowers src for the baseline target and returns the collected
// errors, failing if there are none
func lowerErr(t *testing.T, src string) []CompilerError {
	t.Helper()
	u, err := LowerSource("test.lir", src, engine.Baseline(), nil)
	if err == nil {
		t.Fatalf("expected lowering of %q to fail", src)
	}
	return u.Errors().Errors()
}

func instrs(u *Unit) []*lir.Instr {
	var all []*lir.Instr
	for _, blk := range u.Builder.Blocks() {
		all = append(all, blk.Instrs...)
	}
	return all
}

func mnemonicsOf(u *Unit) []string {
	var names []string
	for _, i := range instrs(u) {
		names = append(names, i.Mnemonic())
	}
	return names
}

func lastInstr(t *testing.T, u *Unit) *lir.Instr {
	t.Helper()
	all := instrs(u)
	if len(all) == 0 {
		t.Fatal("no instructions emitted")
	}
	return all[len(all)-1]
}

func TestLowerSourceArithmetic(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"add immediate", "x = param.i32\ny = add x, 5", []string{"ADDL"}},
		{"add one becomes inc", "x = param.i32\ny = add x, 1", []string{"INCL"}},
		{"add one with flags", "x = param.i32\ny = add.flags x, 1", []string{"ADDL"}},
		{"sub minus one becomes inc", "x = param.i64\ny = sub x, -1", []string{"INCQ"}},
		{"constant on the left is swapped", "x = param.i32\ny = and 7, x", []string{"ANDL"}},
		{"two variables", "x = param.i64\ny = param.i64\nz = xor x, y", []string{"XORQ"}},
		{"shift by one", "x = param.i64\ny = shl x, 1", []string{"SHLQ"}},
		{"shift by variable", "x = param.i32\nn = param.i32\ny = ushr x, n", []string{"MOVL", "SHRL"}},
		{"shift count of another width", "x = param.i64\nn = param.i32\ny = shl x, n", []string{"MOVL", "SHLQ"}},
		{"reference plus offset", "p = param.obj\ni = param.i64\nq = add p, i", []string{"ADDQ"}},
		{"multiply by immediate", "x = param.i32\ny = mul x, 10", []string{"IMUL3L"}},
		{"float add", "x = param.f64\ny = param.f64\nz = add x, y", []string{"ADDSD"}},
		{"popcount", "x = param.i64\ny = popcnt x", []string{"POPCNTQ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := lowerOK(t, tt.src)
			got := mnemonicsOf(u)
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLowerSourceImmediateBoundary(t *testing.T) {
	u := lowerOK(t, "x = param.i64\ny = add x, 2147483647")
	if i := lastInstr(t, u); i.Form != lir.FormConst || i.Imm != 2147483647 {
		t.Errorf("2^31-1 should be an immediate, got %s", i)
	}

	u = lowerOK(t, "x = param.i64\ny = add x, 0x80000000")
	all := instrs(u)
	if len(all) != 2 {
		t.Fatalf("expected a constant load and an add, got %v", mnemonicsOf(u))
	}
	if all[0].ImmWidth != 8 || all[0].Imm != 1<<31 {
		t.Errorf("2^31 should be materialized with a 64-bit immediate, got %s", all[0])
	}
	if all[1].Form != lir.FormCommutativeTwoOp {
		t.Errorf("expected a register add, got %s", all[1])
	}
}

func TestLowerSourceDivRemState(t *testing.T) {
	u := lowerOK(t, "a = param.i32\nb = param.i32\nq, r = divrem a, b\ns = add q, r")

	var div *lir.Instr
	for _, i := range instrs(u) {
		if i.Mnemonic() == "IDIVL" {
			div = i
		}
	}
	if div == nil {
		t.Fatalf("no IDIVL in %v", mnemonicsOf(u))
	}
	if div.State == nil || div.State.BCI != 3 || div.State.Reason != "divrem" {
		t.Errorf("IDIVL should carry the state of line 3, got %v", div.State)
	}
	if _, ok := u.values["q"]; !ok {
		t.Error("q was not defined")
	}
	if _, ok := u.values["r"]; !ok {
		t.Error("r was not defined")
	}
}

func TestLowerSourceMemory(t *testing.T) {
	u := lowerOK(t, "p = param.obj\ni = param.i64\nx = load.i32 [p+i*4-16]")
	load := lastInstr(t, u)
	if load.Form != lir.FormMemoryLoad || load.Mnemonic() != "MOVL" {
		t.Fatalf("expected a MOVL load, got %s", load)
	}
	addr := load.Address
	if addr.Base != u.values["p"] || addr.Index != u.values["i"] || addr.Scale != 4 || addr.Disp != -16 {
		t.Errorf("wrong address %s", addr)
	}

	u = lowerOK(t, "p = param.obj\nstore.obj [p+8], null")
	store := lastInstr(t, u)
	if store.Form != lir.FormMemoryConst || store.Mnemonic() != "MOVQ" || store.Imm != 0 {
		t.Errorf("null store should be a MOVQ of 0, got %s", store)
	}
	if store.State == nil || store.State.Reason != "store" {
		t.Errorf("store should carry a state, got %v", store.State)
	}
}

func TestLowerSourceSymbolStore(t *testing.T) {
	src := "p = param.obj\nstore.i32 [p], @klass"

	u := lowerOK(t, src)
	if i := lastInstr(t, u); i.Form != lir.FormMemorySymbol {
		t.Errorf("without PIC the symbol should be folded, got %s", i)
	}

	pic := engine.Baseline()
	pic.PIC = true
	u = lowerWith(t, pic, src)
	if i := lastInstr(t, u); i.Form != lir.FormMemoryStore {
		t.Errorf("with PIC the symbol should go through a register, got %s", i)
	}
}

func TestLowerSourceAVX(t *testing.T) {
	src := "x = param.f32\ny = param.f32\nz = mul x, y"
	if got := mnemonicsOf(lowerOK(t, src)); got[0] != "MULSS" {
		t.Errorf("baseline should use MULSS, got %v", got)
	}
	avx := engine.Baseline()
	avx.AVX = true
	if got := mnemonicsOf(lowerWith(t, avx, src)); got[0] != "VMULSS" {
		t.Errorf("AVX should use VMULSS, got %v", got)
	}
}

func TestLowerSourceBlocks(t *testing.T) {
	u := lowerOK(t, "x = param.i32\nblock loop\ny = add x, 2\nblock exit\nz = neg y")
	blocks := u.Builder.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	for i, label := range []string{"entry", "loop", "exit"} {
		if blocks[i].Label != label {
			t.Errorf("block %d: got %s, want %s", i, blocks[i].Label, label)
		}
	}
	if len(blocks[0].Instrs) != 0 || len(blocks[1].Instrs) != 1 || len(blocks[2].Instrs) != 1 {
		t.Errorf("instructions in the wrong blocks:\n%s", u.Builder.Dump())
	}
}

func TestLowerSourceIntrinsicFrame(t *testing.T) {
	u := lowerOK(t, "x = param.f64\na = sin x\nb = log10 a\nc = pow a, b")
	if n := len(u.Builder.Frame().Slots()); n != 3 {
		t.Errorf("expected 3 scratch slots, got %d", n)
	}
	if got := mnemonicsOf(u); strings.Join(got, " ") != "SIN LOG10 POW" {
		t.Errorf("got %v", got)
	}
}

func TestLowerSourceCompare(t *testing.T) {
	tests := []struct {
		name string
		src  string
		form lir.Form
	}{
		{"zero becomes test", "x = param.i32\ncmp.i32 x, 0", lir.FormCompare},
		{"small constant", "x = param.i32\ncmp.i32 x, 7", lir.FormCompareConst},
		{"null", "p = param.obj\ncmp.obj p, null", lir.FormCompare},
		{"two variables", "x = param.i64\ny = param.i64\ncmp.i64 x, y", lir.FormCompare},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := lastInstr(t, lowerOK(t, tt.src))
			if i.Form != tt.form || !i.DefinesFlagsOnly() {
				t.Errorf("got %s (%s), want form %s", i, i.Form, tt.form)
			}
		})
	}
}

func TestLowerSourceErrors(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		message    string
		suggestion string
		line       int
	}{
		{"undefined value", "x = param.i32\ny = add xx, 1", "undefined value 'xx'", "'x'", 2},
		{"unknown operation", "x = param.i32\ny = addd x, 1", "unknown operation 'addd'", "'add'", 2},
		{"redefinition", "x = param.i32\nx = param.i32", "'x' is already defined", "", 2},
		{"operand count", "x = param.i32\ny = add x", "takes 2 operand(s)", "", 2},
		{"missing suffix", "p = param.obj\nx = load [p]", "needs a kind suffix", "", 2},
		{"bad rounding mode", "x = param.f64\ny = round.sideways x", "needs a rounding mode suffix", "", 2},
		{"no value to assign", "x = param.i32\ny = cmp.i32 x, 1", "produces no value", "", 2},
		{"missing operand", "x = param.i32\ny = add x,", "expected an operand", "", 2},
		{"bad scale", "p = param.obj\nx = load.i32 [p+p*3]", "scale must be", "", 2},
		{"illegal character", "x = param.i32 $", "unexpected character '$'", "", 1},
		{"address where a value is expected", "x = param.i32\ny = add x, [x]", "an address is not allowed here", "", 2},
		{"add across widths", "x = param.i32\ny = param.i64\nz = add x, y", "'y' is i64 but 'add' works on i32", "", 3},
		{"mul across widths", "x = param.i64\ny = param.i32\nz = mul x, y", "'y' is i32 but 'mul' works on i64", "", 3},
		{"div across widths", "x = param.i32\ny = param.i64\nz = div x, y", "'y' is i64 but 'div' works on i32", "", 3},
		{"divrem across widths", "x = param.i32\ny = param.i64\nq, r = divrem x, y", "'y' is i64", "", 3},
		{"float with integer", "x = param.f64\ny = param.i64\nz = sub x, y", "'y' is i64 but 'sub' works on f64", "", 3},
		{"compare against suffix", "x = param.i64\ncmp.i32 x, 0", "'x' is i64 but 'cmp' works on i32", "", 2},
		{"suffix against operand", "x = param.i32\ny = and.i64 x, 1", "'x' is i32 but 'and' works on i64", "", 2},
		{"float shift count", "x = param.i64\nn = param.f64\ny = shl x, n", "shift count 'n' must be an integer", "", 3},
		{"popcnt without POPCNT", "x = param.i64\ny = popcnt x", "'popcnt' needs POPCNT", "", 2},
		{"lzcnt without BMI1", "x = param.i64\ny = lzcnt x", "'lzcnt' needs BMI1", "", 2},
		{"tzcnt without BMI1", "x = param.i32\ny = tzcnt x", "'tzcnt' needs BMI1", "", 2},
		{"round without SSE4.1", "x = param.f64\ny = round.up x", "'round' needs SSE4.1", "", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := lowerErr(t, tt.src)
			e := errs[0]
			if !strings.Contains(e.Message, tt.message) {
				t.Errorf("got message %q, want it to contain %q", e.Message, tt.message)
			}
			if !strings.Contains(e.Context.Suggestion, tt.suggestion) {
				t.Errorf("got suggestion %q, want it to contain %q", e.Context.Suggestion, tt.suggestion)
			}
			if e.Location.Line != tt.line {
				t.Errorf("got line %d, want %d", e.Location.Line, tt.line)
			}
		})
	}
}

func TestLowerSourceInternalErrorAbortsUnit(t *testing.T) {
	u, err := LowerSource("test.lir", "x = param.i8\ny = add x, 1\nz = add x, 2", engine.Baseline(), nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	errs := u.Errors()
	if !errs.HasFatalError() {
		t.Fatalf("expected a fatal error, got:\n%s", errs.Report(false))
	}
	if errs.ErrorCount() != 1 {
		t.Errorf("lowering should stop after the fatal error, got %d errors", errs.ErrorCount())
	}
	if _, ok := u.values["z"]; ok {
		t.Error("the line after the fatal error was lowered")
	}
}

func TestLowerSourceExtendFloatIsFatal(t *testing.T) {
	for _, src := range []string{
		"x = param.f32\ny = sext x, 8, 32",
		"x = param.f64\ny = zext x, 16, 64",
	} {
		u, err := LowerSource("test.lir", src, v2Target(), nil)
		if err == nil {
			t.Fatalf("%q: expected an error", src)
		}
		if !u.Errors().HasFatalError() {
			t.Errorf("%q: expected a fatal error, got:\n%s", src, u.Errors().Report(false))
		}
		if n := len(instrs(u)); n != 0 {
			t.Errorf("%q: %d instruction(s) emitted", src, n)
		}
	}
}

func TestLowerSourceUnusedResultWarning(t *testing.T) {
	u := lowerOK(t, "x = param.i32\nneg x")
	if u.Errors().WarningCount() != 1 {
		t.Errorf("expected one warning, got:\n%s", u.Errors().Report(false))
	}
}

func TestUnitExecContinuesLineNumbers(t *testing.T) {
	u := NewUnit("<repl>", engine.Baseline(), nil)
	if !u.Exec("x = param.i32") {
		t.Fatal("first line failed")
	}
	if u.Exec("y = bogus x") {
		t.Fatal("second line should fail")
	}
	e := u.Errors().Errors()[0]
	if e.Location.Line != 2 || e.Context.SourceLine != "y = bogus x" {
		t.Errorf("got line %d %q", e.Location.Line, e.Context.SourceLine)
	}
}

func TestLiteralConstant(t *testing.T) {
	tests := []struct {
		text    string
		kind    string // "" for no hint
		want    lir.Kind
		bits    uint64
		wantErr bool
	}{
		{"5", "", lir.DWord, 5, false},
		{"-1", "", lir.DWord, 0xffffffffffffffff, false},
		{"0x100000000", "", lir.QWord, 0x100000000, false},
		{"5", "i64", lir.QWord, 5, false},
		{"0xffffffffffffffff", "i64", lir.QWord, 0xffffffffffffffff, false},
		{"1.5", "", lir.Double, 0x3ff8000000000000, false},
		{"1.5f", "", lir.Single, 0x3fc00000, false},
		{"2", "f64", lir.Double, 0x4000000000000000, false},
		{"1.5", "i32", 0, 0, true},
		{"0xd", "", lir.DWord, 13, false},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.kind, func(t *testing.T) {
			var kind lir.ValueKind
			hasKind := false
			if tt.kind != "" {
				kind, hasKind = parseValueKind(tt.kind)
			}
			c, err := literalConstant(tt.text, kind, hasKind)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected an error, got %s", c)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Kind() != tt.want {
				t.Errorf("got kind %s, want %s", c.Kind(), tt.want)
			}
			if got := uint64(c.AsLong()); tt.want.IsInteger() && got != tt.bits {
				t.Errorf("got value %#x, want %#x", got, tt.bits)
			}
			if !tt.want.IsInteger() && c.RawBits() != tt.bits {
				t.Errorf("got bits %#x, want %#x", c.RawBits(), tt.bits)
			}
		})
	}
}

func TestUnitsLowerConcurrently(t *testing.T) {
	src := "a = param.i64\nb = param.i64\nq, r = divrem a, b\nd = convert.l2d q\nx = sin d"
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 25; n++ {
				u, err := LowerSource("test.lir", src, engine.Baseline(), nil)
				if err != nil {
					t.Errorf("lowering failed: %v", err)
					return
				}
				if n := len(u.Builder.Frame().Slots()); n != 1 {
					t.Errorf("each unit owns its frame, got %d slots", n)
					return
				}
			}
		}()
	}
	wg.Wait()
}
