// Completion: 100% - Textual IR operation table complete
package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/xyproto/lirgen/internal/amd64"
	"github.com/xyproto/lirgen/internal/lir"
)

// suffixRule says what may follow the dot in an operation name
type suffixRule int

const (
	suffixNone suffixRule = iota
	suffixKind
	suffixOptionalKind
	suffixConversion
	suffixRounding
	suffixFlags
)

type operation struct {
	name    string
	usage   string
	help    string
	args    int
	results int
	suffix  suffixRule

	// needs lists the extensions the target must have
	needs []amd64.Extension
	run   func(u *Unit, st *statement) ([]lir.Value, error)
}

// check validates the shape of st before any lowering happens
func (op *operation) check(u *Unit, st *statement) error {
	loc := st.op.Location(u.File)
	if len(st.args) != op.args {
		return SyntaxError(fmt.Sprintf("'%s' takes %d operand(s), got %d (usage: %s)", op.name, op.args, len(st.args), op.usage), loc)
	}
	if len(st.dests) > 0 && len(st.dests) != op.results {
		if op.results == 0 {
			return SyntaxError(fmt.Sprintf("'%s' produces no value", op.name), loc)
		}
		return SyntaxError(fmt.Sprintf("'%s' produces %d value(s), got %d name(s)", op.name, op.results, len(st.dests)), loc)
	}

	bad := func(what string) error {
		return SyntaxError(fmt.Sprintf("'%s' needs %s suffix (usage: %s)", st.op.Value, what, op.usage), loc)
	}
	switch op.suffix {
	case suffixNone:
		if st.suffix != "" {
			return SyntaxError(fmt.Sprintf("'%s' takes no suffix", op.name), loc)
		}
	case suffixKind:
		if _, ok := parseValueKind(st.suffix); !ok {
			return bad("a kind")
		}
	case suffixOptionalKind:
		if _, ok := parseValueKind(st.suffix); st.suffix != "" && !ok {
			return bad("a kind")
		}
	case suffixConversion:
		if _, ok := amd64.ParseConversion(st.suffix); !ok {
			return bad("a conversion")
		}
	case suffixRounding:
		if _, err := amd64.ParseRoundingMode(st.suffix); err != nil {
			return bad("a rounding mode")
		}
	case suffixFlags:
		if st.suffix != "" && st.suffix != "flags" {
			return bad("no or a .flags")
		}
	}
	return nil
}

// operations is keyed by mnemonic without suffix
var operations = make(map[string]*operation)

func define(op *operation) {
	if _, dup := operations[op.name]; dup {
		panic("duplicate operation " + op.name)
	}
	operations[op.name] = op
}

// OperationNames returns the mnemonics in sorted order
func OperationNames() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// requires marks a defined operation as needing exts
func requires(name string, exts ...amd64.Extension) {
	operations[name].needs = append(operations[name].needs, exts...)
}

func one(v lir.Value) []lir.Value { return []lir.Value{v} }

// binary defines a two-operand operation with no frame state
func binary(name, help string, lower func(l *amd64.Lowerer, a, b lir.Value) *lir.Variable) {
	define(&operation{
		name: name, usage: name + " a, b", help: help, args: 2, results: 1, suffix: suffixOptionalKind,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			v, err := u.operands(st)
			if err != nil {
				return nil, err
			}
			return one(lower(u.lowerer, v[0], v[1])), nil
		},
	})
}

// shift defines a shift or rotate; the count is not widened to the value
func shift(name, help string, lower func(l *amd64.Lowerer, a, b lir.Value) *lir.Variable) {
	define(&operation{
		name: name, usage: name + " a, count", help: help, args: 2, results: 1, suffix: suffixOptionalKind,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			v, err := u.shiftOperands(st)
			if err != nil {
				return nil, err
			}
			return one(lower(u.lowerer, v[0], v[1])), nil
		},
	})
}

// faulting defines a two-operand operation that carries a frame state
func faulting(name, help string, lower func(l *amd64.Lowerer, a, b lir.Value, state *lir.FrameState) *lir.Variable) {
	define(&operation{
		name: name, usage: name + " a, b", help: help, args: 2, results: 1, suffix: suffixOptionalKind,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			v, err := u.operands(st)
			if err != nil {
				return nil, err
			}
			return one(lower(u.lowerer, v[0], v[1], st.state())), nil
		},
	})
}

func unary(name, help string, lower func(l *amd64.Lowerer, a lir.Value) *lir.Variable) {
	define(&operation{
		name: name, usage: name + " a", help: help, args: 1, results: 1, suffix: suffixOptionalKind,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			v, err := u.operands(st)
			if err != nil {
				return nil, err
			}
			return one(lower(u.lowerer, v[0])), nil
		},
	})
}

func addSub(name, help string, lower func(l *amd64.Lowerer, kind lir.ValueKind, a, b lir.Value, setFlags bool) *lir.Variable) {
	define(&operation{
		name: name, usage: name + "[.flags] a, b", help: help, args: 2, results: 1, suffix: suffixFlags,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			v, err := u.operands(st)
			if err != nil {
				return nil, err
			}
			return one(lower(u.lowerer, lir.Combine(v...), v[0], v[1], st.suffix == "flags")), nil
		},
	})
}

func divRem(name, help string, lower func(l *amd64.Lowerer, a, b lir.Value, state *lir.FrameState) (q, r *lir.Variable)) {
	define(&operation{
		name: name, usage: "q, r = " + name + " a, b", help: help, args: 2, results: 2, suffix: suffixOptionalKind,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			v, err := u.operands(st)
			if err != nil {
				return nil, err
			}
			q, r := lower(u.lowerer, v[0], v[1], st.state())
			return []lir.Value{q, r}, nil
		},
	})
}

func extend(name, help string, lower func(l *amd64.Lowerer, v lir.Value, from, to int) lir.Value) {
	define(&operation{
		name: name, usage: name + " a, from, to", help: help, args: 3, results: 1,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			a, err := u.operand(st, 0, lir.ValueKind{}, false)
			if err != nil {
				return nil, err
			}
			from, err := u.intArg(st, 1)
			if err != nil {
				return nil, err
			}
			to, err := u.intArg(st, 2)
			if err != nil {
				return nil, err
			}
			if from > to {
				return nil, SyntaxError(fmt.Sprintf("cannot extend from %d to %d bits", from, to), st.args[1].tok.Location(u.File))
			}
			return one(lower(u.lowerer, a, from, to)), nil
		},
	})
}

// memorySize is the operand size of a value combined with memory. Float
// logic works on the packed registers.
func memorySize(k lir.Kind, logic bool) (lir.OperandSize, bool) {
	switch k {
	case lir.Byte:
		return lir.BYTE, true
	case lir.Word:
		return lir.WORD, true
	case lir.DWord:
		return lir.DWORD, true
	case lir.QWord:
		return lir.QWORD, true
	case lir.Single:
		if logic {
			return lir.PS, true
		}
		return lir.SS, true
	case lir.Double:
		if logic {
			return lir.PD, true
		}
		return lir.SD, true
	}
	return 0, false
}

func withMemory(name, help string, op amd64.Operation, logic bool) {
	define(&operation{
		name: name, usage: name + " a, [addr]", help: help, args: 2, results: 1,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			a, err := u.operand(st, 0, lir.ValueKind{}, false)
			if err != nil {
				return nil, err
			}
			addr, err := u.address(st, 1)
			if err != nil {
				return nil, err
			}
			size, ok := memorySize(a.ValueKind().Platform, logic)
			if !ok {
				return nil, SyntaxError(fmt.Sprintf("'%s' does not take a %s operand", name, a.ValueKind()), st.args[0].tok.Location(u.File))
			}
			if _, err := amd64.Lookup(op, size, amd64.ShapeRM); err != nil {
				return nil, SyntaxError(err.Error(), st.op.Location(u.File))
			}
			return one(u.lowerer.BinaryMemory(op, size, a, addr, st.state())), nil
		},
	})
}

func init() {
	define(&operation{
		name: "param", usage: "x = param.<kind>", help: "define an incoming value", results: 1, suffix: suffixKind,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			kind, _ := parseValueKind(st.suffix)
			return one(u.Builder.NewVariable(kind)), nil
		},
	})
	define(&operation{
		name: "block", usage: "block <label>", help: "start a new basic block", args: 1,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			a := st.args[0]
			if a.name == "" {
				return nil, UnexpectedTokenError("a block label", a.tok, u.File)
			}
			u.Builder.StartBlock(a.name)
			return nil, nil
		},
	})

	addSub("add", "integer or float addition", (*amd64.Lowerer).Add)
	addSub("sub", "integer or float subtraction", (*amd64.Lowerer).Sub)
	binary("mul", "multiplication, low half for integers", (*amd64.Lowerer).Mul)
	binary("mulhigh", "signed high half of a multiplication", (*amd64.Lowerer).MulHigh)
	binary("umulhigh", "unsigned high half of a multiplication", (*amd64.Lowerer).UMulHigh)
	binary("and", "bitwise and", (*amd64.Lowerer).And)
	binary("or", "bitwise or", (*amd64.Lowerer).Or)
	binary("xor", "bitwise exclusive or", (*amd64.Lowerer).Xor)
	shift("shl", "shift left", (*amd64.Lowerer).Shl)
	shift("shr", "arithmetic shift right", (*amd64.Lowerer).Shr)
	shift("ushr", "logical shift right", (*amd64.Lowerer).UShr)
	shift("rol", "rotate left", (*amd64.Lowerer).Rol)
	shift("ror", "rotate right", (*amd64.Lowerer).Ror)
	binary("pow", "a raised to b, f64 only", (*amd64.Lowerer).MathPow)

	faulting("div", "signed or float division", (*amd64.Lowerer).Div)
	faulting("rem", "signed or float remainder", (*amd64.Lowerer).Rem)
	faulting("udiv", "unsigned division", (*amd64.Lowerer).UDiv)
	faulting("urem", "unsigned remainder", (*amd64.Lowerer).URem)
	divRem("divrem", "signed quotient and remainder from one IDIV", (*amd64.Lowerer).SignedDivRem)
	divRem("udivrem", "unsigned quotient and remainder from one DIV", (*amd64.Lowerer).UnsignedDivRem)

	unary("neg", "negation", (*amd64.Lowerer).Negate)
	unary("not", "bitwise complement", (*amd64.Lowerer).Not)
	unary("abs", "float absolute value", (*amd64.Lowerer).MathAbs)
	unary("sqrt", "float square root", (*amd64.Lowerer).MathSqrt)
	unary("popcnt", "population count", (*amd64.Lowerer).BitCount)
	unary("bsf", "index of the lowest set bit", (*amd64.Lowerer).BitScanForward)
	unary("bsr", "index of the highest set bit", (*amd64.Lowerer).BitScanReverse)
	unary("lzcnt", "count leading zeros", (*amd64.Lowerer).CountLeadingZeros)
	unary("tzcnt", "count trailing zeros", (*amd64.Lowerer).CountTrailingZeros)
	requires("popcnt", amd64.ExtPOPCNT)
	requires("lzcnt", amd64.ExtBMI1)
	requires("tzcnt", amd64.ExtBMI1)
	unary("sin", "sine, f64 only", (*amd64.Lowerer).MathSin)
	unary("cos", "cosine, f64 only", (*amd64.Lowerer).MathCos)
	unary("tan", "tangent, f64 only", (*amd64.Lowerer).MathTan)
	unary("exp", "e raised to a, f64 only", (*amd64.Lowerer).MathExp)
	unary("log", "natural logarithm, f64 only", func(l *amd64.Lowerer, a lir.Value) *lir.Variable { return l.MathLog(a, false) })
	unary("log10", "base 10 logarithm, f64 only", func(l *amd64.Lowerer, a lir.Value) *lir.Variable { return l.MathLog(a, true) })

	define(&operation{
		name: "round", usage: "round.<nearest|down|up|trunc> a", help: "round a float to an integral value", args: 1, results: 1, suffix: suffixRounding,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			mode, _ := amd64.ParseRoundingMode(st.suffix)
			a, err := u.operand(st, 0, lir.ValueKind{}, false)
			if err != nil {
				return nil, err
			}
			return one(u.lowerer.Round(a, mode)), nil
		},
	})
	requires("round", amd64.ExtSSE41)

	extend("sext", "sign extend the low bits", (*amd64.Lowerer).SignExtend)
	extend("zext", "zero extend the low bits", (*amd64.Lowerer).ZeroExtend)
	define(&operation{
		name: "narrow", usage: "narrow a, bits", help: "keep the low bits", args: 2, results: 1,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			a, err := u.operand(st, 0, lir.ValueKind{}, false)
			if err != nil {
				return nil, err
			}
			bits, err := u.intArg(st, 1)
			if err != nil {
				return nil, err
			}
			return one(u.lowerer.Narrow(a, bits)), nil
		},
	})
	define(&operation{
		name: "reinterpret", usage: "reinterpret.<kind> a", help: "move raw bits between integer and float registers", args: 1, results: 1, suffix: suffixKind,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			kind, _ := parseValueKind(st.suffix)
			a, err := u.operand(st, 0, lir.ValueKind{}, false)
			if err != nil {
				return nil, err
			}
			return one(u.lowerer.Reinterpret(kind, a)), nil
		},
	})
	define(&operation{
		name: "convert", usage: "convert.<d2f|d2i|...|l2f> a", help: "value conversion between float and integer kinds", args: 1, results: 1, suffix: suffixConversion,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			c, _ := amd64.ParseConversion(st.suffix)
			a, err := u.operand(st, 0, lir.ValueKind{}, false)
			if err != nil {
				return nil, err
			}
			return one(u.lowerer.FloatConvert(c, a)), nil
		},
	})

	define(&operation{
		name: "load", usage: "load.<kind> [addr]", help: "read memory", args: 1, results: 1, suffix: suffixKind,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			kind, _ := parseValueKind(st.suffix)
			addr, err := u.address(st, 0)
			if err != nil {
				return nil, err
			}
			return one(u.lowerer.Load(kind, addr, st.state())), nil
		},
	})
	define(&operation{
		name: "zload", usage: "zload.<kind> [addr], bits", help: "read memory and zero extend", args: 2, results: 1, suffix: suffixKind,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			kind, _ := parseValueKind(st.suffix)
			addr, err := u.address(st, 0)
			if err != nil {
				return nil, err
			}
			bits, err := u.intArg(st, 1)
			if err != nil {
				return nil, err
			}
			return one(u.lowerer.ZeroExtendLoad(kind.Platform, bits, addr, st.state())), nil
		},
	})
	define(&operation{
		name: "cvtload", usage: "cvtload.<conversion> [addr]", help: "convert a value read from memory", args: 1, results: 1, suffix: suffixConversion,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			c, _ := amd64.ParseConversion(st.suffix)
			addr, err := u.address(st, 0)
			if err != nil {
				return nil, err
			}
			return one(u.lowerer.ConvertLoad(c, addr, st.state())), nil
		},
	})
	define(&operation{
		name: "store", usage: "store.<kind> [addr], value", help: "write memory, folding constants", args: 2, suffix: suffixKind,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			kind, _ := parseValueKind(st.suffix)
			addr, err := u.address(st, 0)
			if err != nil {
				return nil, err
			}
			v, err := u.operand(st, 1, kind, true)
			if err != nil {
				return nil, err
			}
			u.lowerer.Store(kind, addr, v, st.state())
			return nil, nil
		},
	})
	define(&operation{
		name: "cmp", usage: "cmp.<kind> a, b", help: "set the flags from a compare", args: 2, suffix: suffixKind,
		run: func(u *Unit, st *statement) ([]lir.Value, error) {
			kind, _ := parseValueKind(st.suffix)
			v, err := u.operands(st)
			if err != nil {
				return nil, err
			}
			u.lowerer.Compare(kind.Platform, v[0], v[1])
			return nil, nil
		},
	})

	withMemory("addm", "add a value read from memory", amd64.OpAdd, false)
	withMemory("subm", "subtract a value read from memory", amd64.OpSub, false)
	withMemory("mulm", "multiply by a value read from memory", amd64.OpMul, false)
	withMemory("divm", "float divide by a value read from memory", amd64.OpDiv, false)
	withMemory("andm", "and with a value read from memory", amd64.OpAnd, true)
	withMemory("orm", "or with a value read from memory", amd64.OpOr, true)
	withMemory("xorm", "xor with a value read from memory", amd64.OpXor, true)
}

// listOperations prints the textual IR operations and the machine
// operations of the encoding table
func listOperations(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPERATION\tUSAGE\tDESCRIPTION")
	for _, name := range OperationNames() {
		op := operations[name]
		help := op.help
		for _, ext := range op.needs {
			help += fmt.Sprintf(" (needs %s)", ext)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", op.name, op.usage, help)
	}
	tw.Flush()

	machine := amd64.Operations()
	slices.Sort(machine)
	fmt.Fprintf(w, "\nmachine operations: %s\n", strings.Join(machine, " "))
}
