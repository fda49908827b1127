// Completion: 100% - Textual IR parser and unit complete
package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/xyproto/lirgen/internal/amd64"
	"github.com/xyproto/lirgen/internal/engine"
	"github.com/xyproto/lirgen/internal/lir"
)

// The textual IR has one operation per line:
//
//	x = param.i32
//	y = add x, 5
//	store.i64 [p+8], null
//	q, r = divrem x, y
//	cmp.i32 x, 7
//
// Names are defined once. Literals take the kind of the operation suffix or
// of the first named operand.

// addrExpr is a parsed [base + index*scale + disp] operand
type addrExpr struct {
	base, index       string
	baseTok, indexTok Token
	scale             int
	disp              int64
}

// arg is one parsed operand
type arg struct {
	tok    Token
	name   string // defined value
	number string // literal, sign included
	symbol string
	null   bool
	addr   *addrExpr
}

// statement is one parsed line
type statement struct {
	line   int
	dests  []Token
	op     Token
	name   string // mnemonic without suffix
	suffix string
	args   []arg
}

type lineParser struct {
	file string
	toks []Token
	pos  int
}

func (p *lineParser) peek() Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	last := p.toks[len(p.toks)-1]
	return Token{Type: TOKEN_EOF, Line: last.Line, Column: last.Column + len(last.Value)}
}

func (p *lineParser) next() Token {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *lineParser) expect(tt TokenType, what string) (Token, error) {
	tok := p.next()
	if tok.Type != tt {
		return tok, UnexpectedTokenError(what, tok, p.file)
	}
	return tok, nil
}

// parseStatement parses one line of tokens
func parseStatement(file string, toks []Token) (*statement, error) {
	p := &lineParser{file: file, toks: toks}
	st := &statement{line: toks[0].Line}

	if slices.ContainsFunc(toks, func(t Token) bool { return t.Type == TOKEN_EQUALS }) {
		for {
			dest, err := p.expect(TOKEN_IDENT, "a value name")
			if err != nil {
				return nil, err
			}
			st.dests = append(st.dests, dest)
			if p.peek().Type != TOKEN_COMMA {
				break
			}
			p.next()
		}
		if _, err := p.expect(TOKEN_EQUALS, "'='"); err != nil {
			return nil, err
		}
	}

	op, err := p.expect(TOKEN_IDENT, "an operation")
	if err != nil {
		return nil, err
	}
	st.op = op
	st.name, st.suffix, _ = strings.Cut(op.Value, ".")

	if p.peek().Type == TOKEN_EOF {
		return st, nil
	}
	for {
		a, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		st.args = append(st.args, a)
		if p.peek().Type == TOKEN_EOF {
			return st, nil
		}
		if _, err := p.expect(TOKEN_COMMA, "','"); err != nil {
			return nil, err
		}
	}
}

func (p *lineParser) parseArg() (arg, error) {
	tok := p.next()
	switch tok.Type {
	case TOKEN_NUMBER:
		return arg{tok: tok, number: tok.Value}, nil
	case TOKEN_MINUS:
		num, err := p.expect(TOKEN_NUMBER, "a number after '-'")
		if err != nil {
			return arg{}, err
		}
		return arg{tok: tok, number: "-" + num.Value}, nil
	case TOKEN_SYMBOL:
		if tok.Value == "" {
			return arg{}, SyntaxError("empty symbol name", tok.Location(p.file))
		}
		return arg{tok: tok, symbol: tok.Value}, nil
	case TOKEN_IDENT:
		if tok.Value == "null" {
			return arg{tok: tok, null: true}, nil
		}
		return arg{tok: tok, name: tok.Value}, nil
	case TOKEN_LBRACKET:
		addr, err := p.parseAddress()
		if err != nil {
			return arg{}, err
		}
		return arg{tok: tok, addr: addr}, nil
	}
	return arg{}, UnexpectedTokenError("an operand", tok, p.file)
}

// parseAddress parses the inside of [ ... ] after the opening bracket
func (p *lineParser) parseAddress() (*addrExpr, error) {
	addr := &addrExpr{}
	sign := int64(1)
	for {
		tok := p.next()
		switch tok.Type {
		case TOKEN_IDENT:
			if sign < 0 {
				return nil, SyntaxError("registers cannot be subtracted", tok.Location(p.file))
			}
			scale := 1
			if p.peek().Type == TOKEN_STAR {
				p.next()
				n, err := p.expect(TOKEN_NUMBER, "a scale")
				if err != nil {
					return nil, err
				}
				scale, err = strconv.Atoi(n.Value)
				if err != nil || (scale != 1 && scale != 2 && scale != 4 && scale != 8) {
					return nil, SyntaxError("scale must be 1, 2, 4 or 8", n.Location(p.file))
				}
			}
			switch {
			case addr.base == "" && scale == 1:
				addr.base, addr.baseTok = tok.Value, tok
			case addr.index == "":
				addr.index, addr.indexTok, addr.scale = tok.Value, tok, scale
			default:
				return nil, SyntaxError("too many registers in address", tok.Location(p.file))
			}
		case TOKEN_NUMBER:
			d, err := strconv.ParseInt(tok.Value, 0, 32)
			if err != nil {
				return nil, SyntaxError("displacement must fit in 32 bits", tok.Location(p.file))
			}
			addr.disp += sign * d
		default:
			return nil, UnexpectedTokenError("a register or displacement", tok, p.file)
		}

		switch sep := p.next(); sep.Type {
		case TOKEN_RBRACKET:
			if addr.disp != int64(int32(addr.disp)) {
				return nil, SyntaxError("displacement must fit in 32 bits", sep.Location(p.file))
			}
			return addr, nil
		case TOKEN_PLUS:
			sign = 1
		case TOKEN_MINUS:
			sign = -1
		default:
			return nil, UnexpectedTokenError("'+', '-' or ']'", sep, p.file)
		}
	}
}

// parseValueKind accepts the lir kind names plus "obj" for an object
// reference and "cobj" for a compressed one
func parseValueKind(s string) (lir.ValueKind, bool) {
	switch s {
	case "obj", "ref":
		return lir.ReferenceOf(lir.QWord), true
	case "cobj", "cref":
		return lir.ReferenceOf(lir.DWord), true
	}
	k, ok := lir.ParseKind(s)
	return lir.ValueOf(k), ok
}

func isFloatLiteral(text string) bool {
	t := strings.TrimPrefix(strings.ToLower(text), "-")
	if strings.HasPrefix(t, "0x") {
		return false
	}
	return strings.ContainsAny(t, ".ef") || strings.HasSuffix(t, "d")
}

// literalConstant converts literal text to a constant of kind. A zero kind
// with hasKind false picks i32, i64, f32 or f64 from the text.
func literalConstant(text string, kind lir.ValueKind, hasKind bool) (*lir.Constant, error) {
	isFloat := isFloatLiteral(text)
	if !hasKind {
		switch {
		case isFloat && strings.HasSuffix(text, "f"):
			kind = lir.ValueOf(lir.Single)
		case isFloat:
			kind = lir.ValueOf(lir.Double)
		default:
			kind = lir.ValueOf(lir.DWord)
			if v, err := strconv.ParseInt(text, 0, 64); err != nil || v != int64(int32(v)) {
				kind = lir.ValueOf(lir.QWord)
			}
		}
	}
	if kind.Platform.IsInteger() {
		if isFloat {
			return nil, fmt.Errorf("float literal %s used as %s", text, kind.Platform)
		}
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			u, uerr := strconv.ParseUint(text, 0, 64)
			if uerr != nil {
				return nil, fmt.Errorf("invalid integer literal %s", text)
			}
			v = int64(u)
		}
		return lir.IntConst(kind.Platform, v), nil
	}
	f, err := strconv.ParseFloat(strings.TrimRight(text, "fd"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid float literal %s", text)
	}
	if kind.Platform == lir.Single {
		return lir.FloatConst(float32(f)), nil
	}
	return lir.DoubleConst(f), nil
}

// Unit is one lowering session: a builder, the lowerer writing into it and
// the names defined so far. The REPL keeps one Unit across lines.
type Unit struct {
	File    string
	Builder *lir.Builder

	target  amd64.Target
	lowerer *amd64.Lowerer
	values  map[string]lir.Value
	errs    *ErrorCollector
	source  strings.Builder
}

// NewUnit returns an empty unit with an "entry" block. trace receives one
// line per emitted instruction when non-nil.
func NewUnit(file string, target amd64.Target, trace io.Writer) *Unit {
	b := lir.NewBuilder()
	b.Trace = trace
	b.StartBlock("entry")
	return &Unit{
		File:    file,
		Builder: b,
		target:  target,
		lowerer: amd64.New(target, b),
		values:  make(map[string]lir.Value),
		errs:    NewErrorCollector(10),
	}
}

// Errors returns the diagnostics collected so far
func (u *Unit) Errors() *ErrorCollector {
	return u.errs
}

// Exec lowers src, appending to what has been lowered before. It returns
// false when an error was reported for src.
func (u *Unit) Exec(src string) bool {
	before := u.errs.ErrorCount()
	if u.source.Len() > 0 && !strings.HasSuffix(u.source.String(), "\n") {
		u.source.WriteString("\n")
	}
	// line numbers continue across calls
	offset := strings.Count(u.source.String(), "\n")
	u.source.WriteString(src)
	u.errs.SetSourceCode(u.source.String())

	for _, toks := range Tokenize(src) {
		for i := range toks {
			toks[i].Line += offset
		}
		if u.errs.ShouldStop() {
			break
		}
		u.execLine(toks)
	}
	return u.errs.ErrorCount() == before
}

func (u *Unit) report(err error) {
	var ce CompilerError
	if errors.As(err, &ce) {
		u.errs.AddError(ce)
		return
	}
	u.errs.AddError(CompilerError{Level: LevelError, Category: CategoryLowering, Message: err.Error()})
}

func (u *Unit) execLine(toks []Token) {
	for _, tok := range toks {
		if tok.Type == TOKEN_ILLEGAL {
			u.report(SyntaxError(fmt.Sprintf("unexpected character '%s'", tok.Value), tok.Location(u.File)))
			return
		}
	}
	st, err := parseStatement(u.File, toks)
	if err != nil {
		u.report(err)
		return
	}

	op, ok := operations[st.name]
	if !ok {
		u.report(UnknownOperationError(st.op.Value, st.op.Location(u.File), engine.SuggestSimilar(st.name, OperationNames(), 3)))
		return
	}
	if err := op.check(u, st); err != nil {
		u.report(err)
		return
	}
	for _, ext := range op.needs {
		if !u.target.Supports(ext) {
			u.report(MissingExtensionError(op.name, ext, st.op.Location(u.File)))
			return
		}
	}
	for i, dest := range st.dests {
		_, defined := u.values[dest.Value]
		if defined || slices.ContainsFunc(st.dests[:i], func(t Token) bool { return t.Value == dest.Value }) {
			u.report(RedefinitionError(dest.Value, dest.Location(u.File)))
			return
		}
	}

	var results []lir.Value
	err = func() (err error) {
		defer lir.Recover(&err)
		results, err = op.run(u, st)
		return err
	}()
	var ie *lir.InternalError
	if errors.As(err, &ie) {
		u.report(FatalError(ie.Msg, st.op.Location(u.File)))
		return
	}
	if err != nil {
		u.report(err)
		return
	}

	if len(st.dests) == 0 && len(results) > 0 {
		u.errs.AddWarning(CompilerError{
			Category: CategorySemantic,
			Message:  fmt.Sprintf("result of '%s' is unused", st.op.Value),
			Location: st.op.Location(u.File),
		})
	}
	for i, dest := range st.dests {
		u.values[dest.Value] = results[i]
	}
}

// lookup resolves a defined name
func (u *Unit) lookup(tok Token) (lir.Value, error) {
	if v, ok := u.values[tok.Value]; ok {
		return v, nil
	}
	names := slices.Sorted(maps.Keys(u.values))
	return nil, UndefinedValueError(tok.Value, tok.Location(u.File), engine.SuggestSimilar(tok.Value, names, 3))
}

// kindHint returns the kind literals of st default to: the operation suffix
// when it names a kind, otherwise the kind of the first named operand
func (u *Unit) kindHint(st *statement) (lir.ValueKind, bool) {
	if k, ok := parseValueKind(st.suffix); ok {
		return k, true
	}
	for _, a := range st.args {
		if a.name != "" {
			if v, ok := u.values[a.name]; ok {
				return v.ValueKind(), true
			}
		}
	}
	return lir.ValueKind{}, false
}

// operand resolves argument i to a value, giving literals the kind hint
func (u *Unit) operand(st *statement, i int, kind lir.ValueKind, hasKind bool) (lir.Value, error) {
	a := st.args[i]
	switch {
	case a.addr != nil:
		return nil, SyntaxError("an address is not allowed here", a.tok.Location(u.File))
	case a.name != "":
		return u.lookup(a.tok)
	case a.null:
		if !hasKind || !kind.Platform.IsInteger() {
			kind = lir.ReferenceOf(lir.QWord)
		}
		return lir.Null(kind.Platform), nil
	case a.symbol != "":
		if !hasKind {
			kind = lir.ValueOf(lir.QWord)
		}
		return lir.Symbol(a.symbol, kind.Platform, kind.IsReference()), nil
	}
	c, err := literalConstant(a.number, kind, hasKind)
	if err != nil {
		return nil, SyntaxError(err.Error(), a.tok.Location(u.File))
	}
	return c, nil
}

// operands resolves every argument with the statement's kind hint. Named
// operands must all have the platform kind of the hint.
func (u *Unit) operands(st *statement) ([]lir.Value, error) {
	values, err := u.resolve(st)
	if err != nil {
		return nil, err
	}
	kind, hasKind := u.kindHint(st)
	if !hasKind {
		return values, nil
	}
	for i, a := range st.args {
		if a.name == "" {
			continue
		}
		if got := values[i].ValueKind(); got.Platform != kind.Platform {
			return nil, KindMismatchError(st.name, a.name, got, kind, a.tok.Location(u.File))
		}
	}
	return values, nil
}

// shiftOperands resolves a value and a shift count. The count may have any
// integer width.
func (u *Unit) shiftOperands(st *statement) ([]lir.Value, error) {
	values, err := u.resolve(st)
	if err != nil {
		return nil, err
	}
	if st.suffix != "" {
		kind, _ := parseValueKind(st.suffix)
		if a := st.args[0]; a.name != "" && values[0].ValueKind().Platform != kind.Platform {
			return nil, KindMismatchError(st.name, a.name, values[0].ValueKind(), kind, a.tok.Location(u.File))
		}
	}
	if a := st.args[1]; a.name != "" && !values[1].ValueKind().Platform.IsInteger() {
		return nil, SyntaxError(fmt.Sprintf("shift count '%s' must be an integer, got %s", a.name, values[1].ValueKind()), a.tok.Location(u.File))
	}
	return values, nil
}

func (u *Unit) resolve(st *statement) ([]lir.Value, error) {
	kind, hasKind := u.kindHint(st)
	values := make([]lir.Value, len(st.args))
	for i := range st.args {
		v, err := u.operand(st, i, kind, hasKind)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// intArg returns argument i as a plain integer (bit widths)
func (u *Unit) intArg(st *statement, i int) (int, error) {
	a := st.args[i]
	if a.number == "" {
		return 0, UnexpectedTokenError("a bit count", a.tok, u.File)
	}
	n, err := strconv.Atoi(a.number)
	if err != nil || n < 0 || n > 64 {
		return 0, SyntaxError("bit count must be between 0 and 64", a.tok.Location(u.File))
	}
	return n, nil
}

// address resolves argument i as a memory operand
func (u *Unit) address(st *statement, i int) (*lir.Address, error) {
	a := st.args[i]
	if a.addr == nil {
		return nil, UnexpectedTokenError("an address like [p+8]", a.tok, u.File)
	}
	addr := &lir.Address{Disp: int32(a.addr.disp), Scale: a.addr.scale}
	if a.addr.base != "" {
		base, err := u.lookup(a.addr.baseTok)
		if err != nil {
			return nil, err
		}
		addr.Base = base
	}
	if a.addr.index != "" {
		index, err := u.lookup(a.addr.indexTok)
		if err != nil {
			return nil, err
		}
		addr.Index = index
	}
	return addr, nil
}

// state returns the frame state for fault-capable operations: the source
// line stands in for the bytecode index
func (st *statement) state() *lir.FrameState {
	return &lir.FrameState{BCI: st.line, Reason: st.name}
}

// LowerSource lowers a whole program
func LowerSource(file, src string, target amd64.Target, trace io.Writer) (*Unit, error) {
	u := NewUnit(file, target, trace)
	if !u.Exec(src) {
		return u, fmt.Errorf("%s: lowering failed with %d error(s)", file, u.errs.ErrorCount())
	}
	return u, nil
}
