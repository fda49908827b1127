// Completion: 100% - IR lexer complete
package main

import (
	"unicode"
)

// Token types of the textual IR
type TokenType int

const (
	TOKEN_EOF TokenType = iota
	TOKEN_IDENT
	TOKEN_NUMBER
	TOKEN_SYMBOL // @name
	TOKEN_EQUALS
	TOKEN_COMMA
	TOKEN_PLUS
	TOKEN_MINUS
	TOKEN_STAR
	TOKEN_LBRACKET
	TOKEN_RBRACKET
	TOKEN_NEWLINE
	TOKEN_ILLEGAL
)

func (t TokenType) String() string {
	switch t {
	case TOKEN_EOF:
		return "end of input"
	case TOKEN_IDENT:
		return "identifier"
	case TOKEN_NUMBER:
		return "number"
	case TOKEN_SYMBOL:
		return "symbol"
	case TOKEN_EQUALS:
		return "'='"
	case TOKEN_COMMA:
		return "','"
	case TOKEN_PLUS:
		return "'+'"
	case TOKEN_MINUS:
		return "'-'"
	case TOKEN_STAR:
		return "'*'"
	case TOKEN_LBRACKET:
		return "'['"
	case TOKEN_RBRACKET:
		return "']'"
	case TOKEN_NEWLINE:
		return "end of line"
	default:
		return "illegal character"
	}
}

type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int // Column position (1-indexed) where the token starts
}

// Location returns where the token starts in file
func (t Token) Location(file string) SourceLocation {
	length := len(t.Value)
	if length == 0 {
		length = 1
	}
	return SourceLocation{File: file, Line: t.Line, Column: t.Column, Length: length}
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isIdentStart(ch byte) bool {
	return ch == '_' || unicode.IsLetter(rune(ch))
}

// identifiers may contain dots so that "load.i32" is one token
func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || ch == '.' || unicode.IsDigit(rune(ch))
}

var singleCharTokens = map[byte]TokenType{
	'=': TOKEN_EQUALS,
	',': TOKEN_COMMA,
	'+': TOKEN_PLUS,
	'-': TOKEN_MINUS,
	'*': TOKEN_STAR,
	'[': TOKEN_LBRACKET,
	']': TOKEN_RBRACKET,
}

// Lexer for the textual IR. Comments start with // or ; and run to the end
// of the line.
type Lexer struct {
	input     string
	pos       int
	line      int
	lineStart int // Position where current line starts
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

func (l *Lexer) peek() byte {
	if l.pos+1 < len(l.input) {
		return l.input[l.pos+1]
	}
	return 0
}

func (l *Lexer) NextToken() Token {
	// Skip whitespace (except newlines)
	for l.pos < len(l.input) && (l.input[l.pos] == ' ' || l.input[l.pos] == '\t' || l.input[l.pos] == '\r') {
		l.pos++
	}

	// Skip comments
	if l.pos < len(l.input) && (l.input[l.pos] == ';' || (l.input[l.pos] == '/' && l.peek() == '/')) {
		for l.pos < len(l.input) && l.input[l.pos] != '\n' {
			l.pos++
		}
	}

	column := l.pos - l.lineStart + 1
	if l.pos >= len(l.input) {
		return Token{Type: TOKEN_EOF, Line: l.line, Column: column}
	}
	ch := l.input[l.pos]

	if ch == '\n' {
		tok := Token{Type: TOKEN_NEWLINE, Line: l.line, Column: column}
		l.pos++
		l.line++
		l.lineStart = l.pos
		return tok
	}

	if tt, ok := singleCharTokens[ch]; ok {
		l.pos++
		return Token{Type: tt, Value: string(ch), Line: l.line, Column: column}
	}

	// Number: decimal, 0x hex, or a float with an optional f suffix
	if unicode.IsDigit(rune(ch)) {
		start := l.pos
		if ch == '0' && (l.peek() == 'x' || l.peek() == 'X') {
			l.pos += 2
			for l.pos < len(l.input) && isHexDigit(l.input[l.pos]) {
				l.pos++
			}
		} else {
			for l.pos < len(l.input) {
				c := l.input[l.pos]
				if unicode.IsDigit(rune(c)) || c == '.' || c == 'e' || c == 'E' {
					l.pos++
					continue
				}
				// exponent sign
				if (c == '-' || c == '+') && (l.input[l.pos-1] == 'e' || l.input[l.pos-1] == 'E') {
					l.pos++
					continue
				}
				break
			}
			if l.pos < len(l.input) && (l.input[l.pos] == 'f' || l.input[l.pos] == 'd') {
				l.pos++
			}
		}
		return Token{Type: TOKEN_NUMBER, Value: l.input[start:l.pos], Line: l.line, Column: column}
	}

	if ch == '@' {
		l.pos++
		start := l.pos
		for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
			l.pos++
		}
		return Token{Type: TOKEN_SYMBOL, Value: l.input[start:l.pos], Line: l.line, Column: column}
	}

	if isIdentStart(ch) {
		start := l.pos
		for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
			l.pos++
		}
		return Token{Type: TOKEN_IDENT, Value: l.input[start:l.pos], Line: l.line, Column: column}
	}

	l.pos++
	return Token{Type: TOKEN_ILLEGAL, Value: string(ch), Line: l.line, Column: column}
}

// Tokenize splits the input into lines of tokens, dropping empty lines
func Tokenize(input string) [][]Token {
	l := NewLexer(input)
	var lines [][]Token
	var current []Token
	for {
		tok := l.NextToken()
		switch tok.Type {
		case TOKEN_EOF:
			if len(current) > 0 {
				lines = append(lines, current)
			}
			return lines
		case TOKEN_NEWLINE:
			if len(current) > 0 {
				lines = append(lines, current)
				current = nil
			}
		default:
			current = append(current, tok)
		}
	}
}
