// Completion: 100% - Diagnostics complete
package main

import (
	"fmt"
	"strings"

	"github.com/xyproto/lirgen/internal/amd64"
	"github.com/xyproto/lirgen/internal/lir"
)

// ErrorLevel indicates the severity of an error
type ErrorLevel int

const (
	LevelWarning ErrorLevel = iota
	LevelError
	LevelFatal
)

func (l ErrorLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// ErrorCategory classifies the type of error
type ErrorCategory int

const (
	CategorySyntax ErrorCategory = iota
	CategorySemantic
	CategoryLowering
	CategoryInternal
)

func (c ErrorCategory) String() string {
	switch c {
	case CategorySyntax:
		return "syntax"
	case CategorySemantic:
		return "semantic"
	case CategoryLowering:
		return "lowering"
	case CategoryInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// SourceLocation represents a position in a .lir file
type SourceLocation struct {
	File   string
	Line   int
	Column int
	Length int // Length of the problematic token
}

func (loc SourceLocation) String() string {
	if loc.File == "" {
		return fmt.Sprintf("%d:%d", loc.Line, loc.Column)
	}
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Column)
}

// ErrorContext provides additional context for an error
type ErrorContext struct {
	SourceLine string // The offending line
	Suggestion string // "did you mean 'x'?"
	HelpText   string
}

// CompilerError is a single diagnostic
type CompilerError struct {
	Level    ErrorLevel
	Category ErrorCategory
	Message  string
	Location SourceLocation
	Context  ErrorContext
}

func (e CompilerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

const (
	colorRed   = "\033[1;31m"
	colorGreen = "\033[1;32m"
	colorBlue  = "\033[1;34m"
	colorCyan  = "\033[1;36m"
	colorReset = "\033[0m"
)

// Format renders the error with the source line and a caret under the
// offending token
func (e CompilerError) Format(useColor bool) string {
	paint := func(color, s string) string {
		if useColor {
			return color + s + colorReset
		}
		return s
	}

	var sb strings.Builder
	sb.WriteString(paint(colorRed, e.Level.String()+": "))
	sb.WriteString(e.Message)
	sb.WriteString("\n")
	sb.WriteString(paint(colorBlue, "  --> "+e.Location.String()))
	sb.WriteString("\n")

	if e.Context.SourceLine != "" {
		lineNum := fmt.Sprintf("%d", e.Location.Line)
		gutter := strings.Repeat(" ", len(lineNum)+1) + "|"
		fmt.Fprintf(&sb, "%s\n%s | %s\n", gutter, lineNum, e.Context.SourceLine)
		if e.Location.Column > 0 {
			carets := strings.Repeat("^", max(e.Location.Length, 1))
			fmt.Fprintf(&sb, "%s %s%s\n", gutter, strings.Repeat(" ", e.Location.Column-1), paint(colorRed, carets))
		}
	}
	if e.Context.Suggestion != "" {
		sb.WriteString(paint(colorGreen, "   help: ") + e.Context.Suggestion + "\n")
	}
	if e.Context.HelpText != "" {
		sb.WriteString(paint(colorCyan, "   note: ") + e.Context.HelpText + "\n")
	}
	return sb.String()
}

// ErrorCollector accumulates diagnostics for one unit
type ErrorCollector struct {
	errors     []CompilerError
	warnings   []CompilerError
	maxErrors  int
	sourceCode string
}

func NewErrorCollector(maxErrors int) *ErrorCollector {
	if maxErrors <= 0 {
		maxErrors = 10 // Default: stop after 10 errors
	}
	return &ErrorCollector{maxErrors: maxErrors}
}

// SetSourceCode stores the source for error context
func (ec *ErrorCollector) SetSourceCode(source string) {
	ec.sourceCode = source
}

// AddError adds an error, filling in the source line when it is known
func (ec *ErrorCollector) AddError(err CompilerError) {
	if err.Context.SourceLine == "" {
		err.Context.SourceLine = ec.sourceLine(err.Location.Line)
	}
	if err.Level == LevelWarning {
		ec.warnings = append(ec.warnings, err)
		return
	}
	ec.errors = append(ec.errors, err)
}

// AddWarning adds a warning
func (ec *ErrorCollector) AddWarning(warn CompilerError) {
	warn.Level = LevelWarning
	ec.AddError(warn)
}

func (ec *ErrorCollector) sourceLine(lineNum int) string {
	if ec.sourceCode == "" || lineNum <= 0 {
		return ""
	}
	lines := strings.Split(ec.sourceCode, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[lineNum-1], "\r")
}

func (ec *ErrorCollector) HasErrors() bool {
	return len(ec.errors) > 0
}

func (ec *ErrorCollector) HasFatalError() bool {
	for _, err := range ec.errors {
		if err.Level == LevelFatal {
			return true
		}
	}
	return false
}

func (ec *ErrorCollector) ErrorCount() int   { return len(ec.errors) }
func (ec *ErrorCollector) WarningCount() int { return len(ec.warnings) }

// Errors returns the collected errors in order
func (ec *ErrorCollector) Errors() []CompilerError {
	return ec.errors
}

// ShouldStop returns true if we've hit the error limit
func (ec *ErrorCollector) ShouldStop() bool {
	return len(ec.errors) >= ec.maxErrors || ec.HasFatalError()
}

// Report formats all errors and warnings for display
func (ec *ErrorCollector) Report(useColor bool) string {
	var parts []string
	for _, err := range ec.errors {
		parts = append(parts, err.Format(useColor))
	}
	for _, warn := range ec.warnings {
		parts = append(parts, warn.Format(useColor))
	}
	if len(parts) == 0 {
		return ""
	}
	var summary []string
	if n := len(ec.errors); n > 0 {
		summary = append(summary, fmt.Sprintf("%d error(s)", n))
	}
	if n := len(ec.warnings); n > 0 {
		summary = append(summary, fmt.Sprintf("%d warning(s)", n))
	}
	return strings.Join(parts, "\n") + "\n" + strings.Join(summary, ", ") + " found\n"
}

// Clear resets the error collector
func (ec *ErrorCollector) Clear() {
	ec.errors = nil
	ec.warnings = nil
}

// didYouMean formats suggestions from engine.SuggestSimilar
func didYouMean(suggestions []string) string {
	switch len(suggestions) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("did you mean '%s'?", suggestions[0])
	}
	return fmt.Sprintf("did you mean one of '%s'?", strings.Join(suggestions, "', '"))
}

// UndefinedValueError is reported for a use of a name that was never defined
func UndefinedValueError(name string, loc SourceLocation, suggestions []string) CompilerError {
	return CompilerError{
		Level:    LevelError,
		Category: CategorySemantic,
		Message:  fmt.Sprintf("undefined value '%s'", name),
		Location: loc,
		Context: ErrorContext{
			Suggestion: didYouMean(suggestions),
			HelpText:   "values must be defined before use, e.g. 'x = param.i32'",
		},
	}
}

// RedefinitionError is reported when a name is assigned twice
func RedefinitionError(name string, loc SourceLocation) CompilerError {
	return CompilerError{
		Level:    LevelError,
		Category: CategorySemantic,
		Message:  fmt.Sprintf("'%s' is already defined", name),
		Location: loc,
		Context: ErrorContext{
			HelpText: "every value is defined exactly once",
		},
	}
}

// UnknownOperationError is reported for an unknown mnemonic
func UnknownOperationError(name string, loc SourceLocation, suggestions []string) CompilerError {
	return CompilerError{
		Level:    LevelError,
		Category: CategorySemantic,
		Message:  fmt.Sprintf("unknown operation '%s'", name),
		Location: loc,
		Context: ErrorContext{
			Suggestion: didYouMean(suggestions),
			HelpText:   "run 'lirgen ops' for the list of operations",
		},
	}
}

// KindMismatchError is reported when the operands of one operation have
// different widths
func KindMismatchError(op, name string, got, want lir.ValueKind, loc SourceLocation) CompilerError {
	return CompilerError{
		Level:    LevelError,
		Category: CategorySemantic,
		Message:  fmt.Sprintf("'%s' is %s but '%s' works on %s here", name, got, op, want),
		Location: loc,
		Context: ErrorContext{
			HelpText: "widen or narrow with sext, zext, narrow or convert first",
		},
	}
}

// MissingExtensionError is reported for an operation the target cannot run
func MissingExtensionError(op string, ext amd64.Extension, loc SourceLocation) CompilerError {
	return CompilerError{
		Level:    LevelError,
		Category: CategoryLowering,
		Message:  fmt.Sprintf("'%s' needs %s, which the target does not have", op, ext),
		Location: loc,
		Context: ErrorContext{
			HelpText: "select a target that has it with -level or -host",
		},
	}
}

func SyntaxError(message string, loc SourceLocation) CompilerError {
	return CompilerError{
		Level:    LevelError,
		Category: CategorySyntax,
		Message:  message,
		Location: loc,
	}
}

func UnexpectedTokenError(expected string, got Token, file string) CompilerError {
	what := got.Type.String()
	if got.Value != "" && !strings.HasPrefix(what, "'") {
		what = fmt.Sprintf("%s '%s'", what, got.Value)
	}
	return CompilerError{
		Level:    LevelError,
		Category: CategorySyntax,
		Message:  fmt.Sprintf("expected %s, got %s", expected, what),
		Location: got.Location(file),
	}
}

// FatalError reports an internal error raised while lowering
func FatalError(message string, loc SourceLocation) CompilerError {
	return CompilerError{
		Level:    LevelFatal,
		Category: CategoryInternal,
		Message:  message,
		Location: loc,
		Context: ErrorContext{
			HelpText: "the operands are not valid for this operation; no instruction form matches",
		},
	}
}
