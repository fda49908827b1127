// Completion: 100% - Fatal error helpers complete
package amd64

import (
	"errors"

	"github.com/xyproto/lirgen/internal/lir"
)

// ErrUnsupported is returned by Lookup for an operation, size and shape
// combination that has no encoding
var ErrUnsupported = errors.New("unsupported encoding")

func shouldNotReachHere(format string, args ...any) {
	lir.ShouldNotReachHere(format, args...)
}

func unimplemented(format string, args ...any) {
	lir.ShouldNotReachHere("unimplemented: "+format, args...)
}

// require fails the compilation when the target lacks ext
func (l *Lowerer) require(ext Extension, what string) {
	if !l.target.Supports(ext) {
		shouldNotReachHere("%s needs %s, which the target does not have", what, ext)
	}
}
