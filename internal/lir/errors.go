package lir

import "fmt"

// InternalError is raised (as a panic value) when lowering reaches a state
// the IR producer should have made impossible, such as an operand kind with
// no matching instruction form. It aborts the current compilation unit.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "internal compiler error: " + e.Msg
}

// ShouldNotReachHere panics with an *InternalError
func ShouldNotReachHere(format string, args ...interface{}) {
	panic(&InternalError{Msg: fmt.Sprintf(format, args...)})
}

// Recover turns an *InternalError panic into an error stored in *errp.
// Other panics are re-raised. Use it with defer at a compilation boundary:
//
//	defer lir.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if ie, ok := r.(*InternalError); ok {
		*errp = ie
		return
	}
	panic(r)
}
