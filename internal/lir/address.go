package lir

import (
	"fmt"
	"strings"
)

// Address is an effective address: base + index*scale + displacement.
// Lowering treats it as opaque; it is computed by the IR producer.
type Address struct {
	Base  Value
	Index Value
	Scale int
	Disp  int32
}

func (a *Address) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	sep := ""
	if a.Base != nil {
		sb.WriteString(a.Base.String())
		sep = " + "
	}
	if a.Index != nil {
		sb.WriteString(sep)
		sb.WriteString(a.Index.String())
		if a.Scale > 1 {
			fmt.Fprintf(&sb, "*%d", a.Scale)
		}
		sep = " + "
	}
	if a.Disp != 0 || sep == "" {
		if a.Disp < 0 && sep != "" {
			fmt.Fprintf(&sb, " - %d", -int64(a.Disp))
		} else {
			fmt.Fprintf(&sb, "%s%d", sep, a.Disp)
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// FrameState is the snapshot attached to an instruction that may fault at
// run time (division by zero, implicit null check). The runtime uses it to
// rebuild the interpreter state; lowering only carries it.
type FrameState struct {
	BCI    int
	Reason string
	Live   []Value
}

func (s *FrameState) String() string {
	if s.Reason == "" {
		return fmt.Sprintf("state@%d", s.BCI)
	}
	return fmt.Sprintf("state@%d(%s)", s.BCI, s.Reason)
}
