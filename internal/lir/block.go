// Completion: 100% - Blocks, frame builder and emission context complete
package lir

import (
	"fmt"
	"io"
	"strings"
)

// Block is a basic block: an ordered list of instructions. Order is
// significant since an instruction may consume the flags of its predecessor.
type Block struct {
	Label  string
	Instrs []*Instr
}

// Append adds an instruction at the end of the block
func (b *Block) Append(i *Instr) {
	b.Instrs = append(b.Instrs, i)
}

func (b *Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.Label)
	for _, i := range b.Instrs {
		fmt.Fprintf(&sb, "  %s\n", i)
	}
	return sb.String()
}

// FrameBuilder hands out stack slots for one compilation. Slots are never
// shared between compilations.
type FrameBuilder struct {
	slots []StackSlot
	size  int
}

// AllocateSpillSlot reserves a new stack slot wide enough for kind
func (f *FrameBuilder) AllocateSpillSlot(kind ValueKind) StackSlot {
	n := kind.Platform.Bits() / 8
	if n < 8 {
		n = 8
	}
	if rem := f.size % n; rem != 0 {
		f.size += n - rem
	}
	slot := StackSlot{Offset: f.size, Kind: kind}
	f.size += n
	f.slots = append(f.slots, slot)
	return slot
}

// Slots returns every slot handed out so far, in allocation order
func (f *FrameBuilder) Slots() []StackSlot {
	return f.slots
}

// Size returns the number of bytes reserved
func (f *FrameBuilder) Size() int {
	return f.size
}

// Builder is the emission context of one compilation: the blocks, the block
// instructions are currently appended to, the frame and the variable counter.
// A Builder must only be used from one goroutine; separate compilations use
// separate Builders.
type Builder struct {
	blocks  []*Block
	current *Block
	frame   FrameBuilder
	nextVar int

	// Trace receives one line per appended instruction when non-nil
	Trace io.Writer
}

// NewBuilder returns an empty emission context
func NewBuilder() *Builder {
	return &Builder{}
}

// StartBlock creates a block and makes it the append target
func (b *Builder) StartBlock(label string) *Block {
	blk := &Block{Label: label}
	b.blocks = append(b.blocks, blk)
	b.current = blk
	return blk
}

// Current returns the block instructions are appended to
func (b *Builder) Current() *Block {
	return b.current
}

// Blocks returns all blocks in creation order
func (b *Builder) Blocks() []*Block {
	return b.blocks
}

// Frame returns the frame builder of this compilation
func (b *Builder) Frame() *FrameBuilder {
	return &b.frame
}

// NewVariable allocates a fresh symbolic value
func (b *Builder) NewVariable(kind ValueKind) *Variable {
	v := &Variable{ID: b.nextVar, Kind: kind}
	b.nextVar++
	return v
}

// Append adds i to the current block and returns it
func (b *Builder) Append(i *Instr) *Instr {
	if b.current == nil {
		ShouldNotReachHere("append of %s without a current block", i.Mnemonic())
	}
	b.current.Append(i)
	if b.Trace != nil {
		fmt.Fprintf(b.Trace, "%s: %s\n", b.current.Label, i)
	}
	return i
}

// Dump returns all blocks in a human readable form
func (b *Builder) Dump() string {
	var sb strings.Builder
	for i, blk := range b.blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(blk.String())
	}
	if len(b.frame.slots) > 0 {
		fmt.Fprintf(&sb, "\nframe: %d bytes, %d slot(s)\n", b.frame.size, len(b.frame.slots))
	}
	return sb.String()
}
