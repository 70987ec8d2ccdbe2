package rope

import "strings"

// Builder accumulates appended text and produces a single Rope, batching
// small appends into fewer, larger leaves instead of paying an O(log n)
// Concat per call.
//
// Example:
//
//	b := rope.NewBuilder()
//	b.Append("Hello")
//	b.Append(" World")
//	r := b.Build()
type Builder struct {
	pending strings.Builder
	result  *Rope
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{result: Empty()}
}

// Append adds text to the end of the builder's pending content.
func (b *Builder) Append(text string) *Builder {
	b.pending.WriteString(text)
	if b.pending.Len() >= maxLeaf {
		b.flush()
	}
	return b
}

func (b *Builder) flush() {
	if b.pending.Len() == 0 {
		return
	}
	b.result = b.result.Concat(New(b.pending.String()))
	b.pending.Reset()
}

// Build finalizes and returns the accumulated Rope. The builder remains
// usable afterward (further Append calls extend a fresh result).
func (b *Builder) Build() *Rope {
	b.flush()
	return b.result
}
