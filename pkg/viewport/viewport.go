// Package viewport implements the smart-scroll policy of spec §4.8: it
// tracks which byte range of the buffer is currently visible and decides
// when and how far to scroll to keep a cursor in view.
//
// The scroll-offset bookkeeping (top line, cursor's offset within the
// viewport, separate column vs. visual-column accounting) is grounded on
// kisielk-vigo's view.go viewLocation (topLine/topLineNum,
// cursorCoffset/cursorVoffset), generalized from a single-cursor terminal
// view to the byte-offset, multi-cursor model spec §4.5/§4.8 describe.
package viewport

import (
	"golang.org/x/text/width"

	"github.com/coreseekdev/loom/pkg/buffer"
)

// Viewport tracks the visible window into a Buffer.
type Viewport struct {
	TopByte  int // byte offset of the first visible line; always a line start
	ScrollCol int
	Width    int
	Height   int
}

// New returns a Viewport of the given size, starting at the top of the
// document.
func New(width, height int) *Viewport {
	return &Viewport{Width: width, Height: height}
}

// Resize updates the viewport's dimensions (external size events, spec
// §4.8 "Width/height are set by external size events").
func (v *Viewport) Resize(width, height int) {
	v.Width, v.Height = width, height
}

// VisualWidth returns the number of terminal cells r occupies: 2 for
// East Asian Wide/Fullwidth runes, 1 otherwise. Ambiguous-width runes are
// treated as narrow, matching the common terminal convention (the teacher
// corpus never renders to a terminal at all, so there's no convention to
// inherit; this follows x/text/width's own EastAsianAmbiguous-is-narrow
// default posture for non-CJK locales).
func VisualWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// VisualColumn returns the visual column (0-indexed, in terminal cells) of
// byte offset pos within its line, given the line's starting byte offset
// and text.
func VisualColumn(lineText string, lineStart, pos int) int {
	col := 0
	for i, r := range lineText {
		if lineStart+i >= pos {
			break
		}
		if r == '\t' {
			col += 8 - col%8
			continue
		}
		col += VisualWidth(r)
	}
	return col
}

// EnsureVisibleVertical applies spec §4.8's vertical smart-scroll policy
// for a single (primary) cursor: if cursorLine is outside
// [TopLine, TopLine+Height), scroll so the cursor lands at height/3 from
// the top rather than centering, to keep more context above the cursor
// when reading top-down.
func (v *Viewport) EnsureVisibleVertical(b *buffer.Buffer, cursorLine int) {
	topLine, _, _ := b.ByteToLineCol(v.TopByte)
	if cursorLine >= topLine && cursorLine < topLine+v.Height {
		return
	}
	target := cursorLine - v.Height/3
	if target < 0 {
		target = 0
	}
	newTop, err := b.LineColToByte(target, 0)
	if err != nil {
		return
	}
	v.TopByte = newTop
}

// EnsureVisibleHorizontal applies spec §4.8's horizontal smart-scroll
// policy: if cursorCol is outside [ScrollCol, ScrollCol+Width), set
// ScrollCol = max(0, cursorCol - width*2/3).
func (v *Viewport) EnsureVisibleHorizontal(cursorCol int) {
	if cursorCol >= v.ScrollCol && cursorCol < v.ScrollCol+v.Width {
		return
	}
	target := cursorCol - v.Width*2/3
	if target < 0 {
		target = 0
	}
	v.ScrollCol = target
}

// EnsureVisibleMultiCursor applies spec §4.8's multi-cursor policy: if the
// bounding line range of every cursor fits within Height, center that
// bounding range; otherwise fall back to the primary-only vertical policy.
func (v *Viewport) EnsureVisibleMultiCursor(b *buffer.Buffer, cursorLines []int, primaryLine int) {
	if len(cursorLines) == 0 {
		v.EnsureVisibleVertical(b, primaryLine)
		return
	}
	minLine, maxLine := cursorLines[0], cursorLines[0]
	for _, l := range cursorLines[1:] {
		if l < minLine {
			minLine = l
		}
		if l > maxLine {
			maxLine = l
		}
	}
	span := maxLine - minLine + 1
	if span > v.Height {
		v.EnsureVisibleVertical(b, primaryLine)
		return
	}
	mid := minLine + span/2
	target := mid - v.Height/2
	if target < 0 {
		target = 0
	}
	newTop, err := b.LineColToByte(target, 0)
	if err != nil {
		return
	}
	v.TopByte = newTop
}

// Report describes the viewport's current state for an external renderer
// to locate itself in the document (spec §6 "Viewport report").
type Report struct {
	TopByte          int
	TopLine          int
	VisibleLineCount int
	ColumnOffset     int
}

// Clone returns an independent copy of v, for EventLog snapshots.
func (v *Viewport) Clone() *Viewport {
	nv := *v
	return &nv
}

// ReportState returns the viewport's current Report against b.
func (v *Viewport) ReportState(b *buffer.Buffer) Report {
	topLine, _, _ := b.ByteToLineCol(v.TopByte)
	return Report{
		TopByte:          v.TopByte,
		TopLine:          topLine,
		VisibleLineCount: v.Height,
		ColumnOffset:     v.ScrollCol,
	}
}
