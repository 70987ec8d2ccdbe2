package cursor

import (
	"fmt"

	"github.com/coreseekdev/loom/internal/coreerr"
	"github.com/coreseekdev/loom/pkg/buffer"
	"github.com/coreseekdev/loom/pkg/viewport"
)

// lineBounds returns the byte range [start,end) of line, excluding its
// trailing newline (end == b.Len() for the last line).
func lineBounds(b *buffer.Buffer, line int) (start, end int, err error) {
	start, err = b.LineColToByte(line, 0)
	if err != nil {
		return 0, 0, err
	}
	if nextStart, nextErr := b.LineColToByte(line+1, 0); nextErr == nil {
		end = nextStart - 1
	} else {
		end = b.Len()
	}
	return start, end, nil
}

// VisualColumnOf returns the visual column (terminal cells) of byte offset
// pos within its line: tabs expand to the next multiple of 8, East Asian
// Wide/Fullwidth runes count as 2 (see pkg/viewport.VisualWidth).
func VisualColumnOf(b *buffer.Buffer, pos int) (int, error) {
	line, _, err := b.ByteToLineCol(pos)
	if err != nil {
		return 0, err
	}
	start, end, err := lineBounds(b, line)
	if err != nil {
		return 0, err
	}
	if pos > end {
		pos = end
	}
	text, err := b.Slice(start, pos)
	if err != nil {
		return 0, err
	}
	col := 0
	for _, r := range text {
		if r == '\t' {
			col += 8 - col%8
			continue
		}
		col += viewport.VisualWidth(r)
	}
	return col, nil
}

// ByteAtVisualColumn returns the byte offset on line whose visual column is
// col. If line is shorter than col, pos lands at end-of-line and ok is
// false (spec §4.5: "If the target line is shorter than sticky_column, the
// cursor lands at end-of-line without updating sticky_column").
func ByteAtVisualColumn(b *buffer.Buffer, line, col int) (pos int, ok bool, err error) {
	start, end, err := lineBounds(b, line)
	if err != nil {
		return 0, false, err
	}
	text, err := b.Slice(start, end)
	if err != nil {
		return 0, false, err
	}
	vcol := 0
	for i, r := range text {
		if vcol >= col {
			return start + i, true, nil
		}
		if r == '\t' {
			vcol += 8 - vcol%8
		} else {
			vcol += viewport.VisualWidth(r)
		}
	}
	if vcol >= col {
		return end, true, nil
	}
	return end, false, nil
}

// StickyColumn returns cursor id's current sticky column.
func (s *Set) StickyColumn(id ID) (int, bool) {
	for _, c := range s.cursors {
		if c.ID == id {
			return c.StickyColumn, true
		}
	}
	return 0, false
}

// SetStickyColumn sets cursor id's sticky column directly. Callers reset
// this on every horizontal motion or edit and leave it untouched across
// consecutive vertical motions (spec §4.5).
func (s *Set) SetStickyColumn(id ID, col int) {
	for i := range s.cursors {
		if s.cursors[i].ID == id {
			s.cursors[i].StickyColumn = col
			return
		}
	}
}

// VerticalTarget computes the byte offset cursor id's head should move to
// for a vertical motion of deltaLines lines (negative for up, positive for
// down), honoring its sticky column. targetLine clamps to the document's
// first/last line. landedShort reports whether the target line was
// shorter than the sticky column — callers MUST NOT update the cursor's
// sticky column when landedShort is true, so the next vertical motion
// still aims for the original column (spec §4.5).
func VerticalTarget(b *buffer.Buffer, s *Set, id ID, deltaLines int) (target int, landedShort bool, err error) {
	c, ok := s.Get(id)
	if !ok {
		return 0, false, fmt.Errorf("cursor: vertical target: %w", coreerr.NoSuchCursor)
	}
	head, _ := s.tree.PositionOf(c.Head)
	curLine, _, err := b.ByteToLineCol(head)
	if err != nil {
		return 0, false, err
	}
	targetLine := curLine + deltaLines
	if targetLine < 0 {
		targetLine = 0
	}
	if last := b.LineCount() - 1; targetLine > last {
		targetLine = last
	}
	pos, onTarget, err := ByteAtVisualColumn(b, targetLine, c.StickyColumn)
	if err != nil {
		return 0, false, err
	}
	return pos, !onTarget, nil
}
