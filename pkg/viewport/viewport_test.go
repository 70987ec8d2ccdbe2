package viewport

import (
	"testing"

	"github.com/coreseekdev/loom/pkg/buffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manyLines(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += "line\n"
	}
	return s
}

func TestEnsureVisibleVerticalScrollsToOneThird(t *testing.T) {
	b := buffer.NewFromString(manyLines(100))
	v := New(80, 30)
	// Cursor far below the initial viewport.
	cursorLine := 50
	v.EnsureVisibleVertical(b, cursorLine)
	topLine, _, err := b.ByteToLineCol(v.TopByte)
	require.NoError(t, err)
	assert.Equal(t, cursorLine-30/3, topLine)
}

func TestEnsureVisibleVerticalNoopWhenAlreadyVisible(t *testing.T) {
	b := buffer.NewFromString(manyLines(100))
	v := New(80, 30)
	v.TopByte, _ = b.LineColToByte(10, 0)
	v.EnsureVisibleVertical(b, 15)
	topLine, _, _ := b.ByteToLineCol(v.TopByte)
	assert.Equal(t, 10, topLine)
}

func TestEnsureVisibleHorizontal(t *testing.T) {
	v := New(40, 20)
	v.EnsureVisibleHorizontal(100)
	assert.Equal(t, 100-40*2/3, v.ScrollCol)
}

func TestEnsureVisibleHorizontalNoop(t *testing.T) {
	v := New(40, 20)
	v.ScrollCol = 10
	v.EnsureVisibleHorizontal(20)
	assert.Equal(t, 10, v.ScrollCol)
}

func TestEnsureVisibleMultiCursorCentersWhenFits(t *testing.T) {
	b := buffer.NewFromString(manyLines(100))
	v := New(80, 30)
	v.EnsureVisibleMultiCursor(b, []int{40, 42, 45}, 40)
	topLine, _, _ := b.ByteToLineCol(v.TopByte)
	// span = 6, mid = 40+3 = 43, target = 43-15 = 28
	assert.Equal(t, 28, topLine)
}

func TestEnsureVisibleMultiCursorFallsBackWhenSpanTooLarge(t *testing.T) {
	b := buffer.NewFromString(manyLines(200))
	v := New(80, 10)
	v.EnsureVisibleMultiCursor(b, []int{0, 100}, 100)
	topLine, _, _ := b.ByteToLineCol(v.TopByte)
	assert.Equal(t, 100-10/3, topLine)
}

func TestVisualWidthWideRune(t *testing.T) {
	assert.Equal(t, 1, VisualWidth('a'))
	assert.Equal(t, 2, VisualWidth('世'))
}

func TestReportState(t *testing.T) {
	b := buffer.NewFromString(manyLines(10))
	v := New(80, 5)
	v.TopByte, _ = b.LineColToByte(2, 0)
	v.ScrollCol = 3
	r := v.ReportState(b)
	assert.Equal(t, 2, r.TopLine)
	assert.Equal(t, 5, r.VisibleLineCount)
	assert.Equal(t, 3, r.ColumnOffset)
}
