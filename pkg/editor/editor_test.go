package editor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreseekdev/loom/internal/coreerr"
	"github.com/coreseekdev/loom/pkg/buffer"
	"github.com/coreseekdev/loom/pkg/event"
)

func TestRecordUndoRedoAndNotify(t *testing.T) {
	ed := Open(buffer.NewFromString("hello"), 80, 24)

	var kinds []ChangeKind
	unsub := ed.Subscribe(func(n Notification) { kinds = append(kinds, n.Kind) })
	defer unsub()

	_, err := ed.Record(event.NewInsert(5, " world", 0), "type")
	require.NoError(t, err)
	got, err := ed.Slice(0, 11)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	_, err = ed.Undo()
	require.NoError(t, err)
	got, _ = ed.Slice(0, 5)
	assert.Equal(t, "hello", got)

	_, err = ed.Redo()
	require.NoError(t, err)

	assert.Equal(t, []ChangeKind{KindRecorded, KindUndone, KindRedone}, kinds)
}

func TestUndoExhaustedWrapsSentinel(t *testing.T) {
	ed := Open(buffer.NewFromString("x"), 80, 24)
	_, err := ed.Undo()
	require.Error(t, err)
	assert.ErrorIs(t, err, coreerr.UndoExhausted)
}

func TestByteLineColRoundTrip(t *testing.T) {
	// S3 from spec §8.
	ed := Open(buffer.NewFromString("a\nbb\nccc"), 80, 24)

	b, err := ed.LineColToByte(2, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, b)

	line, col, err := ed.ByteToLineCol(6)
	require.NoError(t, err)
	assert.Equal(t, 2, line)
	assert.Equal(t, 1, col)

	line, col, err = ed.ByteToLineCol(4)
	require.NoError(t, err)
	assert.Equal(t, 1, line)
	assert.Equal(t, 2, col)
}

func TestOverlayAndConcealAddressableFromEditor(t *testing.T) {
	ed := Open(buffer.NewFromString("**bold**"), 80, 24)
	empty := ""
	ed.AddConceal("md", 0, 2, &empty, false, false)
	ed.AddConceal("md", 6, 8, &empty, false, false)

	frame, err := ed.Render(0, 8)
	require.NoError(t, err)
	var text string
	for _, tok := range frame.Tokens {
		text += tok.Text
	}
	assert.Equal(t, "bold", text)

	ed.AddOverlay("hl", 0, 4, "bold", 0, false, false)
}

// TestOverlayZOrderRendersThroughEditor confirms Editor.Render threads
// overlay z-order composition all the way through (spec.md:49).
func TestOverlayZOrderRendersThroughEditor(t *testing.T) {
	ed := Open(buffer.NewFromString("abcd"), 80, 24)
	ed.AddOverlay("ns", 0, 4, "base", 0, false, false)
	ed.AddOverlay("ns", 1, 3, "top", 1, false, false)

	frame, err := ed.Render(0, 4)
	require.NoError(t, err)
	styles := make([]string, len(frame.Tokens))
	for i, tok := range frame.Tokens {
		styles[i] = tok.Style
	}
	assert.Equal(t, []string{"base", "top", "top", "base"}, styles)
}

func TestMoveVerticalPreservesStickyColumnAcrossShortLines(t *testing.T) {
	ed := Open(buffer.NewFromString("abcdefgh\nxy\nabcdefgh"), 80, 24)

	id := 1 // Open's initial primary cursor id
	// Move the cursor horizontally to column 5 on line 0 first, so Record's
	// sticky-column refresh captures it.
	_, err := ed.Record(event.NewMoveCursor(id, 0, 5), "move")
	require.NoError(t, err)

	_, err = ed.MoveVertical(id, 1) // line 0 -> line 1 ("xy"), too short for col 5
	require.NoError(t, err)
	head, _, _, err := ed.CursorPosition(id)
	require.NoError(t, err)
	assert.Equal(t, 11, head) // end of "xy"

	_, err = ed.MoveVertical(id, 1) // line 1 -> line 2, sticky column still 5
	require.NoError(t, err)
	head, _, _, err = ed.CursorPosition(id)
	require.NoError(t, err)
	assert.Equal(t, 17, head) // line 2 starts at byte 12, col 5
}

func TestSaveAndLoadLogReproducesState(t *testing.T) {
	ed := Open(buffer.NewFromString(""), 80, 24)
	_, err := ed.Record(event.NewInsert(0, "hello", 0), "type")
	require.NoError(t, err)
	_, err = ed.Record(event.NewInsert(5, " world", 0), "type")
	require.NoError(t, err)
	_, err = ed.Record(event.NewDelete(0, 5, "hello", 0), "del")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ed.SaveLog(&buf))

	fresh := Open(buffer.NewFromString(""), 80, 24)
	require.NoError(t, LoadLog(&buf, fresh))

	want, err := ed.Slice(0, 6)
	require.NoError(t, err)
	got, err := fresh.Slice(0, 6)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, " world", got)
}
