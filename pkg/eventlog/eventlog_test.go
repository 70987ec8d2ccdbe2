package eventlog

import (
	"testing"

	"github.com/coreseekdev/loom/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// textState is a minimal state used only to exercise EventLog in isolation
// from pkg/state: a plain string buffer that Insert/Delete events mutate.
type textState struct {
	text string
}

func applyText(s textState, e event.Event) textState {
	switch e.Kind {
	case event.KindInsert:
		s.text = s.text[:e.InsertPos] + e.InsertText + s.text[e.InsertPos:]
	case event.KindDelete:
		s.text = s.text[:e.DeleteStart] + s.text[e.DeleteEnd:]
	case event.KindBatch:
		for _, sub := range e.Events {
			s = applyText(s, sub)
		}
	}
	return s
}

func cloneText(s textState) textState { return textState{text: s.text} }

func newLog() *EventLog[textState] {
	return New(applyText, cloneText)
}

func TestRecordUndoRedo(t *testing.T) {
	// S1 from spec §8.
	l := newLog()
	state := textState{text: "hello"}

	ins := event.NewInsert(5, " world", 0)
	state = applyText(state, ins)
	l.Record(ins, "")
	assert.Equal(t, "hello world", state.text)

	id, ok := l.Undo()
	require.True(t, ok)
	assert.Equal(t, uint64(1), id)
	rebuilt, _ := l.RebuildToCurrent(textState{text: "hello"})
	assert.Equal(t, "hello", rebuilt.text)

	_, ok = l.Redo()
	require.True(t, ok)
	rebuilt, _ = l.RebuildToCurrent(textState{text: "hello"})
	assert.Equal(t, "hello world", rebuilt.text)
}

func TestUndoExhausted(t *testing.T) {
	l := newLog()
	_, ok := l.Undo()
	assert.False(t, ok)
}

func TestRedoExhausted(t *testing.T) {
	l := newLog()
	_, ok := l.Redo()
	assert.False(t, ok)
}

func TestRecordTruncatesRedoTail(t *testing.T) {
	l := newLog()
	l.Record(event.NewInsert(0, "a", 0), "")
	l.Record(event.NewInsert(1, "b", 0), "")
	l.Undo()
	l.Record(event.NewInsert(1, "c", 0), "")
	assert.Equal(t, 2, l.Len())
	assert.False(t, l.CanRedo())
}

func TestRebuildMatchesDirectReplay(t *testing.T) {
	l := newLog()
	initial := textState{text: ""}
	state := initial
	for i := 0; i < 50; i++ {
		e := event.NewInsert(len(state.text), "x", 0)
		state = applyText(state, e)
		l.Record(e, "")
	}
	for i := 0; i <= l.Len(); i++ {
		rebuilt, _ := l.Rebuild(initial, i)
		direct := initial
		for j := 0; j < i; j++ {
			direct = applyText(direct, l.Entries()[j].Event)
		}
		assert.Equal(t, direct.text, rebuilt.text)
	}
}

// TestSnapshotAcceleratesRebuild is S6 from spec §8: with snapshots at
// events 1000 and 2000, undoing 600 times and rebuilding must replay from
// snapshot 1000, not from the initial state.
func TestSnapshotAcceleratesRebuild(t *testing.T) {
	l := newLog()
	l.SetSnapshotInterval(1000)
	initial := textState{text: ""}
	state := initial
	for i := 0; i < 2500; i++ {
		e := event.NewInsert(len(state.text), "x", 0)
		state = applyText(state, e)
		id := l.RecordAndMaybeSnapshot(e, "", state)
		_ = id
	}
	// Undo down to event 1900: the nearest snapshot at or below that is the
	// one taken at event 1000, so rebuild should replay only events
	// 1001..1900 (900 events), not all 1900 from the initial state.
	for i := 0; i < 600; i++ {
		l.Undo()
	}
	_, replayed := l.RebuildToCurrent(initial)
	assert.LessOrEqual(t, replayed, DefaultSnapshotInterval)
	assert.Less(t, replayed, int(l.Current()))
}

func TestGCReclaimsBelowLowWaterMark(t *testing.T) {
	l := newLog()
	state := textState{text: "hello"}
	del := event.NewDelete(0, 5, "hello", 0)
	state = applyText(state, del)
	_ = state
	l.Record(del, "")
	l.SetLowWaterMark(2)
	reclaimed := l.GC()
	assert.Equal(t, len("hello"), reclaimed)
	assert.Empty(t, l.Entries()[0].Event.CapturedText)
}
