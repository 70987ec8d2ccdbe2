// Package editor is the external surface spec §6 describes: one Editor per
// open document, wrapping pkg/state's Record/Undo/Redo pathway with the
// position-conversion, overlay/conceal, view-rendering, and notification
// operations a host (terminal UI, LSP-style client, test harness) actually
// calls.
//
// Editor is grounded on the teacher's pkg/session/session.go SimpleSession:
// same "one ID'd handle per open document, exposing Apply/Undo/Redo plus a
// subscription point for external observers" shape. Two things are
// deliberately not carried over: SimpleSession's channel-based
// Subscribe/publishEvent fan-out (pubsub.go) and its Authenticator/
// multi-writer machinery. Spec §5 puts the whole component graph under a
// single-threaded main loop ("never touched by workers"), so there is no
// concurrent publisher needing a channel to hand events across a goroutine
// boundary — Editor's Subscribe instead reuses pkg/buffer's synchronous
// Listener pattern one layer up, notifying handlers in the same call stack
// that produced the change, same as pkg/state's Doc wires the MarkerTree.
package editor

import (
	"fmt"
	"io"

	"github.com/coreseekdev/loom/internal/coreerr"
	"github.com/coreseekdev/loom/pkg/buffer"
	"github.com/coreseekdev/loom/pkg/cursor"
	"github.com/coreseekdev/loom/pkg/event"
	"github.com/coreseekdev/loom/pkg/eventlog"
	"github.com/coreseekdev/loom/pkg/overlay"
	"github.com/coreseekdev/loom/pkg/state"
	"github.com/coreseekdev/loom/pkg/viewpipe"
	"github.com/coreseekdev/loom/pkg/viewport"
)

// ChangeKind tags what kind of change a Notification reports.
type ChangeKind int

const (
	// KindRecorded fires after Record successfully applies and logs a new
	// event.
	KindRecorded ChangeKind = iota
	// KindUndone fires after a successful Undo.
	KindUndone
	// KindRedone fires after a successful Redo.
	KindRedone
)

// Notification describes one externally-visible change to the document
// (spec §6 "subscribe(kind, handler)"). Event is the event that was applied
// (for KindRecorded) or nil (KindUndone/KindRedone, where many events may
// have replayed during the rebuild).
type Notification struct {
	Kind  ChangeKind
	Event *event.Event
}

// Handler receives Notifications, synchronously, in Subscribe's
// registration order.
type Handler func(Notification)

// Editor is one open document: its State graph, a view pipeline, and the
// set of external subscribers watching it.
type Editor struct {
	state    *state.State
	pipeline *viewpipe.Pipeline
	handlers []Handler
}

// Open returns an Editor over buf, sized width x height, with the identity
// view pipeline and no subscribers.
func Open(buf *buffer.Buffer, width, height int) *Editor {
	return &Editor{
		state:    state.New(buf, width, height),
		pipeline: viewpipe.New(width),
	}
}

// Subscribe registers h to receive future Notifications; returns an
// unsubscribe function.
func (e *Editor) Subscribe(h Handler) (unsubscribe func()) {
	e.handlers = append(e.handlers, h)
	idx := len(e.handlers) - 1
	return func() {
		if idx < len(e.handlers) {
			e.handlers[idx] = nil
		}
	}
}

func (e *Editor) notify(n Notification) {
	for _, h := range e.handlers {
		if h != nil {
			h(n)
		}
	}
}

// Record validates, applies, and logs ev (spec §6 "record(event)"),
// notifying subscribers on success. Any cursor ev moves has its sticky
// column reset to its new position (spec §4.5: "reset on any horizontal
// motion or edit") — use MoveVertical for motion that should preserve it.
func (e *Editor) Record(ev event.Event, label string) (uint64, error) {
	id, err := e.state.Record(ev, label)
	if err != nil {
		return 0, err
	}
	e.refreshStickyColumns(ev)
	e.notify(Notification{Kind: KindRecorded, Event: &ev})
	return id, nil
}

// refreshStickyColumns resets the sticky column of every cursor ev
// touches, recursing into Batch sub-events.
func (e *Editor) refreshStickyColumns(ev event.Event) {
	switch ev.Kind {
	case event.KindInsert:
		e.refreshStickyColumn(ev.InsertCursor)
	case event.KindDelete:
		e.refreshStickyColumn(ev.DeleteCursor)
	case event.KindAddCursor:
		e.refreshStickyColumn(int(e.state.Doc.Cursors.PrimaryID()))
	case event.KindMoveCursor:
		e.refreshStickyColumn(ev.CursorID)
	case event.KindBatch:
		for _, sub := range ev.Events {
			e.refreshStickyColumns(sub)
		}
	}
}

func (e *Editor) refreshStickyColumn(cursorID int) {
	if cursorID == 0 {
		return
	}
	cid := cursor.ID(cursorID)
	c, ok := e.state.Doc.Cursors.Get(cid)
	if !ok {
		return
	}
	head, _ := e.state.Doc.Markers.PositionOf(c.Head)
	col, err := cursor.VisualColumnOf(e.state.Doc.Buffer, head)
	if err != nil {
		return
	}
	e.state.Doc.Cursors.SetStickyColumn(cid, col)
}

// MoveVertical moves cursor id up (deltaLines<0) or down (deltaLines>0) by
// |deltaLines| lines, computing the target byte from the cursor's sticky
// column (spec §4.5 "Vertical motion with sticky column"). Unlike Record,
// it leaves the sticky column untouched, so repeated vertical motion over
// short lines keeps aiming for the original column.
func (e *Editor) MoveVertical(id int, deltaLines int) (uint64, error) {
	cid := cursor.ID(id)
	c, ok := e.state.Doc.Cursors.Get(cid)
	if !ok {
		return 0, fmt.Errorf("editor: move vertical: cursor %d: %w", id, coreerr.NoSuchCursor)
	}
	target, _, err := cursor.VerticalTarget(e.state.Doc.Buffer, e.state.Doc.Cursors, cid, deltaLines)
	if err != nil {
		return 0, err
	}
	head, _ := e.state.Doc.Markers.PositionOf(c.Head)
	ev := event.NewMoveCursor(id, head, target)
	evID, err := e.state.Record(ev, "move-vertical")
	if err != nil {
		return 0, err
	}
	e.notify(Notification{Kind: KindRecorded, Event: &ev})
	return evID, nil
}

// Undo moves the log cursor back one event and rebuilds the document (spec
// §6 "undo()"). Returns coreerr.UndoExhausted if already at the initial
// state.
func (e *Editor) Undo() (uint64, error) {
	id, ok := e.state.Undo()
	if !ok {
		return 0, fmt.Errorf("editor: undo: %w", coreerr.UndoExhausted)
	}
	e.notify(Notification{Kind: KindUndone})
	return id, nil
}

// Redo moves the log cursor forward one event and rebuilds the document
// (spec §6 "redo()"). Returns coreerr.RedoExhausted if already at the tail.
func (e *Editor) Redo() (uint64, error) {
	id, ok := e.state.Redo()
	if !ok {
		return 0, fmt.Errorf("editor: redo: %w", coreerr.RedoExhausted)
	}
	e.notify(Notification{Kind: KindRedone})
	return id, nil
}

// CursorPosition resolves a cursor's head/anchor to byte offsets (spec §6
// "cursor_position(id)").
func (e *Editor) CursorPosition(id int) (head, anchor int, hasSelection bool, err error) {
	c, ok := e.state.Doc.Cursors.Get(cursor.ID(id))
	if !ok {
		return 0, 0, false, fmt.Errorf("editor: cursor %d: %w", id, coreerr.NoSuchCursor)
	}
	head, anchor, hasSelection = c.Positions(e.state.Doc.Markers)
	return head, anchor, hasSelection, nil
}

// ByteToLineCol converts a byte offset to (line, col) (spec §6
// "byte_to_linecol(b)").
func (e *Editor) ByteToLineCol(pos int) (line, col int, err error) {
	return e.state.Doc.Buffer.ByteToLineCol(pos)
}

// LineColToByte converts (line, col) to a byte offset (spec §6
// "linecol_to_byte(l,c)").
func (e *Editor) LineColToByte(line, col int) (int, error) {
	return e.state.Doc.Buffer.LineColToByte(line, col)
}

// Slice returns buffer bytes [start,end) (spec §6 "slice(range)").
func (e *Editor) Slice(start, end int) (string, error) {
	return e.state.Doc.Buffer.Slice(start, end)
}

// AddOverlay adds a styled range to namespace at z-order z (spec §6
// "add_overlay"; spec.md:49 "z, extend_to_line_end"). extendToLineEnd
// extends the rendered highlight to the end of each line it spans;
// preserveEmpty keeps the overlay alive once its markers collapse to a
// zero-length range (normally auto-dropped, spec.md:49).
func (e *Editor) AddOverlay(namespace string, start, end int, style string, z int, extendToLineEnd, preserveEmpty bool) overlay.Handle {
	return e.state.Doc.Overlays.AddOverlay(namespace, start, end, style, z, extendToLineEnd, preserveEmpty)
}

// ClearNamespace schedules namespace's overlays and conceals for atomic
// replacement (spec §6 "clear_namespace").
func (e *Editor) ClearNamespace(namespace string) {
	e.state.Doc.Overlays.ClearNamespace(namespace)
}

// AddConceal adds a concealment range to namespace (spec §6 "add_conceal").
// preserveEmpty mirrors AddOverlay's field (spec.md:51 "Lifecycle mirrors
// overlays").
func (e *Editor) AddConceal(namespace string, start, end int, replacement *string, cursorReveal, preserveEmpty bool) overlay.Handle {
	return e.state.Doc.Overlays.AddConceal(namespace, start, end, replacement, cursorReveal, preserveEmpty)
}

// SubmitViewTransform installs t as the view pipeline's Transformer (spec
// §6 "submit_view_transform"); nil resets to the identity pipeline.
func (e *Editor) SubmitViewTransform(t viewpipe.Transformer) {
	if t == nil {
		t = viewpipe.IdentityTransformer{}
	}
	e.pipeline.Transformer = t
}

// Render produces one view Frame for buffer bytes [start,end), resolving
// every registered conceal and reporting the current cursor set and
// viewport to the pipeline (spec §4.9).
func (e *Editor) Render(start, end int) (viewpipe.Frame, error) {
	d := e.state.Doc
	conceals := viewpipe.ResolveConceals(d.Overlays, d.Markers, d.Buffer)
	overlays := viewpipe.ResolveOverlays(d.Overlays, d.Markers, d.Buffer)
	cursors := make([]int, 0, d.Cursors.Len())
	primary := d.Cursors.PrimaryID()
	cursors = append(cursors, d.Cursors.Primary().From(d.Markers))
	for _, c := range d.Cursors.All() {
		if c.ID == primary {
			continue
		}
		cursors = append(cursors, c.From(d.Markers))
	}
	meta := viewpipe.ViewportMeta{
		TopByte:      d.Viewport.TopByte,
		ComposeWidth: d.Viewport.Width,
		Height:       d.Viewport.Height,
	}
	return e.pipeline.Render(d.Buffer, start, end, meta, cursors, conceals, overlays)
}

// ViewportReport returns the current viewport state (spec §6 "Viewport
// report").
func (e *Editor) ViewportReport() viewport.Report {
	return e.state.Doc.Viewport.ReportState(e.state.Doc.Buffer)
}

// Save writes the buffer to path (spec §4.3).
func (e *Editor) Save(path string) error {
	return e.state.Doc.Buffer.Save(path)
}

// SaveLog serializes every recorded event to w, one JSON record per line
// (spec §6 "Event serialization").
func (e *Editor) SaveLog(w io.Writer) error {
	return eventlog.WriteLog(w, e.state.Log.Entries())
}

// LoadLog replays a previously-saved event log (see SaveLog) onto ed's
// document, in order, via Record — so each replayed event is itself
// validated and re-logged exactly as if the host had just issued it. Spec
// §6: "Replay from an empty buffer MUST reproduce the saved state
// byte-exactly."
func LoadLog(r io.Reader, ed *Editor) error {
	recs, err := eventlog.ReadLog(r)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if _, err := ed.Record(rec.Event, rec.Label); err != nil {
			return fmt.Errorf("editor: replay: %w", err)
		}
	}
	return nil
}
