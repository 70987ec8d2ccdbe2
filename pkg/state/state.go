// Package state owns the editor's single component graph — Buffer,
// Cursors, MarkerTree, Overlays, Viewport — and the single apply pathway
// spec §4.7 defines from Event to state change, plus the EventLog that
// records and replays those events for undo/redo.
//
// The shape is grounded on the teacher's pkg/weave/engine.go Engine (owns
// a Document and a History, exposes one mutation entry point per kind of
// input) generalized from a single Content string and OT-composed
// Operations to the full Buffer/Cursors/MarkerTree/Overlays/Viewport graph
// and spec's tagged Event union. Unlike Engine, State carries no mutex:
// spec §5 makes the main loop the sole owner of this graph ("MarkerTree,
// Cursors, EventLog, Viewport: owned by the main loop exclusively; never
// touched by workers"), so the concurrency control the teacher needed for
// concurrent human/AI weaving has no reason to exist here.
package state

import (
	"fmt"

	"github.com/coreseekdev/loom/internal/coreerr"
	"github.com/coreseekdev/loom/pkg/buffer"
	"github.com/coreseekdev/loom/pkg/cursor"
	"github.com/coreseekdev/loom/pkg/event"
	"github.com/coreseekdev/loom/pkg/eventlog"
	"github.com/coreseekdev/loom/pkg/marker"
	"github.com/coreseekdev/loom/pkg/overlay"
	"github.com/coreseekdev/loom/pkg/viewport"
)

// Doc is the document-shaped slice of State that EventLog snapshots and
// replays: everything Apply touches, excluding the log itself (a Doc never
// owns its own history, or cloning it would have to recursively clone the
// log it's a snapshot of).
type Doc struct {
	Buffer   *buffer.Buffer
	Cursors  *cursor.Set
	Markers  *marker.Tree
	Overlays *overlay.Store
	Viewport *viewport.Viewport
}

// newDoc wires a fresh Doc around an existing Buffer: the MarkerTree
// subscribes to the buffer first (spec §4.7: "Notifications propagate
// synchronously to MarkerTree first... then to overlay/conceal layers,
// then to external observers"); overlays and cursors never need their own
// subscription since they resolve positions live through the same tree.
func newDoc(b *buffer.Buffer, width, height int) *Doc {
	tree := marker.New()
	overlays := overlay.New(tree)
	b.Subscribe(func(n buffer.Notification) {
		switch n.Kind {
		case buffer.KindInserted:
			tree.AdjustInserted(n.Start, len(n.Bytes))
		case buffer.KindDeleted:
			tree.AdjustDeleted(n.Start, n.End)
		}
		overlays.SweepCollapsed(tree)
	})
	return &Doc{
		Buffer:   b,
		Cursors:  cursor.NewSet(tree, 0),
		Markers:  tree,
		Overlays: overlays,
		Viewport: viewport.New(width, height),
	}
}

// Clone returns an independent copy of d for EventLog snapshots and
// undo/redo rebuilds. The cloned Markers tree is the new shared anchor for
// the cloned Cursors and Overlays, so marker ids stay valid across the
// clone (they're plain uint64 keys, and the cloned tree holds the same ids
// at the same offsets). The clone's Buffer is re-subscribed to its
// own (cloned) Markers tree immediately — Buffer.Clone drops listeners, and
// every further replay step applies through Buffer.Insert/Delete, which
// only adjusts markers via that subscription.
func (d *Doc) Clone() *Doc {
	tree := d.Markers.Clone()
	nd := &Doc{
		Buffer:   d.Buffer.Clone(),
		Cursors:  d.Cursors.Clone(tree),
		Markers:  tree,
		Overlays: d.Overlays.Clone(tree),
		Viewport: d.Viewport.Clone(),
	}
	nd.Buffer.Subscribe(func(n buffer.Notification) {
		switch n.Kind {
		case buffer.KindInserted:
			nd.Markers.AdjustInserted(n.Start, len(n.Bytes))
		case buffer.KindDeleted:
			nd.Markers.AdjustDeleted(n.Start, n.End)
		}
		nd.Overlays.SweepCollapsed(nd.Markers)
	})
	return nd
}

// ensureVisible applies the viewport smart-scroll policy (spec §4.8) for a
// single byte position.
func (d *Doc) ensureVisible(pos int) {
	line, _, err := d.Buffer.ByteToLineCol(pos)
	if err != nil {
		return
	}
	col, err := cursor.VisualColumnOf(d.Buffer, pos)
	if err != nil {
		return
	}
	d.Viewport.EnsureVisibleVertical(d.Buffer, line)
	d.Viewport.EnsureVisibleHorizontal(col)
}

// apply dispatches ev per spec §4.7's pseudocode, mutating d in place and
// returning it (the signature eventlog.EventLog[*Doc] requires for its
// apply callback).
func apply(d *Doc, ev event.Event) *Doc {
	switch ev.Kind {
	case event.KindInsert:
		if err := d.Buffer.Insert(ev.InsertPos, ev.InsertText); err != nil {
			return d
		}
		newPos := ev.InsertPos + len(ev.InsertText)
		if ev.InsertCursor != 0 {
			d.Cursors.SetHead(cursor.ID(ev.InsertCursor), newPos)
		}
		d.ensureVisible(newPos)
	case event.KindDelete:
		if _, err := d.Buffer.Delete(ev.DeleteStart, ev.DeleteEnd); err != nil {
			return d
		}
		if ev.DeleteCursor != 0 {
			d.Cursors.SetHead(cursor.ID(ev.DeleteCursor), ev.DeleteStart)
		}
		d.ensureVisible(ev.DeleteStart)
	case event.KindAddCursor:
		id := d.Cursors.Add(ev.Spec.Head, ev.Spec.Anchor)
		d.Cursors.SetPrimary(id)
		d.ensureVisible(ev.Spec.Head)
	case event.KindRemoveCursor:
		d.Cursors.Remove(cursor.ID(ev.CursorID))
	case event.KindMoveCursor:
		d.Cursors.SetHead(cursor.ID(ev.CursorID), ev.NewPos)
		d.ensureVisible(ev.NewPos)
	case event.KindSetAnchor:
		d.Cursors.SetAnchor(cursor.ID(ev.CursorID), ev.Anchor)
	case event.KindScroll:
		d.Viewport.TopByte = ev.NewTop
	case event.KindBatch:
		for _, sub := range ev.Events {
			apply(d, sub)
		}
		d.Cursors.Normalize()
	}
	return d
}

// cloneDoc is the EventLog clone callback: a plain function value (rather
// than a method expression) so State.Log's type parameter stays inferred
// from New's call site.
func cloneDoc(d *Doc) *Doc { return d.Clone() }

// State is the editor's full owned component graph plus its undo/redo log
// (spec §9 "Global state": "State = {Buffer, Cursors, MarkerTree, Overlays,
// Conceals, Viewport, EventLog}. No ambient singletons.").
type State struct {
	Doc     *Doc
	Log     *eventlog.EventLog[*Doc]
	initial *Doc // frozen copy of the document at event 0, for full rebuilds
}

// New returns a State over buf, with an empty EventLog and a freshly wired
// component graph.
func New(buf *buffer.Buffer, width, height int) *State {
	d := newDoc(buf, width, height)
	return &State{
		Doc:     d,
		Log:     eventlog.New(apply, cloneDoc),
		initial: d.Clone(),
	}
}

// validateBatch checks every sub-event of a Batch against the buffer
// length it would see *if* every earlier sub-event in the batch already
// applied, without mutating anything — spec §7's "Partial failure during
// batch": if any sub-event fails validation, none are applied and the log
// never records the batch. This assumes batch members are non-overlapping
// and, per spec §4.7's multi-cursor ordering rule, sorted by descending
// position, so tracking a single running length suffices.
func (s *State) validateBatch(evs []event.Event) error {
	length := s.Doc.Buffer.Len()
	for _, e := range evs {
		switch e.Kind {
		case event.KindInsert:
			if e.InsertPos < 0 || e.InsertPos > length {
				return fmt.Errorf("state: batch insert at %d: %w", e.InsertPos, coreerr.OutOfRange)
			}
			length += len(e.InsertText)
		case event.KindDelete:
			if e.DeleteStart < 0 || e.DeleteEnd > length || e.DeleteStart > e.DeleteEnd {
				return fmt.Errorf("state: batch delete [%d,%d): %w", e.DeleteStart, e.DeleteEnd, coreerr.OutOfRange)
			}
			length -= e.DeleteEnd - e.DeleteStart
		}
	}
	return nil
}

// validate checks ev against the current document before Record commits
// to applying and logging it.
func (s *State) validate(ev event.Event) error {
	switch ev.Kind {
	case event.KindInsert:
		if ev.InsertPos < 0 || ev.InsertPos > s.Doc.Buffer.Len() {
			return fmt.Errorf("state: insert at %d: %w", ev.InsertPos, coreerr.OutOfRange)
		}
	case event.KindDelete:
		if ev.DeleteStart < 0 || ev.DeleteEnd > s.Doc.Buffer.Len() || ev.DeleteStart > ev.DeleteEnd {
			return fmt.Errorf("state: delete [%d,%d): %w", ev.DeleteStart, ev.DeleteEnd, coreerr.OutOfRange)
		}
	case event.KindBatch:
		return s.validateBatch(ev.Events)
	}
	return nil
}

// Record validates ev, applies it to the live document, and appends it to
// the log, in that order — spec §6 "record(event): Appends, applies,
// adjusts." Validation happens before either side effect so a rejected
// event never touches the document or the log.
func (s *State) Record(ev event.Event, label string) (uint64, error) {
	if err := s.validate(ev); err != nil {
		return 0, err
	}
	apply(s.Doc, ev)
	id := s.Log.RecordAndMaybeSnapshot(ev, label, s.Doc)
	return id, nil
}

// Undo moves the log cursor back one event and rebuilds the live document
// to match (spec §6 "undo()/redo(): Moves log cursor, rebuilds state").
// Returns false if already at the initial state (UndoExhausted).
func (s *State) Undo() (uint64, bool) {
	id, ok := s.Log.Undo()
	if !ok {
		return 0, false
	}
	s.rebuild()
	return id, true
}

// Redo moves the log cursor forward one event and rebuilds the live
// document to match. Returns false if already at the tail (RedoExhausted).
func (s *State) Redo() (uint64, bool) {
	id, ok := s.Log.Redo()
	if !ok {
		return 0, false
	}
	s.rebuild()
	return id, true
}

// rebuild replaces s.Doc with a fresh replay from the frozen initial
// snapshot (or the nearest later checkpoint) up to the log's current
// cursor.
func (s *State) rebuild() {
	d, _ := s.Log.RebuildToCurrent(s.initial.Clone())
	s.Doc = d
}

// Apply is the same dispatch Record uses, exposed directly for callers
// (tests, scenario replays) that want to mutate the live document without
// going through the log — e.g. reconstructing intermediate states for
// property tests.
func (s *State) Apply(ev event.Event) {
	apply(s.Doc, ev)
}
