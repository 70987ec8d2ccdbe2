// Package event defines the tagged union of mutation events that flow
// through EventLog.record and State.apply.
//
// Every event is reversible given its own captured data — Delete carries
// the bytes it removed so undo never has to consult anything but the
// event itself. Dispatch is a switch on Kind in State.apply (pkg/state), not
// virtual methods on the events, per the "polymorphism without
// inheritance" design note: events are plain tagged records.
package event

// Kind tags which variant an Event holds.
type Kind int

const (
	KindInsert Kind = iota
	KindDelete
	KindAddCursor
	KindRemoveCursor
	KindMoveCursor
	KindSetAnchor
	KindScroll
	KindBatch
)

// CursorSpec describes a cursor to create, independent of any live marker
// ids (AddCursor carries one of these rather than a Cursor, since the
// cursor doesn't exist yet).
type CursorSpec struct {
	Head   int
	Anchor *int // nil means collapsed
}

// Event is a single reversible mutation. Exactly one of the typed fields
// is meaningful, selected by Kind — callers should use the New*
// constructors rather than building an Event literal, so Kind always
// matches the populated field.
type Event struct {
	Kind Kind

	// Insert
	InsertPos    int
	InsertText   string
	InsertCursor int // cursor id that should advance past the insert, 0 if none

	// Delete
	DeleteStart  int
	DeleteEnd    int
	CapturedText string // bytes removed; required for undo
	DeleteCursor int

	// AddCursor
	Spec CursorSpec

	// RemoveCursor / MoveCursor / SetAnchor all key off CursorID
	CursorID int
	OldPos   int // MoveCursor
	NewPos   int // MoveCursor
	Anchor   *int // SetAnchor; nil clears the anchor (collapses selection)

	// Scroll
	OldTop int
	NewTop int

	// Batch
	Events []Event
	Label  string
}

// NewInsert returns an Insert event.
func NewInsert(pos int, text string, cursor int) Event {
	return Event{Kind: KindInsert, InsertPos: pos, InsertText: text, InsertCursor: cursor}
}

// NewDelete returns a Delete event. captured must be the exact bytes
// [start,end) held before the delete, so the event can be inverted.
func NewDelete(start, end int, captured string, cursor int) Event {
	return Event{Kind: KindDelete, DeleteStart: start, DeleteEnd: end, CapturedText: captured, DeleteCursor: cursor}
}

// NewAddCursor returns an AddCursor event.
func NewAddCursor(spec CursorSpec) Event {
	return Event{Kind: KindAddCursor, Spec: spec}
}

// NewRemoveCursor returns a RemoveCursor event.
func NewRemoveCursor(id int) Event {
	return Event{Kind: KindRemoveCursor, CursorID: id}
}

// NewMoveCursor returns a MoveCursor event.
func NewMoveCursor(id, oldPos, newPos int) Event {
	return Event{Kind: KindMoveCursor, CursorID: id, OldPos: oldPos, NewPos: newPos}
}

// NewSetAnchor returns a SetAnchor event. anchor nil collapses the
// selection.
func NewSetAnchor(id int, anchor *int) Event {
	return Event{Kind: KindSetAnchor, CursorID: id, Anchor: anchor}
}

// NewScroll returns a Scroll event.
func NewScroll(oldTop, newTop int) Event {
	return Event{Kind: KindScroll, OldTop: oldTop, NewTop: newTop}
}

// NewBatch returns a Batch event grouping evs under label. Batches are
// all-or-nothing: State.Record validates every sub-event before applying
// any of them (spec §7, "Partial failure during batch").
func NewBatch(label string, evs ...Event) Event {
	return Event{Kind: KindBatch, Label: label, Events: evs}
}

// SignedLengthChange returns the net byte-length delta this event applies
// to the document, used by property tests (spec §8 invariant 4) and by
// callers that want to predict marker movement without replaying.
func (e Event) SignedLengthChange() int {
	switch e.Kind {
	case KindInsert:
		return len(e.InsertText)
	case KindDelete:
		return -(e.DeleteEnd - e.DeleteStart)
	case KindBatch:
		total := 0
		for _, sub := range e.Events {
			total += sub.SignedLengthChange()
		}
		return total
	default:
		return 0
	}
}

// Invert returns the event that undoes e, given the document state it was
// recorded against. Insert/Delete invert into their opposite; cursor and
// scroll events invert by swapping old/new; Batch inverts by reversing
// order and inverting each member.
func (e Event) Invert() Event {
	switch e.Kind {
	case KindInsert:
		return NewDelete(e.InsertPos, e.InsertPos+len(e.InsertText), e.InsertText, e.InsertCursor)
	case KindDelete:
		return NewInsert(e.DeleteStart, e.CapturedText, e.DeleteCursor)
	case KindMoveCursor:
		return NewMoveCursor(e.CursorID, e.NewPos, e.OldPos)
	case KindScroll:
		return NewScroll(e.NewTop, e.OldTop)
	case KindBatch:
		inv := make([]Event, len(e.Events))
		for i, sub := range e.Events {
			inv[len(e.Events)-1-i] = sub.Invert()
		}
		return NewBatch(e.Label, inv...)
	default:
		// AddCursor/RemoveCursor/SetAnchor are returned unchanged (the
		// event alone doesn't carry the cursor's prior anchor/state).
		// State.Undo never calls Invert: it rebuilds the document by
		// replaying the log from the initial state or a snapshot.
		return e
	}
}
