// Package eventlog implements the append-only mutation history with
// snapshot-accelerated undo/redo (spec §4.6).
//
// EventLog is generic over the state it replays onto (EventLog[S]) so it has
// no import-cycle dependency on pkg/state: the caller supplies an Apply
// function and a Clone function, and EventLog only ever calls those two.
// This mirrors the teacher's pkg/rope/history.go, which keeps History
// independent of any particular document representation by operating on
// *Rope values passed in by the caller rather than owning a document type
// itself.
package eventlog

import (
	"log"

	"github.com/coreseekdev/loom/pkg/event"
)

// LogEntry is one recorded event with a dense, monotonically increasing id.
type LogEntry struct {
	ID        uint64
	Event     event.Event
	Label     string
}

// DefaultSnapshotInterval is how many events elapse between automatic
// checkpoints, per spec §4.6's recommendation.
const DefaultSnapshotInterval = 1000

type snapshot[S any] struct {
	eventID uint64
	state   S
}

// EventLog records events and moves a single undo/redo cursor through them.
// Apply replays one event onto a state and returns the resulting state;
// Clone deep-copies a state for use as a snapshot, so later mutation of the
// live state never perturbs a stored snapshot.
type EventLog[S any] struct {
	entries  []LogEntry
	current  int // number of applied entries (entries[current-1] is the latest); 0 means "at initial"
	nextID   uint64

	apply func(S, event.Event) S
	clone func(S) S

	snapshots        []snapshot[S]
	snapshotInterval int

	lowWaterMark uint64 // lowest event id still referenced by a live iterator
}

// New returns an empty EventLog using apply/clone to replay/snapshot state.
func New[S any](apply func(S, event.Event) S, clone func(S) S) *EventLog[S] {
	return &EventLog[S]{
		apply:            apply,
		clone:            clone,
		nextID:           1,
		snapshotInterval: DefaultSnapshotInterval,
	}
}

// SetSnapshotInterval overrides DefaultSnapshotInterval.
func (l *EventLog[S]) SetSnapshotInterval(n int) { l.snapshotInterval = n }

// Record appends evt, truncating any redo tail (a new branch discards the
// old future), and returns its assigned id. Record does not itself call
// Apply — callers apply the event to their live state via pkg/state and
// call Record to persist it, matching spec §4.7's single apply pathway
// (Record is the history side, not the mutation side).
func (l *EventLog[S]) Record(evt event.Event, label string) uint64 {
	if l.current < len(l.entries) {
		l.truncateSnapshotsAfter(l.current)
		l.entries = l.entries[:l.current]
	}
	id := l.nextID
	l.nextID++
	l.entries = append(l.entries, LogEntry{ID: id, Event: evt, Label: label})
	l.current = len(l.entries)
	return id
}

// RecordAndMaybeSnapshot records evt and, if this record crosses a
// snapshot-interval boundary, stores currentState (already updated by the
// caller's own apply call) as a checkpoint.
func (l *EventLog[S]) RecordAndMaybeSnapshot(evt event.Event, label string, currentState S) uint64 {
	id := l.Record(evt, label)
	if l.snapshotInterval > 0 && l.current%l.snapshotInterval == 0 {
		l.Checkpoint(currentState)
	}
	return id
}

func (l *EventLog[S]) truncateSnapshotsAfter(entryIndex int) {
	cutoffID := uint64(0)
	if entryIndex < len(l.entries) {
		cutoffID = l.entries[entryIndex].ID
	} else {
		return
	}
	kept := l.snapshots[:0]
	for _, s := range l.snapshots {
		if s.eventID < cutoffID {
			kept = append(kept, s)
		}
	}
	l.snapshots = kept
}

// Checkpoint stores state as a snapshot keyed at the current event id.
func (l *EventLog[S]) Checkpoint(state S) {
	id := uint64(0)
	if l.current > 0 {
		id = l.entries[l.current-1].ID
	}
	l.snapshots = append(l.snapshots, snapshot[S]{eventID: id, state: l.clone(state)})
}

// Current returns the id of the most recently applied event, or 0 if the
// log cursor is at the initial state.
func (l *EventLog[S]) Current() uint64 {
	if l.current == 0 {
		return 0
	}
	return l.entries[l.current-1].ID
}

// Len returns the number of recorded events (including any in the
// truncated-but-not-yet-overwritten redo tail).
func (l *EventLog[S]) Len() int { return len(l.entries) }

// CanUndo reports whether Undo would succeed.
func (l *EventLog[S]) CanUndo() bool { return l.current > 0 }

// CanRedo reports whether Redo would succeed.
func (l *EventLog[S]) CanRedo() bool { return l.current < len(l.entries) }

// Undo moves the log cursor back one event and returns its id, or false if
// already at the initial state (spec: UndoExhausted).
func (l *EventLog[S]) Undo() (uint64, bool) {
	if !l.CanUndo() {
		return 0, false
	}
	id := l.entries[l.current-1].ID
	l.current--
	return id, true
}

// Redo moves the log cursor forward one event and returns its id, or false
// if already at the tail (spec: RedoExhausted).
func (l *EventLog[S]) Redo() (uint64, bool) {
	if !l.CanRedo() {
		return 0, false
	}
	id := l.entries[l.current].ID
	l.current++
	return id, true
}

// Rebuild locates the latest snapshot whose event id <= the target index
// (in entries-space, 1-based meaning "after applying entries[:n]"), starts
// from it (or initial if none), and replays events (snapshot, target] in
// order. Returns the resulting state and how many events were replayed
// (for tests instrumenting spec §8 scenario S6).
func (l *EventLog[S]) Rebuild(initial S, to int) (state S, replayed int) {
	if to < 0 {
		to = 0
	}
	if to > len(l.entries) {
		to = len(l.entries)
	}
	targetID := uint64(0)
	if to > 0 {
		targetID = l.entries[to-1].ID
	}

	state = initial
	startIdx := 0
	best := -1
	for i, s := range l.snapshots {
		if s.eventID <= targetID && (best == -1 || s.eventID > l.snapshots[best].eventID) {
			best = i
		}
	}
	if best >= 0 {
		state = l.clone(l.snapshots[best].state)
		startIdx = l.indexOfEventID(l.snapshots[best].eventID) + 1
	}
	for i := startIdx; i < to; i++ {
		state = l.apply(state, l.entries[i].Event)
		replayed++
	}
	return state, replayed
}

func (l *EventLog[S]) indexOfEventID(id uint64) int {
	if id == 0 {
		return -1
	}
	for i, e := range l.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// RebuildToCurrent rebuilds state up to the current undo/redo cursor.
func (l *EventLog[S]) RebuildToCurrent(initial S) (state S, replayed int) {
	return l.Rebuild(initial, l.current)
}

// Entries returns a read-only view of the applied entries, up to (but not
// including) the redo tail; used by session persistence to serialize events
// (spec §6).
func (l *EventLog[S]) Entries() []LogEntry {
	return l.entries[:l.current]
}

// SetLowWaterMark records the lowest rope/iterator version still
// referenced by a live iterator. GC uses this to discard CapturedText from
// events older than the mark, since those bytes can no longer be needed by
// anything holding an iterator opened before the mark (spec §4.6 GC
// paragraph).
func (l *EventLog[S]) SetLowWaterMark(id uint64) {
	l.lowWaterMark = id
}

// GC discards CapturedText from Delete events older than the low water
// mark. It never removes the entries themselves (they're still needed for
// Kind/position bookkeeping), only the captured bytes, and it logs how
// much it reclaimed the way the teacher's session/transport packages log
// operational housekeeping.
func (l *EventLog[S]) GC() (reclaimed int) {
	for i := range l.entries {
		e := &l.entries[i]
		if e.ID >= l.lowWaterMark {
			break
		}
		if e.Event.Kind == event.KindDelete && e.Event.CapturedText != "" {
			reclaimed += len(e.Event.CapturedText)
			e.Event.CapturedText = ""
		}
	}
	if reclaimed > 0 {
		log.Printf("eventlog: GC reclaimed %d bytes below low water mark %d", reclaimed, l.lowWaterMark)
	}
	return reclaimed
}
