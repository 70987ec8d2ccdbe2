// Package marker implements MarkerTree: stable byte positions that survive
// arbitrary edits without the caller recomputing them.
//
// A Marker is the substrate for cursor positions, overlay endpoints, and
// conceal-range endpoints — anywhere a position must track an edit instead
// of going stale. Gravity decides what happens when an edit lands exactly
// on a marker's offset: a left-gravity marker holds still (text inserted at
// its position is considered to have been typed after it); a right-gravity
// marker slides forward with the inserted text, matching the sliding
// behavior the teacher's decoration model exercises for gap cursors.
package marker

import "sort"

// Gravity controls adjustment when an edit lands exactly on a marker.
type Gravity int

const (
	// GravityLeft markers do not move when text is inserted at their
	// offset.
	GravityLeft Gravity = iota
	// GravityRight markers move forward with text inserted at their
	// offset.
	GravityRight
)

// ID identifies a marker within a Tree.
type ID uint64

type entry struct {
	id      ID
	offset  int
	gravity Gravity
}

// Tree is a sorted collection of markers, keyed by current byte offset.
type Tree struct {
	entries []entry // kept sorted by offset
	byID    map[ID]int // id -> index into entries
	nextID  ID
}

// New returns an empty marker Tree.
func New() *Tree {
	return &Tree{byID: make(map[ID]int), nextID: 1}
}

// Create adds a marker at offset with the given gravity and returns its ID.
func (t *Tree) Create(offset int, gravity Gravity) ID {
	id := t.nextID
	t.nextID++
	idx := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].offset >= offset })
	t.entries = append(t.entries, entry{})
	copy(t.entries[idx+1:], t.entries[idx:])
	t.entries[idx] = entry{id: id, offset: offset, gravity: gravity}
	t.reindexFrom(idx)
	return id
}

// reindexFrom rebuilds byID for entries at and after idx, after an insert
// or removal shifted the slice.
func (t *Tree) reindexFrom(idx int) {
	for i := idx; i < len(t.entries); i++ {
		t.byID[t.entries[i].id] = i
	}
}

// PositionOf returns the current byte offset of the marker, and false if
// the id does not exist (ErrNoSuchMarker territory for callers).
func (t *Tree) PositionOf(id ID) (int, bool) {
	idx, ok := t.byID[id]
	if !ok {
		return 0, false
	}
	return t.entries[idx].offset, true
}

// Remove deletes a marker. No-op if the id does not exist.
func (t *Tree) Remove(id ID) {
	idx, ok := t.byID[id]
	if !ok {
		return
	}
	t.entries = append(t.entries[:idx], t.entries[idx+1:]...)
	delete(t.byID, id)
	t.reindexFrom(idx)
}

// AdjustInserted shifts markers to reflect length bytes having been
// inserted at offset at. A marker exactly at `at` shifts only if it has
// right gravity; every marker after `at` shifts unconditionally.
func (t *Tree) AdjustInserted(at, length int) {
	if length == 0 {
		return
	}
	for i := range t.entries {
		e := &t.entries[i]
		switch {
		case e.offset > at:
			e.offset += length
		case e.offset == at && e.gravity == GravityRight:
			e.offset += length
		}
	}
	t.resort()
}

// AdjustDeleted collapses markers inside the deleted half-open range
// [start, end) to start, and shifts markers beyond end back by the deleted
// length.
func (t *Tree) AdjustDeleted(start, end int) {
	length := end - start
	if length <= 0 {
		return
	}
	for i := range t.entries {
		e := &t.entries[i]
		switch {
		case e.offset >= end:
			e.offset -= length
		case e.offset > start:
			e.offset = start
		}
	}
	t.resort()
}

// resort restores offset order after an adjustment pass (adjustments can
// reorder markers that collapsed onto each other or crossed during a
// delete) and rebuilds the id index.
func (t *Tree) resort() {
	sort.SliceStable(t.entries, func(i, j int) bool { return t.entries[i].offset < t.entries[j].offset })
	t.reindexFrom(0)
}

// Len returns the number of live markers.
func (t *Tree) Len() int { return len(t.entries) }

// Gravity returns the gravity a marker was created with.
func (t *Tree) Gravity(id ID) (Gravity, bool) {
	idx, ok := t.byID[id]
	if !ok {
		return GravityLeft, false
	}
	return t.entries[idx].gravity, true
}

// Clone returns an independent copy of t: markers created on the clone or
// adjustments made to it never affect t, and vice versa. Used by
// pkg/state's EventLog snapshots, which need a frozen copy of the marker
// positions at a point in history.
func (t *Tree) Clone() *Tree {
	nt := &Tree{
		entries: append([]entry{}, t.entries...),
		byID:    make(map[ID]int, len(t.byID)),
		nextID:  t.nextID,
	}
	for k, v := range t.byID {
		nt.byID[k] = v
	}
	return nt
}
