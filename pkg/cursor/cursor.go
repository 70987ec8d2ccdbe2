// Package cursor implements the multi-cursor model: an ordered set of
// positioned cursors with selection, sticky column, and automatic merge of
// overlapping selections.
//
// Positions are expressed as marker ids (pkg/marker), not raw byte offsets:
// a Cursor's head and anchor track edits automatically via the shared
// MarkerTree, so Cursors itself never needs an adjustment pass of its own —
// it only ever re-sorts and re-merges after the markers have already moved.
package cursor

import (
	"sort"

	"github.com/coreseekdev/loom/pkg/marker"
)

// ID identifies a cursor within a Set.
type ID int

// Cursor is a single positioned cursor. Anchor is nil for a collapsed
// cursor (no selection).
type Cursor struct {
	ID            ID
	Head          marker.ID
	Anchor        *marker.ID
	StickyColumn  int
}

// IsCollapsed reports whether the cursor has no active selection.
func (c Cursor) IsCollapsed() bool { return c.Anchor == nil }

// Positions resolves a cursor's head/anchor to byte offsets via tree.
func (c Cursor) Positions(tree *marker.Tree) (head int, anchor int, hasSelection bool) {
	head, _ = tree.PositionOf(c.Head)
	if c.Anchor == nil {
		return head, head, false
	}
	anchor, _ = tree.PositionOf(*c.Anchor)
	return head, anchor, true
}

// From returns the lower byte bound of the cursor's selection (or its head,
// if collapsed).
func (c Cursor) From(tree *marker.Tree) int {
	head, anchor, _ := c.Positions(tree)
	if anchor < head {
		return anchor
	}
	return head
}

// To returns the upper byte bound of the cursor's selection.
func (c Cursor) To(tree *marker.Tree) int {
	head, anchor, _ := c.Positions(tree)
	if anchor > head {
		return anchor
	}
	return head
}

// Set is an ordered collection of cursors keyed by ID, with a distinguished
// primary. No two distinct cursors may have identical (head, anchor);
// overlapping selections merge (see Normalize).
type Set struct {
	cursors []Cursor
	primary ID
	nextID  ID
	tree    *marker.Tree
}

// NewSet returns a Set with a single collapsed cursor at byte offset pos,
// backed by tree for position resolution.
func NewSet(tree *marker.Tree, pos int) *Set {
	s := &Set{tree: tree, nextID: 1}
	id := s.nextID
	s.nextID++
	head := tree.Create(pos, marker.GravityLeft)
	s.cursors = []Cursor{{ID: id, Head: head}}
	s.primary = id
	return s
}

// Add inserts a new cursor built from spec into the set. If the new
// cursor's selection overlaps any existing cursor, they merge: the
// surviving range is the union of both selections, and the surviving
// cursor keeps the new cursor's id, which is also the returned id (spec
// §4.5). The merged cursor's anchor sits at the union's start and its head
// at the union's end; the new cursor's own head position is not kept when
// it differs from the union's end.
func (s *Set) Add(headPos int, anchorPos *int) ID {
	id := s.nextID
	s.nextID++
	head := s.tree.Create(headPos, marker.GravityLeft)
	var anchor *marker.ID
	if anchorPos != nil {
		a := s.tree.Create(*anchorPos, marker.GravityRight)
		anchor = &a
	}
	s.cursors = append(s.cursors, Cursor{ID: id, Head: head, Anchor: anchor})
	s.primary = id
	s.Normalize()
	return id
}

// Remove deletes the cursor with the given id, releasing its markers.
func (s *Set) Remove(id ID) {
	for i, c := range s.cursors {
		if c.ID == id {
			s.tree.Remove(c.Head)
			if c.Anchor != nil {
				s.tree.Remove(*c.Anchor)
			}
			s.cursors = append(s.cursors[:i], s.cursors[i+1:]...)
			if s.primary == id && len(s.cursors) > 0 {
				s.primary = s.cursors[0].ID
			}
			return
		}
	}
}

// RemoveSecondary collapses the set to the primary cursor only.
func (s *Set) RemoveSecondary() {
	for _, c := range append([]Cursor{}, s.cursors...) {
		if c.ID != s.primary {
			s.Remove(c.ID)
		}
	}
}

// Primary returns the primary cursor.
func (s *Set) Primary() Cursor {
	for _, c := range s.cursors {
		if c.ID == s.primary {
			return c
		}
	}
	if len(s.cursors) > 0 {
		return s.cursors[0]
	}
	return Cursor{}
}

// PrimaryID returns the id of the primary cursor.
func (s *Set) PrimaryID() ID { return s.primary }

// SetPrimary designates id as primary, if it exists in the set.
func (s *Set) SetPrimary(id ID) {
	for _, c := range s.cursors {
		if c.ID == id {
			s.primary = id
			return
		}
	}
}

// All returns all cursors, sorted by head position.
func (s *Set) All() []Cursor {
	return append([]Cursor{}, s.cursors...)
}

// Get returns the cursor with the given id.
func (s *Set) Get(id ID) (Cursor, bool) {
	for _, c := range s.cursors {
		if c.ID == id {
			return c, true
		}
	}
	return Cursor{}, false
}

// Update replaces the cursor with the same ID as updated.
func (s *Set) Update(updated Cursor) {
	for i, c := range s.cursors {
		if c.ID == updated.ID {
			s.cursors[i] = updated
			return
		}
	}
}

// Map applies f to every cursor, replacing each with f's result, then
// re-normalizes (re-sorts by head, merges overlaps).
func (s *Set) Map(f func(Cursor) Cursor) {
	for i := range s.cursors {
		s.cursors[i] = f(s.cursors[i])
	}
	s.Normalize()
}

// Normalize sorts cursors by head position and merges any whose selections
// overlap or whose heads coincide. The merged cursor keeps the id of
// whichever cursor in the overlapping group was added last (the highest
// id), so a cursor just added by Add survives a merge; its anchor is at the
// union's start and its head at the union's end. If either merged cursor
// was primary, the merged cursor is primary.
func (s *Set) Normalize() {
	if len(s.cursors) <= 1 {
		return
	}
	sort.SliceStable(s.cursors, func(i, j int) bool {
		return s.cursors[i].From(s.tree) < s.cursors[j].From(s.tree)
	})
	merged := s.cursors[:1]
	for _, c := range s.cursors[1:] {
		last := &merged[len(merged)-1]
		lastFrom, lastTo := last.From(s.tree), last.To(s.tree)
		curFrom, curTo := c.From(s.tree), c.To(s.tree)
		if curFrom <= lastTo || (curFrom == lastFrom && curTo == lastTo) {
			// Overlap (or identical range): widen to the union and keep
			// the id of the later-added cursor.
			newFrom := minInt(lastFrom, curFrom)
			newTo := maxInt(lastTo, curTo)
			survivor := c.ID
			if last.ID > survivor {
				survivor = last.ID
			}
			if s.primary == c.ID || s.primary == last.ID {
				s.primary = survivor
			}
			s.tree.Remove(last.Head)
			if last.Anchor != nil {
				s.tree.Remove(*last.Anchor)
			}
			if newFrom == newTo {
				head := s.tree.Create(newFrom, marker.GravityLeft)
				*last = Cursor{ID: survivor, Head: head}
			} else {
				anchor := s.tree.Create(newFrom, marker.GravityRight)
				head := s.tree.Create(newTo, marker.GravityLeft)
				*last = Cursor{ID: survivor, Head: head, Anchor: &anchor}
			}
			continue
		}
		merged = append(merged, c)
	}
	s.cursors = merged
	if _, ok := s.Get(s.primary); !ok && len(s.cursors) > 0 {
		s.primary = s.cursors[len(s.cursors)-1].ID
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Len returns the number of cursors in the set.
func (s *Set) Len() int { return len(s.cursors) }

// SetHead moves cursor id's head to pos, replacing its marker (spec §4.7
// Apply: Insert/Delete/MoveCursor all move a cursor's head to an explicit
// position rather than relying on marker gravity, since gravity alone
// would leave a left-gravity head marker behind an insertion made at its
// own offset instead of advancing past it).
func (s *Set) SetHead(id ID, pos int) {
	for i := range s.cursors {
		if s.cursors[i].ID == id {
			old := s.cursors[i].Head
			s.cursors[i].Head = s.tree.Create(pos, marker.GravityLeft)
			s.tree.Remove(old)
			return
		}
	}
}

// SetAnchor sets cursor id's anchor to pos, or clears the selection
// (collapsing the cursor) if pos is nil.
func (s *Set) SetAnchor(id ID, pos *int) {
	for i := range s.cursors {
		if s.cursors[i].ID != id {
			continue
		}
		if s.cursors[i].Anchor != nil {
			s.tree.Remove(*s.cursors[i].Anchor)
		}
		if pos == nil {
			s.cursors[i].Anchor = nil
			return
		}
		a := s.tree.Create(*pos, marker.GravityRight)
		s.cursors[i].Anchor = &a
		return
	}
}

// Clone returns an independent copy of s anchored to tree (normally a
// Clone of s's own tree), for EventLog snapshots.
func (s *Set) Clone(tree *marker.Tree) *Set {
	return &Set{
		cursors: append([]Cursor{}, s.cursors...),
		primary: s.primary,
		nextID:  s.nextID,
		tree:    tree,
	}
}
