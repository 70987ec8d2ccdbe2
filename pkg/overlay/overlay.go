// Package overlay implements the namespaced, marker-anchored decoration
// sets spec §4.9 layers over the view pipeline: styled overlays and
// concealment ranges.
//
// Both kinds are generalized from a single shape: phroun-garland's
// per-cursor decoration list (region_ops.go's checkpoint/dissolve/discard
// dance around "active decorations"), broadened from per-cursor to
// per-namespace and from decoration-attached-to-cursor to
// decoration-attached-to-marker so overlays/conceals track edits
// independently of any particular cursor's lifetime.
package overlay

import (
	"sort"

	"github.com/google/uuid"

	"github.com/coreseekdev/loom/internal/coreerr"
	"github.com/coreseekdev/loom/pkg/marker"
)

// Handle identifies one overlay or conceal entry, returned by Add* and used
// to look it up or let it get swept by a namespace clear.
type Handle uuid.UUID

// Overlay is a styled byte range in a namespace (spec.md:49 "{namespace,
// start: MarkerId, end: MarkerId, style, z, extend_to_line_end: bool}").
// Z orders overlays within the token stream: "Overlays layer onto the
// token stream by z; within a z, later overlays win."
type Overlay struct {
	Handle          Handle
	Namespace       string
	start           marker.ID
	end             marker.ID
	Style           string
	Z               int
	ExtendToLineEnd bool
	PreserveEmpty   bool
	seq             int // creation order, for deterministic z-ties (see AllOverlaysOrdered)
}

// Range resolves the overlay's current byte range via tree.
func (o Overlay) Range(tree *marker.Tree) (start, end int) {
	start, _ = tree.PositionOf(o.start)
	end, _ = tree.PositionOf(o.end)
	return start, end
}

// Conceal is a byte range that the view pipeline replaces or hides,
// optionally revealing itself when a cursor sits inside it (spec §4.9
// "Concealment").
type Conceal struct {
	Handle        Handle
	Namespace     string
	start         marker.ID
	end           marker.ID
	Replacement   *string // nil means drop the tokens entirely
	CursorReveal  bool
	PreserveEmpty bool
}

// Range resolves the conceal's current byte range via tree.
func (c Conceal) Range(tree *marker.Tree) (start, end int) {
	start, _ = tree.PositionOf(c.start)
	end, _ = tree.PositionOf(c.end)
	return start, end
}

type namespaceState struct {
	overlays     []Overlay
	conceals     []Conceal
	clearPending bool
}

// Store owns every namespace's overlays and conceals, anchored to a shared
// MarkerTree so ranges track edits the same way cursors do.
//
// clear_namespace is atomic-swap, not immediate: ClearNamespace only marks
// the namespace for clearing. The actual discard-old-entries-and-take-new
// happens on the namespace's next Add call, as a single step — so a reader
// querying the namespace between Clear and the next Add still sees the old
// entries, never a transient empty set (spec §4.9: "rendering never sees a
// transient empty state").
type Store struct {
	tree    *marker.Tree
	ns      map[string]*namespaceState
	nextSeq int
}

// New returns an empty Store anchored to tree.
func New(tree *marker.Tree) *Store {
	return &Store{tree: tree, ns: map[string]*namespaceState{}}
}

func (s *Store) state(namespace string) *namespaceState {
	st, ok := s.ns[namespace]
	if !ok {
		st = &namespaceState{}
		s.ns[namespace] = st
	}
	return st
}

// AddOverlay adds a styled range to namespace at z-order z, returning its
// handle. extendToLineEnd and preserveEmpty are spec.md:49's
// extend_to_line_end and preserve_empty fields; preserveEmpty keeps the
// overlay alive across SweepCollapsed once its markers collapse to a
// zero-length range.
func (s *Store) AddOverlay(namespace string, start, end int, style string, z int, extendToLineEnd, preserveEmpty bool) Handle {
	st := s.state(namespace)
	if st.clearPending {
		st.overlays = nil
		st.conceals = nil
		st.clearPending = false
	}
	o := Overlay{
		Handle:          Handle(uuid.New()),
		Namespace:       namespace,
		start:           s.tree.Create(start, marker.GravityRight),
		end:             s.tree.Create(end, marker.GravityLeft),
		Style:           style,
		Z:               z,
		ExtendToLineEnd: extendToLineEnd,
		PreserveEmpty:   preserveEmpty,
		seq:             s.nextSeq,
	}
	s.nextSeq++
	st.overlays = append(st.overlays, o)
	return o.Handle
}

// AddConceal adds a concealment range to namespace, returning its handle.
// preserveEmpty mirrors Overlay's field (spec.md:51 "Lifecycle mirrors
// overlays").
func (s *Store) AddConceal(namespace string, start, end int, replacement *string, cursorReveal, preserveEmpty bool) Handle {
	st := s.state(namespace)
	if st.clearPending {
		st.overlays = nil
		st.conceals = nil
		st.clearPending = false
	}
	c := Conceal{
		Handle:        Handle(uuid.New()),
		Namespace:     namespace,
		start:         s.tree.Create(start, marker.GravityRight),
		end:           s.tree.Create(end, marker.GravityLeft),
		Replacement:   replacement,
		CursorReveal:  cursorReveal,
		PreserveEmpty: preserveEmpty,
	}
	st.conceals = append(st.conceals, c)
	return c.Handle
}

// ClearNamespace schedules namespace's overlays and conceals to be
// discarded; the discard takes effect atomically with the next Add call
// for that namespace (see Store doc comment). Calling it more than once
// before any Add is idempotent.
func (s *Store) ClearNamespace(namespace string) {
	s.state(namespace).clearPending = true
}

// RemoveOverlay drops a single overlay by handle, releasing its markers.
func (s *Store) RemoveOverlay(namespace string, h Handle) error {
	st, ok := s.ns[namespace]
	if !ok {
		return coreerr.NoSuchOverlay
	}
	for i, o := range st.overlays {
		if o.Handle == h {
			s.tree.Remove(o.start)
			s.tree.Remove(o.end)
			st.overlays = append(st.overlays[:i], st.overlays[i+1:]...)
			return nil
		}
	}
	return coreerr.NoSuchOverlay
}

// RemoveConceal drops a single conceal by handle, releasing its markers.
func (s *Store) RemoveConceal(namespace string, h Handle) error {
	st, ok := s.ns[namespace]
	if !ok {
		return coreerr.NoSuchOverlay
	}
	for i, c := range st.conceals {
		if c.Handle == h {
			s.tree.Remove(c.start)
			s.tree.Remove(c.end)
			st.conceals = append(st.conceals[:i], st.conceals[i+1:]...)
			return nil
		}
	}
	return coreerr.NoSuchOverlay
}

// Overlays returns namespace's current overlays, in add order (draw order:
// namespaces queried by the caller in registration order, overlays within
// a namespace in the order they were added).
func (s *Store) Overlays(namespace string) []Overlay {
	st, ok := s.ns[namespace]
	if !ok {
		return nil
	}
	return append([]Overlay{}, st.overlays...)
}

// Conceals returns namespace's current conceal ranges.
func (s *Store) Conceals(namespace string) []Conceal {
	st, ok := s.ns[namespace]
	if !ok {
		return nil
	}
	return append([]Conceal{}, st.conceals...)
}

// AllConceals returns every conceal range across every namespace, for the
// view pipeline's concealment pass (spec §4.9 does not scope concealment
// to a single namespace at render time).
func (s *Store) AllConceals() []Conceal {
	var all []Conceal
	for _, st := range s.ns {
		all = append(all, st.conceals...)
	}
	return all
}

// AllOverlays returns every overlay across every namespace.
func (s *Store) AllOverlays() []Overlay {
	var all []Overlay
	for _, st := range s.ns {
		all = append(all, st.overlays...)
	}
	return all
}

// AllOverlaysOrdered returns every overlay across every namespace, in
// creation order. Namespaces live in a map, so AllOverlays alone has no
// stable order; the view pipeline needs one to break ties within a z
// (spec.md:49 "within a z, later overlays win").
func (s *Store) AllOverlaysOrdered() []Overlay {
	all := s.AllOverlays()
	sort.SliceStable(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	return all
}

// SweepCollapsed drops every overlay/conceal whose start and end markers
// have collapsed onto the same position, unless it was created with
// preserve_empty (spec.md:49 "auto-dropped when either marker collapses to
// zero length (unless preserve_empty)"; spec.md:51 "Lifecycle mirrors
// overlays"). Callers run this after the MarkerTree has already adjusted
// for a buffer edit (see pkg/state's buffer-notification wiring), mirroring
// how MarkerTree itself is adjusted on the same notification path.
func (s *Store) SweepCollapsed(tree *marker.Tree) {
	for _, st := range s.ns {
		st.overlays = sweepOverlays(tree, st.overlays)
		st.conceals = sweepConceals(tree, st.conceals)
	}
}

func sweepOverlays(tree *marker.Tree, overlays []Overlay) []Overlay {
	out := overlays[:0]
	for _, o := range overlays {
		if !o.PreserveEmpty && collapsed(tree, o.start, o.end) {
			tree.Remove(o.start)
			tree.Remove(o.end)
			continue
		}
		out = append(out, o)
	}
	return out
}

func sweepConceals(tree *marker.Tree, conceals []Conceal) []Conceal {
	out := conceals[:0]
	for _, c := range conceals {
		if !c.PreserveEmpty && collapsed(tree, c.start, c.end) {
			tree.Remove(c.start)
			tree.Remove(c.end)
			continue
		}
		out = append(out, c)
	}
	return out
}

func collapsed(tree *marker.Tree, start, end marker.ID) bool {
	s, _ := tree.PositionOf(start)
	e, _ := tree.PositionOf(end)
	return s == e
}

// Clone returns an independent copy of s anchored to tree (normally a
// Clone of s's own tree), for EventLog snapshots.
func (s *Store) Clone(tree *marker.Tree) *Store {
	ns := make(map[string]*namespaceState, len(s.ns))
	for k, v := range s.ns {
		ns[k] = &namespaceState{
			overlays:     append([]Overlay{}, v.overlays...),
			conceals:     append([]Conceal{}, v.conceals...),
			clearPending: v.clearPending,
		}
	}
	return &Store{tree: tree, ns: ns, nextSeq: s.nextSeq}
}
