package overlay

import (
	"testing"

	"github.com/coreseekdev/loom/pkg/marker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOverlayAndQuery(t *testing.T) {
	tree := marker.New()
	s := New(tree)
	h := s.AddOverlay("highlight", 2, 5, "bold", 0, false, false)
	overlays := s.Overlays("highlight")
	require.Len(t, overlays, 1)
	assert.Equal(t, h, overlays[0].Handle)
	start, end := overlays[0].Range(tree)
	assert.Equal(t, 2, start)
	assert.Equal(t, 5, end)
}

func TestOverlayTracksInsertViaMarkers(t *testing.T) {
	tree := marker.New()
	s := New(tree)
	s.AddOverlay("ns", 2, 5, "bold", 0, false, false)
	tree.AdjustInserted(0, 3) // insert 3 bytes before the overlay
	start, end := s.Overlays("ns")[0].Range(tree)
	assert.Equal(t, 5, start)
	assert.Equal(t, 8, end)
}

// TestClearNamespaceIsBufferedUntilAdd is the "atomic swap" semantics from
// spec §4.9: a reader between ClearNamespace and the next Add still sees
// the old entries.
func TestClearNamespaceIsBufferedUntilAdd(t *testing.T) {
	tree := marker.New()
	s := New(tree)
	s.AddOverlay("ns", 0, 1, "old", 0, false, false)

	s.ClearNamespace("ns")
	assert.Len(t, s.Overlays("ns"), 1, "old entries survive until the next add")

	s.AddOverlay("ns", 2, 3, "new", 0, false, false)
	overlays := s.Overlays("ns")
	require.Len(t, overlays, 1)
	assert.Equal(t, "new", overlays[0].Style)
}

func TestRemoveOverlay(t *testing.T) {
	tree := marker.New()
	s := New(tree)
	h := s.AddOverlay("ns", 0, 1, "x", 0, false, false)
	require.NoError(t, s.RemoveOverlay("ns", h))
	assert.Empty(t, s.Overlays("ns"))
}

func TestRemoveOverlayUnknownHandle(t *testing.T) {
	tree := marker.New()
	s := New(tree)
	s.AddOverlay("ns", 0, 1, "x", 0, false, false)
	err := s.RemoveOverlay("ns", Handle{})
	assert.Error(t, err)
}

func TestAddConcealWithCursorReveal(t *testing.T) {
	tree := marker.New()
	s := New(tree)
	h := s.AddConceal("md", 0, 2, ptr(""), true, false)
	conceals := s.Conceals("md")
	require.Len(t, conceals, 1)
	assert.Equal(t, h, conceals[0].Handle)
	assert.True(t, conceals[0].CursorReveal)
	assert.Equal(t, "", *conceals[0].Replacement)
}

func TestAllConcealsSpansNamespaces(t *testing.T) {
	tree := marker.New()
	s := New(tree)
	s.AddConceal("a", 0, 1, nil, false, false)
	s.AddConceal("b", 2, 3, nil, false, false)
	assert.Len(t, s.AllConceals(), 2)
}

// TestAllOverlaysOrderedIsDeterministicAcrossNamespaces ensures z-tie
// ordering doesn't depend on map iteration order over namespaces.
func TestAllOverlaysOrderedIsDeterministicAcrossNamespaces(t *testing.T) {
	tree := marker.New()
	s := New(tree)
	s.AddOverlay("a", 0, 1, "first", 0, false, false)
	s.AddOverlay("b", 0, 1, "second", 0, false, false)
	s.AddOverlay("a", 0, 1, "third", 0, false, false)

	ordered := s.AllOverlaysOrdered()
	require.Len(t, ordered, 3)
	assert.Equal(t, "first", ordered[0].Style)
	assert.Equal(t, "second", ordered[1].Style)
	assert.Equal(t, "third", ordered[2].Style)
}

// TestSweepCollapsedDropsZeroLengthOverlayUnlessPreserveEmpty is
// spec.md:49 "auto-dropped when either marker collapses to zero length
// (unless preserve_empty)".
func TestSweepCollapsedDropsZeroLengthOverlayUnlessPreserveEmpty(t *testing.T) {
	tree := marker.New()
	s := New(tree)
	s.AddOverlay("ns", 2, 4, "dies", 0, false, false)
	s.AddOverlay("ns", 2, 4, "lives", 0, false, true)

	tree.AdjustDeleted(2, 4) // both markers collapse onto byte 2

	s.SweepCollapsed(tree)
	overlays := s.Overlays("ns")
	require.Len(t, overlays, 1)
	assert.Equal(t, "lives", overlays[0].Style)
}

func ptr(s string) *string { return &s }
