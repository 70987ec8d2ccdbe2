package cursor

import (
	"testing"

	"github.com/coreseekdev/loom/pkg/marker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetSingleCollapsedCursor(t *testing.T) {
	tree := marker.New()
	s := NewSet(tree, 5)
	require.Equal(t, 1, s.Len())
	c := s.Primary()
	head, anchor, hasSel := c.Positions(tree)
	assert.Equal(t, 5, head)
	assert.Equal(t, 5, anchor)
	assert.False(t, hasSel)
	assert.True(t, c.IsCollapsed())
}

func TestAddNonOverlappingCursor(t *testing.T) {
	tree := marker.New()
	s := NewSet(tree, 0)
	id2 := s.Add(10, nil)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, id2, s.PrimaryID())
	all := s.All()
	assert.Equal(t, 0, all[0].From(tree))
	assert.Equal(t, 10, all[1].From(tree))
}

// TestAddOverlappingCursorMerges is spec §8 invariant 7: no two cursors
// overlap after Add+Normalize.
func TestAddOverlappingCursorMerges(t *testing.T) {
	tree := marker.New()
	s := NewSet(tree, 0) // unrelated collapsed cursor at 0, stays separate
	anchor := 2
	s.Add(8, &anchor) // selection [2,8)

	other := 5
	s.Add(12, &other) // selection [5,12), overlaps [2,8)

	// The unrelated cursor at 0 survives; the two overlapping selections
	// collapse into one (spec §8 invariant 7: no two cursors overlap).
	require.Equal(t, 2, s.Len())
	all := s.All()
	var merged Cursor
	for _, c := range all {
		if c.From(tree) == 2 {
			merged = c
		}
	}
	assert.Equal(t, 2, merged.From(tree))
	assert.Equal(t, 12, merged.To(tree))
}

func TestNormalizeSortsByPosition(t *testing.T) {
	tree := marker.New()
	s := NewSet(tree, 20)
	s.Add(5, nil)
	s.Add(10, nil)
	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, 5, all[0].From(tree))
	assert.Equal(t, 10, all[1].From(tree))
	assert.Equal(t, 20, all[2].From(tree))
}

func TestRemoveCursor(t *testing.T) {
	tree := marker.New()
	s := NewSet(tree, 0)
	id2 := s.Add(10, nil)
	s.Remove(id2)
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get(id2)
	assert.False(t, ok)
}

func TestRemoveSecondaryCollapsesToPrimary(t *testing.T) {
	tree := marker.New()
	s := NewSet(tree, 0)
	s.Add(10, nil)
	s.Add(20, nil)
	primary := s.PrimaryID()
	s.RemoveSecondary()
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, primary, s.PrimaryID())
}

func TestSetPrimary(t *testing.T) {
	tree := marker.New()
	s := NewSet(tree, 0)
	id2 := s.Add(10, nil)
	s.SetPrimary(id2)
	assert.Equal(t, id2, s.PrimaryID())
}

func TestMapAdvancesAllCursors(t *testing.T) {
	tree := marker.New()
	s := NewSet(tree, 0)
	s.Add(10, nil)
	s.Map(func(c Cursor) Cursor {
		head, _ := tree.PositionOf(c.Head)
		tree.Remove(c.Head)
		c.Head = tree.Create(head+1, marker.GravityLeft)
		return c
	})
	all := s.All()
	assert.Equal(t, 1, all[0].From(tree))
	assert.Equal(t, 11, all[1].From(tree))
}

func TestIdenticalCollapsedCursorsMergeToOne(t *testing.T) {
	tree := marker.New()
	s := NewSet(tree, 4)
	s.Add(4, nil)
	assert.Equal(t, 1, s.Len())
}
