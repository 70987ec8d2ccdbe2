package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreseekdev/loom/pkg/buffer"
	"github.com/coreseekdev/loom/pkg/marker"
)

func TestVisualColumnOfExpandsTabs(t *testing.T) {
	b := buffer.NewFromString("a\tbb")
	col, err := VisualColumnOf(b, 4) // after "a\tbb"
	require.NoError(t, err)
	// 'a' -> col 1; '\t' -> col 8; "bb" -> col 10
	assert.Equal(t, 10, col)
}

func TestByteAtVisualColumnExactMatch(t *testing.T) {
	b := buffer.NewFromString("abcdef\nxy")
	pos, ok, err := ByteAtVisualColumn(b, 0, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, pos)
}

func TestByteAtVisualColumnClampsToEndOfShortLine(t *testing.T) {
	b := buffer.NewFromString("abcdef\nxy\nz")
	pos, ok, err := ByteAtVisualColumn(b, 1, 5) // line "xy" is only 2 cells wide
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 9, pos) // end of line 1, byte offset of '\n'
}

// TestVerticalTargetPreservesStickyColumnAcrossShortLines is spec §4.5:
// "If the target line is shorter than sticky_column, the cursor lands at
// end-of-line without updating sticky_column."
func TestVerticalTargetPreservesStickyColumnAcrossShortLines(t *testing.T) {
	b := buffer.NewFromString("abcdefgh\nxy\nabcdefgh")
	tree := marker.New()
	s := NewSet(tree, 5) // line 0, col 5
	id := s.PrimaryID()
	s.SetStickyColumn(id, 5)

	target, landedShort, err := VerticalTarget(b, s, id, 1) // line 0 -> line 1 ("xy")
	require.NoError(t, err)
	assert.True(t, landedShort)
	assert.Equal(t, 11, target) // end of "xy" (byte offset of its '\n')

	// A caller that doesn't update sticky column on landedShort can move
	// down again and still target column 5 on line 2.
	s.SetHead(id, target)
	target2, landedShort2, err := VerticalTarget(b, s, id, 1) // line 1 -> line 2
	require.NoError(t, err)
	assert.False(t, landedShort2)
	assert.Equal(t, 17, target2) // line 2 starts at byte 12, col 5 -> 17
}
