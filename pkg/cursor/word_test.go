package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextWordStart(t *testing.T) {
	text := "hello world  foo"
	assert.Equal(t, 6, NextWordStart(text, 0))
	assert.Equal(t, 6, NextWordStart(text, 3))
	assert.Equal(t, 13, NextWordStart(text, 6))
	assert.Equal(t, 13, NextWordStart(text, 11))
	assert.Equal(t, len(text), NextWordStart(text, 13))
	assert.Equal(t, len(text), NextWordStart(text, len(text)))
}

func TestPrevWordStart(t *testing.T) {
	text := "hello world  foo"
	assert.Equal(t, 0, PrevWordStart(text, 0))
	assert.Equal(t, 0, PrevWordStart(text, 3))
	assert.Equal(t, 0, PrevWordStart(text, 5))
	assert.Equal(t, 6, PrevWordStart(text, 9))
	assert.Equal(t, 6, PrevWordStart(text, 13))
	assert.Equal(t, 13, PrevWordStart(text, 15))
}

func TestNextWordEnd(t *testing.T) {
	text := "hello world  foo"
	assert.Equal(t, 5, NextWordEnd(text, 0))
	assert.Equal(t, 5, NextWordEnd(text, 4))
	assert.Equal(t, 11, NextWordEnd(text, 5))
	assert.Equal(t, 11, NextWordEnd(text, 9))
	assert.Equal(t, len(text), NextWordEnd(text, 13))
}

func TestWordMotionWithPunctuation(t *testing.T) {
	text := "foo, bar."
	// uax29 splits punctuation into its own run, so the next word start
	// after "foo" is the comma's run, not "bar".
	start := NextWordStart(text, 0)
	assert.True(t, start >= 3 && start < len(text))
}

func TestIsSpaceRun(t *testing.T) {
	assert.True(t, isSpaceRun([]byte("   ")))
	assert.True(t, isSpaceRun([]byte("\t\n")))
	assert.False(t, isSpaceRun([]byte("a ")))
	assert.False(t, isSpaceRun([]byte("")))
}

func TestWordMotionEmptyText(t *testing.T) {
	assert.Equal(t, 0, NextWordStart("", 0))
	assert.Equal(t, 0, PrevWordStart("", 0))
	assert.Equal(t, 0, NextWordEnd("", 0))
}
