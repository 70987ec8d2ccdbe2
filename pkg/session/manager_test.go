package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreseekdev/loom/pkg/buffer"
)

func TestOpenGetClose(t *testing.T) {
	m := NewManager()
	ed, err := m.Open("doc-1", buffer.NewFromString("hello"), 80, 24)
	require.NoError(t, err)
	require.NotNil(t, ed)

	got, err := m.Get("doc-1")
	require.NoError(t, err)
	assert.Same(t, ed, got)

	assert.Equal(t, []string{"doc-1"}, m.List())

	require.NoError(t, m.Close("doc-1"))
	_, err = m.Get("doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenRejectsDuplicateID(t *testing.T) {
	m := NewManager()
	_, err := m.Open("doc-1", buffer.NewFromString(""), 80, 24)
	require.NoError(t, err)
	_, err = m.Open("doc-1", buffer.NewFromString(""), 80, 24)
	assert.ErrorIs(t, err, ErrExists)
}

func TestCloseUnknownID(t *testing.T) {
	m := NewManager()
	err := m.Close("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
