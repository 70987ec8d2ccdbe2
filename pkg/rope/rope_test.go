package rope

import (
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndString(t *testing.T) {
	r := New("hello")
	assert.Equal(t, "hello", r.String())
	assert.Equal(t, 5, r.Len())

	e := Empty()
	assert.Equal(t, "", e.String())
	assert.Equal(t, 0, e.Len())
}

func TestInsertBasic(t *testing.T) {
	r := New("hello")
	r2, err := r.Insert(5, " world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", r2.String())
	// original is unchanged (persistence)
	assert.Equal(t, "hello", r.String())
}

func TestInsertAtStartAndMiddle(t *testing.T) {
	r := New("World")
	r2, err := r.Insert(0, "Hello ")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", r2.String())

	r3, err := r2.Insert(5, ",")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World", r3.String())
}

func TestDeleteBasic(t *testing.T) {
	r := New("Hello Beautiful World")
	r2, err := r.Delete(5, 16)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", r2.String())
}

func TestDeleteAcrossLines(t *testing.T) {
	// S4 from spec §8.
	r := New("line1\nline2\nline3")
	r2, err := r.Delete(3, 13)
	require.NoError(t, err)
	assert.Equal(t, "linine3", r2.String())
}

func TestSliceOutOfRange(t *testing.T) {
	r := New("hello")
	_, err := r.Slice(0, 10)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestInsertInvalidBoundary(t *testing.T) {
	r := New("héllo") // 'é' is two bytes
	// byte 2 is the continuation byte of 'é'
	_, err := r.Insert(2, "X")
	assert.ErrorIs(t, err, ErrInvalidBoundary)
}

func TestDeleteInvalidBoundary(t *testing.T) {
	r := New("héllo")
	_, err := r.Delete(1, 2)
	assert.ErrorIs(t, err, ErrInvalidBoundary)
}

func TestGapInsertBeyondEnd(t *testing.T) {
	r := New("ab")
	r2, err := r.InsertWithGapFill(5, "cd", 'X')
	require.NoError(t, err)
	assert.Equal(t, "abXXXcd", r2.String())
	assert.Equal(t, 7, r2.Len())
}

func TestSuccessiveGapInserts(t *testing.T) {
	// Two successive gap-extending inserts with the same fill byte each pad
	// with their own gap, and the text between the two gaps stays in place.
	r2 := New("a")
	r3, err := r2.InsertWithGapFill(3, "b", '0')
	require.NoError(t, err)
	r4, err := r3.InsertWithGapFill(6, "c", '0')
	require.NoError(t, err)
	assert.Equal(t, "a00b00c", r4.String())
}

func TestByteAt(t *testing.T) {
	r := New("abc")
	b, err := r.ByteAt(1)
	require.NoError(t, err)
	assert.Equal(t, byte('b'), b)

	_, err = r.ByteAt(3)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestCharBoundary(t *testing.T) {
	r := New("héllo")
	assert.Equal(t, 1, r.CharBoundaryBefore(2))
	assert.Equal(t, 3, r.CharBoundaryAfter(2))
}

func TestConcat(t *testing.T) {
	a := New("foo")
	b := New("bar")
	c := a.Concat(b)
	assert.Equal(t, "foobar", c.String())
}

// TestInsertDeleteRoundTrip is invariant #1 from spec §8: for any sequence
// of inserts/deletes applied to an empty buffer, Slice(0, Len()) equals the
// net inserted bytes.
func TestInsertDeleteRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := Empty()
	var model []byte

	for i := 0; i < 500; i++ {
		if len(model) == 0 || rng.Intn(2) == 0 {
			pos := rng.Intn(len(model) + 1)
			text := string(rune('a' + rng.Intn(26)))
			nr, err := r.Insert(pos, text)
			require.NoError(t, err)
			r = nr
			model = append(model[:pos], append([]byte(text), model[pos:]...)...)
		} else {
			pos := rng.Intn(len(model))
			end := pos + 1
			nr, err := r.Delete(pos, end)
			require.NoError(t, err)
			r = nr
			model = append(model[:pos], model[end:]...)
		}
	}

	assert.Equal(t, string(model), r.String())
	s, err := r.Slice(0, r.Len())
	require.NoError(t, err)
	assert.Equal(t, string(model), s)
}

func TestFromReader(t *testing.T) {
	src := "line one\nline two\nline three\n"
	r, err := FromReader(stringReader(src))
	require.NoError(t, err)
	assert.Equal(t, src, r.String())
}

type stringReaderT struct {
	s   string
	pos int
}

func stringReader(s string) *stringReaderT { return &stringReaderT{s: s} }

func (r *stringReaderT) Read(p []byte) (int, error) {
	if r.pos >= len(r.s) {
		return 0, io.EOF
	}
	n := copy(p, r.s[r.pos:])
	r.pos += n
	return n, nil
}
