// Package lineindex maps between byte offsets and (line, column)
// coordinates.
//
// A LineIndex is an ordered sequence of byte offsets, one per line start,
// with offsets[0] always 0. For every newline byte at offset N in the
// backing rope, N+1 is in the sequence; the sequence is strictly
// increasing and len(offsets) == LineCount().
//
// The index is maintained incrementally: Insert/Delete splice the affected
// region of the offset slice rather than rescanning the whole document,
// per spec §4.2. This is the array form the spec explicitly permits
// ("MAY replace the backing array with a balanced tree... the interface is
// unchanged"); see DESIGN.md for why this rewrite keeps the array.
package lineindex

import "sort"

// LineIndex incrementally tracks line-start byte offsets for a document.
type LineIndex struct {
	offsets  []int                      // offsets[i] = byte offset of the first byte of line i
	frontier int                        // byte offset up to which offsets has been computed
	total    int                        // total document length, once known
	fetch    func(start, end int) string // nil for an eagerly-built index
}

// New builds a LineIndex by scanning all of text eagerly.
func New(text string) *LineIndex {
	li := &LineIndex{offsets: []int{0}}
	li.scanInto(text, 0)
	li.frontier = len(text)
	li.total = len(text)
	return li
}

// NewLazy returns a LineIndex that has not scanned any content yet, for use
// with a Buffer whose rope may be gigabytes large. LineOf and friends pull
// bytes from fetch as needed to extend the frontier to cover the query.
func NewLazy(total int, fetch func(start, end int) string) *LineIndex {
	li := &LineIndex{offsets: []int{0}, total: total}
	li.fetch = fetch
	return li
}

func (li *LineIndex) scanInto(text string, base int) {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			li.offsets = append(li.offsets, base+i+1)
		}
	}
}

// ensureFrontier advances the lazily-scanned frontier to at least upto,
// pulling bytes from the fetch callback. A no-op for an eagerly-built
// index or once the frontier already covers upto.
func (li *LineIndex) ensureFrontier(upto int) {
	if li.fetch == nil || li.frontier >= upto {
		return
	}
	if upto > li.total {
		upto = li.total
	}
	chunk := li.fetch(li.frontier, upto)
	li.scanInto(chunk, li.frontier)
	li.frontier = upto
}

// LineCount returns the number of lines in the document.
func (li *LineIndex) LineCount() int {
	li.ensureFrontier(li.total)
	return len(li.offsets)
}

// LineOf returns the 0-indexed line number containing byte offset b.
func (li *LineIndex) LineOf(b int) int {
	li.ensureFrontier(b + 1)
	// largest i such that offsets[i] <= b
	i := sort.Search(len(li.offsets), func(i int) bool { return li.offsets[i] > b })
	return i - 1
}

// StartOf returns the byte offset of the first byte of the given line.
func (li *LineIndex) StartOf(line int) int {
	li.ensureFrontier(li.total)
	if line < 0 || line >= len(li.offsets) {
		return -1
	}
	return li.offsets[line]
}

// EndOf returns the byte offset one past the last byte of the given line,
// not including its line terminator: StartOf(line+1)-1, or the document
// length for the last line.
func (li *LineIndex) EndOf(line int) int {
	li.ensureFrontier(li.total)
	if line < 0 || line >= len(li.offsets) {
		return -1
	}
	if line+1 < len(li.offsets) {
		return li.offsets[line+1] - 1
	}
	return li.total
}

// Insert updates the index to reflect bytes having been inserted at byte
// offset at. Offsets after the insertion point shift by len(text), and a
// line start is spliced in after every '\n' byte of text.
func (li *LineIndex) Insert(at int, text string) {
	li.ensureFrontier(at)
	li.total += len(text)

	lineAt := li.LineOf(at)
	// Shift every offset beyond the insertion point by len(text).
	shiftFrom := lineAt + 1
	for i := shiftFrom; i < len(li.offsets); i++ {
		li.offsets[i] += len(text)
	}
	li.frontier += len(text)

	// Splice in new line starts introduced by inserted text.
	var newOffsets []int
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			newOffsets = append(newOffsets, at+i+1)
		}
	}
	if len(newOffsets) == 0 {
		return
	}
	head := append([]int{}, li.offsets[:shiftFrom]...)
	tail := append([]int{}, li.offsets[shiftFrom:]...)
	li.offsets = append(head, append(newOffsets, tail...)...)
}

// Delete updates the index to reflect the half-open byte range
// [start, end) having been removed.
func (li *LineIndex) Delete(start, end int) {
	li.ensureFrontier(end)
	length := end - start
	li.total -= length

	kept := li.offsets[:1] // offsets[0] == 0 always survives
	for _, off := range li.offsets[1:] {
		switch {
		case off <= start:
			kept = append(kept, off)
		case off > end:
			kept = append(kept, off-length)
		default:
			// off falls inside the deleted range: the line start it
			// marked no longer exists.
		}
	}
	li.offsets = kept
	li.frontier -= length
}
