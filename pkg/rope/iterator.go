package rope

// ByteIterator exposes a lazy forward byte stream over a pinned rope
// version. It holds the rope snapshot it was created from (Insert/Delete
// never mutate that snapshot) and a staging buffer refilled by bulk Slice
// calls, so a full-document scan is O(bytes scanned) with one Slice call
// per stagingSize bytes rather than one ByteAt call per byte.
//
// Under concurrent edits, an iterator never observes later mutations: Rope
// is immutable, so pinning a *Rope is pinning a version. Callers that want
// EventLog garbage collection to reclaim old captured_text must call
// Close when done (see the eventlog package's low-water-mark accounting).
type ByteIterator struct {
	rope    *Rope
	pos     int // next byte to return
	staging []byte
	stageAt int // rope offset the staging buffer starts at
	onClose func()
	closed  bool
}

const stagingSize = 4096

// NewByteIterator returns an iterator starting at byte offset start.
func (r *Rope) NewByteIterator(start int) *ByteIterator {
	return &ByteIterator{rope: r, pos: start}
}

// NewByteIteratorWithClose is NewByteIterator but invokes onClose exactly
// once when Close is called, so a caller (e.g. the eventlog's GC) can track
// how many iterators still reference this rope version.
func (r *Rope) NewByteIteratorWithClose(start int, onClose func()) *ByteIterator {
	it := r.NewByteIterator(start)
	it.onClose = onClose
	return it
}

// HasNext reports whether another byte is available.
func (it *ByteIterator) HasNext() bool {
	return it.pos < it.rope.Len()
}

// Next returns the next byte and advances the iterator.
func (it *ByteIterator) Next() (byte, bool) {
	if !it.HasNext() {
		return 0, false
	}
	if it.pos < it.stageAt || it.pos >= it.stageAt+len(it.staging) {
		it.refill()
	}
	b := it.staging[it.pos-it.stageAt]
	it.pos++
	return b, true
}

func (it *ByteIterator) refill() {
	end := it.pos + stagingSize
	if end > it.rope.Len() {
		end = it.rope.Len()
	}
	s, err := it.rope.Slice(it.pos, end)
	if err != nil {
		// Fall back to a single byte at a time if a boundary check trips;
		// the staging buffer is an optimization, not a correctness path.
		b, _ := it.rope.ByteAt(it.pos)
		it.staging = []byte{b}
		it.stageAt = it.pos
		return
	}
	it.staging = []byte(s)
	it.stageAt = it.pos
}

// Position returns the iterator's current byte offset.
func (it *ByteIterator) Position() int { return it.pos }

// Close releases the iterator's hold on its pinned rope version.
func (it *ByteIterator) Close() {
	if it.closed {
		return
	}
	it.closed = true
	if it.onClose != nil {
		it.onClose()
	}
}
