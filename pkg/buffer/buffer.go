// Package buffer combines a Rope, a LineIndex, and the origin file path
// into one mutable-by-replacement document, and fans out change
// notifications to registered listeners (MarkerTree, Viewport, the overlay
// layer, external highlighters/LSP clients).
package buffer

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/coreseekdev/loom/internal/coreerr"
	"github.com/coreseekdev/loom/pkg/lineindex"
	"github.com/coreseekdev/loom/pkg/rope"
)

// NotificationKind tags what happened to the buffer.
type NotificationKind int

const (
	KindInserted NotificationKind = iota
	KindDeleted
)

// Notification describes one change to the buffer's contents, delivered
// synchronously to every Listener in registration order (spec §5:
// "Notifications are delivered to subscribers in registration order,
// synchronously during apply").
type Notification struct {
	Kind  NotificationKind
	Start int
	End   int // End == Start for Inserted (Start is the insertion point)
	Bytes string
}

// Listener receives buffer notifications. MarkerTree is always registered
// first by the owning State, so markers observe every edit before anything
// downstream does (spec §4.7).
type Listener func(Notification)

// Buffer is a persistent rope plus its derived line index and origin path.
// Every mutator returns an error rather than mutating in place when the
// rope itself would; Buffer's version is only ever advanced by a
// successful Insert/Delete (Load returns a new Buffer at version 0).
type Buffer struct {
	rope     *rope.Rope
	lines    *lineindex.LineIndex
	path     string
	modified bool
	version  uint64 // bumped on every successful mutation; feeds GC low water mark

	listeners []Listener
}

// New returns an empty, unmodified Buffer with no origin path.
func New() *Buffer {
	b := &Buffer{rope: rope.Empty()}
	b.lines = lineindex.NewLazy(b.rope.Len(), b.fetch)
	return b
}

// NewFromString returns a Buffer seeded with text and no origin path.
func NewFromString(text string) *Buffer {
	b := &Buffer{rope: rope.New(text)}
	b.lines = lineindex.NewLazy(b.rope.Len(), b.fetch)
	return b
}

// fetch pulls bytes [start,end) from the current rope, for LineIndex's
// lazy frontier materialization.
func (b *Buffer) fetch(start, end int) string {
	s, err := b.rope.Slice(start, end)
	if err != nil {
		return ""
	}
	return s
}

// Subscribe registers l to receive future notifications; returns an
// unsubscribe handle.
func (b *Buffer) Subscribe(l Listener) (unsubscribe func()) {
	b.listeners = append(b.listeners, l)
	idx := len(b.listeners) - 1
	return func() {
		if idx < len(b.listeners) {
			b.listeners[idx] = nil
		}
	}
}

func (b *Buffer) notify(n Notification) {
	for _, l := range b.listeners {
		if l != nil {
			l(n)
		}
	}
}

// Len returns the buffer's length in bytes.
func (b *Buffer) Len() int { return b.rope.Len() }

// String returns the full buffer contents.
func (b *Buffer) String() string { return b.rope.String() }

// Slice returns bytes [start,end). Streams large ranges via the rope's own
// Slice, which is O(log n + k).
func (b *Buffer) Slice(start, end int) (string, error) {
	s, err := b.rope.Slice(start, end)
	if err != nil {
		return "", err
	}
	return s, nil
}

// Path returns the buffer's origin file path, or "" if it was never loaded
// from or saved to disk.
func (b *Buffer) Path() string { return b.path }

// Modified reports whether the buffer has unsaved changes.
func (b *Buffer) Modified() bool { return b.modified }

// Version returns the buffer's rope version counter; used by the event log
// GC low water mark (spec §4.6, §5 "Shared resources").
func (b *Buffer) Version() uint64 { return b.version }

// Insert splits text in at pos, emitting a KindInserted notification on
// success.
func (b *Buffer) Insert(pos int, text string) error {
	next, err := b.rope.Insert(pos, text)
	if err != nil {
		return err
	}
	b.lines.Insert(pos, text)
	b.swap(next)
	b.notify(Notification{Kind: KindInserted, Start: pos, End: pos, Bytes: text})
	return nil
}

// Delete removes bytes [start,end), emitting a KindDeleted notification
// carrying the removed bytes (needed by the caller to build an invertible
// Delete event).
func (b *Buffer) Delete(start, end int) (removed string, err error) {
	if start < 0 || end > b.rope.Len() || start > end {
		return "", fmt.Errorf("buffer: delete [%d,%d): %w", start, end, coreerr.OutOfRange)
	}
	removed, err = b.rope.Slice(start, end)
	if err != nil {
		return "", err
	}
	next, err := b.rope.Delete(start, end)
	if err != nil {
		return "", err
	}
	b.lines.Delete(start, end)
	b.swap(next)
	b.notify(Notification{Kind: KindDeleted, Start: start, End: end, Bytes: removed})
	return removed, nil
}

func (b *Buffer) swap(next *rope.Rope) {
	b.rope = next
	b.version++
	b.modified = true
}

// Clone returns an independent Buffer with the same content, path, and
// modified/version state but no subscribers: the rope itself is persistent
// so sharing the pointer is safe (future mutation on either buffer swaps in
// a new rope rather than mutating the shared one), but the line index
// mutates in place and listeners are wiring concerns the clone's owner
// re-establishes itself. Used by pkg/state's EventLog snapshots.
func (b *Buffer) Clone() *Buffer {
	nb := &Buffer{rope: b.rope, path: b.path, modified: b.modified, version: b.version}
	nb.lines = lineindex.NewLazy(nb.rope.Len(), nb.fetch)
	return nb
}

// LineCount returns the number of lines in the buffer.
func (b *Buffer) LineCount() int { return b.lines.LineCount() }

// ByteToLineCol converts a byte offset to (line, col), both 0-indexed.
func (b *Buffer) ByteToLineCol(pos int) (line, col int, err error) {
	if pos < 0 || pos > b.rope.Len() {
		return 0, 0, fmt.Errorf("buffer: byte %d: %w", pos, coreerr.OutOfRange)
	}
	line = b.lines.LineOf(pos)
	start := b.lines.StartOf(line)
	return line, pos - start, nil
}

// LineColToByte converts (line, col) to a byte offset.
func (b *Buffer) LineColToByte(line, col int) (int, error) {
	start := b.lines.StartOf(line)
	if start < 0 {
		return 0, fmt.Errorf("buffer: line %d: %w", line, coreerr.OutOfRange)
	}
	return start + col, nil
}

// Load returns a new Buffer holding the file at path, with path as its
// origin. The rope is built by rope.FromReader, which streams the file in
// and stores it as a run of leaves of about 4096 bytes each, not as a
// single leaf; the line index is materialized lazily on first query
// (spec §4.3).
func Load(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("buffer: load %s: %w", path, joinIo(err))
	}
	defer f.Close()

	r, err := rope.FromReader(f)
	if err != nil {
		return nil, fmt.Errorf("buffer: load %s: %w", path, err)
	}
	b := &Buffer{
		rope: r,
		path: path,
	}
	b.lines = lineindex.NewLazy(b.rope.Len(), b.fetch)
	return b, nil
}

// Save streams the rope to disk atomically: write to a temp file in the
// same directory, fsync, then rename over the destination. Clears the
// modified flag on success.
func (b *Buffer) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".loom-save-*")
	if err != nil {
		return fmt.Errorf("buffer: save %s: %w", path, joinIo(err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	it := b.rope.NewByteIterator(0)
	chunk := make([]byte, 0, 4096)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		_, err := tmp.Write(chunk)
		chunk = chunk[:0]
		return err
	}
	for it.HasNext() {
		bt, ok := it.Next()
		if !ok {
			break
		}
		chunk = append(chunk, bt)
		if len(chunk) == cap(chunk) {
			if err := flush(); err != nil {
				tmp.Close()
				return fmt.Errorf("buffer: save %s: %w", path, joinIo(err))
			}
		}
	}
	if err := flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("buffer: save %s: %w", path, joinIo(err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("buffer: save %s: %w", path, joinIo(err))
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("buffer: save %s: %w", path, joinIo(err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("buffer: save %s: %w", path, joinIo(err))
	}
	b.path = path
	b.modified = false
	log.Printf("buffer: saved %d bytes to %s", b.rope.Len(), path)
	return nil
}

func joinIo(err error) error {
	return fmt.Errorf("%w: %v", coreerr.IoFailure, err)
}

// ReloadExternal reconciles the buffer with a new on-disk revision of the
// same file that was changed by an external process (not through this
// Buffer's own Insert/Delete): it computes a byte-level diff between the
// buffer's current content and newContent using go-diff, then applies the
// resulting insert/delete spans through the buffer's normal mutators so
// markers and cursors adjust exactly as they would for a local edit,
// rather than discarding them via a wholesale content replacement.
func (b *Buffer) ReloadExternal(newContent string) error {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(b.String(), newContent, false)

	pos := 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			pos += len(d.Text)
		case diffmatchpatch.DiffDelete:
			if _, err := b.Delete(pos, pos+len(d.Text)); err != nil {
				return err
			}
		case diffmatchpatch.DiffInsert:
			if err := b.Insert(pos, d.Text); err != nil {
				return err
			}
			pos += len(d.Text)
		}
	}
	return nil
}
