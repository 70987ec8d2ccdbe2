// Package coreerr defines the typed error kinds shared across the core
// packages (rope, buffer, cursor, marker, eventlog, overlay, state).
//
// User-facing errors (invalid boundary, out of range, exhausted undo) are
// recoverable: the operation fails, state is unchanged, and one of these
// sentinels propagates to the caller via errors.Is/errors.As. Invariant
// violations inside the core itself are a different matter entirely and are
// not modeled here — those are fatal and panic rather than return an error.
package coreerr

import "errors"

// Sentinel errors. Wrap with fmt.Errorf("%w: ...", coreerr.OutOfRange) to
// add call-site detail while keeping errors.Is matching intact.
var (
	// InvalidBoundary: a rope operation split a UTF-8 code point.
	InvalidBoundary = errors.New("invalid utf-8 boundary")

	// OutOfRange: a position is beyond the buffer length, or a line is
	// beyond the line count.
	OutOfRange = errors.New("position out of range")

	// NoSuchCursor: the cursor id is stale or was never created.
	NoSuchCursor = errors.New("no such cursor")

	// NoSuchMarker: the marker id is stale or was never created.
	NoSuchMarker = errors.New("no such marker")

	// NoSuchOverlay: the overlay/conceal handle is stale or was never
	// created.
	NoSuchOverlay = errors.New("no such overlay")

	// UndoExhausted: the log cursor is already at the oldest event.
	UndoExhausted = errors.New("undo exhausted")

	// RedoExhausted: the log cursor is already at the newest event.
	RedoExhausted = errors.New("redo exhausted")

	// IoFailure: a file read/write failed; wraps the underlying OS error.
	IoFailure = errors.New("io failure")

	// Conflict: a transformer submitted tokens whose mapping references
	// non-existent source bytes.
	Conflict = errors.New("view transform conflict")
)
