package eventlog

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/coreseekdev/loom/pkg/event"
)

// wireEvent is the on-disk shape of one Event (spec §6 "Event
// serialization": "one compact record per line: kind tag, position(s),
// captured bytes (base64 for non-text), cursor ids"). Grounded on the
// teacher's `pkg/transport/protocol.go` `ProtocolMessage`/`OperationData`
// json-tagged wire structs — same "one struct, one json.Marshal call per
// line" shape, swapped from a WebSocket frame to a line in an append-only
// file. Text payloads are always base64 rather than conditionally so, to
// keep the struct shape uniform and avoid committing a raw string whose
// byte content happened to be mangled by JSON's own UTF-8 requirements.
type wireEvent struct {
	Kind      string      `json:"kind"`
	Pos       int         `json:"pos,omitempty"`
	End       int         `json:"end,omitempty"`
	Text      string      `json:"text,omitempty"` // base64
	Cursor    int         `json:"cursor,omitempty"`
	CursorID  int         `json:"cursor_id,omitempty"`
	OldPos    int         `json:"old_pos,omitempty"`
	NewPos    int         `json:"new_pos,omitempty"`
	Head      int         `json:"head,omitempty"`
	HasAnchor bool        `json:"has_anchor,omitempty"`
	Anchor    int         `json:"anchor,omitempty"`
	OldTop    int         `json:"old_top,omitempty"`
	NewTop    int         `json:"new_top,omitempty"`
	Label     string      `json:"label,omitempty"`
	Events    []wireEvent `json:"events,omitempty"`
}

var kindNames = map[event.Kind]string{
	event.KindInsert:       "insert",
	event.KindDelete:       "delete",
	event.KindAddCursor:    "add_cursor",
	event.KindRemoveCursor: "remove_cursor",
	event.KindMoveCursor:   "move_cursor",
	event.KindSetAnchor:    "set_anchor",
	event.KindScroll:       "scroll",
	event.KindBatch:        "batch",
}

var namesToKind = func() map[string]event.Kind {
	m := make(map[string]event.Kind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

func toWire(e event.Event) wireEvent {
	w := wireEvent{Kind: kindNames[e.Kind]}
	switch e.Kind {
	case event.KindInsert:
		w.Pos = e.InsertPos
		w.Text = base64.StdEncoding.EncodeToString([]byte(e.InsertText))
		w.Cursor = e.InsertCursor
	case event.KindDelete:
		w.Pos = e.DeleteStart
		w.End = e.DeleteEnd
		w.Text = base64.StdEncoding.EncodeToString([]byte(e.CapturedText))
		w.Cursor = e.DeleteCursor
	case event.KindAddCursor:
		w.Head = e.Spec.Head
		if e.Spec.Anchor != nil {
			w.HasAnchor = true
			w.Anchor = *e.Spec.Anchor
		}
	case event.KindRemoveCursor:
		w.CursorID = e.CursorID
	case event.KindMoveCursor:
		w.CursorID = e.CursorID
		w.OldPos = e.OldPos
		w.NewPos = e.NewPos
	case event.KindSetAnchor:
		w.CursorID = e.CursorID
		if e.Anchor != nil {
			w.HasAnchor = true
			w.Anchor = *e.Anchor
		}
	case event.KindScroll:
		w.OldTop = e.OldTop
		w.NewTop = e.NewTop
	case event.KindBatch:
		w.Label = e.Label
		w.Events = make([]wireEvent, len(e.Events))
		for i, sub := range e.Events {
			w.Events[i] = toWire(sub)
		}
	}
	return w
}

func fromWire(w wireEvent) (event.Event, error) {
	kind, ok := namesToKind[w.Kind]
	if !ok {
		return event.Event{}, fmt.Errorf("eventlog: unknown event kind %q", w.Kind)
	}
	switch kind {
	case event.KindInsert:
		text, err := base64.StdEncoding.DecodeString(w.Text)
		if err != nil {
			return event.Event{}, fmt.Errorf("eventlog: decode insert text: %w", err)
		}
		return event.NewInsert(w.Pos, string(text), w.Cursor), nil
	case event.KindDelete:
		text, err := base64.StdEncoding.DecodeString(w.Text)
		if err != nil {
			return event.Event{}, fmt.Errorf("eventlog: decode delete text: %w", err)
		}
		return event.NewDelete(w.Pos, w.End, string(text), w.Cursor), nil
	case event.KindAddCursor:
		var anchor *int
		if w.HasAnchor {
			a := w.Anchor
			anchor = &a
		}
		return event.NewAddCursor(event.CursorSpec{Head: w.Head, Anchor: anchor}), nil
	case event.KindRemoveCursor:
		return event.NewRemoveCursor(w.CursorID), nil
	case event.KindMoveCursor:
		return event.NewMoveCursor(w.CursorID, w.OldPos, w.NewPos), nil
	case event.KindSetAnchor:
		var anchor *int
		if w.HasAnchor {
			a := w.Anchor
			anchor = &a
		}
		return event.NewSetAnchor(w.CursorID, anchor), nil
	case event.KindScroll:
		return event.NewScroll(w.OldTop, w.NewTop), nil
	case event.KindBatch:
		subs := make([]event.Event, len(w.Events))
		for i, sw := range w.Events {
			sub, err := fromWire(sw)
			if err != nil {
				return event.Event{}, err
			}
			subs[i] = sub
		}
		return event.NewBatch(w.Label, subs...), nil
	}
	return event.Event{}, fmt.Errorf("eventlog: unhandled event kind %q", w.Kind)
}

// wireRecord pairs one LogEntry's own Label (assigned by whoever called
// State.Record, e.g. "type"/"delete-selection") with its serialized Event.
// wireEvent's own Label field is a different thing — a Batch event's
// internal label — so the two must travel separately rather than sharing
// one JSON key.
type wireRecord struct {
	RecordLabel string `json:"record_label,omitempty"`
	wireEvent
}

// Record is one deserialized log entry: an Event plus the label it was
// originally recorded under.
type Record struct {
	Label string
	Event event.Event
}

// WriteLog serializes entries as one JSON record per line. Replaying these
// lines against an empty buffer MUST reproduce the saved state byte-exactly
// (spec §6 "Event serialization").
func WriteLog(w io.Writer, entries []LogEntry) error {
	enc := json.NewEncoder(w)
	for _, e := range entries {
		rec := wireRecord{RecordLabel: e.Label, wireEvent: toWire(e.Event)}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("eventlog: write entry %d: %w", e.ID, err)
		}
	}
	return nil
}

// ReadLog parses a line-delimited event log previously written by
// WriteLog, in order.
func ReadLog(r io.Reader) ([]Record, error) {
	var out []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var w wireRecord
		if err := json.Unmarshal(line, &w); err != nil {
			return nil, fmt.Errorf("eventlog: parse line: %w", err)
		}
		e, err := fromWire(w.wireEvent)
		if err != nil {
			return nil, err
		}
		out = append(out, Record{Label: w.RecordLabel, Event: e})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: scan: %w", err)
	}
	return out, nil
}
