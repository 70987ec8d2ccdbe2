// Package viewpipe implements the view pipeline of spec §4.9: it turns a
// byte range of a Buffer into a token stream a renderer can draw, running
// it through an optional Transformer and the built-in concealment/wrap
// passes.
//
// The Transformer seam is grounded on the teacher's pkg/weave/engine.go
// AIWeaver: a single pluggable collaborator the core calls out to and
// silently falls back to identity behavior when none is registered
// (AIWeaver.enabled there, "Identity pipeline" here). Tab/wide-rune
// expansion reuses pkg/viewport's golang.org/x/text/width-based
// VisualWidth.
package viewpipe

import (
	"fmt"
	"sort"

	"github.com/coreseekdev/loom/internal/coreerr"
	"github.com/coreseekdev/loom/pkg/buffer"
	"github.com/coreseekdev/loom/pkg/marker"
	"github.com/coreseekdev/loom/pkg/overlay"
	"github.com/coreseekdev/loom/pkg/viewport"
)

// ResolvedConceal is a conceal range with its marker positions already
// resolved to byte offsets (and lines), the form applyConceal operates on
// (the pipeline itself never touches a *marker.Tree directly).
type ResolvedConceal struct {
	Start, End       int
	StartLine, EndLine int
	Replacement      *string
	CursorReveal     bool
}

// ResolveConceals resolves every conceal in store against tree, and looks
// up each range's line span in b for the line-based cursor_reveal check
// (see applyConceal's doc comment for why reveal is line-scoped rather
// than byte-range-scoped).
func ResolveConceals(store *overlay.Store, tree *marker.Tree, b *buffer.Buffer) []ResolvedConceal {
	var out []ResolvedConceal
	for _, c := range store.AllConceals() {
		start, end := c.Range(tree)
		startLine, _, _ := b.ByteToLineCol(start)
		endLine, _, _ := b.ByteToLineCol(end)
		out = append(out, ResolvedConceal{
			Start: start, End: end,
			StartLine: startLine, EndLine: endLine,
			Replacement: c.Replacement, CursorReveal: c.CursorReveal,
		})
	}
	return out
}

// ResolvedOverlay is an overlay with its marker positions already resolved
// to byte offsets (and, per ExtendToLineEnd, stretched to its line's end),
// the form applyOverlay operates on.
type ResolvedOverlay struct {
	Start, End int
	Z          int
	Style      string
}

// ResolveOverlays resolves every overlay in store against tree, ordered by
// (z, creation order) ascending — the order applyOverlay paints in, so
// that within a z later overlays win and higher z wins over lower
// (spec.md:49 "Overlays layer onto the token stream by z; within a z,
// later overlays win"). ExtendToLineEnd stretches the resolved end to the
// byte offset just before that line's newline (or buffer end).
func ResolveOverlays(store *overlay.Store, tree *marker.Tree, b *buffer.Buffer) []ResolvedOverlay {
	all := store.AllOverlaysOrdered()
	out := make([]ResolvedOverlay, 0, len(all))
	for _, o := range all {
		start, end := o.Range(tree)
		if o.ExtendToLineEnd {
			if line, _, err := b.ByteToLineCol(end); err == nil {
				end = lineEndByte(b, line)
			}
		}
		out = append(out, ResolvedOverlay{Start: start, End: end, Z: o.Z, Style: o.Style})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Z < out[j].Z })
	return out
}

// lineEndByte returns the byte offset of line's trailing newline (or
// buffer end for the last line) — the point ExtendToLineEnd stretches to.
func lineEndByte(b *buffer.Buffer, line int) int {
	if next, err := b.LineColToByte(line+1, 0); err == nil {
		return next - 1
	}
	return b.Len()
}

// Kind tags a ViewToken's role in the rendered stream.
type Kind int

const (
	KindNewline Kind = iota
	KindText
	KindSpace
	KindBreak // soft-wrap point
)

// ViewToken is one unit of the rendered stream. Source is the originating
// byte offset, or nil for a synthetic token a transformer introduced
// (spec §4.9: "cursors cannot land on them; cursor backtracks to the
// nearest Some source byte"). Tokens are split at character boundaries,
// so each Text token holds exactly one rune and Source maps 1:1 to it —
// this is what spec calls the "per-character mapping".
type ViewToken struct {
	Kind   Kind
	Text   string
	Source *int
	Style  string // resolved overlay style covering this token, "" if none
}

func srcToken(kind Kind, text string, pos int) ViewToken {
	p := pos
	return ViewToken{Kind: kind, Text: text, Source: &p}
}

// BaseTokens emits the base token stream for buffer bytes [start,end):
// one Newline token per '\n', one Text token per rune of printable runs,
// and one or more Space tokens per expandable-whitespace character
// (a tab expands to the number of Space tokens that reach the next
// multiple of 8 visual columns).
func BaseTokens(b *buffer.Buffer, start, end int) ([]ViewToken, error) {
	text, err := b.Slice(start, end)
	if err != nil {
		return nil, err
	}
	var tokens []ViewToken
	col := 0
	pos := start
	for _, r := range text {
		switch {
		case r == '\n':
			tokens = append(tokens, srcToken(KindNewline, "\n", pos))
			col = 0
		case r == '\t':
			width := 8 - col%8
			for i := 0; i < width; i++ {
				tokens = append(tokens, srcToken(KindSpace, " ", pos))
			}
			col += width
		default:
			tokens = append(tokens, srcToken(KindText, string(r), pos))
			col += viewport.VisualWidth(r)
		}
		pos += len(string(r))
	}
	return tokens, nil
}

// ViewportMeta carries the viewport state a Transformer may need.
type ViewportMeta struct {
	TopByte      int
	ComposeWidth int
	Height       int
}

// Transformer rewrites a base token stream, e.g. to syntax-highlight,
// hide markup, or substitute display glyphs (spec §4.9 "Transformer
// invocation"). Implementations MAY drop source-mapped tokens, insert
// synthetic tokens with a nil Source, rewrite a token's Text while
// keeping its Source, or emit KindBreak tokens to override the built-in
// wrap policy.
type Transformer interface {
	Transform(tokens []ViewToken, primaryCursor int, secondaryCursors []int, meta ViewportMeta) ([]ViewToken, error)
}

// IdentityTransformer passes tokens through unchanged; it's what the
// pipeline uses when no Transformer is registered (spec §4.9
// "Identity... With no transformer registered, the pipeline passes base
// tokens through unchanged").
type IdentityTransformer struct{}

func (IdentityTransformer) Transform(tokens []ViewToken, _ int, _ []int, _ ViewportMeta) ([]ViewToken, error) {
	return tokens, nil
}

// Frame is one produced token stream, stamped with the viewport state it
// was built for so a renderer can detect staleness (spec §4.9
// "Stale-frame policy").
type Frame struct {
	Tokens  []ViewToken
	TopByte int
}

// Stale reports whether f was built for a different top_byte than
// currentTopByte, meaning a renderer comparing against the live viewport
// must suppress it rather than draw pre-transform content.
func (f Frame) Stale(currentTopByte int) bool {
	return f.TopByte != currentTopByte
}

// Pipeline runs the base stream through an (optional) Transformer, then
// concealment, then wrapping.
type Pipeline struct {
	Transformer  Transformer
	ComposeWidth int
}

// New returns a Pipeline with the identity transformer.
func New(composeWidth int) *Pipeline {
	return &Pipeline{Transformer: IdentityTransformer{}, ComposeWidth: composeWidth}
}

// Render produces one Frame for buffer bytes [start,end). conceals and
// overlays are already resolved to byte ranges (see ResolveConceals,
// ResolveOverlays) so Render has no direct dependency on pkg/overlay or
// pkg/marker.
func (p *Pipeline) Render(b *buffer.Buffer, start, end int, meta ViewportMeta, cursors []int, conceals []ResolvedConceal, overlays []ResolvedOverlay) (Frame, error) {
	base, err := BaseTokens(b, start, end)
	if err != nil {
		return Frame{}, err
	}

	transformer := p.Transformer
	if transformer == nil {
		transformer = IdentityTransformer{}
	}
	var primary int
	var secondary []int
	if len(cursors) > 0 {
		primary = cursors[0]
		secondary = cursors[1:]
	}
	tokens, err := transformer.Transform(base, primary, secondary, meta)
	if err != nil {
		return Frame{}, fmt.Errorf("viewpipe: %w: %v", coreerr.Conflict, err)
	}
	if err := validateMapping(tokens, b.Len()); err != nil {
		// Transformer conflicts fall back to identity for this frame
		// (spec §7 policy).
		tokens = base
	}

	cursorLines := make([]int, 0, len(cursors))
	for _, c := range cursors {
		line, _, err := b.ByteToLineCol(c)
		if err == nil {
			cursorLines = append(cursorLines, line)
		}
	}
	tokens = applyConceal(tokens, conceals, cursorLines)
	tokens = applyOverlay(tokens, overlays)

	if !hasBreaks(tokens) {
		tokens = wrap(tokens, p.ComposeWidth)
	}

	return Frame{Tokens: tokens, TopByte: meta.TopByte}, nil
}

func validateMapping(tokens []ViewToken, bufLen int) error {
	for _, t := range tokens {
		if t.Source != nil && (*t.Source < 0 || *t.Source > bufLen) {
			return coreerr.Conflict
		}
	}
	return nil
}

func hasBreaks(tokens []ViewToken) bool {
	for _, t := range tokens {
		if t.Kind == KindBreak {
			return true
		}
	}
	return false
}

// applyConceal replaces tokens whose Source falls within a conceal range
// with that range's replacement text (or drops them if Replacement is
// nil), unless cursor_reveal is set and a cursor sits on a line the range
// spans (spec §4.9 "Concealment", invariant 8 of spec §8). Reveal is
// line-scoped rather than byte-range-scoped, matching how cursor-reveal
// concealment behaves in the pack's terminal editors (kisielk-vigo's view
// model operates a line at a time): scenario S5 places the cursor inside
// the concealed span's visible content, not on the delimiter bytes
// themselves, and still expects the delimiters revealed — so "inside"
// means "on an affected line", not "within the literal delimiter range".
func applyConceal(tokens []ViewToken, conceals []ResolvedConceal, cursorLines []int) []ViewToken {
	if len(conceals) == 0 {
		return tokens
	}
	out := make([]ViewToken, 0, len(tokens))
	i := 0
	for i < len(tokens) {
		t := tokens[i]
		rng, revealed := concealing(t, conceals, cursorLines)
		if rng == nil {
			out = append(out, t)
			i++
			continue
		}
		if revealed {
			out = append(out, t)
			i++
			continue
		}
		// Collapse every subsequent token whose Source falls in the same
		// range into one replacement token, preserving the first token's
		// Source as the representative mapping.
		start := t.Source
		j := i
		for j < len(tokens) && inRange(tokens[j].Source, rng) {
			j++
		}
		if rng.Replacement != nil {
			out = append(out, ViewToken{Kind: KindText, Text: *rng.Replacement, Source: start})
		}
		i = j
	}
	return out
}

func concealing(t ViewToken, conceals []ResolvedConceal, cursorLines []int) (*ResolvedConceal, bool) {
	if t.Source == nil {
		return nil, false
	}
	for idx := range conceals {
		c := &conceals[idx]
		if *t.Source >= c.Start && *t.Source < c.End {
			if c.CursorReveal {
				for _, line := range cursorLines {
					if line >= c.StartLine && line <= c.EndLine {
						return c, true
					}
				}
			}
			return c, false
		}
	}
	return nil, false
}

// applyOverlay paints each surviving token's Style with the overlay
// covering its Source byte, scanning overlays in ResolveOverlays' (z,
// creation-order) sequence so each overlay overwrites the running style of
// every token it covers — the last one to touch a token wins, giving
// higher z (and later same-z overlays) the top layer (spec.md:49).
func applyOverlay(tokens []ViewToken, overlays []ResolvedOverlay) []ViewToken {
	if len(overlays) == 0 {
		return tokens
	}
	out := make([]ViewToken, len(tokens))
	copy(out, tokens)
	for _, ov := range overlays {
		for i := range out {
			src := out[i].Source
			if src != nil && *src >= ov.Start && *src < ov.End {
				out[i].Style = ov.Style
			}
		}
	}
	return out
}

func inRange(src *int, c *ResolvedConceal) bool {
	if src == nil {
		return false
	}
	return *src >= c.Start && *src < c.End
}

// wrap inserts KindBreak tokens at composeWidth, preferring a break at a
// Space token within a look-back window, falling back to a hard break
// (spec §4.9 "Wrapping").
func wrap(tokens []ViewToken, composeWidth int) []ViewToken {
	if composeWidth <= 0 {
		return tokens
	}
	const lookback = 8
	out := make([]ViewToken, 0, len(tokens)+len(tokens)/composeWidth)
	col := 0
	lastSpace := -1 // index in out of the most recent Space token on this line
	for _, t := range tokens {
		if t.Kind == KindNewline {
			out = append(out, t)
			col, lastSpace = 0, -1
			continue
		}
		if col >= composeWidth {
			if lastSpace >= 0 && len(out)-lastSpace <= lookback {
				out = insertAt(out, lastSpace+1, ViewToken{Kind: KindBreak})
				col = len(out) - (lastSpace + 2)
			} else {
				out = append(out, ViewToken{Kind: KindBreak})
				col = 0
			}
			lastSpace = -1
		}
		out = append(out, t)
		if t.Kind == KindSpace {
			lastSpace = len(out) - 1
		}
		col++
	}
	return out
}

// insertAt returns a new slice with v inserted before index i.
func insertAt(s []ViewToken, i int, v ViewToken) []ViewToken {
	out := make([]ViewToken, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	out = append(out, s[i:]...)
	return out
}

// ScreenLine is one rendered line's characters with their source mapping,
// produced by SourceScreenMap.
type ScreenLine struct {
	Chars  []string
	Source []*int // parallel to Chars; nil entries are synthetic
}

// SourceScreenMap splits a rendered token stream into screen lines at
// Newline/Break boundaries, producing the char_source array spec §4.9
// requires for cursor-position lookup, click-to-position, and
// synthetic-token-skipping arrow motion.
func SourceScreenMap(tokens []ViewToken) []ScreenLine {
	var lines []ScreenLine
	cur := ScreenLine{}
	for _, t := range tokens {
		switch t.Kind {
		case KindNewline, KindBreak:
			lines = append(lines, cur)
			cur = ScreenLine{}
		default:
			cur.Chars = append(cur.Chars, t.Text)
			cur.Source = append(cur.Source, t.Source)
		}
	}
	lines = append(lines, cur)
	return lines
}

// ScreenPositionOf returns the (line, col) of byte offset pos within the
// mapped screen lines, or ok=false if pos isn't represented (e.g.
// concealed away).
func ScreenPositionOf(lines []ScreenLine, pos int) (line, col int, ok bool) {
	for li, l := range lines {
		for ci, src := range l.Source {
			if src != nil && *src == pos {
				return li, ci, true
			}
		}
	}
	return 0, 0, false
}

// NearestSource finds the nearest non-nil source at or after index ci in
// screen line l, for arrow motion that must skip synthetic tokens.
func NearestSource(l ScreenLine, ci int) (int, bool) {
	for i := ci; i < len(l.Source); i++ {
		if l.Source[i] != nil {
			return *l.Source[i], true
		}
	}
	for i := ci - 1; i >= 0; i-- {
		if l.Source[i] != nil {
			return *l.Source[i], true
		}
	}
	return 0, false
}
