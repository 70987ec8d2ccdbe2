package cursor

import "github.com/clipperhouse/uax29/words"

// Word boundaries follow Unicode UAX #29 word-break semantics via
// clipperhouse/uax29/words, rather than the simpler
// letter-or-digit-or-underscore classifier an earlier approximation might
// use: uax29 already distinguishes whitespace, word, and punctuation runs,
// which is exactly the boundary rule spec §4.5 calls for.

// NextWordStart returns the byte offset of the start of the next word
// after pos in text, or len(text) if there is no further word.
func NextWordStart(text string, pos int) int {
	if pos >= len(text) {
		return len(text)
	}
	seg := words.NewSegmenter([]byte(text))
	offset := 0
	for seg.Next() {
		tok := seg.Bytes()
		start := offset
		end := offset + len(tok)
		offset = end
		if start <= pos {
			continue // run containing or before pos
		}
		if isSpaceRun(tok) {
			continue
		}
		return start
	}
	return len(text)
}

// PrevWordStart returns the byte offset of the start of the word containing
// or immediately before pos.
func PrevWordStart(text string, pos int) int {
	if pos <= 0 {
		return 0
	}
	seg := words.NewSegmenter([]byte(text))
	offset := 0
	lastWordStart := 0
	for seg.Next() {
		tok := seg.Bytes()
		start := offset
		end := offset + len(tok)
		offset = end
		if start >= pos {
			break
		}
		if !isSpaceRun(tok) {
			lastWordStart = start
		}
	}
	return lastWordStart
}

// NextWordEnd returns the byte offset just past the end of the word
// containing or following pos.
func NextWordEnd(text string, pos int) int {
	seg := words.NewSegmenter([]byte(text))
	offset := 0
	for seg.Next() {
		tok := seg.Bytes()
		start := offset
		end := offset + len(tok)
		offset = end
		if isSpaceRun(tok) {
			continue
		}
		if end > pos {
			return end
		}
	}
	return len(text)
}

func isSpaceRun(tok []byte) bool {
	for _, b := range tok {
		if b != ' ' && b != '\t' && b != '\n' && b != '\r' {
			return false
		}
	}
	return len(tok) > 0
}
