package rope

import (
	"bufio"
	"io"
)

// FromReader reads content from an io.Reader and builds a Rope, without
// requiring the whole input to be buffered by the caller first. Useful for
// loading large files: Buffer.Load streams through this instead of reading
// the entire file into one string up front.
func FromReader(r io.Reader) (*Rope, error) {
	b := NewBuilder()
	br := bufio.NewReaderSize(r, stagingSize)
	buf := make([]byte, stagingSize)
	for {
		n, err := br.Read(buf)
		if n > 0 {
			b.Append(string(buf[:n]))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}
