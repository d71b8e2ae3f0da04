package translate

import (
	"bytes"
	"io"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 16384

// LineReader reassembles newline-delimited logical lines from a byte
// stream that arrives in arbitrary chunk boundaries. It consumes the
// underlying reader in fixed-size reads and never buffers more than the
// current partial line plus one read chunk.
type LineReader struct {
	r       io.Reader
	chunk   []byte
	pending []byte
	queue   [][]byte
	err     error
}

// NewLineReader wraps r with a reader yielding complete lines. chunkSize
// controls the size of each physical read.
func NewLineReader(r io.Reader, chunkSize int) *LineReader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &LineReader{
		r:     r,
		chunk: make([]byte, chunkSize),
	}
}

// Next returns the next complete line with its trailing newline removed.
// It returns io.EOF once the stream is exhausted; bytes after the final
// newline are dropped, matching the backend contract that a fragment is
// always newline-terminated.
func (lr *LineReader) Next() ([]byte, error) {
	for {
		if len(lr.queue) > 0 {
			line := lr.queue[0]
			lr.queue = lr.queue[1:]
			return line, nil
		}
		if lr.err != nil {
			return nil, lr.err
		}

		n, err := lr.r.Read(lr.chunk)
		if n > 0 {
			lr.pending = append(lr.pending, lr.chunk[:n]...)
			lr.splitPending()
		}
		if err != nil {
			lr.err = err
		}
	}
}

func (lr *LineReader) splitPending() {
	for {
		idx := bytes.IndexByte(lr.pending, '\n')
		if idx < 0 {
			return
		}
		line := make([]byte, idx)
		copy(line, lr.pending[:idx])
		lr.pending = lr.pending[idx+1:]
		lr.queue = append(lr.queue, line)
	}
}
