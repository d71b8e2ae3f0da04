package translate

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectLines(t *testing.T, input string, chunkSize int) []string {
	t.Helper()
	lr := NewLineReader(strings.NewReader(input), chunkSize)
	var lines []string
	for {
		line, err := lr.Next()
		if errors.Is(err, io.EOF) {
			return lines
		}
		require.NoError(t, err)
		lines = append(lines, string(line))
	}
}

func TestLineReaderBasic(t *testing.T) {
	lines := collectLines(t, "one\ntwo\nthree\n", 16)
	assert.Equal(t, []string{"one", "two", "three"}, lines)
}

func TestLineReaderByteBoundaryIndependence(t *testing.T) {
	input := "alpha\nbeta\n\ngamma delta\nlast\n"
	want := []string{"alpha", "beta", "", "gamma delta", "last"}

	for chunkSize := 1; chunkSize <= len(input)+1; chunkSize++ {
		assert.Equal(t, want, collectLines(t, input, chunkSize), "chunk size %d", chunkSize)
	}
}

func TestLineReaderDropsTrailingPartial(t *testing.T) {
	lines := collectLines(t, "complete\npartial without newline", 8)
	assert.Equal(t, []string{"complete"}, lines)
}

func TestLineReaderEmptyInput(t *testing.T) {
	assert.Empty(t, collectLines(t, "", 4))
}

func TestLineReaderPropagatesReadError(t *testing.T) {
	readErr := errors.New("boom")
	lr := NewLineReader(io.MultiReader(strings.NewReader("ok\n"), &failingReader{err: readErr}), 4)

	line, err := lr.Next()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(line))

	_, err = lr.Next()
	assert.ErrorIs(t, err, readErr)
}

func TestLineReaderDefaultChunkSize(t *testing.T) {
	lr := NewLineReader(bytes.NewReader([]byte("x\n")), 0)
	line, err := lr.Next()
	require.NoError(t, err)
	assert.Equal(t, "x", string(line))
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}
