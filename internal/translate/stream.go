package translate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ollama-gateway/internal/ollama"
)

const (
	objectChunk = "chat.completion.chunk"

	// terminalFrame closes the event stream after the finish chunk.
	terminalFrame = "data: [DONE]\n\n"
)

var finishStop = "stop"

// ChunkDelta is the incremental payload of one streamed chunk. Exactly one
// of Role or Content is set per chunk; the finish chunk carries neither.
type ChunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChunkChoice wraps a delta with its finish marker. FinishReason must
// serialize as null on non-final chunks, hence the pointer.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChatCompletionChunk is one streamed event in the client wire format.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// StreamChat transcodes the backend's newline-delimited fragment stream
// into client event frames, one frame per backend line, flushed as they
// are produced. It emits exactly one role chunk before the first read,
// then a content chunk per fragment, and on the backend's done signal a
// finish chunk plus the terminal frame; remaining backend bytes are left
// unread. Malformed lines are dropped. A stream that ends
// without a done fragment ends without a finish chunk.
//
// The returned count is the number of content chunks emitted. Write errors
// abort the loop: a broken client socket must stop the backend read loop.
func StreamChat(w io.Writer, body io.Reader, model string, chunkSize int) (int, error) {
	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()

	roleChunk := ChatCompletionChunk{
		ID:      id,
		Object:  objectChunk,
		Created: created,
		Model:   model,
		Choices: []ChunkChoice{{Delta: ChunkDelta{Role: "assistant"}}},
	}
	if err := writeFrame(w, roleChunk); err != nil {
		return 0, err
	}

	emitted := 0
	lines := NewLineReader(body, chunkSize)
	for {
		line, err := lines.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return emitted, nil
			}
			return emitted, fmt.Errorf("read backend stream: %w", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var fragment ollama.GenerateResponse
		if err := json.Unmarshal(line, &fragment); err != nil {
			// Malformed fragment: skip, never abort the stream.
			continue
		}

		if fragment.Response != nil {
			contentChunk := ChatCompletionChunk{
				ID:      id,
				Object:  objectChunk,
				Created: created,
				Model:   model,
				Choices: []ChunkChoice{{Delta: ChunkDelta{Content: *fragment.Response}}},
			}
			if err := writeFrame(w, contentChunk); err != nil {
				return emitted, err
			}
			emitted++
		}

		if fragment.Done {
			finishChunk := ChatCompletionChunk{
				ID:      id,
				Object:  objectChunk,
				Created: created,
				Model:   model,
				Choices: []ChunkChoice{{FinishReason: &finishStop}},
			}
			if err := writeFrame(w, finishChunk); err != nil {
				return emitted, err
			}
			if _, err := io.WriteString(w, terminalFrame); err != nil {
				return emitted, fmt.Errorf("write terminal frame: %w", err)
			}
			flush(w)
			return emitted, nil
		}
	}
}

func writeFrame(w io.Writer, chunk ChatCompletionChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("marshal event frame: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event frame: %w", err)
	}
	flush(w)
	return nil
}

func flush(w io.Writer) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
