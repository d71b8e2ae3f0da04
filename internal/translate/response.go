package translate

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ollama-gateway/internal/ollama"
)

const (
	objectCompletion = "chat.completion"

	// unknownTokens marks a usage counter the backend did not supply.
	unknownTokens = -1
)

// ChatChoice is the single choice of a non-streamed response.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Usage mirrors the OpenAI token accounting block.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the buffered client wire format.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

// CompleteChat transcodes one fully buffered backend response into the
// client shape: sanitized text, mapped usage counters, total always
// unknown because the backend never reports it.
func CompleteChat(raw []byte, model string) (ChatCompletionResponse, error) {
	var fragment ollama.GenerateResponse
	if err := json.Unmarshal(raw, &fragment); err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("invalid response from backend: %v (body: %s)", err, raw)
	}

	return ChatCompletionResponse{
		ID:      "chat-" + uuid.NewString(),
		Object:  objectCompletion,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []ChatChoice{
			{
				Message:      ChatMessage{Role: "assistant", Content: Sanitize(fragment.Text())},
				FinishReason: "stop",
			},
		},
		Usage: Usage{
			PromptTokens:     countOrUnknown(fragment.PromptEvalCount),
			CompletionTokens: countOrUnknown(fragment.EvalCount),
			TotalTokens:      unknownTokens,
		},
	}, nil
}

func countOrUnknown(count *int) int {
	if count == nil {
		return unknownTokens
	}
	return *count
}
