package translate

import (
	"encoding/json"
	"fmt"
	"strings"

	"ollama-gateway/internal/ollama"
)

const (
	defaultTemperature = 0.7
	defaultTopP        = 1.0
	defaultMaxTokens   = 4096
)

// Substituted model-name prefixes: requests naming a GPT-family model are
// rewritten to the gateway's configured default backend model.
var foreignModelPrefixes = []string{"gpt-3", "gpt-4"}

// ChatMessage captures a single message within the chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest models the OpenAI chat/completions request payload with the
// gateway's defaults already applied.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Stream      bool
	Temperature float64
	TopP        float64
	MaxTokens   int
	Stop        []string
}

// UnmarshalJSON applies parameter defaults and the strict stop-type check:
// only a JSON array of strings is accepted, every other shape is replaced
// by the backend sentinels rather than coerced.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Model       string          `json:"model"`
		Messages    []ChatMessage   `json:"messages"`
		Stream      bool            `json:"stream"`
		Temperature *float64        `json:"temperature"`
		TopP        *float64        `json:"top_p"`
		MaxTokens   *int            `json:"max_tokens"`
		Stop        json.RawMessage `json:"stop"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode chat request: %w", err)
	}

	r.Model = strings.TrimSpace(raw.Model)
	r.Messages = raw.Messages
	r.Stream = raw.Stream
	r.Temperature = floatOrDefault(raw.Temperature, defaultTemperature)
	r.TopP = floatOrDefault(raw.TopP, defaultTopP)
	r.MaxTokens = intOrDefault(raw.MaxTokens, defaultMaxTokens)
	r.Stop = parseStop(raw.Stop)

	return nil
}

// ResolveModel maps a requested model name to the backend model to use.
func ResolveModel(requested, fallback string) string {
	if requested == "" {
		return fallback
	}
	for _, prefix := range foreignModelPrefixes {
		if strings.HasPrefix(requested, prefix) {
			return fallback
		}
	}
	return requested
}

// BuildGenerateRequest derives the backend generate request from a chat
// request.
func BuildGenerateRequest(req ChatRequest, defaultModel string) ollama.GenerateRequest {
	parts := make([]string, 0, len(req.Messages))
	for _, msg := range req.Messages {
		parts = append(parts, Wrap(msg.Role, msg.Content))
	}

	return ollama.GenerateRequest{
		Model:  ResolveModel(req.Model, defaultModel),
		Prompt: strings.Join(parts, "\n"),
		Stream: req.Stream,
		Options: ollama.Options{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
			Stop:        req.Stop,
		},
	}
}

func parseStop(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return DefaultStop()
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return DefaultStop()
	}
	if values == nil {
		// JSON null decodes without error but is not a string list.
		return DefaultStop()
	}
	return values
}

func floatOrDefault(value *float64, fallback float64) float64 {
	if value == nil {
		return fallback
	}
	return *value
}

func intOrDefault(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}
