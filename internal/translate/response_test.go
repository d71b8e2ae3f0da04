package translate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteChat(t *testing.T) {
	raw := []byte(`{"response":"4","done":true,"prompt_eval_count":5,"eval_count":1}`)

	resp, err := CompleteChat(raw, "deepseek-r1:7b")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.ID, "chat-"))
	assert.Equal(t, "chat.completion", resp.Object)
	assert.Equal(t, "deepseek-r1:7b", resp.Model)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, 0, resp.Choices[0].Index)
	assert.Equal(t, "assistant", resp.Choices[0].Message.Role)
	assert.Equal(t, "4", resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, 5, resp.Usage.PromptTokens)
	assert.Equal(t, 1, resp.Usage.CompletionTokens)
	assert.Equal(t, -1, resp.Usage.TotalTokens)
}

func TestCompleteChatMissingCounters(t *testing.T) {
	resp, err := CompleteChat([]byte(`{"response":"hi","done":true}`), "m")
	require.NoError(t, err)

	assert.Equal(t, -1, resp.Usage.PromptTokens)
	assert.Equal(t, -1, resp.Usage.CompletionTokens)
	assert.Equal(t, -1, resp.Usage.TotalTokens)
}

func TestCompleteChatSanitizesContent(t *testing.T) {
	resp, err := CompleteChat([]byte(`{"response":"<b>Hello</b>[/INST]\n\nWorld","done":true}`), "m")
	require.NoError(t, err)
	assert.Equal(t, "Hello\nWorld", resp.Choices[0].Message.Content)
}

func TestCompleteChatEmptyResponseFallback(t *testing.T) {
	for _, raw := range []string{`{"done":true}`, `{"response":"","done":true}`, `{"response":"<tag></tag>","done":true}`} {
		resp, err := CompleteChat([]byte(raw), "m")
		require.NoError(t, err)
		assert.Equal(t, "Empty response", resp.Choices[0].Message.Content, "raw %s", raw)
	}
}

func TestCompleteChatInvalidJSON(t *testing.T) {
	raw := []byte("backend fell over")
	_, err := CompleteChat(raw, "m")
	require.Error(t, err)
	// The raw body must be part of the diagnostic.
	assert.Contains(t, err.Error(), "backend fell over")
}
