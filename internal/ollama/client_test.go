package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, time.Minute)
	require.NoError(t, err)
	return client
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", time.Minute)
	assert.Error(t, err)

	_, err = NewClient("http://127.0.0.1:11434", 0)
	assert.Error(t, err)
}

func TestGenerateStreamsBody(t *testing.T) {
	var gotReq GenerateRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		io.WriteString(w, "{\"response\":\"hi\",\"done\":false}\n{\"done\":true}\n")
	}))

	body, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "[INST]hi[/INST]", Stream: true})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"done":true`)
	assert.Equal(t, "m", gotReq.Model)
	assert.True(t, gotReq.Stream)
}

func TestGenerateSurfacesBackendError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"model not loaded"}`)
	}))

	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestGenerateOnceBuffers(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"response":"4","done":true}`)
	}))

	data, err := client.GenerateOnce(context.Background(), GenerateRequest{Model: "m"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"4","done":true}`, string(data))
}

func TestForwardRelaysPath(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"input":"x"}`, string(body))
		io.WriteString(w, `{"ok":true}`)
	}))

	data, err := client.Forward(context.Background(), "/api/embeddings", []byte(`{"input":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
}

func TestListModels(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		io.WriteString(w, `{"models":[{"name":"llama3:8b"},{"name":"deepseek-r1:7b"}]}`)
	}))

	names, err := client.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3:8b", "deepseek-r1:7b"}, names)
}

func TestListModelsSoftFailsOnBackendStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	names, err := client.ListModels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEnsureModelSkipsPullWhenPresent(t *testing.T) {
	pulled := false
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			io.WriteString(w, `{"models":[{"name":"llama3:8b"}]}`)
		case "/api/pull":
			pulled = true
			io.WriteString(w, `{"status":"success"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	require.NoError(t, client.EnsureModel(context.Background(), "llama3:8b"))
	assert.False(t, pulled)
}

func TestEnsureModelPullsWhenAbsent(t *testing.T) {
	var pullReq struct {
		Name   string `json:"name"`
		Stream bool   `json:"stream"`
	}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			io.WriteString(w, `{"models":[]}`)
		case "/api/pull":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&pullReq))
			io.WriteString(w, `{"status":"success"}`)
		}
	}))

	require.NoError(t, client.EnsureModel(context.Background(), "mistral:7b"))
	assert.Equal(t, "mistral:7b", pullReq.Name)
	assert.False(t, pullReq.Stream)
}

func TestIsRunning(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Ollama is running")
	}))
	assert.True(t, client.IsRunning(context.Background()))

	down, err := NewClient("http://127.0.0.1:1", time.Second)
	require.NoError(t, err)
	assert.False(t, down.IsRunning(context.Background()))
}
