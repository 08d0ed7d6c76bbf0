package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytai/internal/domain"
)

func newServer(t *testing.T, routes map[string]http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	for p, h := range routes {
		mux.HandleFunc(p, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL})
}

const tags = `{"models":[
	{"name":"nomic-embed-text:latest","model":"nomic-embed-text:latest","details":{"family":"nomic-bert"}},
	{"name":"llama3:latest","model":"llama3:latest","details":{"family":"llama"}},
	{"name":"mxbai-embed-large","details":{"family":"bert"}},
	{"name":"gemma2:2b","details":{"family":"gemma2"}}
]}`

func TestChat(t *testing.T) {
	var got map[string]any
	c := newServer(t, map[string]http.HandlerFunc{
		"/api/chat": func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = io.WriteString(w, `{"message":{"role":"assistant","content":"hello there"},"done":true}`)
		},
	})
	out, err := c.Chat(context.Background(), domain.ChatRequest{
		Model:       "llama3",
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
		Temperature: 0.2,
		TopP:        0.9,
		MaxTokens:   256,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	assert.Equal(t, false, got["stream"])
	opts := got["options"].(map[string]any)
	assert.Equal(t, 0.2, opts["temperature"])
	assert.Equal(t, float64(256), opts["num_predict"])
}

func TestChatModelMissing(t *testing.T) {
	c := newServer(t, map[string]http.HandlerFunc{
		"/api/chat": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"model \"llama9\" not found, try pulling it first"}`)
		},
	})
	_, err := c.Chat(context.Background(), domain.ChatRequest{Model: "llama9"})
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "try pulling it first")
}

func TestEmbed(t *testing.T) {
	c := newServer(t, map[string]http.HandlerFunc{
		"/api/embeddings": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "nomic-embed-text", body["model"])
			assert.Equal(t, "some text", body["prompt"])
			_, _ = io.WriteString(w, `{"embedding":[0.5,0.25]}`)
		},
	})
	v, err := c.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25}, v)
}

func TestModelsSplitByFamily(t *testing.T) {
	c := newServer(t, map[string]http.HandlerFunc{
		"/api/tags": func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, tags) },
	})
	ctx := context.Background()

	chat, err := c.Models(ctx, domain.ModelChat)
	require.NoError(t, err)
	assert.Equal(t, []string{"gemma2:2b", "llama3:latest"}, chat)

	emb, err := c.Models(ctx, domain.ModelEmbedding)
	require.NoError(t, err)
	assert.Equal(t, []string{"mxbai-embed-large", "nomic-embed-text:latest"}, emb)

	assert.True(t, c.Available(ctx))
}

func TestAvailableFalseWhenDown(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	assert.False(t, c.Available(context.Background()))
}

func TestContextLength(t *testing.T) {
	c := newServer(t, map[string]http.HandlerFunc{
		"/api/show": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			switch body["model"] {
			case "llama3":
				_, _ = io.WriteString(w, `{"model_info":{"general.architecture":"llama","llama.context_length":8192}}`)
			default:
				_, _ = io.WriteString(w, `{"model_info":{}}`)
			}
		},
	})
	n, err := c.ContextLength(context.Background(), "llama3")
	require.NoError(t, err)
	assert.Equal(t, 8192, n)

	n, err = c.ContextLength(context.Background(), "other")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPull(t *testing.T) {
	c := newServer(t, map[string]http.HandlerFunc{
		"/api/pull": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["model"] == "llama3" {
				_, _ = io.WriteString(w, `{"status":"success"}`)
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"pull model manifest: file does not exist"}`)
		},
	})
	require.NoError(t, c.Pull(context.Background(), "llama3"))
	assert.ErrorIs(t, c.Pull(context.Background(), "nope"), domain.ErrProvider)
}
