package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"ytai/internal/domain"
)

// DefaultBaseURL is where a local Ollama server listens.
const DefaultBaseURL = "http://localhost:11434"

// Client talks to the Ollama REST API.
type Client struct {
	baseURL        string
	embeddingModel string
	client         *http.Client
}

var (
	_ domain.ChatModel = (*Client)(nil)
	_ domain.Embedder  = (*Client)(nil)
)

// Config configures the Ollama client.
type Config struct {
	BaseURL        string
	EmbeddingModel string
	Timeout        time.Duration
}

// Model is an entry of the local model list.
type Model struct {
	Name   string
	Family string
}

// Kind reports whether the model produces embeddings or chat completions.
func (m Model) Kind() domain.ModelKind {
	f := strings.ToLower(m.Family)
	if strings.Contains(f, "bert") || strings.Contains(f, "embed") || strings.Contains(strings.ToLower(m.Name), "embed") {
		return domain.ModelEmbedding
	}
	return domain.ModelChat
}

// NewClient creates an Ollama client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		embeddingModel: cfg.EmbeddingModel,
		client:         &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "ollama:" + c.embeddingModel }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat runs a non-streaming /api/chat request.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	options := map[string]any{
		"temperature": req.Temperature,
		"top_p":       req.TopP,
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	msgs := make([]message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = message{Role: string(m.Role), Content: m.Content}
	}
	body := map[string]any{
		"model":    req.Model,
		"messages": msgs,
		"stream":   false,
		"options":  options,
	}
	var out struct {
		Message message `json:"message"`
	}
	if err := c.postJSON(ctx, "/api/chat", body, &out); err != nil {
		return "", err
	}
	return out.Message.Content, nil
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var out struct {
		Embedding []float64 `json:"embedding"`
	}
	body := map[string]any{"model": c.embeddingModel, "prompt": text}
	if err := c.postJSON(ctx, "/api/embeddings", body, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, domain.ProviderErrorf("ollama embeddings: no embedding returned for %s", c.embeddingModel)
	}
	return out.Embedding, nil
}

// List returns the locally available models, sorted by name.
func (c *Client) List(ctx context.Context) ([]Model, error) {
	var out struct {
		Models []struct {
			Name    string `json:"name"`
			Model   string `json:"model"`
			Details struct {
				Family string `json:"family"`
			} `json:"details"`
		} `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tags", nil, &out); err != nil {
		return nil, err
	}
	models := make([]Model, 0, len(out.Models))
	for _, m := range out.Models {
		name := m.Model
		if name == "" {
			name = m.Name
		}
		models = append(models, Model{Name: name, Family: m.Details.Family})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// Models returns the names of the local models of the given kind.
func (c *Client) Models(ctx context.Context, kind domain.ModelKind) ([]string, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, m := range all {
		if m.Kind() == kind {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

// Available reports whether the server answers.
func (c *Client) Available(ctx context.Context) bool {
	_, err := c.List(ctx)
	return err == nil
}

// ContextLength reads "<architecture>.context_length" from the model info.
// It returns 0 when the model does not advertise one.
func (c *Client) ContextLength(ctx context.Context, model string) (int, error) {
	var out struct {
		ModelInfo map[string]any `json:"model_info"`
	}
	if err := c.postJSON(ctx, "/api/show", map[string]any{"model": model}, &out); err != nil {
		return 0, err
	}
	arch, _ := out.ModelInfo["general.architecture"].(string)
	if arch == "" {
		return 0, nil
	}
	n, _ := out.ModelInfo[arch+".context_length"].(float64)
	return int(n), nil
}

// Pull downloads a model and waits for completion.
func (c *Client) Pull(ctx context.Context, model string) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.postJSON(ctx, "/api/pull", map[string]any{"model": model, "stream": false}, &out); err != nil {
		return err
	}
	if out.Status != "success" {
		return domain.ProviderErrorf("ollama pull %s: status %q", model, out.Status)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ollama %s: encode request: %w", path, err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("ollama %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.WrapProvider("ollama "+path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("ollama %s: %w: %w%s", path, domain.ErrProvider, domain.ErrNotFound, errorDetail(resp.Body))
	}
	if resp.StatusCode >= 300 {
		return domain.ProviderErrorf("ollama %s failed: %s%s", path, resp.Status, errorDetail(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.WrapProvider("ollama "+path+": decode response", err)
	}
	return nil
}

func errorDetail(r io.Reader) string {
	var e struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return ": " + e.Error
	}
	return ""
}
