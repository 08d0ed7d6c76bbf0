package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"ytai/internal/domain"
)

// Client is an OpenAI-compatible client for chat completions, embeddings and model listing.
type Client struct {
	baseURL        string
	apiKey         string
	embeddingModel string
	client         *http.Client
}

var (
	_ domain.ChatModel = (*Client)(nil)
	_ domain.Embedder  = (*Client)(nil)
)

// Config configures the OpenAI-compatible client.
type Config struct {
	BaseURL string
	// APIKey takes precedence over APIKeyEnv.
	APIKey         string
	APIKeyEnv      string
	EmbeddingModel string
	Timeout        time.Duration
}

// NewClient creates a new client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrAuth, cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         key,
		embeddingModel: cfg.EmbeddingModel,
		client:         &http.Client{Timeout: t},
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.embeddingModel }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat sends the messages to /chat/completions and returns the first choice.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	type reqBody struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		Temperature float64       `json:"temperature"`
		TopP        float64       `json:"top_p"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
	}
	body := reqBody{
		Model:       req.Model,
		Messages:    make([]chatMessage, len(req.Messages)),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	}
	for i, m := range req.Messages {
		body.Messages[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}
	var out struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := c.do(ctx, http.MethodPost, "/chat/completions", body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", domain.ProviderErrorf("openai chat: no choices returned")
	}
	return out.Choices[0].Message.Content, nil
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	type reqBody struct {
		Input  string `json:"input,omitempty"`
		Prompt string `json:"prompt,omitempty"`
		Model  string `json:"model"`
	}
	var payload json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/embeddings", reqBody{Input: text, Prompt: text, Model: c.embeddingModel}, &payload); err != nil {
		return nil, err
	}
	// Try OpenAI-compatible response first
	var openaiOut struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil {
		if len(openaiOut.Data) > 0 && len(openaiOut.Data[0].Embedding) > 0 {
			return openaiOut.Data[0].Embedding, nil
		}
	}
	// Fallback to Ollama-native shape: { "embedding": [...] }
	var ollamaOut struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil && len(ollamaOut.Embedding) > 0 {
		return ollamaOut.Embedding, nil
	}
	return nil, domain.ProviderErrorf("openai embeddings: no embedding returned")
}

// Models lists the ids of the given kind the account can use, sorted.
// Embedding models are recognized by name.
func (c *Client) Models(ctx context.Context, kind domain.ModelKind) ([]string, error) {
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/models", nil, &out); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		k := domain.ModelChat
		if strings.Contains(m.ID, "embedding") {
			k = domain.ModelEmbedding
		}
		if k == kind {
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("openai %s: encode request: %w", path, err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("openai %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.WrapProvider("openai "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("openai %s: %w: %w", path, domain.ErrProvider, domain.ErrAuth)
	}
	if resp.StatusCode >= 300 {
		return domain.ProviderErrorf("openai %s failed: %s%s", path, resp.Status, errorDetail(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.WrapProvider("openai "+path+": decode response", err)
	}
	return nil
}

func errorDetail(r io.Reader) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
		return ": " + e.Error.Message
	}
	return ""
}
