package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"ytai/internal/domain"
)

// Config configures the Gemini client.
type Config struct {
	APIKey         string
	APIKeyEnv      string
	EmbeddingModel string
}

// Client adapts the Generative AI SDK to the chat and embedding ports.
type Client struct {
	client         *genai.Client
	embeddingModel string
}

var (
	_ domain.ChatModel = (*Client)(nil)
	_ domain.Embedder  = (*Client)(nil)
)

// NewClient creates a Gemini client. Close releases its connection.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GEMINI_API_KEY"
	}
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: missing GEMINI API key in env %s", domain.ErrAuth, cfg.APIKeyEnv)
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, domain.WrapProvider("gemini client", err)
	}
	return &Client{client: client, embeddingModel: cfg.EmbeddingModel}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.client.Close() }

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "gemini:" + c.embeddingModel }

// Chat sends the conversation as a chat session and returns the reply text.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	model := c.client.GenerativeModel(req.Model)
	model.SetTemperature(float32(req.Temperature))
	model.SetTopP(float32(req.TopP))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	system, history, last := splitMessages(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if last == "" {
		return "", fmt.Errorf("%w: gemini chat needs a user message", domain.ErrInvalidInput)
	}
	cs := model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", classify("gemini chat", err)
	}
	return responseText(resp)
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.client.EmbeddingModel(c.embeddingModel).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classify("gemini embeddings", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, domain.ProviderErrorf("gemini embeddings: no embedding returned")
	}
	out := make([]float64, len(resp.Embedding.Values))
	for i, v := range resp.Embedding.Values {
		out[i] = float64(v)
	}
	return out, nil
}

// Models lists the models of the given kind that the key can use, sorted as served.
func (c *Client) Models(ctx context.Context, kind domain.ModelKind) ([]string, error) {
	var names []string
	it := c.client.ListModels(ctx)
	for {
		info, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify("gemini models", err)
		}
		if kindOf(info.SupportedGenerationMethods) == kind {
			names = append(names, strings.TrimPrefix(info.Name, "models/"))
		}
	}
	return names, nil
}

// ContextLength returns the input token limit the API reports for model.
func (c *Client) ContextLength(ctx context.Context, model string) (int, error) {
	info, err := c.client.GenerativeModel(model).Info(ctx)
	if err != nil {
		return 0, classify("gemini model info", err)
	}
	return int(info.InputTokenLimit), nil
}

func kindOf(methods []string) domain.ModelKind {
	for _, m := range methods {
		if m == "generateContent" {
			return domain.ModelChat
		}
	}
	for _, m := range methods {
		if m == "embedContent" {
			return domain.ModelEmbedding
		}
	}
	return ""
}

// splitMessages folds system messages into one instruction and turns the
// remaining messages into chat history plus the final user turn.
func splitMessages(msgs []domain.Message) (string, []*genai.Content, string) {
	var system []string
	var history []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	last := ""
	if n := len(history); n > 0 && history[n-1].Role == "user" {
		if t, ok := history[n-1].Parts[0].(genai.Text); ok {
			last = string(t)
		}
		history = history[:n-1]
	}
	return strings.Join(system, "\n\n"), history, last
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", domain.ProviderErrorf("gemini chat: empty response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", domain.ProviderErrorf("gemini chat: response has no text")
	}
	return b.String(), nil
}

func classify(op string, err error) error {
	if strings.Contains(err.Error(), "API_KEY_INVALID") || strings.Contains(err.Error(), "API key not valid") {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrProvider, domain.ErrAuth)
	}
	return domain.WrapProvider(op, err)
}
