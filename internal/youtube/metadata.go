package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ytai/internal/domain"
)

// DefaultOEmbedURL is the oEmbed endpoint used to resolve video metadata.
const DefaultOEmbedURL = "https://noembed.com/embed"

// MetadataConfig configures the oEmbed client.
type MetadataConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// MetadataClient resolves video urls through an oEmbed provider.
type MetadataClient struct {
	endpoint string
	client   *http.Client
}

var _ domain.MetadataProvider = (*MetadataClient)(nil)

// NewMetadataClient creates an oEmbed client.
func NewMetadataClient(cfg MetadataConfig) *MetadataClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOEmbedURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MetadataClient{endpoint: cfg.Endpoint, client: &http.Client{Timeout: cfg.Timeout}}
}

// Get returns title, channel and provider of the video behind rawURL.
func (c *MetadataClient) Get(ctx context.Context, rawURL string) (domain.VideoMetadata, error) {
	if !strings.Contains(rawURL, "youtube.com") && !strings.Contains(rawURL, "youtu.be") {
		return domain.VideoMetadata{}, fmt.Errorf("%w: not a YouTube url: %q", domain.ErrInvalidInput, rawURL)
	}
	u := c.endpoint + "?" + url.Values{"url": {rawURL}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.VideoMetadata{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.VideoMetadata{}, domain.WrapProvider("oembed request", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.VideoMetadata{}, domain.ProviderErrorf("oembed GET failed: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.VideoMetadata{}, domain.WrapProvider("read oembed response", err)
	}
	var out struct {
		Title        string `json:"title"`
		AuthorName   string `json:"author_name"`
		ProviderName string `json:"provider_name"`
		Error        string `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.VideoMetadata{}, domain.WrapProvider("decode oembed response", err)
	}
	if out.Error != "" {
		return domain.VideoMetadata{}, domain.ProviderErrorf("oembed: %s", out.Error)
	}
	return domain.VideoMetadata{Title: out.Title, Channel: out.AuthorName, Provider: out.ProviderName}, nil
}
