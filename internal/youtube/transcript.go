package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ytai/internal/domain"
)

// DefaultLanguages are the preferred caption languages, best first.
var DefaultLanguages = []string{"en-US", "en", "de"}

const (
	defaultBaseURL   = "https://www.youtube.com"
	userAgent        = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	playerRespMarker = "ytInitialPlayerResponse = "
)

// TranscriptConfig configures the caption scraper.
type TranscriptConfig struct {
	// BaseURL of the site serving watch pages.
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// TranscriptClient fetches captions by reading the player response embedded in the watch page.
type TranscriptClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ domain.TranscriptFetcher = (*TranscriptClient)(nil)

// NewTranscriptClient creates a caption scraper.
func NewTranscriptClient(cfg TranscriptConfig) *TranscriptClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &TranscriptClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger,
	}
}

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

type timedText struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

// Fetch returns the plain-text transcript of videoID, one caption line per line.
func (c *TranscriptClient) Fetch(ctx context.Context, videoID string, languages []string) (domain.Transcript, error) {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	page, err := c.get(ctx, c.baseURL+"/watch?v="+videoID, 8<<20, func(r *http.Request) {
		r.Header.Set("Accept-Language", "en-US,en;q=0.9")
		r.Header.Set("Accept", "text/html,application/xhtml+xml")
	})
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("watch page: %w", err)
	}

	idx := bytes.Index(page, []byte(playerRespMarker))
	if idx < 0 {
		return domain.Transcript{}, domain.ProviderErrorf("player response not found in watch page of %s", videoID)
	}
	raw := extractJSON(page[idx+len(playerRespMarker):])
	if raw == nil {
		return domain.Transcript{}, domain.ProviderErrorf("malformed player response in watch page of %s", videoID)
	}
	var player playerResponse
	if err := json.Unmarshal(raw, &player); err != nil {
		return domain.Transcript{}, domain.WrapProvider("decode player response", err)
	}
	if player.Captions == nil || len(player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) == 0 {
		reason := ""
		if player.PlayabilityStatus != nil {
			reason = player.PlayabilityStatus.Reason
		}
		c.logger.Error("no transcript found", slog.String("video_id", videoID), slog.String("reason", reason))
		return domain.Transcript{}, fmt.Errorf("%w: no captions for video %s", domain.ErrNotFound, videoID)
	}

	track, ok := pickBestTrack(player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, languages)
	if !ok {
		return domain.Transcript{}, fmt.Errorf("%w: caption tracks of %s cannot be fetched outside a browser", domain.ErrNotFound, videoID)
	}
	text, err := c.timedText(ctx, track.BaseURL)
	if err != nil {
		return domain.Transcript{}, err
	}
	if text == "" {
		return domain.Transcript{}, fmt.Errorf("%w: empty captions for video %s", domain.ErrNotFound, videoID)
	}
	return domain.Transcript{VideoID: videoID, Language: track.LanguageCode, Text: text}, nil
}

func (c *TranscriptClient) timedText(ctx context.Context, trackURL string) (string, error) {
	body, err := c.get(ctx, trackURL, 4<<20, nil)
	if err != nil {
		return "", fmt.Errorf("timedtext: %w", err)
	}
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", domain.WrapProvider("parse timedtext XML", err)
	}
	lines := make([]string, 0, len(tt.Lines))
	for _, l := range tt.Lines {
		// Caption text arrives entity-escaped a second time.
		text := strings.TrimSpace(html.UnescapeString(l.Text))
		if text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (c *TranscriptClient) get(ctx context.Context, u string, limit int64, decorate func(*http.Request)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, domain.WrapProvider("build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if decorate != nil {
		decorate(req)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.WrapProvider("GET", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, domain.ProviderErrorf("GET %s failed: %s", req.URL.Path, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, domain.WrapProvider("read body", err)
	}
	return body, nil
}

// needsPoToken reports whether a caption track url only works inside a browser session.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack prefers a manual track in a preferred language, then an
// auto-generated one, then any English track, then the first usable track.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// extractJSON returns the balanced JSON object at the start of b.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, escaped := false, false
	for i, ch := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
