package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytai/internal/domain"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/a1B2c3D4e5F", "a1B2c3D4e5F"},
		{"https://m.youtube.com/watch?v=a-b_c-d_e-f", "a-b_c-d_e-f"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractVideoIDInvalid(t *testing.T) {
	for _, u := range []string{
		"This is not a valid YouTube URL",
		"https://vimeo.com/123456789",
		"https://www.youtube.com/watch?v=short",
		"",
	} {
		_, err := ExtractVideoID(u)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, u)
	}
}

func TestMetadataGet(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"title":         "Sourdough 101",
			"author_name":   "Bread Channel",
			"provider_name": "YouTube",
		})
	}))
	defer srv.Close()

	c := NewMetadataClient(MetadataConfig{Endpoint: srv.URL})
	meta, err := c.Get(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", gotURL)
	assert.Equal(t, domain.VideoMetadata{Title: "Sourdough 101", Channel: "Bread Channel", Provider: "YouTube"}, meta)
}

func TestMetadataRejectsForeignURL(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	c := NewMetadataClient(MetadataConfig{Endpoint: srv.URL})
	_, err := c.Get(context.Background(), "https://vimeo.com/1234")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.False(t, called)
}

func TestMetadataProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"error payload", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, `{"error":"no matching providers found"}`) }},
		{"garbage", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, `<html>`) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c := NewMetadataClient(MetadataConfig{Endpoint: srv.URL})
			_, err := c.Get(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
			assert.ErrorIs(t, err, domain.ErrProvider)
		})
	}
}

func watchPage(player string) string {
	return `<html><head><script>var ytInitialPlayerResponse = ` + player + `;var meta = {};</script></head></html>`
}

func transcriptServer(t *testing.T, player func(base string) string, captions string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, watchPage(player(srv.URL)))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, captions)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestTranscriptFetch(t *testing.T) {
	srv := transcriptServer(t, func(base string) string {
		return fmt.Sprintf(`{"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[
			{"baseUrl":"%[1]s/api/timedtext?lang=de","languageCode":"de"},
			{"baseUrl":"%[1]s/api/timedtext?lang=en&kind=asr","languageCode":"en","kind":"asr"},
			{"baseUrl":"%[1]s/api/timedtext?lang=en","languageCode":"en"}
		]}},"videoDetails":{"title":"a \"quoted\" {brace}"}}`, base)
	}, `<?xml version="1.0" encoding="utf-8" ?><transcript>
		<text start="0" dur="1.5">Hello &amp;amp; welcome</text>
		<text start="1.5" dur="2">it&amp;#39;s baking day</text>
		<text start="3.5" dur="1"> </text>
	</transcript>`)

	c := NewTranscriptClient(TranscriptConfig{BaseURL: srv.URL, Logger: quiet()})
	tr, err := c.Fetch(context.Background(), "dQw4w9WgXcQ", nil)
	require.NoError(t, err)
	assert.Equal(t, "en", tr.Language)
	assert.Equal(t, "dQw4w9WgXcQ", tr.VideoID)
	assert.Equal(t, "Hello & welcome\nit's baking day", tr.Text)
}

func TestTranscriptNoCaptions(t *testing.T) {
	srv := transcriptServer(t, func(string) string {
		return `{"playabilityStatus":{"status":"OK"}}`
	}, "")
	c := NewTranscriptClient(TranscriptConfig{BaseURL: srv.URL, Logger: quiet()})
	_, err := c.Fetch(context.Background(), "dQw4w9WgXcQ", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTranscriptMissingPlayerResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>consent wall</html>")
	}))
	defer srv.Close()
	c := NewTranscriptClient(TranscriptConfig{BaseURL: srv.URL, Logger: quiet()})
	_, err := c.Fetch(context.Background(), "dQw4w9WgXcQ", nil)
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestTranscriptWatchPageStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	c := NewTranscriptClient(TranscriptConfig{BaseURL: srv.URL, Logger: quiet()})
	_, err := c.Fetch(context.Background(), "dQw4w9WgXcQ", nil)
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestPickBestTrack(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "u1", LanguageCode: "fr"},
		{BaseURL: "u2", LanguageCode: "de", Kind: "asr"},
		{BaseURL: "u3", LanguageCode: "en-GB"},
		{BaseURL: "u4&exp=xpe", LanguageCode: "de"},
	}
	got, ok := pickBestTrack(tracks, []string{"de"})
	require.True(t, ok)
	assert.Equal(t, "u2", got.BaseURL, "manual de track needs a po token, asr comes next")

	got, ok = pickBestTrack(tracks, []string{"es"})
	require.True(t, ok)
	assert.Equal(t, "u3", got.BaseURL)

	got, ok = pickBestTrack(tracks[:1], []string{"es"})
	require.True(t, ok)
	assert.Equal(t, "u1", got.BaseURL)

	_, ok = pickBestTrack(tracks[3:], nil)
	assert.False(t, ok)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":"}\\"}`, string(extractJSON([]byte(`{"a":"}\\"};rest`))))
	assert.Equal(t, `{"a":{"b":"\"{"}}`, string(extractJSON([]byte(`{"a":{"b":"\"{"}} tail`))))
	assert.Nil(t, extractJSON([]byte(`nope`)))
	assert.Nil(t, extractJSON([]byte(`{"open":`)))
}
