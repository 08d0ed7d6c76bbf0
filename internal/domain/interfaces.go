package domain

import (
	"context"
	"time"
)

// VideoMetadata describes a video as reported by the oEmbed provider.
type VideoMetadata struct {
	Title    string
	Channel  string
	Provider string
}

// Transcript is the plain-text caption track of a video.
type Transcript struct {
	VideoID  string
	Language string
	Text     string
}

// Chunk is a contiguous segment of a source text.
// Overlap is the number of leading bytes of Text shared with the previous chunk.
type Chunk struct {
	Index   int
	Text    string
	Start   int
	End     int
	Overlap int
}

// Record is a single entry of a vector store collection.
type Record struct {
	ID     string
	Vector []float64
	Text   string
}

// SearchResult represents a matching record with a relevance score.
type SearchResult struct {
	ID    string
	Text  string
	Score float64
}

// Role of a chat message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat prompt.
type Message struct {
	Role    Role
	Content string
}

// ChatRequest carries the messages and inference parameters of a single model call.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Session holds the per-interaction settings that the pipeline needs.
// It is owned by the caller and passed into every pipeline operation.
type Session struct {
	Provider    string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Chat        ChatModel
}

// Request builds a ChatRequest from the session settings.
func (s Session) Request(messages ...Message) ChatRequest {
	return ChatRequest{
		Model:       s.Model,
		Messages:    messages,
		Temperature: s.Temperature,
		TopP:        s.TopP,
		MaxTokens:   s.MaxTokens,
	}
}

// Video is a saved YouTube video.
type Video struct {
	ID        int64
	YouTubeID string
	Title     string
	Link      string
	Channel   string
	SavedOn   time.Time
}

// IndexState tracks whether the vector collection of a transcript is complete.
type IndexState string

const (
	IndexPending  IndexState = "pending"
	IndexComplete IndexState = "complete"
	IndexFailed   IndexState = "failed"
)

// TranscriptRecord is the persisted description of a processed transcript.
type TranscriptRecord struct {
	ID              int64
	VideoID         int64
	Language        string
	Preprocessed    bool
	ChunkSize       int
	OriginalTokens  int
	ProcessedTokens int
	CollectionName  string
	IndexState      IndexState
}

// EntryType distinguishes saved summaries from saved answers.
type EntryType string

const (
	EntrySummary EntryType = "S"
	EntryAnswer  EntryType = "A"
)

// LibraryEntry is a saved summary or question/answer pair.
type LibraryEntry struct {
	ID        int64
	VideoID   int64
	Type      EntryType
	Question  string
	Text      string
	CreatedAt time.Time

	// Populated on reads joined with the video table.
	VideoTitle   string
	VideoChannel string
}

// ModelKind separates chat models from embedding models in provider listings.
type ModelKind string

const (
	ModelChat      ModelKind = "chat"
	ModelEmbedding ModelKind = "embedding"
)

// ChatModel generates a completion for a list of messages.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorStore persists records in named collections and supports similarity search.
type VectorStore interface {
	Count(ctx context.Context, collection string) (int, error)
	Add(ctx context.Context, collection string, records []Record) error
	Query(ctx context.Context, collection string, vector []float64, topK int) ([]SearchResult, error)
	DeleteCollection(ctx context.Context, collection string) error
}

// TranscriptFetcher retrieves the caption track of a video.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string, languages []string) (Transcript, error)
}

// MetadataProvider resolves a video URL to its metadata.
type MetadataProvider interface {
	Get(ctx context.Context, url string) (VideoMetadata, error)
}
