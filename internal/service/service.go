package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ytai/internal/cache"
	"ytai/internal/chunker"
	"ytai/internal/domain"
	"ytai/internal/library"
	"ytai/internal/rag"
	"ytai/internal/store"
	"ytai/internal/summarizer"
	"ytai/internal/tokens"
	"ytai/internal/youtube"
)

// preprocessChunkSize is the excerpt size handed to the model when a transcript is preprocessed.
const preprocessChunkSize = 512

// Repository is the relational state the service reads and writes.
type Repository interface {
	VideoByYouTubeID(ctx context.Context, ytID string) (domain.Video, error)
	GetOrCreateVideo(ctx context.Context, v domain.Video) (domain.Video, bool, error)
	ListVideos(ctx context.Context) ([]domain.Video, error)
	Channels(ctx context.Context) ([]string, error)
	DeleteVideo(ctx context.Context, id int64) error

	TranscriptForVideo(ctx context.Context, videoID int64) (domain.TranscriptRecord, error)
	SaveTranscript(ctx context.Context, t domain.TranscriptRecord) (domain.TranscriptRecord, error)
	SetIndexState(ctx context.Context, id int64, state domain.IndexState) error
	SetProcessedTokens(ctx context.Context, id int64, tokens int) error

	SaveEntry(ctx context.Context, e domain.LibraryEntry) (domain.LibraryEntry, error)
	Entries(ctx context.Context, f store.LibraryFilter) ([]domain.LibraryEntry, error)
	DeleteEntry(ctx context.Context, id int64) error
}

var _ Repository = (*store.DB)(nil)

// Counter estimates tokens and measures chunk lengths.
type Counter interface {
	Count(text, model string) int
	Length(model string) func(string) int
}

// ModelLister reports the models a provider serves.
type ModelLister interface {
	Models(ctx context.Context, kind domain.ModelKind) ([]string, error)
}

// Config wires the service. Metadata, Transcripts, Repository, Vectors,
// Embedder, Counter and Checker are required.
type Config struct {
	Metadata    domain.MetadataProvider
	Transcripts domain.TranscriptFetcher
	Repository  Repository
	Vectors     domain.VectorStore
	Embedder    domain.Embedder
	Counter     Counter
	Checker     summarizer.Checker

	// Listers and Selectable are keyed by provider name.
	Listers    map[string]ModelLister
	Selectable map[string][]string
	ModelCache cache.ModelList

	Languages []string
	// ProcessedDir receives a copy of every preprocessed transcript when set.
	ProcessedDir string
	Logger       *slog.Logger
}

// Service runs one user action per call: summaries, processing, questions and the library.
type Service struct {
	metadata    domain.MetadataProvider
	transcripts domain.TranscriptFetcher
	repo        Repository
	vectors     domain.VectorStore
	counter     Counter

	summarizer *summarizer.Summarizer
	indexer    *rag.Indexer
	retriever  *rag.Retriever
	responder  *rag.Responder

	listers      map[string]ModelLister
	selectable   map[string][]string
	modelCache   cache.ModelList
	languages    []string
	processedDir string
	logger       *slog.Logger
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	switch {
	case cfg.Metadata == nil, cfg.Transcripts == nil, cfg.Repository == nil:
		return nil, fmt.Errorf("%w: metadata, transcripts and repository are required", domain.ErrInvalidInput)
	case cfg.Vectors == nil, cfg.Embedder == nil:
		return nil, fmt.Errorf("%w: vector store and embedder are required", domain.ErrInvalidInput)
	case cfg.Counter == nil, cfg.Checker == nil:
		return nil, fmt.Errorf("%w: token counter and capacity checker are required", domain.ErrInvalidInput)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	languages := cfg.Languages
	if len(languages) == 0 {
		languages = youtube.DefaultLanguages
	}
	modelCache := cfg.ModelCache
	if modelCache == nil {
		modelCache = cache.NewMemory()
	}
	return &Service{
		metadata:     cfg.Metadata,
		transcripts:  cfg.Transcripts,
		repo:         cfg.Repository,
		vectors:      cfg.Vectors,
		counter:      cfg.Counter,
		summarizer:   summarizer.New(cfg.Checker, cfg.Counter, logger),
		indexer:      rag.NewIndexer(cfg.Embedder, cfg.Vectors, logger),
		retriever:    rag.NewRetriever(cfg.Embedder, cfg.Vectors),
		responder:    rag.NewResponder(),
		listers:      cfg.Listers,
		selectable:   cfg.Selectable,
		modelCache:   modelCache,
		languages:    languages,
		processedDir: cfg.ProcessedDir,
		logger:       logger,
	}, nil
}

// VideoInfo returns the metadata of the video behind url.
func (s *Service) VideoInfo(ctx context.Context, url string) (domain.VideoMetadata, error) {
	return s.metadata.Get(ctx, url)
}

// Summarize fetches the transcript of url and summarizes it, or answers
// instruction about it when one is given.
func (s *Service) Summarize(ctx context.Context, sess domain.Session, url, instruction string) (string, error) {
	ytID, err := youtube.ExtractVideoID(url)
	if err != nil {
		return "", err
	}
	tr, err := s.transcripts.Fetch(ctx, ytID, s.languages)
	if err != nil {
		return "", err
	}
	return s.summarizer.Summarize(ctx, sess, tr.Text, instruction)
}

// ProcessOptions controls how a transcript is indexed.
type ProcessOptions struct {
	ChunkSize  int
	Preprocess bool
}

// Processed is the outcome of Process.
type Processed struct {
	Video      domain.Video
	Transcript domain.TranscriptRecord
	// Chunks is 0 when the video had already been indexed.
	Chunks     int
	Highlights []string
}

// Process saves the video behind url and indexes its transcript for questions.
// Videos that are already indexed are returned as they are. A previous run
// that did not complete is discarded and rebuilt. When indexing fails the
// collection is dropped and the transcript is marked failed.
func (s *Service) Process(ctx context.Context, sess domain.Session, url string, opts ProcessOptions) (Processed, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunker.DefaultChunkSize
	}
	ytID, err := youtube.ExtractVideoID(url)
	if err != nil {
		return Processed{}, err
	}
	video, err := s.saveVideo(ctx, url, ytID)
	if err != nil {
		return Processed{}, err
	}
	log := s.logger.With(slog.String("video_id", ytID))

	prev, err := s.repo.TranscriptForVideo(ctx, video.ID)
	switch {
	case err == nil && prev.IndexState == domain.IndexComplete:
		log.Info("video already processed", slog.Int("chunk_size", prev.ChunkSize))
		return Processed{Video: video, Transcript: prev}, nil
	case err == nil:
		log.Warn("discarding incomplete index", slog.String("state", string(prev.IndexState)))
		if err := s.vectors.DeleteCollection(ctx, prev.CollectionName); err != nil {
			return Processed{}, fmt.Errorf("drop incomplete index: %w", err)
		}
	case !errors.Is(err, domain.ErrNotFound):
		return Processed{}, err
	}

	transcript, err := s.transcripts.Fetch(ctx, ytID, s.languages)
	if err != nil {
		return Processed{}, err
	}
	tr, err := s.repo.SaveTranscript(ctx, domain.TranscriptRecord{
		VideoID:        video.ID,
		Language:       transcript.Language,
		Preprocessed:   opts.Preprocess,
		ChunkSize:      opts.ChunkSize,
		OriginalTokens: s.counter.Count(transcript.Text, tokens.DefaultModel),
		CollectionName: ytID,
		IndexState:     domain.IndexPending,
	})
	if err != nil {
		return Processed{}, err
	}

	text, chunks, err := s.prepareChunks(ctx, sess, video, &tr, transcript.Text, opts)
	if err != nil {
		return Processed{}, s.compensate(ctx, log, tr, err)
	}
	n, err := s.indexer.Index(ctx, tr.CollectionName, chunks)
	if err != nil {
		return Processed{}, s.compensate(ctx, log, tr, err)
	}
	if err := s.repo.SetIndexState(ctx, tr.ID, domain.IndexComplete); err != nil {
		return Processed{}, err
	}
	tr.IndexState = domain.IndexComplete
	log.Info("video processed",
		slog.Int("chunks", n),
		slog.Int("chunk_size", tr.ChunkSize),
		slog.Bool("preprocessed", tr.Preprocessed),
		slog.Int("original_tokens", tr.OriginalTokens),
	)
	return Processed{Video: video, Transcript: tr, Chunks: n, Highlights: summarizer.Highlights(text, 3)}, nil
}

func (s *Service) saveVideo(ctx context.Context, url, ytID string) (domain.Video, error) {
	v, err := s.repo.VideoByYouTubeID(ctx, ytID)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return v, err
	}
	meta, err := s.metadata.Get(ctx, url)
	if err != nil {
		return domain.Video{}, err
	}
	v, _, err = s.repo.GetOrCreateVideo(ctx, domain.Video{
		YouTubeID: ytID,
		Title:     meta.Title,
		Link:      youtube.WatchURL(ytID),
		Channel:   meta.Channel,
		SavedOn:   time.Now(),
	})
	return v, err
}

// prepareChunks splits the transcript by tokens. With preprocessing the token
// chunks are rewritten by the model and the result is split again by characters.
func (s *Service) prepareChunks(ctx context.Context, sess domain.Session, video domain.Video, tr *domain.TranscriptRecord, text string, opts ProcessOptions) (string, []string, error) {
	size := opts.ChunkSize
	if opts.Preprocess {
		size = preprocessChunkSize
	}
	byTokens, err := chunker.NewRecursive(chunker.Config{
		ChunkSize:    size,
		ChunkOverlap: chunker.DefaultChunkOverlap,
		Length:       s.counter.Length(tokens.DefaultModel),
	})
	if err != nil {
		return "", nil, err
	}
	chunks, err := byTokens.Texts(text)
	if err != nil {
		return "", nil, err
	}
	if !opts.Preprocess {
		return text, chunks, nil
	}

	processed, err := s.summarizer.Preprocess(ctx, sess, chunks)
	if err != nil {
		return "", nil, err
	}
	if s.processedDir != "" {
		if path, err := library.SaveFile(s.processedDir, video.Title, processed, library.KindText); err != nil {
			s.logger.Warn("could not save processed transcript", slog.String("error", err.Error()))
		} else {
			s.logger.Info("saved processed transcript", slog.String("path", path))
		}
	}
	tr.ProcessedTokens = s.counter.Count(processed, tokens.DefaultModel)
	if err := s.repo.SetProcessedTokens(ctx, tr.ID, tr.ProcessedTokens); err != nil {
		return "", nil, err
	}
	byChars, err := chunker.NewRecursive(chunker.Config{ChunkSize: opts.ChunkSize, Length: chunker.Characters})
	if err != nil {
		return "", nil, err
	}
	chunks, err = byChars.Texts(processed)
	return processed, chunks, err
}

// compensate undoes a failed indexing run and returns cause.
func (s *Service) compensate(ctx context.Context, log *slog.Logger, tr domain.TranscriptRecord, cause error) error {
	log.Error("processing failed", slog.String("error", cause.Error()))
	if err := s.vectors.DeleteCollection(ctx, tr.CollectionName); err != nil {
		log.Error("could not drop collection", slog.String("collection", tr.CollectionName), slog.String("error", err.Error()))
	}
	if err := s.repo.SetIndexState(ctx, tr.ID, domain.IndexFailed); err != nil {
		log.Error("could not mark transcript failed", slog.String("error", err.Error()))
	}
	return cause
}

// Answer is the reply to a question together with the excerpts it is based on.
type Answer struct {
	Text    string
	Sources []domain.SearchResult
}

// Ask answers question from the indexed transcript of the video ytID.
func (s *Service) Ask(ctx context.Context, sess domain.Session, ytID, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	video, err := s.repo.VideoByYouTubeID(ctx, ytID)
	if err != nil {
		return Answer{}, err
	}
	tr, err := s.repo.TranscriptForVideo(ctx, video.ID)
	if err != nil {
		return Answer{}, err
	}
	if tr.IndexState != domain.IndexComplete {
		return Answer{}, fmt.Errorf("video %s is not indexed (%s): %w", ytID, tr.IndexState, domain.ErrNotFound)
	}
	k := chunker.KForChunkSize(tr.ChunkSize)
	sources, err := s.retriever.Retrieve(ctx, tr.CollectionName, question, k)
	if err != nil {
		return Answer{}, err
	}
	text, err := s.responder.Answer(ctx, sess, question, rag.Texts(sources))
	if err != nil {
		return Answer{}, err
	}
	s.logger.Info("answered question",
		slog.String("video_id", ytID),
		slog.String("model", sess.Model),
		slog.Int("k", k),
		slog.Int("sources", len(sources)),
	)
	return Answer{Text: text, Sources: sources}, nil
}

// Videos lists saved videos.
func (s *Service) Videos(ctx context.Context) ([]domain.Video, error) {
	return s.repo.ListVideos(ctx)
}

// Channels lists channels of saved videos.
func (s *Service) Channels(ctx context.Context) ([]string, error) {
	return s.repo.Channels(ctx)
}

// SaveSummary stores a summary of the video ytID in the library.
func (s *Service) SaveSummary(ctx context.Context, ytID, text string) (domain.LibraryEntry, error) {
	return s.saveEntry(ctx, ytID, domain.LibraryEntry{Type: domain.EntrySummary, Text: text})
}

// SaveAnswer stores an answer about the video ytID in the library.
func (s *Service) SaveAnswer(ctx context.Context, ytID, question, text string) (domain.LibraryEntry, error) {
	return s.saveEntry(ctx, ytID, domain.LibraryEntry{Type: domain.EntryAnswer, Question: question, Text: text})
}

func (s *Service) saveEntry(ctx context.Context, ytID string, e domain.LibraryEntry) (domain.LibraryEntry, error) {
	video, err := s.repo.VideoByYouTubeID(ctx, ytID)
	if err != nil {
		return domain.LibraryEntry{}, err
	}
	e.VideoID = video.ID
	saved, err := s.repo.SaveEntry(ctx, e)
	if err != nil {
		return domain.LibraryEntry{}, err
	}
	saved.VideoTitle, saved.VideoChannel = video.Title, video.Channel
	return saved, nil
}

// Library lists saved entries matching f.
func (s *Service) Library(ctx context.Context, f store.LibraryFilter) ([]domain.LibraryEntry, error) {
	return s.repo.Entries(ctx, f)
}

// DeleteEntry removes one library entry.
func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	return s.repo.DeleteEntry(ctx, id)
}

// DeleteVideo removes the video ytID with its transcript, library entries and index.
func (s *Service) DeleteVideo(ctx context.Context, ytID string) error {
	video, err := s.repo.VideoByYouTubeID(ctx, ytID)
	if err != nil {
		return err
	}
	collection := ytID
	if tr, err := s.repo.TranscriptForVideo(ctx, video.ID); err == nil {
		collection = tr.CollectionName
	}
	if err := s.repo.DeleteVideo(ctx, video.ID); err != nil {
		return err
	}
	if err := s.vectors.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("video deleted but its index remains: %w", err)
	}
	s.logger.Info("deleted video", slog.String("video_id", ytID))
	return nil
}
