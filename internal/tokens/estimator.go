package tokens

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// DefaultEncoding is used for models that tiktoken cannot map.
const DefaultEncoding = "o200k_base"

// DefaultModel is the model assumed when callers do not name one.
const DefaultModel = "gpt-4o-mini"

// Encoder counts the tokens of a text for one encoding.
type Encoder interface {
	Count(text string) (int, error)
}

// Resolver maps a model identifier to an Encoder.
type Resolver func(model string) (Encoder, error)

// Estimator approximates token counts per model.
// Encoders are resolved once per model and kept for the lifetime of the Estimator.
type Estimator struct {
	logger  *slog.Logger
	resolve Resolver

	mu       sync.Mutex
	encoders map[string]Encoder
	failed   map[string]bool
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLogger sets the logger used to report resolution failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Estimator) { e.logger = l }
}

// WithResolver replaces the tiktoken based resolver.
func WithResolver(r Resolver) Option {
	return func(e *Estimator) { e.resolve = r }
}

// WithTokenizerFiles routes the given models to HuggingFace tokenizer.json files.
// Models not in the map still go through tiktoken.
func WithTokenizerFiles(files map[string]string) Option {
	return func(e *Estimator) {
		next := e.resolve
		e.resolve = func(model string) (Encoder, error) {
			if path, ok := files[model]; ok && path != "" {
				return loadHFTokenizer(path)
			}
			return next(model)
		}
	}
}

// NewEstimator creates an Estimator backed by tiktoken encodings.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		encoders: make(map[string]Encoder),
		failed:   make(map[string]bool),
	}
	e.resolve = e.tiktokenEncoder
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Count returns the estimated number of tokens in text for model.
// When no encoder is usable it falls back to the number of whitespace separated words.
func (e *Estimator) Count(text, model string) int {
	if text == "" {
		return 0
	}
	if model == "" {
		model = DefaultModel
	}
	enc := e.encoder(model)
	if enc == nil {
		return WordCount(text)
	}
	n, err := enc.Count(text)
	if err != nil || n < 0 {
		e.logger.Warn("tokenization failed, using word count", slog.String("model", model), slog.Any("error", err))
		return WordCount(text)
	}
	return n
}

// Length returns a length function bound to model, suitable for the chunker.
func (e *Estimator) Length(model string) func(string) int {
	return func(s string) int { return e.Count(s, model) }
}

// WordCount is the coarse fallback estimate.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func (e *Estimator) encoder(model string) Encoder {
	e.mu.Lock()
	defer e.mu.Unlock()
	if enc, ok := e.encoders[model]; ok {
		return enc
	}
	if e.failed[model] {
		return nil
	}
	enc, err := e.resolve(model)
	if err != nil {
		e.logger.Error("no tokenizer available, falling back to word count",
			slog.String("model", model), slog.Any("error", err))
		e.failed[model] = true
		return nil
	}
	e.encoders[model] = enc
	return enc
}

func (e *Estimator) tiktokenEncoder(model string) (Encoder, error) {
	tk, err := tiktoken.EncodingForModel(model)
	if err == nil {
		return tiktokenEncoder{tk: tk}, nil
	}
	e.logger.Warn("couldn't map model to tokenizer", slog.String("model", model), slog.Any("error", err))
	tk, err = tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", DefaultEncoding, err)
	}
	return tiktokenEncoder{tk: tk}, nil
}

type tiktokenEncoder struct {
	tk *tiktoken.Tiktoken
}

func (t tiktokenEncoder) Count(text string) (int, error) {
	return len(t.tk.Encode(text, nil, nil)), nil
}

type hfEncoder struct {
	tk *tokenizer.Tokenizer
}

func loadHFTokenizer(path string) (Encoder, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return hfEncoder{tk: tk}, nil
}

func (h hfEncoder) Count(text string) (int, error) {
	enc, err := h.tk.EncodeSingle(text)
	if err != nil {
		return 0, err
	}
	return len(enc.GetIds()), nil
}
