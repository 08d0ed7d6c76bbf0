package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ytai/internal/domain"
)

// Checker enforces context windows.
type Checker interface {
	Check(ctx context.Context, model, systemPrompt, userPrompt string) error
}

// Counter estimates token counts.
type Counter interface {
	Count(text, model string) int
}

// Summarizer turns a full transcript into a markdown summary with one model call.
type Summarizer struct {
	checker Checker
	counter Counter
	logger  *slog.Logger
}

// New creates a Summarizer.
func New(checker Checker, counter Counter, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{checker: checker, counter: counter, logger: logger}
}

// Summarize asks sess.Chat for a summary of transcript, or for the response to
// instruction when one is given. The model output is returned verbatim.
func (s *Summarizer) Summarize(ctx context.Context, sess domain.Session, transcript, instruction string) (string, error) {
	if sess.Chat == nil {
		return "", fmt.Errorf("%w: session has no chat model", domain.ErrInvalidInput)
	}
	user := UserPrompt(transcript, strings.TrimSpace(instruction))
	if err := s.checker.Check(ctx, sess.Model, SystemPrompt, user); err != nil {
		return "", err
	}
	s.logger.Info("requesting summary",
		slog.String("model", sess.Model),
		slog.Int("input_tokens", s.counter.Count(SystemPrompt, sess.Model)+s.counter.Count(user, sess.Model)),
		slog.Bool("custom", instruction != ""),
	)
	out, err := sess.Chat.Chat(ctx, sess.Request(
		domain.Message{Role: domain.RoleSystem, Content: SystemPrompt},
		domain.Message{Role: domain.RoleUser, Content: user},
	))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return out, nil
}

// Preprocess rewrites each excerpt of an auto-generated transcript into clean
// prose, one model call per excerpt in order, and joins the results.
func (s *Summarizer) Preprocess(ctx context.Context, sess domain.Session, excerpts []string) (string, error) {
	if sess.Chat == nil {
		return "", fmt.Errorf("%w: session has no chat model", domain.ErrInvalidInput)
	}
	parts := make([]string, 0, len(excerpts))
	for i, excerpt := range excerpts {
		out, err := sess.Chat.Chat(ctx, sess.Request(
			domain.Message{Role: domain.RoleSystem, Content: preprocessSystemPrompt},
			domain.Message{Role: domain.RoleUser, Content: preprocessPrompt(i, excerpt)},
		))
		if err != nil {
			return "", fmt.Errorf("preprocess excerpt %d of %d: %w", i+1, len(excerpts), err)
		}
		parts = append(parts, out)
	}
	s.logger.Info("preprocessed transcript", slog.String("model", sess.Model), slog.Int("excerpts", len(excerpts)))
	return strings.Join(parts, "\n\n"), nil
}
