package rag

import (
	"context"
	"fmt"
	"strings"

	"ytai/internal/domain"
)

// SystemPrompt keeps answers grounded in the retrieved excerpts.
const SystemPrompt = `You are going to receive excerpts from a video transcript as context. Furthermore, a user will provide a question or a topic.
If you receive a question, give a detailed answer. If you receive a topic, summarize the information on this topic.
In either case, keep your response ground solely in the facts of the context.
If the context does not contain the facts to answer the question, apologize and say that you don't know the answer.`

const contextSeparator = "\n\n---\n\n"

// UserPrompt places the joined excerpts in front of the question.
func UserPrompt(question string, chunks []string) string {
	return fmt.Sprintf("Context: %s\n---\n\nHere is the users question/topic: %s", strings.Join(chunks, contextSeparator), question)
}

// Responder answers questions from retrieved context.
type Responder struct{}

// NewResponder creates a Responder.
func NewResponder() *Responder { return &Responder{} }

// Answer makes one call to sess.Chat with the question and its context.
func (Responder) Answer(ctx context.Context, sess domain.Session, question string, chunks []string) (string, error) {
	if sess.Chat == nil {
		return "", fmt.Errorf("%w: session has no chat model", domain.ErrInvalidInput)
	}
	out, err := sess.Chat.Chat(ctx, sess.Request(
		domain.Message{Role: domain.RoleSystem, Content: SystemPrompt},
		domain.Message{Role: domain.RoleUser, Content: UserPrompt(question, chunks)},
	))
	if err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	return out, nil
}

// Texts returns the text of each search result.
func Texts(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}
