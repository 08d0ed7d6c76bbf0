package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput indicates a URL or parameter that cannot be used
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("not found")

	// ErrCapacityExceeded indicates a prompt does not fit the model's context window
	ErrCapacityExceeded = errors.New("context window exceeded")

	// ErrProvider indicates an external provider failed or returned garbage
	ErrProvider = errors.New("provider error")

	// ErrAuth indicates the provider rejected the credentials
	ErrAuth = errors.New("authentication failed")

	// ErrPartialIndexing indicates that indexing stopped after some records were written
	ErrPartialIndexing = errors.New("partial indexing")
)

// CapacityError reports a prompt that is larger than a model's context window.
type CapacityError struct {
	Model  string
	Total  int
	Tokens int
}

func (e *CapacityError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your transcript exceeds the context window of the chosen model (%s), which is %d tokens. ", e.Model, e.Total)
	b.WriteString("Consider the following options:\n")
	b.WriteString("1. Choose another model with a larger context window (such as gpt-4o).\n")
	b.WriteString("2. Use the chat feature to ask specific questions about the video. There you won't be limited by the number of tokens.")
	return b.String()
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// PartialIndexError reports an embedding failure after Indexed records were already added.
type PartialIndexError struct {
	Collection string
	Indexed    int
	Err        error
}

func (e *PartialIndexError) Error() string {
	return fmt.Sprintf("indexing %s stopped after %d records: %v", e.Collection, e.Indexed, e.Err)
}

// Unwrap exposes both the partial-indexing class and the root cause.
func (e *PartialIndexError) Unwrap() []error { return []error{ErrPartialIndexing, e.Err} }

// WrapProvider marks err as a provider failure while keeping it inspectable.
func WrapProvider(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrProvider, err)
}

// ProviderErrorf wraps a provider failure so that errors.Is(err, ErrProvider) holds.
func ProviderErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProvider, fmt.Sprintf(format, args...))
}
