package models

import (
	"context"
	"log/slog"

	"ytai/internal/domain"
)

// DefaultContextLength is assumed when neither the table nor the inference server knows a model.
const DefaultContextLength = 4096

// DefaultLocalOutput is the output budget assumed for models served by the inference server.
const DefaultLocalOutput = 2048

// Profile is the token budget of a model.
type Profile struct {
	Total  int
	Output int
}

// ContextLengthSource reports the context length of models it serves.
// A zero length with a nil error means the model does not advertise one.
type ContextLengthSource interface {
	ContextLength(ctx context.Context, model string) (int, error)
}

// Counter estimates token counts.
type Counter interface {
	Count(text, model string) int
}

type entry struct {
	model string
	Profile
}

// known is ordered by model generation; totals never decrease along the list.
var known = []entry{
	{"gpt-4", Profile{Total: 8192, Output: 4096}},
	{"gpt-3.5-turbo", Profile{Total: 16385, Output: 4096}},
	{"gpt-4-turbo", Profile{Total: 128000, Output: 4096}},
	{"gpt-4o", Profile{Total: 128000, Output: 4096}},
	{"gpt-4o-mini", Profile{Total: 128000, Output: 16000}},
	{"gemini-1.5-flash", Profile{Total: 1048576, Output: 8192}},
	{"gemini-1.5-pro", Profile{Total: 2097152, Output: 8192}},
}

// Known returns the model ids of the static table in generation order.
func Known() []string {
	out := make([]string, len(known))
	for i, e := range known {
		out[i] = e.model
	}
	return out
}

// Lookup returns the static profile of model.
func Lookup(model string) (Profile, bool) {
	for _, e := range known {
		if e.model == model {
			return e.Profile, true
		}
	}
	return Profile{}, false
}

// Policy answers how much text a model accepts.
type Policy struct {
	counter Counter
	source  ContextLengthSource
	logger  *slog.Logger
}

// NewPolicy creates a Policy. source may be nil when no inference server is configured.
func NewPolicy(counter Counter, source ContextLengthSource, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{counter: counter, source: source, logger: logger}
}

// Profile returns the token budget of model.
func (p *Policy) Profile(ctx context.Context, model string) (Profile, error) {
	if prof, ok := Lookup(model); ok {
		return prof, nil
	}
	if p.source == nil {
		return Profile{Total: DefaultContextLength, Output: DefaultLocalOutput}, nil
	}
	n, err := p.source.ContextLength(ctx, model)
	if err != nil {
		return Profile{}, err
	}
	if n <= 0 {
		p.logger.Warn("model reports no context length, using default",
			slog.String("model", model), slog.Int("default", DefaultContextLength))
		n = DefaultContextLength
	}
	return Profile{Total: n, Output: DefaultLocalOutput}, nil
}

// Fits reports whether the two prompts fit into the context window of model.
func (p *Policy) Fits(ctx context.Context, model, systemPrompt, userPrompt string) (bool, int, Profile, error) {
	prof, err := p.Profile(ctx, model)
	if err != nil {
		return false, 0, Profile{}, err
	}
	n := p.counter.Count(systemPrompt, model) + p.counter.Count(userPrompt, model)
	return n <= prof.Total, n, prof, nil
}

// Check returns a *domain.CapacityError when the prompts exceed the context window of model.
// Room for the completion is not reserved.
func (p *Policy) Check(ctx context.Context, model, systemPrompt, userPrompt string) error {
	ok, n, prof, err := p.Fits(ctx, model, systemPrompt, userPrompt)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.CapacityError{Model: model, Total: prof.Total, Tokens: n}
	}
	return nil
}
