package service

import (
	"context"
	"fmt"
	"log/slog"

	"ytai/internal/domain"
)

// AvailableModels returns the models of kind that can be selected for provider.
// With a configured selection the result keeps its order and drops what the
// provider does not serve. Without one every served model is returned.
// Provider listings are cached per provider and kind.
func (s *Service) AvailableModels(ctx context.Context, provider string, kind domain.ModelKind) ([]string, error) {
	lister, ok := s.listers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, provider)
	}
	key := provider + ":" + string(kind)
	served, hit, err := s.modelCache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("model cache unavailable", slog.String("provider", provider), slog.String("error", err.Error()))
	}
	if !hit {
		if served, err = lister.Models(ctx, kind); err != nil {
			return nil, err
		}
		if err := s.modelCache.Set(ctx, key, served); err != nil {
			s.logger.Warn("could not cache models", slog.String("provider", provider), slog.String("error", err.Error()))
		}
	}

	selectable := s.selectable[provider]
	if kind != domain.ModelChat || len(selectable) == 0 {
		return served, nil
	}
	have := make(map[string]struct{}, len(served))
	for _, id := range served {
		have[id] = struct{}{}
	}
	out := make([]string, 0, len(selectable))
	for _, id := range selectable {
		if _, ok := have[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}
