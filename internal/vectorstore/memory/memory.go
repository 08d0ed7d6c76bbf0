package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"ytai/internal/domain"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	records   []domain.Record
}

var _ domain.VectorStore = (*Storage)(nil)

func NewStorage() *Storage { return &Storage{collections: make(map[string]*collection)} }

func (s *Storage) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return 0, nil
	}
	return len(c.records), nil
}

// Add appends records to the named collection, creating it with the dimension of the first vector.
func (s *Storage) Add(_ context.Context, name string, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		if len(records[0].Vector) == 0 {
			return errors.New("invalid dimension")
		}
		c = &collection{dimension: len(records[0].Vector)}
	}
	for _, r := range records {
		if len(r.Vector) != c.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	for _, r := range records {
		r.Vector = append([]float64(nil), r.Vector...)
		c.records = append(c.records, r)
	}
	s.collections[name] = c
	return nil
}

// Query returns up to topK records most similar to vector, best first.
func (s *Storage) Query(_ context.Context, name string, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return []domain.SearchResult{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != c.dimension {
		return nil, errors.New("vector dimension mismatch")
	}
	results := make([]domain.SearchResult, len(c.records))
	for i, r := range c.records {
		results[i] = domain.SearchResult{ID: r.ID, Text: r.Text, Score: cosine(r.Vector, vector)}
	}
	// Ties keep insertion order
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func (s *Storage) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
