package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ytai/internal/domain"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates a collection on its first Add.
type Storage struct {
	url    string
	apiKey string
	client *http.Client
}

var _ domain.VectorStore = (*Storage)(nil)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type statusError struct {
	method string
	url    string
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.URL == "" {
		cfg.URL = "http://localhost:6333"
	}
	return &Storage{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *Storage) collectionURL(name string) string {
	return fmt.Sprintf("%s/collections/%s", s.url, url.PathEscape(name))
}

// Count returns the exact number of points in the collection; a missing collection counts as empty.
func (s *Storage) Count(ctx context.Context, name string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.doJSON(ctx, http.MethodPost, s.collectionURL(name)+"/points/count", map[string]any{"exact": true}, &resp)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *Storage) ensureCollection(ctx context.Context, name string, dimension int) error {
	err := s.doJSON(ctx, http.MethodGet, s.collectionURL(name), nil, nil)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.doJSON(ctx, http.MethodPut, s.collectionURL(name), body, nil)
}

func (s *Storage) Add(ctx context.Context, name string, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	dimension := len(records[0].Vector)
	if dimension == 0 {
		return errors.New("invalid dimension")
	}
	if err := s.ensureCollection(ctx, name, dimension); err != nil {
		return err
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		if len(r.Vector) != dimension {
			return errors.New("vector dimension mismatch")
		}
		points[i] = map[string]any{
			"id":      r.ID,
			"vector":  r.Vector,
			"payload": map[string]any{"text": r.Text},
		}
	}
	body := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut, s.collectionURL(name)+"/points?wait=true", body, nil)
}

func (s *Storage) Query(ctx context.Context, name string, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return []domain.SearchResult{}, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := s.doJSON(ctx, http.MethodPost, s.collectionURL(name)+"/points/search", req, &resp)
	if isNotFound(err) {
		return []domain.SearchResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		res := domain.SearchResult{ID: fmt.Sprint(r.ID), Score: r.Score}
		if v, ok := r.Payload["text"].(string); ok {
			res.Text = v
		}
		results = append(results, res)
	}
	return results, nil
}

// DeleteCollection drops the collection; deleting a missing collection succeeds.
func (s *Storage) DeleteCollection(ctx context.Context, name string) error {
	err := s.doJSON(ctx, http.MethodDelete, s.collectionURL(name), nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

func (s *Storage) doJSON(ctx context.Context, method, u string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return domain.WrapProvider("qdrant "+method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %w", domain.ErrProvider, &statusError{method: method, url: u, code: resp.StatusCode, status: resp.Status})
	}
	if out != nil {
		dec := json.NewDecoder(resp.Body)
		return dec.Decode(out)
	}
	return nil
}
