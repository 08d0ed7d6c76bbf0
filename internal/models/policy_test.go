package models

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytai/internal/domain"
)

type wordCounter struct{}

func (wordCounter) Count(text, _ string) int { return len(strings.Fields(text)) }

type fakeSource struct {
	lengths map[string]int
	err     error
	calls   int
}

func (f *fakeSource) ContextLength(_ context.Context, model string) (int, error) {
	f.calls++
	return f.lengths[model], f.err
}

func TestProfileStaticTable(t *testing.T) {
	p := NewPolicy(wordCounter{}, nil, nil)
	ctx := context.Background()

	tests := []struct {
		model  string
		total  int
		output int
	}{
		{"gpt-3.5-turbo", 16385, 4096},
		{"gpt-4", 8192, 4096},
		{"gpt-4-turbo", 128000, 4096},
		{"gpt-4o", 128000, 4096},
		{"gpt-4o-mini", 128000, 16000},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			prof, err := p.Profile(ctx, tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.total, prof.Total)
			assert.Equal(t, tt.output, prof.Output)
		})
	}
}

func TestTotalsNonDecreasingByGeneration(t *testing.T) {
	ids := Known()
	require.NotEmpty(t, ids)
	prev := 0
	for _, id := range ids {
		prof, ok := Lookup(id)
		require.True(t, ok)
		assert.GreaterOrEqual(t, prof.Total, prev, id)
		prev = prof.Total
	}
}

func TestProfileStaticTableSkipsSource(t *testing.T) {
	src := &fakeSource{}
	p := NewPolicy(wordCounter{}, src, nil)
	_, err := p.Profile(context.Background(), "gpt-4o")
	require.NoError(t, err)
	assert.Zero(t, src.calls)
}

func TestProfileUnknownModelAsksSource(t *testing.T) {
	src := &fakeSource{lengths: map[string]int{"llama3": 8192}}
	p := NewPolicy(wordCounter{}, src, nil)

	prof, err := p.Profile(context.Background(), "llama3")
	require.NoError(t, err)
	assert.Equal(t, 8192, prof.Total)
	assert.Equal(t, DefaultLocalOutput, prof.Output)
}

func TestProfileUnknownModelDefaults(t *testing.T) {
	p := NewPolicy(wordCounter{}, &fakeSource{}, nil)
	prof, err := p.Profile(context.Background(), "mystery")
	require.NoError(t, err)
	assert.Equal(t, DefaultContextLength, prof.Total)

	p = NewPolicy(wordCounter{}, nil, nil)
	prof, err = p.Profile(context.Background(), "mystery")
	require.NoError(t, err)
	assert.Equal(t, DefaultContextLength, prof.Total)
}

func TestProfileSourceError(t *testing.T) {
	p := NewPolicy(wordCounter{}, &fakeSource{err: domain.ErrProvider}, nil)
	_, err := p.Profile(context.Background(), "llama3")
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestCheck(t *testing.T) {
	src := &fakeSource{lengths: map[string]int{"tiny": 10}}
	p := NewPolicy(wordCounter{}, src, nil)
	ctx := context.Background()

	require.NoError(t, p.Check(ctx, "tiny", "one two three", "four five six seven"))
	require.NoError(t, p.Check(ctx, "tiny", "one two three", "4 5 6 7 8 9 10"))

	err := p.Check(ctx, "tiny", "one two three", "4 5 6 7 8 9 10 11")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCapacityExceeded))

	var capErr *domain.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "tiny", capErr.Model)
	assert.Equal(t, 10, capErr.Total)
	assert.Equal(t, 11, capErr.Tokens)
	assert.Contains(t, capErr.Error(), "(tiny)")
	assert.Contains(t, capErr.Error(), "10 tokens")
}
