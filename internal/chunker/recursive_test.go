package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytai/internal/domain"
)

func rebuild(chunks []domain.Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c.Text)
			continue
		}
		b.WriteString(c.Text[c.Overlap:])
	}
	return b.String()
}

func words(s string) int { return len(strings.Fields(s)) }

const sample = "Welcome back to the channel. Today we look at sourdough.\n\n" +
	"First you need a starter. Feed it flour and water every day for a week.\n" +
	"Keep it somewhere warm.\n\n" +
	"Then mix the dough. Use strong bread flour, water and salt. " +
	"Let it rest for an hour before the first fold. Fold four times, thirty minutes apart.\n\n" +
	"Bake at two hundred and fifty degrees in a dutch oven. Thanks for watching!"

func TestNewRecursiveValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -5, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap above size", 10, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecursive(Config{ChunkSize: tt.size, ChunkOverlap: tt.overlap})
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSplitEmpty(t *testing.T) {
	r, err := NewRecursive(Config{ChunkSize: 10})
	require.NoError(t, err)
	chunks, err := r.Split("")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitShortTextIsOneChunk(t *testing.T) {
	r, err := NewRecursive(Config{ChunkSize: 100, ChunkOverlap: 10})
	require.NoError(t, err)
	chunks, err := r.Split("short text")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.Chunk{Index: 0, Text: "short text", Start: 0, End: 10}, chunks[0])
}

func TestSplitReconstructsText(t *testing.T) {
	configs := []Config{
		{ChunkSize: 40, ChunkOverlap: 0},
		{ChunkSize: 40, ChunkOverlap: 10},
		{ChunkSize: 80, ChunkOverlap: 30},
		{ChunkSize: 7, ChunkOverlap: 3},
		{ChunkSize: 12, ChunkOverlap: 4, Length: words},
		{ChunkSize: 3, ChunkOverlap: 1, Length: words},
	}
	for _, cfg := range configs {
		r, err := NewRecursive(cfg)
		require.NoError(t, err)
		chunks, err := r.Split(sample)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		assert.Equal(t, sample, rebuild(chunks), "size=%d overlap=%d", cfg.ChunkSize, cfg.ChunkOverlap)
		assert.Equal(t, 0, chunks[0].Start)
		assert.Equal(t, len(sample), chunks[len(chunks)-1].End)
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	for _, size := range []int{5, 20, 50, 120} {
		r, err := NewRecursive(Config{ChunkSize: size, ChunkOverlap: size / 4})
		require.NoError(t, err)
		chunks, err := r.Split(sample)
		require.NoError(t, err)
		for _, c := range chunks {
			assert.LessOrEqual(t, Characters(c.Text), size, "chunk %d: %q", c.Index, c.Text)
		}
	}
}

func TestSplitOversizedAtomicUnit(t *testing.T) {
	r, err := NewRecursive(Config{ChunkSize: 2, ChunkOverlap: 0, Length: words})
	require.NoError(t, err)
	text := "supercalifragilistic expialidocious and more"
	chunks, err := r.Split(text)
	require.NoError(t, err)
	assert.Equal(t, text, rebuild(chunks))
	for _, c := range chunks {
		assert.LessOrEqual(t, words(c.Text), 2)
	}
}

func TestSplitOverlapSharesPrefix(t *testing.T) {
	r, err := NewRecursive(Config{ChunkSize: 30, ChunkOverlap: 12})
	require.NoError(t, err)
	chunks, err := r.Split(sample)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	overlapped := 0
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		assert.Equal(t, i, cur.Index)
		assert.LessOrEqual(t, Characters(cur.Text[:cur.Overlap]), 12)
		assert.True(t, strings.HasSuffix(prev.Text, cur.Text[:cur.Overlap]))
		assert.Equal(t, prev.End-cur.Start, cur.Overlap)
		if cur.Overlap > 0 {
			overlapped++
		}
	}
	assert.Positive(t, overlapped)
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	text := "aaaa bbbb\n\ncccc dddd"
	r, err := NewRecursive(Config{ChunkSize: 12})
	require.NoError(t, err)
	chunks, err := r.Split(text)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaa bbbb\n\n", chunks[0].Text)
	assert.Equal(t, "cccc dddd", chunks[1].Text)
}

func TestSplitIsDeterministic(t *testing.T) {
	r, err := NewRecursive(Config{ChunkSize: 25, ChunkOverlap: 5})
	require.NoError(t, err)
	first, err := r.Split(sample)
	require.NoError(t, err)
	second, err := r.Split(sample)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSplitMultibyteRunes(t *testing.T) {
	text := "Grüße aus München, schön dass ihr da seid"
	r, err := NewRecursive(Config{ChunkSize: 4, ChunkOverlap: 1})
	require.NoError(t, err)
	chunks, err := r.Split(text)
	require.NoError(t, err)
	assert.Equal(t, text, rebuild(chunks))
	for _, c := range chunks {
		assert.LessOrEqual(t, Characters(c.Text), 4)
	}
}

func TestTexts(t *testing.T) {
	r, err := NewRecursive(Config{ChunkSize: 12})
	require.NoError(t, err)
	texts, err := r.Texts("aaaa bbbb\n\ncccc dddd")
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaa bbbb\n\n", "cccc dddd"}, texts)
}

func TestKForChunkSize(t *testing.T) {
	tests := []struct {
		size int
		k    int
	}{
		{1024, 3},
		{512, 5},
		{256, 10},
		{128, 20},
		{2048, 3},
		{700, 5},
		{300, 10},
		{200, 20},
		{64, 20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.k, KForChunkSize(tt.size), "size %d", tt.size)
	}
}
