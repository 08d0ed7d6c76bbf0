package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ytai/internal/domain"
)

// DefaultSeparators are tried in order, from paragraphs down to single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Config configures a Recursive chunker.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	// Length measures a text in the unit of ChunkSize. Defaults to Characters.
	Length     func(string) int
	Separators []string
}

// Characters counts runes.
func Characters(s string) int { return utf8.RuneCountInString(s) }

// Recursive splits text on a hierarchy of separators and merges the pieces
// greedily into chunks of at most ChunkSize units.
// Separators stay attached to the piece they terminate, so the pieces of a
// text always concatenate back to the text.
type Recursive struct {
	size       int
	overlap    int
	length     func(string) int
	separators []string
}

type span struct{ start, end int }

// NewRecursive validates cfg and creates a chunker.
func NewRecursive(cfg Config) (*Recursive, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrInvalidInput, cfg.ChunkOverlap)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", domain.ErrInvalidInput, cfg.ChunkOverlap, cfg.ChunkSize)
	}
	length := cfg.Length
	if length == nil {
		length = Characters
	}
	seps := cfg.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return &Recursive{size: cfg.ChunkSize, overlap: cfg.ChunkOverlap, length: length, separators: seps}, nil
}

// Split cuts text into ordered chunks.
func (r *Recursive) Split(text string) ([]domain.Chunk, error) {
	if text == "" {
		return nil, nil
	}
	pieces := r.pieces(text, span{0, len(text)}, r.separators)
	return r.merge(text, pieces), nil
}

// Texts returns only the text of the chunks of text.
func (r *Recursive) Texts(text string) ([]string, error) {
	chunks, err := r.Split(text)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out, nil
}

// pieces breaks s into contiguous spans that fit the chunk size where the
// separators allow it. A span that cannot be broken further is kept whole.
func (r *Recursive) pieces(text string, s span, seps []string) []span {
	part := text[s.start:s.end]
	if r.length(part) <= r.size || len(seps) == 0 {
		return []span{s}
	}
	i := 0
	for i < len(seps)-1 && !strings.Contains(part, seps[i]) {
		i++
	}
	sep, rest := seps[i], seps[i+1:]

	var out []span
	for _, p := range splitKeep(part, sep) {
		p.start += s.start
		p.end += s.start
		if r.length(text[p.start:p.end]) <= r.size {
			out = append(out, p)
			continue
		}
		out = append(out, r.pieces(text, p, rest)...)
	}
	return out
}

// splitKeep splits s after every occurrence of sep, or into runes when sep is empty.
func splitKeep(s, sep string) []span {
	var out []span
	if sep == "" {
		for i, rn := range s {
			out = append(out, span{i, i + utf8.RuneLen(rn)})
		}
		return out
	}
	start := 0
	for start < len(s) {
		j := strings.Index(s[start:], sep)
		if j < 0 {
			out = append(out, span{start, len(s)})
			break
		}
		end := start + j + len(sep)
		out = append(out, span{start, end})
		start = end
	}
	return out
}

func (r *Recursive) merge(text string, pieces []span) []domain.Chunk {
	var chunks []domain.Chunk
	prevEnd := 0
	a := 0
	for a < len(pieces) {
		b := a + 1
		for b < len(pieces) && r.length(text[pieces[a].start:pieces[b].end]) <= r.size {
			b++
		}
		start, end := pieces[a].start, pieces[b-1].end
		overlap := 0
		if len(chunks) > 0 && prevEnd > start {
			overlap = prevEnd - start
		}
		chunks = append(chunks, domain.Chunk{
			Index:   len(chunks),
			Text:    text[start:end],
			Start:   start,
			End:     end,
			Overlap: overlap,
		})
		prevEnd = end
		if b == len(pieces) {
			break
		}
		// Step back over trailing pieces that fit the overlap and still leave room for the next piece.
		j := b
		for j-1 > a &&
			r.length(text[pieces[j-1].start:end]) <= r.overlap &&
			r.length(text[pieces[j-1].start:pieces[b].end]) <= r.size {
			j--
		}
		a = j
	}
	return chunks
}
