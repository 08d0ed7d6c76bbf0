package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
	wordPattern     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// Highlights picks up to n sentences of text that carry its most frequent
// content words, in their original order. It needs no model and is used for
// previews of freshly indexed transcripts.
func Highlights(text string, n int) []string {
	if n <= 0 {
		n = 3
	}
	var sentences []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= n {
		return sentences
	}

	freq := map[string]float64{}
	tokens := make([][]string, len(sentences))
	for i, s := range sentences {
		tokens[i] = contentWords(s)
		for _, w := range tokens[i] {
			freq[w]++
		}
	}
	top := 0.0
	for _, v := range freq {
		top = math.Max(top, v)
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, words := range tokens {
		var sum float64
		for _, w := range words {
			sum += freq[w] / top
		}
		if len(words) > 0 {
			sum /= math.Sqrt(float64(len(words)))
		}
		scores[i] = scored{idx: i, score: sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	picked := make([]int, n)
	for i := range picked {
		picked[i] = scores[i].idx
	}
	sort.Ints(picked)
	out := make([]string, n)
	for i, idx := range picked {
		out[i] = sentences[idx]
	}
	return out
}

func contentWords(sentence string) []string {
	var out []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(sentence), -1) {
		if _, stop := stopwords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "so", "such", "into", "about", "than", "too", "very", "can",
		"will", "just", "should", "now", "i", "you", "we", "they", "he", "she", "um", "uh", "like", "yeah",
		"okay", "gonna", "really", "know", "right",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
