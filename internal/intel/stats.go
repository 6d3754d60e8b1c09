package intel

import (
	"math"
	"strings"
	"unicode"
)

// Reading speed used for the reading-time estimate.
const wordsPerMinute = 200

// Stats holds basic document measurements.
type Stats struct {
	CharCount          int     `json:"character_count"`
	WordCount          int     `json:"word_count"`
	SentenceCount      int     `json:"sentence_count"`
	AvgSentenceLength  float64 `json:"avg_sentence_length"`
	ReadingTimeMinutes float64 `json:"reading_time_minutes"`
}

// BasicStats computes counts and reading time for the given text.
func BasicStats(text string) Stats {
	words := strings.Fields(text)
	sentences := splitSentences(text)

	avgSentence := 0.0
	if len(sentences) > 0 {
		total := 0
		for _, s := range sentences {
			total += len(strings.Fields(s))
		}
		avgSentence = float64(total) / float64(len(sentences))
	}

	return Stats{
		CharCount:          len(text),
		WordCount:          len(words),
		SentenceCount:      len(sentences),
		AvgSentenceLength:  round2(avgSentence),
		ReadingTimeMinutes: round2(float64(len(words)) / wordsPerMinute),
	}
}

// Complexity scores the text from 0 to 100 by blending vocabulary
// diversity, average word length, and average sentence length.
func Complexity(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	unique := make(map[string]struct{}, len(words))
	totalLen := 0
	for _, w := range words {
		unique[w] = struct{}{}
		totalLen += len(w)
	}
	diversityScore := float64(len(unique)) / float64(len(words)) * 100

	avgWordLen := float64(totalLen) / float64(len(words))
	lengthScore := math.Min(avgWordLen*10, 100)

	sentences := splitSentences(text)
	avgSentenceLen := 0.0
	if len(sentences) > 0 {
		total := 0
		for _, s := range sentences {
			total += len(strings.Fields(s))
		}
		avgSentenceLen = float64(total) / float64(len(sentences))
	}
	sentenceScore := math.Min(avgSentenceLen*2, 100)

	return round2(diversityScore*0.4 + lengthScore*0.3 + sentenceScore*0.3)
}

// splitSentences splits on sentence-terminal punctuation and drops
// whitespace-only fragments.
func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	sentences := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// tokenize lowercases and strips non-letter runes, keeping words only.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return fields
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
