package intel

import (
	"math"
	"sort"
)

// Document pairs a filename with its extracted text for similarity search.
type Document struct {
	Name string
	Text string
}

// Match is one chunk scored against the query.
type Match struct {
	Score         float64 `json:"score"`
	Filename      string  `json:"filename"`
	DocumentIndex int     `json:"document_index"`
	Offset        int     `json:"offset"`
	Text          string  `json:"text"`
}

type chunk struct {
	offset int
	text   string
}

// SimilaritySearch splits each document into fixed-size chunks, scores each
// against the query by term-frequency cosine similarity, and returns up to
// topK matches at or above threshold in descending score order. Ties keep
// (document order, chunk offset) order.
func SimilaritySearch(query string, docs []Document, chunkSize int, threshold float64, topK int) []Match {
	if topK <= 0 || query == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = 500
	}

	queryVec := termFreq(tokenize(query))
	if len(queryVec) == 0 {
		return nil
	}

	var matches []Match
	for docIdx, doc := range docs {
		for _, ch := range splitChunks(doc.Text, chunkSize) {
			score := cosine(queryVec, termFreq(tokenize(ch.text)))
			if score < threshold {
				continue
			}
			matches = append(matches, Match{
				Score:         round4(score),
				Filename:      doc.Name,
				DocumentIndex: docIdx,
				Offset:        ch.offset,
				Text:          ch.text,
			})
		}
	}

	// Matches were built in (document, offset) order; a stable sort by score
	// alone preserves that order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// splitChunks cuts text into consecutive rune slices of at most size runes,
// each tagged with its stable rune offset.
func splitChunks(text string, size int) []chunk {
	runes := []rune(text)
	var chunks []chunk
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, chunk{offset: i, text: string(runes[i:end])})
	}
	return chunks
}

func termFreq(tokens []string) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}
	vec := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		vec[t]++
	}
	return vec
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for term, av := range a {
		normA += av * av
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	for _, bv := range b {
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
