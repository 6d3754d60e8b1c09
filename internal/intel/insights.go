package intel

import (
	"sort"
	"strings"
)

// DocumentAnalysis is the full per-document analysis.
type DocumentAnalysis struct {
	Filename   string       `json:"filename"`
	Stats      Stats        `json:"stats"`
	Complexity float64      `json:"complexity_score"`
	Type       DocumentType `json:"document_type"`
	Topics     []string     `json:"topics"`
}

// Analyze runs the full analysis over one document's extracted text.
func Analyze(filename, text string, maxTopics int) DocumentAnalysis {
	return DocumentAnalysis{
		Filename:   filename,
		Stats:      BasicStats(text),
		Complexity: Complexity(text),
		Type:       DetectType(text),
		Topics:     Topics(text, maxTopics),
	}
}

// Insights aggregates analysis across all documents of one session.
type Insights struct {
	TotalDocuments          int            `json:"total_documents"`
	TotalWords              int            `json:"total_words"`
	AverageComplexity       float64        `json:"average_complexity"`
	CommonTopics            []string       `json:"common_topics"`
	DocumentTypes           map[string]int `json:"document_types"`
	TotalReadingTimeMinutes float64        `json:"total_reading_time_minutes"`
}

// CrossDocumentInsights intersects per-document topic sets case-insensitively
// and sums reading metrics.
func CrossDocumentInsights(analyses []DocumentAnalysis) Insights {
	insights := Insights{
		TotalDocuments: len(analyses),
		DocumentTypes:  make(map[string]int),
	}
	if len(analyses) == 0 {
		return insights
	}

	totalComplexity := 0.0
	topicCounts := make(map[string]int)
	for _, a := range analyses {
		insights.TotalWords += a.Stats.WordCount
		insights.TotalReadingTimeMinutes += a.Stats.ReadingTimeMinutes
		totalComplexity += a.Complexity
		insights.DocumentTypes[string(a.Type)]++

		seen := make(map[string]struct{}, len(a.Topics))
		for _, topic := range a.Topics {
			lower := strings.ToLower(topic)
			if _, dup := seen[lower]; dup {
				continue
			}
			seen[lower] = struct{}{}
			topicCounts[lower]++
		}
	}

	var common []string
	for topic, count := range topicCounts {
		if count == len(analyses) {
			common = append(common, topic)
		}
	}
	sort.Strings(common)

	insights.AverageComplexity = round2(totalComplexity / float64(len(analyses)))
	insights.TotalReadingTimeMinutes = round2(insights.TotalReadingTimeMinutes)
	insights.CommonTopics = common
	return insights
}
