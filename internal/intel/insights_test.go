package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	text := "Executive summary of findings. The budget analysis shows budget growth. Budget conclusions follow."
	analysis := Analyze("report.pdf", text, 3)

	assert.Equal(t, "report.pdf", analysis.Filename)
	assert.Equal(t, TypeReport, analysis.Type)
	assert.Positive(t, analysis.Stats.WordCount)
	assert.Positive(t, analysis.Complexity)
	require.NotEmpty(t, analysis.Topics)
	assert.Equal(t, "budget", analysis.Topics[0])
}

func TestCrossDocumentInsightsAggregates(t *testing.T) {
	analyses := []DocumentAnalysis{
		{
			Filename:   "a.pdf",
			Stats:      Stats{WordCount: 100, ReadingTimeMinutes: 0.5},
			Complexity: 40,
			Type:       TypeReport,
			Topics:     []string{"Budget", "revenue"},
		},
		{
			Filename:   "b.pdf",
			Stats:      Stats{WordCount: 300, ReadingTimeMinutes: 1.5},
			Complexity: 60,
			Type:       TypeInvoice,
			Topics:     []string{"budget", "staffing"},
		},
	}

	insights := CrossDocumentInsights(analyses)

	assert.Equal(t, 2, insights.TotalDocuments)
	assert.Equal(t, 400, insights.TotalWords)
	assert.InDelta(t, 50.0, insights.AverageComplexity, 0.001)
	assert.InDelta(t, 2.0, insights.TotalReadingTimeMinutes, 0.001)

	// Topic intersection is case-insensitive.
	assert.Equal(t, []string{"budget"}, insights.CommonTopics)

	assert.Equal(t, map[string]int{"report": 1, "invoice": 1}, insights.DocumentTypes)
}

func TestCrossDocumentInsightsNoCommonTopics(t *testing.T) {
	analyses := []DocumentAnalysis{
		{Topics: []string{"alpha"}, Type: TypeOther},
		{Topics: []string{"beta"}, Type: TypeOther},
	}

	insights := CrossDocumentInsights(analyses)
	assert.Empty(t, insights.CommonTopics)
}

func TestCrossDocumentInsightsEmpty(t *testing.T) {
	insights := CrossDocumentInsights(nil)

	assert.Equal(t, 0, insights.TotalDocuments)
	assert.Empty(t, insights.CommonTopics)
	assert.NotNil(t, insights.DocumentTypes)
}
