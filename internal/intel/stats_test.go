package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicStats(t *testing.T) {
	stats := BasicStats("Hello world. How are you?")

	assert.Equal(t, 25, stats.CharCount)
	assert.Equal(t, 5, stats.WordCount)
	assert.Equal(t, 2, stats.SentenceCount)
	assert.InDelta(t, 2.5, stats.AvgSentenceLength, 0.001)
	assert.InDelta(t, 0.03, stats.ReadingTimeMinutes, 0.001)
}

func TestBasicStatsEmpty(t *testing.T) {
	stats := BasicStats("")

	assert.Equal(t, 0, stats.WordCount)
	assert.Equal(t, 0, stats.SentenceCount)
	assert.Equal(t, 0.0, stats.AvgSentenceLength)
	assert.Equal(t, 0.0, stats.ReadingTimeMinutes)
}

func TestBasicStatsIgnoresEmptySentenceFragments(t *testing.T) {
	stats := BasicStats("One sentence... with trailing dots!!")
	assert.Equal(t, 2, stats.SentenceCount)
}

func TestComplexityBounds(t *testing.T) {
	assert.Equal(t, 0.0, Complexity(""))
	assert.Equal(t, 0.0, Complexity("   "))

	score := Complexity("The comprehensive infrastructure modernization initiative encompasses heterogeneous architectural paradigms.")
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
}

func TestComplexityRewardsDiversity(t *testing.T) {
	repetitive := Complexity("cat cat cat cat cat cat cat cat cat cat")
	diverse := Complexity("feline canine bovine equine porcine leporine lupine vulpine ursine aquiline")

	assert.Greater(t, diverse, repetitive)
}

func TestSplitSentences(t *testing.T) {
	sentences := splitSentences("First. Second! Third? ")
	assert.Equal(t, []string{"First", " Second", " Third"}, sentences)
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("Hello, World/2024 edition!")
	assert.Equal(t, []string{"hello", "world", "2024", "edition"}, tokens)
}
