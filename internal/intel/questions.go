package intel

import (
	"fmt"
	"strings"
)

// Question is one suggested question tagged with its category.
type Question struct {
	Question string `json:"question"`
	Category string `json:"category"`
}

const (
	categoryFactual       = "factual"
	categoryAnalytical    = "analytical"
	categoryComparative   = "comparative"
	categoryClarification = "clarification"
)

// SmartQuestions builds template-driven question suggestions from the
// extracted topics and detected document type, capped at max and
// deduplicated by normalized text.
func SmartQuestions(topics []string, docType DocumentType, max int) []Question {
	if max <= 0 {
		return nil
	}

	var candidates []Question
	for _, topic := range topics {
		candidates = append(candidates,
			Question{fmt.Sprintf("What does the document say about %s?", topic), categoryFactual},
			Question{fmt.Sprintf("What conclusions are drawn about %s?", topic), categoryAnalytical},
			Question{fmt.Sprintf("How is %s treated across the different documents?", topic), categoryComparative},
		)
	}
	if docType != TypeOther {
		candidates = append(candidates,
			Question{fmt.Sprintf("What are the key points of this %s?", docType), categoryFactual},
			Question{fmt.Sprintf("Is any information missing that a %s usually contains?", docType), categoryClarification},
		)
	}
	candidates = append(candidates,
		Question{"What is the main topic of this document?", categoryFactual},
		Question{"What are the most important dates or numbers mentioned?", categoryFactual},
		Question{"What conclusions can be drawn from this document?", categoryAnalytical},
		Question{"Are there any unclear or ambiguous points?", categoryClarification},
	)

	seen := make(map[string]struct{}, len(candidates))
	questions := make([]Question, 0, max)
	for _, q := range candidates {
		norm := strings.Join(strings.Fields(strings.ToLower(q.Question)), " ")
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		questions = append(questions, q)
		if len(questions) == max {
			break
		}
	}
	return questions
}
