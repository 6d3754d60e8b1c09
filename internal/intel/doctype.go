package intel

import "strings"

// DocumentType is a heuristic classification of a document.
type DocumentType string

const (
	TypeReport   DocumentType = "report"
	TypeContract DocumentType = "contract"
	TypeInvoice  DocumentType = "invoice"
	TypeOther    DocumentType = "other"
)

// Declaration order doubles as the tie-break order.
var typePatterns = []struct {
	docType  DocumentType
	keywords []string
}{
	{TypeReport, []string{"executive summary", "findings", "conclusion", "analysis", "results", "appendix"}},
	{TypeContract, []string{"agreement", "party", "shall", "terms", "conditions", "hereby"}},
	{TypeInvoice, []string{"invoice", "total", "amount", "payment", "due date", "bill"}},
}

// DetectType matches keyword patterns against the text. Equal scores pick
// the earlier declared type; no keyword hit at all yields TypeOther.
func DetectType(text string) DocumentType {
	lower := strings.ToLower(text)

	best := TypeOther
	bestScore := 0
	for _, pattern := range typePatterns {
		score := 0
		for _, keyword := range pattern.keywords {
			if strings.Contains(lower, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = pattern.docType
			bestScore = score
		}
	}
	return best
}
