package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ContentKey derives the cache address for a document from its bytes and
// size. Identical bytes always yield identical keys regardless of filename.
func ContentKey(data []byte) string {
	h := sha256.New()
	h.Write(data)
	fmt.Fprintf(h, ":%d", len(data))
	return hex.EncodeToString(h.Sum(nil))
}

// AnswerKey derives the cache address for an answer from the content keys of
// every document in the session plus the normalized question text. Rephrased
// questions only collide when textually identical after case and whitespace
// folding.
func AnswerKey(contentKeys []string, question string) string {
	sorted := make([]string, len(contentKeys))
	copy(sorted, contentKeys)
	sort.Strings(sorted)

	h := sha256.New()
	for _, key := range sorted {
		h.Write([]byte(key))
		h.Write([]byte{'\n'})
	}
	h.Write([]byte(NormalizeQuestion(question)))
	return "ans-" + hex.EncodeToString(h.Sum(nil))
}

// NormalizeQuestion lowercases and collapses all whitespace runs to single
// spaces.
func NormalizeQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}
