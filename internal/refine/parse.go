package refine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pricofy/translation-proxy/internal/domain"
)

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// ParseResults decodes a model reply into id/translation pairs. A fenced
// code block around the array is tolerated; anything other than a JSON array
// is an error.
func ParseResults(content string) ([]domain.TranslationResult, error) {
	content = strings.TrimSpace(content)
	if m := markdownCodeBlock.FindStringSubmatch(content); m != nil {
		content = m[1]
	}
	if !strings.HasPrefix(content, "[") {
		return nil, fmt.Errorf("refinement reply is not a JSON array")
	}

	var results []domain.TranslationResult
	if err := json.Unmarshal([]byte(content), &results); err != nil {
		return nil, fmt.Errorf("failed to parse refinement reply: %w", err)
	}
	return results, nil
}

// Merge applies refined texts to results by id. Results without a usable
// refinement keep their value; refinements for unknown ids are ignored.
func Merge(results []domain.Translation, refined []domain.TranslationResult) []domain.Translation {
	byID := make(map[string]string, len(refined))
	for _, r := range refined {
		if r.ID == "" || strings.TrimSpace(r.Translated) == "" {
			continue
		}
		byID[r.ID] = r.Translated
	}

	out := make([]domain.Translation, len(results))
	for i, r := range results {
		if text, ok := byID[r.ID]; ok {
			out[i] = domain.Translation{ID: r.ID, Text: text, Status: domain.StatusResolved}
			continue
		}
		out[i] = r
	}
	return out
}
