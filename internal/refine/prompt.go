package refine

import (
	"encoding/json"

	"github.com/pricofy/translation-proxy/internal/domain"
)

// SystemPrompt instructs the model how to adjust machine translations.
const SystemPrompt = `You are a localization reviewer for UI text in a design tool. You receive machine translations of short text layers and adjust them for the target locale.

Rules:
1. Currency: reformat prices to the target locale's currency symbol placement and decimal/thousands separators while keeping the numeric value. Never convert between currencies or apply exchange rates. When currency hints are given, use them.
2. Dates and numbers: adapt date order, month/day names and number formatting to the target locale's conventions.
3. Abbreviations: if the original is abbreviated, keep the result similarly short.
4. Naturalness: improve wording so it reads naturally to a native speaker without changing the meaning.
5. Never translate proper nouns or brand names.

Respond with ONLY a JSON array of objects with exactly the keys "id" and "translated", one per input item, in any order. No prose, no markdown.`

type promptItem struct {
	ID          string `json:"id"`
	LayerName   string `json:"layerName"`
	Original    string `json:"original"`
	Translation string `json:"translation"`
}

type promptPayload struct {
	TargetLocale string       `json:"targetLocale"`
	LocaleLabel  string       `json:"localeLabel,omitempty"`
	Currencies   []string     `json:"currencies,omitempty"`
	Items        []promptItem `json:"items"`
}

// BuildUserPrompt describes the locale and every item as JSON. Items are
// matched to originals by id.
func BuildUserPrompt(originals []domain.TextItem, results []domain.Translation, locale domain.LocaleRequest) (string, error) {
	byID := make(map[string]domain.TextItem, len(originals))
	for _, item := range originals {
		byID[item.ID] = item
	}

	payload := promptPayload{
		TargetLocale: locale.TargetLocale,
		LocaleLabel:  locale.LocaleLabel,
		Currencies:   locale.LocaleCurrencies,
		Items:        make([]promptItem, 0, len(results)),
	}
	for _, r := range results {
		orig := byID[r.ID]
		payload.Items = append(payload.Items, promptItem{
			ID:          r.ID,
			LayerName:   orig.LayerName,
			Original:    orig.Text,
			Translation: r.Text,
		})
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
