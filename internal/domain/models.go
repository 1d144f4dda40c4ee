// Package domain contains the core domain types for the translation proxy.
package domain

// TextItem is a single snippet submitted for translation.
// ID is the correlation key carried through every stage.
type TextItem struct {
	ID        string `json:"id"`
	LayerName string `json:"layerName"`
	Text      string `json:"text"`
}

// TranslationResult is the localized output for one TextItem.
type TranslationResult struct {
	ID         string `json:"id"`
	Translated string `json:"translated"`
}

// LocaleRequest describes the requested output locale.
type LocaleRequest struct {
	TargetLocale     string   `json:"targetLocale"`
	LocaleLabel      string   `json:"localeLabel,omitempty"`
	LocaleCurrencies []string `json:"localeCurrencies,omitempty"`
}

// Request is the inbound translation request body.
type Request struct {
	TextLayers       []TextItem `json:"textLayers"`
	TargetLocale     string     `json:"targetLocale"`
	LocaleLabel      string     `json:"localeLabel,omitempty"`
	LocaleCurrencies []string   `json:"localeCurrencies,omitempty"`
}

// Locale returns the locale part of the request.
func (r Request) Locale() LocaleRequest {
	return LocaleRequest{
		TargetLocale:     r.TargetLocale,
		LocaleLabel:      r.LocaleLabel,
		LocaleCurrencies: r.LocaleCurrencies,
	}
}

// Response is the outcome of a successful pipeline run.
type Response struct {
	Results   []TranslationResult
	Remaining int
	Limit     int
}

// ErrorBody is the JSON body returned for every non-success response.
type ErrorBody struct {
	Error       string `json:"error"`
	RateLimited bool   `json:"rateLimited,omitempty"`
	Remaining   *int   `json:"remaining,omitempty"`
}

// Status tags the outcome of a stage for one item or one batch.
type Status string

const (
	StatusResolved Status = "resolved"
	StatusFallback Status = "fallback"
	StatusError    Status = "error"
)

// Translation is a provider result tagged with how it was produced.
type Translation struct {
	ID     string
	Text   string
	Status Status
}

// Results strips the outcome tags.
func Results(ts []Translation) []TranslationResult {
	out := make([]TranslationResult, len(ts))
	for i, t := range ts {
		out[i] = TranslationResult{ID: t.ID, Translated: t.Text}
	}
	return out
}
