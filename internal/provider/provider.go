// Package provider calls the external machine-translation service for items
// the dictionary fast path did not resolve.
package provider

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/pricofy/translation-proxy/internal/codec"
	"github.com/pricofy/translation-proxy/internal/domain"
)

// AutoSourceLang makes the adapter detect the source language per batch.
const AutoSourceLang = "auto"

// Output is one provider result slot. OK is false when the provider
// returned nothing for the corresponding input.
type Output struct {
	Text string
	OK   bool
}

// Backend sends one batch of already-wrapped texts to a provider. The
// returned slice is index-aligned with texts but may be shorter; a missing
// tail counts as slots with OK false.
type Backend interface {
	Translate(ctx context.Context, texts []string, targetLocale, sourceLang string) ([]Output, error)
	// Configured reports a configuration error when credentials are missing.
	Configured() error
}

// Adapter wraps items with their layer hint, calls the backend once and
// unwraps the results.
type Adapter struct {
	backend    Backend
	sourceLang string
	log        *zap.Logger
}

// NewAdapter creates an adapter. sourceLang is a language code or
// AutoSourceLang.
func NewAdapter(backend Backend, sourceLang string, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{backend: backend, sourceLang: sourceLang, log: log}
}

// Configured reports whether the backend can be called.
func (a *Adapter) Configured() error {
	return a.backend.Configured()
}

// TranslateBatch translates items into targetLocale. The result is
// index-aligned with items. Items the provider did not return fall back to
// their source text.
func (a *Adapter) TranslateBatch(ctx context.Context, items []domain.TextItem, targetLocale string) ([]domain.Translation, error) {
	if len(items) == 0 {
		return []domain.Translation{}, nil
	}

	// Same base language needs no provider call
	source := a.sourceLanguage(items)
	if source != "" && BaseLanguage(source) == BaseLanguage(targetLocale) {
		a.log.Debug("target shares source language, skipping provider",
			zap.String("source", source), zap.String("target", targetLocale))
		out := make([]domain.Translation, len(items))
		for i, item := range items {
			out[i] = domain.Translation{ID: item.ID, Text: item.Text, Status: domain.StatusResolved}
		}
		return out, nil
	}

	// Add layer context hints
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = codec.Wrap(item)
	}

	translated, err := a.backend.Translate(ctx, texts, targetLocale, source)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, domain.ProviderError("translation request failed", "", err)
	}

	// Unwrap by position; missing slots keep the source text
	out := make([]domain.Translation, len(items))
	missing := 0
	for i, item := range items {
		if i < len(translated) && translated[i].OK {
			out[i] = domain.Translation{ID: item.ID, Text: codec.Unwrap(translated[i].Text, item.LayerName), Status: domain.StatusResolved}
			continue
		}
		out[i] = domain.Translation{ID: item.ID, Text: item.Text, Status: domain.StatusFallback}
		missing++
	}

	if missing > 0 {
		a.log.Warn("provider returned a partial batch",
			zap.Int("sent", len(items)), zap.Int("missing", missing))
	}
	return out, nil
}

func (a *Adapter) sourceLanguage(items []domain.TextItem) string {
	if !strings.EqualFold(a.sourceLang, AutoSourceLang) {
		return a.sourceLang
	}
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}
	code, _ := DetectLanguage(strings.Join(texts, "\n"))
	if code == UndeterminedLanguage {
		return ""
	}
	return code
}

// BaseLanguage returns the lowercase language subtag of a locale code.
func BaseLanguage(locale string) string {
	if tag, err := language.Parse(locale); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			return base.String()
		}
	}
	base, _, _ := strings.Cut(locale, "-")
	return strings.ToLower(base)
}
