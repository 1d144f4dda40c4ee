// Package abbrev resolves short month and weekday abbreviations from a
// static dictionary, without calling a translation provider.
package abbrev

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/pricofy/translation-proxy/internal/domain"
)

//go:embed dictionary.yaml
var dictionaryYAML []byte

// Dictionary maps an uppercase abbreviation to localized forms keyed by
// locale or base language code.
type Dictionary map[string]map[string]string

// Resolver looks up abbreviations. It is immutable after construction and
// safe for concurrent use.
type Resolver struct {
	entries Dictionary
}

// New creates a resolver over entries. Keys are normalized to upper case.
func New(entries Dictionary) *Resolver {
	normalized := make(Dictionary, len(entries))
	for key, locales := range entries {
		normalized[strings.ToUpper(strings.TrimSpace(key))] = locales
	}
	return &Resolver{entries: normalized}
}

// Parse decodes a YAML dictionary.
func Parse(data []byte) (*Resolver, error) {
	var entries Dictionary
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse abbreviation dictionary: %w", err)
	}
	return New(entries), nil
}

var (
	defaultOnce     sync.Once
	defaultResolver *Resolver
)

// Default returns the resolver over the embedded dictionary.
func Default() *Resolver {
	defaultOnce.Do(func() {
		r, err := Parse(dictionaryYAML)
		if err != nil {
			panic(err)
		}
		defaultResolver = r
	})
	return defaultResolver
}

// Len returns the number of abbreviations in the dictionary.
func (r *Resolver) Len() int {
	return len(r.entries)
}

// Resolve returns the localized form of text for locale. The exact locale
// is tried first, then its base language. The result follows the casing of
// the input.
func (r *Resolver) Resolve(text, locale string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}

	locales, ok := r.entries[strings.ToUpper(trimmed)]
	if !ok {
		return "", false
	}

	match, ok := locales[locale]
	if !ok {
		base, _, _ := strings.Cut(locale, "-")
		match, ok = locales[strings.ToLower(base)]
		if !ok {
			return "", false
		}
	}

	return restoreCase(trimmed, match, locale), true
}

// Split partitions items into dictionary hits and the items that still need
// a provider. Both keep request order.
func (r *Resolver) Split(items []domain.TextItem, locale string) (hits []domain.Translation, misses []domain.TextItem) {
	for _, item := range items {
		if translated, ok := r.Resolve(item.Text, locale); ok {
			hits = append(hits, domain.Translation{ID: item.ID, Text: translated, Status: domain.StatusResolved})
			continue
		}
		misses = append(misses, item)
	}
	return hits, misses
}

func restoreCase(original, match, locale string) string {
	tag := language.Make(locale)
	upper := cases.Upper(tag)
	lower := cases.Lower(tag)

	switch {
	case original == strings.ToUpper(original):
		return upper.String(match)
	case original == strings.ToLower(original):
		return lower.String(match)
	}

	first, size := utf8.DecodeRuneInString(original)
	rest := original[size:]
	if unicode.IsUpper(first) && rest != strings.ToUpper(rest) {
		head, headSize := utf8.DecodeRuneInString(match)
		return upper.String(string(head)) + lower.String(match[headSize:])
	}
	return match
}
