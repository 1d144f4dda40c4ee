// Package codec adds a layer-name hint in front of text sent to the
// translation provider and removes it from the provider's output.
package codec

import (
	"strings"
	"unicode/utf8"

	"github.com/pricofy/translation-proxy/internal/domain"
)

const (
	marker = "] "

	// prefixSlack is how far past the layer name the closing marker may
	// appear and still be treated as the echoed hint. Translated layer
	// names can be longer than the original.
	prefixSlack = 20
)

// Wrap returns "[layerName] text".
func Wrap(item domain.TextItem) string {
	return "[" + item.LayerName + marker + item.Text
}

// Unwrap strips an echoed "[...] " prefix from provider output. The prefix
// is only removed when its closing marker starts within
// len(layerName)+prefixSlack characters of the start, so brackets later in
// the content survive.
func Unwrap(output, layerName string) string {
	idx := strings.Index(output, marker)
	if idx >= 0 && utf8.RuneCountInString(output[:idx]) < utf8.RuneCountInString(layerName)+prefixSlack {
		return strings.TrimSpace(output[idx+len(marker):])
	}
	return strings.TrimSpace(output)
}
