package pipeline

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/pricofy/translation-proxy/internal/domain"
)

// Limits bounds request size.
type Limits struct {
	MaxItems      int
	MaxTextLength int
}

// Validate checks the request is well formed and within limits.
func Validate(req domain.Request, limits Limits) error {
	if req.TextLayers == nil {
		return domain.ValidationError("textLayers must be an array")
	}
	locale := strings.TrimSpace(req.TargetLocale)
	if locale == "" {
		return domain.ValidationError("targetLocale is required")
	}
	if _, err := language.Parse(locale); err != nil && !isUnknownSubtag(err) {
		return domain.ValidationError("targetLocale %q is not a valid locale identifier", req.TargetLocale)
	}
	if limits.MaxItems > 0 && len(req.TextLayers) > limits.MaxItems {
		return domain.ValidationError("too many text layers: %d (max %d)", len(req.TextLayers), limits.MaxItems)
	}

	seen := make(map[string]struct{}, len(req.TextLayers))
	for i, item := range req.TextLayers {
		if item.ID == "" {
			return domain.ValidationError("textLayers[%d].id is required", i)
		}
		if _, dup := seen[item.ID]; dup {
			return domain.ValidationError("duplicate text layer id %q", item.ID)
		}
		seen[item.ID] = struct{}{}

		if limits.MaxTextLength > 0 && utf8.RuneCountInString(item.Text) > limits.MaxTextLength {
			return domain.ValidationError("textLayers[%d].text exceeds %d characters", i, limits.MaxTextLength)
		}
	}
	return nil
}

// isUnknownSubtag reports a well-formed tag with a subtag x/text does not
// know. Such locales are passed through to the provider.
func isUnknownSubtag(err error) bool {
	var ve language.ValueError
	return errors.As(err, &ve)
}
