package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pricofy/translation-proxy/internal/domain"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// deeplRegionalTargets are the regional target codes DeepL accepts; any
// other locale is sent as its base language.
var deeplRegionalTargets = map[string]bool{
	"EN-GB": true, "EN-US": true,
	"PT-BR": true, "PT-PT": true,
	"ZH-HANS": true, "ZH-HANT": true,
	"ES-419": true,
}

// DeepLClient calls a DeepL-compatible JSON translate endpoint.
type DeepLClient struct {
	Endpoint string
	APIKey   string
	HTTP     *http.Client
}

// NewDeepLClient creates a client with a bounded request timeout.
func NewDeepLClient(endpoint, apiKey string, timeout time.Duration) *DeepLClient {
	return &DeepLClient{
		Endpoint: endpoint,
		APIKey:   apiKey,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

type deeplRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
	SourceLang string   `json:"source_lang,omitempty"`
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

func (c *DeepLClient) Configured() error {
	if c.APIKey == "" {
		return domain.ConfigurationError("translation provider API key is not configured")
	}
	if c.Endpoint == "" {
		return domain.ConfigurationError("translation provider endpoint is not configured")
	}
	return nil
}

func (c *DeepLClient) Translate(ctx context.Context, texts []string, targetLocale, sourceLang string) ([]Output, error) {
	if err := c.Configured(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return []Output{}, nil
	}

	body, err := json.Marshal(deeplRequest{
		Text:       texts,
		TargetLang: DeepLTarget(targetLocale),
		SourceLang: strings.ToUpper(BaseLanguage(sourceLang)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, domain.ProviderError("translation request failed", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.ProviderError(fmt.Sprintf("translation provider returned %d", resp.StatusCode), string(b), nil)
	}

	var decoded deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.ProviderError("invalid translation provider response", "", err)
	}

	out := make([]Output, len(decoded.Translations))
	for i, t := range decoded.Translations {
		out[i] = Output{Text: t.Text, OK: true}
	}
	return out, nil
}

// DeepLTarget maps a locale code to a DeepL target_lang value.
func DeepLTarget(locale string) string {
	upper := strings.ToUpper(locale)
	if deeplRegionalTargets[upper] {
		return upper
	}
	return strings.ToUpper(BaseLanguage(locale))
}
