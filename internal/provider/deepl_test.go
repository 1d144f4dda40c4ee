package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricofy/translation-proxy/internal/domain"
)

func TestDeepLClient_Translate(t *testing.T) {
	var got deeplRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DeepL-Auth-Key secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"[Titre] Bonjour"}]}`))
	}))
	defer srv.Close()

	c := NewDeepLClient(srv.URL, "secret", time.Second)
	out, err := c.Translate(context.Background(), []string{"[Title] Hello"}, "fr-CA", "en")
	require.NoError(t, err)

	assert.Equal(t, []Output{{Text: "[Titre] Bonjour", OK: true}}, out)
	assert.Equal(t, []string{"[Title] Hello"}, got.Text)
	assert.Equal(t, "FR", got.TargetLang)
	assert.Equal(t, "EN", got.SourceLang)
}

func TestDeepLClient_ErrorStatusTruncatesBody(t *testing.T) {
	body := strings.Repeat("e", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, body, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewDeepLClient(srv.URL, "secret", time.Second)
	_, err := c.Translate(context.Background(), []string{"x"}, "fr", "")
	require.Error(t, err)

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindProvider, de.Kind)
	assert.Contains(t, de.Message, "503")
	assert.Equal(t, "translation provider returned 503: "+strings.Repeat("e", domain.MaxDiagnosticLength), de.Message)
}

func TestDeepLClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewDeepLClient(srv.URL, "secret", time.Second).Translate(context.Background(), []string{"x"}, "fr", "")
	assert.Equal(t, domain.KindProvider, domain.KindOf(err))
}

func TestDeepLClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewDeepLClient(srv.URL, "secret", 20*time.Millisecond).Translate(context.Background(), []string{"x"}, "fr", "")
	assert.Equal(t, domain.KindProvider, domain.KindOf(err))
}

func TestDeepLClient_MissingKey(t *testing.T) {
	c := NewDeepLClient("http://localhost", "", time.Second)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(c.Configured()))

	_, err := c.Translate(context.Background(), []string{"x"}, "fr", "")
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}

func TestDeepLTarget(t *testing.T) {
	tests := map[string]string{
		"fr":      "FR",
		"fr-CA":   "FR",
		"pt-BR":   "PT-BR",
		"zh-Hans": "ZH-HANS",
		"en-gb":   "EN-GB",
		"de-AT":   "DE",
	}
	for in, want := range tests {
		assert.Equal(t, want, DeepLTarget(in), in)
	}
}
