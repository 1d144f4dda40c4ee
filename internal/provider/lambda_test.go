package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricofy/translation-proxy/internal/domain"
)

type fakeInvoker struct {
	input *lambda.InvokeInput
	out   *lambda.InvokeOutput
	err   error
	// block waits for the context or the release channel before returning.
	block   bool
	release chan struct{}
}

func (f *fakeInvoker) Invoke(ctx context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.input = in
	if f.block {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.release:
		}
	}
	return f.out, f.err
}

func okPayload(t *testing.T, resp TranslatorResponse) *lambda.InvokeOutput {
	t.Helper()
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	return &lambda.InvokeOutput{StatusCode: 200, Payload: b}
}

func TestLambdaClient_Translate(t *testing.T) {
	invoker := &fakeInvoker{out: okPayload(t, TranslatorResponse{
		Translations: [][]string{{"[Titre] Bonjour"}, {"[Corps] Monde"}},
	})}
	c := NewLambdaClient(invoker, "translator", 5, time.Second)

	out, err := c.Translate(context.Background(), []string{"[Title] Hello", "[Body] " + strings.Repeat("w", 20)}, "fr", "en")
	require.NoError(t, err)
	assert.Equal(t, []Output{{Text: "[Titre] Bonjour", OK: true}, {Text: "[Corps] Monde", OK: true}}, out)

	assert.Equal(t, "translator", aws.ToString(invoker.input.FunctionName))
	var req TranslatorRequest
	require.NoError(t, json.Unmarshal(invoker.input.Payload, &req))
	assert.Len(t, req.Chunks, 2)
	assert.Equal(t, "fr", req.TargetLang)
	assert.Equal(t, "en", req.SourceLang)
}

func TestLambdaClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		invoker *fakeInvoker
	}{
		{"invoke error", &fakeInvoker{err: errors.New("throttled")}},
		{"function error", &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 200, FunctionError: aws.String("Unhandled"), Payload: []byte(`{"errorMessage":"oom"}`)}}},
		{"translator error", &fakeInvoker{out: okPayload(t, TranslatorResponse{Error: "model not loaded"})}},
		{"bad payload", &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 200, Payload: []byte("nope")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLambdaClient(tt.invoker, "translator", 0, time.Second).Translate(context.Background(), []string{"x"}, "fr", "")
			assert.Equal(t, domain.KindProvider, domain.KindOf(err))
		})
	}
}

func TestLambdaClient_NotConfigured(t *testing.T) {
	c := NewLambdaClient(nil, "", 0, 0)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(c.Configured()))
}

func TestLambdaClient_ShortChunkKeepsAlignment(t *testing.T) {
	texts := []string{"[L] a", "[L] b", "[L] " + strings.Repeat("c", 12)}
	invoker := &fakeInvoker{out: okPayload(t, TranslatorResponse{
		Translations: [][]string{{"[L] A-fr"}, {"[L] C-fr"}},
	})}

	out, err := NewLambdaClient(invoker, "translator", 5, time.Second).Translate(context.Background(), texts, "fr", "en")
	require.NoError(t, err)

	var req TranslatorRequest
	require.NoError(t, json.Unmarshal(invoker.input.Payload, &req))
	require.Equal(t, [][]string{{texts[0], texts[1]}, {texts[2]}}, req.Chunks)

	assert.Equal(t, []Output{
		{Text: "[L] A-fr", OK: true},
		{},
		{Text: "[L] C-fr", OK: true},
	}, out)
}

func TestLambdaClient_MissingChunk(t *testing.T) {
	texts := []string{"[L] a", "[L] " + strings.Repeat("c", 24)}
	invoker := &fakeInvoker{out: okPayload(t, TranslatorResponse{
		Translations: [][]string{{"[L] A-fr"}},
	})}

	out, err := NewLambdaClient(invoker, "translator", 5, time.Second).Translate(context.Background(), texts, "fr", "en")
	require.NoError(t, err)
	assert.Equal(t, []Output{{Text: "[L] A-fr", OK: true}, {}}, out)
}

func TestAdapter_LambdaShortChunkFallsBackPerItem(t *testing.T) {
	invoker := &fakeInvoker{out: okPayload(t, TranslatorResponse{
		Translations: [][]string{{"[L] A-fr"}, {"[L] C-fr"}},
	})}
	adapter := NewAdapter(NewLambdaClient(invoker, "translator", 5, time.Second), "en", nil)

	items := []domain.TextItem{
		{ID: "a", LayerName: "L", Text: "a"},
		{ID: "b", LayerName: "L", Text: "b"},
		{ID: "c", LayerName: "L", Text: strings.Repeat("c", 12)},
	}
	got, err := adapter.TranslateBatch(context.Background(), items, "fr")
	require.NoError(t, err)

	assert.Equal(t, []domain.Translation{
		{ID: "a", Text: "A-fr", Status: domain.StatusResolved},
		{ID: "b", Text: "b", Status: domain.StatusFallback},
		{ID: "c", Text: "C-fr", Status: domain.StatusResolved},
	}, got)
}

func TestLambdaClient_Timeout(t *testing.T) {
	invoker := &fakeInvoker{block: true, release: make(chan struct{})}
	defer close(invoker.release)

	start := time.Now()
	_, err := NewLambdaClient(invoker, "translator", 0, 50*time.Millisecond).Translate(context.Background(), []string{"x"}, "fr", "")

	assert.Equal(t, domain.KindProvider, domain.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
