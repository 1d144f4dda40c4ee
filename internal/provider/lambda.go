package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/pricofy/translation-proxy/internal/chunker"
	"github.com/pricofy/translation-proxy/internal/domain"
)

// LambdaInvoker is the subset of the Lambda client used to reach a
// translator function.
type LambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// TranslatorRequest is the request format for translator functions.
// Texts are grouped into token-bounded chunks processed in order.
type TranslatorRequest struct {
	Chunks     [][]string `json:"chunks"`
	TargetLang string     `json:"target_lang"`
	SourceLang string     `json:"source_lang,omitempty"`
}

// TranslatorResponse is the response format from translator functions.
type TranslatorResponse struct {
	Translations [][]string `json:"translations"`
	Error        string     `json:"error,omitempty"`
}

// LambdaClient sends the whole batch to a translator function in a single
// synchronous invocation.
type LambdaClient struct {
	client       LambdaInvoker
	functionName string
	maxTokens    int
	timeout      time.Duration
}

// NewLambdaClient creates a backend invoking functionName. A positive
// timeout bounds each invocation.
func NewLambdaClient(client LambdaInvoker, functionName string, maxTokens int, timeout time.Duration) *LambdaClient {
	return &LambdaClient{client: client, functionName: functionName, maxTokens: maxTokens, timeout: timeout}
}

func (c *LambdaClient) Configured() error {
	if c.client == nil || c.functionName == "" {
		return domain.ConfigurationError("translator function is not configured")
	}
	return nil
}

func (c *LambdaClient) Translate(ctx context.Context, texts []string, targetLocale, sourceLang string) ([]Output, error) {
	if err := c.Configured(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return []Output{}, nil
	}

	chunks := chunker.ChunkStrings(texts, c.maxTokens)
	payload, err := json.Marshal(TranslatorRequest{
		Chunks:     chunks,
		TargetLang: targetLocale,
		SourceLang: sourceLang,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(c.functionName),
		Payload:      payload,
	})
	if err != nil {
		return nil, domain.ProviderError(fmt.Sprintf("failed to invoke %s", c.functionName), "", err)
	}

	if result.FunctionError != nil {
		return nil, domain.ProviderError("translator function error: "+*result.FunctionError, string(result.Payload), nil)
	}
	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return nil, domain.ProviderError(fmt.Sprintf("translator function returned %d", result.StatusCode), string(result.Payload), nil)
	}

	var resp TranslatorResponse
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return nil, domain.ProviderError("invalid translator response", string(result.Payload), err)
	}
	if resp.Error != "" {
		return nil, domain.ProviderError("translator error", resp.Error, nil)
	}

	// Align results chunk by chunk so a short chunk only loses its own items
	out := make([]Output, 0, len(texts))
	for i, chunk := range chunks {
		var translated []string
		if i < len(resp.Translations) {
			translated = resp.Translations[i]
		}
		for j := range chunk {
			if j < len(translated) {
				out = append(out, Output{Text: translated[j], OK: true})
				continue
			}
			out = append(out, Output{})
		}
	}
	return out, nil
}
