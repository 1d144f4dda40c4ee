// Package app assembles the translation proxy from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pricofy/translation-proxy/internal/config"
	"github.com/pricofy/translation-proxy/internal/handler"
	"github.com/pricofy/translation-proxy/internal/metrics"
	"github.com/pricofy/translation-proxy/internal/pipeline"
	"github.com/pricofy/translation-proxy/internal/provider"
	"github.com/pricofy/translation-proxy/internal/quota"
	"github.com/pricofy/translation-proxy/internal/refine"
)

// App holds the wired components.
type App struct {
	Handler  *handler.Handler
	Pipeline *pipeline.Pipeline
	Registry *prometheus.Registry

	closers []func() error
}

// Close releases resources held by the quota store.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// New builds every component named by cfg.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Registry: prometheus.NewRegistry()}
	awsCfg := &lazyAWS{}

	store, err := a.quotaStore(ctx, cfg.Quota, awsCfg)
	if err != nil {
		return nil, err
	}

	backend, err := newBackend(ctx, cfg.Provider, awsCfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var completer refine.Completer
	if cfg.Refine.Enabled() {
		completer = refine.NewOpenAIClient(cfg.Refine.Endpoint, cfg.Refine.Model, cfg.Refine.APIKey,
			cfg.Refine.Temperature, cfg.Refine.Timeout)
	}

	a.Pipeline = pipeline.New(pipeline.Deps{
		Limits: pipeline.Limits{
			MaxItems:      cfg.Limits.MaxItems,
			MaxTextLength: cfg.Limits.MaxTextLength,
		},
		Limiter:    quota.NewLimiter(store, cfg.Quota.DailyLimit, cfg.Quota.Window, log.Named("quota")),
		Translator: provider.NewAdapter(backend, cfg.Provider.SourceLang, log.Named("provider")),
		Refiner:    refine.New(completer, log.Named("refine")),
		Metrics:    metrics.New(a.Registry),
		Log:        log.Named("pipeline"),
	})
	a.Handler = handler.New(a.Pipeline, log.Named("handler"))

	log.Info("translation proxy ready",
		zap.String("quota_backend", cfg.Quota.Backend),
		zap.String("provider", cfg.Provider.Backend),
		zap.Bool("refinement", cfg.Refine.Enabled()))

	return a, nil
}

func (a *App) quotaStore(ctx context.Context, cfg config.QuotaConfig, awsCfg *lazyAWS) (quota.Store, error) {
	switch cfg.Backend {
	case config.BackendDynamoDB:
		c, err := awsCfg.load(ctx)
		if err != nil {
			return nil, err
		}
		return quota.NewDynamoDBStore(dynamodb.NewFromConfig(c), cfg.Table), nil
	case config.BackendPostgres:
		store, err := quota.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.BackendMemory:
		return quota.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown quota backend %q", cfg.Backend)
}

func newBackend(ctx context.Context, cfg config.ProviderConfig, awsCfg *lazyAWS) (provider.Backend, error) {
	switch cfg.Backend {
	case config.ProviderLambda:
		c, err := awsCfg.load(ctx)
		if err != nil {
			return nil, err
		}
		return provider.NewLambdaClient(lambda.NewFromConfig(c), cfg.FunctionName, cfg.MaxTokens, cfg.Timeout), nil
	case config.ProviderDeepL:
		return provider.NewDeepLClient(cfg.Endpoint, cfg.APIKey, cfg.Timeout), nil
	}
	return nil, fmt.Errorf("unknown provider backend %q", cfg.Backend)
}

// lazyAWS loads the shared AWS configuration only when a backend needs it.
type lazyAWS struct {
	cfg    aws.Config
	loaded bool
}

func (l *lazyAWS) load(ctx context.Context) (aws.Config, error) {
	if l.loaded {
		return l.cfg, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	l.cfg, l.loaded = cfg, true
	return cfg, nil
}
