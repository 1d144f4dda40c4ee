// Package pipeline composes validation, quota admission, dictionary
// resolution, provider translation and refinement behind one call.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pricofy/translation-proxy/internal/abbrev"
	"github.com/pricofy/translation-proxy/internal/domain"
	"github.com/pricofy/translation-proxy/internal/metrics"
	"github.com/pricofy/translation-proxy/internal/quota"
	"github.com/pricofy/translation-proxy/internal/refine"
)

// Admitter consumes one quota unit per request.
type Admitter interface {
	Admit(ctx context.Context, identity string) (quota.Decision, error)
	Limit() int
}

// Translator translates dictionary misses.
type Translator interface {
	Configured() error
	TranslateBatch(ctx context.Context, items []domain.TextItem, targetLocale string) ([]domain.Translation, error)
}

// Refiner optionally adjusts the merged results.
type Refiner interface {
	Refine(ctx context.Context, originals []domain.TextItem, results []domain.Translation, locale domain.LocaleRequest) refine.Outcome
}

// Deps are the collaborators of a Pipeline. Metrics and Log may be nil.
type Deps struct {
	Limits     Limits
	Limiter    Admitter
	Resolver   *abbrev.Resolver
	Translator Translator
	Refiner    Refiner
	Metrics    *metrics.Metrics
	Log        *zap.Logger
}

// Pipeline runs translation requests.
type Pipeline struct {
	limits     Limits
	limiter    Admitter
	resolver   *abbrev.Resolver
	translator Translator
	refiner    Refiner
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// New creates a pipeline.
func New(d Deps) *Pipeline {
	if d.Resolver == nil {
		d.Resolver = abbrev.Default()
	}
	if d.Refiner == nil {
		d.Refiner = refine.New(nil, d.Log)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil)
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Pipeline{
		limits:     d.Limits,
		limiter:    d.Limiter,
		resolver:   d.Resolver,
		translator: d.Translator,
		refiner:    d.Refiner,
		metrics:    d.Metrics,
		log:        d.Log,
	}
}

// Limit returns the per-identity quota.
func (p *Pipeline) Limit() int {
	return p.limiter.Limit()
}

// Run handles one request for identity. The returned Response carries the
// remaining quota whenever admission was decided, including on error.
func (p *Pipeline) Run(ctx context.Context, identity string, req domain.Request) (domain.Response, error) {
	resp, err := p.run(ctx, identity, req)
	outcome := "ok"
	if err != nil {
		outcome = domain.KindOf(err).String()
	}
	p.metrics.Requests.WithLabelValues(outcome).Inc()
	return resp, err
}

func (p *Pipeline) run(ctx context.Context, identity string, req domain.Request) (domain.Response, error) {
	resp := domain.Response{Limit: p.limiter.Limit()}

	// Validate request
	if err := Validate(req, p.limits); err != nil {
		return resp, err
	}
	req.TargetLocale = strings.TrimSpace(req.TargetLocale)

	if err := p.translator.Configured(); err != nil {
		p.log.Error("translation provider misconfigured", zap.Error(err))
		return resp, err
	}

	// Consume one quota unit
	decision, err := p.limiter.Admit(ctx, identity)
	if err != nil {
		return resp, err
	}
	resp.Remaining = decision.Remaining
	if !decision.Allowed {
		return resp, domain.QuotaExceeded()
	}

	// Dictionary fast path
	hits, misses := p.resolver.Split(req.TextLayers, req.TargetLocale)
	p.metrics.DictionaryHits.Add(float64(len(hits)))

	var translated []domain.Translation
	if len(misses) > 0 {
		p.metrics.ProviderItems.Add(float64(len(misses)))
		start := time.Now()
		translated, err = p.translator.TranslateBatch(ctx, misses, req.TargetLocale)
		p.metrics.ProviderLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			p.log.Error("translation provider failed",
				zap.String("locale", req.TargetLocale), zap.Int("items", len(misses)), zap.Error(err))
			return resp, err
		}
	}

	// Refinement sees fast-path hits too
	merged := assemble(req.TextLayers, hits, translated)

	outcome := p.refiner.Refine(ctx, req.TextLayers, merged, req.Locale())
	status := string(outcome.Status)
	if outcome.Skipped() {
		status = "skipped"
	}
	p.metrics.Refinements.WithLabelValues(status).Inc()

	resp.Results = domain.Results(assemble(req.TextLayers, outcome.Results, nil))

	p.log.Info("translated",
		zap.String("locale", req.TargetLocale),
		zap.Int("items", len(req.TextLayers)),
		zap.Int("dictionary_hits", len(hits)),
		zap.String("refinement", status),
		zap.Int("remaining", resp.Remaining))

	return resp, nil
}

// assemble orders stage outputs by the request's item order. Every request
// id appears exactly once; an id no stage produced keeps its source text.
func assemble(items []domain.TextItem, parts ...[]domain.Translation) []domain.Translation {
	byID := make(map[string]domain.Translation, len(items))
	for _, part := range parts {
		for _, t := range part {
			if _, ok := byID[t.ID]; !ok {
				byID[t.ID] = t
			}
		}
	}

	out := make([]domain.Translation, len(items))
	for i, item := range items {
		if t, ok := byID[item.ID]; ok {
			out[i] = t
			continue
		}
		out[i] = domain.Translation{ID: item.ID, Text: item.Text, Status: domain.StatusFallback}
	}
	return out
}
