// Package refine runs an optional LLM pass that adjusts formatting and
// naturalness of translations. Failures never propagate: the stage falls
// back to its input.
package refine

import (
	"context"

	"go.uber.org/zap"

	"github.com/pricofy/translation-proxy/internal/domain"
)

// Completer sends a system and user prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Outcome is the tagged result of a refinement attempt. Results is always
// safe to return to the caller.
type Outcome struct {
	Status  domain.Status
	Results []domain.Translation
	Reason  string
}

// Skipped reports whether refinement was not attempted at all.
func (o Outcome) Skipped() bool {
	return o.Status == domain.StatusFallback && o.Reason == ReasonDisabled
}

// Fallback reasons.
const (
	ReasonDisabled = "refinement not configured"
	ReasonEmpty    = "nothing to refine"
	ReasonPrompt   = "failed to build prompt"
	ReasonCall     = "refinement call failed"
	ReasonParse    = "unparseable refinement reply"
)

// Stage is the refinement stage. A Stage with a nil Completer is an
// identity function.
type Stage struct {
	completer Completer
	log       *zap.Logger
}

// New creates a stage. Pass a nil completer to disable refinement.
func New(completer Completer, log *zap.Logger) *Stage {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stage{completer: completer, log: log}
}

// Enabled reports whether a model is configured.
func (s *Stage) Enabled() bool {
	return s != nil && s.completer != nil
}

// Refine adjusts results for the requested locale. originals supplies layer
// names and source text by id.
func (s *Stage) Refine(ctx context.Context, originals []domain.TextItem, results []domain.Translation, locale domain.LocaleRequest) Outcome {
	if !s.Enabled() {
		return fallback(results, ReasonDisabled)
	}
	if len(results) == 0 {
		return fallback(results, ReasonEmpty)
	}

	user, err := BuildUserPrompt(originals, results, locale)
	if err != nil {
		s.log.Warn("refinement skipped", zap.String("reason", ReasonPrompt), zap.Error(err))
		return fallback(results, ReasonPrompt)
	}

	reply, err := s.completer.Complete(ctx, SystemPrompt, user)
	if err != nil {
		s.log.Warn("refinement failed, using provider output", zap.String("reason", ReasonCall), zap.Error(err))
		return fallback(results, ReasonCall)
	}

	refined, err := ParseResults(reply)
	if err != nil {
		s.log.Warn("refinement failed, using provider output", zap.String("reason", ReasonParse), zap.Error(err))
		return fallback(results, ReasonParse)
	}

	return Outcome{Status: domain.StatusResolved, Results: Merge(results, refined)}
}

func fallback(results []domain.Translation, reason string) Outcome {
	return Outcome{Status: domain.StatusFallback, Results: results, Reason: reason}
}
