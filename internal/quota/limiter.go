package quota

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pricofy/translation-proxy/internal/domain"
)

// AnonymousIdentity is the shared bucket for callers that send no identity.
const AnonymousIdentity = "anonymous"

// Decision is the result of an admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
}

// Limiter admits requests against a fixed per-identity quota.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	log    *zap.Logger
}

// NewLimiter creates a limiter allowing limit admissions per window.
func NewLimiter(store Store, limit int, window time.Duration, log *zap.Logger) *Limiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{store: store, limit: limit, window: window, log: log}
}

// Limit returns the configured quota per window.
func (l *Limiter) Limit() int {
	return l.limit
}

// Admit consumes one quota unit for identity if any remain. A store failure
// denies the request and returns an unavailable error.
func (l *Limiter) Admit(ctx context.Context, identity string) (Decision, error) {
	if identity == "" {
		identity = AnonymousIdentity
	}

	count, allowed, err := l.store.IncrementIfUnder(ctx, identity, l.limit, l.window)
	if err != nil {
		l.log.Error("quota store unavailable", zap.String("identity", identity), zap.Error(err))
		return Decision{Allowed: false, Remaining: 0, Limit: l.limit},
			domain.UnavailableError("quota store unavailable", err)
	}
	if !allowed {
		l.log.Info("quota exceeded", zap.String("identity", identity), zap.Int("count", count))
		return Decision{Allowed: false, Remaining: 0, Limit: l.limit}, nil
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining, Limit: l.limit}, nil
}
