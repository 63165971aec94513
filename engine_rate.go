package gatekeeper

import (
	"context"
	"errors"

	"github.com/MrEthical07/gatekeeper/internal/rate"
)

// Allow counts one request of class from addr. It returns a *RateLimitError when the
// window ceiling is exceeded. When the counter store is unreachable and FailOpen is set,
// the request is allowed and the outage is logged.
func (e *Engine) Allow(ctx context.Context, class RateClass, addr string) (RateDecision, error) {
	if e == nil {
		return RateDecision{}, ErrEngineNotReady
	}
	if e.rateLimiter == nil {
		return RateDecision{Class: class, Allowed: true}, nil
	}

	d, err := e.rateLimiter.Allow(ctx, rate.Class(class), addr)
	decision := RateDecision{
		Class:      class,
		Allowed:    d.Allowed,
		Limit:      d.Limit,
		Remaining:  d.Remaining,
		ResetAt:    d.ResetAt,
		RetryAfter: d.RetryAfter,
		FailedOpen: d.FailedOpen,
	}

	if err != nil {
		if errors.Is(err, rate.ErrRedisUnavailable) {
			if decision.FailedOpen {
				e.metricInc(MetricRateLimitFailOpen)
				e.logger.Warn("gatekeeper: rate limiter failing open",
					"class", string(class),
					"addr", addr,
					"error", err,
				)
				e.emitAudit(ctx, AuditRateLimitFailOpen, true, "", nil, func() map[string]string {
					return map[string]string{"class": string(class)}
				})
				return decision, nil
			}
			e.logger.Error("gatekeeper: rate limiter unavailable", "class", string(class), "error", err)
			return decision, errors.Join(ErrStoreUnavailable, err)
		}
		return decision, err
	}

	if !decision.Allowed {
		e.metricInc(MetricRateLimitHit)
		e.emitAudit(ctx, AuditRateLimited, false, "", ErrRateLimited, func() map[string]string {
			return map[string]string{"class": string(class)}
		})
		return decision, &RateLimitError{Decision: decision}
	}
	return decision, nil
}

// RatePolicy returns the configured window of class.
func (e *Engine) RatePolicy(class RateClass) (RatePolicy, bool) {
	if e == nil || e.rateLimiter == nil {
		return RatePolicy{}, false
	}
	p, ok := e.rateLimiter.Policy(rate.Class(class))
	return RatePolicy(p), ok
}
