package quota

import (
	"context"
	"log/slog"
	"time"

	"github.com/sentiq-platform/sentiq/internal/config"
	"github.com/sentiq-platform/sentiq/internal/metrics"
)

// ViolationSink receives denial events for operator forensics. Failures to
// record are never surfaced to the caller.
type ViolationSink interface {
	RecordViolation(ctx context.Context, identityKey, reason string) error
}

// Gate orchestrates one quota evaluation: derive the identity key, run the
// evaluator inside a store transaction, commit the next record, and map store
// failures onto the configured fallback policy. Only Allow or Deny-with-reason
// ever reach the caller; store errors do not escape.
type Gate struct {
	store      Store
	eval       *Evaluator
	cfg        config.AbuseConfig
	violations ViolationSink
}

// NewGate creates a gate over the given store. violations may be nil.
func NewGate(store Store, cfg config.AbuseConfig, violations ViolationSink) *Gate {
	return &Gate{
		store: store,
		eval: NewEvaluator(Limits{
			DailyLimit:         cfg.DailyLimit,
			CooldownDays:       cfg.CooldownDays,
			CooldownDailyLimit: cfg.CooldownDailyLimit,
			BurstMinInterval:   time.Duration(cfg.BurstMinIntervalMS) * time.Millisecond,
			BurstBlock:         time.Duration(cfg.BurstBlockSeconds) * time.Second,
		}),
		cfg:        cfg,
		violations: violations,
	}
}

// Evaluate decides whether the request from rawAddr may proceed. The master
// switch and any store failure under the fail-open policy both resolve to
// Allow so the gate cannot become a global outage vector.
func (g *Gate) Evaluate(ctx context.Context, rawAddr string, now time.Time) Decision {
	if !g.cfg.Enabled {
		return Decision{Allowed: true}
	}

	key := DeriveIdentity(rawAddr)

	ctx, cancel := context.WithTimeout(ctx, g.cfg.StoreTimeout)
	defer cancel()

	// The closure may run more than once on contention; only the committed
	// invocation's decision survives.
	var decision Decision
	err := g.store.Update(ctx, key, func(rec *Record) (*Record, error) {
		var next *Record
		decision, next = g.eval.Evaluate(key, rec, now)
		return next, nil
	})
	if err != nil {
		metrics.QuotaStoreFailures.Inc()
		slog.Warn("quota gate: store failure, applying fallback policy",
			"error", err, "fail_closed", g.cfg.FailClosed)
		if g.cfg.FailClosed {
			decision = Decision{Reason: "service busy, try again later"}
		} else {
			decision = Decision{Allowed: true}
		}
		metrics.QuotaDecisionsTotal.WithLabelValues(outcomeLabel(decision.Allowed)).Inc()
		return decision
	}

	metrics.QuotaDecisionsTotal.WithLabelValues(outcomeLabel(decision.Allowed)).Inc()

	if !decision.Allowed {
		slog.Info("quota gate: request denied", "identity_key", key, "reason", decision.Reason)
		if g.violations != nil {
			if verr := g.violations.RecordViolation(ctx, key, decision.Reason); verr != nil {
				slog.Warn("quota gate: recording violation", "error", verr)
			}
		}
	}
	return decision
}

// Inspect returns the stored record for a raw client address, for the
// operator dashboard. ErrNotFound for a never-seen address.
func (g *Gate) Inspect(ctx context.Context, rawAddr string) (*Record, error) {
	return g.store.Get(ctx, DeriveIdentity(rawAddr))
}

func outcomeLabel(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}
