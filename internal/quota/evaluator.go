package quota

import (
	"fmt"
	"time"
)

// Limits holds the thresholds the evaluator enforces.
type Limits struct {
	DailyLimit         int
	CooldownDays       int
	CooldownDailyLimit int
	BurstMinInterval   time.Duration
	BurstBlock         time.Duration
}

// Decision is the verdict for a single evaluation. RetryAfter is a hint for
// the Retry-After header; zero means no hint.
type Decision struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
}

// Evaluator is the pure per-request decision function. It performs no I/O
// and never mutates the record it observes; callers persist the returned
// next record.
//
// The rules form a priority policy, not an arbitrary order: the burst-block
// short circuit must run before anything that touches last_request_at (a
// blocked client must not reset its own block timer), and burst detection
// must run before cooldown and daily-quota logic so that too-fast traffic is
// blocked even when quota would otherwise allow it.
type Evaluator struct {
	limits Limits
	rules  []rule
}

type rule struct {
	name  string
	apply func(*Record, time.Time) *Decision
}

// NewEvaluator builds an evaluator for the given limits.
func NewEvaluator(limits Limits) *Evaluator {
	e := &Evaluator{limits: limits}
	e.rules = []rule{
		{"day_rollover", e.rollDay},
		{"burst_block", e.checkBurstBlock},
		{"burst_detect", e.detectBurst},
		{"cooldown_expiry", e.expireCooldown},
		{"cooldown_quota", e.checkCooldownQuota},
		{"daily_quota", e.checkDailyQuota},
		{"allow", e.allow},
	}
	return e
}

// Evaluate computes the verdict and next record for one request. A nil rec
// means the identity has never been seen; a fresh record is created for it.
func (e *Evaluator) Evaluate(identityKey string, rec *Record, now time.Time) (Decision, *Record) {
	now = now.UTC()

	var next *Record
	if rec == nil {
		next = newRecord(identityKey, now)
	} else {
		next = rec.clone()
	}
	next.UpdatedAt = now

	for _, r := range e.rules {
		if d := r.apply(next, now); d != nil {
			return *d, next
		}
	}
	// The allow rule is terminal; this is unreachable.
	return Decision{Allowed: true}, next
}

// rollDay resets the normal-regime counter when the UTC day changed. It
// never touches cooldown or burst fields.
func (e *Evaluator) rollDay(r *Record, now time.Time) *Decision {
	if today := now.Format(dayFormat); r.Day != today {
		r.Day = today
		r.CountToday = 0
	}
	return nil
}

// checkBurstBlock short-circuits while a burst block is active. The record
// is left untouched, in particular last_request_at, so a blocked client
// cannot extend its own block by retrying.
func (e *Evaluator) checkBurstBlock(r *Record, now time.Time) *Decision {
	if !r.BurstBlocked(now) {
		return nil
	}
	remaining := r.BurstBlockUntil.Sub(now)
	return &Decision{
		Reason:     fmt.Sprintf("blocked for burst traffic, retry in %d seconds", int(remaining.Seconds())+1),
		RetryAfter: remaining,
	}
}

// detectBurst trips the burst block when two requests arrive closer together
// than the minimum interval. Fires regardless of quota or cooldown state.
// A negative delta (clock skew) never counts as a burst.
func (e *Evaluator) detectBurst(r *Record, now time.Time) *Decision {
	if r.LastRequestAt == nil {
		return nil
	}
	delta := now.Sub(*r.LastRequestAt)
	if delta < 0 || delta >= e.limits.BurstMinInterval {
		return nil
	}
	until := now.Add(e.limits.BurstBlock)
	r.BurstBlockUntil = &until
	r.LastRequestAt = &now
	return &Decision{
		Reason:     fmt.Sprintf("burst detected, blocked for %d seconds", int(e.limits.BurstBlock.Seconds())),
		RetryAfter: e.limits.BurstBlock,
	}
}

// expireCooldown lazily clears a cooldown whose deadline has passed.
func (e *Evaluator) expireCooldown(r *Record, now time.Time) *Decision {
	if r.CooldownUntil != nil && !r.CooldownUntil.After(now) {
		r.CooldownUntil = nil
		r.CooldownDay = ""
		r.CooldownCountToday = 0
	}
	return nil
}

// checkCooldownQuota enforces the reduced allowance while cooldown is active.
func (e *Evaluator) checkCooldownQuota(r *Record, now time.Time) *Decision {
	if !r.InCooldown(now) {
		return nil
	}
	today := now.Format(dayFormat)
	if r.CooldownDay != today {
		r.CooldownDay = today
		r.CooldownCountToday = 0
	}
	if r.CooldownCountToday >= e.limits.CooldownDailyLimit {
		r.LastRequestAt = &now
		return &Decision{
			Reason:     "cooldown daily limit reached",
			RetryAfter: untilNextUTCDay(now),
		}
	}
	r.CooldownCountToday++
	r.LastRequestAt = &now
	return &Decision{Allowed: true}
}

// checkDailyQuota flips an exhausted identity into the cooldown regime.
// last_request_at is still advanced so burst detection stays accurate on the
// next call.
func (e *Evaluator) checkDailyQuota(r *Record, now time.Time) *Decision {
	if r.CountToday < e.limits.DailyLimit {
		return nil
	}
	until := now.Add(time.Duration(e.limits.CooldownDays) * 24 * time.Hour)
	r.CooldownUntil = &until
	r.CooldownDay = now.Format(dayFormat)
	r.CooldownCountToday = 0
	r.LastRequestAt = &now
	return &Decision{
		Reason:     "daily limit reached, cooldown activated",
		RetryAfter: untilNextUTCDay(now),
	}
}

// allow is the terminal rule for well-behaved traffic.
func (e *Evaluator) allow(r *Record, now time.Time) *Decision {
	r.CountToday++
	r.LastRequestAt = &now
	// Stale punitive fields should already be clear at this point.
	r.BurstBlockUntil = nil
	r.CooldownUntil = nil
	r.CooldownDay = ""
	r.CooldownCountToday = 0
	return &Decision{Allowed: true}
}

func untilNextUTCDay(now time.Time) time.Duration {
	next := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	return next.Sub(now)
}
