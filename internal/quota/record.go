package quota

import "time"

// dayFormat is the UTC calendar-day key used for daily counters.
// Quotas reset at UTC midnight, not on a rolling 24h window.
const dayFormat = "2006-01-02"

// Record is the persisted per-identity quota state. Optional timestamps are
// pointers so that an absent field never reads as the zero epoch.
type Record struct {
	IdentityKey        string     `json:"identity_key"`
	Day                string     `json:"day"`
	CountToday         int        `json:"count_today"`
	CooldownUntil      *time.Time `json:"cooldown_until,omitempty"`
	CooldownDay        string     `json:"cooldown_day,omitempty"`
	CooldownCountToday int        `json:"cooldown_count_today"`
	LastRequestAt      *time.Time `json:"last_request_at,omitempty"`
	BurstBlockUntil    *time.Time `json:"burst_block_until,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// newRecord initializes state for a never-seen identity key.
func newRecord(identityKey string, now time.Time) *Record {
	now = now.UTC()
	return &Record{
		IdentityKey: identityKey,
		Day:         now.Format(dayFormat),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// InCooldown reports whether the record is in an active cooldown regime.
func (r *Record) InCooldown(now time.Time) bool {
	return r.CooldownUntil != nil && r.CooldownUntil.After(now)
}

// BurstBlocked reports whether the record is hard-blocked for burst behavior.
func (r *Record) BurstBlocked(now time.Time) bool {
	return r.BurstBlockUntil != nil && r.BurstBlockUntil.After(now)
}

// clone returns a deep copy so the evaluator never mutates the observed
// record; a store transaction retried on contention must re-read fresh state.
func (r *Record) clone() *Record {
	out := *r
	out.CooldownUntil = copyTime(r.CooldownUntil)
	out.LastRequestAt = copyTime(r.LastRequestAt)
	out.BurstBlockUntil = copyTime(r.BurstBlockUntil)
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
