package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FanoutSink forwards each violation to every sink, keeping the first error.
func FanoutSink(sinks ...ViolationSink) ViolationSink {
	return fanoutSink(sinks)
}

type fanoutSink []ViolationSink

func (f fanoutSink) RecordViolation(ctx context.Context, identityKey, reason string) error {
	var first error
	for _, s := range f {
		if err := s.RecordViolation(ctx, identityKey, reason); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Violation is one denial logged for operator forensics.
type Violation struct {
	ID          int64     `json:"id"`
	IdentityKey string    `json:"identity_key"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// ViolationRepository appends denials to the abuse_violations table.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a repository over the given pool.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// RecordViolation appends one denial entry.
func (r *ViolationRepository) RecordViolation(ctx context.Context, identityKey, reason string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO abuse_violations (identity_key, reason) VALUES ($1, $2)`,
		identityKey, reason)
	if err != nil {
		return fmt.Errorf("recording violation: %w", err)
	}
	return nil
}

// ListViolations returns the newest violations, up to limit.
func (r *ViolationRepository) ListViolations(ctx context.Context, limit int) ([]Violation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, identity_key, reason, created_at
		 FROM abuse_violations
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing violations: %w", err)
	}
	defer rows.Close()

	violations := []Violation{}
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.ID, &v.IdentityKey, &v.Reason, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning violation: %w", err)
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}
