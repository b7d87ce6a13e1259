package inference

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles inferences PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new inference Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one completed inference.
func (r *Repository) Insert(ctx context.Context, inf *Inference) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO inferences (id, text, lang, label, score, inference_time_ms, model_version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inf.ID, inf.Text, inf.Lang, inf.Label, inf.Score, inf.InferenceTimeMS, inf.ModelVersion, inf.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting inference: %w", err)
	}
	return nil
}

// List returns the newest inferences, up to limit.
func (r *Repository) List(ctx context.Context, limit int) ([]Inference, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, text, lang, label, score, inference_time_ms, model_version, created_at
		 FROM inferences
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing inferences: %w", err)
	}
	defer rows.Close()

	items := []Inference{}
	for rows.Next() {
		var inf Inference
		if err := rows.Scan(&inf.ID, &inf.Text, &inf.Lang, &inf.Label, &inf.Score,
			&inf.InferenceTimeMS, &inf.ModelVersion, &inf.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning inference: %w", err)
		}
		items = append(items, inf)
	}
	return items, rows.Err()
}
