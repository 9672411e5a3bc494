package sequence

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists counters in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Increment bumps the counter atomically, creating it at 1 when absent.
// The upsert is the atomic find-and-modify the whole numbering scheme rests on.
func (r *Repository) Increment(ctx context.Context, series string, year int) (int64, error) {
	var seq int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO counters (series, year, seq, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (series, year) DO UPDATE SET
			seq = counters.seq + 1,
			updated_at = NOW()
		RETURNING seq`,
		series, year).Scan(&seq)
	return seq, err
}

// Seed writes an initial counter value only when no row exists yet.
func (r *Repository) Seed(ctx context.Context, series string, year int, seq int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO counters (series, year, seq, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (series, year) DO NOTHING`,
		series, year, seq)
	return err
}
