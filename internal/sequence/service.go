package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// RepositoryPort abstracts counter storage for the generator.
type RepositoryPort interface {
	Increment(ctx context.Context, series string, year int) (int64, error)
	Seed(ctx context.Context, series string, year int, seq int64) error
}

// LegacyScanFunc returns the highest previously-used number for a series/year,
// so migrating from free-text numbering does not collide. Zero means no legacy data.
type LegacyScanFunc func(ctx context.Context, series string, year int) (int64, error)

// Generator hands out unique, strictly increasing invoice numbers per series/year.
type Generator struct {
	repo       RepositoryPort
	legacyScan LegacyScanFunc
	now        func() time.Time

	mu     sync.Mutex
	seeded map[string]struct{}
}

// NewGenerator builds a Generator. legacyScan may be nil.
func NewGenerator(repo RepositoryPort, legacyScan LegacyScanFunc) *Generator {
	return &Generator{
		repo:       repo,
		legacyScan: legacyScan,
		now:        func() time.Time { return time.Now().UTC() },
		seeded:     make(map[string]struct{}),
	}
}

// Next returns the next number in the series for the current year.
func (g *Generator) Next(ctx context.Context, series string) (string, error) {
	if series == "" {
		return "", errors.New("sequence: series required")
	}
	year := g.now().Year()
	if err := g.ensureSeeded(ctx, series, year); err != nil {
		return "", err
	}
	seq, err := g.repo.Increment(ctx, series, year)
	if err != nil {
		return "", fmt.Errorf("sequence: increment %s/%d: %w", series, year, err)
	}
	return Format(series, year, seq), nil
}

// ensureSeeded scans legacy records once per (series, year) per process. The seed
// insert is a no-op when another process already created the counter.
func (g *Generator) ensureSeeded(ctx context.Context, series string, year int) error {
	if g.legacyScan == nil {
		return nil
	}
	key := fmt.Sprintf("%s:%d", series, year)
	g.mu.Lock()
	_, done := g.seeded[key]
	g.mu.Unlock()
	if done {
		return nil
	}

	highest, err := g.legacyScan(ctx, series, year)
	if err != nil {
		return fmt.Errorf("sequence: legacy scan %s/%d: %w", series, year, err)
	}
	if highest > 0 {
		if err := g.repo.Seed(ctx, series, year, highest); err != nil {
			return fmt.Errorf("sequence: seed %s/%d: %w", series, year, err)
		}
	}

	g.mu.Lock()
	g.seeded[key] = struct{}{}
	g.mu.Unlock()
	return nil
}

const maxNumberRetries = 3

// PersistWithRetry runs persist with a fresh number, re-requesting on a
// uniqueness-constraint violation. This closes the narrow race between
// "get next number" and "write record".
func (g *Generator) PersistWithRetry(ctx context.Context, series string, persist func(ctx context.Context, number string) error) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		number, err := g.Next(ctx, series)
		if err != nil {
			return "", err
		}
		err = persist(ctx, number)
		if err == nil {
			return number, nil
		}
		if !IsUniqueViolation(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("sequence: number collision persisted after %d attempts: %w", maxNumberRetries, lastErr)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
