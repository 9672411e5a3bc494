package sequence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type memoryRepo struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{counters: make(map[string]int64)}
}

func counterKey(series string, year int) string {
	return fmt.Sprintf("%s:%d", series, year)
}

func (r *memoryRepo) Increment(ctx context.Context, series string, year int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := counterKey(series, year)
	r.counters[key]++
	return r.counters[key], nil
}

func (r *memoryRepo) Seed(ctx context.Context, series string, year int, seq int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := counterKey(series, year)
	if _, ok := r.counters[key]; !ok {
		r.counters[key] = seq
	}
	return nil
}

func fixedClock(g *Generator, year int) {
	g.now = func() time.Time { return time.Date(year, 3, 15, 10, 0, 0, 0, time.UTC) }
}

func TestNextFormatsPerSeriesYear(t *testing.T) {
	g := NewGenerator(newMemoryRepo(), nil)
	fixedClock(g, 2026)

	first, err := g.Next(context.Background(), SeriesCylinderInvoice)
	require.NoError(t, err)
	require.Equal(t, "CYL-2026-000001", first)

	second, err := g.Next(context.Background(), SeriesCylinderInvoice)
	require.NoError(t, err)
	require.Equal(t, "CYL-2026-000002", second)

	rental, err := g.Next(context.Background(), SeriesRentalInvoice)
	require.NoError(t, err)
	require.Equal(t, "RNT-2026-000001", rental)
}

func TestNextSeedsFromLegacyScanOnce(t *testing.T) {
	scans := 0
	g := NewGenerator(newMemoryRepo(), func(ctx context.Context, series string, year int) (int64, error) {
		scans++
		return 41, nil
	})
	fixedClock(g, 2026)

	number, err := g.Next(context.Background(), SeriesCylinderInvoice)
	require.NoError(t, err)
	require.Equal(t, "CYL-2026-000042", number)

	_, err = g.Next(context.Background(), SeriesCylinderInvoice)
	require.NoError(t, err)
	require.Equal(t, 1, scans)
}

func TestConcurrentNextYieldsDistinctMonotonicNumbers(t *testing.T) {
	g := NewGenerator(newMemoryRepo(), nil)
	fixedClock(g, 2026)

	const n = 64
	var mu sync.Mutex
	seen := make(map[string]struct{}, n)

	var eg errgroup.Group
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			number, err := g.Next(context.Background(), SeriesCylinderInvoice)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if _, dup := seen[number]; dup {
				return fmt.Errorf("duplicate number %s", number)
			}
			seen[number] = struct{}{}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	require.Len(t, seen, n)
}

func TestPersistWithRetryRequestsFreshNumbers(t *testing.T) {
	g := NewGenerator(newMemoryRepo(), nil)
	fixedClock(g, 2026)

	uniqueViolation := &pgconn.PgError{Code: "23505"}
	attempts := 0
	number, err := g.PersistWithRetry(context.Background(), SeriesCylinderInvoice, func(ctx context.Context, number string) error {
		attempts++
		if attempts < 3 {
			return uniqueViolation
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, "CYL-2026-000003", number)
}

func TestPersistWithRetryGivesUpAfterBoundedAttempts(t *testing.T) {
	g := NewGenerator(newMemoryRepo(), nil)
	fixedClock(g, 2026)

	calls := 0
	_, err := g.PersistWithRetry(context.Background(), SeriesCylinderInvoice, func(ctx context.Context, number string) error {
		calls++
		return &pgconn.PgError{Code: "23505"}
	})
	require.Error(t, err)
	require.Equal(t, maxNumberRetries, calls)
}

func TestPersistWithRetryPropagatesOtherErrors(t *testing.T) {
	g := NewGenerator(newMemoryRepo(), nil)
	fixedClock(g, 2026)

	calls := 0
	_, err := g.PersistWithRetry(context.Background(), SeriesCylinderInvoice, func(ctx context.Context, number string) error {
		calls++
		return fmt.Errorf("connection reset")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
