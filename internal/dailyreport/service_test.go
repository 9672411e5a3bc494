package dailyreport

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gasflow-erp/gasflow/internal/dailyledger"
	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/ledger"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

type fakeDaily struct {
	rows  []dailyledger.Row
	calls int
}

func (f *fakeDaily) RowsForDay(ctx context.Context, owner shared.Owner, date time.Time) ([]dailyledger.Row, error) {
	f.calls++
	return f.rows, nil
}

type fakeLedger struct {
	transactions []ledger.Transaction
}

func (f *fakeLedger) ListForDay(ctx context.Context, owner shared.Owner, day string) ([]ledger.Transaction, error) {
	return f.transactions, nil
}

type fakeInventory struct {
	items []inventory.Item
}

func (f *fakeInventory) ListByOwner(ctx context.Context, owner shared.Owner) ([]inventory.Item, error) {
	return f.items, nil
}

func lineFor(t *testing.T, report Report, productID uuid.UUID) Line {
	t.Helper()
	for _, l := range report.Lines {
		if l.ProductID == productID {
			return l
		}
	}
	t.Fatalf("no line for product %s", productID)
	return Line{}
}

func TestDailyReportMergesStreams(t *testing.T) {
	productID := uuid.New()
	owner := shared.AdminOwner()
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	daily := &fakeDaily{rows: []dailyledger.Row{{
		Date:        day,
		ProductID:   productID,
		Refilled:    9, // stale projection count, raw records below win
		Deposits:    9,
		ReceivedGas: 2,
	}}}
	transacts := &fakeLedger{transactions: []ledger.Transaction{
		{Type: ledger.TypeDeposit, ProductID: productID, Quantity: 5},
		{Type: ledger.TypeReturn, ProductID: productID, Quantity: 3},
		{Type: ledger.TypeRefill, ProductID: productID, Quantity: 4},
	}}
	inv := &fakeInventory{items: []inventory.Item{{
		Owner: owner, ProductID: productID, AvailableFull: 10, AvailableEmpty: 7,
	}}}

	svc := NewService(daily, transacts, inv, nil, nil, nil)
	report, err := svc.DailyReport(context.Background(), owner, day)
	require.NoError(t, err)
	require.Len(t, report.Lines, 1)

	line := lineFor(t, report, productID)
	require.Equal(t, int64(4), line.Refilled)
	require.Equal(t, int64(5), line.Deposits)
	require.Equal(t, int64(3), line.Returns)
	require.Equal(t, int64(2), line.ReceivedGas)
	require.Equal(t, int64(10), line.OpeningFull)
	require.Equal(t, int64(7), line.OpeningEmpty)
	// closingFull = 10 + 2 - 0 - 0; closingEmpty = 7 + 0 + 3 + 0 - 5 - 0.
	require.Equal(t, int64(12), line.ClosingFull)
	require.Equal(t, int64(5), line.ClosingEmpty)
}

func TestRawOverlayOwnsRefilled(t *testing.T) {
	productID := uuid.New()
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	// The projection claims a refill but no raw refill record exists for the
	// product; the raw ledger owns the field, so the claim is dropped.
	daily := &fakeDaily{rows: []dailyledger.Row{{Date: day, ProductID: productID, Refilled: 7}}}
	transacts := &fakeLedger{transactions: []ledger.Transaction{
		{Type: ledger.TypeDeposit, ProductID: productID, Quantity: 1},
	}}

	svc := NewService(daily, transacts, &fakeInventory{}, nil, nil, nil)
	report, err := svc.DailyReport(context.Background(), shared.AdminOwner(), day)
	require.NoError(t, err)

	line := lineFor(t, report, productID)
	require.Equal(t, int64(0), line.Refilled)
	require.Equal(t, int64(1), line.Deposits)
}

func TestDailyReportClampsClosingAtZero(t *testing.T) {
	productID := uuid.New()
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	transacts := &fakeLedger{transactions: []ledger.Transaction{
		{Type: ledger.TypeDeposit, ProductID: productID, Quantity: 50},
	}}
	inv := &fakeInventory{items: []inventory.Item{{ProductID: productID, AvailableEmpty: 3}}}

	svc := NewService(&fakeDaily{}, transacts, inv, nil, nil, nil)
	report, err := svc.DailyReport(context.Background(), shared.AdminOwner(), day)
	require.NoError(t, err)

	line := lineFor(t, report, productID)
	require.Equal(t, int64(0), line.ClosingEmpty)
}

func TestDailyReportSumsItemLines(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	transacts := &fakeLedger{transactions: []ledger.Transaction{{
		Type: ledger.TypeDeposit,
		Items: []ledger.Item{
			{ProductID: first, Quantity: 2},
			{ProductID: second, Quantity: 3},
		},
	}}}

	svc := NewService(&fakeDaily{}, transacts, &fakeInventory{}, nil, nil, nil)
	report, err := svc.DailyReport(context.Background(), shared.AdminOwner(), day)
	require.NoError(t, err)
	require.Len(t, report.Lines, 2)
	require.Equal(t, int64(2), lineFor(t, report, first).Deposits)
	require.Equal(t, int64(3), lineFor(t, report, second).Deposits)
}

func TestDailyReportSnapshotOnlyProducts(t *testing.T) {
	productID := uuid.New()
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	inv := &fakeInventory{items: []inventory.Item{{ProductID: productID, AvailableFull: 6, AvailableEmpty: 2}}}

	svc := NewService(&fakeDaily{}, &fakeLedger{}, inv, nil, nil, nil)
	report, err := svc.DailyReport(context.Background(), shared.AdminOwner(), day)
	require.NoError(t, err)

	line := lineFor(t, report, productID)
	require.Equal(t, int64(6), line.ClosingFull)
	require.Equal(t, int64(2), line.ClosingEmpty)
}

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, ttl, nil)
}

func TestDailyReportServedFromCache(t *testing.T) {
	productID := uuid.New()
	owner := shared.EmployeeOwner(uuid.New())
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	daily := &fakeDaily{rows: []dailyledger.Row{{Date: day, ProductID: productID, Refilled: 1}}}
	svc := NewService(daily, &fakeLedger{}, &fakeInventory{}, nil, newTestCache(t, 5*time.Minute), nil)

	first, err := svc.DailyReport(context.Background(), owner, day)
	require.NoError(t, err)
	second, err := svc.DailyReport(context.Background(), owner, day)
	require.NoError(t, err)

	require.Equal(t, 1, daily.calls)
	require.Equal(t, first.Lines, second.Lines)
	require.Equal(t, owner, second.Owner)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	owner := shared.AdminOwner()
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	daily := &fakeDaily{}
	svc := NewService(daily, &fakeLedger{}, &fakeInventory{}, nil, newTestCache(t, 5*time.Minute), nil)

	_, err := svc.DailyReport(context.Background(), owner, day)
	require.NoError(t, err)
	svc.Invalidate(context.Background(), owner, day)
	_, err = svc.DailyReport(context.Background(), owner, day)
	require.NoError(t, err)
	require.Equal(t, 2, daily.calls)
}
