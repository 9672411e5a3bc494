package dailyreport

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/catalog"
	"github.com/gasflow-erp/gasflow/internal/dailyledger"
	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/ledger"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// DailyPort reads materialized accumulator rows.
type DailyPort interface {
	RowsForDay(ctx context.Context, owner shared.Owner, date time.Time) ([]dailyledger.Row, error)
}

// LedgerPort reads raw transactions for one owner and UTC day.
type LedgerPort interface {
	ListForDay(ctx context.Context, owner shared.Owner, day string) ([]ledger.Transaction, error)
}

// InventoryPort snapshots the owner's current stock counters.
type InventoryPort interface {
	ListByOwner(ctx context.Context, owner shared.Owner) ([]inventory.Item, error)
}

// CatalogPort resolves product names for report lines.
type CatalogPort interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Product, error)
}

// Line is one product's reconciliation row for a day.
type Line struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`

	OpeningFull  int64 `json:"opening_full"`
	OpeningEmpty int64 `json:"opening_empty"`

	Refilled          int64 `json:"refilled"`
	FullCylinderSales int64 `json:"full_cylinder_sales"`
	GasSales          int64 `json:"gas_sales"`
	Deposits          int64 `json:"deposits"`
	Returns           int64 `json:"returns"`
	TransferGas       int64 `json:"transfer_gas"`
	TransferEmpty     int64 `json:"transfer_empty"`
	ReceivedGas       int64 `json:"received_gas"`
	ReceivedEmpty     int64 `json:"received_empty"`

	ClosingFull  int64 `json:"closing_full"`
	ClosingEmpty int64 `json:"closing_empty"`
}

// Report is the full reconciliation result for one owner and day.
type Report struct {
	Date        time.Time    `json:"date"`
	Owner       shared.Owner `json:"owner"`
	Lines       []Line       `json:"lines"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Service merges the day's projections, raw ledger records and the live stock
// snapshot into reconciliation rows.
type Service struct {
	daily     DailyPort
	transacts LedgerPort
	inventory InventoryPort
	catalog   CatalogPort
	cache     *Cache
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service. catalog and cache may be nil.
func NewService(daily DailyPort, transacts LedgerPort, inv InventoryPort, cat CatalogPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		daily:     daily,
		transacts: transacts,
		inventory: inv,
		catalog:   cat,
		cache:     cache,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DailyReport produces one row per product touched by the day's events or held
// in current stock. Opening counts come from the live snapshot; no point-in-time
// stock history exists, so the numbers are exact only for today's report.
func (s *Service) DailyReport(ctx context.Context, owner shared.Owner, date time.Time) (Report, error) {
	if err := owner.Validate(); err != nil {
		return Report{}, err
	}
	day := dailyledger.Day(date)

	if s.cache != nil {
		if report, ok := s.cache.Get(ctx, owner, day); ok {
			return report, nil
		}
	}

	lines := make(map[uuid.UUID]*Line)
	line := func(productID uuid.UUID) *Line {
		l, ok := lines[productID]
		if !ok {
			l = &Line{ProductID: productID}
			lines[productID] = l
		}
		return l
	}

	// Stream 1: materialized accumulator rows.
	rows, err := s.daily.RowsForDay(ctx, owner, day)
	if err != nil {
		return Report{}, err
	}
	for _, row := range rows {
		l := line(row.ProductID)
		l.Refilled = row.Refilled
		l.FullCylinderSales = row.FullCylinderSales
		l.GasSales = row.GasSales
		l.Deposits = row.Deposits
		l.Returns = row.Returns
		l.TransferGas = row.TransferGas
		l.TransferEmpty = row.TransferEmpty
		l.ReceivedGas = row.ReceivedGas
		l.ReceivedEmpty = row.ReceivedEmpty
	}

	// Stream 2: raw deposit/return/refill records. The raw ledger owns these
	// three fields, so its totals override whatever the projections said. That
	// keeps a physical event counted once even when it landed in both stores.
	if err := s.overlayRawTransactions(ctx, owner, day, lines, line); err != nil {
		return Report{}, err
	}

	// Stream 3: current stock snapshot for opening counts.
	items, err := s.inventory.ListByOwner(ctx, owner)
	if err != nil {
		return Report{}, err
	}
	for _, item := range items {
		l := line(item.ProductID)
		l.OpeningFull = item.AvailableFull
		l.OpeningEmpty = item.AvailableEmpty
	}

	report := Report{Date: day, Owner: owner, GeneratedAt: s.now()}
	for _, l := range lines {
		l.ClosingFull = maxZero(l.OpeningFull + l.ReceivedGas - l.FullCylinderSales - l.TransferGas)
		l.ClosingEmpty = maxZero(l.OpeningEmpty + l.GasSales + l.Returns + l.ReceivedEmpty - l.Deposits - l.TransferEmpty)
		report.Lines = append(report.Lines, *l)
	}
	sort.Slice(report.Lines, func(i, j int) bool {
		return report.Lines[i].ProductID.String() < report.Lines[j].ProductID.String()
	})

	s.resolveNames(ctx, report.Lines)

	if s.cache != nil {
		s.cache.Set(ctx, owner, day, report)
	}
	return report, nil
}

// Invalidate drops the cached report for one owner and day, forcing the next
// read to recompute. Called after projection rebuilds.
func (s *Service) Invalidate(ctx context.Context, owner shared.Owner, date time.Time) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, owner, dailyledger.Day(date))
}

func (s *Service) overlayRawTransactions(ctx context.Context, owner shared.Owner, day time.Time, lines map[uuid.UUID]*Line, line func(uuid.UUID) *Line) error {
	transactions, err := s.transacts.ListForDay(ctx, owner, day.Format("2006-01-02"))
	if err != nil {
		return err
	}

	type rawTotals struct{ deposits, returns, refilled int64 }
	raw := make(map[uuid.UUID]*rawTotals)
	add := func(productID uuid.UUID, txType ledger.Type, qty int64) {
		if productID == uuid.Nil {
			return
		}
		totals, ok := raw[productID]
		if !ok {
			totals = &rawTotals{}
			raw[productID] = totals
		}
		switch txType {
		case ledger.TypeDeposit:
			totals.deposits += qty
		case ledger.TypeReturn:
			totals.returns += qty
		case ledger.TypeRefill:
			totals.refilled += qty
		}
	}
	for _, t := range transactions {
		if len(t.Items) > 0 {
			for _, item := range t.Items {
				add(item.ProductID, t.Type, item.Quantity)
			}
			continue
		}
		add(t.ProductID, t.Type, t.Quantity)
	}

	for productID, totals := range raw {
		l := line(productID)
		l.Deposits = totals.deposits
		l.Returns = totals.returns
		l.Refilled = totals.refilled
	}
	return nil
}

func (s *Service) resolveNames(ctx context.Context, lines []Line) {
	if s.catalog == nil || len(lines) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("report name resolution failed", slog.Any("error", err))
		return
	}
	for i := range lines {
		lines[i].ProductName = products[lines[i].ProductID].Name
	}
}

func maxZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
