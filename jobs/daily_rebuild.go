package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/assignment"
	"github.com/gasflow-erp/gasflow/internal/dailyledger"
	"github.com/gasflow-erp/gasflow/internal/ledger"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// TransactionSource reads raw cylinder transactions for a day, all owners.
type TransactionSource interface {
	ListAllForDay(ctx context.Context, day string) ([]ledger.Transaction, error)
}

// AssignmentSource reads assignments accepted during a day.
type AssignmentSource interface {
	ListReceivedOn(ctx context.Context, day string) ([]assignment.Assignment, error)
}

// ProjectionStore clears and re-applies daily accumulator rows.
type ProjectionStore interface {
	Apply(ctx context.Context, d dailyledger.Delta) error
	ClearDay(ctx context.Context, date time.Time) error
}

// ReportInvalidator drops cached reports after a rebuild.
type ReportInvalidator interface {
	Invalidate(ctx context.Context, owner shared.Owner, date time.Time)
}

// Rebuilder recomputes one day's projection rows from the durable records: raw
// cylinder transactions and accepted assignments. The accumulator tables are
// write-through caches of these records, so a rebuild repairs any delta lost to
// a tolerated projection failure.
type Rebuilder struct {
	transactions TransactionSource
	assignments  AssignmentSource
	projections  ProjectionStore
	reports      ReportInvalidator
	logger       *slog.Logger
}

// NewRebuilder builds Rebuilder. reports may be nil.
func NewRebuilder(transactions TransactionSource, assignments AssignmentSource, projections ProjectionStore, reports ReportInvalidator, logger *slog.Logger) *Rebuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rebuilder{
		transactions: transactions,
		assignments:  assignments,
		projections:  projections,
		reports:      reports,
		logger:       logger,
	}
}

// Rebuild clears and recomputes every owner's accumulator rows for the day.
// Any failure aborts so the queue retries the whole day; re-running is safe
// because the rebuild starts from a clear.
func (r *Rebuilder) Rebuild(ctx context.Context, date time.Time) error {
	day := dailyledger.Day(date)
	dayStr := day.Format("2006-01-02")

	transactions, err := r.transactions.ListAllForDay(ctx, dayStr)
	if err != nil {
		return err
	}
	received, err := r.assignments.ListReceivedOn(ctx, dayStr)
	if err != nil {
		return err
	}

	// The whole day is cleared in one sweep, both tables. A row that drifted
	// for an owner with no replayable events must not outlive the rebuild.
	if err := r.projections.ClearDay(ctx, day); err != nil {
		return err
	}

	owners := map[string]shared.Owner{shared.AdminOwner().String(): shared.AdminOwner()}
	for _, t := range transactions {
		owners[t.Owner.String()] = t.Owner
	}
	for _, a := range received {
		owner := shared.EmployeeOwner(a.EmployeeID)
		owners[owner.String()] = owner
	}

	for _, t := range transactions {
		for _, delta := range transactionDeltas(t) {
			if err := r.projections.Apply(ctx, delta); err != nil {
				return err
			}
		}
	}
	for _, a := range received {
		receivedDelta, transferredDelta := assignment.DailyDeltas(a, a.ReceivedAt)
		if err := r.projections.Apply(ctx, receivedDelta); err != nil {
			return err
		}
		if err := r.projections.Apply(ctx, transferredDelta); err != nil {
			return err
		}
	}

	if r.reports != nil {
		for _, owner := range owners {
			r.reports.Invalidate(ctx, owner, day)
		}
	}

	r.logger.Info("daily projections rebuilt",
		slog.String("day", dayStr),
		slog.Int("transactions", len(transactions)),
		slog.Int("acceptances", len(received)),
		slog.Int("owners", len(owners)))
	return nil
}

// transactionDeltas maps one raw transaction onto accumulator deltas, one per
// product line.
func transactionDeltas(t ledger.Transaction) []dailyledger.Delta {
	build := func(productID uuid.UUID, qty int64) (dailyledger.Delta, bool) {
		if productID == uuid.Nil || qty <= 0 {
			return dailyledger.Delta{}, false
		}
		d := dailyledger.Delta{Date: t.CreatedAt, Owner: t.Owner, ProductID: productID}
		switch t.Type {
		case ledger.TypeDeposit:
			d.Deposits = qty
		case ledger.TypeReturn:
			d.Returns = qty
		case ledger.TypeRefill:
			d.Refilled = qty
		default:
			return dailyledger.Delta{}, false
		}
		return d, true
	}

	var deltas []dailyledger.Delta
	if len(t.Items) > 0 {
		for _, item := range t.Items {
			if d, ok := build(item.ProductID, item.Quantity); ok {
				deltas = append(deltas, d)
			}
		}
		return deltas
	}
	if d, ok := build(t.ProductID, t.Quantity); ok {
		deltas = append(deltas, d)
	}
	return deltas
}
