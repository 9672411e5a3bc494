// Package dailyledger maintains the per-day per-product accumulator rows behind
// the daily reconciliation report. Rows are write-through projections updated
// incrementally as events occur; they are rebuildable, never the source of truth.
package dailyledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/shared"
)

// Delta is one incremental update against a day's accumulator row.
type Delta struct {
	Date      time.Time
	Owner     shared.Owner
	ProductID uuid.UUID

	Refilled          int64
	FullCylinderSales int64
	GasSales          int64
	Deposits          int64
	Returns           int64
	TransferGas       int64
	TransferEmpty     int64
	ReceivedGas       int64
	ReceivedEmpty     int64
}

// Row is a materialized accumulator row.
type Row struct {
	Date      time.Time
	Owner     shared.Owner
	ProductID uuid.UUID

	Refilled          int64
	FullCylinderSales int64
	GasSales          int64
	Deposits          int64
	Returns           int64
	TransferGas       int64
	TransferEmpty     int64
	ReceivedGas       int64
	ReceivedEmpty     int64

	UpdatedAt time.Time
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
