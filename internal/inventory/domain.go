package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/shared"
)

// Item is a rolling stock counter for one product held by one owner.
// Counters never go negative; updates are deltas, never full replacements.
type Item struct {
	Owner          shared.Owner
	ProductID      uuid.UUID
	CylinderSize   string
	CurrentStock   int64
	AvailableEmpty int64
	AvailableFull  int64
	UpdatedAt      time.Time
}

// Counter selects which of the three item counters an operation touches.
type Counter string

const (
	// CounterGas is gas content quantity.
	CounterGas Counter = "gas"
	// CounterEmpty is the empty cylinder count.
	CounterEmpty Counter = "empty"
	// CounterFull is the full cylinder count.
	CounterFull Counter = "full"
)

// Value returns the current value of the selected counter.
func (i Item) Value(c Counter) int64 {
	switch c {
	case CounterGas:
		return i.CurrentStock
	case CounterEmpty:
		return i.AvailableEmpty
	case CounterFull:
		return i.AvailableFull
	}
	return 0
}

// Resource names a counter for insufficiency errors.
func (c Counter) Resource() string {
	switch c {
	case CounterGas:
		return "gas stock"
	case CounterEmpty:
		return "empty cylinders"
	case CounterFull:
		return "full cylinders"
	}
	return "stock"
}

// Delta is one atomic increment/decrement against an item's counters.
type Delta struct {
	Owner        shared.Owner
	ProductID    uuid.UUID
	CylinderSize string
	Gas          int64
	Empty        int64
	Full         int64
}

// IsZero reports whether the delta changes nothing.
func (d Delta) IsZero() bool {
	return d.Gas == 0 && d.Empty == 0 && d.Full == 0
}

// ErrEmptyDelta indicates a delta with no counter changes.
var ErrEmptyDelta = errors.New("inventory: delta changes nothing")
