package sequence

import (
	"fmt"
	"time"
)

// Counter is a single row per (series, year) holding the last issued seq.
// It is the only process-wide shared mutable state and the only record that
// needs atomic increment semantics.
type Counter struct {
	Series    string
	Year      int
	Seq       int64
	UpdatedAt time.Time
}

// Series keys for human-facing invoice numbers.
const (
	SeriesCylinderInvoice = "CYL"
	SeriesRentalInvoice   = "RNT"
	SeriesRefillVoucher   = "RFL"
)

// Format renders a zero-padded invoice number scoped per series/year.
func Format(series string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%06d", series, year, seq)
}
