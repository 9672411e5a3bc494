package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/shared"
)

// Type enumerates customer-facing cylinder transaction kinds.
type Type string

const (
	// TypeDeposit hands a cylinder out against a refundable charge.
	TypeDeposit Type = "deposit"
	// TypeRefill exchanges a customer's empty cylinder for a refilled one.
	TypeRefill Type = "refill"
	// TypeReturn hands a cylinder back, clearing a linked deposit.
	TypeReturn Type = "return"
)

// Status is the clearance state of a transaction.
type Status string

const (
	// StatusPending means the deposit has not been fully returned yet.
	StatusPending Status = "pending"
	// StatusCleared means cumulative linked returns cover the deposit.
	StatusCleared Status = "cleared"
	// StatusOverdue marks deposits flagged by collections follow-up.
	StatusOverdue Status = "overdue"
)

// Item is one product line inside a multi-line transaction.
type Item struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	Amount    float64   `json:"amount"`
}

// Transaction is a customer-facing cylinder event, admin- or employee-scoped.
type Transaction struct {
	ID            uuid.UUID
	Owner         shared.Owner
	CustomerID    uuid.UUID
	ProductID     uuid.UUID
	Items         []Item
	Quantity      int64
	Amount        float64
	PaymentMode   string
	PaidAmount    float64
	Type          Type
	Status        Status
	LinkedDeposit uuid.UUID
	InvoiceNumber string
	CreatedAt     time.Time
}

// TotalQuantity sums the item lines, falling back to the scalar quantity when
// no item array is present.
func (t Transaction) TotalQuantity() int64 {
	if len(t.Items) == 0 {
		return t.Quantity
	}
	var total int64
	for _, item := range t.Items {
		total += item.Quantity
	}
	return total
}

// Line is one (product, quantity) pair a transaction touches.
type Line struct {
	ProductID uuid.UUID
	Quantity  int64
}

// Lines expands the transaction into per-product pairs: the item array when
// present, otherwise the scalar product and quantity. Every side effect of a
// transaction (remaining-stock consumption, inventory deltas, daily deltas)
// runs per line so multi-product records hit the right counters.
func (t Transaction) Lines() []Line {
	if len(t.Items) == 0 {
		return []Line{{ProductID: t.ProductID, Quantity: t.Quantity}}
	}
	lines := make([]Line, 0, len(t.Items))
	for _, item := range t.Items {
		lines = append(lines, Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// ClearanceStatus derives a deposit's status from its own quantity and the sum
// of linked returns. Pure function of ledger state: recomputing is idempotent
// and order-independent, so retries and duplicates cannot cause drift.
func ClearanceStatus(depositQty, returnedQty int64) Status {
	if returnedQty >= depositQty {
		return StatusCleared
	}
	return StatusPending
}

var (
	// ErrInvalidQuantity indicates a non-positive transaction quantity.
	ErrInvalidQuantity = errors.New("ledger: quantity must be positive")
	// ErrCustomerRequired indicates a missing customer reference.
	ErrCustomerRequired = errors.New("ledger: customer required")
)
