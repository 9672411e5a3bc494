package assignment

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/catalog"
)

// Status tracks the assignment lifecycle: assigned -> received (normal) or
// assigned -> returned (exception). Both end states are terminal.
type Status string

const (
	// StatusAssigned means issued by admin, not yet accepted; inventory untouched.
	StatusAssigned Status = "assigned"
	// StatusReceived means the employee accepted and inventory was materialized.
	StatusReceived Status = "received"
	// StatusReturned means the assignment was sent back before acceptance.
	StatusReturned Status = "returned"
)

// Assignment is a quantity of one product moved from central inventory toward
// one employee. RemainingQuantity, not Quantity, is the authoritative "what the
// employee still has" figure once the assignment is accepted.
type Assignment struct {
	ID                uuid.UUID
	EmployeeID        uuid.UUID
	ProductID         uuid.UUID
	Quantity          int64
	RemainingQuantity int64
	Category          catalog.Category
	CylinderStatus    catalog.CylinderStatus
	CylinderSize      string
	Status            Status
	LeastPrice        float64

	// GasProductID and CylinderProductID cross-link full-cylinder assignments
	// that implicitly carry gas content.
	GasProductID      uuid.UUID
	CylinderProductID uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time

	// ReceivedAt is set exactly once, when the assignment flips to received.
	// Projection rebuilds replay acceptances by this timestamp.
	ReceivedAt time.Time
}

// IsComposite reports whether accepting this assignment materializes both a gas
// item and a full-cylinder item.
func (a Assignment) IsComposite() bool {
	return a.GasProductID != uuid.Nil && a.CylinderStatus == catalog.CylinderFull
}

var (
	// ErrNotAssignee means the caller is not the assignment's employee.
	ErrNotAssignee = errors.New("assignment: caller is not the assignee")
	// ErrNotAcceptable means the assignment is not in the assigned state.
	ErrNotAcceptable = errors.New("assignment: not in assigned state")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("assignment: quantity must be positive")
)
