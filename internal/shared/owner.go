package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// Scope distinguishes the company-wide stock pool from a field employee's pool.
type Scope string

const (
	// ScopeAdmin is the central company inventory.
	ScopeAdmin Scope = "admin"
	// ScopeEmployee is a specific field employee's working inventory.
	ScopeEmployee Scope = "employee"
)

// Owner identifies who holds a stock counter. EmployeeID is uuid.Nil for admin scope.
type Owner struct {
	Scope      Scope
	EmployeeID uuid.UUID
}

// AdminOwner returns the central inventory owner.
func AdminOwner() Owner {
	return Owner{Scope: ScopeAdmin}
}

// EmployeeOwner returns the owner for one employee's inventory.
func EmployeeOwner(employeeID uuid.UUID) Owner {
	return Owner{Scope: ScopeEmployee, EmployeeID: employeeID}
}

// IsAdmin reports whether the owner is the central inventory.
func (o Owner) IsAdmin() bool {
	return o.Scope == ScopeAdmin
}

// Validate checks scope/employee consistency.
func (o Owner) Validate() error {
	switch o.Scope {
	case ScopeAdmin:
		if o.EmployeeID != uuid.Nil {
			return fmt.Errorf("admin owner must not carry employee id")
		}
	case ScopeEmployee:
		if o.EmployeeID == uuid.Nil {
			return fmt.Errorf("employee owner requires employee id")
		}
	default:
		return fmt.Errorf("unknown owner scope %q", o.Scope)
	}
	return nil
}

// String renders a stable cache/log key for the owner.
func (o Owner) String() string {
	if o.IsAdmin() {
		return "admin"
	}
	return "employee:" + o.EmployeeID.String()
}
