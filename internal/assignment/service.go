package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/catalog"
	"github.com/gasflow-erp/gasflow/internal/dailyledger"
	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Insert(ctx context.Context, a Assignment) error
	Get(ctx context.Context, id uuid.UUID) (Assignment, error)
	MarkReceived(ctx context.Context, id uuid.UUID) (bool, error)
	MarkReturned(ctx context.Context, id uuid.UUID) (bool, error)
	TotalRemaining(ctx context.Context, employeeID, productID uuid.UUID) (int64, error)
	ConsumeRemaining(ctx context.Context, employeeID, productID uuid.UUID, qty int64) error
	RestoreRemaining(ctx context.Context, employeeID, productID uuid.UUID, qty int64) error
}

// CatalogPort resolves products.
type CatalogPort interface {
	Get(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// InventoryPort applies stock counter deltas.
type InventoryPort interface {
	Apply(ctx context.Context, d inventory.Delta) (inventory.Item, error)
	CheckAvailable(ctx context.Context, owner shared.Owner, productID uuid.UUID, counter inventory.Counter, qty int64) error
}

// DailyPort records daily projection deltas.
type DailyPort interface {
	Apply(ctx context.Context, d dailyledger.Delta) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the assignment state machine.
type Service struct {
	repo      RepositoryPort
	catalog   CatalogPort
	inventory InventoryPort
	daily     DailyPort
	audit     AuditPort
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service. audit and daily may be nil.
func NewService(repo RepositoryPort, cat CatalogPort, inv InventoryPort, daily DailyPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		catalog:   cat,
		inventory: inv,
		daily:     daily,
		audit:     audit,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// IssueInput describes an admin issuing stock to an employee.
type IssueInput struct {
	EmployeeID   uuid.UUID
	ProductID    uuid.UUID
	Quantity     int64
	GasProductID uuid.UUID
	ActorID      string
}

// Issue creates an assignment in the assigned state. Source inventory is
// validated but not deducted; deduction happens at acceptance.
func (s *Service) Issue(ctx context.Context, input IssueInput) (Assignment, error) {
	if input.Quantity <= 0 {
		return Assignment{}, ErrInvalidQuantity
	}
	if input.EmployeeID == uuid.Nil {
		return Assignment{}, fmt.Errorf("assignment: employee required")
	}

	product, err := s.catalog.Get(ctx, input.ProductID)
	if err != nil {
		return Assignment{}, err
	}

	counter := counterFor(product.Category, product.CylinderStatus)
	if err := s.inventory.CheckAvailable(ctx, shared.AdminOwner(), product.ID, counter, input.Quantity); err != nil {
		return Assignment{}, err
	}

	a := Assignment{
		ID:                uuid.New(),
		EmployeeID:        input.EmployeeID,
		ProductID:         product.ID,
		Quantity:          input.Quantity,
		RemainingQuantity: input.Quantity,
		Category:          product.Category,
		CylinderStatus:    product.CylinderStatus,
		CylinderSize:      product.CylinderSize,
		Status:            StatusAssigned,
		LeastPrice:        product.LeastPrice,
		CreatedAt:         s.now(),
		UpdatedAt:         s.now(),
	}

	if input.GasProductID != uuid.Nil {
		if !product.IsFullCylinder() {
			return Assignment{}, fmt.Errorf("assignment: gas cross-link requires a full-cylinder product")
		}
		gas, err := s.catalog.Get(ctx, input.GasProductID)
		if err != nil {
			return Assignment{}, err
		}
		if !gas.IsGas() {
			return Assignment{}, fmt.Errorf("assignment: product %s is not gas", gas.ID)
		}
		a.GasProductID = gas.ID
		a.CylinderProductID = product.ID
	}

	if err := s.repo.Insert(ctx, a); err != nil {
		return Assignment{}, err
	}
	s.recordAudit(ctx, input.ActorID, "assignment:issue", a)
	return a, nil
}

// Accept transitions assigned -> received; only here is the employee's working
// inventory materialized. The assignment row is the durable source of truth:
// projection failures after the transition are logged and swallowed.
func (s *Service) Accept(ctx context.Context, assignmentID, employeeID uuid.UUID) (Assignment, error) {
	a, err := s.repo.Get(ctx, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if a.EmployeeID != employeeID {
		return Assignment{}, ErrNotAssignee
	}
	if a.Status != StatusAssigned {
		return Assignment{}, ErrNotAcceptable
	}

	flipped, err := s.repo.MarkReceived(ctx, a.ID)
	if err != nil {
		return Assignment{}, err
	}
	if !flipped {
		// Lost the race with a concurrent accept.
		return Assignment{}, ErrNotAcceptable
	}
	a.Status = StatusReceived
	a.UpdatedAt = s.now()
	a.ReceivedAt = a.UpdatedAt

	if err := s.materializeSaga(a).Run(ctx); err != nil {
		return Assignment{}, err
	}
	s.recordAudit(ctx, employeeID.String(), "assignment:accept", a)
	return a, nil
}

// Return transitions assigned -> returned without touching inventory.
func (s *Service) Return(ctx context.Context, assignmentID, employeeID uuid.UUID) (Assignment, error) {
	a, err := s.repo.Get(ctx, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if a.EmployeeID != employeeID {
		return Assignment{}, ErrNotAssignee
	}
	flipped, err := s.repo.MarkReturned(ctx, a.ID)
	if err != nil {
		return Assignment{}, err
	}
	if !flipped {
		return Assignment{}, ErrNotAcceptable
	}
	a.Status = StatusReturned
	a.UpdatedAt = s.now()
	s.recordAudit(ctx, employeeID.String(), "assignment:return", a)
	return a, nil
}

// Get loads one assignment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Assignment, error) {
	return s.repo.Get(ctx, id)
}

// Consume decrements the employee's remaining quantity for later deposit/sale
// events. Insufficient remaining stock is a hard validation error.
func (s *Service) Consume(ctx context.Context, employeeID, productID uuid.UUID, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return s.repo.ConsumeRemaining(ctx, employeeID, productID, qty)
}

// Restore returns previously consumed quantity after a customer return.
func (s *Service) Restore(ctx context.Context, employeeID, productID uuid.UUID, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return s.repo.RestoreRemaining(ctx, employeeID, productID, qty)
}

// materializeSaga builds the acceptance write sequence: employee items first
// (gas content before the full cylinder that carries it), source deduction and
// daily deltas after. Every step tolerates failure; items are rebuildable.
func (s *Service) materializeSaga(a Assignment) *shared.Saga {
	employee := shared.EmployeeOwner(a.EmployeeID)
	admin := shared.AdminOwner()
	day := s.now()
	saga := shared.NewSaga("assignment-accept", s.logger)

	if a.IsComposite() {
		saga.ThenTolerate("employee-gas-stock", func(ctx context.Context) error {
			_, err := s.inventory.Apply(ctx, inventory.Delta{Owner: employee, ProductID: a.GasProductID, CylinderSize: a.CylinderSize, Gas: a.Quantity})
			return err
		})
		saga.ThenTolerate("employee-full-cylinders", func(ctx context.Context) error {
			_, err := s.inventory.Apply(ctx, inventory.Delta{Owner: employee, ProductID: a.CylinderProductID, CylinderSize: a.CylinderSize, Full: a.Quantity})
			return err
		})
		saga.ThenTolerate("admin-deduction", func(ctx context.Context) error {
			if _, err := s.inventory.Apply(ctx, inventory.Delta{Owner: admin, ProductID: a.GasProductID, Gas: -a.Quantity}); err != nil {
				return err
			}
			_, err := s.inventory.Apply(ctx, inventory.Delta{Owner: admin, ProductID: a.CylinderProductID, Full: -a.Quantity})
			return err
		})
	} else {
		delta := inventory.Delta{Owner: employee, ProductID: a.ProductID, CylinderSize: a.CylinderSize}
		deduction := inventory.Delta{Owner: admin, ProductID: a.ProductID}
		switch counterFor(a.Category, a.CylinderStatus) {
		case inventory.CounterGas:
			delta.Gas, deduction.Gas = a.Quantity, -a.Quantity
		case inventory.CounterEmpty:
			delta.Empty, deduction.Empty = a.Quantity, -a.Quantity
		case inventory.CounterFull:
			delta.Full, deduction.Full = a.Quantity, -a.Quantity
		}
		saga.ThenTolerate("employee-stock", func(ctx context.Context) error {
			_, err := s.inventory.Apply(ctx, delta)
			return err
		})
		saga.ThenTolerate("admin-deduction", func(ctx context.Context) error {
			_, err := s.inventory.Apply(ctx, deduction)
			return err
		})
	}

	if s.daily != nil {
		saga.ThenTolerate("daily-deltas", func(ctx context.Context) error {
			received, transferred := DailyDeltas(a, day)
			if err := s.daily.Apply(ctx, received); err != nil {
				return err
			}
			return s.daily.Apply(ctx, transferred)
		})
	}
	return saga
}

// DailyDeltas pairs one acceptance with its projection updates: the employee
// received stock, the admin transferred it out. Empty cylinders count on the
// empty columns, everything else on the gas columns.
func DailyDeltas(a Assignment, at time.Time) (received, transferred dailyledger.Delta) {
	received = dailyledger.Delta{Date: at, Owner: shared.EmployeeOwner(a.EmployeeID), ProductID: a.ProductID}
	transferred = dailyledger.Delta{Date: at, Owner: shared.AdminOwner(), ProductID: a.ProductID}
	if a.Category == catalog.CategoryCylinder && a.CylinderStatus == catalog.CylinderEmpty {
		received.ReceivedEmpty = a.Quantity
		transferred.TransferEmpty = a.Quantity
	} else {
		received.ReceivedGas = a.Quantity
		transferred.TransferGas = a.Quantity
	}
	return received, transferred
}

func (s *Service) recordAudit(ctx context.Context, actorID, action string, a Assignment) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_assignment",
		EntityID: a.ID.String(),
		Meta: map[string]any{
			"employee_id": a.EmployeeID.String(),
			"product_id":  a.ProductID.String(),
			"quantity":    a.Quantity,
			"status":      string(a.Status),
		},
	})
}

func counterFor(category catalog.Category, status catalog.CylinderStatus) inventory.Counter {
	if category == catalog.CategoryGas {
		return inventory.CounterGas
	}
	if status == catalog.CylinderFull {
		return inventory.CounterFull
	}
	return inventory.CounterEmpty
}
