package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/dailyledger"
	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/sequence"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Insert(ctx context.Context, t Transaction) error
	Get(ctx context.Context, id uuid.UUID) (Transaction, error)
	ListReturnsLinkedTo(ctx context.Context, depositID uuid.UUID) ([]Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}

// SequencePort stamps records with human-facing invoice numbers.
type SequencePort interface {
	PersistWithRetry(ctx context.Context, series string, persist func(ctx context.Context, number string) error) (string, error)
}

// AssignmentPort adjusts an employee's remaining assigned quantity.
type AssignmentPort interface {
	Consume(ctx context.Context, employeeID, productID uuid.UUID, qty int64) error
	Restore(ctx context.Context, employeeID, productID uuid.UUID, qty int64) error
}

// InventoryPort applies stock counter deltas.
type InventoryPort interface {
	Apply(ctx context.Context, d inventory.Delta) (inventory.Item, error)
}

// DailyPort records daily projection deltas.
type DailyPort interface {
	Apply(ctx context.Context, d dailyledger.Delta) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service maintains the deposit-return ledger.
type Service struct {
	repo        RepositoryPort
	sequences   SequencePort
	assignments AssignmentPort
	inventory   InventoryPort
	daily       DailyPort
	audit       AuditPort
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service. assignments, inventory, daily and audit may be nil.
func NewService(repo RepositoryPort, sequences SequencePort, assignments AssignmentPort, inv InventoryPort, daily DailyPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		sequences:   sequences,
		assignments: assignments,
		inventory:   inv,
		daily:       daily,
		audit:       audit,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// DepositInput describes a cylinder handed out against a refundable charge.
type DepositInput struct {
	Owner       shared.Owner
	CustomerID  uuid.UUID
	ProductID   uuid.UUID
	Quantity    int64
	Items       []Item
	Amount      float64
	PaymentMode string
	PaidAmount  float64
	ActorID     string
}

// RecordDeposit creates a deposit transaction. Status is always pending on
// creation regardless of caller input; clearance is derived later from returns.
func (s *Service) RecordDeposit(ctx context.Context, input DepositInput) (Transaction, error) {
	t := Transaction{
		ID:          uuid.New(),
		Owner:       input.Owner,
		CustomerID:  input.CustomerID,
		ProductID:   input.ProductID,
		Items:       input.Items,
		Quantity:    input.Quantity,
		Amount:      input.Amount,
		PaymentMode: input.PaymentMode,
		PaidAmount:  input.PaidAmount,
		Type:        TypeDeposit,
		Status:      StatusPending,
		CreatedAt:   s.now(),
	}
	if err := s.validate(t); err != nil {
		return Transaction{}, err
	}

	// Hard validation: an employee cannot hand out more than they still hold,
	// checked per product line.
	lines := t.Lines()
	if !t.Owner.IsAdmin() && s.assignments != nil {
		if err := s.consumeLines(ctx, t.Owner.EmployeeID, lines); err != nil {
			return Transaction{}, err
		}
	}

	if err := s.persistWithInvoice(ctx, &t, sequence.SeriesCylinderInvoice); err != nil {
		return Transaction{}, err
	}

	saga := shared.NewSaga("deposit-projections", s.logger)
	if s.inventory != nil {
		saga.ThenTolerate("owner-empty-stock", func(ctx context.Context) error {
			for _, line := range lines {
				if _, err := s.inventory.Apply(ctx, inventory.Delta{Owner: t.Owner, ProductID: line.ProductID, Empty: -line.Quantity}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if s.daily != nil {
		saga.ThenTolerate("daily-deposit-delta", func(ctx context.Context) error {
			for _, line := range lines {
				if err := s.daily.Apply(ctx, dailyledger.Delta{Date: t.CreatedAt, Owner: t.Owner, ProductID: line.ProductID, Deposits: line.Quantity}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := saga.Run(ctx); err != nil {
		return Transaction{}, err
	}

	s.recordAudit(ctx, input.ActorID, "ledger:deposit", t)
	return t, nil
}

// ReturnInput describes a cylinder handed back by a customer.
type ReturnInput struct {
	Owner         shared.Owner
	CustomerID    uuid.UUID
	ProductID     uuid.UUID
	Quantity      int64
	Items         []Item
	Amount        float64
	PaymentMode   string
	PaidAmount    float64
	LinkedDeposit uuid.UUID
	ActorID       string
}

// RecordReturn creates a return transaction, always cleared, and recomputes the
// linked deposit's clearance status.
func (s *Service) RecordReturn(ctx context.Context, input ReturnInput) (Transaction, error) {
	t := Transaction{
		ID:            uuid.New(),
		Owner:         input.Owner,
		CustomerID:    input.CustomerID,
		ProductID:     input.ProductID,
		Items:         input.Items,
		Quantity:      input.Quantity,
		Amount:        input.Amount,
		PaymentMode:   input.PaymentMode,
		PaidAmount:    input.PaidAmount,
		Type:          TypeReturn,
		Status:        StatusCleared,
		LinkedDeposit: input.LinkedDeposit,
		CreatedAt:     s.now(),
	}
	if err := s.validate(t); err != nil {
		return Transaction{}, err
	}

	if err := s.persistWithInvoice(ctx, &t, sequence.SeriesCylinderInvoice); err != nil {
		return Transaction{}, err
	}

	lines := t.Lines()
	saga := shared.NewSaga("return-projections", s.logger)
	if t.LinkedDeposit != uuid.Nil {
		saga.ThenTolerate("deposit-clearance", func(ctx context.Context) error {
			return s.RecomputeClearance(ctx, t.LinkedDeposit)
		})
	}
	if s.inventory != nil {
		saga.ThenTolerate("owner-empty-stock", func(ctx context.Context) error {
			for _, line := range lines {
				if _, err := s.inventory.Apply(ctx, inventory.Delta{Owner: t.Owner, ProductID: line.ProductID, Empty: line.Quantity}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if !t.Owner.IsAdmin() && s.assignments != nil {
		saga.ThenTolerate("restore-remaining", func(ctx context.Context) error {
			for _, line := range lines {
				if err := s.assignments.Restore(ctx, t.Owner.EmployeeID, line.ProductID, line.Quantity); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if s.daily != nil {
		saga.ThenTolerate("daily-return-delta", func(ctx context.Context) error {
			for _, line := range lines {
				if err := s.daily.Apply(ctx, dailyledger.Delta{Date: t.CreatedAt, Owner: t.Owner, ProductID: line.ProductID, Returns: line.Quantity}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := saga.Run(ctx); err != nil {
		return Transaction{}, err
	}

	s.recordAudit(ctx, input.ActorID, "ledger:return", t)
	return t, nil
}

// Get loads one transaction.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Transaction, error) {
	return s.repo.Get(ctx, id)
}

// RecomputeClearance re-derives a deposit's status from the full set of linked
// returns. Safe to run redundantly; a malformed link is a no-op, not an error.
func (s *Service) RecomputeClearance(ctx context.Context, depositID uuid.UUID) error {
	deposit, err := s.repo.Get(ctx, depositID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("clearance recompute skipped, deposit missing", slog.String("deposit_id", depositID.String()))
			return nil
		}
		return err
	}
	if deposit.Type != TypeDeposit {
		s.logger.Warn("clearance recompute skipped, link target is not a deposit",
			slog.String("deposit_id", depositID.String()),
			slog.String("type", string(deposit.Type)))
		return nil
	}

	returns, err := s.repo.ListReturnsLinkedTo(ctx, depositID)
	if err != nil {
		return err
	}
	var returned int64
	for _, ret := range returns {
		returned += ret.TotalQuantity()
	}

	status := ClearanceStatus(deposit.TotalQuantity(), returned)
	if status == deposit.Status {
		return nil
	}
	return s.repo.UpdateStatus(ctx, depositID, status)
}

// consumeLines decrements remaining assigned stock per product line. When a
// line fails, the lines already consumed are restored so a rejected deposit
// leaves the assignments untouched.
func (s *Service) consumeLines(ctx context.Context, employeeID uuid.UUID, lines []Line) error {
	for i, line := range lines {
		if err := s.assignments.Consume(ctx, employeeID, line.ProductID, line.Quantity); err != nil {
			for _, done := range lines[:i] {
				if restoreErr := s.assignments.Restore(ctx, employeeID, done.ProductID, done.Quantity); restoreErr != nil {
					s.logger.Error("consume rollback failed",
						slog.String("employee_id", employeeID.String()),
						slog.String("product_id", done.ProductID.String()),
						slog.Any("error", restoreErr))
				}
			}
			return err
		}
	}
	return nil
}

func (s *Service) validate(t Transaction) error {
	if err := t.Owner.Validate(); err != nil {
		return err
	}
	if t.CustomerID == uuid.Nil {
		return ErrCustomerRequired
	}
	if t.TotalQuantity() <= 0 {
		return ErrInvalidQuantity
	}
	for _, item := range t.Items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	if len(t.Items) == 0 && t.ProductID == uuid.Nil {
		return errors.New("ledger: product required")
	}
	return nil
}

// persistWithInvoice inserts the record under a fresh invoice number, retrying
// on a numbering collision.
func (s *Service) persistWithInvoice(ctx context.Context, t *Transaction, series string) error {
	number, err := s.sequences.PersistWithRetry(ctx, series, func(ctx context.Context, number string) error {
		t.InvoiceNumber = number
		return s.repo.Insert(ctx, *t)
	})
	if err != nil {
		return err
	}
	t.InvoiceNumber = number
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action string, t Transaction) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "cylinder_transaction",
		EntityID: t.ID.String(),
		Meta: map[string]any{
			"customer_id": t.CustomerID.String(),
			"quantity":    t.TotalQuantity(),
			"invoice":     t.InvoiceNumber,
			"status":      string(t.Status),
		},
	})
}
