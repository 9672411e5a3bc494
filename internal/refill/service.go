package refill

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/catalog"
	"github.com/gasflow-erp/gasflow/internal/dailyledger"
	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/ledger"
	"github.com/gasflow-erp/gasflow/internal/sequence"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// CatalogPort looks up products for validation.
type CatalogPort interface {
	Get(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// InventoryPort applies counter deltas and checks availability.
type InventoryPort interface {
	Apply(ctx context.Context, d inventory.Delta) (inventory.Item, error)
	CheckAvailable(ctx context.Context, owner shared.Owner, productID uuid.UUID, counter inventory.Counter, qty int64) error
}

// DailyPort records daily projection deltas.
type DailyPort interface {
	Apply(ctx context.Context, d dailyledger.Delta) error
}

// SequencePort stamps refills with human-facing voucher numbers.
type SequencePort interface {
	PersistWithRetry(ctx context.Context, series string, persist func(ctx context.Context, number string) error) (string, error)
}

// RecorderPort persists the refill as a raw ledger record. Projection rebuilds
// replay refilled counts from these records.
type RecorderPort interface {
	Insert(ctx context.Context, t ledger.Transaction) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service turns empty cylinders plus gas content into full cylinders.
// A full cylinder is an empty cylinder plus gas, so one refill event is
// two independent stock ledgers moving together.
type Service struct {
	catalog   CatalogPort
	inventory InventoryPort
	daily     DailyPort
	sequences SequencePort
	records   RecorderPort
	audit     AuditPort
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service. daily and audit may be nil.
func NewService(cat CatalogPort, inv InventoryPort, daily DailyPort, sequences SequencePort, records RecorderPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:   cat,
		inventory: inv,
		daily:     daily,
		sequences: sequences,
		records:   records,
		audit:     audit,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Input describes one refill of empty cylinders against a gas product.
type Input struct {
	Owner           shared.Owner
	PartyID         uuid.UUID
	GasProductID    uuid.UUID
	EmptyCylinderID uuid.UUID
	Quantity        int64
	ActorID         string
}

// Result carries the voucher plus the two inventory items the refill touched.
type Result struct {
	VoucherNumber     string
	GasInventory      inventory.Item
	CylinderInventory inventory.Item
}

var (
	// ErrInvalidQuantity indicates a non-positive refill quantity.
	ErrInvalidQuantity = errors.New("refill: quantity must be positive")
	// ErrNotGasProduct indicates the gas reference points at a non-gas SKU.
	ErrNotGasProduct = errors.New("refill: gas product reference is not a gas SKU")
	// ErrNotEmptyCylinder indicates the cylinder reference is not an empty-cylinder SKU.
	ErrNotEmptyCylinder = errors.New("refill: cylinder reference is not an empty-cylinder SKU")
)

// Process runs the split: validate empty stock, then gas stock up, full count
// up, empty count down, daily delta. Step order is fixed so that a crash mid
// sequence leaves more stock on the books than physically exists, never less.
func (s *Service) Process(ctx context.Context, input Input) (Result, error) {
	if err := input.Owner.Validate(); err != nil {
		return Result{}, err
	}
	if input.Quantity <= 0 {
		return Result{}, ErrInvalidQuantity
	}

	gas, err := s.catalog.Get(ctx, input.GasProductID)
	if err != nil {
		return Result{}, err
	}
	if !gas.IsGas() {
		return Result{}, ErrNotGasProduct
	}
	cylinder, err := s.catalog.Get(ctx, input.EmptyCylinderID)
	if err != nil {
		return Result{}, err
	}
	if cylinder.Category != catalog.CategoryCylinder || cylinder.CylinderStatus != catalog.CylinderEmpty {
		return Result{}, ErrNotEmptyCylinder
	}

	// Hard validation before any write.
	if err := s.inventory.CheckAvailable(ctx, input.Owner, cylinder.ID, inventory.CounterEmpty, input.Quantity); err != nil {
		return Result{}, err
	}

	// The raw record is written before any stock moves, same order as the
	// deposit-return ledger. It is the durable source projection rebuilds
	// replay refilled counts from.
	now := s.now()
	record := ledger.Transaction{
		ID:         uuid.New(),
		Owner:      input.Owner,
		CustomerID: input.PartyID,
		ProductID:  cylinder.ID,
		Quantity:   input.Quantity,
		Type:       ledger.TypeRefill,
		Status:     ledger.StatusCleared,
		CreatedAt:  now,
	}
	var result Result
	if s.sequences != nil && s.records != nil {
		number, err := s.sequences.PersistWithRetry(ctx, sequence.SeriesRefillVoucher, func(ctx context.Context, number string) error {
			record.InvoiceNumber = number
			return s.records.Insert(ctx, record)
		})
		if err != nil {
			return Result{}, err
		}
		result.VoucherNumber = number
	}

	saga := shared.NewSaga("refill-split", s.logger)
	saga.Then("gas-stock", func(ctx context.Context) error {
		item, err := s.inventory.Apply(ctx, inventory.Delta{
			Owner:     input.Owner,
			ProductID: gas.ID,
			Gas:       input.Quantity,
		})
		if err != nil {
			return err
		}
		result.GasInventory = item
		return nil
	})
	saga.ThenTolerate("cylinder-full", func(ctx context.Context) error {
		item, err := s.inventory.Apply(ctx, inventory.Delta{
			Owner:        input.Owner,
			ProductID:    cylinder.ID,
			CylinderSize: cylinder.CylinderSize,
			Full:         input.Quantity,
		})
		if err != nil {
			return err
		}
		result.CylinderInventory = item
		return nil
	})
	saga.ThenTolerate("cylinder-empty", func(ctx context.Context) error {
		item, err := s.inventory.Apply(ctx, inventory.Delta{
			Owner:        input.Owner,
			ProductID:    cylinder.ID,
			CylinderSize: cylinder.CylinderSize,
			Empty:        -input.Quantity,
		})
		if err != nil {
			return err
		}
		result.CylinderInventory = item
		return nil
	})
	if s.daily != nil {
		saga.ThenTolerate("daily-refill-delta", func(ctx context.Context) error {
			return s.daily.Apply(ctx, dailyledger.Delta{
				Date:      now,
				Owner:     input.Owner,
				ProductID: cylinder.ID,
				Refilled:  input.Quantity,
			})
		})
	}
	if err := saga.Run(ctx); err != nil {
		return Result{}, err
	}

	s.recordAudit(ctx, input, result)
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, input Input, result Result) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  input.ActorID,
		Action:   "refill:process",
		Entity:   "refill",
		EntityID: result.VoucherNumber,
		Meta: map[string]any{
			"owner":       input.Owner.String(),
			"gas_product": input.GasProductID.String(),
			"cylinder":    input.EmptyCylinderID.String(),
			"quantity":    input.Quantity,
			"party_id":    input.PartyID.String(),
		},
	})
}
