package inventory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ApplyDelta(ctx context.Context, d Delta) (Item, error)
	Get(ctx context.Context, owner shared.Owner, productID uuid.UUID) (Item, error)
	ListByOwner(ctx context.Context, owner shared.Owner) ([]Item, error)
}

// Service coordinates inventory counter updates.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Apply posts one delta. Items are created lazily on first event.
func (s *Service) Apply(ctx context.Context, d Delta) (Item, error) {
	if err := d.Owner.Validate(); err != nil {
		return Item{}, err
	}
	if d.ProductID == uuid.Nil {
		return Item{}, errors.New("inventory: product required")
	}
	if d.IsZero() {
		return Item{}, ErrEmptyDelta
	}
	return s.repo.ApplyDelta(ctx, d)
}

// Get returns the item, or a zeroed item when no stock event has touched the
// (owner, product) pair yet.
func (s *Service) Get(ctx context.Context, owner shared.Owner, productID uuid.UUID) (Item, error) {
	item, err := s.repo.Get(ctx, owner, productID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return Item{Owner: owner, ProductID: productID}, nil
		}
		return Item{}, err
	}
	return item, nil
}

// ListByOwner returns every item held by the owner.
func (s *Service) ListByOwner(ctx context.Context, owner shared.Owner) ([]Item, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListByOwner(ctx, owner)
}

// CheckAvailable rejects with an insufficiency error carrying available/required
// counts when the selected counter holds less than qty.
func (s *Service) CheckAvailable(ctx context.Context, owner shared.Owner, productID uuid.UUID, counter Counter, qty int64) error {
	item, err := s.Get(ctx, owner, productID)
	if err != nil {
		return err
	}
	if available := item.Value(counter); available < qty {
		return shared.NewInsufficiencyError(counter.Resource(), available, qty)
	}
	return nil
}
