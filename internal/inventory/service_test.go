package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gasflow-erp/gasflow/internal/shared"
)

type memoryRepo struct {
	items map[string]Item
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]Item)}
}

func itemKey(owner shared.Owner, productID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", owner, productID)
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func (r *memoryRepo) ApplyDelta(ctx context.Context, d Delta) (Item, error) {
	key := itemKey(d.Owner, d.ProductID)
	item, ok := r.items[key]
	if !ok {
		item = Item{Owner: d.Owner, ProductID: d.ProductID}
	}
	item.CurrentStock = clamp(item.CurrentStock + d.Gas)
	item.AvailableEmpty = clamp(item.AvailableEmpty + d.Empty)
	item.AvailableFull = clamp(item.AvailableFull + d.Full)
	if d.CylinderSize != "" {
		item.CylinderSize = d.CylinderSize
	}
	item.UpdatedAt = time.Now()
	r.items[key] = item
	return item, nil
}

func (r *memoryRepo) Get(ctx context.Context, owner shared.Owner, productID uuid.UUID) (Item, error) {
	item, ok := r.items[itemKey(owner, productID)]
	if !ok {
		return Item{Owner: owner, ProductID: productID}, ErrItemNotFound
	}
	return item, nil
}

func (r *memoryRepo) ListByOwner(ctx context.Context, owner shared.Owner) ([]Item, error) {
	var items []Item
	for _, item := range r.items {
		if item.Owner == owner {
			items = append(items, item)
		}
	}
	return items, nil
}

func TestApplyCreatesItemLazily(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()
	employee := shared.EmployeeOwner(uuid.New())
	productID := uuid.New()

	item, err := svc.Apply(ctx, Delta{Owner: employee, ProductID: productID, CylinderSize: "45kg", Empty: 10})
	require.NoError(t, err)
	require.Equal(t, int64(10), item.AvailableEmpty)
	require.Equal(t, "45kg", item.CylinderSize)
}

func TestApplyFloorsAtZero(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()
	admin := shared.AdminOwner()
	productID := uuid.New()

	_, err := svc.Apply(ctx, Delta{Owner: admin, ProductID: productID, Empty: 3})
	require.NoError(t, err)

	// Over-deduction clamps rather than going negative.
	item, err := svc.Apply(ctx, Delta{Owner: admin, ProductID: productID, Empty: -8, Gas: -1, Full: -2})
	require.NoError(t, err)
	require.Equal(t, int64(0), item.AvailableEmpty)
	require.Equal(t, int64(0), item.CurrentStock)
	require.Equal(t, int64(0), item.AvailableFull)
}

func TestApplyRejectsEmptyDelta(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.Apply(context.Background(), Delta{Owner: shared.AdminOwner(), ProductID: uuid.New()})
	require.ErrorIs(t, err, ErrEmptyDelta)
}

func TestGetReturnsZeroItemWhenMissing(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	owner := shared.EmployeeOwner(uuid.New())
	productID := uuid.New()

	item, err := svc.Get(context.Background(), owner, productID)
	require.NoError(t, err)
	require.Equal(t, owner, item.Owner)
	require.Zero(t, item.AvailableFull)
}

func TestCheckAvailable(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()
	admin := shared.AdminOwner()
	productID := uuid.New()

	_, err := svc.Apply(ctx, Delta{Owner: admin, ProductID: productID, Empty: 3})
	require.NoError(t, err)

	require.NoError(t, svc.CheckAvailable(ctx, admin, productID, CounterEmpty, 3))

	err = svc.CheckAvailable(ctx, admin, productID, CounterEmpty, 5)
	var insufficiency *shared.InsufficiencyError
	require.ErrorAs(t, err, &insufficiency)
	require.Equal(t, int64(3), insufficiency.Available)
	require.Equal(t, int64(5), insufficiency.Required)
	require.Contains(t, err.Error(), "available 3, required 5")
}
