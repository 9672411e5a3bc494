package assignment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gasflow-erp/gasflow/internal/catalog"
	"github.com/gasflow-erp/gasflow/internal/dailyledger"
	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

type memoryRepo struct {
	assignments map[uuid.UUID]*Assignment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{assignments: make(map[uuid.UUID]*Assignment)}
}

func (r *memoryRepo) Insert(ctx context.Context, a Assignment) error {
	clone := a
	r.assignments[a.ID] = &clone
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (Assignment, error) {
	a, ok := r.assignments[id]
	if !ok {
		return Assignment{}, fmt.Errorf("assignment %s: %w", id, shared.ErrNotFound)
	}
	return *a, nil
}

func (r *memoryRepo) MarkReceived(ctx context.Context, id uuid.UUID) (bool, error) {
	a, ok := r.assignments[id]
	if !ok || a.Status != StatusAssigned {
		return false, nil
	}
	a.Status = StatusReceived
	return true, nil
}

func (r *memoryRepo) MarkReturned(ctx context.Context, id uuid.UUID) (bool, error) {
	a, ok := r.assignments[id]
	if !ok || a.Status != StatusAssigned {
		return false, nil
	}
	a.Status = StatusReturned
	return true, nil
}

func (r *memoryRepo) TotalRemaining(ctx context.Context, employeeID, productID uuid.UUID) (int64, error) {
	var total int64
	for _, a := range r.assignments {
		if a.EmployeeID == employeeID && a.ProductID == productID && a.Status == StatusReceived {
			total += a.RemainingQuantity
		}
	}
	return total, nil
}

func (r *memoryRepo) ConsumeRemaining(ctx context.Context, employeeID, productID uuid.UUID, qty int64) error {
	total, _ := r.TotalRemaining(ctx, employeeID, productID)
	if total < qty {
		return shared.NewInsufficiencyError("assigned stock", total, qty)
	}
	left := qty
	for _, a := range r.assignments {
		if left == 0 {
			break
		}
		if a.EmployeeID == employeeID && a.ProductID == productID && a.Status == StatusReceived && a.RemainingQuantity > 0 {
			take := min(left, a.RemainingQuantity)
			a.RemainingQuantity -= take
			left -= take
		}
	}
	return nil
}

func (r *memoryRepo) RestoreRemaining(ctx context.Context, employeeID, productID uuid.UUID, qty int64) error {
	left := qty
	for _, a := range r.assignments {
		if left == 0 {
			break
		}
		if a.EmployeeID == employeeID && a.ProductID == productID && a.Status == StatusReceived && a.RemainingQuantity < a.Quantity {
			give := min(left, a.Quantity-a.RemainingQuantity)
			a.RemainingQuantity += give
			left -= give
		}
	}
	return nil
}

type fakeCatalog struct {
	products map[uuid.UUID]catalog.Product
}

func (c *fakeCatalog) Get(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, fmt.Errorf("catalog: product %s: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

type fakeInventory struct {
	items    map[string]inventory.Item
	failWith map[uuid.UUID]error
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{items: make(map[string]inventory.Item), failWith: make(map[uuid.UUID]error)}
}

func invKey(owner shared.Owner, productID uuid.UUID) string {
	return owner.String() + ":" + productID.String()
}

func (f *fakeInventory) seed(owner shared.Owner, productID uuid.UUID, gas, empty, full int64) {
	f.items[invKey(owner, productID)] = inventory.Item{Owner: owner, ProductID: productID, CurrentStock: gas, AvailableEmpty: empty, AvailableFull: full}
}

func (f *fakeInventory) item(owner shared.Owner, productID uuid.UUID) inventory.Item {
	return f.items[invKey(owner, productID)]
}

func (f *fakeInventory) Apply(ctx context.Context, d inventory.Delta) (inventory.Item, error) {
	if err := f.failWith[d.ProductID]; err != nil {
		return inventory.Item{}, err
	}
	key := invKey(d.Owner, d.ProductID)
	item, ok := f.items[key]
	if !ok {
		item = inventory.Item{Owner: d.Owner, ProductID: d.ProductID}
	}
	item.CurrentStock = max(0, item.CurrentStock+d.Gas)
	item.AvailableEmpty = max(0, item.AvailableEmpty+d.Empty)
	item.AvailableFull = max(0, item.AvailableFull+d.Full)
	f.items[key] = item
	return item, nil
}

func (f *fakeInventory) CheckAvailable(ctx context.Context, owner shared.Owner, productID uuid.UUID, counter inventory.Counter, qty int64) error {
	item := f.items[invKey(owner, productID)]
	if available := item.Value(counter); available < qty {
		return shared.NewInsufficiencyError(counter.Resource(), available, qty)
	}
	return nil
}

type fakeDaily struct {
	deltas []dailyledger.Delta
}

func (f *fakeDaily) Apply(ctx context.Context, d dailyledger.Delta) error {
	f.deltas = append(f.deltas, d)
	return nil
}

type fixture struct {
	svc        *Service
	repo       *memoryRepo
	inv        *fakeInventory
	daily      *fakeDaily
	gasID      uuid.UUID
	fullID     uuid.UUID
	emptyID    uuid.UUID
	employeeID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gasID, fullID, emptyID := uuid.New(), uuid.New(), uuid.New()
	cat := &fakeCatalog{products: map[uuid.UUID]catalog.Product{
		gasID:   {ID: gasID, Name: "LPG 45kg content", Category: catalog.CategoryGas, CylinderSize: "45kg", LeastPrice: 110},
		fullID:  {ID: fullID, Name: "45kg cylinder (full)", Category: catalog.CategoryCylinder, CylinderStatus: catalog.CylinderFull, CylinderSize: "45kg", LeastPrice: 180},
		emptyID: {ID: emptyID, Name: "45kg cylinder (empty)", Category: catalog.CategoryCylinder, CylinderStatus: catalog.CylinderEmpty, CylinderSize: "45kg", LeastPrice: 70},
	}}
	repo := newMemoryRepo()
	inv := newFakeInventory()
	daily := &fakeDaily{}
	svc := NewService(repo, cat, inv, daily, nil, nil)
	return &fixture{svc: svc, repo: repo, inv: inv, daily: daily, gasID: gasID, fullID: fullID, emptyID: emptyID, employeeID: uuid.New()}
}

func TestIssueCreatesAssignedWithoutTouchingInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := shared.AdminOwner()
	f.inv.seed(admin, f.emptyID, 0, 10, 0)

	a, err := f.svc.Issue(ctx, IssueInput{EmployeeID: f.employeeID, ProductID: f.emptyID, Quantity: 10})
	require.NoError(t, err)
	require.Equal(t, StatusAssigned, a.Status)
	require.Equal(t, int64(10), a.RemainingQuantity)
	require.Equal(t, 70.0, a.LeastPrice)

	// Source inventory must be untouched until acceptance.
	require.Equal(t, int64(10), f.inv.item(admin, f.emptyID).AvailableEmpty)
	employee := shared.EmployeeOwner(f.employeeID)
	require.Zero(t, f.inv.item(employee, f.emptyID).AvailableEmpty)
}

func TestIssueRejectsInsufficientSourceStock(t *testing.T) {
	f := newFixture(t)
	f.inv.seed(shared.AdminOwner(), f.emptyID, 0, 3, 0)

	_, err := f.svc.Issue(context.Background(), IssueInput{EmployeeID: f.employeeID, ProductID: f.emptyID, Quantity: 5})
	var insufficiency *shared.InsufficiencyError
	require.ErrorAs(t, err, &insufficiency)
	require.Equal(t, int64(3), insufficiency.Available)
	require.Equal(t, int64(5), insufficiency.Required)
}

func TestAcceptMaterializesEmployeeInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.inv.seed(shared.AdminOwner(), f.emptyID, 0, 10, 0)

	a, err := f.svc.Issue(ctx, IssueInput{EmployeeID: f.employeeID, ProductID: f.emptyID, Quantity: 10})
	require.NoError(t, err)

	accepted, err := f.svc.Accept(ctx, a.ID, f.employeeID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, accepted.Status)

	employee := shared.EmployeeOwner(f.employeeID)
	require.Equal(t, int64(10), f.inv.item(employee, f.emptyID).AvailableEmpty)
	require.Equal(t, int64(0), f.inv.item(shared.AdminOwner(), f.emptyID).AvailableEmpty)
}

func TestAcceptRejectsWrongEmployee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.inv.seed(shared.AdminOwner(), f.emptyID, 0, 10, 0)
	a, err := f.svc.Issue(ctx, IssueInput{EmployeeID: f.employeeID, ProductID: f.emptyID, Quantity: 2})
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, a.ID, uuid.New())
	require.ErrorIs(t, err, ErrNotAssignee)
}

func TestAcceptIsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.inv.seed(shared.AdminOwner(), f.emptyID, 0, 10, 0)
	a, err := f.svc.Issue(ctx, IssueInput{EmployeeID: f.employeeID, ProductID: f.emptyID, Quantity: 4})
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, a.ID, f.employeeID)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, a.ID, f.employeeID)
	require.ErrorIs(t, err, ErrNotAcceptable)

	// Inventory applied once, not twice.
	employee := shared.EmployeeOwner(f.employeeID)
	require.Equal(t, int64(4), f.inv.item(employee, f.emptyID).AvailableEmpty)
}

func TestAcceptCompositeMaterializesGasAndCylinder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := shared.AdminOwner()
	f.inv.seed(admin, f.fullID, 0, 0, 8)
	f.inv.seed(admin, f.gasID, 8, 0, 0)

	a, err := f.svc.Issue(ctx, IssueInput{EmployeeID: f.employeeID, ProductID: f.fullID, Quantity: 5, GasProductID: f.gasID})
	require.NoError(t, err)
	require.True(t, a.IsComposite())

	_, err = f.svc.Accept(ctx, a.ID, f.employeeID)
	require.NoError(t, err)

	employee := shared.EmployeeOwner(f.employeeID)
	require.Equal(t, int64(5), f.inv.item(employee, f.gasID).CurrentStock)
	require.Equal(t, int64(5), f.inv.item(employee, f.fullID).AvailableFull)
	require.Equal(t, int64(3), f.inv.item(admin, f.gasID).CurrentStock)
	require.Equal(t, int64(3), f.inv.item(admin, f.fullID).AvailableFull)
}

func TestAcceptSurvivesSecondaryProjectionFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := shared.AdminOwner()
	f.inv.seed(admin, f.fullID, 0, 0, 8)
	f.inv.seed(admin, f.gasID, 8, 0, 0)

	a, err := f.svc.Issue(ctx, IssueInput{EmployeeID: f.employeeID, ProductID: f.fullID, Quantity: 5, GasProductID: f.gasID})
	require.NoError(t, err)

	// Second write of the composite pair fails; the transition must still complete.
	f.inv.failWith[f.fullID] = errors.New("projection write failed")
	accepted, err := f.svc.Accept(ctx, a.ID, f.employeeID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, accepted.Status)

	employee := shared.EmployeeOwner(f.employeeID)
	require.Equal(t, int64(5), f.inv.item(employee, f.gasID).CurrentStock)
	require.Zero(t, f.inv.item(employee, f.fullID).AvailableFull)
}

func TestAcceptEmitsDailyDeltas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.inv.seed(shared.AdminOwner(), f.emptyID, 0, 10, 0)
	a, err := f.svc.Issue(ctx, IssueInput{EmployeeID: f.employeeID, ProductID: f.emptyID, Quantity: 6})
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, a.ID, f.employeeID)
	require.NoError(t, err)

	require.Len(t, f.daily.deltas, 2)
	require.Equal(t, int64(6), f.daily.deltas[0].ReceivedEmpty)
	require.Equal(t, shared.ScopeEmployee, f.daily.deltas[0].Owner.Scope)
	require.Equal(t, int64(6), f.daily.deltas[1].TransferEmpty)
	require.True(t, f.daily.deltas[1].Owner.IsAdmin())
}

func TestConsumeAndRestoreRemaining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.inv.seed(shared.AdminOwner(), f.fullID, 0, 0, 10)

	a, err := f.svc.Issue(ctx, IssueInput{EmployeeID: f.employeeID, ProductID: f.fullID, Quantity: 10})
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, a.ID, f.employeeID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Consume(ctx, f.employeeID, f.fullID, 7))
	got, err := f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), got.RemainingQuantity)

	err = f.svc.Consume(ctx, f.employeeID, f.fullID, 4)
	var insufficiency *shared.InsufficiencyError
	require.ErrorAs(t, err, &insufficiency)

	require.NoError(t, f.svc.Restore(ctx, f.employeeID, f.fullID, 2))
	got, err = f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), got.RemainingQuantity)
}

func TestReturnBeforeAcceptance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.inv.seed(shared.AdminOwner(), f.emptyID, 0, 5, 0)
	a, err := f.svc.Issue(ctx, IssueInput{EmployeeID: f.employeeID, ProductID: f.emptyID, Quantity: 5})
	require.NoError(t, err)

	returned, err := f.svc.Return(ctx, a.ID, f.employeeID)
	require.NoError(t, err)
	require.Equal(t, StatusReturned, returned.Status)

	_, err = f.svc.Accept(ctx, a.ID, f.employeeID)
	require.ErrorIs(t, err, ErrNotAcceptable)
}
