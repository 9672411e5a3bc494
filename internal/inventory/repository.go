package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasflow-erp/gasflow/internal/shared"
)

// Repository persists inventory items in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ErrItemNotFound indicates a missing inventory row.
var ErrItemNotFound = errors.New("inventory item not found")

const itemColumns = `owner_scope, employee_id, product_id, cylinder_size, current_stock, available_empty, available_full, updated_at`

// ApplyDelta upserts the item in one statement so concurrent callers never lose
// updates. Counters clamp at zero on the way down; validation happens upstream.
func (r *Repository) ApplyDelta(ctx context.Context, d Delta) (Item, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO inventory_items (owner_scope, employee_id, product_id, cylinder_size, current_stock, available_empty, available_full, updated_at)
		VALUES ($1, $2, $3, $4, GREATEST(0, $5), GREATEST(0, $6), GREATEST(0, $7), NOW())
		ON CONFLICT (owner_scope, employee_id, product_id) DO UPDATE SET
			current_stock   = GREATEST(0, inventory_items.current_stock + $5),
			available_empty = GREATEST(0, inventory_items.available_empty + $6),
			available_full  = GREATEST(0, inventory_items.available_full + $7),
			cylinder_size   = COALESCE(NULLIF($4, ''), inventory_items.cylinder_size),
			updated_at      = NOW()
		RETURNING `+itemColumns,
		d.Owner.Scope, d.Owner.EmployeeID, d.ProductID, d.CylinderSize, d.Gas, d.Empty, d.Full)
	return scanItem(row)
}

// Get loads one item.
func (r *Repository) Get(ctx context.Context, owner shared.Owner, productID uuid.UUID) (Item, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+itemColumns+` FROM inventory_items
		WHERE owner_scope = $1 AND employee_id = $2 AND product_id = $3`,
		owner.Scope, owner.EmployeeID, productID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{Owner: owner, ProductID: productID}, ErrItemNotFound
		}
		return Item{}, err
	}
	return item, nil
}

// ListByOwner returns all items held by one owner.
func (r *Repository) ListByOwner(ctx context.Context, owner shared.Owner) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+` FROM inventory_items
		WHERE owner_scope = $1 AND employee_id = $2
		ORDER BY product_id`,
		owner.Scope, owner.EmployeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.Owner.Scope, &item.Owner.EmployeeID, &item.ProductID, &item.CylinderSize,
		&item.CurrentStock, &item.AvailableEmpty, &item.AvailableFull, &item.UpdatedAt)
	return item, err
}
