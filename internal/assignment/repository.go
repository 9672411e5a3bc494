package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasflow-erp/gasflow/internal/platform/db"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// Repository persists assignments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assignmentColumns = `id, employee_id, product_id, quantity, remaining_quantity, category, cylinder_status, cylinder_size, status, least_price, gas_product_id, cylinder_product_id, created_at, updated_at, received_at`

// Insert writes a new assignment row.
func (r *Repository) Insert(ctx context.Context, a Assignment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO stock_assignments (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW(), NULL)`,
		a.ID, a.EmployeeID, a.ProductID, a.Quantity, a.RemainingQuantity, a.Category, a.CylinderStatus,
		a.CylinderSize, a.Status, a.LeastPrice, nilIfZero(a.GasProductID), nilIfZero(a.CylinderProductID))
	return err
}

// Get loads one assignment.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Assignment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM stock_assignments WHERE id = $1`, id)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, fmt.Errorf("assignment %s: %w", id, shared.ErrNotFound)
		}
		return Assignment{}, err
	}
	return a, nil
}

// MarkReceived flips assigned -> received. The status guard in the WHERE clause
// makes acceptance exactly-once under concurrent calls.
func (r *Repository) MarkReceived(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE stock_assignments SET status = $1, updated_at = NOW(), received_at = NOW()
		WHERE id = $2 AND status = $3`,
		StatusReceived, id, StatusAssigned)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkReturned flips assigned -> returned.
func (r *Repository) MarkReturned(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE stock_assignments SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		StatusReturned, id, StatusAssigned)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// TotalRemaining sums remaining quantity across the employee's received
// assignments of one product.
func (r *Repository) TotalRemaining(ctx context.Context, employeeID, productID uuid.UUID) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(remaining_quantity), 0) FROM stock_assignments
		WHERE employee_id = $1 AND product_id = $2 AND status = $3`,
		employeeID, productID, StatusReceived).Scan(&total)
	return total, err
}

// ConsumeRemaining decrements remaining quantity FIFO across the employee's
// received assignments. Insufficient total is a hard error and nothing is written.
func (r *Repository) ConsumeRemaining(ctx context.Context, employeeID, productID uuid.UUID, qty int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, remaining_quantity FROM stock_assignments
			WHERE employee_id = $1 AND product_id = $2 AND status = $3 AND remaining_quantity > 0
			ORDER BY created_at
			FOR UPDATE`,
			employeeID, productID, StatusReceived)
		if err != nil {
			return err
		}
		type slot struct {
			id        uuid.UUID
			remaining int64
		}
		var slots []slot
		var total int64
		for rows.Next() {
			var s slot
			if err := rows.Scan(&s.id, &s.remaining); err != nil {
				rows.Close()
				return err
			}
			slots = append(slots, s)
			total += s.remaining
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if total < qty {
			return shared.NewInsufficiencyError("assigned stock", total, qty)
		}
		left := qty
		for _, s := range slots {
			if left == 0 {
				break
			}
			take := min(left, s.remaining)
			if _, err := tx.Exec(ctx, `
				UPDATE stock_assignments SET remaining_quantity = remaining_quantity - $1, updated_at = NOW()
				WHERE id = $2`, take, s.id); err != nil {
				return err
			}
			left -= take
		}
		return nil
	})
}

// RestoreRemaining increments remaining quantity back, newest assignments first,
// capped at each assignment's original quantity.
func (r *Repository) RestoreRemaining(ctx context.Context, employeeID, productID uuid.UUID, qty int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, quantity, remaining_quantity FROM stock_assignments
			WHERE employee_id = $1 AND product_id = $2 AND status = $3 AND remaining_quantity < quantity
			ORDER BY created_at DESC
			FOR UPDATE`,
			employeeID, productID, StatusReceived)
		if err != nil {
			return err
		}
		type slot struct {
			id       uuid.UUID
			headroom int64
		}
		var slots []slot
		for rows.Next() {
			var id uuid.UUID
			var quantity, remaining int64
			if err := rows.Scan(&id, &quantity, &remaining); err != nil {
				rows.Close()
				return err
			}
			slots = append(slots, slot{id: id, headroom: quantity - remaining})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		left := qty
		for _, s := range slots {
			if left == 0 {
				break
			}
			give := min(left, s.headroom)
			if _, err := tx.Exec(ctx, `
				UPDATE stock_assignments SET remaining_quantity = remaining_quantity + $1, updated_at = NOW()
				WHERE id = $2`, give, s.id); err != nil {
				return err
			}
			left -= give
		}
		return nil
	})
}

// ListReceivedOn returns assignments accepted during the given UTC day, for
// projection rebuilds.
func (r *Repository) ListReceivedOn(ctx context.Context, day string) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assignmentColumns+` FROM stock_assignments
		WHERE status = $1 AND received_at >= $2::date AND received_at < $2::date + INTERVAL '1 day'
		ORDER BY received_at`,
		StatusReceived, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	var gasProduct, cylinderProduct *uuid.UUID
	var receivedAt *time.Time
	err := row.Scan(&a.ID, &a.EmployeeID, &a.ProductID, &a.Quantity, &a.RemainingQuantity,
		&a.Category, &a.CylinderStatus, &a.CylinderSize, &a.Status, &a.LeastPrice,
		&gasProduct, &cylinderProduct, &a.CreatedAt, &a.UpdatedAt, &receivedAt)
	if err != nil {
		return Assignment{}, err
	}
	if gasProduct != nil {
		a.GasProductID = *gasProduct
	}
	if cylinderProduct != nil {
		a.CylinderProductID = *cylinderProduct
	}
	if receivedAt != nil {
		a.ReceivedAt = *receivedAt
	}
	return a, nil
}

func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
