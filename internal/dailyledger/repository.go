package dailyledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasflow-erp/gasflow/internal/shared"
)

// Repository persists daily accumulator rows in PostgreSQL. Admin-scope rows and
// employee-scope rows live in separate tables, mirroring the two projection
// streams the reconciliation report merges.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const deltaColumns = `refilled, full_cylinder_sales, gas_sales, deposits, returns, transfer_gas, transfer_empty, received_gas, received_empty`

// Apply increments one accumulator row, creating it when absent. The update is
// delta-only so concurrent writers for the same day never lose counts.
func (r *Repository) Apply(ctx context.Context, d Delta) error {
	day := Day(d.Date)
	if d.Owner.IsAdmin() {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO daily_cylinder_transactions (day, product_id, `+deltaColumns+`, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
			ON CONFLICT (day, product_id) DO UPDATE SET
				refilled            = daily_cylinder_transactions.refilled + $3,
				full_cylinder_sales = daily_cylinder_transactions.full_cylinder_sales + $4,
				gas_sales           = daily_cylinder_transactions.gas_sales + $5,
				deposits            = daily_cylinder_transactions.deposits + $6,
				returns             = daily_cylinder_transactions.returns + $7,
				transfer_gas        = daily_cylinder_transactions.transfer_gas + $8,
				transfer_empty      = daily_cylinder_transactions.transfer_empty + $9,
				received_gas        = daily_cylinder_transactions.received_gas + $10,
				received_empty      = daily_cylinder_transactions.received_empty + $11,
				updated_at          = NOW()`,
			day, d.ProductID, d.Refilled, d.FullCylinderSales, d.GasSales, d.Deposits, d.Returns,
			d.TransferGas, d.TransferEmpty, d.ReceivedGas, d.ReceivedEmpty)
		return err
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_employee_aggregations (day, employee_id, product_id, `+deltaColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (day, employee_id, product_id) DO UPDATE SET
			refilled            = daily_employee_aggregations.refilled + $4,
			full_cylinder_sales = daily_employee_aggregations.full_cylinder_sales + $5,
			gas_sales           = daily_employee_aggregations.gas_sales + $6,
			deposits            = daily_employee_aggregations.deposits + $7,
			returns             = daily_employee_aggregations.returns + $8,
			transfer_gas        = daily_employee_aggregations.transfer_gas + $9,
			transfer_empty      = daily_employee_aggregations.transfer_empty + $10,
			received_gas        = daily_employee_aggregations.received_gas + $11,
			received_empty      = daily_employee_aggregations.received_empty + $12,
			updated_at          = NOW()`,
		day, d.Owner.EmployeeID, d.ProductID, d.Refilled, d.FullCylinderSales, d.GasSales, d.Deposits, d.Returns,
		d.TransferGas, d.TransferEmpty, d.ReceivedGas, d.ReceivedEmpty)
	return err
}

// RowsForDay lists accumulator rows for one owner and day.
func (r *Repository) RowsForDay(ctx context.Context, owner shared.Owner, date time.Time) ([]Row, error) {
	day := Day(date)
	var (
		rows pgx.Rows
		err  error
	)
	if owner.IsAdmin() {
		rows, err = r.pool.Query(ctx, `
			SELECT day, product_id, `+deltaColumns+`, updated_at
			FROM daily_cylinder_transactions WHERE day = $1 ORDER BY product_id`, day)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT day, product_id, `+deltaColumns+`, updated_at
			FROM daily_employee_aggregations WHERE day = $1 AND employee_id = $2 ORDER BY product_id`, day, owner.EmployeeID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		row := Row{Owner: owner}
		err := rows.Scan(&row.Date, &row.ProductID, &row.Refilled, &row.FullCylinderSales, &row.GasSales,
			&row.Deposits, &row.Returns, &row.TransferGas, &row.TransferEmpty, &row.ReceivedGas, &row.ReceivedEmpty,
			&row.UpdatedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// ClearDay removes every owner's rows for a day before a rebuild. Clearing the
// whole day means a drifted row never survives just because its owner had no
// events in the replayed records.
func (r *Repository) ClearDay(ctx context.Context, date time.Time) error {
	day := Day(date)
	if _, err := r.pool.Exec(ctx, `DELETE FROM daily_cylinder_transactions WHERE day = $1`, day); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM daily_employee_aggregations WHERE day = $1`, day)
	return err
}
