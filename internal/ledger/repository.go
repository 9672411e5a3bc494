package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasflow-erp/gasflow/internal/shared"
)

// Repository persists cylinder transactions in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const transactionColumns = `id, owner_scope, employee_id, customer_id, product_id, items, quantity, amount, payment_mode, paid_amount, tx_type, status, linked_deposit, invoice_number, created_at`

// Insert writes a new transaction. The unique index on invoice_number surfaces
// numbering collisions for the sequence retry loop.
func (r *Repository) Insert(ctx context.Context, t Transaction) error {
	itemsJSON, err := json.Marshal(t.Items)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO cylinder_transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())`,
		t.ID, t.Owner.Scope, t.Owner.EmployeeID, t.CustomerID, t.ProductID, itemsJSON,
		t.Quantity, t.Amount, t.PaymentMode, t.PaidAmount, t.Type, t.Status,
		nilIfZero(t.LinkedDeposit), t.InvoiceNumber)
	return err
}

// Get loads one transaction.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM cylinder_transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, fmt.Errorf("transaction %s: %w", id, shared.ErrNotFound)
		}
		return Transaction{}, err
	}
	return t, nil
}

// ListReturnsLinkedTo returns every return transaction pointing at the deposit.
// The clearance recompute rescans the full set so it stays idempotent.
func (r *Repository) ListReturnsLinkedTo(ctx context.Context, depositID uuid.UUID) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM cylinder_transactions
		WHERE linked_deposit = $1 AND tx_type = $2`,
		depositID, TypeReturn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// UpdateStatus sets a transaction's clearance status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	_, err := r.pool.Exec(ctx, `UPDATE cylinder_transactions SET status = $1 WHERE id = $2`, status, id)
	return err
}

// ListForDay returns all transactions created on the given UTC day for one owner.
func (r *Repository) ListForDay(ctx context.Context, owner shared.Owner, day string) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM cylinder_transactions
		WHERE owner_scope = $1 AND employee_id = $2 AND created_at >= $3::date AND created_at < $3::date + INTERVAL '1 day'
		ORDER BY created_at`,
		owner.Scope, owner.EmployeeID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListAllForDay returns every transaction created on the given UTC day across
// all owners, for projection rebuilds.
func (r *Repository) ListAllForDay(ctx context.Context, day string) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM cylinder_transactions
		WHERE created_at >= $1::date AND created_at < $1::date + INTERVAL '1 day'
		ORDER BY created_at`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// HighestInvoiceSeq scans existing invoice numbers for the highest sequence used
// in a series/year, seeding the counter when migrating from legacy numbering.
func (r *Repository) HighestInvoiceSeq(ctx context.Context, series string, year int) (int64, error) {
	prefix := fmt.Sprintf("%s-%d-", series, year)
	rows, err := r.pool.Query(ctx, `SELECT invoice_number FROM cylinder_transactions WHERE invoice_number LIKE $1 || '%'`, prefix)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var highest int64
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return 0, err
		}
		seq, err := strconv.ParseInt(strings.TrimPrefix(number, prefix), 10, 64)
		if err != nil {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}
	return highest, rows.Err()
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	var result []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	var itemsJSON []byte
	var linked *uuid.UUID
	err := row.Scan(&t.ID, &t.Owner.Scope, &t.Owner.EmployeeID, &t.CustomerID, &t.ProductID, &itemsJSON,
		&t.Quantity, &t.Amount, &t.PaymentMode, &t.PaidAmount, &t.Type, &t.Status, &linked, &t.InvoiceNumber, &t.CreatedAt)
	if err != nil {
		return Transaction{}, err
	}
	if linked != nil {
		t.LinkedDeposit = *linked
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &t.Items); err != nil {
			return Transaction{}, err
		}
	}
	return t, nil
}

func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
