package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/model"
	"github.com/openbay/openbay/pkg/storage"
)

type invoiceRepo struct {
	s *Store
}

const invoiceCols = "id, customer_id, repair_order_id, subtotal, tax, total, status, issued_at, due_at, created_at, updated_at"

func scanInvoice(row interface{ Scan(...any) error }) (*model.Invoice, error) {
	var (
		inv    model.Invoice
		roID   sql.NullString
		issued sql.NullTime
		due    sql.NullTime
	)
	err := row.Scan(&inv.ID, &inv.CustomerID, &roID, &inv.Subtotal, &inv.Tax, &inv.Total, &inv.Status, &issued, &due, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	inv.RepairOrderID = strFromNull(roID)
	inv.IssuedAt = timeFromNull(issued)
	inv.DueAt = timeFromNull(due)
	return &inv, nil
}

func (r *invoiceRepo) Create(ctx context.Context, inv *model.Invoice) (err error) {
	start := time.Now()
	defer func() { r.s.observe("invoice", "create", start, err) }()
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Status == "" {
		inv.Status = model.InvoiceDraft
	}
	now := time.Now().UTC()
	inv.CreatedAt, inv.UpdatedAt = now, now
	_, err = r.s.db.ExecContext(ctx,
		`INSERT INTO invoices (`+invoiceCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		inv.ID, inv.CustomerID, nullStr(inv.RepairOrderID), inv.Subtotal, inv.Tax, inv.Total, inv.Status, nullTime(inv.IssuedAt), nullTime(inv.DueAt), inv.CreatedAt, inv.UpdatedAt)
	return err
}

func (r *invoiceRepo) Get(ctx context.Context, id string) (*model.Invoice, error) {
	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

func (r *invoiceRepo) Update(ctx context.Context, inv *model.Invoice) (err error) {
	start := time.Now()
	defer func() { r.s.observe("invoice", "update", start, err) }()
	inv.UpdatedAt = time.Now().UTC()
	err = r.s.execAffectingOne(ctx,
		`UPDATE invoices SET customer_id = $2, repair_order_id = $3, subtotal = $4, tax = $5, total = $6, status = $7, issued_at = $8, due_at = $9, updated_at = $10 WHERE id = $1`,
		inv.ID, inv.CustomerID, nullStr(inv.RepairOrderID), inv.Subtotal, inv.Tax, inv.Total, inv.Status, nullTime(inv.IssuedAt), nullTime(inv.DueAt), inv.UpdatedAt)
	return err
}

func (r *invoiceRepo) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { r.s.observe("invoice", "delete", start, err) }()
	err = r.s.execAffectingOne(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	return err
}

func (r *invoiceRepo) List(ctx context.Context, scope authz.ScopeFilter, opts storage.ListOptions) ([]*model.Invoice, error) {
	query := `SELECT ` + invoiceCols + ` FROM invoices`
	var args []any
	if scope.CustomerID != "" {
		args = append(args, scope.CustomerID)
		query += ` WHERE customer_id = $1`
	}
	query += ` ORDER BY created_at, id`
	clause, args := limitClause(opts, args)
	query += clause

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
