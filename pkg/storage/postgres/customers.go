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

type customerRepo struct {
	s *Store
}

const customerCols = "id, first_name, last_name, email, phone, address, created_at, updated_at"

func scanCustomer(row interface{ Scan(...any) error }) (*model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *customerRepo) Create(ctx context.Context, c *model.Customer) (err error) {
	start := time.Now()
	defer func() { r.s.observe("customer", "create", start, err) }()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err = r.s.db.ExecContext(ctx,
		`INSERT INTO customers (`+customerCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *customerRepo) Get(ctx context.Context, id string) (*model.Customer, error) {
	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+customerCols+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

func (r *customerRepo) GetByEmail(ctx context.Context, email string) ([]*model.Customer, error) {
	rows, err := r.s.db.QueryContext(ctx,
		`SELECT `+customerCols+` FROM customers WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *customerRepo) Update(ctx context.Context, c *model.Customer) (err error) {
	start := time.Now()
	defer func() { r.s.observe("customer", "update", start, err) }()
	c.UpdatedAt = time.Now().UTC()
	err = r.s.execAffectingOne(ctx,
		`UPDATE customers SET first_name = $2, last_name = $3, email = $4, phone = $5, address = $6, updated_at = $7 WHERE id = $1`,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.UpdatedAt)
	return err
}

func (r *customerRepo) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { r.s.observe("customer", "delete", start, err) }()
	err = r.s.execAffectingOne(ctx, `DELETE FROM customers WHERE id = $1`, id)
	return err
}

func (r *customerRepo) List(ctx context.Context, scope authz.ScopeFilter, opts storage.ListOptions) ([]*model.Customer, error) {
	query := `SELECT ` + customerCols + ` FROM customers`
	var args []any
	if scope.CustomerID != "" {
		// A client sees only their own customer record.
		args = append(args, scope.CustomerID)
		query += ` WHERE id = $1`
	}
	query += ` ORDER BY created_at, id`
	clause, args := limitClause(opts, args)
	query += clause

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
