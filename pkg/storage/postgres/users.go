package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/openbay/openbay/pkg/model"
	"github.com/openbay/openbay/pkg/storage"
)

type userRepo struct {
	s *Store
}

const userCols = "id, email, role, customer_id, active, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*model.UserAccount, error) {
	var (
		u    model.UserAccount
		cust sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.Role, &cust, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	u.CustomerID = strFromNull(cust)
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, u *model.UserAccount) (err error) {
	start := time.Now()
	defer func() { r.s.observe("user", "create", start, err) }()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err = r.s.db.ExecContext(ctx,
		`INSERT INTO user_accounts (`+userCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Role, nullStr(u.CustomerID), u.Active, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r *userRepo) Get(ctx context.Context, id string) (*model.UserAccount, error) {
	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM user_accounts WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.UserAccount, error) {
	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM user_accounts WHERE LOWER(email) = LOWER($1)`, email)
	return scanUser(row)
}

func (r *userRepo) Update(ctx context.Context, u *model.UserAccount) (err error) {
	start := time.Now()
	defer func() { r.s.observe("user", "update", start, err) }()
	u.UpdatedAt = time.Now().UTC()
	err = r.s.execAffectingOne(ctx,
		`UPDATE user_accounts SET email = $2, role = $3, customer_id = $4, active = $5, updated_at = $6 WHERE id = $1`,
		u.ID, u.Email, u.Role, nullStr(u.CustomerID), u.Active, u.UpdatedAt)
	return err
}

func (r *userRepo) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { r.s.observe("user", "delete", start, err) }()
	err = r.s.execAffectingOne(ctx, `DELETE FROM user_accounts WHERE id = $1`, id)
	return err
}

func (r *userRepo) List(ctx context.Context, opts storage.ListOptions) ([]*model.UserAccount, error) {
	query := `SELECT ` + userCols + ` FROM user_accounts ORDER BY created_at, id`
	clause, args := limitClause(opts, nil)
	query += clause

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.UserAccount
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
