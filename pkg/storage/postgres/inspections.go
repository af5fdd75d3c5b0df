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

type inspectionRepo struct {
	s *Store
}

const inspectionCols = "id, customer_id, vehicle_id, technician_id, findings, passed, performed_at, created_at, updated_at"

func scanInspection(row interface{ Scan(...any) error }) (*model.Inspection, error) {
	var (
		ins       model.Inspection
		tech      sql.NullString
		performed sql.NullTime
	)
	err := row.Scan(&ins.ID, &ins.CustomerID, &ins.VehicleID, &tech, &ins.Findings, &ins.Passed, &performed, &ins.CreatedAt, &ins.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	ins.TechnicianID = strFromNull(tech)
	ins.PerformedAt = timeFromNull(performed)
	return &ins, nil
}

func (r *inspectionRepo) Create(ctx context.Context, ins *model.Inspection) (err error) {
	start := time.Now()
	defer func() { r.s.observe("inspection", "create", start, err) }()
	if ins.ID == "" {
		ins.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ins.CreatedAt, ins.UpdatedAt = now, now
	_, err = r.s.db.ExecContext(ctx,
		`INSERT INTO inspections (`+inspectionCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ins.ID, ins.CustomerID, ins.VehicleID, nullStr(ins.TechnicianID), ins.Findings, ins.Passed, nullTime(ins.PerformedAt), ins.CreatedAt, ins.UpdatedAt)
	return err
}

func (r *inspectionRepo) Get(ctx context.Context, id string) (*model.Inspection, error) {
	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+inspectionCols+` FROM inspections WHERE id = $1`, id)
	return scanInspection(row)
}

func (r *inspectionRepo) Update(ctx context.Context, ins *model.Inspection) (err error) {
	start := time.Now()
	defer func() { r.s.observe("inspection", "update", start, err) }()
	ins.UpdatedAt = time.Now().UTC()
	err = r.s.execAffectingOne(ctx,
		`UPDATE inspections SET customer_id = $2, vehicle_id = $3, technician_id = $4, findings = $5, passed = $6, performed_at = $7, updated_at = $8 WHERE id = $1`,
		ins.ID, ins.CustomerID, ins.VehicleID, nullStr(ins.TechnicianID), ins.Findings, ins.Passed, nullTime(ins.PerformedAt), ins.UpdatedAt)
	return err
}

func (r *inspectionRepo) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { r.s.observe("inspection", "delete", start, err) }()
	err = r.s.execAffectingOne(ctx, `DELETE FROM inspections WHERE id = $1`, id)
	return err
}

func (r *inspectionRepo) List(ctx context.Context, scope authz.ScopeFilter, opts storage.ListOptions) ([]*model.Inspection, error) {
	query := `SELECT ` + inspectionCols + ` FROM inspections`
	var args []any
	switch {
	case scope.CustomerID != "":
		args = append(args, scope.CustomerID)
		query += ` WHERE customer_id = $1`
	case scope.TechnicianID != "":
		args = append(args, scope.TechnicianID)
		query += ` WHERE technician_id = $1`
	}
	query += ` ORDER BY created_at, id`
	clause, args := limitClause(opts, args)
	query += clause

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Inspection
	for rows.Next() {
		ins, err := scanInspection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ins)
	}
	return out, rows.Err()
}
