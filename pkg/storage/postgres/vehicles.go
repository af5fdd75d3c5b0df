package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/model"
	"github.com/openbay/openbay/pkg/storage"
)

type vehicleRepo struct {
	s *Store
}

const vehicleCols = "id, customer_id, make, model, year, license_plate, vin, mileage, created_at, updated_at"

func scanVehicle(row interface{ Scan(...any) error }) (*model.Vehicle, error) {
	var v model.Vehicle
	err := row.Scan(&v.ID, &v.CustomerID, &v.Make, &v.Model, &v.Year, &v.LicensePlate, &v.VIN, &v.Mileage, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *vehicleRepo) Create(ctx context.Context, v *model.Vehicle) (err error) {
	start := time.Now()
	defer func() { r.s.observe("vehicle", "create", start, err) }()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	_, err = r.s.db.ExecContext(ctx,
		`INSERT INTO vehicles (`+vehicleCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		v.ID, v.CustomerID, v.Make, v.Model, v.Year, v.LicensePlate, v.VIN, v.Mileage, v.CreatedAt, v.UpdatedAt)
	return err
}

func (r *vehicleRepo) Get(ctx context.Context, id string) (*model.Vehicle, error) {
	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+vehicleCols+` FROM vehicles WHERE id = $1`, id)
	return scanVehicle(row)
}

func (r *vehicleRepo) Update(ctx context.Context, v *model.Vehicle) (err error) {
	start := time.Now()
	defer func() { r.s.observe("vehicle", "update", start, err) }()
	v.UpdatedAt = time.Now().UTC()
	err = r.s.execAffectingOne(ctx,
		`UPDATE vehicles SET customer_id = $2, make = $3, model = $4, year = $5, license_plate = $6, vin = $7, mileage = $8, updated_at = $9 WHERE id = $1`,
		v.ID, v.CustomerID, v.Make, v.Model, v.Year, v.LicensePlate, v.VIN, v.Mileage, v.UpdatedAt)
	return err
}

func (r *vehicleRepo) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { r.s.observe("vehicle", "delete", start, err) }()
	err = r.s.execAffectingOne(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	return err
}

func (r *vehicleRepo) List(ctx context.Context, scope authz.ScopeFilter, opts storage.ListOptions) ([]*model.Vehicle, error) {
	query := `SELECT ` + vehicleCols + ` FROM vehicles`
	var args []any
	switch {
	case scope.CustomerID != "":
		args = append(args, scope.CustomerID)
		query += ` WHERE customer_id = $1`
	case scope.TechnicianID != "":
		// A technician sees the vehicles on their assigned repair orders.
		args = append(args, scope.TechnicianID)
		query += ` WHERE EXISTS (SELECT 1 FROM repair_orders ro WHERE ro.vehicle_id = vehicles.id AND ro.technician_id = $1)`
	}
	query += ` ORDER BY created_at, id`
	clause, args := limitClause(opts, args)
	query += clause

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing vehicles: %w", err)
	}
	defer rows.Close()

	var out []*model.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
