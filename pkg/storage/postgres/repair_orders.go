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

type repairOrderRepo struct {
	s *Store
}

const repairOrderCols = "id, customer_id, vehicle_id, appointment_id, technician_id, status, description, labor_hours, parts_total, created_at, updated_at"

func scanRepairOrder(row interface{ Scan(...any) error }) (*model.RepairOrder, error) {
	var (
		ro   model.RepairOrder
		appt sql.NullString
		tech sql.NullString
	)
	err := row.Scan(&ro.ID, &ro.CustomerID, &ro.VehicleID, &appt, &tech, &ro.Status, &ro.Description, &ro.LaborHours, &ro.PartsTotal, &ro.CreatedAt, &ro.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	ro.AppointmentID = strFromNull(appt)
	ro.TechnicianID = strFromNull(tech)
	return &ro, nil
}

func (r *repairOrderRepo) Create(ctx context.Context, ro *model.RepairOrder) (err error) {
	start := time.Now()
	defer func() { r.s.observe("repair_order", "create", start, err) }()
	if ro.ID == "" {
		ro.ID = uuid.NewString()
	}
	if ro.Status == "" {
		ro.Status = model.RepairOrderOpen
	}
	now := time.Now().UTC()
	ro.CreatedAt, ro.UpdatedAt = now, now
	_, err = r.s.db.ExecContext(ctx,
		`INSERT INTO repair_orders (`+repairOrderCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		ro.ID, ro.CustomerID, ro.VehicleID, nullStr(ro.AppointmentID), nullStr(ro.TechnicianID), ro.Status, ro.Description, ro.LaborHours, ro.PartsTotal, ro.CreatedAt, ro.UpdatedAt)
	return err
}

func (r *repairOrderRepo) Get(ctx context.Context, id string) (*model.RepairOrder, error) {
	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+repairOrderCols+` FROM repair_orders WHERE id = $1`, id)
	return scanRepairOrder(row)
}

func (r *repairOrderRepo) GetByVehicle(ctx context.Context, vehicleID string) ([]*model.RepairOrder, error) {
	rows, err := r.s.db.QueryContext(ctx,
		`SELECT `+repairOrderCols+` FROM repair_orders WHERE vehicle_id = $1 ORDER BY created_at, id`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RepairOrder
	for rows.Next() {
		ro, err := scanRepairOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ro)
	}
	return out, rows.Err()
}

func (r *repairOrderRepo) Update(ctx context.Context, ro *model.RepairOrder) (err error) {
	start := time.Now()
	defer func() { r.s.observe("repair_order", "update", start, err) }()
	ro.UpdatedAt = time.Now().UTC()
	err = r.s.execAffectingOne(ctx,
		`UPDATE repair_orders SET customer_id = $2, vehicle_id = $3, appointment_id = $4, technician_id = $5, status = $6, description = $7, labor_hours = $8, parts_total = $9, updated_at = $10 WHERE id = $1`,
		ro.ID, ro.CustomerID, ro.VehicleID, nullStr(ro.AppointmentID), nullStr(ro.TechnicianID), ro.Status, ro.Description, ro.LaborHours, ro.PartsTotal, ro.UpdatedAt)
	return err
}

func (r *repairOrderRepo) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { r.s.observe("repair_order", "delete", start, err) }()
	err = r.s.execAffectingOne(ctx, `DELETE FROM repair_orders WHERE id = $1`, id)
	return err
}

func (r *repairOrderRepo) List(ctx context.Context, scope authz.ScopeFilter, opts storage.ListOptions) ([]*model.RepairOrder, error) {
	query := `SELECT ` + repairOrderCols + ` FROM repair_orders`
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

	var out []*model.RepairOrder
	for rows.Next() {
		ro, err := scanRepairOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ro)
	}
	return out, rows.Err()
}
