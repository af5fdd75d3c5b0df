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

type appointmentRepo struct {
	s *Store
}

const appointmentCols = "id, customer_id, vehicle_id, technician_id, scheduled_at, status, notes, created_at, updated_at"

func scanAppointment(row interface{ Scan(...any) error }) (*model.Appointment, error) {
	var (
		a    model.Appointment
		tech sql.NullString
	)
	err := row.Scan(&a.ID, &a.CustomerID, &a.VehicleID, &tech, &a.ScheduledAt, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	a.TechnicianID = strFromNull(tech)
	return &a, nil
}

func (r *appointmentRepo) Create(ctx context.Context, a *model.Appointment) (err error) {
	start := time.Now()
	defer func() { r.s.observe("appointment", "create", start, err) }()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = model.AppointmentScheduled
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err = r.s.db.ExecContext(ctx,
		`INSERT INTO appointments (`+appointmentCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.CustomerID, a.VehicleID, nullStr(a.TechnicianID), a.ScheduledAt, a.Status, a.Notes, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *appointmentRepo) Get(ctx context.Context, id string) (*model.Appointment, error) {
	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *appointmentRepo) Update(ctx context.Context, a *model.Appointment) (err error) {
	start := time.Now()
	defer func() { r.s.observe("appointment", "update", start, err) }()
	a.UpdatedAt = time.Now().UTC()
	err = r.s.execAffectingOne(ctx,
		`UPDATE appointments SET customer_id = $2, vehicle_id = $3, technician_id = $4, scheduled_at = $5, status = $6, notes = $7, updated_at = $8 WHERE id = $1`,
		a.ID, a.CustomerID, a.VehicleID, nullStr(a.TechnicianID), a.ScheduledAt, a.Status, a.Notes, a.UpdatedAt)
	return err
}

func (r *appointmentRepo) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { r.s.observe("appointment", "delete", start, err) }()
	err = r.s.execAffectingOne(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	return err
}

func (r *appointmentRepo) List(ctx context.Context, scope authz.ScopeFilter, opts storage.ListOptions) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentCols + ` FROM appointments`
	var args []any
	switch {
	case scope.CustomerID != "":
		args = append(args, scope.CustomerID)
		query += ` WHERE customer_id = $1`
	case scope.TechnicianID != "":
		// NULL technician_id never matches.
		args = append(args, scope.TechnicianID)
		query += ` WHERE technician_id = $1`
	}
	query += ` ORDER BY scheduled_at, id`
	clause, args := limitClause(opts, args)
	query += clause

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
