// Package postgres implements the storage interfaces on PostgreSQL using
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/openbay/openbay/pkg/observability"
	"github.com/openbay/openbay/pkg/storage"
)

// Config holds connection pool settings.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implements storage.Store on PostgreSQL.
type Store struct {
	db      *sql.DB
	logger  *observability.Logger
	metrics *observability.Metrics
}

// Open connects to PostgreSQL, verifies the connection, and applies schema
// migrations. metrics may be nil.
func Open(ctx context.Context, cfg Config, logger *observability.Logger, metrics *observability.Metrics) (*Store, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("connected to PostgreSQL")
	return NewStore(db, logger, metrics), nil
}

// NewStore wraps an existing database handle. Used by tests with sqlmock.
func NewStore(db *sql.DB, logger *observability.Logger, metrics *observability.Metrics) *Store {
	return &Store{db: db, logger: logger, metrics: metrics}
}

// DB exposes the underlying handle for health checks and pool stats.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Customers() storage.CustomerRepository       { return &customerRepo{s} }
func (s *Store) Vehicles() storage.VehicleRepository         { return &vehicleRepo{s} }
func (s *Store) Appointments() storage.AppointmentRepository { return &appointmentRepo{s} }
func (s *Store) RepairOrders() storage.RepairOrderRepository { return &repairOrderRepo{s} }
func (s *Store) Invoices() storage.InvoiceRepository         { return &invoiceRepo{s} }
func (s *Store) Inspections() storage.InspectionRepository   { return &inspectionRepo{s} }
func (s *Store) Inventory() storage.InventoryRepository      { return &inventoryRepo{s} }
func (s *Store) Users() storage.UserRepository               { return &userRepo{s} }

func (s *Store) observe(entity, operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveStorageOperation(entity, operation, status, time.Since(start))
}

// execAffectingOne runs a statement expected to touch exactly one row and
// maps zero rows to storage.ErrNotFound.
func (s *Store) execAffectingOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timeFromNull(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// limitClause normalizes pagination; a zero limit means no bound.
func limitClause(opts storage.ListOptions, args []any) (string, []any) {
	clause := ""
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		clause += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		clause += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return clause, args
}
