package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema migrations are applied in order at startup. Statements must be
// idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_customers_email ON customers (LOWER(email))`,

	`CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		make TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		license_plate TEXT NOT NULL DEFAULT '',
		vin TEXT NOT NULL DEFAULT '',
		mileage INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_customer ON vehicles (customer_id)`,

	`CREATE TABLE IF NOT EXISTS appointments (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		vehicle_id TEXT NOT NULL REFERENCES vehicles(id),
		technician_id TEXT,
		scheduled_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_customer ON appointments (customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_technician ON appointments (technician_id)`,

	`CREATE TABLE IF NOT EXISTS repair_orders (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		vehicle_id TEXT NOT NULL REFERENCES vehicles(id),
		appointment_id TEXT,
		technician_id TEXT,
		status TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		labor_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
		parts_total DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_repair_orders_customer ON repair_orders (customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_repair_orders_vehicle ON repair_orders (vehicle_id)`,
	`CREATE INDEX IF NOT EXISTS idx_repair_orders_technician ON repair_orders (technician_id)`,

	`CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		repair_order_id TEXT,
		subtotal DOUBLE PRECISION NOT NULL DEFAULT 0,
		tax DOUBLE PRECISION NOT NULL DEFAULT 0,
		total DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		issued_at TIMESTAMPTZ,
		due_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_customer ON invoices (customer_id)`,

	`CREATE TABLE IF NOT EXISTS inspections (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		vehicle_id TEXT NOT NULL REFERENCES vehicles(id),
		technician_id TEXT,
		findings TEXT NOT NULL DEFAULT '',
		passed BOOLEAN NOT NULL DEFAULT FALSE,
		performed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inspections_customer ON inspections (customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_inspections_technician ON inspections (technician_id)`,

	`CREATE TABLE IF NOT EXISTS inventory_items (
		id TEXT PRIMARY KEY,
		part_number TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 0,
		unit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		reorder_threshold INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		customer_id TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_accounts_email ON user_accounts (LOWER(email))`,
}

// Migrate applies the schema to the connected database.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying migration %d: %w", i, err)
		}
	}
	return nil
}
