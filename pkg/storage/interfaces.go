// Package storage defines the persistence interfaces for the garage domain
// and an in-memory implementation for development and tests. The PostgreSQL
// implementation lives in the postgres subpackage.
//
// List operations take an authz.ScopeFilter so ownership restrictions are
// applied inside the query, never by fetching and filtering in memory.
package storage

import (
	"context"

	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/model"
)

// ErrNotFound is shared with the authorization engine so missing records map
// uniformly to 404s.
var ErrNotFound = authz.ErrNotFound

// ListOptions holds pagination bounds for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// CustomerRepository persists customer records.
type CustomerRepository interface {
	Create(ctx context.Context, c *model.Customer) error
	Get(ctx context.Context, id string) (*model.Customer, error)
	GetByEmail(ctx context.Context, email string) ([]*model.Customer, error)
	Update(ctx context.Context, c *model.Customer) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, scope authz.ScopeFilter, opts ListOptions) ([]*model.Customer, error)
}

// VehicleRepository persists vehicle records. A technician scope lists the
// vehicles referenced by repair orders assigned to that technician.
type VehicleRepository interface {
	Create(ctx context.Context, v *model.Vehicle) error
	Get(ctx context.Context, id string) (*model.Vehicle, error)
	Update(ctx context.Context, v *model.Vehicle) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, scope authz.ScopeFilter, opts ListOptions) ([]*model.Vehicle, error)
}

// AppointmentRepository persists appointment records.
type AppointmentRepository interface {
	Create(ctx context.Context, a *model.Appointment) error
	Get(ctx context.Context, id string) (*model.Appointment, error)
	Update(ctx context.Context, a *model.Appointment) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, scope authz.ScopeFilter, opts ListOptions) ([]*model.Appointment, error)
}

// RepairOrderRepository persists repair order records.
type RepairOrderRepository interface {
	Create(ctx context.Context, ro *model.RepairOrder) error
	Get(ctx context.Context, id string) (*model.RepairOrder, error)
	GetByVehicle(ctx context.Context, vehicleID string) ([]*model.RepairOrder, error)
	Update(ctx context.Context, ro *model.RepairOrder) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, scope authz.ScopeFilter, opts ListOptions) ([]*model.RepairOrder, error)
}

// InvoiceRepository persists invoice records.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *model.Invoice) error
	Get(ctx context.Context, id string) (*model.Invoice, error)
	Update(ctx context.Context, inv *model.Invoice) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, scope authz.ScopeFilter, opts ListOptions) ([]*model.Invoice, error)
}

// InspectionRepository persists inspection records.
type InspectionRepository interface {
	Create(ctx context.Context, ins *model.Inspection) error
	Get(ctx context.Context, id string) (*model.Inspection, error)
	Update(ctx context.Context, ins *model.Inspection) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, scope authz.ScopeFilter, opts ListOptions) ([]*model.Inspection, error)
}

// InventoryRepository persists inventory items. Inventory carries no
// ownership; list scope is always unrestricted.
type InventoryRepository interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	Get(ctx context.Context, id string) (*model.InventoryItem, error)
	Update(ctx context.Context, item *model.InventoryItem) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]*model.InventoryItem, error)
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *model.UserAccount) error
	Get(ctx context.Context, id string) (*model.UserAccount, error)
	GetByEmail(ctx context.Context, email string) (*model.UserAccount, error)
	Update(ctx context.Context, u *model.UserAccount) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]*model.UserAccount, error)
}

// Store aggregates the repositories and implements authz.Store so the
// authorization engine can resolve ownership without knowing entity types.
type Store interface {
	authz.Store

	Customers() CustomerRepository
	Vehicles() VehicleRepository
	Appointments() AppointmentRepository
	RepairOrders() RepairOrderRepository
	Invoices() InvoiceRepository
	Inspections() InspectionRepository
	Inventory() InventoryRepository
	Users() UserRepository

	Close() error
}
