// Package model defines the garage domain records shared by the storage,
// authorization, and API layers. Authorization reads the ownership and
// assignment foreign keys declared here; it never owns the relationships.
package model

import (
	"time"
)

// Customer is the owning record for vehicles, appointments, repair orders,
// invoices, and inspections.
type Customer struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Vehicle belongs to exactly one customer.
type Vehicle struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	LicensePlate string    `json:"license_plate,omitempty"`
	VIN          string    `json:"vin,omitempty"`
	Mileage      int       `json:"mileage,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AppointmentStatus enumerates the appointment lifecycle.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment is owned by a customer and optionally assigned to a technician.
type Appointment struct {
	ID           string            `json:"id"`
	CustomerID   string            `json:"customer_id"`
	VehicleID    string            `json:"vehicle_id"`
	TechnicianID *string           `json:"technician_id,omitempty"`
	ScheduledAt  time.Time         `json:"scheduled_at"`
	Status       AppointmentStatus `json:"status"`
	Notes        string            `json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// RepairOrderStatus enumerates the repair order lifecycle.
type RepairOrderStatus string

const (
	RepairOrderOpen       RepairOrderStatus = "open"
	RepairOrderInProgress RepairOrderStatus = "in_progress"
	RepairOrderOnHold     RepairOrderStatus = "on_hold"
	RepairOrderCompleted  RepairOrderStatus = "completed"
	RepairOrderClosed     RepairOrderStatus = "closed"
)

// RepairOrder is owned by a customer; TechnicianID is nil until an admin
// assigns it.
type RepairOrder struct {
	ID            string            `json:"id"`
	CustomerID    string            `json:"customer_id"`
	VehicleID     string            `json:"vehicle_id"`
	AppointmentID *string           `json:"appointment_id,omitempty"`
	TechnicianID  *string           `json:"technician_id,omitempty"`
	Status        RepairOrderStatus `json:"status"`
	Description   string            `json:"description"`
	LaborHours    float64           `json:"labor_hours,omitempty"`
	PartsTotal    float64           `json:"parts_total,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// InvoiceStatus enumerates invoice payment states.
type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceIssued  InvoiceStatus = "issued"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
	InvoiceVoid    InvoiceStatus = "void"
)

// Invoice is owned by a customer and read-only for clients.
type Invoice struct {
	ID            string        `json:"id"`
	CustomerID    string        `json:"customer_id"`
	RepairOrderID *string       `json:"repair_order_id,omitempty"`
	Subtotal      float64       `json:"subtotal"`
	Tax           float64       `json:"tax"`
	Total         float64       `json:"total"`
	Status        InvoiceStatus `json:"status"`
	IssuedAt      *time.Time    `json:"issued_at,omitempty"`
	DueAt         *time.Time    `json:"due_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Inspection records a vehicle check performed by a technician.
type Inspection struct {
	ID           string     `json:"id"`
	CustomerID   string     `json:"customer_id"`
	VehicleID    string     `json:"vehicle_id"`
	TechnicianID *string    `json:"technician_id,omitempty"`
	Findings     string     `json:"findings,omitempty"`
	Passed       bool       `json:"passed"`
	PerformedAt  *time.Time `json:"performed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// InventoryItem is a shop-wide part record with no ownership scoping.
type InventoryItem struct {
	ID               string    `json:"id"`
	PartNumber       string    `json:"part_number"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Quantity         int       `json:"quantity"`
	UnitPrice        float64   `json:"unit_price"`
	ReorderThreshold int       `json:"reorder_threshold,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UserAccount is an authenticated login. CustomerID links a client account to
// the customer record it owns; technicians and admins have no customer link.
type UserAccount struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	CustomerID *string   `json:"customer_id,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
