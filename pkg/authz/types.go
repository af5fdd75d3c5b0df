package authz

import (
	"context"
	"errors"
)

// Role represents one of the three actor roles in the system
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
	RoleClient     Role = "client"
)

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTechnician, RoleClient:
		return true
	}
	return false
}

// AllRoles returns every known role, in a stable order
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleTechnician, RoleClient}
}

// ResourceKind represents a resource type governed by a descriptor
type ResourceKind string

const (
	KindCustomer    ResourceKind = "customer"
	KindVehicle     ResourceKind = "vehicle"
	KindAppointment ResourceKind = "appointment"
	KindRepairOrder ResourceKind = "repair_order"
	KindInvoice     ResourceKind = "invoice"
	KindInspection  ResourceKind = "inspection"
	KindInventory   ResourceKind = "inventory"
	KindUser        ResourceKind = "user"
)

// AllKinds returns every known resource kind, in a stable order
func AllKinds() []ResourceKind {
	return []ResourceKind{
		KindCustomer, KindVehicle, KindAppointment, KindRepairOrder,
		KindInvoice, KindInspection, KindInventory, KindUser,
	}
}

// Action represents an operation on a resource kind
type Action string

const (
	ActionRead   Action = "read"
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// AllActions returns every known action, in a stable order
func AllActions() []Action {
	return []Action{ActionRead, ActionList, ActionCreate, ActionUpdate, ActionDelete}
}

// IsWrite reports whether the action mutates state
func (a Action) IsWrite() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Principal is the authenticated caller. Role and ID are trusted inputs from
// the authentication layer; Email backs the legacy customer-matching fallback
// for client principals.
type Principal struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Email string `json:"email,omitempty"`
}

// Reason is the taxonomy code attached to every decision
type Reason string

const (
	// ReasonAllowed marks a granted decision
	ReasonAllowed Reason = "allowed"

	// ReasonRoleNotPermitted means the role is categorically barred from
	// this action on this kind
	ReasonRoleNotPermitted Reason = "role_not_permitted"

	// ReasonNotOwner means a client reached for a record outside their
	// resolved customer scope
	ReasonNotOwner Reason = "not_owner"

	// ReasonNotAssigned means a technician reached for a record not
	// assigned to them (an unassigned record never matches)
	ReasonNotAssigned Reason = "not_assigned"

	// ReasonCrossEntityMismatch means a referenced foreign entity in the
	// request body does not belong to the same owning customer
	ReasonCrossEntityMismatch Reason = "cross_entity_mismatch"

	// ReasonOwnershipUnresolved means a client principal has no mapped
	// customer record; always denies
	ReasonOwnershipUnresolved Reason = "ownership_unresolved"

	// ReasonResolutionFailed means the ownership lookup itself failed;
	// distinguished from not-owner in logs only, always denies
	ReasonResolutionFailed Reason = "resolution_failed"

	// ReasonUnscopedFallthrough marks an unhandled (role, action, scoping)
	// combination. It is a programming defect, logged at error severity,
	// and always denies.
	ReasonUnscopedFallthrough Reason = "unscoped_fallthrough"
)

// ScopeFilter constrains a list/search query to the caller's visible records.
// The zero value is unrestricted. The persistence layer must apply the filter
// at the data-access level, never by trimming an unfiltered result set.
type ScopeFilter struct {
	CustomerID   string `json:"customer_id,omitempty"`
	TechnicianID string `json:"technician_id,omitempty"`
}

// Unrestricted reports whether the filter excludes nothing
func (f ScopeFilter) Unrestricted() bool {
	return f.CustomerID == "" && f.TechnicianID == ""
}

// Decision is the outcome of an authorization check. Denials are decision
// values, not errors; handlers translate Allowed=false into a 403 with the
// reason code attached.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`

	// Scope carries the list filter for list actions
	Scope ScopeFilter `json:"scope,omitempty"`

	// OwnerID is the resolved owning customer id for client-scoped
	// decisions. On create it is the value the handler must persist,
	// regardless of what the submitted body carried.
	OwnerID string `json:"owner_id,omitempty"`
}

// Ownable is a record that belongs to a customer
type Ownable interface {
	OwnerCustomerID() string
}

// OwnerSettable is a proposed record body whose owning customer the engine
// may inject at create time
type OwnerSettable interface {
	Ownable
	SetOwnerCustomerID(id string)
}

// Assignable is a record that may be assigned to a technician. An empty id
// means unassigned and never matches a principal.
type Assignable interface {
	AssignedTechnicianID() string
}

// Identifiable is a record that exposes its own entity id
type Identifiable interface {
	EntityID() string
}

// ReferenceHolder is a record body carrying foreign keys that must belong to
// the same owning customer, keyed by resource kind name.
type ReferenceHolder interface {
	OwnedRefs() map[string]string
}

// Store is the persistence collaborator the engine and resolver read through.
// The engine never issues raw queries itself.
type Store interface {
	// FetchByID returns the record of the given kind, or ErrNotFound
	FetchByID(ctx context.Context, kind ResourceKind, id string) (any, error)

	// FetchByForeignKey returns all records of the given kind whose named
	// foreign key column equals value
	FetchByForeignKey(ctx context.Context, kind ResourceKind, key, value string) ([]any, error)
}

// ErrNotFound is returned by Store implementations when no record matches
var ErrNotFound = errors.New("authz: record not found")
