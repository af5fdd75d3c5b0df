package authz

// ScopingMode declares how ownership scoping applies to a resource kind
type ScopingMode string

const (
	// ScopeNone means no ownership scoping; only globally-permitted roles
	// reach the kind at all
	ScopeNone ScopingMode = "none"

	// ScopeOwnedByCustomer restricts clients to records whose customer id
	// matches their resolved owning customer
	ScopeOwnedByCustomer ScopingMode = "owned_by_customer"

	// ScopeAssignedToTechnician restricts technicians to records whose
	// technician id matches their principal id
	ScopeAssignedToTechnician ScopingMode = "assigned_to_technician"

	// ScopeOwnedOrAssigned applies the customer rule to clients and the
	// assignment rule to technicians
	ScopeOwnedOrAssigned ScopingMode = "owned_or_assigned"
)

// appliesToClient reports whether the mode scopes client access by customer
func (m ScopingMode) appliesToClient() bool {
	return m == ScopeOwnedByCustomer || m == ScopeOwnedOrAssigned
}

// appliesToTechnician reports whether the mode scopes technician access by
// assignment
func (m ScopingMode) appliesToTechnician() bool {
	return m == ScopeAssignedToTechnician || m == ScopeOwnedOrAssigned
}

// ResourceDescriptor is the static row declaring which roles may, in
// principle, touch a resource kind, before ownership scoping is applied
type ResourceDescriptor struct {
	Kind       ResourceKind
	ReadRoles  []Role
	WriteRoles []Role
	Scoping    ScopingMode

	// DeleteRoles narrows WriteRoles for deletes. Nil means deletes follow
	// WriteRoles.
	DeleteRoles []Role
}

// CanRead reports whether the role passes the static read gate
func (d ResourceDescriptor) CanRead(role Role) bool {
	return containsRole(d.ReadRoles, role)
}

// CanWrite reports whether the role passes the static write gate
func (d ResourceDescriptor) CanWrite(role Role) bool {
	return containsRole(d.WriteRoles, role)
}

// CanDelete reports whether the role passes the static delete gate
func (d ResourceDescriptor) CanDelete(role Role) bool {
	if d.DeleteRoles != nil {
		return containsRole(d.DeleteRoles, role)
	}
	return containsRole(d.WriteRoles, role)
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// descriptors is the single source of truth for role permissions. Adding a
// resource kind requires exactly one new row here; no other component may
// hard-code role checks.
//
// Technician read access to vehicles is granted here statically and narrowed
// by the engine to vehicles with a repair order assigned to the technician.
var descriptors = map[ResourceKind]ResourceDescriptor{
	// Clients may update their own customer profile but never read, list,
	// or delete customer records; those operations stay admin-only.
	KindCustomer: {
		Kind:        KindCustomer,
		ReadRoles:   []Role{RoleAdmin},
		WriteRoles:  []Role{RoleAdmin, RoleClient},
		DeleteRoles: []Role{RoleAdmin},
		Scoping:     ScopeOwnedByCustomer,
	},
	KindVehicle: {
		Kind:       KindVehicle,
		ReadRoles:  []Role{RoleAdmin, RoleClient, RoleTechnician},
		WriteRoles: []Role{RoleAdmin, RoleClient},
		Scoping:    ScopeOwnedByCustomer,
	},
	KindAppointment: {
		Kind:       KindAppointment,
		ReadRoles:  []Role{RoleAdmin, RoleClient, RoleTechnician},
		WriteRoles: []Role{RoleAdmin, RoleClient},
		Scoping:    ScopeOwnedOrAssigned,
	},
	KindRepairOrder: {
		Kind:       KindRepairOrder,
		ReadRoles:  []Role{RoleAdmin, RoleTechnician, RoleClient},
		WriteRoles: []Role{RoleAdmin, RoleTechnician},
		Scoping:    ScopeOwnedOrAssigned,
	},
	KindInvoice: {
		Kind:       KindInvoice,
		ReadRoles:  []Role{RoleAdmin, RoleClient},
		WriteRoles: []Role{RoleAdmin},
		Scoping:    ScopeOwnedByCustomer,
	},
	KindInspection: {
		Kind:       KindInspection,
		ReadRoles:  []Role{RoleAdmin, RoleTechnician, RoleClient},
		WriteRoles: []Role{RoleAdmin, RoleTechnician, RoleClient},
		Scoping:    ScopeOwnedOrAssigned,
	},
	KindInventory: {
		Kind:       KindInventory,
		ReadRoles:  []Role{RoleAdmin, RoleTechnician},
		WriteRoles: []Role{RoleAdmin},
		Scoping:    ScopeNone,
	},
	KindUser: {
		Kind:       KindUser,
		ReadRoles:  []Role{RoleAdmin},
		WriteRoles: []Role{RoleAdmin},
		Scoping:    ScopeNone,
	},
}

// DescriptorFor returns the descriptor for a resource kind. The second return
// is false for unknown kinds, which callers must treat as a denial.
func DescriptorFor(kind ResourceKind) (ResourceDescriptor, bool) {
	d, ok := descriptors[kind]
	return d, ok
}

// Descriptors returns a copy of every descriptor row, for introspection and
// exhaustiveness tests
func Descriptors() []ResourceDescriptor {
	out := make([]ResourceDescriptor, 0, len(descriptors))
	for _, kind := range AllKinds() {
		out = append(out, descriptors[kind])
	}
	return out
}
