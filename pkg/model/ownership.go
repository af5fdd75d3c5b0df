package model

// The accessor methods below let the authorization engine evaluate ownership
// and assignment without depending on concrete record types. A record that
// has no owning customer or no technician slot simply does not implement the
// corresponding method.

// OwnerCustomerID returns the record's own id: a customer owns itself.
func (c *Customer) OwnerCustomerID() string { return c.ID }

func (v *Vehicle) OwnerCustomerID() string     { return v.CustomerID }
func (a *Appointment) OwnerCustomerID() string { return a.CustomerID }
func (r *RepairOrder) OwnerCustomerID() string { return r.CustomerID }
func (i *Invoice) OwnerCustomerID() string     { return i.CustomerID }
func (n *Inspection) OwnerCustomerID() string  { return n.CustomerID }

func (v *Vehicle) SetOwnerCustomerID(id string)     { v.CustomerID = id }
func (a *Appointment) SetOwnerCustomerID(id string) { a.CustomerID = id }
func (r *RepairOrder) SetOwnerCustomerID(id string) { r.CustomerID = id }
func (i *Invoice) SetOwnerCustomerID(id string)     { i.CustomerID = id }
func (n *Inspection) SetOwnerCustomerID(id string)  { n.CustomerID = id }

// EntityID exposes each record's id uniformly for audit trails and for
// authorization checks that work over untyped records.
func (c *Customer) EntityID() string      { return c.ID }
func (v *Vehicle) EntityID() string       { return v.ID }
func (a *Appointment) EntityID() string   { return a.ID }
func (r *RepairOrder) EntityID() string   { return r.ID }
func (i *Invoice) EntityID() string       { return i.ID }
func (n *Inspection) EntityID() string    { return n.ID }
func (t *InventoryItem) EntityID() string { return t.ID }
func (u *UserAccount) EntityID() string   { return u.ID }

// LinkedCustomerID returns the explicit user->customer link, "" when the
// account has none.
func (u *UserAccount) LinkedCustomerID() string { return deref(u.CustomerID) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// AssignedTechnicianID returns the assigned technician id, or "" when the
// record is unassigned. An empty id never matches a principal.
func (a *Appointment) AssignedTechnicianID() string { return deref(a.TechnicianID) }
func (r *RepairOrder) AssignedTechnicianID() string { return deref(r.TechnicianID) }
func (n *Inspection) AssignedTechnicianID() string  { return deref(n.TechnicianID) }

// OwnedRefs reports the foreign keys in a record body that must belong to the
// same owning customer, keyed by resource kind name. The engine verifies each
// referenced entity before allowing a client create.
func (v *Vehicle) OwnedRefs() map[string]string { return map[string]string{} }

func (a *Appointment) OwnedRefs() map[string]string {
	refs := map[string]string{}
	if a.VehicleID != "" {
		refs["vehicle"] = a.VehicleID
	}
	return refs
}

func (r *RepairOrder) OwnedRefs() map[string]string {
	refs := map[string]string{}
	if r.VehicleID != "" {
		refs["vehicle"] = r.VehicleID
	}
	if r.AppointmentID != nil && *r.AppointmentID != "" {
		refs["appointment"] = *r.AppointmentID
	}
	return refs
}

func (i *Invoice) OwnedRefs() map[string]string {
	refs := map[string]string{}
	if i.RepairOrderID != nil && *i.RepairOrderID != "" {
		refs["repair_order"] = *i.RepairOrderID
	}
	return refs
}

func (n *Inspection) OwnedRefs() map[string]string {
	refs := map[string]string{}
	if n.VehicleID != "" {
		refs["vehicle"] = n.VehicleID
	}
	return refs
}
