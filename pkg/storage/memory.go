package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/model"
)

// MemoryStore is a mutex-guarded in-memory Store for development and tests.
type MemoryStore struct {
	mu sync.RWMutex

	customers    map[string]*model.Customer
	vehicles     map[string]*model.Vehicle
	appointments map[string]*model.Appointment
	repairOrders map[string]*model.RepairOrder
	invoices     map[string]*model.Invoice
	inspections  map[string]*model.Inspection
	inventory    map[string]*model.InventoryItem
	users        map[string]*model.UserAccount
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:    make(map[string]*model.Customer),
		vehicles:     make(map[string]*model.Vehicle),
		appointments: make(map[string]*model.Appointment),
		repairOrders: make(map[string]*model.RepairOrder),
		invoices:     make(map[string]*model.Invoice),
		inspections:  make(map[string]*model.Inspection),
		inventory:    make(map[string]*model.InventoryItem),
		users:        make(map[string]*model.UserAccount),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Customers() CustomerRepository       { return (*memCustomers)(s) }
func (s *MemoryStore) Vehicles() VehicleRepository         { return (*memVehicles)(s) }
func (s *MemoryStore) Appointments() AppointmentRepository { return (*memAppointments)(s) }
func (s *MemoryStore) RepairOrders() RepairOrderRepository { return (*memRepairOrders)(s) }
func (s *MemoryStore) Invoices() InvoiceRepository         { return (*memInvoices)(s) }
func (s *MemoryStore) Inspections() InspectionRepository   { return (*memInspections)(s) }
func (s *MemoryStore) Inventory() InventoryRepository      { return (*memInventory)(s) }
func (s *MemoryStore) Users() UserRepository               { return (*memUsers)(s) }

// FetchByID implements authz.Store.
func (s *MemoryStore) FetchByID(ctx context.Context, kind authz.ResourceKind, id string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case authz.KindCustomer:
		if c, ok := s.customers[id]; ok {
			return cloneCustomer(c), nil
		}
	case authz.KindVehicle:
		if v, ok := s.vehicles[id]; ok {
			return cloneVehicle(v), nil
		}
	case authz.KindAppointment:
		if a, ok := s.appointments[id]; ok {
			return cloneAppointment(a), nil
		}
	case authz.KindRepairOrder:
		if ro, ok := s.repairOrders[id]; ok {
			return cloneRepairOrder(ro), nil
		}
	case authz.KindInvoice:
		if inv, ok := s.invoices[id]; ok {
			return cloneInvoice(inv), nil
		}
	case authz.KindInspection:
		if ins, ok := s.inspections[id]; ok {
			return cloneInspection(ins), nil
		}
	case authz.KindInventory:
		if item, ok := s.inventory[id]; ok {
			return cloneInventoryItem(item), nil
		}
	case authz.KindUser:
		if u, ok := s.users[id]; ok {
			return cloneUser(u), nil
		}
	default:
		return nil, fmt.Errorf("unknown resource kind: %s", kind)
	}
	return nil, ErrNotFound
}

// FetchByForeignKey implements authz.Store for the key/kind pairs the
// authorization engine relies on.
func (s *MemoryStore) FetchByForeignKey(ctx context.Context, kind authz.ResourceKind, key, value string) ([]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []any
	switch {
	case kind == authz.KindCustomer && key == "email":
		for _, c := range s.customers {
			if strings.EqualFold(c.Email, value) {
				out = append(out, cloneCustomer(c))
			}
		}
	case kind == authz.KindRepairOrder && key == "vehicle_id":
		for _, ro := range s.repairOrders {
			if ro.VehicleID == value {
				out = append(out, cloneRepairOrder(ro))
			}
		}
	case kind == authz.KindUser && key == "email":
		for _, u := range s.users {
			if strings.EqualFold(u.Email, value) {
				out = append(out, cloneUser(u))
			}
		}
	default:
		return nil, fmt.Errorf("unsupported foreign key lookup: %s.%s", kind, key)
	}
	return out, nil
}

func paginate[T any](items []T, opts ListOptions) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return nil
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

// memCustomers implements CustomerRepository on MemoryStore.
type memCustomers MemoryStore

func (r *memCustomers) Create(ctx context.Context, c *model.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	r.customers[c.ID] = cloneCustomer(c)
	return nil
}

func (r *memCustomers) Get(ctx context.Context, id string) (*model.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCustomer(c), nil
}

func (r *memCustomers) GetByEmail(ctx context.Context, email string) ([]*model.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Customer
	for _, c := range r.customers {
		if strings.EqualFold(c.Email, email) {
			out = append(out, cloneCustomer(c))
		}
	}
	return out, nil
}

func (r *memCustomers) Update(ctx context.Context, c *model.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.customers[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	r.customers[c.ID] = cloneCustomer(c)
	return nil
}

func (r *memCustomers) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[id]; !ok {
		return ErrNotFound
	}
	delete(r.customers, id)
	return nil
}

func (r *memCustomers) List(ctx context.Context, scope authz.ScopeFilter, opts ListOptions) ([]*model.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		if scope.CustomerID != "" && c.ID != scope.CustomerID {
			continue
		}
		out = append(out, cloneCustomer(c))
	}
	sortByID(out, func(c *model.Customer) string { return c.ID })
	return paginate(out, opts), nil
}

// memVehicles implements VehicleRepository on MemoryStore.
type memVehicles MemoryStore

func (r *memVehicles) Create(ctx context.Context, v *model.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	r.vehicles[v.ID] = cloneVehicle(v)
	return nil
}

func (r *memVehicles) Get(ctx context.Context, id string) (*model.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneVehicle(v), nil
}

func (r *memVehicles) Update(ctx context.Context, v *model.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.vehicles[v.ID]
	if !ok {
		return ErrNotFound
	}
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = time.Now().UTC()
	r.vehicles[v.ID] = cloneVehicle(v)
	return nil
}

func (r *memVehicles) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vehicles[id]; !ok {
		return ErrNotFound
	}
	delete(r.vehicles, id)
	return nil
}

func (r *memVehicles) List(ctx context.Context, scope authz.ScopeFilter, opts ListOptions) ([]*model.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Technician scope: vehicles referenced by repair orders assigned to
	// the technician.
	assigned := map[string]bool{}
	if scope.TechnicianID != "" {
		for _, ro := range r.repairOrders {
			if ro.TechnicianID != nil && *ro.TechnicianID == scope.TechnicianID {
				assigned[ro.VehicleID] = true
			}
		}
	}

	out := make([]*model.Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		if scope.CustomerID != "" && v.CustomerID != scope.CustomerID {
			continue
		}
		if scope.TechnicianID != "" && !assigned[v.ID] {
			continue
		}
		out = append(out, cloneVehicle(v))
	}
	sortByID(out, func(v *model.Vehicle) string { return v.ID })
	return paginate(out, opts), nil
}

// memAppointments implements AppointmentRepository on MemoryStore.
type memAppointments MemoryStore

func (r *memAppointments) Create(ctx context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = model.AppointmentScheduled
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	r.appointments[a.ID] = cloneAppointment(a)
	return nil
}

func (r *memAppointments) Get(ctx context.Context, id string) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAppointment(a), nil
}

func (r *memAppointments) Update(ctx context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.appointments[a.ID]
	if !ok {
		return ErrNotFound
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	r.appointments[a.ID] = cloneAppointment(a)
	return nil
}

func (r *memAppointments) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(r.appointments, id)
	return nil
}

func (r *memAppointments) List(ctx context.Context, scope authz.ScopeFilter, opts ListOptions) ([]*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Appointment, 0, len(r.appointments))
	for _, a := range r.appointments {
		if scope.CustomerID != "" && a.CustomerID != scope.CustomerID {
			continue
		}
		if scope.TechnicianID != "" && (a.TechnicianID == nil || *a.TechnicianID != scope.TechnicianID) {
			continue
		}
		out = append(out, cloneAppointment(a))
	}
	sortByID(out, func(a *model.Appointment) string { return a.ID })
	return paginate(out, opts), nil
}

// memRepairOrders implements RepairOrderRepository on MemoryStore.
type memRepairOrders MemoryStore

func (r *memRepairOrders) Create(ctx context.Context, ro *model.RepairOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ro.ID == "" {
		ro.ID = uuid.NewString()
	}
	if ro.Status == "" {
		ro.Status = model.RepairOrderOpen
	}
	now := time.Now().UTC()
	ro.CreatedAt, ro.UpdatedAt = now, now
	r.repairOrders[ro.ID] = cloneRepairOrder(ro)
	return nil
}

func (r *memRepairOrders) Get(ctx context.Context, id string) (*model.RepairOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ro, ok := r.repairOrders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRepairOrder(ro), nil
}

func (r *memRepairOrders) GetByVehicle(ctx context.Context, vehicleID string) ([]*model.RepairOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.RepairOrder
	for _, ro := range r.repairOrders {
		if ro.VehicleID == vehicleID {
			out = append(out, cloneRepairOrder(ro))
		}
	}
	sortByID(out, func(ro *model.RepairOrder) string { return ro.ID })
	return out, nil
}

func (r *memRepairOrders) Update(ctx context.Context, ro *model.RepairOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.repairOrders[ro.ID]
	if !ok {
		return ErrNotFound
	}
	ro.CreatedAt = existing.CreatedAt
	ro.UpdatedAt = time.Now().UTC()
	r.repairOrders[ro.ID] = cloneRepairOrder(ro)
	return nil
}

func (r *memRepairOrders) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.repairOrders[id]; !ok {
		return ErrNotFound
	}
	delete(r.repairOrders, id)
	return nil
}

func (r *memRepairOrders) List(ctx context.Context, scope authz.ScopeFilter, opts ListOptions) ([]*model.RepairOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.RepairOrder, 0, len(r.repairOrders))
	for _, ro := range r.repairOrders {
		if scope.CustomerID != "" && ro.CustomerID != scope.CustomerID {
			continue
		}
		if scope.TechnicianID != "" && (ro.TechnicianID == nil || *ro.TechnicianID != scope.TechnicianID) {
			continue
		}
		out = append(out, cloneRepairOrder(ro))
	}
	sortByID(out, func(ro *model.RepairOrder) string { return ro.ID })
	return paginate(out, opts), nil
}

// memInvoices implements InvoiceRepository on MemoryStore.
type memInvoices MemoryStore

func (r *memInvoices) Create(ctx context.Context, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Status == "" {
		inv.Status = model.InvoiceDraft
	}
	now := time.Now().UTC()
	inv.CreatedAt, inv.UpdatedAt = now, now
	r.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *memInvoices) Get(ctx context.Context, id string) (*model.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneInvoice(inv), nil
}

func (r *memInvoices) Update(ctx context.Context, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.invoices[inv.ID]
	if !ok {
		return ErrNotFound
	}
	inv.CreatedAt = existing.CreatedAt
	inv.UpdatedAt = time.Now().UTC()
	r.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *memInvoices) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(r.invoices, id)
	return nil
}

func (r *memInvoices) List(ctx context.Context, scope authz.ScopeFilter, opts ListOptions) ([]*model.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		if scope.CustomerID != "" && inv.CustomerID != scope.CustomerID {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	sortByID(out, func(inv *model.Invoice) string { return inv.ID })
	return paginate(out, opts), nil
}

// memInspections implements InspectionRepository on MemoryStore.
type memInspections MemoryStore

func (r *memInspections) Create(ctx context.Context, ins *model.Inspection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ins.ID == "" {
		ins.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ins.CreatedAt, ins.UpdatedAt = now, now
	r.inspections[ins.ID] = cloneInspection(ins)
	return nil
}

func (r *memInspections) Get(ctx context.Context, id string) (*model.Inspection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ins, ok := r.inspections[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneInspection(ins), nil
}

func (r *memInspections) Update(ctx context.Context, ins *model.Inspection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.inspections[ins.ID]
	if !ok {
		return ErrNotFound
	}
	ins.CreatedAt = existing.CreatedAt
	ins.UpdatedAt = time.Now().UTC()
	r.inspections[ins.ID] = cloneInspection(ins)
	return nil
}

func (r *memInspections) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inspections[id]; !ok {
		return ErrNotFound
	}
	delete(r.inspections, id)
	return nil
}

func (r *memInspections) List(ctx context.Context, scope authz.ScopeFilter, opts ListOptions) ([]*model.Inspection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Inspection, 0, len(r.inspections))
	for _, ins := range r.inspections {
		if scope.CustomerID != "" && ins.CustomerID != scope.CustomerID {
			continue
		}
		if scope.TechnicianID != "" && (ins.TechnicianID == nil || *ins.TechnicianID != scope.TechnicianID) {
			continue
		}
		out = append(out, cloneInspection(ins))
	}
	sortByID(out, func(ins *model.Inspection) string { return ins.ID })
	return paginate(out, opts), nil
}

// memInventory implements InventoryRepository on MemoryStore.
type memInventory MemoryStore

func (r *memInventory) Create(ctx context.Context, item *model.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	r.inventory[item.ID] = cloneInventoryItem(item)
	return nil
}

func (r *memInventory) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.inventory[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneInventoryItem(item), nil
}

func (r *memInventory) Update(ctx context.Context, item *model.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.inventory[item.ID]
	if !ok {
		return ErrNotFound
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	r.inventory[item.ID] = cloneInventoryItem(item)
	return nil
}

func (r *memInventory) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inventory[id]; !ok {
		return ErrNotFound
	}
	delete(r.inventory, id)
	return nil
}

func (r *memInventory) List(ctx context.Context, opts ListOptions) ([]*model.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.InventoryItem, 0, len(r.inventory))
	for _, item := range r.inventory {
		out = append(out, cloneInventoryItem(item))
	}
	sortByID(out, func(item *model.InventoryItem) string { return item.ID })
	return paginate(out, opts), nil
}

// memUsers implements UserRepository on MemoryStore.
type memUsers MemoryStore

func (r *memUsers) Create(ctx context.Context, u *model.UserAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *memUsers) Get(ctx context.Context, id string) (*model.UserAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*model.UserAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memUsers) Update(ctx context.Context, u *model.UserAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *memUsers) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUsers) List(ctx context.Context, opts ListOptions) ([]*model.UserAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.UserAccount, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	sortByID(out, func(u *model.UserAccount) string { return u.ID })
	return paginate(out, opts), nil
}

func sortByID[T any](items []T, id func(T) string) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}

func cloneCustomer(c *model.Customer) *model.Customer {
	cp := *c
	return &cp
}

func cloneVehicle(v *model.Vehicle) *model.Vehicle {
	cp := *v
	return &cp
}

func cloneAppointment(a *model.Appointment) *model.Appointment {
	cp := *a
	cp.TechnicianID = cloneStringPtr(a.TechnicianID)
	return &cp
}

func cloneRepairOrder(ro *model.RepairOrder) *model.RepairOrder {
	cp := *ro
	cp.AppointmentID = cloneStringPtr(ro.AppointmentID)
	cp.TechnicianID = cloneStringPtr(ro.TechnicianID)
	return &cp
}

func cloneInvoice(inv *model.Invoice) *model.Invoice {
	cp := *inv
	cp.RepairOrderID = cloneStringPtr(inv.RepairOrderID)
	cp.IssuedAt = cloneTimePtr(inv.IssuedAt)
	cp.DueAt = cloneTimePtr(inv.DueAt)
	return &cp
}

func cloneInspection(ins *model.Inspection) *model.Inspection {
	cp := *ins
	cp.TechnicianID = cloneStringPtr(ins.TechnicianID)
	cp.PerformedAt = cloneTimePtr(ins.PerformedAt)
	return &cp
}

func cloneInventoryItem(item *model.InventoryItem) *model.InventoryItem {
	cp := *item
	return &cp
}

func cloneUser(u *model.UserAccount) *model.UserAccount {
	cp := *u
	cp.CustomerID = cloneStringPtr(u.CustomerID)
	return &cp
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
