package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/openbay/openbay/pkg/authz"
)

// FetchByID implements authz.Store.
func (s *Store) FetchByID(ctx context.Context, kind authz.ResourceKind, id string) (any, error) {
	switch kind {
	case authz.KindCustomer:
		return s.Customers().Get(ctx, id)
	case authz.KindVehicle:
		return s.Vehicles().Get(ctx, id)
	case authz.KindAppointment:
		return s.Appointments().Get(ctx, id)
	case authz.KindRepairOrder:
		return s.RepairOrders().Get(ctx, id)
	case authz.KindInvoice:
		return s.Invoices().Get(ctx, id)
	case authz.KindInspection:
		return s.Inspections().Get(ctx, id)
	case authz.KindInventory:
		return s.Inventory().Get(ctx, id)
	case authz.KindUser:
		return s.Users().Get(ctx, id)
	default:
		return nil, fmt.Errorf("unknown resource kind: %s", kind)
	}
}

// FetchByForeignKey implements authz.Store for the lookups the authorization
// engine performs: customer email fallback and repair orders by vehicle.
func (s *Store) FetchByForeignKey(ctx context.Context, kind authz.ResourceKind, key, value string) ([]any, error) {
	switch {
	case kind == authz.KindCustomer && key == "email":
		customers, err := s.Customers().GetByEmail(ctx, strings.ToLower(value))
		if err != nil {
			return nil, err
		}
		out := make([]any, len(customers))
		for i, c := range customers {
			out[i] = c
		}
		return out, nil

	case kind == authz.KindRepairOrder && key == "vehicle_id":
		orders, err := s.RepairOrders().GetByVehicle(ctx, value)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(orders))
		for i, ro := range orders {
			out[i] = ro
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported foreign key lookup: %s.%s", kind, key)
	}
}
