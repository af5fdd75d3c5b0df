package authz

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbay/openbay/pkg/model"
	"github.com/openbay/openbay/pkg/observability"
)

// fakeStore is an in-memory Store with injectable failures
type fakeStore struct {
	customers    map[string]*model.Customer
	vehicles     map[string]*model.Vehicle
	repairOrders map[string]*model.RepairOrder
	users        map[string]*model.UserAccount

	fetchErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers:    map[string]*model.Customer{},
		vehicles:     map[string]*model.Vehicle{},
		repairOrders: map[string]*model.RepairOrder{},
		users:        map[string]*model.UserAccount{},
	}
}

func (s *fakeStore) FetchByID(ctx context.Context, kind ResourceKind, id string) (any, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	switch kind {
	case KindCustomer:
		if c, ok := s.customers[id]; ok {
			return c, nil
		}
	case KindVehicle:
		if v, ok := s.vehicles[id]; ok {
			return v, nil
		}
	case KindRepairOrder:
		if ro, ok := s.repairOrders[id]; ok {
			return ro, nil
		}
	case KindUser:
		if u, ok := s.users[id]; ok {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) FetchByForeignKey(ctx context.Context, kind ResourceKind, key, value string) ([]any, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []any
	switch {
	case kind == KindCustomer && key == "email":
		for _, c := range s.customers {
			if strings.EqualFold(c.Email, value) {
				out = append(out, c)
			}
		}
	case kind == KindRepairOrder && key == "vehicle_id":
		for _, ro := range s.repairOrders {
			if ro.VehicleID == value {
				out = append(out, ro)
			}
		}
	}
	return out, nil
}

type captureObserver struct {
	mu      sync.Mutex
	reasons []string
}

func (o *captureObserver) ObserveDecision(kind, action, reason string, allowed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reasons = append(o.reasons, reason)
}

func testEngine(store Store) *Engine {
	return NewEngine(store, observability.NewLogger(observability.ErrorLevel, io.Discard), nil)
}

func strPtr(s string) *string { return &s }

// seedFake builds the common scenario: client-1 owns cust-a with veh-a;
// cust-b owns veh-b; an order on veh-a is assigned to tech-1.
func seedFake() *fakeStore {
	store := newFakeStore()
	store.customers["cust-a"] = &model.Customer{ID: "cust-a", Email: "a@example.com"}
	store.customers["cust-b"] = &model.Customer{ID: "cust-b", Email: "b@example.com"}
	store.vehicles["veh-a"] = &model.Vehicle{ID: "veh-a", CustomerID: "cust-a"}
	store.vehicles["veh-b"] = &model.Vehicle{ID: "veh-b", CustomerID: "cust-b"}
	store.repairOrders["ro-1"] = &model.RepairOrder{
		ID: "ro-1", CustomerID: "cust-a", VehicleID: "veh-a", TechnicianID: strPtr("tech-1"),
	}
	store.users["client-1"] = &model.UserAccount{
		ID: "client-1", Email: "a@example.com", Role: "client", CustomerID: strPtr("cust-a"),
	}
	return store
}

func clientPrincipal() Principal {
	return Principal{ID: "client-1", Role: RoleClient, Email: "a@example.com"}
}

func TestAdminBypassesScoping(t *testing.T) {
	store := seedFake()
	engine := testEngine(store)
	ctx := context.Background()
	admin := Principal{ID: "admin-1", Role: RoleAdmin}

	for _, action := range []Action{ActionRead, ActionUpdate, ActionDelete} {
		d, err := engine.Authorize(ctx, admin, KindVehicle, action, store.vehicles["veh-b"])
		require.NoError(t, err)
		assert.True(t, d.Allowed, "admin %s on foreign vehicle", action)
		assert.Equal(t, ReasonAllowed, d.Reason)
	}
}

func TestClientOwnershipChecks(t *testing.T) {
	store := seedFake()
	engine := testEngine(store)
	ctx := context.Background()

	t.Run("own record allowed", func(t *testing.T) {
		d, err := engine.Authorize(ctx, clientPrincipal(), KindVehicle, ActionRead, store.vehicles["veh-a"])
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, "cust-a", d.OwnerID)
	})

	t.Run("foreign record denied", func(t *testing.T) {
		d, err := engine.Authorize(ctx, clientPrincipal(), KindVehicle, ActionRead, store.vehicles["veh-b"])
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonNotOwner, d.Reason)
	})

	t.Run("own customer record updatable", func(t *testing.T) {
		d, err := engine.Authorize(ctx, clientPrincipal(), KindCustomer, ActionUpdate, store.customers["cust-a"])
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})
}

// Client access to customer records covers only the update path; reading,
// deleting, and creating them is reserved to admins even when the record is
// the client's own.
func TestClientCustomerRecordGates(t *testing.T) {
	store := seedFake()
	engine := testEngine(store)
	ctx := context.Background()

	t.Run("read own record denied", func(t *testing.T) {
		d, err := engine.Authorize(ctx, clientPrincipal(), KindCustomer, ActionRead, store.customers["cust-a"])
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonRoleNotPermitted, d.Reason)
	})

	t.Run("delete own record denied", func(t *testing.T) {
		d, err := engine.Authorize(ctx, clientPrincipal(), KindCustomer, ActionDelete, store.customers["cust-a"])
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonRoleNotPermitted, d.Reason)
	})

	t.Run("list denied", func(t *testing.T) {
		d, err := engine.ScopeFor(ctx, clientPrincipal(), KindCustomer)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonRoleNotPermitted, d.Reason)
	})

	t.Run("create denied", func(t *testing.T) {
		body := &model.Customer{FirstName: "Self", LastName: "Signup", Email: "self@example.com"}
		d, err := engine.Authorize(ctx, clientPrincipal(), KindCustomer, ActionCreate, body)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonRoleNotPermitted, d.Reason)
	})
}

func TestClientCreateInjectsOwnership(t *testing.T) {
	store := seedFake()
	engine := testEngine(store)
	ctx := context.Background()

	// the body claims someone else's customer; injection overrides it
	body := &model.Vehicle{CustomerID: "cust-b", Make: "Mazda"}
	d, err := engine.Authorize(ctx, clientPrincipal(), KindVehicle, ActionCreate, body)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, "cust-a", body.CustomerID)
	assert.Equal(t, "cust-a", d.OwnerID)
}

func TestClientCreateCrossEntityCheck(t *testing.T) {
	store := seedFake()
	engine := testEngine(store)
	ctx := context.Background()

	t.Run("own vehicle reference allowed", func(t *testing.T) {
		body := &model.Appointment{VehicleID: "veh-a"}
		d, err := engine.Authorize(ctx, clientPrincipal(), KindAppointment, ActionCreate, body)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, "cust-a", body.CustomerID)
	})

	t.Run("foreign vehicle reference denied", func(t *testing.T) {
		body := &model.Appointment{VehicleID: "veh-b"}
		d, err := engine.Authorize(ctx, clientPrincipal(), KindAppointment, ActionCreate, body)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonCrossEntityMismatch, d.Reason)
	})

	t.Run("dangling reference denied", func(t *testing.T) {
		body := &model.Appointment{VehicleID: "veh-gone"}
		d, err := engine.Authorize(ctx, clientPrincipal(), KindAppointment, ActionCreate, body)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonCrossEntityMismatch, d.Reason)
	})
}

func TestOwnershipResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit link preferred", func(t *testing.T) {
		store := seedFake()
		engine := testEngine(store)
		d, err := engine.Authorize(ctx, clientPrincipal(), KindVehicle, ActionRead, store.vehicles["veh-a"])
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("email fallback when link absent", func(t *testing.T) {
		store := seedFake()
		store.users["client-1"].CustomerID = nil
		engine := testEngine(store)
		d, err := engine.Authorize(ctx, clientPrincipal(), KindVehicle, ActionRead, store.vehicles["veh-a"])
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("no mapping denies", func(t *testing.T) {
		store := seedFake()
		engine := testEngine(store)
		stranger := Principal{ID: "client-99", Role: RoleClient, Email: "nobody@example.com"}
		d, err := engine.Authorize(ctx, stranger, KindVehicle, ActionRead, store.vehicles["veh-a"])
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonOwnershipUnresolved, d.Reason)
	})

	t.Run("ambiguous email denies", func(t *testing.T) {
		store := seedFake()
		store.users["client-1"].CustomerID = nil
		store.customers["cust-dup"] = &model.Customer{ID: "cust-dup", Email: "a@example.com"}
		engine := testEngine(store)
		d, err := engine.Authorize(ctx, clientPrincipal(), KindVehicle, ActionRead, store.vehicles["veh-a"])
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonOwnershipUnresolved, d.Reason)
	})

	t.Run("store failure denies with error", func(t *testing.T) {
		store := seedFake()
		store.fetchErr = errors.New("connection refused")
		engine := testEngine(store)
		d, err := engine.Authorize(ctx, clientPrincipal(), KindVehicle, ActionRead, store.vehicles["veh-a"])
		require.Error(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonResolutionFailed, d.Reason)
	})
}

func TestTechnicianAssignmentChecks(t *testing.T) {
	store := seedFake()
	engine := testEngine(store)
	ctx := context.Background()
	tech := Principal{ID: "tech-1", Role: RoleTechnician}

	t.Run("assigned order accessible", func(t *testing.T) {
		for _, action := range []Action{ActionRead, ActionUpdate} {
			d, err := engine.Authorize(ctx, tech, KindRepairOrder, action, store.repairOrders["ro-1"])
			require.NoError(t, err)
			assert.True(t, d.Allowed, "technician %s on assigned order", action)
		}
	})

	t.Run("unassigned order never matches", func(t *testing.T) {
		unassigned := &model.RepairOrder{ID: "ro-2", CustomerID: "cust-b", VehicleID: "veh-b"}
		d, err := engine.Authorize(ctx, tech, KindRepairOrder, ActionRead, unassigned)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonNotAssigned, d.Reason)
	})

	t.Run("order assigned elsewhere denied", func(t *testing.T) {
		other := &model.RepairOrder{ID: "ro-3", TechnicianID: strPtr("tech-2")}
		d, err := engine.Authorize(ctx, tech, KindRepairOrder, ActionRead, other)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonNotAssigned, d.Reason)
	})
}

func TestTechnicianVehicleAccess(t *testing.T) {
	store := seedFake()
	engine := testEngine(store)
	ctx := context.Background()
	tech := Principal{ID: "tech-1", Role: RoleTechnician}

	t.Run("read through assigned order", func(t *testing.T) {
		d, err := engine.Authorize(ctx, tech, KindVehicle, ActionRead, store.vehicles["veh-a"])
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("no assigned order denies", func(t *testing.T) {
		d, err := engine.Authorize(ctx, tech, KindVehicle, ActionRead, store.vehicles["veh-b"])
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonNotAssigned, d.Reason)
	})

	t.Run("writes blocked at static gate", func(t *testing.T) {
		d, err := engine.Authorize(ctx, tech, KindVehicle, ActionUpdate, store.vehicles["veh-a"])
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonRoleNotPermitted, d.Reason)
	})
}

func TestListScopes(t *testing.T) {
	store := seedFake()
	engine := testEngine(store)
	ctx := context.Background()

	t.Run("admin unrestricted", func(t *testing.T) {
		d, err := engine.ScopeFor(ctx, Principal{ID: "admin-1", Role: RoleAdmin}, KindRepairOrder)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.True(t, d.Scope.Unrestricted())
	})

	t.Run("client scoped to owner", func(t *testing.T) {
		d, err := engine.ScopeFor(ctx, clientPrincipal(), KindVehicle)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, ScopeFilter{CustomerID: "cust-a"}, d.Scope)
	})

	t.Run("technician scoped to assignments", func(t *testing.T) {
		tech := Principal{ID: "tech-1", Role: RoleTechnician}
		d, err := engine.ScopeFor(ctx, tech, KindRepairOrder)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, ScopeFilter{TechnicianID: "tech-1"}, d.Scope)
	})

	t.Run("technician inventory unrestricted", func(t *testing.T) {
		tech := Principal{ID: "tech-1", Role: RoleTechnician}
		d, err := engine.ScopeFor(ctx, tech, KindInventory)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.True(t, d.Scope.Unrestricted())
	})

	t.Run("client inventory denied outright", func(t *testing.T) {
		d, err := engine.ScopeFor(ctx, clientPrincipal(), KindInventory)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonRoleNotPermitted, d.Reason)
	})
}

func TestUnknownKindFailsClosed(t *testing.T) {
	engine := testEngine(seedFake())
	d, err := engine.Authorize(context.Background(),
		Principal{ID: "admin-1", Role: RoleAdmin}, ResourceKind("warp_drive"), ActionRead, nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnscopedFallthrough, d.Reason)
}

func TestInvalidRoleDenied(t *testing.T) {
	engine := testEngine(seedFake())
	d, err := engine.Authorize(context.Background(),
		Principal{ID: "x", Role: Role("superuser")}, KindCustomer, ActionRead, nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonRoleNotPermitted, d.Reason)
}

func TestAuthorizeByID(t *testing.T) {
	store := seedFake()
	engine := testEngine(store)
	ctx := context.Background()

	t.Run("missing record surfaces ErrNotFound", func(t *testing.T) {
		d, rec, err := engine.AuthorizeByID(ctx, clientPrincipal(), KindVehicle, ActionRead, "veh-gone")
		require.ErrorIs(t, err, ErrNotFound)
		assert.False(t, d.Allowed)
		assert.Nil(t, rec)
	})

	t.Run("denied check returns no record", func(t *testing.T) {
		d, rec, err := engine.AuthorizeByID(ctx, clientPrincipal(), KindVehicle, ActionRead, "veh-b")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Nil(t, rec)
	})

	t.Run("allowed check returns the record", func(t *testing.T) {
		d, rec, err := engine.AuthorizeByID(ctx, clientPrincipal(), KindVehicle, ActionRead, "veh-a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		require.NotNil(t, rec)
		assert.Equal(t, "veh-a", rec.(*model.Vehicle).ID)
	})
}

func TestDecisionObserverNotified(t *testing.T) {
	store := seedFake()
	observer := &captureObserver{}
	engine := NewEngine(store, observability.NewLogger(observability.ErrorLevel, io.Discard), observer)
	ctx := context.Background()

	_, err := engine.Authorize(ctx, clientPrincipal(), KindVehicle, ActionRead, store.vehicles["veh-a"])
	require.NoError(t, err)
	_, err = engine.Authorize(ctx, clientPrincipal(), KindVehicle, ActionRead, store.vehicles["veh-b"])
	require.NoError(t, err)

	require.Len(t, observer.reasons, 2)
	assert.Equal(t, string(ReasonAllowed), observer.reasons[0])
	assert.Equal(t, string(ReasonNotOwner), observer.reasons[1])
}
