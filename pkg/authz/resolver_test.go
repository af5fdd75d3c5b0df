package authz

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbay/openbay/pkg/model"
	"github.com/openbay/openbay/pkg/observability"
)

func testResolver(store Store) *OwnershipResolver {
	return NewOwnershipResolver(store, observability.NewLogger(observability.ErrorLevel, io.Discard))
}

func TestResolveCustomerForClient(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-client principals", func(t *testing.T) {
		r := testResolver(seedFake())
		_, err := r.ResolveCustomerForClient(ctx, Principal{ID: "tech-1", Role: RoleTechnician})
		require.Error(t, err)
	})

	t.Run("explicit link wins over email", func(t *testing.T) {
		store := seedFake()
		// email points at cust-b, link at cust-a; link must win
		store.users["client-1"].Email = "b@example.com"
		r := testResolver(store)
		id, err := r.ResolveCustomerForClient(ctx, clientPrincipal())
		require.NoError(t, err)
		assert.Equal(t, "cust-a", id)
	})

	t.Run("email match is case-insensitive", func(t *testing.T) {
		store := seedFake()
		store.users["client-1"].CustomerID = nil
		r := testResolver(store)
		p := clientPrincipal()
		p.Email = "A@Example.COM"
		id, err := r.ResolveCustomerForClient(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "cust-a", id)
	})

	t.Run("empty email with no link is unresolved", func(t *testing.T) {
		store := seedFake()
		store.users["client-1"].CustomerID = nil
		r := testResolver(store)
		p := clientPrincipal()
		p.Email = ""
		_, err := r.ResolveCustomerForClient(ctx, p)
		require.ErrorIs(t, err, ErrOwnershipUnresolved)
	})

	t.Run("account missing entirely falls back to email", func(t *testing.T) {
		store := seedFake()
		delete(store.users, "client-1")
		r := testResolver(store)
		id, err := r.ResolveCustomerForClient(ctx, clientPrincipal())
		require.NoError(t, err)
		assert.Equal(t, "cust-a", id)
	})
}

func TestAssignedFilter(t *testing.T) {
	r := testResolver(seedFake())
	f := r.AssignedFilter(Principal{ID: "tech-7", Role: RoleTechnician})
	assert.Equal(t, ScopeFilter{TechnicianID: "tech-7"}, f)
	assert.False(t, f.Unrestricted())
}

func TestModelOwnershipInterfaces(t *testing.T) {
	// the engine depends on these assertions holding for every scoped kind
	var (
		_ OwnerSettable   = (*model.Vehicle)(nil)
		_ OwnerSettable   = (*model.Appointment)(nil)
		_ OwnerSettable   = (*model.RepairOrder)(nil)
		_ OwnerSettable   = (*model.Invoice)(nil)
		_ OwnerSettable   = (*model.Inspection)(nil)
		_ Ownable         = (*model.Customer)(nil)
		_ Assignable      = (*model.Appointment)(nil)
		_ Assignable      = (*model.RepairOrder)(nil)
		_ Assignable      = (*model.Inspection)(nil)
		_ Identifiable    = (*model.Vehicle)(nil)
		_ CustomerLinked  = (*model.UserAccount)(nil)
		_ ReferenceHolder = (*model.Appointment)(nil)
		_ ReferenceHolder = (*model.RepairOrder)(nil)
	)

	ro := &model.RepairOrder{}
	assert.Equal(t, "", ro.AssignedTechnicianID(), "nil technician must read as unassigned")
}
