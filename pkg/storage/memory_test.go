package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/model"
)

func strPtr(s string) *string { return &s }

func TestMemoryCustomerCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := store.Customers()

	c := &model.Customer{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	require.NoError(t, repo.Create(ctx, c))
	require.NotEmpty(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)

	got.Phone = "555-0100"
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, c.CreatedAt, updated.CreatedAt)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCustomerGetByEmailCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Customers().Create(ctx, &model.Customer{Email: "Ada@Example.com"}))

	matches, err := store.Customers().GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestMemoryListScoping(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Vehicles().Create(ctx, &model.Vehicle{ID: "v1", CustomerID: "c1"}))
	require.NoError(t, store.Vehicles().Create(ctx, &model.Vehicle{ID: "v2", CustomerID: "c2"}))
	require.NoError(t, store.RepairOrders().Create(ctx, &model.RepairOrder{
		ID: "ro1", CustomerID: "c2", VehicleID: "v2", TechnicianID: strPtr("tech-1"),
	}))
	require.NoError(t, store.RepairOrders().Create(ctx, &model.RepairOrder{
		ID: "ro2", CustomerID: "c1", VehicleID: "v1",
	}))

	t.Run("unrestricted lists everything", func(t *testing.T) {
		vehicles, err := store.Vehicles().List(ctx, authz.ScopeFilter{}, ListOptions{})
		require.NoError(t, err)
		assert.Len(t, vehicles, 2)
	})

	t.Run("customer scope filters by owner", func(t *testing.T) {
		vehicles, err := store.Vehicles().List(ctx, authz.ScopeFilter{CustomerID: "c1"}, ListOptions{})
		require.NoError(t, err)
		require.Len(t, vehicles, 1)
		assert.Equal(t, "v1", vehicles[0].ID)
	})

	t.Run("technician scope follows repair order assignment", func(t *testing.T) {
		vehicles, err := store.Vehicles().List(ctx, authz.ScopeFilter{TechnicianID: "tech-1"}, ListOptions{})
		require.NoError(t, err)
		require.Len(t, vehicles, 1)
		assert.Equal(t, "v2", vehicles[0].ID)
	})

	t.Run("unassigned repair orders excluded from technician scope", func(t *testing.T) {
		orders, err := store.RepairOrders().List(ctx, authz.ScopeFilter{TechnicianID: "tech-1"}, ListOptions{})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "ro1", orders[0].ID)
	})
}

func TestMemoryListPagination(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Inventory().Create(ctx, &model.InventoryItem{ID: id, Name: id}))
	}

	page, err := store.Inventory().List(ctx, ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].ID)
	assert.Equal(t, "c", page[1].ID)

	empty, err := store.Inventory().List(ctx, ListOptions{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryFetchByID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Appointments().Create(ctx, &model.Appointment{ID: "ap1", CustomerID: "c1", VehicleID: "v1"}))

	rec, err := store.FetchByID(ctx, authz.KindAppointment, "ap1")
	require.NoError(t, err)
	appt, ok := rec.(*model.Appointment)
	require.True(t, ok)
	assert.Equal(t, "c1", appt.CustomerID)

	_, err = store.FetchByID(ctx, authz.KindAppointment, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.FetchByID(ctx, authz.ResourceKind("bogus"), "x")
	assert.Error(t, err)
}

func TestMemoryFetchByForeignKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Customers().Create(ctx, &model.Customer{ID: "c1", Email: "ada@example.com"}))
	require.NoError(t, store.RepairOrders().Create(ctx, &model.RepairOrder{ID: "ro1", CustomerID: "c1", VehicleID: "v1"}))

	t.Run("customer by email", func(t *testing.T) {
		recs, err := store.FetchByForeignKey(ctx, authz.KindCustomer, "email", "ADA@example.com")
		require.NoError(t, err)
		require.Len(t, recs, 1)
	})

	t.Run("repair orders by vehicle", func(t *testing.T) {
		recs, err := store.FetchByForeignKey(ctx, authz.KindRepairOrder, "vehicle_id", "v1")
		require.NoError(t, err)
		require.Len(t, recs, 1)
	})

	t.Run("no matches returns empty slice", func(t *testing.T) {
		recs, err := store.FetchByForeignKey(ctx, authz.KindCustomer, "email", "nobody@example.com")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("unsupported key rejected", func(t *testing.T) {
		_, err := store.FetchByForeignKey(ctx, authz.KindInvoice, "color", "red")
		assert.Error(t, err)
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Vehicles().Create(ctx, &model.Vehicle{ID: "v1", CustomerID: "c1", Make: "Honda"}))

	got, err := store.Vehicles().Get(ctx, "v1")
	require.NoError(t, err)
	got.Make = "Toyota"

	again, err := store.Vehicles().Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Honda", again.Make)
}
