package postgres

import (
	"context"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/model"
	"github.com/openbay/openbay/pkg/observability"
	"github.com/openbay/openbay/pkg/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewStore(db, logger, nil), mock
}

func TestCustomerGet(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, first_name, last_name, email, phone, address, created_at, updated_at FROM customers WHERE id = $1`)).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "phone", "address", "created_at", "updated_at"}).
			AddRow("c1", "Ada", "Lovelace", "ada@example.com", "", "", now, now))

	c, err := store.Customers().Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", c.FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, first_name, last_name, email, phone, address, created_at, updated_at FROM customers WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "phone", "address", "created_at", "updated_at"}))

	_, err := store.Customers().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingRowMapsToNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE inventory_items SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Inventory().Update(context.Background(), &model.InventoryItem{ID: "missing"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleListCustomerScope(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, customer_id, make, model, year, license_plate, vin, mileage, created_at, updated_at FROM vehicles WHERE customer_id = $1 ORDER BY created_at, id`)).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "make", "model", "year", "license_plate", "vin", "mileage", "created_at", "updated_at"}).
			AddRow("v1", "c1", "Honda", "Civic", 2020, "", "", 0, now, now))

	vehicles, err := store.Vehicles().List(context.Background(), authz.ScopeFilter{CustomerID: "c1"}, storage.ListOptions{})
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "v1", vehicles[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleListTechnicianScopeJoinsRepairOrders(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE EXISTS (SELECT 1 FROM repair_orders ro WHERE ro.vehicle_id = vehicles.id AND ro.technician_id = $1)`)).
		WithArgs("tech-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "make", "model", "year", "license_plate", "vin", "mileage", "created_at", "updated_at"}))

	vehicles, err := store.Vehicles().List(context.Background(), authz.ScopeFilter{TechnicianID: "tech-1"}, storage.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, vehicles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentListTechnicianScope(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM appointments WHERE technician_id = $1`)).
		WithArgs("tech-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "vehicle_id", "technician_id", "scheduled_at", "status", "notes", "created_at", "updated_at"}))

	_, err := store.Appointments().List(context.Background(), authz.ScopeFilter{TechnicianID: "tech-1"}, storage.ListOptions{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPaginationArgs(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM inventory_items ORDER BY part_number, id LIMIT $1 OFFSET $2`)).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "part_number", "name", "description", "quantity", "unit_price", "reorder_threshold", "created_at", "updated_at"}))

	_, err := store.Inventory().List(context.Background(), storage.ListOptions{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchByForeignKeyRepairOrdersByVehicle(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM repair_orders WHERE vehicle_id = $1`)).
		WithArgs("v1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "vehicle_id", "appointment_id", "technician_id", "status", "description", "labor_hours", "parts_total", "created_at", "updated_at"}).
			AddRow("ro1", "c1", "v1", nil, "tech-1", "open", "", 0.0, 0.0, now, now))

	recs, err := store.FetchByForeignKey(context.Background(), authz.KindRepairOrder, "vehicle_id", "v1")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	ro, ok := recs[0].(*model.RepairOrder)
	require.True(t, ok)
	require.NotNil(t, ro.TechnicianID)
	assert.Equal(t, "tech-1", *ro.TechnicianID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchByForeignKeyUnsupported(t *testing.T) {
	store, _ := newMockStore(t)
	_, err := store.FetchByForeignKey(context.Background(), authz.KindInvoice, "color", "red")
	assert.Error(t, err)
}

func TestUserCreate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_accounts`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	u := &model.UserAccount{Email: "tech@shop.example", Role: "technician", Active: true}
	require.NoError(t, store.Users().Create(context.Background(), u))
	assert.NotEmpty(t, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
