package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDBRecorder(t *testing.T) (*DBRecorder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec, err := NewDBRecorder(db)
	require.NoError(t, err)
	return rec, mock
}

func TestNewDBRecorderRequiresDB(t *testing.T) {
	_, err := NewDBRecorder(nil)
	assert.Error(t, err)
}

func TestDBRecorderRecord(t *testing.T) {
	rec, mock := newDBRecorder(t)

	mock.ExpectQuery("INSERT INTO audit_events").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	event := NewEvent("user-1", "admin", "delete", "invoice", "i1", StatusSuccess)
	require.NoError(t, rec.Record(context.Background(), event))
	assert.Equal(t, int64(42), event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRecorderRecordFailureSurfacesError(t *testing.T) {
	rec, mock := newDBRecorder(t)

	mock.ExpectQuery("INSERT INTO audit_events").
		WillReturnError(errors.New("connection reset"))

	err := rec.Record(context.Background(), NewEvent("u", "admin", "create", "customer", "", StatusSuccess))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRecorderSearch(t *testing.T) {
	rec, mock := newDBRecorder(t)
	now := time.Now().UTC()

	cols := []string{
		"id", "timestamp", "status", "actor_id", "actor_role", "actor_email",
		"action", "resource_kind", "resource_id",
		"request_id", "ip_address", "method", "path", "status_code",
		"message", "error_message", "changes",
	}
	mock.ExpectQuery("SELECT (.+) FROM audit_events WHERE actor_id = \\$1 AND resource_kind = \\$2").
		WithArgs("user-1", "vehicle", 10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, now, "success", "user-1", "client", nil,
				"update", "vehicle", "v1",
				"req-1", "10.0.0.1", "PUT", "/api/v1/vehicles/v1", 200,
				nil, nil, []byte(`{"after":{"mileage":5}}`)))

	events, err := rec.Search(context.Background(), SearchFilter{
		ActorID:      "user-1",
		ResourceKind: "vehicle",
		Limit:        10,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "v1", events[0].ResourceID)
	require.NotNil(t, events[0].Changes)
	assert.Equal(t, float64(5), events[0].Changes.After["mileage"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRecorderDeleteBefore(t *testing.T) {
	rec, mock := newDBRecorder(t)
	cutoff := time.Now().UTC()

	mock.ExpectExec("DELETE FROM audit_events WHERE timestamp").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := rec.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A backfill of one day must not touch events outside that day's window.
func TestDBRecorderDeleteRange(t *testing.T) {
	rec, mock := newDBRecorder(t)
	start := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	mock.ExpectExec(`DELETE FROM audit_events WHERE timestamp >= \$1 AND timestamp < \$2`).
		WithArgs(start, end).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := rec.DeleteRange(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
