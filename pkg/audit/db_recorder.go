package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DBRecorder writes audit events to an append-only PostgreSQL table and
// serves queries over it.
type DBRecorder struct {
	db *sql.DB
}

// NewDBRecorder creates the recorder and ensures the table exists.
func NewDBRecorder(db *sql.DB) (*DBRecorder, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	r := &DBRecorder{db: db}
	if err := r.ensureTable(); err != nil {
		return nil, fmt.Errorf("ensuring audit table: %w", err)
	}
	return r, nil
}

func (r *DBRecorder) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		status VARCHAR(20) NOT NULL,
		actor_id VARCHAR(255) NOT NULL,
		actor_role VARCHAR(50) NOT NULL,
		actor_email VARCHAR(255),
		action VARCHAR(50) NOT NULL,
		resource_kind VARCHAR(50) NOT NULL,
		resource_id VARCHAR(255),
		request_id VARCHAR(100),
		ip_address VARCHAR(45),
		method VARCHAR(10),
		path TEXT,
		status_code INTEGER,
		message TEXT,
		error_message TEXT,
		changes JSONB
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events(actor_id);
	CREATE INDEX IF NOT EXISTS idx_audit_events_resource ON audit_events(resource_kind, resource_id);
	CREATE INDEX IF NOT EXISTS idx_audit_events_status ON audit_events(status);
	`
	_, err := r.db.Exec(query)
	return err
}

// Record implements Recorder.
func (r *DBRecorder) Record(ctx context.Context, event *Event) error {
	var changes []byte
	if event.Changes != nil {
		var err error
		changes, err = json.Marshal(event.Changes)
		if err != nil {
			return fmt.Errorf("marshaling changes: %w", err)
		}
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO audit_events (
			timestamp, status, actor_id, actor_role, actor_email,
			action, resource_kind, resource_id,
			request_id, ip_address, method, path, status_code,
			message, error_message, changes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		event.Timestamp, event.Status, event.ActorID, event.ActorRole, nullEmpty(event.ActorEmail),
		event.Action, event.ResourceKind, nullEmpty(event.ResourceID),
		nullEmpty(event.RequestID), nullEmpty(event.IPAddress), nullEmpty(event.Method), nullEmpty(event.Path), event.StatusCode,
		nullEmpty(event.Message), nullEmpty(event.ErrorMessage), nullBytes(changes),
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

func (r *DBRecorder) Close() error { return nil }

// Search returns events matching the filter, newest first.
func (r *DBRecorder) Search(ctx context.Context, filter SearchFilter) ([]*Event, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StartTime != nil {
		add("timestamp >= $%d", *filter.StartTime)
	}
	if filter.EndTime != nil {
		add("timestamp < $%d", *filter.EndTime)
	}
	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.ResourceKind != "" {
		add("resource_kind = $%d", filter.ResourceKind)
	}
	if filter.ResourceID != "" {
		add("resource_id = $%d", filter.ResourceID)
	}
	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}

	query := `SELECT id, timestamp, status, actor_id, actor_role, actor_email,
		action, resource_kind, resource_id,
		request_id, ip_address, method, path, status_code,
		message, error_message, changes
	FROM audit_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching audit events: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEvent(rows *sql.Rows) (*Event, error) {
	var (
		e          Event
		actorEmail sql.NullString
		resourceID sql.NullString
		requestID  sql.NullString
		ipAddress  sql.NullString
		method     sql.NullString
		path       sql.NullString
		message    sql.NullString
		errMessage sql.NullString
		changes    []byte
	)
	err := rows.Scan(&e.ID, &e.Timestamp, &e.Status, &e.ActorID, &e.ActorRole, &actorEmail,
		&e.Action, &e.ResourceKind, &resourceID,
		&requestID, &ipAddress, &method, &path, &e.StatusCode,
		&message, &errMessage, &changes)
	if err != nil {
		return nil, err
	}
	e.ActorEmail = actorEmail.String
	e.ResourceID = resourceID.String
	e.RequestID = requestID.String
	e.IPAddress = ipAddress.String
	e.Method = method.String
	e.Path = path.String
	e.Message = message.String
	e.ErrorMessage = errMessage.String
	if len(changes) > 0 {
		var cd ChangeDetails
		if err := json.Unmarshal(changes, &cd); err == nil {
			e.Changes = &cd
		}
	}
	return &e, nil
}

// DeleteBefore removes events older than the cutoff, for retention cleanup.
func (r *DBRecorder) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired audit events: %w", err)
	}
	return res.RowsAffected()
}

// DeleteRange removes events with start <= timestamp < end. The archiver
// prunes exactly the window it uploaded so earlier days it never archived
// survive a backfill run.
func (r *DBRecorder) DeleteRange(ctx context.Context, start, end time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM audit_events WHERE timestamp >= $1 AND timestamp < $2`, start, end)
	if err != nil {
		return 0, fmt.Errorf("deleting archived audit events: %w", err)
	}
	return res.RowsAffected()
}

func nullEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
