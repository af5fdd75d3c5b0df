package audit

import (
	"encoding/json"
	"time"
)

// EventStatus records whether the audited operation succeeded.
type EventStatus string

const (
	StatusSuccess EventStatus = "success"
	StatusFailure EventStatus = "failure"
)

// Event is a single append-only audit trail entry. One event is recorded for
// every state-changing API call, after persistence, reflecting the actual
// outcome.
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Status    EventStatus `json:"status"`

	// Actor
	ActorID    string `json:"actor_id"`
	ActorRole  string `json:"actor_role"`
	ActorEmail string `json:"actor_email,omitempty"`

	// Operation
	Action       string `json:"action"`
	ResourceKind string `json:"resource_kind"`
	ResourceID   string `json:"resource_id,omitempty"`

	// Request context
	RequestID  string `json:"request_id,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`

	Message      string `json:"message,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Changes tracks before/after snapshots for updates.
	Changes *ChangeDetails `json:"changes,omitempty"`
}

// ChangeDetails tracks before/after values for updates
type ChangeDetails struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}

// ToJSON converts the event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}

// SearchFilter selects events for queries and exports.
type SearchFilter struct {
	StartTime *time.Time
	EndTime   *time.Time

	ActorID      string
	Action       string
	ResourceKind string
	ResourceID   string
	Status       *EventStatus

	Limit  int
	Offset int
}

// ExportFormat selects the serialization for exported events.
type ExportFormat string

const (
	ExportFormatJSON   ExportFormat = "json"
	ExportFormatCSV    ExportFormat = "csv"
	ExportFormatNDJSON ExportFormat = "ndjson"
)

// Snapshot flattens a record into a map for ChangeDetails. Marshals through
// JSON so field names match the API representation.
func Snapshot(record any) map[string]interface{} {
	if record == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
