package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
)

// Export serializes events into the requested format.
func Export(events []*Event, format ExportFormat) ([]byte, error) {
	switch format {
	case ExportFormatJSON:
		return exportJSON(events)
	case ExportFormatNDJSON:
		return exportNDJSON(events)
	case ExportFormatCSV:
		return exportCSV(events)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

func exportJSON(events []*Event) ([]byte, error) {
	return json.MarshalIndent(events, "", "  ")
}

func exportNDJSON(events []*Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func exportCSV(events []*Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"id", "timestamp", "status",
		"actor_id", "actor_role", "actor_email",
		"action", "resource_kind", "resource_id",
		"request_id", "ip_address", "method", "path", "status_code",
		"message", "error_message",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, e := range events {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			string(e.Status),
			e.ActorID, e.ActorRole, e.ActorEmail,
			e.Action, e.ResourceKind, e.ResourceID,
			e.RequestID, e.IPAddress, e.Method, e.Path,
			strconv.Itoa(e.StatusCode),
			e.Message, e.ErrorMessage,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
