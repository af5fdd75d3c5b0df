package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/openbay/openbay/pkg/audit"
	"github.com/openbay/openbay/pkg/httputil"
)

// searchAuditEvents handles GET /api/v1/audit/events (admin only)
func (s *Server) searchAuditEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilterFromQuery(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	events, err := s.auditLog.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, events)
}

// exportAuditEvents handles GET /api/v1/audit/events/export (admin only).
// The format query parameter selects json, csv, or ndjson.
func (s *Server) exportAuditEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilterFromQuery(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	format := audit.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = audit.ExportFormatJSON
	}
	switch format {
	case audit.ExportFormatJSON, audit.ExportFormatCSV, audit.ExportFormatNDJSON:
	default:
		httputil.WriteBadRequest(w, "format must be json, csv, or ndjson")
		return
	}

	events, err := s.auditLog.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	data, err := audit.Export(events, format)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	switch format {
	case audit.ExportFormatCSV:
		w.Header().Set("Content-Type", "text/csv")
	case audit.ExportFormatNDJSON:
		w.Header().Set("Content-Type", "application/x-ndjson")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=audit-events-%s.%s", time.Now().UTC().Format("20060102"), format))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func auditFilterFromQuery(r *http.Request) (audit.SearchFilter, error) {
	var filter audit.SearchFilter

	start, err := httputil.ParseQueryTime(r, "start")
	if err != nil {
		return filter, err
	}
	if !start.IsZero() {
		filter.StartTime = &start
	}

	end, err := httputil.ParseQueryTime(r, "end")
	if err != nil {
		return filter, err
	}
	if !end.IsZero() {
		filter.EndTime = &end
	}

	q := r.URL.Query()
	filter.ActorID = q.Get("actor_id")
	filter.Action = q.Get("action")
	filter.ResourceKind = q.Get("resource_kind")
	filter.ResourceID = q.Get("resource_id")
	if raw := q.Get("status"); raw != "" {
		status := audit.EventStatus(raw)
		if status != audit.StatusSuccess && status != audit.StatusFailure {
			return filter, fmt.Errorf("status must be success or failure")
		}
		filter.Status = &status
	}

	page, err := httputil.ParsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		return filter, err
	}
	filter.Limit = page.Limit
	filter.Offset = page.Offset
	return filter, nil
}
