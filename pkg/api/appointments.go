package api

import (
	"net/http"

	"github.com/openbay/openbay/pkg/audit"
	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/model"
)

// createAppointment handles POST /api/v1/appointments. Client submissions go
// through the cross-entity check: the referenced vehicle must belong to the
// caller's own customer record.
func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var a model.Appointment
	if !httputil.ParseJSONOrError(w, r, &a) {
		return
	}
	if a.VehicleID == "" || a.ScheduledAt.IsZero() {
		httputil.WriteBadRequest(w, "vehicle_id and scheduled_at are required")
		return
	}
	if a.Status == "" {
		a.Status = model.AppointmentScheduled
	}

	p, _ := authz.PrincipalFromContext(r.Context())
	decision, err := s.engine.Authorize(r.Context(), p, authz.KindAppointment, authz.ActionCreate, &a)
	if !decision.Allowed {
		writeForbidden(w, r, decision, err)
		return
	}
	if a.CustomerID == "" {
		httputil.WriteBadRequest(w, "customer_id is required")
		return
	}

	if err := s.store.Appointments().Create(r.Context(), &a); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "create", authz.KindAppointment, a.ID, audit.StatusFailure, code, nil, nil)
		return
	}

	s.recordAudit(r, "create", authz.KindAppointment, a.ID, audit.StatusSuccess, http.StatusCreated, nil, &a)
	httputil.WriteCreated(w, a)
}

// listAppointments handles GET /api/v1/appointments
func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	page, err := httputil.ParsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	appointments, err := s.store.Appointments().List(r.Context(), decision.Scope, listOptions(page))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, appointments)
}

// getAppointment handles GET /api/v1/appointments/{id}
func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	appointment, ok := rec.(*model.Appointment)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}
	httputil.WriteSuccess(w, appointment)
}

// updateAppointment handles PUT /api/v1/appointments/{id}. Ownership,
// vehicle, and assignment links are frozen for non-admin callers.
func (s *Server) updateAppointment(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.Appointment)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	var a model.Appointment
	if !httputil.ParseJSONOrError(w, r, &a) {
		return
	}
	a.ID = existing.ID
	a.CreatedAt = existing.CreatedAt

	p, _ := authz.PrincipalFromContext(r.Context())
	if p.Role != authz.RoleAdmin {
		a.CustomerID = existing.CustomerID
		a.VehicleID = existing.VehicleID
		a.TechnicianID = existing.TechnicianID
	}
	if a.Status == "" {
		a.Status = existing.Status
	}

	if err := s.store.Appointments().Update(r.Context(), &a); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "update", authz.KindAppointment, a.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "update", authz.KindAppointment, a.ID, audit.StatusSuccess, http.StatusOK, existing, &a)
	httputil.WriteSuccess(w, a)
}

// deleteAppointment handles DELETE /api/v1/appointments/{id}
func (s *Server) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.Appointment)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	if err := s.store.Appointments().Delete(r.Context(), existing.ID); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "delete", authz.KindAppointment, existing.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "delete", authz.KindAppointment, existing.ID, audit.StatusSuccess, http.StatusNoContent, existing, nil)
	httputil.WriteNoContent(w)
}
