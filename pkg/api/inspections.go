package api

import (
	"net/http"

	"github.com/openbay/openbay/pkg/audit"
	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/model"
)

// createInspection handles POST /api/v1/inspections
func (s *Server) createInspection(w http.ResponseWriter, r *http.Request) {
	var ins model.Inspection
	if !httputil.ParseJSONOrError(w, r, &ins) {
		return
	}
	if ins.VehicleID == "" {
		httputil.WriteBadRequest(w, "vehicle_id is required")
		return
	}

	p, _ := authz.PrincipalFromContext(r.Context())
	decision, err := s.engine.Authorize(r.Context(), p, authz.KindInspection, authz.ActionCreate, &ins)
	if !decision.Allowed {
		writeForbidden(w, r, decision, err)
		return
	}
	if ins.CustomerID == "" {
		httputil.WriteBadRequest(w, "customer_id is required")
		return
	}

	if err := s.store.Inspections().Create(r.Context(), &ins); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "create", authz.KindInspection, ins.ID, audit.StatusFailure, code, nil, nil)
		return
	}

	s.recordAudit(r, "create", authz.KindInspection, ins.ID, audit.StatusSuccess, http.StatusCreated, nil, &ins)
	httputil.WriteCreated(w, ins)
}

// listInspections handles GET /api/v1/inspections
func (s *Server) listInspections(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	page, err := httputil.ParsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	inspections, err := s.store.Inspections().List(r.Context(), decision.Scope, listOptions(page))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, inspections)
}

// getInspection handles GET /api/v1/inspections/{id}
func (s *Server) getInspection(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	inspection, ok := rec.(*model.Inspection)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}
	httputil.WriteSuccess(w, inspection)
}

// updateInspection handles PUT /api/v1/inspections/{id}
func (s *Server) updateInspection(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.Inspection)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	var ins model.Inspection
	if !httputil.ParseJSONOrError(w, r, &ins) {
		return
	}
	ins.ID = existing.ID
	ins.CreatedAt = existing.CreatedAt

	p, _ := authz.PrincipalFromContext(r.Context())
	if p.Role != authz.RoleAdmin {
		ins.CustomerID = existing.CustomerID
		ins.VehicleID = existing.VehicleID
		ins.TechnicianID = existing.TechnicianID
	}

	if err := s.store.Inspections().Update(r.Context(), &ins); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "update", authz.KindInspection, ins.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "update", authz.KindInspection, ins.ID, audit.StatusSuccess, http.StatusOK, existing, &ins)
	httputil.WriteSuccess(w, ins)
}

// deleteInspection handles DELETE /api/v1/inspections/{id}
func (s *Server) deleteInspection(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.Inspection)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	if err := s.store.Inspections().Delete(r.Context(), existing.ID); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "delete", authz.KindInspection, existing.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "delete", authz.KindInspection, existing.ID, audit.StatusSuccess, http.StatusNoContent, existing, nil)
	httputil.WriteNoContent(w)
}
