package api

import (
	"net/http"

	"github.com/openbay/openbay/pkg/audit"
	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/model"
)

// createVehicle handles POST /api/v1/vehicles. For client principals the
// engine overwrites customer_id with the resolved owner before persistence.
func (s *Server) createVehicle(w http.ResponseWriter, r *http.Request) {
	var v model.Vehicle
	if !httputil.ParseJSONOrError(w, r, &v) {
		return
	}
	if v.Make == "" || v.Model == "" || v.Year == 0 {
		httputil.WriteBadRequest(w, "make, model, and year are required")
		return
	}

	p, _ := authz.PrincipalFromContext(r.Context())
	decision, err := s.engine.Authorize(r.Context(), p, authz.KindVehicle, authz.ActionCreate, &v)
	if !decision.Allowed {
		writeForbidden(w, r, decision, err)
		return
	}
	if v.CustomerID == "" {
		httputil.WriteBadRequest(w, "customer_id is required")
		return
	}

	if err := s.store.Vehicles().Create(r.Context(), &v); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "create", authz.KindVehicle, v.ID, audit.StatusFailure, code, nil, nil)
		return
	}

	s.recordAudit(r, "create", authz.KindVehicle, v.ID, audit.StatusSuccess, http.StatusCreated, nil, &v)
	httputil.WriteCreated(w, v)
}

// listVehicles handles GET /api/v1/vehicles. Technicians see only vehicles
// referenced by repair orders assigned to them; the store applies the filter.
func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	page, err := httputil.ParsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	vehicles, err := s.store.Vehicles().List(r.Context(), decision.Scope, listOptions(page))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, vehicles)
}

// getVehicle handles GET /api/v1/vehicles/{id}
func (s *Server) getVehicle(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	vehicle, ok := rec.(*model.Vehicle)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}
	httputil.WriteSuccess(w, vehicle)
}

// updateVehicle handles PUT /api/v1/vehicles/{id}. Only admins may move a
// vehicle to a different customer.
func (s *Server) updateVehicle(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.Vehicle)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	var v model.Vehicle
	if !httputil.ParseJSONOrError(w, r, &v) {
		return
	}
	v.ID = existing.ID
	v.CreatedAt = existing.CreatedAt

	p, _ := authz.PrincipalFromContext(r.Context())
	if p.Role != authz.RoleAdmin {
		v.CustomerID = existing.CustomerID
	}

	if err := s.store.Vehicles().Update(r.Context(), &v); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "update", authz.KindVehicle, v.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "update", authz.KindVehicle, v.ID, audit.StatusSuccess, http.StatusOK, existing, &v)
	httputil.WriteSuccess(w, v)
}

// deleteVehicle handles DELETE /api/v1/vehicles/{id}
func (s *Server) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.Vehicle)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	if err := s.store.Vehicles().Delete(r.Context(), existing.ID); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "delete", authz.KindVehicle, existing.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "delete", authz.KindVehicle, existing.ID, audit.StatusSuccess, http.StatusNoContent, existing, nil)
	httputil.WriteNoContent(w)
}
