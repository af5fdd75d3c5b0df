package api

import (
	"net/http"

	"github.com/openbay/openbay/pkg/audit"
	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/model"
)

// createRepairOrder handles POST /api/v1/repair-orders. Clients cannot create
// repair orders; the gate in the descriptor table denies them before the
// handler runs.
func (s *Server) createRepairOrder(w http.ResponseWriter, r *http.Request) {
	var ro model.RepairOrder
	if !httputil.ParseJSONOrError(w, r, &ro) {
		return
	}
	if ro.CustomerID == "" || ro.VehicleID == "" {
		httputil.WriteBadRequest(w, "customer_id and vehicle_id are required")
		return
	}
	if ro.Status == "" {
		ro.Status = model.RepairOrderOpen
	}

	p, _ := authz.PrincipalFromContext(r.Context())
	decision, err := s.engine.Authorize(r.Context(), p, authz.KindRepairOrder, authz.ActionCreate, &ro)
	if !decision.Allowed {
		writeForbidden(w, r, decision, err)
		return
	}

	if err := s.store.RepairOrders().Create(r.Context(), &ro); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "create", authz.KindRepairOrder, ro.ID, audit.StatusFailure, code, nil, nil)
		return
	}

	s.recordAudit(r, "create", authz.KindRepairOrder, ro.ID, audit.StatusSuccess, http.StatusCreated, nil, &ro)
	httputil.WriteCreated(w, ro)
}

// listRepairOrders handles GET /api/v1/repair-orders. Technicians see only
// orders assigned to them; unassigned orders never match.
func (s *Server) listRepairOrders(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	page, err := httputil.ParsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	orders, err := s.store.RepairOrders().List(r.Context(), decision.Scope, listOptions(page))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, orders)
}

// getRepairOrder handles GET /api/v1/repair-orders/{id}
func (s *Server) getRepairOrder(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	order, ok := rec.(*model.RepairOrder)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}
	httputil.WriteSuccess(w, order)
}

// updateRepairOrder handles PUT /api/v1/repair-orders/{id}. Technicians may
// update status and work details on their assigned orders but cannot reassign
// or repoint them; only admins change the linkage fields.
func (s *Server) updateRepairOrder(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.RepairOrder)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	var ro model.RepairOrder
	if !httputil.ParseJSONOrError(w, r, &ro) {
		return
	}
	ro.ID = existing.ID
	ro.CreatedAt = existing.CreatedAt

	p, _ := authz.PrincipalFromContext(r.Context())
	if p.Role != authz.RoleAdmin {
		ro.CustomerID = existing.CustomerID
		ro.VehicleID = existing.VehicleID
		ro.AppointmentID = existing.AppointmentID
		ro.TechnicianID = existing.TechnicianID
	}
	if ro.Status == "" {
		ro.Status = existing.Status
	}

	if err := s.store.RepairOrders().Update(r.Context(), &ro); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "update", authz.KindRepairOrder, ro.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "update", authz.KindRepairOrder, ro.ID, audit.StatusSuccess, http.StatusOK, existing, &ro)
	httputil.WriteSuccess(w, ro)
}

// deleteRepairOrder handles DELETE /api/v1/repair-orders/{id}
func (s *Server) deleteRepairOrder(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.RepairOrder)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	if err := s.store.RepairOrders().Delete(r.Context(), existing.ID); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "delete", authz.KindRepairOrder, existing.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "delete", authz.KindRepairOrder, existing.ID, audit.StatusSuccess, http.StatusNoContent, existing, nil)
	httputil.WriteNoContent(w)
}
