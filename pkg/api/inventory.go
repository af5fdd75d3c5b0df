package api

import (
	"net/http"

	"github.com/openbay/openbay/pkg/audit"
	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/model"
)

// createInventoryItem handles POST /api/v1/inventory. Inventory carries no
// ownership; the descriptor table limits writes to admins.
func (s *Server) createInventoryItem(w http.ResponseWriter, r *http.Request) {
	var item model.InventoryItem
	if !httputil.ParseJSONOrError(w, r, &item) {
		return
	}
	if item.PartNumber == "" || item.Name == "" {
		httputil.WriteBadRequest(w, "part_number and name are required")
		return
	}
	if item.Quantity < 0 {
		httputil.WriteBadRequest(w, "quantity must not be negative")
		return
	}

	p, _ := authz.PrincipalFromContext(r.Context())
	decision, err := s.engine.Authorize(r.Context(), p, authz.KindInventory, authz.ActionCreate, &item)
	if !decision.Allowed {
		writeForbidden(w, r, decision, err)
		return
	}

	if err := s.store.Inventory().Create(r.Context(), &item); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "create", authz.KindInventory, item.ID, audit.StatusFailure, code, nil, nil)
		return
	}

	s.recordAudit(r, "create", authz.KindInventory, item.ID, audit.StatusSuccess, http.StatusCreated, nil, &item)
	httputil.WriteCreated(w, item)
}

// listInventoryItems handles GET /api/v1/inventory
func (s *Server) listInventoryItems(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	items, err := s.store.Inventory().List(r.Context(), listOptions(page))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, items)
}

// getInventoryItem handles GET /api/v1/inventory/{id}
func (s *Server) getInventoryItem(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	item, ok := rec.(*model.InventoryItem)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}
	httputil.WriteSuccess(w, item)
}

// updateInventoryItem handles PUT /api/v1/inventory/{id}
func (s *Server) updateInventoryItem(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.InventoryItem)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	var item model.InventoryItem
	if !httputil.ParseJSONOrError(w, r, &item) {
		return
	}
	if item.Quantity < 0 {
		httputil.WriteBadRequest(w, "quantity must not be negative")
		return
	}
	item.ID = existing.ID
	item.CreatedAt = existing.CreatedAt

	if err := s.store.Inventory().Update(r.Context(), &item); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "update", authz.KindInventory, item.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "update", authz.KindInventory, item.ID, audit.StatusSuccess, http.StatusOK, existing, &item)
	httputil.WriteSuccess(w, item)
}

// deleteInventoryItem handles DELETE /api/v1/inventory/{id}
func (s *Server) deleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.InventoryItem)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	if err := s.store.Inventory().Delete(r.Context(), existing.ID); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "delete", authz.KindInventory, existing.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "delete", authz.KindInventory, existing.ID, audit.StatusSuccess, http.StatusNoContent, existing, nil)
	httputil.WriteNoContent(w)
}
