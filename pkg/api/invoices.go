package api

import (
	"net/http"

	"github.com/openbay/openbay/pkg/audit"
	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/model"
)

// createInvoice handles POST /api/v1/invoices. Invoices are admin-written
// and read-only for everyone else.
func (s *Server) createInvoice(w http.ResponseWriter, r *http.Request) {
	var inv model.Invoice
	if !httputil.ParseJSONOrError(w, r, &inv) {
		return
	}
	if inv.CustomerID == "" {
		httputil.WriteBadRequest(w, "customer_id is required")
		return
	}
	if inv.Status == "" {
		inv.Status = model.InvoiceDraft
	}

	p, _ := authz.PrincipalFromContext(r.Context())
	decision, err := s.engine.Authorize(r.Context(), p, authz.KindInvoice, authz.ActionCreate, &inv)
	if !decision.Allowed {
		writeForbidden(w, r, decision, err)
		return
	}

	if err := s.store.Invoices().Create(r.Context(), &inv); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "create", authz.KindInvoice, inv.ID, audit.StatusFailure, code, nil, nil)
		return
	}

	s.recordAudit(r, "create", authz.KindInvoice, inv.ID, audit.StatusSuccess, http.StatusCreated, nil, &inv)
	httputil.WriteCreated(w, inv)
}

// listInvoices handles GET /api/v1/invoices
func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	page, err := httputil.ParsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	invoices, err := s.store.Invoices().List(r.Context(), decision.Scope, listOptions(page))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, invoices)
}

// getInvoice handles GET /api/v1/invoices/{id}
func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	invoice, ok := rec.(*model.Invoice)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}
	httputil.WriteSuccess(w, invoice)
}

// updateInvoice handles PUT /api/v1/invoices/{id}
func (s *Server) updateInvoice(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.Invoice)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	var inv model.Invoice
	if !httputil.ParseJSONOrError(w, r, &inv) {
		return
	}
	inv.ID = existing.ID
	inv.CreatedAt = existing.CreatedAt
	if inv.Status == "" {
		inv.Status = existing.Status
	}

	if err := s.store.Invoices().Update(r.Context(), &inv); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "update", authz.KindInvoice, inv.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "update", authz.KindInvoice, inv.ID, audit.StatusSuccess, http.StatusOK, existing, &inv)
	httputil.WriteSuccess(w, inv)
}

// deleteInvoice handles DELETE /api/v1/invoices/{id}
func (s *Server) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.Invoice)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	if err := s.store.Invoices().Delete(r.Context(), existing.ID); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "delete", authz.KindInvoice, existing.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "delete", authz.KindInvoice, existing.ID, audit.StatusSuccess, http.StatusNoContent, existing, nil)
	httputil.WriteNoContent(w)
}
