package api

import (
	"net/http"

	"github.com/openbay/openbay/pkg/audit"
	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/model"
)

// createCustomer handles POST /api/v1/customers
func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var c model.Customer
	if !httputil.ParseJSONOrError(w, r, &c) {
		return
	}
	if c.FirstName == "" || c.LastName == "" || c.Email == "" {
		httputil.WriteBadRequest(w, "first_name, last_name, and email are required")
		return
	}

	p, _ := authz.PrincipalFromContext(r.Context())
	decision, err := s.engine.Authorize(r.Context(), p, authz.KindCustomer, authz.ActionCreate, &c)
	if !decision.Allowed {
		writeForbidden(w, r, decision, err)
		return
	}

	if err := s.store.Customers().Create(r.Context(), &c); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "create", authz.KindCustomer, c.ID, audit.StatusFailure, code, nil, nil)
		return
	}

	s.recordAudit(r, "create", authz.KindCustomer, c.ID, audit.StatusSuccess, http.StatusCreated, nil, &c)
	httputil.WriteCreated(w, c)
}

// listCustomers handles GET /api/v1/customers
func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	page, err := httputil.ParsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	customers, err := s.store.Customers().List(r.Context(), decision.Scope, listOptions(page))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, customers)
}

// getCustomer handles GET /api/v1/customers/{id}
func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	customer, ok := rec.(*model.Customer)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}
	httputil.WriteSuccess(w, customer)
}

// updateCustomer handles PUT /api/v1/customers/{id}
func (s *Server) updateCustomer(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.Customer)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	var c model.Customer
	if !httputil.ParseJSONOrError(w, r, &c) {
		return
	}
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt

	if err := s.store.Customers().Update(r.Context(), &c); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "update", authz.KindCustomer, c.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "update", authz.KindCustomer, c.ID, audit.StatusSuccess, http.StatusOK, existing, &c)
	httputil.WriteSuccess(w, c)
}

// deleteCustomer handles DELETE /api/v1/customers/{id}
func (s *Server) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.Customer)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	if err := s.store.Customers().Delete(r.Context(), existing.ID); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "delete", authz.KindCustomer, existing.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "delete", authz.KindCustomer, existing.ID, audit.StatusSuccess, http.StatusNoContent, existing, nil)
	httputil.WriteNoContent(w)
}
