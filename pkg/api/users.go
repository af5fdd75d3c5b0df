package api

import (
	"net/http"

	"github.com/openbay/openbay/pkg/audit"
	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/model"
)

// createUser handles POST /api/v1/users. User accounts are admin-managed.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var u model.UserAccount
	if !httputil.ParseJSONOrError(w, r, &u) {
		return
	}
	if u.Email == "" {
		httputil.WriteBadRequest(w, "email is required")
		return
	}
	if !authz.Role(u.Role).Valid() {
		httputil.WriteBadRequest(w, "role must be admin, technician, or client")
		return
	}

	p, _ := authz.PrincipalFromContext(r.Context())
	decision, err := s.engine.Authorize(r.Context(), p, authz.KindUser, authz.ActionCreate, &u)
	if !decision.Allowed {
		writeForbidden(w, r, decision, err)
		return
	}

	if err := s.store.Users().Create(r.Context(), &u); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "create", authz.KindUser, u.ID, audit.StatusFailure, code, nil, nil)
		return
	}

	s.recordAudit(r, "create", authz.KindUser, u.ID, audit.StatusSuccess, http.StatusCreated, nil, &u)
	httputil.WriteCreated(w, u)
}

// listUsers handles GET /api/v1/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	users, err := s.store.Users().List(r.Context(), listOptions(page))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

// getUser handles GET /api/v1/users/{id}
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	user, ok := rec.(*model.UserAccount)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}
	httputil.WriteSuccess(w, user)
}

// updateUser handles PUT /api/v1/users/{id}. Role changes go through the
// dedicated role endpoint so they are audited as such.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.UserAccount)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	var u model.UserAccount
	if !httputil.ParseJSONOrError(w, r, &u) {
		return
	}
	u.ID = existing.ID
	u.CreatedAt = existing.CreatedAt
	u.Role = existing.Role

	if err := s.store.Users().Update(r.Context(), &u); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "update", authz.KindUser, u.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "update", authz.KindUser, u.ID, audit.StatusSuccess, http.StatusOK, existing, &u)
	httputil.WriteSuccess(w, u)
}

// changeUserRole handles PUT /api/v1/users/{id}/role
func (s *Server) changeUserRole(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.UserAccount)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	var body struct {
		Role string `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}
	if !authz.Role(body.Role).Valid() {
		httputil.WriteBadRequest(w, "role must be admin, technician, or client")
		return
	}

	updated := *existing
	updated.Role = body.Role

	if err := s.store.Users().Update(r.Context(), &updated); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "role_change", authz.KindUser, existing.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "role_change", authz.KindUser, existing.ID, audit.StatusSuccess, http.StatusOK, existing, &updated)
	httputil.WriteSuccess(w, updated)
}

// deleteUser handles DELETE /api/v1/users/{id}
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	rec, _ := authz.RecordFromContext(r.Context())
	existing, ok := rec.(*model.UserAccount)
	if !ok {
		httputil.WriteInternalError(w, errUnexpectedRecord)
		return
	}

	if err := s.store.Users().Delete(r.Context(), existing.ID); err != nil {
		code := writeStoreError(w, err)
		s.recordAudit(r, "delete", authz.KindUser, existing.ID, audit.StatusFailure, code, existing, nil)
		return
	}

	s.recordAudit(r, "delete", authz.KindUser, existing.ID, audit.StatusSuccess, http.StatusNoContent, existing, nil)
	httputil.WriteNoContent(w)
}
