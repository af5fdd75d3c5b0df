package authz

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/observability"
)

// Middleware wires the engine into HTTP routes. Handlers behind it find the
// decision (and, for id-addressed routes, the fetched record) in the request
// context instead of re-running checks inline.
type Middleware struct {
	engine *Engine
}

// NewMiddleware creates authorization middleware over the engine
func NewMiddleware(engine *Engine) *Middleware {
	return &Middleware{engine: engine}
}

// Require checks the principal against kind/action before the handler runs.
//
// For read/update/delete, idVar names the mux route variable holding the
// target id; the record is fetched once, checked, and stashed in the context.
// For list the decision carries the scope filter. For create only the static
// role gate runs here; the handler must call Engine.Authorize with the
// decoded body so ownership injection and cross-entity checks see it.
func (m *Middleware) Require(kind ResourceKind, action Action, idVar string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			ctx := r.Context()
			switch action {
			case ActionList:
				decision, err := m.engine.ScopeFor(ctx, p, kind)
				if !decision.Allowed {
					writeDenial(w, r, decision, err)
					return
				}
				ctx = ContextWithDecision(ctx, decision)

			case ActionCreate:
				desc, known := DescriptorFor(kind)
				if !known || !desc.CanWrite(p.Role) {
					writeDenial(w, r, Decision{Allowed: false, Reason: ReasonRoleNotPermitted}, nil)
					return
				}

			default:
				id := mux.Vars(r)[idVar]
				if id == "" {
					httputil.WriteBadRequest(w, "missing resource id")
					return
				}
				decision, record, err := m.engine.AuthorizeByID(ctx, p, kind, action, id)
				if err != nil && errors.Is(err, ErrNotFound) {
					httputil.WriteNotFoundError(w, string(kind)+" not found")
					return
				}
				if !decision.Allowed {
					writeDenial(w, r, decision, err)
					return
				}
				ctx = ContextWithDecision(ctx, decision)
				ctx = ContextWithRecord(ctx, record)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeDenial translates a denied decision into a 403 carrying only the
// reason code. Internal failure detail stays in logs, never in the response.
func writeDenial(w http.ResponseWriter, r *http.Request, d Decision, err error) {
	if err != nil {
		// Resolution failures look like ordinary denials to the caller.
		observability.FromContext(r.Context()).WithError(err).
			WithField("reason", string(d.Reason)).
			Error("authorization denied on internal failure")
	}
	httputil.WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":  "forbidden",
		"reason": string(d.Reason),
	})
}
