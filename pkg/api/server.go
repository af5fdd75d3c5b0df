package api

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/openbay/openbay/pkg/audit"
	"github.com/openbay/openbay/pkg/authz"
	"github.com/openbay/openbay/pkg/httputil"
	"github.com/openbay/openbay/pkg/middleware"
	"github.com/openbay/openbay/pkg/observability"
	"github.com/openbay/openbay/pkg/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

var errUnexpectedRecord = errors.New("unexpected record type in request context")

// Server is the REST surface over the store, the authorization engine, and
// the audit trail. Every route runs behind identity extraction and a
// per-route authorization gate; handlers never re-implement role checks.
type Server struct {
	store    storage.Store
	engine   *authz.Engine
	guard    *authz.Middleware
	recorder audit.Recorder
	auditLog *audit.DBRecorder
	logger   *observability.Logger
	metrics  *observability.Metrics
	router   *mux.Router
}

// Options configures a Server. Store, Engine, and Logger are required; the
// rest degrade gracefully when absent.
type Options struct {
	Store    storage.Store
	Engine   *authz.Engine
	Recorder audit.Recorder
	Logger   *observability.Logger
	Metrics  *observability.Metrics

	// AuditLog backs the admin audit query endpoints; they are not
	// registered when nil.
	AuditLog *audit.DBRecorder

	// RateLimit is applied to every API route when set.
	RateLimit func(http.Handler) http.Handler
}

// NewServer creates the API server and registers all routes
func NewServer(opts Options) *Server {
	s := &Server{
		store:    opts.Store,
		engine:   opts.Engine,
		guard:    authz.NewMiddleware(opts.Engine),
		recorder: opts.Recorder,
		auditLog: opts.AuditLog,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		router:   mux.NewRouter(),
	}
	if s.recorder == nil {
		s.recorder = audit.NopRecorder{}
	}
	s.setupRoutes(opts.RateLimit)
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes(rateLimit func(http.Handler) http.Handler) {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.Use(middleware.RequestID(s.logger))
	if s.metrics != nil {
		api.Use(s.metrics.HTTPMiddleware(routeTemplate))
	}
	api.Use(observability.PanicMiddleware(s.logger))
	api.Use(middleware.Identity(s.logger))
	if rateLimit != nil {
		api.Use(rateLimit)
	}

	s.registerCRUD(api, "/customers", authz.KindCustomer, entityRoutes{
		create: s.createCustomer,
		list:   s.listCustomers,
		get:    s.getCustomer,
		update: s.updateCustomer,
		delete: s.deleteCustomer,
	})
	s.registerCRUD(api, "/vehicles", authz.KindVehicle, entityRoutes{
		create: s.createVehicle,
		list:   s.listVehicles,
		get:    s.getVehicle,
		update: s.updateVehicle,
		delete: s.deleteVehicle,
	})
	s.registerCRUD(api, "/appointments", authz.KindAppointment, entityRoutes{
		create: s.createAppointment,
		list:   s.listAppointments,
		get:    s.getAppointment,
		update: s.updateAppointment,
		delete: s.deleteAppointment,
	})
	s.registerCRUD(api, "/repair-orders", authz.KindRepairOrder, entityRoutes{
		create: s.createRepairOrder,
		list:   s.listRepairOrders,
		get:    s.getRepairOrder,
		update: s.updateRepairOrder,
		delete: s.deleteRepairOrder,
	})
	s.registerCRUD(api, "/invoices", authz.KindInvoice, entityRoutes{
		create: s.createInvoice,
		list:   s.listInvoices,
		get:    s.getInvoice,
		update: s.updateInvoice,
		delete: s.deleteInvoice,
	})
	s.registerCRUD(api, "/inspections", authz.KindInspection, entityRoutes{
		create: s.createInspection,
		list:   s.listInspections,
		get:    s.getInspection,
		update: s.updateInspection,
		delete: s.deleteInspection,
	})
	s.registerCRUD(api, "/inventory", authz.KindInventory, entityRoutes{
		create: s.createInventoryItem,
		list:   s.listInventoryItems,
		get:    s.getInventoryItem,
		update: s.updateInventoryItem,
		delete: s.deleteInventoryItem,
	})
	s.registerCRUD(api, "/users", authz.KindUser, entityRoutes{
		create: s.createUser,
		list:   s.listUsers,
		get:    s.getUser,
		update: s.updateUser,
		delete: s.deleteUser,
	})

	// Role changes are a separate operation so they audit distinctly.
	api.Handle("/users/{id}/role",
		s.guard.Require(authz.KindUser, authz.ActionUpdate, "id")(http.HandlerFunc(s.changeUserRole))).
		Methods(http.MethodPut)

	if s.auditLog != nil {
		api.Handle("/audit/events", s.requireAdmin(http.HandlerFunc(s.searchAuditEvents))).
			Methods(http.MethodGet)
		api.Handle("/audit/events/export", s.requireAdmin(http.HandlerFunc(s.exportAuditEvents))).
			Methods(http.MethodGet)
	}
}

// entityRoutes bundles the five CRUD handlers for one resource kind
type entityRoutes struct {
	create http.HandlerFunc
	list   http.HandlerFunc
	get    http.HandlerFunc
	update http.HandlerFunc
	delete http.HandlerFunc
}

func (s *Server) registerCRUD(r *mux.Router, path string, kind authz.ResourceKind, h entityRoutes) {
	r.Handle(path, s.guard.Require(kind, authz.ActionCreate, "")(h.create)).Methods(http.MethodPost)
	r.Handle(path, s.guard.Require(kind, authz.ActionList, "")(h.list)).Methods(http.MethodGet)
	r.Handle(path+"/{id}", s.guard.Require(kind, authz.ActionRead, "id")(h.get)).Methods(http.MethodGet)
	r.Handle(path+"/{id}", s.guard.Require(kind, authz.ActionUpdate, "id")(h.update)).Methods(http.MethodPut)
	r.Handle(path+"/{id}", s.guard.Require(kind, authz.ActionDelete, "id")(h.delete)).Methods(http.MethodDelete)
}

// requireAdmin guards routes outside the descriptor table, such as the audit
// trail itself
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := authz.PrincipalFromContext(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		if p.Role != authz.RoleAdmin {
			writeForbidden(w, r, authz.Decision{Reason: authz.ReasonRoleNotPermitted}, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// routeTemplate labels metrics with the mux path template instead of the raw
// URL so ids do not explode cardinality
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// writeForbidden translates a denied decision into a 403 carrying only the
// reason code
func writeForbidden(w http.ResponseWriter, r *http.Request, d authz.Decision, err error) {
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).
			WithField("reason", string(d.Reason)).
			Error("authorization denied on internal failure")
	}
	httputil.WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":  "forbidden",
		"reason": string(d.Reason),
	})
}

// writeStoreError maps a repository error to a response and returns the
// status code written
func writeStoreError(w http.ResponseWriter, err error) int {
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "record not found")
		return http.StatusNotFound
	}
	httputil.WriteInternalError(w, err)
	return http.StatusInternalServerError
}

// recordAudit appends one audit event after a state-changing call. Sink
// failures are logged and never surfaced to the caller.
func (s *Server) recordAudit(r *http.Request, action string, kind authz.ResourceKind, id string, status audit.EventStatus, code int, before, after any) {
	p, _ := authz.PrincipalFromContext(r.Context())
	ev := audit.NewEvent(p.ID, string(p.Role), action, string(kind), id, status)
	ev.ActorEmail = p.Email
	ev.RequestID = observability.GetRequestID(r.Context())
	ev.IPAddress = requestIP(r)
	ev.Method = r.Method
	ev.Path = r.URL.Path
	ev.StatusCode = code
	if before != nil || after != nil {
		ev.Changes = &audit.ChangeDetails{
			Before: audit.Snapshot(before),
			After:  audit.Snapshot(after),
		}
	}
	if err := s.recorder.Record(r.Context(), ev); err != nil {
		observability.FromContext(r.Context()).WithError(err).
			WithField("action", action).
			WithField("resource_kind", string(kind)).
			Warn("audit record failed")
	}
}

func requestIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if real := r.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// listOptions converts parsed pagination into storage bounds
func listOptions(p httputil.Pagination) storage.ListOptions {
	return storage.ListOptions{Limit: p.Limit, Offset: p.Offset}
}
