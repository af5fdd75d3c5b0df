package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/openbay/openbay/pkg/observability"
)

// DecisionObserver receives the outcome of every authorization check, for
// metrics. Implementations must be safe for concurrent use.
type DecisionObserver interface {
	ObserveDecision(kind, action, reason string, allowed bool)
}

// Engine is the single authorization decision point. It is stateless per
// call: every check consults the static descriptor table, resolves ownership
// through the store when the role is scoped, and fails closed on anything it
// cannot explicitly account for.
type Engine struct {
	store    Store
	resolver *OwnershipResolver
	logger   *observability.Logger
	observer DecisionObserver
}

// NewEngine creates an authorization engine over the given store. The
// observer may be nil.
func NewEngine(store Store, logger *observability.Logger, observer DecisionObserver) *Engine {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Engine{
		store:    store,
		resolver: NewOwnershipResolver(store, logger),
		logger:   logger,
		observer: observer,
	}
}

// Resolver exposes the engine's ownership resolver
func (e *Engine) Resolver() *OwnershipResolver {
	return e.resolver
}

// Authorize decides whether the principal may perform action on kind.
//
// target is the fetched record for read/update/delete, the proposed body for
// create, and nil for list. List decisions carry the scope filter to push
// into the query layer instead of a per-record verdict.
//
// Denials are returned as decisions, not errors. The error return is non-nil
// only when ownership resolution failed on store I/O; the decision still
// denies (fail closed) and the error exists so callers can log the cause.
func (e *Engine) Authorize(ctx context.Context, p Principal, kind ResourceKind, action Action, target any) (Decision, error) {
	desc, ok := DescriptorFor(kind)
	if !ok {
		e.logger.WithField("kind", string(kind)).
			Error("authorization check against unknown resource kind")
		return e.finish(kind, action, Decision{Allowed: false, Reason: ReasonUnscopedFallthrough}), nil
	}

	if !p.Role.Valid() || !e.staticGate(desc, p.Role, action) {
		return e.finish(kind, action, Decision{Allowed: false, Reason: ReasonRoleNotPermitted}), nil
	}

	if action == ActionList {
		return e.authorizeList(ctx, p, desc)
	}

	if desc.Scoping == ScopeNone || p.Role == RoleAdmin {
		return e.finish(kind, action, Decision{Allowed: true, Reason: ReasonAllowed}), nil
	}

	switch p.Role {
	case RoleClient:
		if desc.Scoping.appliesToClient() {
			return e.authorizeClient(ctx, p, desc, action, target)
		}
	case RoleTechnician:
		if desc.Scoping.appliesToTechnician() {
			return e.authorizeTechnician(ctx, p, desc, action, target)
		}
		if kind == KindVehicle {
			// Technician vehicle access is granted only through a repair
			// order on that vehicle assigned to them.
			return e.authorizeTechnicianVehicle(ctx, p, action, target)
		}
	}

	// Every (role, action, scoping) combination must be explicitly handled
	// above. Reaching here is a defect, never a permissive default.
	e.logger.WithField("role", string(p.Role)).
		WithField("kind", string(kind)).
		WithField("action", string(action)).
		WithField("scoping", string(desc.Scoping)).
		Error("unhandled authorization combination; denying")
	return e.finish(kind, action, Decision{Allowed: false, Reason: ReasonUnscopedFallthrough}), nil
}

// AuthorizeByID fetches the target record and authorizes action against it.
// It returns the fetched record on success so handlers do not fetch twice.
// A missing record surfaces as ErrNotFound with a denied decision.
func (e *Engine) AuthorizeByID(ctx context.Context, p Principal, kind ResourceKind, action Action, id string) (Decision, any, error) {
	target, err := e.store.FetchByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Decision{Allowed: false, Reason: ReasonNotOwner}, nil, err
		}
		return Decision{Allowed: false, Reason: ReasonResolutionFailed}, nil, fmt.Errorf("authz: fetch %s %s: %w", kind, id, err)
	}
	decision, err := e.Authorize(ctx, p, kind, action, target)
	if !decision.Allowed {
		return decision, nil, err
	}
	return decision, target, err
}

// ScopeFor returns the list filter for the principal on kind, following the
// same descriptor gates as Authorize.
func (e *Engine) ScopeFor(ctx context.Context, p Principal, kind ResourceKind) (Decision, error) {
	return e.Authorize(ctx, p, kind, ActionList, nil)
}

func (e *Engine) staticGate(desc ResourceDescriptor, role Role, action Action) bool {
	if action == ActionDelete {
		return desc.CanDelete(role)
	}
	if action.IsWrite() {
		return desc.CanWrite(role)
	}
	return desc.CanRead(role)
}

func (e *Engine) authorizeList(ctx context.Context, p Principal, desc ResourceDescriptor) (Decision, error) {
	switch p.Role {
	case RoleAdmin:
		return e.finish(desc.Kind, ActionList, Decision{Allowed: true, Reason: ReasonAllowed}), nil

	case RoleClient:
		if desc.Scoping == ScopeNone {
			return e.finish(desc.Kind, ActionList, Decision{Allowed: true, Reason: ReasonAllowed}), nil
		}
		ownerID, denied, err := e.resolveOwner(ctx, p, desc.Kind, ActionList)
		if denied != nil {
			return *denied, err
		}
		return e.finish(desc.Kind, ActionList, Decision{
			Allowed: true,
			Reason:  ReasonAllowed,
			Scope:   ScopeFilter{CustomerID: ownerID},
			OwnerID: ownerID,
		}), nil

	case RoleTechnician:
		if desc.Scoping.appliesToTechnician() || desc.Kind == KindVehicle {
			return e.finish(desc.Kind, ActionList, Decision{
				Allowed: true,
				Reason:  ReasonAllowed,
				Scope:   e.resolver.AssignedFilter(p),
			}), nil
		}
		// Kinds without assignment (inventory) list unrestricted.
		return e.finish(desc.Kind, ActionList, Decision{Allowed: true, Reason: ReasonAllowed}), nil
	}

	e.logger.WithField("role", string(p.Role)).
		WithField("kind", string(desc.Kind)).
		Error("unhandled list authorization combination; denying")
	return e.finish(desc.Kind, ActionList, Decision{Allowed: false, Reason: ReasonUnscopedFallthrough}), nil
}

func (e *Engine) authorizeClient(ctx context.Context, p Principal, desc ResourceDescriptor, action Action, target any) (Decision, error) {
	ownerID, denied, err := e.resolveOwner(ctx, p, desc.Kind, action)
	if denied != nil {
		return *denied, err
	}

	if action == ActionCreate {
		return e.authorizeClientCreate(ctx, p, desc, ownerID, target)
	}

	owned, ok := target.(Ownable)
	if !ok {
		e.logger.WithField("kind", string(desc.Kind)).
			WithField("action", string(action)).
			Error("client-scoped target does not expose an owning customer; denying")
		return e.finish(desc.Kind, action, Decision{Allowed: false, Reason: ReasonUnscopedFallthrough}), nil
	}
	if owned.OwnerCustomerID() != ownerID {
		return e.finish(desc.Kind, action, Decision{Allowed: false, Reason: ReasonNotOwner}), nil
	}
	return e.finish(desc.Kind, action, Decision{Allowed: true, Reason: ReasonAllowed, OwnerID: ownerID}), nil
}

// authorizeClientCreate applies create-time ownership injection: the proposed
// body's customer id is overridden to the resolved owner, never rejected, so
// client forms do not need to know their own id. Foreign keys carried in the
// body must already belong to the same customer.
func (e *Engine) authorizeClientCreate(ctx context.Context, p Principal, desc ResourceDescriptor, ownerID string, body any) (Decision, error) {
	if settable, ok := body.(OwnerSettable); ok {
		settable.SetOwnerCustomerID(ownerID)
	} else if body != nil {
		// Kinds without a settable owner reference (the customer record is
		// the owner) are not client-creatable; admins create them.
		e.logger.WithField("kind", string(desc.Kind)).
			Warn("client create denied: body does not accept ownership injection")
		return e.finish(desc.Kind, ActionCreate, Decision{Allowed: false, Reason: ReasonRoleNotPermitted}), nil
	}

	if holder, ok := body.(ReferenceHolder); ok {
		for refKind, refID := range holder.OwnedRefs() {
			decision, err := e.checkReference(ctx, ResourceKind(refKind), refID, ownerID)
			if decision != nil {
				return e.finish(desc.Kind, ActionCreate, *decision), err
			}
		}
	}

	return e.finish(desc.Kind, ActionCreate, Decision{Allowed: true, Reason: ReasonAllowed, OwnerID: ownerID}), nil
}

// checkReference verifies a referenced entity belongs to the owning customer.
// It returns a non-nil denial decision on mismatch or failure, nil to proceed.
func (e *Engine) checkReference(ctx context.Context, kind ResourceKind, id, ownerID string) (*Decision, error) {
	rec, err := e.store.FetchByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Decision{Allowed: false, Reason: ReasonCrossEntityMismatch}, nil
		}
		return &Decision{Allowed: false, Reason: ReasonResolutionFailed},
			fmt.Errorf("authz: fetch referenced %s %s: %w", kind, id, err)
	}
	owned, ok := rec.(Ownable)
	if !ok || owned.OwnerCustomerID() != ownerID {
		return &Decision{Allowed: false, Reason: ReasonCrossEntityMismatch}, nil
	}
	return nil, nil
}

func (e *Engine) authorizeTechnician(ctx context.Context, p Principal, desc ResourceDescriptor, action Action, target any) (Decision, error) {
	if action == ActionCreate {
		// Technician creates (repair orders, inspections) carry no
		// ownership scoping of their own; the handler records the
		// technician as the performer.
		return e.finish(desc.Kind, ActionCreate, Decision{Allowed: true, Reason: ReasonAllowed}), nil
	}

	assigned, ok := target.(Assignable)
	if !ok {
		e.logger.WithField("kind", string(desc.Kind)).
			WithField("action", string(action)).
			Error("technician-scoped target does not expose an assignment; denying")
		return e.finish(desc.Kind, action, Decision{Allowed: false, Reason: ReasonUnscopedFallthrough}), nil
	}
	// An unassigned record ("" technician) never matches; only an admin can
	// assign it first.
	if assigned.AssignedTechnicianID() == "" || assigned.AssignedTechnicianID() != p.ID {
		return e.finish(desc.Kind, action, Decision{Allowed: false, Reason: ReasonNotAssigned}), nil
	}
	return e.finish(desc.Kind, action, Decision{Allowed: true, Reason: ReasonAllowed}), nil
}

// authorizeTechnicianVehicle grants vehicle reads to a technician only when
// some repair order on the vehicle is assigned to them.
func (e *Engine) authorizeTechnicianVehicle(ctx context.Context, p Principal, action Action, target any) (Decision, error) {
	if action != ActionRead {
		return e.finish(KindVehicle, action, Decision{Allowed: false, Reason: ReasonRoleNotPermitted}), nil
	}
	vehicle, ok := target.(Identifiable)
	if !ok {
		e.logger.Error("vehicle target does not expose an id; denying technician read")
		return e.finish(KindVehicle, action, Decision{Allowed: false, Reason: ReasonUnscopedFallthrough}), nil
	}

	orders, err := e.store.FetchByForeignKey(ctx, KindRepairOrder, "vehicle_id", vehicle.EntityID())
	if err != nil {
		return e.finish(KindVehicle, action, Decision{Allowed: false, Reason: ReasonResolutionFailed}),
			fmt.Errorf("authz: fetch repair orders for vehicle %s: %w", vehicle.EntityID(), err)
	}
	for _, order := range orders {
		if assigned, ok := order.(Assignable); ok && assigned.AssignedTechnicianID() == p.ID {
			return e.finish(KindVehicle, action, Decision{Allowed: true, Reason: ReasonAllowed}), nil
		}
	}
	return e.finish(KindVehicle, action, Decision{Allowed: false, Reason: ReasonNotAssigned}), nil
}

// resolveOwner resolves the client's owning customer, mapping failures to
// denial decisions. The returned decision pointer is nil when resolution
// succeeded.
func (e *Engine) resolveOwner(ctx context.Context, p Principal, kind ResourceKind, action Action) (string, *Decision, error) {
	ownerID, err := e.resolver.ResolveCustomerForClient(ctx, p)
	if err == nil {
		return ownerID, nil, nil
	}
	if errors.Is(err, ErrOwnershipUnresolved) {
		d := e.finish(kind, action, Decision{Allowed: false, Reason: ReasonOwnershipUnresolved})
		return "", &d, nil
	}
	// Store I/O failure: deny, but surface the cause for logging. The
	// response must not distinguish this from an ordinary denial.
	d := e.finish(kind, action, Decision{Allowed: false, Reason: ReasonResolutionFailed})
	return "", &d, err
}

func (e *Engine) finish(kind ResourceKind, action Action, d Decision) Decision {
	if e.observer != nil {
		e.observer.ObserveDecision(string(kind), string(action), string(d.Reason), d.Allowed)
	}
	return d
}
