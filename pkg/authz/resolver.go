package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openbay/openbay/pkg/observability"
)

// ErrOwnershipUnresolved means a client principal has no usable customer
// mapping (none found, or more than one matched). Every scoped check for
// that principal must deny; never fall back to unscoped access.
var ErrOwnershipUnresolved = errors.New("authz: client principal has no resolved customer")

// CustomerLinked is a user account record carrying an explicit foreign key to
// the customer it owns. An empty id means no explicit link.
type CustomerLinked interface {
	LinkedCustomerID() string
}

// OwnershipResolver maps a client principal to its owning customer record.
//
// Resolution prefers the explicit user->customer foreign key. When the link
// is absent it falls back to matching the account email against customer
// records. The fallback is a compatibility shim with weaker guarantees: it
// breaks when emails are duplicated or out of sync, so every use is logged
// at warn level.
//
// Results are never cached across requests; the mapping can change between
// requests and a stale owner id is an ownership bug.
type OwnershipResolver struct {
	store  Store
	logger *observability.Logger
}

// NewOwnershipResolver creates a resolver backed by the given store
func NewOwnershipResolver(store Store, logger *observability.Logger) *OwnershipResolver {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &OwnershipResolver{store: store, logger: logger}
}

// ResolveCustomerForClient returns the owning customer id for a client
// principal. It returns ErrOwnershipUnresolved when no unambiguous mapping
// exists, and wraps store failures so callers can distinguish "definitely
// unmapped" from "could not determine" in logs.
func (r *OwnershipResolver) ResolveCustomerForClient(ctx context.Context, p Principal) (string, error) {
	if p.Role != RoleClient {
		return "", fmt.Errorf("authz: ownership resolution applies to client principals, got role %q", p.Role)
	}

	rec, err := r.store.FetchByID(ctx, KindUser, p.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("authz: fetch user account %s: %w", p.ID, err)
	}
	if linked, ok := rec.(CustomerLinked); ok && linked.LinkedCustomerID() != "" {
		return linked.LinkedCustomerID(), nil
	}

	return r.resolveByEmail(ctx, p)
}

// resolveByEmail is the legacy matching strategy: account email equals
// customer email, case-insensitive.
func (r *OwnershipResolver) resolveByEmail(ctx context.Context, p Principal) (string, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return "", ErrOwnershipUnresolved
	}

	matches, err := r.store.FetchByForeignKey(ctx, KindCustomer, "email", email)
	if err != nil {
		return "", fmt.Errorf("authz: match customer by email for user %s: %w", p.ID, err)
	}

	switch len(matches) {
	case 0:
		return "", ErrOwnershipUnresolved
	case 1:
		owned, ok := matches[0].(Ownable)
		if !ok {
			return "", fmt.Errorf("authz: customer record for user %s does not expose an owner id", p.ID)
		}
		r.logger.WithField("user_id", p.ID).
			WithField("customer_id", owned.OwnerCustomerID()).
			Warn("resolved client ownership via email fallback; set an explicit customer link")
		return owned.OwnerCustomerID(), nil
	default:
		r.logger.WithField("user_id", p.ID).
			WithField("match_count", len(matches)).
			Warn("ambiguous email-based customer mapping; denying")
		return "", ErrOwnershipUnresolved
	}
}

// AssignedFilter returns the list filter for a technician principal. No
// lookup is needed: assignment scoping is always "technician id equals self".
func (r *OwnershipResolver) AssignedFilter(p Principal) ScopeFilter {
	return ScopeFilter{TechnicianID: p.ID}
}
