// Package authz is the centralized role-based access control and
// data-ownership enforcement layer.
//
// Every request-handling path funnels through one Engine. A check takes the
// authenticated Principal (id + role, trusted inputs from the authentication
// layer), a ResourceKind, an Action, and the target record, and returns a
// Decision. Denials are decision values with a stable reason code, never
// errors; handlers translate them into 403 responses.
//
// # Descriptor table
//
// The static descriptor table in descriptor.go is the single source of truth
// for which roles may touch which kind. Ownership scoping then narrows what
// the static gate admits:
//
//   - clients see and mutate only records whose customer id matches their
//     resolved owning customer
//   - technicians mutate only records assigned to them; an unassigned record
//     never matches
//
// A row may carry a delete gate narrower than its write gate: clients can
// update their own customer profile but never read, list, or delete customer
// records.
//
// Adding a resource kind means adding exactly one descriptor row. No other
// component hard-codes role checks.
//
// # Fail closed
//
// Any combination of role, action, and scoping the engine does not explicitly
// handle denies with reason unscoped_fallthrough and an error-level log: an
// unhandled combination is a programming defect, not a permissive default.
// Likewise a client whose customer mapping cannot be resolved is denied
// everything (ownership_unresolved), and a store failure during resolution
// denies with resolution_failed rather than erroring out.
//
// # Create-time ownership injection
//
// When a client creates a record, the engine overrides the body's customer id
// with the client's own resolved id instead of rejecting a mismatch, so
// client-facing forms never need to know their internal customer id. Foreign
// keys carried in the body (a repair order's vehicle, an invoice's repair
// order) must already belong to that same customer or the create denies with
// cross_entity_mismatch.
//
// # List scoping
//
// List endpoints get a ScopeFilter instead of a per-record verdict. The
// persistence layer applies the filter inside the query; trimming an
// unfiltered result set in memory is both a performance and a correctness
// bug, since it leaks the existence of out-of-scope records through paging
// behavior.
//
// The engine performs no writes and keeps no per-request state, so it needs
// no locking; its only I/O is reads through the Store collaborator.
package authz
