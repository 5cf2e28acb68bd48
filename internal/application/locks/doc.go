// Package locks implements lease-based mutual exclusion over service
// instance identifiers.
//
// The manager enforces:
//   - At most one active (non-expired) lock per service instance
//   - All-or-nothing acquire batches ("steal if expired, else refuse")
//   - Owner-scoped release that never touches temporary locks
//
// The fetch-decide-write sequence of an acquire is completed inside the
// lock store's atomic Replace operation, so the invariant holds across
// concurrent callers and across process instances.
package locks
