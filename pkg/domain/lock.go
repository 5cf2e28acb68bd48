package domain

import "time"

// Lock is a lease-based exclusive claim on a service instance.
// At most one active (non-expired) lock may exist per ServiceInstanceID.
type Lock struct {
	ID                string     `json:"id"`
	ServiceInstanceID string     `json:"service_instance_id"`
	Owner             string     `json:"owner"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"` // nil = non-expiring
	JobID             string     `json:"job_id,omitempty"`
	Temporary         bool       `json:"temporary"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Active reports whether the lease is still live at the given instant
func (l *Lock) Active(now time.Time) bool {
	return l.ExpiresAt == nil || l.ExpiresAt.After(now)
}

// LockCandidate is a single requested lease in an acquire batch
type LockCandidate struct {
	ServiceInstanceID string
	Owner             string
	ExpiresAt         *time.Time
	JobID             string
	Temporary         bool
}

// LockFilter narrows lock queries
type LockFilter struct {
	IDs                []string
	ServiceInstanceIDs []string
	Owner              string
}
