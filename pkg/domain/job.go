package domain

import "time"

// JobType distinguishes how an orchestration job was initiated
type JobType string

const (
	JobTypePull JobType = "PULL"
	JobTypePush JobType = "PUSH"
)

// JobStatus represents the lifecycle state of an orchestration job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusDone       JobStatus = "DONE"
	JobStatusError      JobStatus = "ERROR"
)

// InFlightStatuses is the exact status set that counts as "still needs
// processing" for push-trigger deduplication.
var InFlightStatuses = []JobStatus{JobStatusPending, JobStatusInProgress}

// Job is a single orchestration job record. Immutable after creation
// except Status, which only the async worker path mutates.
type Job struct {
	ID                string    `json:"id"`
	Type              JobType   `json:"type"`
	RequesterSystem   string    `json:"requester_system"`
	TargetSystem      string    `json:"target_system"`
	ServiceDefinition string    `json:"service_definition"`
	SubscriptionID    string    `json:"subscription_id,omitempty"`
	Status            JobStatus `json:"status"`
	Message           string    `json:"message,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// InFlight reports whether the job still needs processing
func (j *Job) InFlight() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusInProgress
}

// JobFilter narrows job queries. Empty slices/fields match everything.
type JobFilter struct {
	IDs               []string
	Types             []JobType
	Statuses          []JobStatus
	RequesterSystem   string
	TargetSystem      string
	ServiceDefinition string
	SubscriptionIDs   []string
}
