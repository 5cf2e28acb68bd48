package domain

import "time"

// EventType classifies job lifecycle events
type EventType string

const (
	EventTypeJobCreated    EventType = "job.created"
	EventTypeJobInProgress EventType = "job.in_progress"
	EventTypeJobDone       EventType = "job.done"
	EventTypeJobError      EventType = "job.error"
)

// Event is a job lifecycle notification published on the event bus.
// It is an observer signal only; the job store stays authoritative.
type Event struct {
	ID             string                 `json:"id"`
	Type           EventType              `json:"type"`
	JobID          string                 `json:"job_id"`
	SubscriptionID string                 `json:"subscription_id,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	Data           map[string]interface{} `json:"data,omitempty"`
}
