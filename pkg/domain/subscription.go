package domain

import "time"

// Subscription is a durable push-orchestration registration. At most one
// subscription may exist per (OwnerSystem, TargetSystem, ServiceDefinition).
type Subscription struct {
	ID                string    `json:"id"`
	OwnerSystem       string    `json:"owner_system"`
	TargetSystem      string    `json:"target_system"`
	ServiceDefinition string    `json:"service_definition"`
	// RequirementSnapshot is the serialized orchestration form used to
	// re-run matching when the subscription is triggered.
	RequirementSnapshot string    `json:"requirement_snapshot"`
	NotifyProtocol      string    `json:"notify_protocol"`
	NotifyProperties    string    `json:"notify_properties,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// TripleKey returns the uniqueness key of the subscription
func (s *Subscription) TripleKey() string {
	return s.OwnerSystem + "|" + s.TargetSystem + "|" + s.ServiceDefinition
}

// SubscriptionFilter narrows subscription queries. Empty slices match everything.
type SubscriptionFilter struct {
	IDs                []string
	OwnerSystems       []string
	TargetSystems      []string
	ServiceDefinitions []string
}
