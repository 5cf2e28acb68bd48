package domain

// OrchestrationForm is the transient, normalized in-memory request value
// driving one orchestration run. It is never persisted directly; push
// subscriptions carry a serialized snapshot of it.
type OrchestrationForm struct {
	RequesterSystem       string            `json:"requester_system"`
	TargetSystem          string            `json:"target_system"`
	ServiceDefinition     string            `json:"service_definition"`
	InterfaceRequirements []string          `json:"interface_requirements,omitempty"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	// InterCloudOnly routes the run to the InterCloud strategy instead of
	// the Local one.
	InterCloudOnly   bool            `json:"intercloud_only"`
	MatchmakingFlags map[string]bool `json:"matchmaking_flags,omitempty"`
}

// ProviderMatch is a single matched provider produced by a strategy
type ProviderMatch struct {
	ProviderSystem    string            `json:"provider_system"`
	ServiceURI        string            `json:"service_uri"`
	ServiceDefinition string            `json:"service_definition"`
	Interfaces        []string          `json:"interfaces,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// MatchResult is the outcome of one strategy run
type MatchResult struct {
	Matches  []ProviderMatch `json:"matches"`
	Warnings []string        `json:"warnings,omitempty"`
}
