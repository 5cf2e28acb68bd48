package engine

import (
	"strings"

	"github.com/cloudmesh/orchestrator/pkg/domain"
)

// PullRequest is a raw synchronous orchestration request
type PullRequest struct {
	ServiceDefinition     string            `json:"service_definition"`
	InterfaceRequirements []string          `json:"interface_requirements,omitempty"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	InterCloudOnly        bool              `json:"intercloud_only"`
	MatchmakingFlags      map[string]bool   `json:"matchmaking_flags,omitempty"`
}

// SubscribeRequest is a raw push-subscription request. OwnerSystem, when
// set, overrides the caller identity.
type SubscribeRequest struct {
	OwnerSystem           string            `json:"owner_system,omitempty"`
	TargetSystem          string            `json:"target_system"`
	ServiceDefinition     string            `json:"service_definition"`
	InterfaceRequirements []string          `json:"interface_requirements,omitempty"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	InterCloudOnly        bool              `json:"intercloud_only"`
	MatchmakingFlags      map[string]bool   `json:"matchmaking_flags,omitempty"`
	NotifyProtocol        string            `json:"notify_protocol"`
	NotifyProperties      string            `json:"notify_properties,omitempty"`
}

// Validator normalizes raw requests into orchestration forms
type Validator struct{}

// NewValidator creates a new form validator
func NewValidator() *Validator {
	return &Validator{}
}

// NormalizePull builds the form for a synchronous pull run. Pull always
// targets the caller itself.
func (v *Validator) NormalizePull(origin, requesterSystem string, req *PullRequest) (*domain.OrchestrationForm, error) {
	if req == nil {
		return nil, domain.Validation(origin, "request is nil")
	}

	form := &domain.OrchestrationForm{
		RequesterSystem:       strings.TrimSpace(requesterSystem),
		TargetSystem:          strings.TrimSpace(requesterSystem),
		ServiceDefinition:     strings.TrimSpace(req.ServiceDefinition),
		InterfaceRequirements: trimAll(req.InterfaceRequirements),
		Metadata:              req.Metadata,
		InterCloudOnly:        req.InterCloudOnly,
		MatchmakingFlags:      req.MatchmakingFlags,
	}

	if err := v.ValidateForm(origin, form); err != nil {
		return nil, err
	}
	return form, nil
}

// NormalizeSubscribe builds the form snapshot for a push subscription
func (v *Validator) NormalizeSubscribe(origin, owner string, req *SubscribeRequest) (*domain.OrchestrationForm, error) {
	if req == nil {
		return nil, domain.Validation(origin, "request is nil")
	}
	if strings.TrimSpace(req.NotifyProtocol) == "" {
		return nil, domain.Validation(origin, "notify protocol is required")
	}

	target := strings.TrimSpace(req.TargetSystem)
	if target == "" {
		target = strings.TrimSpace(owner)
	}

	form := &domain.OrchestrationForm{
		RequesterSystem:       strings.TrimSpace(owner),
		TargetSystem:          target,
		ServiceDefinition:     strings.TrimSpace(req.ServiceDefinition),
		InterfaceRequirements: trimAll(req.InterfaceRequirements),
		Metadata:              req.Metadata,
		InterCloudOnly:        req.InterCloudOnly,
		MatchmakingFlags:      req.MatchmakingFlags,
	}

	if err := v.ValidateForm(origin, form); err != nil {
		return nil, err
	}
	return form, nil
}

// ValidateForm applies the cross-field rules to a normalized form
func (v *Validator) ValidateForm(origin string, form *domain.OrchestrationForm) error {
	if form.RequesterSystem == "" {
		return domain.Validation(origin, "requester system is required")
	}
	if form.TargetSystem == "" {
		return domain.Validation(origin, "target system is required")
	}
	if form.ServiceDefinition == "" {
		return domain.Validation(origin, "service definition is required")
	}
	for _, iface := range form.InterfaceRequirements {
		if iface == "" {
			return domain.Validation(origin, "interface requirement must not be empty")
		}
	}
	for key := range form.Metadata {
		if strings.TrimSpace(key) == "" {
			return domain.Validation(origin, "metadata key must not be empty")
		}
	}
	return nil
}

func trimAll(list []string) []string {
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
