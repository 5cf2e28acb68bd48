// Package engine implements the orchestration façade.
//
// The service dispatches pull requests synchronously through a matching
// strategy, manages the single-subscription push flow (subscribe with
// optional immediate trigger, owner-checked unsubscribe) and delegates
// bulk triggering to the push-trigger coordinator.
//
// The validator normalizes raw requests into well-formed orchestration
// forms and applies the cross-field rules.
package engine
