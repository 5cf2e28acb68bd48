// Package subscription implements the durable push-subscription
// registry and the bulk push-trigger coordinator.
//
// The registry enforces at most one subscription per
// (owner, target, serviceDefinition) triple. The coordinator resolves
// which subscriptions need a new push job, deduplicates against jobs
// that are still in flight, persists new jobs as one batch and only
// then wakes the dispatch workers.
package subscription
