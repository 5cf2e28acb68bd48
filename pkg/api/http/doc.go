// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Pull orchestration and push subscriptions
//   - Bulk push triggering
//   - Service instance lock management
//   - Job history queries
//   - Health checks
//   - Prometheus metrics
package http
