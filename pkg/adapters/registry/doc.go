// Package registry provides the HTTP client for the external service
// registry, the collaborator that performs actual provider matching.
package registry
