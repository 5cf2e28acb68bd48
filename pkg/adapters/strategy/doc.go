// Package strategy provides the two orchestration strategies: Local for
// in-cloud matching and InterCloud for cross-cloud matching.
//
// Both delegate the matching itself to the service-registry collaborator
// and own the job's terminal status transition, on success and on their
// own failure alike.
package strategy
