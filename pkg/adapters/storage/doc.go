// Package storage provides job, lock and subscription store implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization and index sets (production)
//   - memory: In-memory for testing and single-node deployments
package storage
