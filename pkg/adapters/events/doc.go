// Package events provides job event bus implementations.
//
// Implementations:
//   - redis: Redis Streams with consumer groups (production)
//   - memory: In-memory for testing and single-node deployments
package events
