// Package dispatch implements the hand-off between request handlers and
// the asynchronous push workers.
//
// The queue carries job identifiers only; producers enqueue strictly
// after the job row is committed, so the store stays authoritative and a
// lost queue is recovered by re-scanning still-pending jobs. A fixed
// pool of workers drains the queue, runs the matching strategy for each
// job and reports health periodically.
package dispatch
