// Package ports declares the contracts between the orchestration core
// and its adapters: persistent stores, the dispatch queue, the event
// bus, matching strategies and metrics.
package ports
