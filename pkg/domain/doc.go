// Package domain holds the core entities of the orchestration engine:
// jobs, lease locks, push subscriptions, the transient orchestration
// form, pagination values and the structured error taxonomy.
package domain
