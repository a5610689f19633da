// Package upload provides the asynchronous delivery pipeline for rendered
// documents.
//
// The Dispatcher type manages the delivery workflow, including:
//   - Grouping submitted items into per-task batches by correlation key
//   - Queueing tasks for a fixed pool of delivery workers
//   - Retrying failed deliveries with a capped attempt count
//
// Submission is fire-and-forget: callers return before any delivery attempt
// occurs, and delivery errors are logged and retried rather than surfaced.
// Tasks that exhaust their retries are dropped with no durable trace.
package upload
