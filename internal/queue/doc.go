// Package queue owns render job state and the pending FIFO.
//
// Registry is the single source of truth for a job's status, progress,
// intermediate stage results, output and error. Two backends implement it:
// MemoryStore for tests and ephemeral daemons, and SQLiteStore which keeps
// jobs across restarts. Every read returns a copy and every write goes through
// Update, which applies a mutation atomically and refuses to touch jobs that
// already reached completed or failed.
//
// Pending is the arrival-ordered list of job ids waiting for the workflow
// dispatcher. It has no priorities and never re-enqueues failed work.
//
// The database is transient storage for in-flight and recently finished jobs.
// Schema changes bump the version in schema.go; users delete the database to
// adopt the new schema.
package queue
