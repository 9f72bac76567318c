// Package workflow drives render jobs through the avatar pipeline.
//
// The Manager accepts submissions, resolves their pipeline configuration and
// places them on the FIFO queue. A dispatcher hands queued jobs to a bounded
// pool of worker slots; each job then runs its stages serially
// (preprocessing, text-to-speech, lip-sync, rendering, post-processing) under
// a single time budget. Every transition goes through the job registry, so a
// job that was cancelled or timed out rejects any result that arrives late.
//
// Stage failures become job state and never escape the package: the failing
// stage, a stable code and a message are stamped on the job, the monitor
// observes the outcome and failure notifications are published. Failures in
// post-processing are downgraded to warnings and the job still completes
// with the draft output.
//
// The manager also recovers jobs left behind by a previous daemon run and
// periodically sweeps terminal jobs past the retention window together with
// their artifact directories.
package workflow
