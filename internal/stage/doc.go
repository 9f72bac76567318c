// Package stage defines the contract between the orchestrator and the stage
// executors: request and result types for speech synthesis, lip-sync
// alignment, rendering and post-processing, plus health reporting and a
// bounded retry helper.
//
// Executors see only their predecessor's result and the resolved config
// section they need. They never touch job state; the orchestrator stamps the
// stage name on failures.
package stage
