// Package services defines shared utilities consumed by the pipeline
// orchestrator and the stage executors.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - The closed failure taxonomy (validation, stage, timeout, cancelled,
//     not found) plus the Details helper that flattens any error into the
//     code/message/details triple recorded on failed jobs.
//
// Executors should return *Error values so failures keep their codes; plain
// errors are still accepted and classified as generic stage failures.
package services
