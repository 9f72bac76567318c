// Package daemon coordinates the long-running AvatarStudio process.
//
// It wires configuration, the job registry, the workflow manager and the
// metrics monitor into a single lifecycle with flock-based locking to prevent
// multiple instances. Startup runs the preflight checks and logs failures
// without refusing to start. The daemon exposes the job and monitoring API
// over HTTP, optionally guarded by a bearer token.
//
// Keep orchestration logic here: pipeline stages belong to the workflow and
// engines packages while the daemon focuses on startup, shutdown, and the
// transport surface.
package daemon
