// Command avatarstudio runs the render daemon and talks to it over the local
// HTTP API.
//
// `avatarstudio serve` starts the daemon in the foreground. The remaining
// commands (submit, status, jobs, cancel, health, metrics, alerts) are thin
// clients that print tables by default and raw JSON with --json.
package main
