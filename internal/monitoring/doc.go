// Package monitoring aggregates pipeline metrics and raises threshold alerts.
//
// The workflow manager reports every settled stage through ObserveStage and
// every finished job through ObserveJobFinished. Run drives Tick on the
// configured interval; each tick captures a Snapshot into a bounded history
// and compares it with the configured thresholds. Breaches append Alerts,
// which stay active until ResolveAlert is called. Health folds active alert
// severities and the latest memory reading into a score.
package monitoring
