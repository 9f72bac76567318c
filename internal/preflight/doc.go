// Package preflight provides readiness checks for the filesystem paths and
// external services AvatarStudio depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check.
//   - The CLI "avatarstudio health" command prints the results next to the
//     monitor health score.
//
// The reference post-processor also reuses CheckDirectoryAccess for its
// stage health report.
package preflight
