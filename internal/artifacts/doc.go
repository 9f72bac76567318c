// Package artifacts lays out per-job files under the artifact directory and
// removes directories left behind by jobs the registry no longer tracks.
package artifacts
