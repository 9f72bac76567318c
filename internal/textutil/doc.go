// Package textutil provides narration text normalization and path segment
// sanitization.
//
// NormalizeScript produces the canonical script form used for word counts and
// cache keys: Unicode NFC, collapsed whitespace, no control characters.
// SanitizeToken makes user supplied values safe for artifact paths.
package textutil
