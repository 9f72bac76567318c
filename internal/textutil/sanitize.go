package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxTokenLen bounds a path segment derived from user input.
const maxTokenLen = 64

// SanitizeToken turns a voice id, codec, format or job id into a lowercase
// path segment. Accents are folded to their base letter ("Português" becomes
// "portugues"), ASCII letters, digits, hyphens and underscores survive and
// any other rune becomes an underscore. Empty results map to "unknown".
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range norm.NFD.String(value) {
		if b.Len() >= maxTokenLen {
			break
		}
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark left over from decomposition
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
