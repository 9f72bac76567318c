package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeScript converts text to NFC, drops control characters and
// collapses runs of whitespace into single spaces.
func NormalizeScript(text string) string {
	composed := norm.NFC.String(text)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, composed)
	return strings.Join(strings.Fields(cleaned), " ")
}
