package workflow

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"avatarstudio/internal/queue"
)

// deriveStageLabel turns a status such as tts_generation into "Tts Generation".
func deriveStageLabel(status queue.Status) string {
	if status == "" {
		return "Pipeline"
	}
	words := strings.Join(strings.Fields(strings.ReplaceAll(string(status), "_", " ")), " ")
	return cases.Title(language.Und).String(words)
}
