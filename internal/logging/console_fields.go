package logging

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// highlightKeys are printed first, in this order, ahead of any other field.
var highlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldErrorCode,
	"error",
	FieldErrorHint,
	FieldImpact,
	"status",
	FieldProgressPercent,
	"stage_duration",
	"total_duration",
	"quality",
	"resolution",
	"frame_rate",
	"file_size_bytes",
}

func orderFields(fields []kv) {
	rank := make(map[string]int, len(highlightKeys))
	for i, key := range highlightKeys {
		rank[key] = i
	}
	sort.SliceStable(fields, func(i, j int) bool {
		ri, iok := rank[fields[i].key]
		rj, jok := rank[fields[j].key]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		default:
			return false
		}
	})
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case strings.HasSuffix(key, "_bytes") && v.Kind() == slog.KindInt64 && v.Int64() >= 0:
		return humanize.IBytes(uint64(v.Int64()))
	case strings.HasSuffix(key, "_bytes") && v.Kind() == slog.KindUint64:
		return humanize.IBytes(v.Uint64())
	case strings.HasSuffix(key, "_percent") && v.Kind() == slog.KindFloat64:
		return humanize.FtoaWithDigits(v.Float64(), 1) + "%"
	case strings.HasSuffix(key, "_percent") && v.Kind() == slog.KindInt64:
		return humanize.Comma(v.Int64()) + "%"
	case v.Kind() == slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" && len(value) > 200 {
		value = value[:200] + "…"
	}
	return value
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorCode:
		return "Error Code"
	case FieldErrorHint:
		return "Hint"
	case FieldCorrelationID:
		return "Request"
	case FieldProgressPercent:
		return "Progress"
	case "stage_duration":
		return "Duration"
	case "file_size_bytes":
		return "File Size"
	}
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == '.' })
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, " ")
}
