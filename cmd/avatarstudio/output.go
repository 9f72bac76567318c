package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"avatarstudio/internal/api"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func formatBytes(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).Round(100 * time.Millisecond).String()
}

// formatAge renders an API timestamp relative to now, e.g. "3 minutes ago".
func formatAge(value string) string {
	ts, err := api.ParseTime(value)
	if err != nil || ts.IsZero() {
		return "-"
	}
	return humanize.Time(ts)
}

func jobStatusKind(status string) statusKind {
	switch status {
	case "completed":
		return statusOK
	case "failed":
		return statusError
	case "queued":
		return statusInfo
	default:
		return statusWarn
	}
}

func jobRows(jobs []api.Job, colorize bool) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		detail := ""
		switch {
		case job.Error != nil:
			detail = fmt.Sprintf("%s: %s", job.Error.Code, job.Error.Message)
		case job.Output != nil:
			detail = fmt.Sprintf("%s, %s", formatMillis(job.Output.DurationMs), formatBytes(job.Output.FileSize))
		case len(job.Warnings) > 0:
			detail = fmt.Sprintf("%d warning(s)", len(job.Warnings))
		}
		rows = append(rows, []string{
			job.ID,
			colorizeStatus(job.Status, jobStatusKind(job.Status), colorize),
			fmt.Sprintf("%d%%", job.Progress),
			formatAge(job.CreatedAt),
			truncate(detail, 60),
		})
	}
	return rows
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
