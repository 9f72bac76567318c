package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"avatarstudio/internal/api"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show daemon, stage and system health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				health, err := client.Health(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, health)
				}
				out := cmd.OutOrStdout()
				printHealth(out, health, shouldColorize(out))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func printHealth(out io.Writer, health api.HealthResponse, colorize bool) {
	for _, line := range renderSectionHeader("System", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Health", healthKind(string(health.Health.Status)),
		fmt.Sprintf("%s (score %d)", health.Health.Status, health.Health.Score), colorize))
	for _, issue := range health.Health.Issues {
		fmt.Fprintln(out, renderStatusLine("Issue", statusWarn, issue, colorize))
	}
	workflowKind, workflowText := statusOK, "Running"
	if !health.Workflow.Running {
		workflowKind, workflowText = statusError, "Stopped"
	}
	fmt.Fprintln(out, renderStatusLine("Workflow", workflowKind, workflowText, colorize))
	if health.Workflow.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, health.Workflow.LastError, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Queue", statusInfo,
		fmt.Sprintf("%d waiting, %d/%d slots busy", health.Workflow.QueueDepth, health.Workflow.ActiveJobs, health.Workflow.Slots), colorize))
	jobs := health.Workflow.Jobs
	fmt.Fprintln(out, renderStatusLine("Jobs", statusInfo,
		fmt.Sprintf("%d total, %d completed, %d failed", jobs.Total, jobs.Completed, jobs.Failed), colorize))
	perf := health.Performance
	fmt.Fprintln(out, renderStatusLine("Success rate", statusInfo,
		fmt.Sprintf("%.1f%% (avg %s)", perf.SuccessRate, formatMillis(perf.AvgProcessingMs)), colorize))

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Stages", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, st := range health.Workflow.StageHealth {
		if st.Ready {
			fmt.Fprintln(out, renderStatusLine(st.Name, statusOK, "Ready", colorize))
			continue
		}
		fmt.Fprintln(out, renderStatusLine(st.Name, statusError, st.Detail, colorize))
	}
}

func healthKind(status string) statusKind {
	switch status {
	case "healthy":
		return statusOK
	case "warning":
		return statusWarn
	default:
		return statusError
	}
}

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var since time.Duration
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show recent metrics snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				q := api.MetricsQuery{Limit: limit}
				if since > 0 {
					q.From = time.Now().Add(-since)
				}
				snaps, err := client.Metrics(cmd.Context(), q)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, snaps)
				}
				out := cmd.OutOrStdout()
				if len(snaps) == 0 {
					fmt.Fprintln(out, "No metrics recorded yet")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Time", "Queue", "Active", "Memory", "Error rate", "Completed", "Failed"},
					snapshotRows(snaps),
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
				latest := snaps[len(snaps)-1]
				if len(latest.Stages) > 0 {
					fmt.Fprintln(out, renderTable(
						[]string{"Stage", "Invocations", "Failures", "Error rate", "Avg latency"},
						stageRows(latest.Stages),
						[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
					))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of snapshots")
	cmd.Flags().DurationVar(&since, "since", 0, "Only show snapshots newer than this duration")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func snapshotRows(snaps []api.Snapshot) [][]string {
	rows := make([][]string, 0, len(snaps))
	for _, snap := range snaps {
		rows = append(rows, []string{
			formatAge(snap.Timestamp),
			strconv.Itoa(snap.QueueDepth),
			strconv.Itoa(snap.ActiveJobs),
			fmt.Sprintf("%.1f%%", snap.MemoryPercent),
			fmt.Sprintf("%.1f%%", snap.ErrorRate),
			strconv.Itoa(snap.JobsCompleted),
			strconv.Itoa(snap.JobsFailed),
		})
	}
	return rows
}

func stageRows(stages map[string]api.StageStats) [][]string {
	rows := make([][]string, 0, len(stages))
	for _, name := range slices.Sorted(maps.Keys(stages)) {
		st := stages[name]
		rows = append(rows, []string{
			name,
			strconv.Itoa(st.Invocations),
			strconv.Itoa(st.Failures),
			fmt.Sprintf("%.1f%%", st.ErrorRate),
			formatMillis(st.AvgLatencyMs),
		})
	}
	return rows
}

func newAlertsCommand(ctx *commandContext) *cobra.Command {
	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect and resolve threshold alerts",
	}
	alertsCmd.AddCommand(newAlertsListCommand(ctx))
	alertsCmd.AddCommand(newAlertsResolveCommand(ctx))
	return alertsCmd
}

func newAlertsListCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var severity, category string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				q := api.AlertQuery{Severity: severity, Category: category}
				if !all {
					unresolved := false
					q.Resolved = &unresolved
				}
				alerts, err := client.Alerts(cmd.Context(), q)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, alerts)
				}
				out := cmd.OutOrStdout()
				if len(alerts) == 0 {
					fmt.Fprintln(out, "No alerts")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Severity", "Category", "Raised", "Resolved", "Message"},
					alertRows(alerts, shouldColorize(out)),
					nil,
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include resolved alerts")
	cmd.Flags().StringVar(&severity, "severity", "", "Filter by severity (info, warning, critical)")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category (performance, error, system, security)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func alertRows(alerts []api.Alert, colorize bool) [][]string {
	rows := make([][]string, 0, len(alerts))
	for _, alert := range alerts {
		kind := statusWarn
		switch alert.Severity {
		case "critical":
			kind = statusError
		case "info":
			kind = statusInfo
		}
		resolved := "no"
		if alert.Resolved {
			resolved = "yes"
		}
		rows = append(rows, []string{
			alert.ID,
			colorizeStatus(alert.Severity, kind, colorize),
			alert.Category,
			formatAge(alert.Timestamp),
			resolved,
			truncate(alert.Message, 60),
		})
	}
	return rows
}

func newAlertsResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <alert-id>",
		Short: "Mark an alert resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resolved, err := client.ResolveAlert(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resolved {
					fmt.Fprintf(out, "Resolved %s\n", args[0])
				} else {
					fmt.Fprintf(out, "Alert %s not found or already resolved\n", args[0])
				}
				return nil
			})
		},
	}
}
