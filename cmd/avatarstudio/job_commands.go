package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"avatarstudio/internal/api"
	"avatarstudio/internal/pipelineconfig"
)

type submitOptions struct {
	file       string
	voice      string
	language   string
	speed      float64
	emotion    string
	model      string
	style      string
	precision  string
	resolution string
	quality    string
	format     string
	frameRate  int
	timeoutMs  int
	metadata   map[string]string
	wait       bool
	interval   time.Duration
	json       bool
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit [text...]",
		Short: "Queue a narration for rendering",
		Long: "Queue a narration for rendering. The script is taken from the arguments, " +
			"from --file, or from stdin when --file is \"-\". Unset options use the pipeline defaults.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readScript(cmd, args, opts.file)
			if err != nil {
				return err
			}
			req := api.SubmitRequest{Text: text, Config: opts.partial(cmd)}
			if len(opts.metadata) > 0 {
				req.Metadata = make(map[string]any, len(opts.metadata))
				for k, v := range opts.metadata {
					req.Metadata[k] = v
				}
			}
			return ctx.withClient(func(client *api.Client) error {
				id, err := client.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				if !opts.wait {
					if opts.json {
						return writeJSON(cmd, api.SubmitResponse{JobID: id})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Queued %s\n", id)
					return nil
				}
				job, err := waitForJob(cmd.Context(), client, id, opts.interval)
				if err != nil {
					return err
				}
				if opts.json {
					return writeJSON(cmd, job)
				}
				printJob(cmd.OutOrStdout(), job, shouldColorize(cmd.OutOrStdout()))
				if job.Status == "failed" {
					return fmt.Errorf("job %s failed", job.ID)
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "Read the script from a file (\"-\" for stdin)")
	flags.StringVar(&opts.voice, "voice", "", "TTS voice id")
	flags.StringVar(&opts.language, "language", "", "Speech language tag, e.g. pt-BR")
	flags.Float64Var(&opts.speed, "speed", 0, "Speech speed multiplier (0.5-2.0)")
	flags.StringVar(&opts.emotion, "emotion", "", "Speech emotion (neutral, happy, sad, angry, excited)")
	flags.StringVar(&opts.model, "avatar", "", "Avatar model id")
	flags.StringVar(&opts.style, "style", "", "Avatar style (realistic, cartoon, professional, casual)")
	flags.StringVar(&opts.precision, "precision", "", "Lip-sync precision (low, medium, high, ultra)")
	flags.StringVar(&opts.resolution, "resolution", "", "Output resolution (720p, 1080p, 4K)")
	flags.StringVar(&opts.quality, "quality", "", "Render quality (draft, preview, production, cinema)")
	flags.StringVar(&opts.format, "format", "", "Output container (mp4, webm, mov)")
	flags.IntVar(&opts.frameRate, "fps", 0, "Render frame rate")
	flags.IntVar(&opts.timeoutMs, "timeout-ms", 0, "Job time budget in milliseconds")
	flags.StringToStringVar(&opts.metadata, "meta", nil, "Caller metadata as key=value pairs")
	flags.BoolVarP(&opts.wait, "wait", "w", false, "Wait for the job to finish")
	flags.DurationVar(&opts.interval, "poll", 500*time.Millisecond, "Polling interval used with --wait")
	flags.BoolVar(&opts.json, "json", false, "Output JSON")
	return cmd
}

// partial maps the flags the caller set onto a config fragment.
func (o *submitOptions) partial(cmd *cobra.Command) pipelineconfig.Partial {
	var p pipelineconfig.Partial
	set := cmd.Flags().Changed
	if set("voice") {
		p.TTS.VoiceID = pipelineconfig.Ptr(o.voice)
	}
	if set("language") {
		p.TTS.Language = pipelineconfig.Ptr(o.language)
	}
	if set("speed") {
		p.TTS.Speed = pipelineconfig.Ptr(o.speed)
	}
	if set("emotion") {
		p.TTS.Emotion = pipelineconfig.Ptr(pipelineconfig.Emotion(o.emotion))
	}
	if set("avatar") {
		p.Avatar.Model = pipelineconfig.Ptr(o.model)
	}
	if set("style") {
		p.Avatar.Style = pipelineconfig.Ptr(o.style)
	}
	if set("precision") {
		p.LipSync.Precision = pipelineconfig.Ptr(pipelineconfig.Level(o.precision))
	}
	if set("resolution") {
		p.Rendering.Resolution = pipelineconfig.Ptr(pipelineconfig.Resolution(o.resolution))
	}
	if set("quality") {
		p.Rendering.Quality = pipelineconfig.Ptr(pipelineconfig.Quality(o.quality))
	}
	if set("format") {
		p.Rendering.Format = pipelineconfig.Ptr(pipelineconfig.Format(o.format))
	}
	if set("fps") {
		p.Rendering.FrameRate = pipelineconfig.Ptr(o.frameRate)
	}
	if set("timeout-ms") {
		p.Performance.TimeoutMs = pipelineconfig.Ptr(o.timeoutMs)
	}
	return p
}

func readScript(cmd *cobra.Command, args []string, file string) (string, error) {
	file = strings.TrimSpace(file)
	switch {
	case file == "" && len(args) == 0:
		return "", errors.New("provide the script as arguments or with --file")
	case file != "" && len(args) > 0:
		return "", errors.New("use either script arguments or --file, not both")
	case file == "":
		return strings.Join(args, " "), nil
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read script: %w", err)
		}
		return string(data), nil
	}
}

func waitForJob(ctx context.Context, client *api.Client, id string, interval time.Duration) (api.Job, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := client.Job(ctx, id)
		if err != nil {
			return api.Job{}, err
		}
		if job.Status == "completed" || job.Status == "failed" {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a render job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				job, err := client.Job(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, job)
				}
				printJob(cmd.OutOrStdout(), job, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List render jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				jobs, err := client.Jobs(cmd.Context(), statuses, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, jobs)
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				headers := []string{"ID", "Status", "Progress", "Created", "Detail"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
				fmt.Fprintln(out, renderTable(headers, jobRows(jobs, shouldColorize(out)), aligns))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of jobs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				cancelled, err := client.Cancel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if cancelled {
					fmt.Fprintf(out, "Cancelled %s\n", args[0])
				} else {
					fmt.Fprintf(out, "Job %s already finished\n", args[0])
				}
				return nil
			})
		},
	}
}

func printJob(out io.Writer, job api.Job, colorize bool) {
	for _, line := range renderSectionHeader("Job "+job.ID, colorize) {
		fmt.Fprintln(out, line)
	}
	kind := jobStatusKind(job.Status)
	fmt.Fprintln(out, renderStatusLine("Status", kind, fmt.Sprintf("%s (%d%%)", job.Status, job.Progress), colorize))
	fmt.Fprintln(out, renderStatusLine("Created", statusInfo, formatAge(job.CreatedAt), colorize))
	if job.EstimatedCompletion != "" {
		fmt.Fprintln(out, renderStatusLine("Estimated", statusInfo, job.EstimatedCompletion, colorize))
	}
	if job.Output != nil {
		fmt.Fprintln(out, renderStatusLine("Video", statusOK, job.Output.VideoURL, colorize))
		fmt.Fprintln(out, renderStatusLine("Duration", statusOK, formatMillis(job.Output.DurationMs), colorize))
		fmt.Fprintln(out, renderStatusLine("Size", statusOK, formatBytes(job.Output.FileSize), colorize))
	}
	if job.Error != nil {
		fmt.Fprintln(out, renderStatusLine("Error", statusError,
			fmt.Sprintf("%s at %s: %s", job.Error.Code, job.Error.Stage, job.Error.Message), colorize))
	}
	for _, w := range job.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, fmt.Sprintf("%s: %s", w.Stage, w.Message), colorize))
	}
	if len(job.Metrics.Stages) == 0 {
		return
	}
	rows := make([][]string, 0, len(job.Metrics.Stages))
	for _, st := range job.Metrics.Stages {
		rows = append(rows, []string{st.Stage, formatMillis(st.ElapsedMs), st.Outcome})
	}
	fmt.Fprintln(out, renderTable([]string{"Stage", "Elapsed", "Outcome"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
}
