package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"avatarstudio/internal/config"
	"avatarstudio/internal/daemon"
	"avatarstudio/internal/engines"
	"avatarstudio/internal/logging"
	"avatarstudio/internal/queue"
	"avatarstudio/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the render daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg.Paths.APIBind = ctx.apiAddress(cfg)
			return runDaemonProcess(cmd.Context(), cfg)
		},
	}
}

func runDaemonProcess(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	registry, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open job registry", logging.Error(err))
		return err
	}

	manager := workflow.NewManager(cfg, workflow.Options{
		Registry:  registry,
		Executors: engines.New(cfg, logger),
		Logger:    logger,
	})

	d, err := daemon.New(cfg, registry, logger, manager)
	if err != nil {
		registry.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("avatarstudio daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}
