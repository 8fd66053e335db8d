// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/mediaplace/payments/cmd/app/commands"
	"github.com/mediaplace/payments/internal/app"
	"github.com/mediaplace/payments/internal/config"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "app",
		Usage:   "Payment event reliability engine",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "retry-worker",
				Usage: "Start the background retry worker",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRetryWorker(ctx)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "reprocess-dead-letter",
				Usage: "Reset a dead-lettered retry session for a new attempt",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Retry session ID to reprocess",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					defer func() { _ = container.Shutdown(ctx) }()

					scheduler, err := container.RetryScheduler()
					if err != nil {
						return err
					}

					return commands.RunReprocessDeadLetter(
						ctx,
						scheduler,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("id"),
					)
				},
			},
			{
				Name:  "delete-dead-letter",
				Usage: "Delete a dead-lettered retry session",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Retry session ID to delete",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					defer func() { _ = container.Shutdown(ctx) }()

					scheduler, err := container.RetryScheduler()
					if err != nil {
						return err
					}

					return commands.RunDeleteDeadLetter(
						ctx,
						scheduler,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("id"),
					)
				},
			},
			{
				Name:  "clean-webhook-events",
				Usage: "Delete webhook ledger entries older than specified days",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "days",
						Aliases:  []string{"d"},
						Required: true,
						Usage:    "Delete webhook events older than this many days",
					},
					&cli.BoolFlag{
						Name:    "dry-run",
						Aliases: []string{"n"},
						Value:   false,
						Usage:   "Show how many events would be deleted without deleting",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					defer func() { _ = container.Shutdown(ctx) }()

					eventRepo, err := container.WebhookEventRepository()
					if err != nil {
						return err
					}

					return commands.RunCleanWebhookEvents(
						ctx,
						eventRepo,
						container.Logger(),
						commands.DefaultIO().Writer,
						int(cmd.Int("days")),
						cmd.Bool("dry-run"),
						cmd.String("format"),
					)
				},
			},
			{
				Name:  "clean-retry-sessions",
				Usage: "Delete terminal retry sessions older than specified days",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "days",
						Aliases:  []string{"d"},
						Required: true,
						Usage:    "Delete terminal sessions older than this many days",
					},
					&cli.BoolFlag{
						Name:    "dry-run",
						Aliases: []string{"n"},
						Value:   false,
						Usage:   "Show how many sessions would be deleted without deleting",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					defer func() { _ = container.Shutdown(ctx) }()

					scheduler, err := container.RetryScheduler()
					if err != nil {
						return err
					}

					return commands.RunCleanRetrySessions(
						ctx,
						scheduler,
						container.Logger(),
						commands.DefaultIO().Writer,
						int(cmd.Int("days")),
						cmd.Bool("dry-run"),
						cmd.String("format"),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
