package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/publish"
	"clipforge/internal/queue"
	"clipforge/internal/render"
	"clipforge/internal/scrape"
	"clipforge/internal/stage"
	"clipforge/internal/stageexec"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var sourceDirFlag string
	var maxClipsFlag int
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape, render, and publish one compilation",
		Long: `Run executes the full scrape, render, and publish pipeline once. When the
daemon is running the job is queued with it instead, so one process owns the
queue at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if client := ctx.daemonClient(cmd.Context()); client != nil {
				item, err := client.Enqueue(cmd.Context(), api.EnqueueRequest{
					SourceDir:  sourceDirFlag,
					MaxClips:   maxClipsFlag,
					OutputPath: outputFlag,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Daemon is running; queued item %d (run %s)\n", item.ID, item.RunID)
				return nil
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			item, err := store.NewItem(cmd.Context(), queue.NewItemRequest{
				SourceDir:  sourceDirFlag,
				MaxClips:   maxClipsFlag,
				OutputPath: outputFlag,
			})
			if err != nil {
				return err
			}

			if err := runPipelineOnce(cmd.Context(), cfg, store, logger, item); err != nil {
				return err
			}

			fmt.Fprintf(out, "Completed run %s\n", item.RunID)
			if item.FinalPath != "" {
				fmt.Fprintf(out, "Output: %s%s\n", item.FinalPath, fileSizeSuffix(item.FinalPath))
			}
			if item.PublishedTargets != "" {
				fmt.Fprintf(out, "Published to: %s\n", item.PublishedTargets)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDirFlag, "source-dir", "", "Directory to collect clips from")
	cmd.Flags().IntVar(&maxClipsFlag, "max-clips", 0, "Maximum clips to include (0 uses the configured default)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file path")

	return cmd
}

// runPipelineOnce drives one item through the same stage transitions the
// daemon workflow applies, minus the polling and heartbeats.
func runPipelineOnce(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger, item *queue.Item) error {
	notifier := notifications.NewService(cfg)

	scrapeStage, err := scrape.NewStage(cfg, store, logger)
	if err != nil {
		return err
	}

	stages := []struct {
		name       string
		handler    stage.Handler
		processing queue.Status
		done       queue.Status
	}{
		{"scrape", scrapeStage, queue.StatusScraping, queue.StatusRendering},
		{"render", render.NewStage(cfg, store, logger, notifier), queue.StatusRendering, queue.StatusPublishing},
		{"publish", publish.NewStage(cfg, store, logger, notifier), queue.StatusPublishing, queue.StatusCompleted},
	}

	for _, s := range stages {
		err := stageexec.Run(ctx, stageexec.Options{
			Logger:     logger,
			Store:      store,
			Notifier:   notifier,
			Handler:    s.handler,
			StageName:  s.name,
			Processing: s.processing,
			Done:       s.done,
			Item:       item,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
