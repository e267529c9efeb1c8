package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
)

// Stage renders one queued run: it reads the clips the scrape stage collected
// and drives the pipeline to the final output file.
type Stage struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	notifier     notifications.Service
	pipelineOpts []Option
}

// NewStage builds the render stage. Extra pipeline options (fake engines,
// probes) are appended after the config-derived ones, so tests win.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, opts ...Option) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "render"),
		notifier:     notifier,
		pipelineOpts: opts,
	}
}

// SetLogger swaps in a request-scoped logger for the next execution.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Prepare verifies the run has collected clips to render.
func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	clips, err := collectedClips(s.clipsDir(item))
	if err != nil {
		return services.Wrap(services.ErrValidation, services.StageRender, "prepare", "read collected clips", err)
	}
	if len(clips) == 0 {
		return services.Wrap(services.ErrValidation, services.StageRender, "prepare", "no collected clips to render", ErrNoInput)
	}
	item.SetProgress("Rendering", "render queued", 0)
	return nil
}

// Execute runs the pipeline for the item and records the final output path.
func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	clips, err := collectedClips(s.clipsDir(item))
	if err != nil {
		return services.Wrap(services.ErrValidation, services.StageRender, "execute", "read collected clips", err)
	}

	outputPath := strings.TrimSpace(item.OutputPath)
	if outputPath == "" {
		outputPath = filepath.Join(s.cfg.Paths.OutputDir,
			fmt.Sprintf("compilation_%s.mp4", strings.ToLower(item.RunID)))
	}

	job := NewJobFromConfig(s.cfg, clips, outputPath)
	job.StagingDir = item.StagingRoot(s.cfg.Paths.StagingDir)

	if s.notifier != nil {
		if err := s.notifier.NotifyRenderStarted(ctx, item.Label(), len(clips)); err != nil {
			s.logger.Debug("render start notification failed", logging.Error(err))
		}
	}

	opts := append([]Option{WithProgress(func(update ProgressUpdate) {
		item.SetProgress("Rendering", update.Message, update.Percent)
		if s.store != nil {
			if err := s.store.Update(ctx, item); err != nil {
				s.logger.Debug("progress update not persisted", logging.Error(err))
			}
		}
	})}, s.pipelineOpts...)

	start := time.Now()
	pipeline := NewFromConfig(s.cfg, s.logger, opts...)
	finalPath, err := pipeline.Render(ctx, job)
	if err != nil {
		return err
	}

	item.FinalPath = finalPath
	item.OutputPath = finalPath
	item.SetProgressComplete("Rendering", "render complete")

	var size int64
	if info, statErr := os.Stat(finalPath); statErr == nil {
		size = info.Size()
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyRenderCompleted(ctx, item.Label(), finalPath, size, time.Since(start)); err != nil {
			s.logger.Debug("render completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck reports whether the external tools the pipeline shells out to
// are available.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "render"
	for _, status := range deps.CheckBinaries(ctx, deps.Requirements(s.cfg)) {
		if !status.Available {
			return stage.Unhealthy(name, fmt.Sprintf("%s: %s", status.Name, status.Detail))
		}
	}
	return stage.Healthy(name)
}

func (s *Stage) clipsDir(item *queue.Item) string {
	return item.CollectDir(s.cfg.Paths.StagingDir)
}

// collectedClips lists the video files staged for this run in lexical order.
// The scrape stage prefixes staged clips with their sequence number, so
// lexical order is collection order.
func collectedClips(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	clips := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		clips = append(clips, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(clips)
	return clips, nil
}

var _ stage.Handler = (*Stage)(nil)
