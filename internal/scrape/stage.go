package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
)

// Stage collects clips for one queued run. It is the first stage of the
// workflow: pending items enter here and leave with a populated collect
// directory and clip count.
type Stage struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	source Source
}

// NewStage builds the scrape stage with the source selected in config.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Stage, error) {
	source, err := NewFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewStageWithSource(cfg, store, logger, source), nil
}

// NewStageWithSource builds the scrape stage around an explicit source,
// primarily for tests.
func NewStageWithSource(cfg *config.Config, store *queue.Store, logger *slog.Logger, source Source) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "scrape"),
		source: source,
	}
}

// SetLogger swaps in a request-scoped logger for the next execution.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Prepare creates the run's staging layout and seeds progress fields.
func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	root := item.StagingRoot(s.cfg.Paths.StagingDir)
	if strings.TrimSpace(root) == "" {
		return services.Wrap(services.ErrConfiguration, services.StageScrape, "prepare", "staging directory not configured", nil)
	}
	if err := fileutil.EnsureDir(item.CollectDir(s.cfg.Paths.StagingDir)); err != nil {
		return services.Wrap(services.ErrConfiguration, services.StageScrape, "prepare", "create staging directories", err)
	}
	item.SetProgress("Scraping", "collecting clips", 0)
	return nil
}

// Execute collects clips into the run's collect directory. An empty result is
// a validation error; the run aborts before any render work starts.
func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	destDir := item.CollectDir(s.cfg.Paths.StagingDir)

	source := s.source
	if override := strings.TrimSpace(item.SourceDir); override != "" {
		source = NewDirectorySource(s.logger, override)
	}

	maxClips := item.MaxClips
	if maxClips <= 0 {
		maxClips = s.cfg.Scrape.MaxClips
	}

	clips, err := source.Collect(ctx, destDir, maxClips)
	if err != nil {
		return err
	}
	if len(clips) == 0 {
		return services.Wrap(services.ErrValidation, services.StageScrape, "collect", "no clips collected; nothing to render", nil)
	}

	item.ClipCount = len(clips)
	item.SetProgressComplete("Scraping", fmt.Sprintf("collected %d clips", len(clips)))
	s.logger.Info("scrape complete",
		logging.Int64("item_id", item.ID),
		logging.Int("clips", len(clips)))
	return nil
}

// HealthCheck reports whether the configured source can plausibly deliver
// clips.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "scrape"
	switch s.cfg.Scrape.Source {
	case "", "directory":
		dir := strings.TrimSpace(s.cfg.Scrape.Directory)
		if dir == "" {
			return stage.Unhealthy(name, "scrape.directory is not set")
		}
		info, err := os.Stat(dir)
		if err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("clip directory %s unavailable: %v", dir, err))
		}
		if !info.IsDir() {
			return stage.Unhealthy(name, fmt.Sprintf("%s is not a directory", dir))
		}
	case "urls":
		if len(s.cfg.Scrape.URLs) == 0 {
			return stage.Unhealthy(name, "scrape.urls is empty")
		}
	}
	return stage.Healthy(name)
}

var _ stage.Handler = (*Stage)(nil)
