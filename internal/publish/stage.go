package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
)

// Stage delivers the finished compilation to the configured targets and then
// sweeps the run's staging artifacts. It is the last stage of the workflow.
type Stage struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	registry *Registry
}

// NewStage builds the publish stage with the built-in target registry.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Stage {
	return NewStageWithRegistry(cfg, store, logger, notifier, NewRegistry())
}

// NewStageWithRegistry builds the publish stage around an explicit registry
// so tests and extensions can supply their own targets.
func NewStageWithRegistry(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, registry *Registry) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Stage{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "publish"),
		notifier: notifier,
		registry: registry,
	}
}

// SetLogger swaps in a request-scoped logger for the next execution.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Prepare verifies the render stage produced a deliverable file.
func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	finalPath := strings.TrimSpace(item.FinalPath)
	if finalPath == "" {
		return services.Wrap(services.ErrValidation, services.StagePublish, "prepare", "run has no rendered output", nil)
	}
	if _, err := os.Stat(finalPath); err != nil {
		return services.Wrap(services.ErrValidation, services.StagePublish, "prepare", finalPath, err)
	}
	item.SetProgress("Publishing", "delivering to targets", 0)
	return nil
}

// Execute fans the finished file out to every target and cleans up the run's
// staging directory. Cleanup failures are logged, never escalated.
func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	targets, err := s.registry.Resolve(s.cfg, s.logger, s.targetNames(item))
	if err != nil {
		return err
	}
	publisher := NewPublisher(s.logger, targets...)

	report, err := publisher.PublishAll(ctx, item.FinalPath, BuildMetadata(s.cfg, time.Now()))
	item.PublishedTargets = strings.Join(report.Published, ",")
	if err != nil {
		return err
	}

	item.SetProgressComplete("Publishing", publishSummary(report.Published))
	if s.notifier != nil {
		if notifyErr := s.notifier.NotifyPublishCompleted(ctx, item.Label(), report.Published); notifyErr != nil {
			s.logger.Debug("publish notification failed", logging.Error(notifyErr))
		}
	}

	s.cleanupRun(item)
	return nil
}

// HealthCheck reports whether every configured target can be instantiated.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "publish"
	if _, err := s.registry.Resolve(s.cfg, s.logger, s.cfg.Publish.Targets); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// targetNames resolves the targets for this run: a scheduler job may select
// its own subset, otherwise the global publish config applies.
func (s *Stage) targetNames(item *queue.Item) []string {
	schedule := strings.TrimSpace(item.Schedule)
	if schedule != "" {
		for _, job := range s.cfg.Scheduler.Jobs {
			if job.Name == schedule && len(job.Targets) > 0 {
				return job.Targets
			}
		}
	}
	return s.cfg.Publish.Targets
}

// cleanupRun removes the run's staging tree and sweeps stale render temps
// from the shared staging directory. Best effort only; the run already
// succeeded.
func (s *Stage) cleanupRun(item *queue.Item) {
	root := item.StagingRoot(s.cfg.Paths.StagingDir)
	if root != "" {
		if err := os.RemoveAll(root); err != nil {
			s.logger.Warn("could not remove run staging directory",
				logging.String("path", root),
				logging.Error(err))
		}
	}

	report, err := fileutil.Sweep(s.cfg.Paths.StagingDir, fileutil.SweepOptions{
		Prefixes: []string{"segment_", "concat_"},
	})
	if err != nil {
		s.logger.Warn("staging sweep failed", logging.Error(err))
		return
	}
	for path, sweepErr := range report.Failed {
		s.logger.Warn("could not sweep stale temp file",
			logging.String("path", path),
			logging.Error(sweepErr))
	}
	if len(report.Removed) > 0 {
		s.logger.Debug("swept stale temp files", logging.Int("count", len(report.Removed)))
	}
}

func publishSummary(published []string) string {
	if len(published) == 0 {
		return "no publish targets configured"
	}
	return fmt.Sprintf("published to %s", strings.Join(published, ", "))
}

var _ stage.Handler = (*Stage)(nil)
