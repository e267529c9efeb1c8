package publish

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"log/slog"

	"golang.org/x/sync/errgroup"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Metadata carries the descriptive fields a target attaches to a published video.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
}

// Target delivers a finished video to one destination. Implementations must
// be safe for concurrent use; PublishAll fans out to every target at once.
type Target interface {
	Name() string
	Publish(ctx context.Context, path string, meta Metadata) error
}

// Report records the outcome of a fan-out per target.
type Report struct {
	Published []string
	Failed    map[string]error
}

// Publisher drives the configured targets for a finished render.
type Publisher struct {
	logger  *slog.Logger
	targets []Target
}

// NewPublisher builds a Publisher over the given targets.
func NewPublisher(logger *slog.Logger, targets ...Target) *Publisher {
	return &Publisher{
		logger:  logging.NewComponentLogger(logger, "publish"),
		targets: targets,
	}
}

// Targets returns the names of the configured targets in registration order.
func (p *Publisher) Targets() []string {
	names := make([]string, 0, len(p.targets))
	for _, target := range p.targets {
		names = append(names, target.Name())
	}
	return names
}

// PublishAll sends the finished video to every target concurrently. Every
// target is attempted even when others fail; the report records each outcome
// and the returned error names the targets that did not accept the video.
func (p *Publisher) PublishAll(ctx context.Context, path string, meta Metadata) (Report, error) {
	report := Report{Failed: map[string]error{}}
	if len(p.targets) == 0 {
		p.logger.Info("no publish targets configured")
		return report, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return report, services.Wrap(services.ErrValidation, services.StagePublish, "validate", path, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return report, services.Wrap(services.ErrValidation, services.StagePublish, "validate", fmt.Sprintf("%s is not a publishable video", path), nil)
	}

	var (
		mu  sync.Mutex
		grp errgroup.Group
	)
	for _, target := range p.targets {
		target := target
		grp.Go(func() error {
			name := target.Name()
			p.logger.Info("publishing", logging.String("target", name), logging.String("path", path))
			if err := target.Publish(ctx, path, meta); err != nil {
				p.logger.Error("publish target failed", logging.String("target", name), logging.Error(err))
				mu.Lock()
				report.Failed[name] = err
				mu.Unlock()
				return err
			}
			p.logger.Info("publish target completed", logging.String("target", name))
			mu.Lock()
			report.Published = append(report.Published, name)
			mu.Unlock()
			return nil
		})
	}
	firstErr := grp.Wait()
	slices.Sort(report.Published)

	if len(report.Failed) > 0 {
		names := make([]string, 0, len(report.Failed))
		for name := range report.Failed {
			names = append(names, name)
		}
		slices.Sort(names)
		return report, services.Wrap(
			services.ErrTransient,
			services.StagePublish,
			"deliver",
			fmt.Sprintf("%d of %d targets failed (%s)", len(names), len(p.targets), strings.Join(names, ", ")),
			firstErr,
		)
	}
	return report, nil
}
