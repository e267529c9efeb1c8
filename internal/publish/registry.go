package publish

import (
	"strings"
	"sync"

	"log/slog"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// TargetArchive is the built-in target that copies the final video into the
// configured archive directory.
const TargetArchive = "archive"

// Factory constructs a Target from configuration.
type Factory func(cfg *config.Config, logger *slog.Logger) (Target, error)

// Registry maps target names to factories. Use NewRegistry for one preloaded
// with the built-in targets.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry containing the built-in targets.
func NewRegistry() *Registry {
	registry := &Registry{factories: map[string]Factory{}}
	registry.Register(TargetArchive, newArchiveTarget)
	return registry
}

// Register adds or replaces the factory for a target name.
func (r *Registry) Register(name string, factory Factory) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || factory == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Resolve instantiates the named targets. Unknown names are skipped with a
// warning so one stale config entry does not block the remaining targets;
// factory errors abort resolution because the named target was requested but
// cannot work.
func (r *Registry) Resolve(cfg *config.Config, logger *slog.Logger, names []string) ([]Target, error) {
	log := logging.NewComponentLogger(logger, "publish")
	targets := make([]Target, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		r.mu.RLock()
		factory, ok := r.factories[name]
		r.mu.RUnlock()
		if !ok {
			log.Warn("unknown publish target, skipping", logging.String("target", name))
			continue
		}
		target, err := factory(cfg, logger)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// NewFromConfig builds a Publisher with the built-in registry and the targets
// selected in the publish config section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Publisher, error) {
	targets, err := NewRegistry().Resolve(cfg, logger, cfg.Publish.Targets)
	if err != nil {
		return nil, err
	}
	return NewPublisher(logger, targets...), nil
}

func newArchiveTarget(cfg *config.Config, logger *slog.Logger) (Target, error) {
	if strings.TrimSpace(cfg.Publish.ArchiveDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, services.StagePublish, TargetArchive, "archive_dir is not set", nil)
	}
	return NewDirectoryTarget(logger, TargetArchive, cfg.Publish.ArchiveDir, cfg.Publish.FilenameTemplate), nil
}
