package publish

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

const defaultFilenameTemplate = "final_20060102_150405.mp4"

// DirectoryTarget copies the finished video into a local directory. The
// destination filename comes from a time layout template whose extension is
// carried over verbatim, so "final_20060102_150405.mp4" yields names like
// "final_20240305_093015.mp4". It backs the built-in archive target.
type DirectoryTarget struct {
	logger   *slog.Logger
	name     string
	dir      string
	template string
	now      func() time.Time
}

// NewDirectoryTarget builds a directory target that archives under dir using
// the given filename template. An empty template falls back to the default.
func NewDirectoryTarget(logger *slog.Logger, name, dir, template string) *DirectoryTarget {
	if strings.TrimSpace(template) == "" {
		template = defaultFilenameTemplate
	}
	return &DirectoryTarget{
		logger:   logging.NewComponentLogger(logger, "publish"),
		name:     name,
		dir:      strings.TrimSpace(dir),
		template: template,
		now:      time.Now,
	}
}

// Name identifies the target in reports and queue records.
func (t *DirectoryTarget) Name() string {
	return t.name
}

// Publish copies the video into the destination directory, creating it when
// missing. The copy is verified by size before the target reports success.
func (t *DirectoryTarget) Publish(ctx context.Context, path string, meta Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.dir == "" {
		return services.Wrap(services.ErrConfiguration, services.StagePublish, t.name, "destination directory not configured", nil)
	}
	if err := fileutil.EnsureDir(t.dir); err != nil {
		return services.Wrap(services.ErrConfiguration, services.StagePublish, t.name, "create destination directory", err)
	}
	destination := filepath.Join(t.dir, t.destinationName(t.now()))
	if err := fileutil.CopyFileVerified(path, destination); err != nil {
		return services.Wrap(services.ErrTransient, services.StagePublish, t.name, fmt.Sprintf("copy to %s", destination), err)
	}
	t.logger.Info(
		"archived final video",
		logging.String("target", t.name),
		logging.String("destination", destination),
		logging.String("title", meta.Title),
	)
	return nil
}

// destinationName formats the template stem as a time layout and re-attaches
// the extension untouched, keeping digits in suffixes like ".mp4" out of the
// layout interpretation.
func (t *DirectoryTarget) destinationName(at time.Time) string {
	ext := filepath.Ext(t.template)
	stem := strings.TrimSuffix(t.template, ext)
	return at.Format(stem) + ext
}
