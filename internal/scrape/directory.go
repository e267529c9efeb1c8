package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".m4v":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
	".avi":  {},
}

// DirectorySource collects clips from a local drop folder, oldest first. The
// files are copied into the run's collect directory so the originals stay
// untouched and a failed run can simply be retried.
type DirectorySource struct {
	dir    string
	logger *slog.Logger
}

// NewDirectorySource builds a source reading from dir.
func NewDirectorySource(logger *slog.Logger, dir string) *DirectorySource {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DirectorySource{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "scrape"),
	}
}

type dropEntry struct {
	path    string
	modTime time.Time
}

// Collect copies up to maxClips video files from the drop folder into
// destDir, ordered oldest first. Zero maxClips means no cap. Files that
// cannot be copied are skipped with a warning.
func (s *DirectorySource) Collect(ctx context.Context, destDir string, maxClips int) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, services.StageScrape, "collect", "read clip directory", err)
	}

	candidates := make([]dropEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := videoExtensions[ext]; !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("skipping unreadable entry",
				logging.String("name", entry.Name()),
				logging.Error(err))
			continue
		}
		candidates = append(candidates, dropEntry{
			path:    filepath.Join(s.dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].path < candidates[j].path
		}
		return candidates[i].modTime.Before(candidates[j].modTime)
	})
	if maxClips > 0 && len(candidates) > maxClips {
		candidates = candidates[:maxClips]
	}

	if err := fileutil.EnsureDir(destDir); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, services.StageScrape, "collect", "create collect directory", err)
	}

	clips := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return clips, err
		}
		// The sequence prefix keeps lexical order equal to collection
		// order for the render stage.
		dest := filepath.Join(destDir, fileutil.UniqueName(fmt.Sprintf("clip_%03d", len(clips)), filepath.Ext(candidate.path)))
		if err := fileutil.CopyFile(candidate.path, dest); err != nil {
			s.logger.Warn("skipping clip that could not be copied",
				logging.String("source", candidate.path),
				logging.Error(err))
			continue
		}
		clips = append(clips, dest)
	}

	s.logger.Info("clips collected from directory",
		logging.String("dir", s.dir),
		logging.Int("found", len(candidates)),
		logging.Int("collected", len(clips)))
	return clips, nil
}

var _ Source = (*DirectorySource)(nil)
