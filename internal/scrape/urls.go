package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"clipforge/internal/logging"
)

// URLListSource downloads a configured list of clip URLs in order. A failed
// download is skipped with a warning rather than aborting the run, mirroring
// how a missing local clip is handled later during assembly.
type URLListSource struct {
	urls       []string
	downloader *Downloader
	logger     *slog.Logger
}

// NewURLListSource builds a source that fetches the given URLs.
func NewURLListSource(logger *slog.Logger, urls []string, downloader *Downloader) *URLListSource {
	if logger == nil {
		logger = logging.NewNop()
	}
	if downloader == nil {
		downloader = NewDownloader(logger)
	}
	return &URLListSource{
		urls:       urls,
		downloader: downloader,
		logger:     logging.NewComponentLogger(logger, "scrape"),
	}
}

// Collect downloads up to maxClips URLs into destDir. Zero maxClips means
// no cap.
func (s *URLListSource) Collect(ctx context.Context, destDir string, maxClips int) ([]string, error) {
	clips := make([]string, 0, len(s.urls))
	skipped := 0
	for _, clipURL := range s.urls {
		if maxClips > 0 && len(clips) >= maxClips {
			break
		}
		path, err := s.downloader.Download(ctx, clipURL, destDir)
		if err != nil {
			if ctx.Err() != nil {
				return clips, ctx.Err()
			}
			s.logger.Warn("skipping failed download",
				logging.String("url", clipURL),
				logging.Error(err))
			skipped++
			continue
		}
		// Sequence prefix keeps lexical order in the collect directory
		// equal to the configured URL order.
		ordered := filepath.Join(destDir, fmt.Sprintf("clip_%03d_%s", len(clips), filepath.Base(path)))
		if err := os.Rename(path, ordered); err == nil {
			path = ordered
		}
		clips = append(clips, path)
	}

	s.logger.Info("clips collected from url list",
		logging.Int("collected", len(clips)),
		logging.Int("skipped", skipped))
	return clips, nil
}

var _ Source = (*URLListSource)(nil)
