package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

// Source produces local clip files for one pipeline run. Implementations
// place the clips under destDir and return their paths in render order. A
// short result is not an error; the caller decides whether an empty list
// aborts the run.
type Source interface {
	Collect(ctx context.Context, destDir string, maxClips int) ([]string, error)
}

// NewFromConfig builds the configured clip source.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (Source, error) {
	switch cfg.Scrape.Source {
	case "", "directory":
		return NewDirectorySource(logger, cfg.Scrape.Directory), nil
	case "urls":
		downloader := NewDownloader(logger,
			WithHTTPTimeout(time.Duration(cfg.Scrape.DownloadTimeout)*time.Second),
			WithRetries(cfg.Scrape.DownloadRetries, time.Duration(cfg.Scrape.RetryDelay)*time.Second))
		return NewURLListSource(logger, cfg.Scrape.URLs, downloader), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, services.StageScrape, "source",
			fmt.Sprintf("unknown scrape source %q", cfg.Scrape.Source), nil)
	}
}
