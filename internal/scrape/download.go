package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

const (
	defaultDownloadTimeout = 60 * time.Second
	defaultMaxRetries      = 3
	defaultRetryDelay      = 5 * time.Second
)

// Downloader fetches remote media files into a local directory. Transient
// failures (network errors, 5xx, 408, 429) are retried with exponential
// backoff; permanent failures abort immediately. Partial files never
// survive a failed attempt.
type Downloader struct {
	client     *http.Client
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithHTTPClient substitutes the HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithHTTPTimeout bounds each download attempt.
func WithHTTPTimeout(timeout time.Duration) DownloaderOption {
	return func(d *Downloader) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

// WithRetries sets the attempt budget and the base backoff delay.
func WithRetries(retries int, delay time.Duration) DownloaderOption {
	return func(d *Downloader) {
		if retries > 0 {
			d.maxRetries = retries
		}
		if delay > 0 {
			d.retryDelay = delay
		}
	}
}

// NewDownloader builds a downloader with default timeout and retry budget.
func NewDownloader(logger *slog.Logger, opts ...DownloaderOption) *Downloader {
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Downloader{
		client:     &http.Client{Timeout: defaultDownloadTimeout},
		logger:     logging.NewComponentLogger(logger, "scrape"),
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches rawURL into destDir under a collision-safe name and
// returns the local path. The error is tagged services.ErrTransient when
// every retry was exhausted on a retryable failure.
func (d *Downloader) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	if err := fileutil.EnsureDir(destDir); err != nil {
		return "", services.Wrap(services.ErrConfiguration, services.StageScrape, "download", "create directory", err)
	}
	target := filepath.Join(destDir, fileutil.UniqueName("clip", downloadExtension(rawURL)))

	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		err := d.fetch(ctx, rawURL, target)
		if err == nil {
			return target, nil
		}
		_ = os.Remove(target)

		var statusErr *httpStatusError
		if errors.As(err, &statusErr) && !statusErr.transient() {
			return "", fmt.Errorf("download %s: %w", rawURL, err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastErr = err
		if attempt == d.maxRetries {
			break
		}
		wait := d.retryDelay * time.Duration(1<<(attempt-1))
		d.logger.Warn("download failed, retrying",
			logging.String("url", rawURL),
			logging.Int("attempt", attempt),
			logging.Duration("wait", wait),
			logging.Error(err))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", services.Wrap(services.ErrTransient, services.StageScrape, "download", rawURL, lastErr)
}

func (d *Downloader) fetch(ctx context.Context, rawURL, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &httpStatusError{status: 0, cause: err}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpStatusError{status: resp.StatusCode}
	}

	file, err := os.Create(target)
	if err != nil {
		return err
	}
	written, err := io.Copy(file, resp.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	d.logger.Info("download complete",
		logging.String("url", rawURL),
		logging.Int64("bytes", written),
		logging.String("path", filepath.Base(target)))
	return nil
}

// httpStatusError distinguishes permanent HTTP failures from retryable ones.
// A zero status marks an unusable request, which is never retried.
type httpStatusError struct {
	status int
	cause  error
}

func (e *httpStatusError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("build request: %v", e.cause)
	}
	return fmt.Sprintf("http status %d", e.status)
}

func (e *httpStatusError) Unwrap() error { return e.cause }

func (e *httpStatusError) transient() bool {
	switch {
	case e.status >= 500:
		return true
	case e.status == http.StatusRequestTimeout, e.status == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// downloadExtension picks the local extension from the URL path, defaulting
// to .mp4 when it has none or an unknown one.
func downloadExtension(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ".mp4"
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if _, ok := videoExtensions[ext]; ok {
		return ext
	}
	return ".mp4"
}
