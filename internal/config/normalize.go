package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeRender(); err != nil {
		return err
	}
	if err := c.normalizeScrape(); err != nil {
		return err
	}
	c.normalizePublish()
	c.normalizeScheduler()
	c.normalizeNotifications()
	c.normalizeLogging()
	c.normalizeAPI()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() error {
	var err error
	c.Render.Preset = strings.ToLower(strings.TrimSpace(c.Render.Preset))
	if c.Render.Preset == "" {
		c.Render.Preset = defaultPreset
	}
	c.Render.PixelFormat = strings.TrimSpace(c.Render.PixelFormat)
	if c.Render.PixelFormat == "" {
		c.Render.PixelFormat = defaultPixelFormat
	}
	c.Render.VideoBitrate = strings.TrimSpace(c.Render.VideoBitrate)
	if c.Render.VideoBitrate == "" {
		c.Render.VideoBitrate = defaultVideoBitrate
	}
	c.Render.AudioBitrate = strings.TrimSpace(c.Render.AudioBitrate)
	if c.Render.AudioBitrate == "" {
		c.Render.AudioBitrate = defaultAudioBitrate
	}
	c.Render.PaddingColor = strings.ToLower(strings.TrimSpace(c.Render.PaddingColor))
	if c.Render.PaddingColor == "" {
		c.Render.PaddingColor = defaultPaddingColor
	}
	if c.Render.FPS <= 0 {
		c.Render.FPS = defaultFPS
	}
	if c.Render.IntroPath, err = expandPath(strings.TrimSpace(c.Render.IntroPath)); err != nil {
		return fmt.Errorf("render.intro_path: %w", err)
	}
	if c.Render.OutroPath, err = expandPath(strings.TrimSpace(c.Render.OutroPath)); err != nil {
		return fmt.Errorf("render.outro_path: %w", err)
	}

	c.Render.Watermark.Position = strings.ToLower(strings.TrimSpace(c.Render.Watermark.Position))
	if c.Render.Watermark.Position == "" {
		c.Render.Watermark.Position = defaultWatermarkPosition
	}
	if c.Render.Watermark.Margin <= 0 {
		c.Render.Watermark.Margin = defaultWatermarkMargin
	}
	if c.Render.Watermark.Path, err = expandPath(strings.TrimSpace(c.Render.Watermark.Path)); err != nil {
		return fmt.Errorf("render.watermark.path: %w", err)
	}

	if c.Render.Music.Path, err = expandPath(strings.TrimSpace(c.Render.Music.Path)); err != nil {
		return fmt.Errorf("render.music.path: %w", err)
	}

	if c.Render.Loudness == (Loudness{}) {
		c.Render.Loudness = Loudness{
			IntegratedLUFS: defaultLoudnessIntegrated,
			TruePeakDB:     defaultLoudnessTruePeak,
			RangeLU:        defaultLoudnessRange,
		}
	}
	return nil
}

func (c *Config) normalizeScrape() error {
	var err error
	c.Scrape.Source = strings.ToLower(strings.TrimSpace(c.Scrape.Source))
	if c.Scrape.Source == "" {
		c.Scrape.Source = defaultScrapeSource
	}
	if c.Scrape.Directory, err = expandPath(strings.TrimSpace(c.Scrape.Directory)); err != nil {
		return fmt.Errorf("scrape.directory: %w", err)
	}
	urls := make([]string, 0, len(c.Scrape.URLs))
	for _, raw := range c.Scrape.URLs {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	c.Scrape.URLs = urls
	if c.Scrape.MaxClips <= 0 {
		c.Scrape.MaxClips = defaultMaxClips
	}
	if c.Scrape.DownloadTimeout <= 0 {
		c.Scrape.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Scrape.DownloadRetries <= 0 {
		c.Scrape.DownloadRetries = defaultDownloadRetries
	}
	if c.Scrape.RetryDelay <= 0 {
		c.Scrape.RetryDelay = defaultRetryDelay
	}
	return nil
}

func (c *Config) normalizePublish() {
	targets := make([]string, 0, len(c.Publish.Targets))
	seen := make(map[string]struct{}, len(c.Publish.Targets))
	for _, raw := range c.Publish.Targets {
		normalized := strings.ToLower(strings.TrimSpace(raw))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		targets = append(targets, normalized)
	}
	c.Publish.Targets = targets
	if expanded, err := expandPath(strings.TrimSpace(c.Publish.ArchiveDir)); err == nil {
		c.Publish.ArchiveDir = expanded
	}
	c.Publish.FilenameTemplate = strings.TrimSpace(c.Publish.FilenameTemplate)
	if c.Publish.FilenameTemplate == "" {
		c.Publish.FilenameTemplate = defaultFilenameTemplate
	}
	c.Publish.TitleTemplate = strings.TrimSpace(c.Publish.TitleTemplate)
	if c.Publish.TitleTemplate == "" {
		c.Publish.TitleTemplate = defaultTitleTemplate
	}
}

func (c *Config) normalizeScheduler() {
	c.Scheduler.Timezone = strings.TrimSpace(c.Scheduler.Timezone)
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "Local"
	}
	jobs := make([]SchedulerJob, 0, len(c.Scheduler.Jobs))
	for _, job := range c.Scheduler.Jobs {
		job.Name = strings.TrimSpace(job.Name)
		job.Cron = strings.TrimSpace(job.Cron)
		if job.MaxClips <= 0 {
			job.MaxClips = c.Scrape.MaxClips
		}
		if len(job.Targets) == 0 {
			job.Targets = append([]string{}, c.Publish.Targets...)
		}
		jobs = append(jobs, job)
	}
	c.Scheduler.Jobs = jobs
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyURL = strings.TrimRight(strings.TrimSpace(c.Notifications.NtfyURL), "/")
	if c.Notifications.NtfyURL == "" {
		c.Notifications.NtfyURL = defaultNtfyURL
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CLIPFORGE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.BufferLines <= 0 {
		c.Logging.BufferLines = defaultBufferLines
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
}
