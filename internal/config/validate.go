package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var allowedPresets = map[string]struct{}{
	"ultrafast": {},
	"superfast": {},
	"veryfast":  {},
	"faster":    {},
	"fast":      {},
	"medium":    {},
	"slow":      {},
	"slower":    {},
	"veryslow":  {},
}

var allowedWatermarkPositions = map[string]struct{}{
	"top-left":     {},
	"top-right":    {},
	"bottom-left":  {},
	"bottom-right": {},
	"center":       {},
}

var bitratePattern = regexp.MustCompile(`^[0-9]+[kKmM]?$`)

// Validate ensures the configuration is usable. Ranges are checked once here
// so stage code can trust the values it receives.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateScrape(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRender() error {
	if _, ok := allowedPresets[c.Render.Preset]; !ok {
		return fmt.Errorf("render.preset %q is not a recognized x264 preset", c.Render.Preset)
	}
	if !bitratePattern.MatchString(c.Render.VideoBitrate) {
		return fmt.Errorf("render.video_bitrate %q must look like 6000k", c.Render.VideoBitrate)
	}
	if !bitratePattern.MatchString(c.Render.AudioBitrate) {
		return fmt.Errorf("render.audio_bitrate %q must look like 192k", c.Render.AudioBitrate)
	}
	if c.Render.FPS <= 0 || c.Render.FPS > 240 {
		return fmt.Errorf("render.fps must be between 1 and 240, got %d", c.Render.FPS)
	}
	if c.Render.CommandTimeout < 0 {
		return errors.New("render.command_timeout must be >= 0 (seconds, 0 disables)")
	}

	wm := c.Render.Watermark
	if _, ok := allowedWatermarkPositions[wm.Position]; !ok {
		return fmt.Errorf("render.watermark.position %q must be one of top-left, top-right, bottom-left, bottom-right, center", wm.Position)
	}
	if wm.Opacity < 0 || wm.Opacity > 1 {
		return errors.New("render.watermark.opacity must be between 0 and 1")
	}
	if wm.WidthPx < 0 {
		return errors.New("render.watermark.width_px must be >= 0")
	}
	if wm.WidthFraction < 0 || wm.WidthFraction > 1 {
		return errors.New("render.watermark.width_fraction must be between 0 and 1")
	}

	music := c.Render.Music
	if music.Volume < 0 || music.Volume > 1 {
		return errors.New("render.music.volume must be between 0 and 1")
	}
	if music.Ducking != 0 && (music.Ducking <= 0 || music.Ducking >= 1) {
		return errors.New("render.music.ducking must be strictly between 0 and 1 (0 disables)")
	}

	loudness := c.Render.Loudness
	if loudness.IntegratedLUFS < -70 || loudness.IntegratedLUFS > -5 {
		return errors.New("render.loudness.integrated_lufs must be between -70 and -5")
	}
	if loudness.TruePeakDB < -9 || loudness.TruePeakDB > 0 {
		return errors.New("render.loudness.true_peak_db must be between -9 and 0")
	}
	if loudness.RangeLU < 1 || loudness.RangeLU > 50 {
		return errors.New("render.loudness.range_lu must be between 1 and 50")
	}
	return nil
}

func (c *Config) validateScrape() error {
	switch c.Scrape.Source {
	case "directory":
		if strings.TrimSpace(c.Scrape.Directory) == "" {
			return errors.New("scrape.directory must be set when scrape.source is \"directory\"")
		}
	case "urls":
		if len(c.Scrape.URLs) == 0 {
			return errors.New("scrape.urls must include at least one URL when scrape.source is \"urls\"")
		}
	default:
		return fmt.Errorf("scrape.source %q must be \"directory\" or \"urls\"", c.Scrape.Source)
	}
	return nil
}

func (c *Config) validatePublish() error {
	for _, target := range c.Publish.Targets {
		if target == "archive" && strings.TrimSpace(c.Publish.ArchiveDir) == "" {
			return errors.New("publish.archive_dir must be set when the archive target is enabled")
		}
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if !c.Scheduler.Enabled {
		return nil
	}
	if c.Scheduler.Timezone != "Local" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			return fmt.Errorf("scheduler.timezone %q: %w", c.Scheduler.Timezone, err)
		}
	}
	if len(c.Scheduler.Jobs) == 0 {
		return errors.New("scheduler.jobs must include at least one job when scheduler.enabled is true")
	}
	seen := make(map[string]struct{}, len(c.Scheduler.Jobs))
	for _, job := range c.Scheduler.Jobs {
		if job.Name == "" {
			return errors.New("scheduler.jobs entries must set name")
		}
		if _, dup := seen[job.Name]; dup {
			return fmt.Errorf("scheduler.jobs name %q is duplicated", job.Name)
		}
		seen[job.Name] = struct{}{}
		if _, err := cron.ParseStandard(job.Cron); err != nil {
			return fmt.Errorf("scheduler.jobs %q cron %q: %w", job.Name, job.Cron, err)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
