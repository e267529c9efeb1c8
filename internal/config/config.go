package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
}

// Render contains the encode and compositing settings applied to every job.
type Render struct {
	Vertical        bool   `toml:"vertical"`
	FPS             int    `toml:"fps"`
	Preset          string `toml:"preset"`
	PixelFormat     string `toml:"pixel_format"`
	VideoBitrate    string `toml:"video_bitrate"`
	AudioBitrate    string `toml:"audio_bitrate"`
	PaddingColor    string `toml:"padding_color"`
	IntroPath       string `toml:"intro_path"`
	OutroPath       string `toml:"outro_path"`
	CommandTimeout  int    `toml:"command_timeout"`
	DebugToolOutput bool   `toml:"debug_tool_output"`

	Watermark Watermark `toml:"watermark"`
	Music     Music     `toml:"music"`
	Loudness  Loudness  `toml:"loudness"`
}

// Watermark contains the overlay configuration. An empty path disables it.
type Watermark struct {
	Path          string  `toml:"path"`
	Position      string  `toml:"position"`
	Margin        int     `toml:"margin"`
	WidthPx       int     `toml:"width_px"`
	WidthFraction float64 `toml:"width_fraction"`
	Opacity       float64 `toml:"opacity"`
}

// Music contains the background-music configuration. An empty path disables it.
type Music struct {
	Path    string  `toml:"path"`
	Volume  float64 `toml:"volume"`
	Ducking float64 `toml:"ducking"`
}

// Loudness contains the EBU R128 normalization targets.
type Loudness struct {
	IntegratedLUFS float64 `toml:"integrated_lufs"`
	TruePeakDB     float64 `toml:"true_peak_db"`
	RangeLU        float64 `toml:"range_lu"`
}

// Scrape contains configuration for the clip collection stage.
type Scrape struct {
	Source          string   `toml:"source"`
	Directory       string   `toml:"directory"`
	URLs            []string `toml:"urls"`
	MaxClips        int      `toml:"max_clips"`
	DownloadTimeout int      `toml:"download_timeout"`
	DownloadRetries int      `toml:"download_retries"`
	RetryDelay      int      `toml:"retry_delay"`
}

// Publish contains configuration for the publish stage.
type Publish struct {
	Targets          []string `toml:"targets"`
	ArchiveDir       string   `toml:"archive_dir"`
	FilenameTemplate string   `toml:"filename_template"`
	TitleTemplate    string   `toml:"title_template"`
	Description      string   `toml:"description"`
	Tags             []string `toml:"tags"`
}

// SchedulerJob describes one recurring enqueue rule.
type SchedulerJob struct {
	Name     string   `toml:"name"`
	Cron     string   `toml:"cron"`
	MaxClips int      `toml:"max_clips"`
	Targets  []string `toml:"targets"`
}

// Scheduler contains the recurring job configuration.
type Scheduler struct {
	Enabled  bool           `toml:"enabled"`
	Timezone string         `toml:"timezone"`
	Jobs     []SchedulerJob `toml:"jobs"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyURL        string `toml:"ntfy_url"`
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Queue          bool   `toml:"queue"`
	Render         bool   `toml:"render"`
	Publish        bool   `toml:"publish"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// API contains configuration for the daemon's HTTP endpoint.
type API struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format      string `toml:"format"`
	Level       string `toml:"level"`
	BufferLines int    `toml:"buffer_lines"`
}

// Tools contains overrides for external binary locations. Empty values fall
// back to PATH lookup of the default names.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Config encapsulates all configuration values for clipforge.
//
// Configuration sections by subsystem:
//   - Paths: data, staging, output, and log directories
//   - Render: encode settings, watermark, music, loudness targets
//   - Scrape: clip source selection and download behaviour
//   - Publish: target selection and artifact naming
//   - Scheduler: recurring enqueue rules
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and timeouts
//   - API: HTTP bind address for the daemon
//   - Logging: log format, level, and ring buffer size
//   - Tools: ffmpeg/ffprobe binary overrides
type Config struct {
	Paths         Paths         `toml:"paths"`
	Render        Render        `toml:"render"`
	Scrape        Scrape        `toml:"scrape"`
	Publish       Publish       `toml:"publish"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	API           API           `toml:"api"`
	Logging       Logging       `toml:"logging"`
	Tools         Tools         `toml:"tools"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("CLIPFORGE_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// OutputDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	if strings.TrimSpace(c.Publish.ArchiveDir) != "" {
		_ = os.MkdirAll(c.Publish.ArchiveDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for all render invocations.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFmpeg); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFprobe); bin != "" {
		return bin
	}
	return "ffprobe"
}

// DatabasePath returns the queue database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "clipforge.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "clipforged.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
